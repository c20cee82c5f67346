package pricing

// DiscountRule is a percentage off event lines unlocked by a promo code.
type DiscountRule struct {
	Code    string
	Percent int64
}

// PromoResolver resolves a promo string to its discount rule. Resolvers
// never error: a code either maps to a rule or it does not.
type PromoResolver interface {
	Resolve(code string) (DiscountRule, bool)
}

// StaticResolver serves a fixed code -> percentage table.
type StaticResolver struct {
	rules map[string]DiscountRule
}

func NewStaticResolver(percentByCode map[string]int64) *StaticResolver {
	rules := make(map[string]DiscountRule, len(percentByCode))
	for code, pct := range percentByCode {
		rules[code] = DiscountRule{Code: code, Percent: pct}
	}
	return &StaticResolver{rules: rules}
}

// DefaultResolver carries the currently issued codes.
func DefaultResolver() *StaticResolver {
	return NewStaticResolver(map[string]int64{
		"TEST10": 10,
		"TEST20": 20,
	})
}

func (r *StaticResolver) Resolve(code string) (DiscountRule, bool) {
	rule, ok := r.rules[code]
	return rule, ok
}
