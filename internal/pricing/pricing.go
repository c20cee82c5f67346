// Package pricing derives monetary totals from cart contents. All
// arithmetic is decimal; the calculator itself holds no state beyond the
// injected promo resolver, so repeated calls over the same input always
// produce the same totals.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/DenisFeoktistov/LesJoursBackend/internal/domain"
)

// PricedLine is a cart line resolved against the catalog: quantities plus
// the prices the totals are computed from.
type PricedLine struct {
	Kind       domain.LineKind
	Quantity   int
	StartPrice decimal.Decimal // event lines: list price
	FinalPrice decimal.Decimal // event lines: current sellable price
	Amount     decimal.Decimal // certificate lines: denomination
}

type Totals struct {
	Gross               decimal.Decimal
	MasterClassDiscount decimal.Decimal
	PromoDiscount       decimal.Decimal
	TotalDiscount       decimal.Decimal
	Net                 decimal.Decimal
}

type Calculator struct {
	promos PromoResolver
}

func NewCalculator(promos PromoResolver) *Calculator {
	return &Calculator{promos: promos}
}

var hundred = decimal.NewFromInt(100)

// Totals computes the four figures of the cart view.
//
// Gross is start_price x quantity over event lines plus denomination x
// quantity over certificate lines; certificates never discount. The master
// class discount is (start - final) x quantity. The promo discount applies
// only to the net-of-masterclass-discount event subtotal, i.e. to
// final_price x quantity, and is zero for unknown codes.
func (c *Calculator) Totals(lines []PricedLine, promoCode string) Totals {
	gross := decimal.Zero
	mcDiscount := decimal.Zero
	eventNet := decimal.Zero

	for _, l := range lines {
		qty := decimal.NewFromInt(int64(l.Quantity))
		switch l.Kind {
		case domain.LineEvent:
			gross = gross.Add(l.StartPrice.Mul(qty))
			mcDiscount = mcDiscount.Add(l.StartPrice.Sub(l.FinalPrice).Mul(qty))
			eventNet = eventNet.Add(l.FinalPrice.Mul(qty))
		case domain.LineCertificate:
			gross = gross.Add(l.Amount.Mul(qty))
		}
	}

	promoDiscount := decimal.Zero
	if rule, ok := c.Resolve(promoCode); ok {
		promoDiscount = eventNet.Mul(decimal.NewFromInt(rule.Percent)).Div(hundred).Round(2)
	}

	totalDiscount := mcDiscount.Add(promoDiscount)

	return Totals{
		Gross:               gross,
		MasterClassDiscount: mcDiscount,
		PromoDiscount:       promoDiscount,
		TotalDiscount:       totalDiscount,
		Net:                 gross.Sub(totalDiscount),
	}
}

// Resolve looks the code up in the injected resolver. An empty or unknown
// code is not an error, it simply carries no rule.
func (c *Calculator) Resolve(code string) (DiscountRule, bool) {
	if code == "" || c.promos == nil {
		return DiscountRule{}, false
	}
	return c.promos.Resolve(code)
}
