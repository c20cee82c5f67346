package redis

import "fmt"

const ns = "lesjours:v1"

func KeyCart(ownerKey string) string {
	return fmt.Sprintf("%s:cart:%s", ns, ownerKey)
}

func KeyOccurrenceSummary(occurrenceID int64) string {
	return fmt.Sprintf("%s:occurrence:%d:summary", ns, occurrenceID)
}

func KeyOccurrenceAvailability(occurrenceID int64) string {
	return fmt.Sprintf("%s:occurrence:%d:availability", ns, occurrenceID)
}

func KeyIdemCheckout(ownerKey, idemKey string) string {
	return fmt.Sprintf("%s:idem:checkout:%s:%s", ns, ownerKey, idemKey)
}

// RateLimitPrefix is the limiter key prefix for one scope; the limiter
// appends the per-client suffix itself.
func RateLimitPrefix(scope string) string {
	return fmt.Sprintf("%s:rl:%s", ns, scope)
}

func ChannelOccurrencesChanged() string {
	return ns + ":occurrences:changed"
}
