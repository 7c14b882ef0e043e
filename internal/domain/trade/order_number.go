package trade

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"time"
)

var orderNumberPattern = regexp.MustCompile(`^CMD-\d{8}-\d{5}$`)

// OrderNumberGenerator produces human readable order numbers. Numbers are not
// guaranteed unique; the storage unique constraint decides.
type OrderNumberGenerator interface {
	Next(now time.Time) string
}

// RandomOrderNumberGenerator generates CMD-YYYYMMDD-NNNNN numbers
type RandomOrderNumberGenerator struct{}

// Next returns a date-stamped number with a random five digit suffix
func (RandomOrderNumberGenerator) Next(now time.Time) string {
	return FormatOrderNumber(now, rand.IntN(100000))
}

// FormatOrderNumber renders an order number for a date and suffix
func FormatOrderNumber(day time.Time, suffix int) string {
	return fmt.Sprintf("CMD-%s-%05d", day.Format("20060102"), suffix%100000)
}

// IsOrderNumber reports whether s looks like an order number
func IsOrderNumber(s string) bool {
	return orderNumberPattern.MatchString(s)
}
