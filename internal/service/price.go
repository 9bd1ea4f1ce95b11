package service

import (
	"math"
	"strconv"
	"strings"

	"menuforge/internal/domain"
)

const DefaultCurrencySymbol = "₹"

// ParsePrice strips the currency symbol and thousands separators from a
// formatted price string. The second return value is false for empty or
// unparseable input.
func ParsePrice(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	// Drop a leading run of symbol characters (the currency glyph may be
	// multi-byte), keeping digits, sign and decimal point.
	start := -1
	for idx, r := range s {
		if (r >= '0' && r <= '9') || r == '-' || r == '.' {
			start = idx
			break
		}
	}
	if start < 0 {
		return 0, false
	}

	s = strings.ReplaceAll(s[start:], ",", "")
	s = strings.ReplaceAll(s, " ", "")
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// FormatPrice renders a value as the canonical currency string: symbol plus
// an integer rounded half away from zero, thousands-grouped. The round-trip
// property FormatPrice(ParsePrice(p)) == p holds for every canonical p.
func FormatPrice(value float64, symbol string) string {
	if symbol == "" {
		symbol = DefaultCurrencySymbol
	}
	n := int64(math.Round(value))

	negative := n < 0
	if negative {
		n = -n
	}
	digits := strconv.FormatInt(n, 10)

	var grouped strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		grouped.WriteString(digits[:lead])
	}
	for idx := lead; idx < len(digits); idx += 3 {
		if grouped.Len() > 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteString(digits[idx : idx+3])
	}

	if negative {
		return symbol + "-" + grouped.String()
	}
	return symbol + grouped.String()
}

// CanonicalizePrice re-formats a price-like string into canonical form.
// Unparseable input is returned unchanged rather than destroyed.
func CanonicalizePrice(raw, symbol string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	value, ok := ParsePrice(raw)
	if !ok {
		return raw
	}
	return FormatPrice(value, symbol)
}

// CanonicalizeItemPrices formats every price-like field of an item in place.
func CanonicalizeItemPrices(item *domain.MenuItem, symbol string) {
	item.Price = CanonicalizePrice(item.Price, symbol)
	item.HalfPrice = CanonicalizePrice(item.HalfPrice, symbol)
	item.FullPrice = CanonicalizePrice(item.FullPrice, symbol)
	for idx, size := range item.Sizes {
		item.Sizes[idx] = CanonicalizePrice(size, symbol)
	}
}

// AdjustPrice multiplies a formatted price by (1 + percent/100), rounding to
// the nearest integer currency unit. Unparseable input passes through.
func AdjustPrice(raw string, percent float64, symbol string) string {
	value, ok := ParsePrice(raw)
	if !ok {
		return raw
	}
	return FormatPrice(value*(1+percent/100), symbol)
}

// AdjustItemPrices applies a percentage adjustment to whichever of the three
// pricing shapes the item carries.
func AdjustItemPrices(item *domain.MenuItem, percent float64, symbol string) {
	if item.Price != "" {
		item.Price = AdjustPrice(item.Price, percent, symbol)
	}
	if item.HalfPrice != "" {
		item.HalfPrice = AdjustPrice(item.HalfPrice, percent, symbol)
	}
	if item.FullPrice != "" {
		item.FullPrice = AdjustPrice(item.FullPrice, percent, symbol)
	}
	for idx, size := range item.Sizes {
		item.Sizes[idx] = AdjustPrice(size, percent, symbol)
	}
}

// VoteDiscountPercent converts a vote count into a discount percentage:
// one percent per ten votes, capped at ten.
func VoteDiscountPercent(votes int64) int {
	discount := votes / 10
	if discount > 10 {
		discount = 10
	}
	if discount < 0 {
		discount = 0
	}
	return int(discount)
}
