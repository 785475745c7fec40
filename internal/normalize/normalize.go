package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"EstateScanner/internal/domain"
)

var (
	// nonNumericExpr strips everything except digits and separators.
	nonNumericExpr = regexp.MustCompile(`[^\d,\.]`)
	// millionExpr matches M-suffix prices like "84,9M" or "275M".
	millionExpr = regexp.MustCompile(`^([\d.,]+)M`)
)

// ToNumber converts portal text like "65 m²" or "2,5" to a number. The comma
// is treated as a decimal separator when it is the only one present. Returns
// nil when no number can be extracted.
func ToNumber(raw string) *float64 {
	if raw == "" {
		return nil
	}

	v := nonNumericExpr.ReplaceAllString(raw, "")
	if strings.Count(v, ",") == 1 && !strings.Contains(v, ".") {
		v = strings.ReplaceAll(v, ",", ".")
	}
	v = strings.ReplaceAll(v, ",", ".")

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}

// ParsePrice converts portal price text to HUF. Handles the M-suffix million
// shorthand ("84,9 M Ft"), currency markers, and plain amounts. Returns nil
// when the text is not a price.
func ParsePrice(raw string) *float64 {
	if raw == "" {
		return nil
	}

	cleaned := strings.NewReplacer(
		" ", "",
		" ", "",
		"Ft", "",
		"HUF", "",
		"€", "",
	).Replace(raw)

	if m := millionExpr.FindStringSubmatch(cleaned); m != nil {
		f, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err != nil {
			return nil
		}
		f *= 1_000_000
		return &f
	}

	f, err := strconv.ParseFloat(strings.ReplaceAll(cleaned, ",", "."), 64)
	if err != nil {
		return nil
	}
	return &f
}

// Listing fills the normalized numeric fields of l from its raw text fields.
// Fields that fail to parse stay nil.
func Listing(l *domain.Listing) {
	l.Size = ToNumber(l.RawSize)
	l.GrossSize = ToNumber(l.RawGrossSize)
	l.PriceHUF = ParsePrice(l.RawPriceHUF)
	l.PriceEUR = ToNumber(l.RawPriceEUR)
	l.CeilingHeight = ToNumber(l.RawCeilingHeight)

	l.Rooms = nil
	if v := ToNumber(l.RawRooms); v != nil {
		r := math.Trunc(*v)
		l.Rooms = &r
	}
}
