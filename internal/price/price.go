// Package price parses marketplace price strings in mixed locale formats
// into numeric values. Listings arrive as "€450,00", "$45.99", "¥5,000", or
// "1.234,56" depending on the marketplace's region, with no marker saying
// which convention applies.
package price

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// Plausibility band for a single listing price, in home-currency units.
// Values outside it are treated as noise (accessory bundles, typos, "1,00"
// auction starts) rather than market signal.
const (
	MinPlausible = 5
	MaxPlausible = 10000
)

var (
	// ErrNoPrice means no digit sequence survived symbol stripping.
	ErrNoPrice = errors.New("price: no numeric value found")
	// ErrImplausible means the value parsed but falls outside the
	// plausibility band.
	ErrImplausible = errors.New("price: value outside plausibility band")
)

var (
	currencySymbols = regexp.MustCompile(`[€$£¥]`)
	alphabetic      = regexp.MustCompile(`[A-Za-z]+`)
	decimalComma    = regexp.MustCompile(`,\d{2}$`)
	number          = regexp.MustCompile(`[0-9][0-9.]*`)
)

// Parse converts one price string into a float64.
//
// Separator disambiguation, in order:
//  1. both "," and "." present: the rightmost occurrence is the decimal
//     point, the other is a thousands separator ("1.234,56" vs "1,234.56");
//  2. only "," present: decimal only when followed by exactly two digits at
//     the end of the string ("40,00"), otherwise thousands ("1,000" or
//     "5,000"). The order of these checks matters: treating every comma as
//     decimal would read "1,000" as one unit.
//  3. only "." present: standard decimal point.
func Parse(text string) (float64, error) {
	s := currencySymbols.ReplaceAllString(text, "")
	s = alphabetic.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")

	switch {
	case hasComma && hasDot:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		if decimalComma.MatchString(s) {
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}

	match := number.FindString(s)
	if match == "" {
		return 0, ErrNoPrice
	}

	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, ErrNoPrice
	}
	return v, nil
}

// Plausible reports whether v lies inside the plausibility band.
func Plausible(v float64) bool {
	return v >= MinPlausible && v <= MaxPlausible
}

// ParsePlausible parses text and additionally rejects values outside the
// plausibility band. This is the entry point the scrape adapters use; the
// band is an anti-noise filter, not a correctness guarantee.
func ParsePlausible(text string) (float64, error) {
	v, err := Parse(text)
	if err != nil {
		return 0, err
	}
	if !Plausible(v) {
		return 0, ErrImplausible
	}
	return v, nil
}
