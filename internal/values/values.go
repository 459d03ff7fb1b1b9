// Package values scrubs the numeric cells of CbC tables. Extracted cells
// carry thousands separators in two locales, footnote junk, percent signs
// and accountant negatives like (1 234).
package values

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	notNumericRe = regexp.MustCompile(`[^0-9()\-.%,]`)
	percentRe    = regexp.MustCompile(`(\d+[.,]?\d*)\w?%`)
	etrRe        = regexp.MustCompile(`(-?\d+[.]?\d*)`)
	yearRe       = regexp.MustCompile(`^\d{4}$`)
)

// CleanNumeric strips everything that cannot be part of a number.
func CleanNumeric(s string) string {
	return notNumericRe.ReplaceAllString(s, "")
}

// Parse reads a cell as a float64. Parentheses negate. With both
// separators present the rightmost wins as the decimal mark; a lone
// separator followed by groups of three reads as thousands. ok is false
// when nothing numeric remains.
func Parse(s string) (float64, bool) {
	x := CleanNumeric(s)
	if x == "" {
		return 0, false
	}
	neg := strings.Contains(x, "(") && strings.Contains(x, ")")
	x = strings.NewReplacer("(", "", ")", "", "%", "").Replace(x)

	lastComma := strings.LastIndex(x, ",")
	lastDot := strings.LastIndex(x, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0 && lastComma > lastDot:
		x = strings.ReplaceAll(x, ".", "")
		i := strings.LastIndex(x, ",")
		x = strings.ReplaceAll(x[:i], ",", "") + "." + x[i+1:]
	case lastComma >= 0 && lastDot >= 0:
		x = strings.ReplaceAll(x, ",", "")
		if i := strings.LastIndex(x, "."); strings.Count(x, ".") > 1 {
			x = strings.ReplaceAll(x[:i], ".", "") + x[i:]
		}
	case lastComma >= 0:
		x = resolveLoneSeparator(x, ",")
	case lastDot >= 0:
		x = resolveLoneSeparator(x, ".")
	}

	v, err := strconv.ParseFloat(x, 64)
	if err != nil {
		return 0, false
	}
	if neg && v > 0 {
		v = -v
	}
	return v, true
}

// resolveLoneSeparator decides whether a single separator kind groups
// thousands or marks decimals: "1,234,567" groups, "12,5" does not.
func resolveLoneSeparator(x, sep string) string {
	parts := strings.Split(x, sep)
	grouped := len(parts) > 1
	for _, p := range parts[1:] {
		if len(p) != 3 {
			grouped = false
			break
		}
	}
	if grouped {
		return strings.Join(parts, "")
	}
	// Last separator is the decimal mark, any earlier ones are noise.
	head := strings.Join(parts[:len(parts)-1], "")
	return head + "." + parts[len(parts)-1]
}

// ParsePercent extracts the numeric part of a percent-formatted cell.
func ParsePercent(s string) (float64, bool) {
	m := percentRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseETR pulls the first signed number out of an effective-tax-rate cell.
func ParseETR(s string) (float64, bool) {
	m := etrRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// IsYear reports whether s is a plain four-digit year.
func IsYear(s string) bool {
	return yearRe.MatchString(s)
}
