package personal

import (
	"math/big"
	"regexp"
	"strings"
)

// Pattern defines a personal data detection pattern. Valid, when set, rejects
// matches that only look like the data type.
type Pattern struct {
	Name  string
	Regex *regexp.Regexp
	Valid func(match string) bool
}

// DefaultPatterns returns the built-in personal data patterns.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{
			Name:  "Email Address",
			Regex: regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`),
		},
		{
			Name:  "IBAN",
			Regex: regexp.MustCompile(`\b[A-Z]{2}\d{2}(?:\s?[A-Z0-9]{4}){2,7}(?:\s?[A-Z0-9]{1,4})?\b`),
			Valid: validIBAN,
		},
		{
			Name:  "Card Number",
			Regex: regexp.MustCompile(`\b(?:\d[ \-]?){12,18}\d\b`),
			Valid: luhn,
		},
		{
			Name:  "Phone Number",
			Regex: regexp.MustCompile(`(?:\+\d{1,3}[\s\-]?|\b0)\d{2,5}[\s/\-]?\d{3,}(?:[\s\-]?\d{2,})*`),
		},
		{
			Name:  "Birth Date",
			Regex: regexp.MustCompile(`(?i)\b(?:geb\.|geboren am|born on|date of birth:?|dob:?)\s*\d{1,2}[./\-]\d{1,2}[./\-]\d{2,4}`),
		},
	}
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func luhn(match string) bool {
	digits := digitsOnly(match)
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// validIBAN applies the ISO 13616 mod-97 check.
func validIBAN(match string) bool {
	iban := strings.ReplaceAll(match, " ", "")
	if len(iban) < 15 || len(iban) > 34 {
		return false
	}
	rearranged := iban[4:] + iban[:4]

	var numeric strings.Builder
	for _, r := range rearranged {
		switch {
		case r >= '0' && r <= '9':
			numeric.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			numeric.WriteString(big.NewInt(int64(r - 'A' + 10)).String())
		default:
			return false
		}
	}
	n, ok := new(big.Int).SetString(numeric.String(), 10)
	if !ok {
		return false
	}
	return new(big.Int).Mod(n, big.NewInt(97)).Int64() == 1
}
