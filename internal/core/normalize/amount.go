package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// amountPattern prefers a comma-grouped number and falls back to plain digits,
// so "1000" is read whole rather than as its first three digits.
var amountPattern = regexp.MustCompile(`\d{1,3}(?:,\d{3})+(?:\.\d{2})?|\d+(?:\.\d{2})?`)

// FindAmount returns the first amount-looking substring of s.
func FindAmount(s string) (string, bool) {
	m := amountPattern.FindString(s)
	return m, m != ""
}

// FormatAmount renders an amount with two fraction digits and thousands
// separators ("1234.5" -> "1,234.50"). Inputs that do not parse are absent.
// FormatAmount(FormatAmount(x)) == FormatAmount(x).
func FormatAmount(raw string) (string, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return "", false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return "", false
	}
	return groupThousands(d.StringFixed(2)), true
}

func groupThousands(fixed string) string {
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	intPart, frac, _ := strings.Cut(fixed, ".")
	if len(intPart) <= 3 {
		return sign + fixed
	}
	var b strings.Builder
	head := len(intPart) % 3
	if head > 0 {
		b.WriteString(intPart[:head])
	}
	for i := head; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	return sign + b.String() + "." + frac
}
