package ocr

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/docrecon/internal/entity"
)

var (
	reCtrl       = regexp.MustCompile(`[\r\t\f\v]+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reBoxNoise   = regexp.MustCompile(`^[_\-=|.]{3,}$`)
)

// CleanText collapses noisy whitespace inside a single detection.
func CleanText(s string) string {
	s = reCtrl.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CleanTokens normalizes token text and drops tokens that are empty or pure
// ruling lines ("-----", "_____"). Geometry is left untouched.
func CleanTokens(tokens []entity.OcrToken) []entity.OcrToken {
	out := make([]entity.OcrToken, 0, len(tokens))
	for _, t := range tokens {
		t.Text = CleanText(t.Text)
		if t.Text == "" || reBoxNoise.MatchString(t.Text) {
			continue
		}
		out = append(out, t)
	}
	return out
}
