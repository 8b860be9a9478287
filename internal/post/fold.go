package post

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/width"
)

// Fold normalizes s for case-insensitive comparison: trims, folds full-width
// ASCII to half-width (and half-width kana to full-width), then case-folds.
// A new Caser is built per call because Casers are not safe for concurrent use.
func Fold(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return cases.Fold().String(width.Fold.String(s))
}

// ContainsFold reports whether substr occurs in s after folding both.
func ContainsFold(s, substr string) bool {
	return strings.Contains(Fold(s), Fold(substr))
}
