package post

import (
	"slices"
	"strings"
)

// Reserved category values meaning "keyword not set yet" in the sheets.
const (
	SentinelKeywordUnderscore = "_キーワード設定"
	SentinelKeyword           = "キーワード設定"
)

// Sentinels lists every reserved category value.
var Sentinels = []string{SentinelKeywordUnderscore, SentinelKeyword}

// IsValid reports whether p may enter the working set: its category keyword
// must be non-blank and not a reserved placeholder.
func IsValid(p Post) bool {
	kw := strings.TrimSpace(p.CategoryKeyword)
	if kw == "" {
		return false
	}
	return !slices.Contains(Sentinels, kw)
}
