package post

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// leadingIntRegex matches an optional sign followed by digits at the start of a string.
var leadingIntRegex = regexp.MustCompile(`^[+-]?\d+`)

// ParseCount coerces v to a non-negative integer count. Thousands separators
// are ignored and trailing garbage after the leading digits is dropped
// ("12.7" → 12, "15件" → 15). Anything unparseable, negative or non-finite
// yields 0.
func ParseCount(v any) int {
	if f, ok := v.(float64); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			return 0
		}
		if f > math.MaxInt32 {
			return math.MaxInt32
		}
		return int(f)
	}

	s, err := cast.ToStringE(v)
	if err != nil {
		return 0
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	m := leadingIntRegex.FindString(s)
	if m == "" {
		return 0
	}
	n, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		// Only overflow gets here; the regex guarantees digits.
		if strings.HasPrefix(m, "-") {
			return 0
		}
		return math.MaxInt32
	}
	if n < 0 {
		return 0
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

// zonedLayouts carry their own offset.
var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -0700 MST",
	time.RFC1123Z,
	time.RFC1123,
}

// localLayouts are interpreted in the caller's location.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/1/2 15:04:05",
	"2006/01/02 15:04",
	"2006/1/2 15:04",
	"2006-01-02",
	"2006/01/02",
	"2006/1/2",
	"2006年1月2日 15:04",
	"2006年1月2日",
}

// ParseDate parses a source date string. Strings without a zone are read in
// loc (UTC when nil). The second return is false for empty or unparseable
// input; callers treat that as "no date", never as an error.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(loc), true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
