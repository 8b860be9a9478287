package ops

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hpungsan/ugcboard/internal/errors"
	"github.com/hpungsan/ugcboard/internal/post"
)

// DateLayout is the layout of date_start / date_end inputs.
const DateLayout = "2006-01-02"

// Period is a trailing window measured in whole days back from "now".
// The zero Period means no window.
type Period int

// Days returns the window length in days.
func (p Period) Days() int { return int(p) }

// String renders the period in its "Nd" input form.
func (p Period) String() string {
	if p <= 0 {
		return "all"
	}
	return fmt.Sprintf("%dd", int(p))
}

// namedPeriods are the window names the dashboard offers.
var namedPeriods = map[string]Period{
	"week":    7,
	"month":   30,
	"quarter": 90,
}

// ParsePeriod parses "7d", "30d", "90d" (any 1..366 day count), the names
// week/month/quarter, or an empty/"all" value meaning no window.
func ParsePeriod(s string) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if IsAll(s) {
		return 0, nil
	}
	if p, ok := namedPeriods[s]; ok {
		return p, nil
	}
	numStr := strings.TrimSuffix(s, "d")
	days, err := strconv.Atoi(numStr)
	if err != nil {
		return 0, errors.NewInvalidField("period", fmt.Sprintf("invalid period %q, use e.g. 7d, 30d, 90d", s))
	}
	if days <= 0 || days > MaxPeriodDays {
		return 0, errors.NewInvalidField("period", fmt.Sprintf("period must be between 1d and %dd", MaxPeriodDays))
	}
	return Period(days), nil
}

// FilterSpec is a parsed set of query predicates. Zero-valued fields mean
// "no constraint".
type FilterSpec struct {
	Platform post.Platform `json:"platform,omitempty"`

	// DateStart is inclusive from its exact instant (normally local midnight)
	DateStart time.Time `json:"date_start,omitempty"`

	// DateEnd names a calendar day; posts match through 23:59:59 of that day
	// in DateEnd's location
	DateEnd time.Time `json:"date_end,omitempty"`

	// Keyword matches content OR category keyword, case-insensitively
	Keyword string `json:"keyword,omitempty"`

	// Category matches the category keyword exactly
	Category string `json:"category,omitempty"`

	Period Period `json:"period,omitempty"`

	// Now anchors Period; zero means time.Now()
	Now time.Time `json:"-"`
}

// IsZero reports whether s constrains nothing.
func (s FilterSpec) IsZero() bool {
	return s.Platform == "" && s.DateStart.IsZero() && s.DateEnd.IsZero() &&
		s.Keyword == "" && s.Category == "" && s.Period == 0
}

// HasDateConstraint reports whether any date-dependent predicate is active.
func (s FilterSpec) HasDateConstraint() bool {
	return !s.DateStart.IsZero() || !s.DateEnd.IsZero() || s.Period > 0
}

// EndOfDay returns the last whole second of DateEnd's day.
func (s FilterSpec) EndOfDay() time.Time {
	if s.DateEnd.IsZero() {
		return time.Time{}
	}
	y, m, d := s.DateEnd.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, s.DateEnd.Location())
}

// PeriodStart returns the earliest instant the Period admits.
func (s FilterSpec) PeriodStart() time.Time {
	if s.Period <= 0 {
		return time.Time{}
	}
	now := s.Now
	if now.IsZero() {
		now = time.Now()
	}
	return now.AddDate(0, 0, -s.Period.Days())
}

// FilterInput is the untyped form of a FilterSpec as it arrives from a
// query string, CLI flags or an MCP call.
type FilterInput struct {
	Platform  string `json:"platform,omitempty"`
	DateStart string `json:"date_start,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DateEnd   string `json:"date_end,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Keyword   string `json:"keyword,omitempty" validate:"max=200"`
	Category  string `json:"category,omitempty"`
	Period    string `json:"period,omitempty"`
}

// ParseFilter validates input and builds a FilterSpec. Dates are calendar
// days in loc (UTC when nil); now anchors the trailing period.
func ParseFilter(input FilterInput, loc *time.Location, now time.Time) (FilterSpec, error) {
	if err := validate.Validate(input); err != nil {
		return FilterSpec{}, err
	}
	if loc == nil {
		loc = time.UTC
	}

	spec := FilterSpec{
		Keyword: strings.TrimSpace(input.Keyword),
		Now:     now,
	}

	if !IsAll(input.Platform) {
		p := post.ParsePlatform(input.Platform)
		if !p.Known() {
			return FilterSpec{}, errors.NewInvalidField("platform", fmt.Sprintf("unknown platform %q", input.Platform))
		}
		spec.Platform = p
	}

	if !IsAll(input.Category) {
		spec.Category = strings.TrimSpace(input.Category)
	}

	if input.DateStart != "" {
		t, err := time.ParseInLocation(DateLayout, input.DateStart, loc)
		if err != nil {
			return FilterSpec{}, errors.NewInvalidField("date_start", "must be YYYY-MM-DD")
		}
		spec.DateStart = t
	}
	if input.DateEnd != "" {
		t, err := time.ParseInLocation(DateLayout, input.DateEnd, loc)
		if err != nil {
			return FilterSpec{}, errors.NewInvalidField("date_end", "must be YYYY-MM-DD")
		}
		spec.DateEnd = t
	}

	period, err := ParsePeriod(input.Period)
	if err != nil {
		return FilterSpec{}, err
	}
	spec.Period = period

	return spec, nil
}

// Match reports whether p satisfies every predicate of spec. Posts without a
// usable date fail any date or period predicate.
func (s FilterSpec) Match(p post.Post) bool {
	if s.Platform != "" && p.Platform != s.Platform {
		return false
	}

	if s.HasDateConstraint() {
		if !p.HasDate() {
			return false
		}
		if !s.DateStart.IsZero() && p.PostDate.Before(s.DateStart) {
			return false
		}
		if !s.DateEnd.IsZero() && p.PostDate.After(s.EndOfDay()) {
			return false
		}
		if s.Period > 0 && p.PostDate.Before(s.PeriodStart()) {
			return false
		}
	}

	if s.Keyword != "" {
		if !post.ContainsFold(p.Content, s.Keyword) && !post.ContainsFold(p.CategoryKeyword, s.Keyword) {
			return false
		}
	}

	if s.Category != "" && p.CategoryKeyword != s.Category {
		return false
	}

	return true
}

// Filter returns the posts matching spec, preserving input order. The input
// slice is not modified; the result never aliases it.
func Filter(posts []post.Post, spec FilterSpec) []post.Post {
	if spec.Period > 0 && spec.Now.IsZero() {
		spec.Now = time.Now()
	}
	out := make([]post.Post, 0, len(posts))
	for _, p := range posts {
		if spec.Match(p) {
			out = append(out, p)
		}
	}
	return out
}
