package ops

import (
	"strings"

	"github.com/hpungsan/ugcboard/internal/validation"
)

// Display and aggregation defaults
const (
	DefaultTopCategories     = 5
	DefaultLatestPerPlatform = 6
	DefaultReachPerPost      = 1000
	MaxPeriodDays            = 366
)

// allValues are the selector values meaning "no constraint". The Japanese
// entry is what the dashboard's select boxes submit.
var allValues = map[string]bool{
	"":    true,
	"all": true,
	"すべて": true,
}

// IsAll reports whether a selector value means "no constraint".
func IsAll(s string) bool {
	return allValues[strings.ToLower(strings.TrimSpace(s))]
}

var validate = validation.New()
