package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // Asia/Tokyo without a system zoneinfo

	"github.com/hpungsan/ugcboard/internal/post"
	"github.com/hpungsan/ugcboard/internal/validation"
)

// Data source kinds
const (
	SourceSheets   = "sheets"
	SourceSQLite   = "sqlite"
	SourcePostgres = "postgres"
)

// RepoDirName is the per-repository config directory searched by LoadWithRepo.
const RepoDirName = ".ugcboard"

// SheetConfig names one exported sheet and the platform its rows belong to.
type SheetConfig struct {
	Name     string `json:"name" validate:"required"`
	Platform string `json:"platform" validate:"required"`
}

// Config holds application configuration.
type Config struct {
	// Source selects where posts come from: sheets, sqlite or postgres
	Source string `json:"source,omitempty" validate:"oneof=sheets sqlite postgres"`

	// SpreadsheetID identifies the exported spreadsheet for the sheets source
	SpreadsheetID string `json:"spreadsheet_id,omitempty" validate:"required_if=Source sheets"`

	// SheetsBaseURL is the export host. Tests point it at an httptest server.
	SheetsBaseURL string `json:"sheets_base_url,omitempty" validate:"url"`

	// Sheets lists the per-platform sheets fetched and concatenated on refresh.
	// A non-empty overlay list replaces the base list.
	Sheets []SheetConfig `json:"sheets,omitempty" validate:"dive"`

	// ItemsPerSheet keeps only the newest N rows of each sheet
	ItemsPerSheet int `json:"items_per_sheet,omitempty" validate:"min=1"`

	// DatabaseURL is the postgres DSN, or a sqlite directory for the sqlite source.
	// Empty sqlite directory means the base dir.
	DatabaseURL string `json:"database_url,omitempty" validate:"required_if=Source postgres"`

	// Table is the relational table holding posts
	Table string `json:"table,omitempty" validate:"required"`

	// Timezone decides calendar days for date filters and day buckets
	Timezone string `json:"timezone,omitempty" validate:"required"`

	// TrailingWindowDays > 0 charts a fixed zero-filled window ending today.
	// 0 charts every day that has posts.
	TrailingWindowDays int `json:"trailing_window_days,omitempty" validate:"min=0,max=90"`

	// LabelStyle is "date" (10/1) or "weekday" (火)
	LabelStyle string `json:"label_style,omitempty" validate:"oneof=date weekday"`

	// ExcludeYouTubeShares drops YouTube shares from totals and engagement
	ExcludeYouTubeShares bool `json:"exclude_youtube_shares,omitempty"`

	ReachPerPost      int `json:"reach_per_post,omitempty" validate:"min=1"`
	TopCategories     int `json:"top_categories,omitempty" validate:"min=1"`
	LatestPerPlatform int `json:"latest_per_platform,omitempty" validate:"min=1"`

	// FetchRequestsPerMinute caps sheet export requests. 0 disables the limiter.
	FetchRequestsPerMinute int `json:"fetch_requests_per_minute,omitempty" validate:"min=0"`

	// FetchTimeoutSeconds bounds one refresh. 0 means no timeout.
	FetchTimeoutSeconds int `json:"fetch_timeout_seconds,omitempty" validate:"min=0"`

	// Pushdown sends filters to relational sources instead of filtering the
	// working set in memory. Results are identical either way.
	Pushdown bool `json:"pushdown,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	LogLevel  string `json:"log_level,omitempty" validate:"oneof=debug info warn error"`
	LogFormat string `json:"log_format,omitempty" validate:"oneof=json text"`
}

// DefaultSheets are the three per-platform sheets of the campaign workbook.
func DefaultSheets() []SheetConfig {
	return []SheetConfig{
		{Name: "YouTube投稿データ", Platform: string(post.YouTube)},
		{Name: "X投稿データ", Platform: string(post.Twitter)},
		{Name: "Instagram投稿データ", Platform: string(post.Instagram)},
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Source:                 SourceSheets,
		SheetsBaseURL:          "https://docs.google.com",
		Sheets:                 DefaultSheets(),
		ItemsPerSheet:          10,
		Table:                  "ugc_posts",
		Timezone:               "Asia/Tokyo",
		LabelStyle:             "date",
		ReachPerPost:           1000,
		TopCategories:          5,
		LatestPerPlatform:      6,
		FetchRequestsPerMinute: 100,
		LogLevel:               "info",
		LogFormat:              "json",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.ugcboard.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.ugcboard) and repo (.ugcboard) directories.
// Repo config is found by walking upward from startDir to find the nearest .ugcboard/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	// Apply defaults, then global, then repo
	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .ugcboard/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, RepoDirName, "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root, not found
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		Source:                 pickString(base.Source, overlay.Source),
		SpreadsheetID:          pickString(base.SpreadsheetID, overlay.SpreadsheetID),
		SheetsBaseURL:          pickString(base.SheetsBaseURL, overlay.SheetsBaseURL),
		ItemsPerSheet:          pickInt(base.ItemsPerSheet, overlay.ItemsPerSheet),
		DatabaseURL:            pickString(base.DatabaseURL, overlay.DatabaseURL),
		Table:                  pickString(base.Table, overlay.Table),
		Timezone:               pickString(base.Timezone, overlay.Timezone),
		TrailingWindowDays:     pickInt(base.TrailingWindowDays, overlay.TrailingWindowDays),
		LabelStyle:             pickString(base.LabelStyle, overlay.LabelStyle),
		ReachPerPost:           pickInt(base.ReachPerPost, overlay.ReachPerPost),
		TopCategories:          pickInt(base.TopCategories, overlay.TopCategories),
		LatestPerPlatform:      pickInt(base.LatestPerPlatform, overlay.LatestPerPlatform),
		FetchRequestsPerMinute: pickInt(base.FetchRequestsPerMinute, overlay.FetchRequestsPerMinute),
		FetchTimeoutSeconds:    pickInt(base.FetchTimeoutSeconds, overlay.FetchTimeoutSeconds),
		DBMaxOpenConns:         pickInt(base.DBMaxOpenConns, overlay.DBMaxOpenConns),
		DBMaxIdleConns:         pickInt(base.DBMaxIdleConns, overlay.DBMaxIdleConns),
		LogLevel:               pickString(base.LogLevel, overlay.LogLevel),
		LogFormat:              pickString(base.LogFormat, overlay.LogFormat),
	}

	// Booleans: overlay wins if true, else base
	result.ExcludeYouTubeShares = base.ExcludeYouTubeShares || overlay.ExcludeYouTubeShares
	result.Pushdown = base.Pushdown || overlay.Pushdown

	// Sheets describe one workbook; a partial merge would mix two
	result.Sheets = base.Sheets
	if len(overlay.Sheets) > 0 {
		result.Sheets = overlay.Sheets
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// pickString returns overlay if non-empty, else base.
func pickString(base, overlay string) string {
	if overlay != "" {
		return overlay
	}
	return base
}

// pickInt returns overlay if non-zero, else base.
func pickInt(base, overlay int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

var validate = validation.New()

// Validate checks field constraints, the timezone name and sheet platforms.
func (c *Config) Validate() error {
	if err := validate.Validate(c); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	for _, s := range c.Sheets {
		if !post.ParsePlatform(s.Platform).Known() {
			return fmt.Errorf("sheet %q: unknown platform %q", s.Name, s.Platform)
		}
	}
	return nil
}

// Location resolves Timezone. Empty means UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// FetchTimeout returns the refresh timeout, 0 for none.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}
