package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Environment overrides, applied after the config files.
const (
	EnvSource        = "UGC_SOURCE"
	EnvSpreadsheetID = "UGC_SPREADSHEET_ID"
	EnvDatabaseURL   = "DATABASE_URL"
	EnvTimezone      = "UGC_TIMEZONE"
	EnvLogLevel      = "LOG_LEVEL"
)

// EnvFiles are loaded in order from the working directory; later files win.
var EnvFiles = []string{".env", ".env.local"}

// LoadEnv loads EnvFiles found in dir into the process environment.
// Missing files are skipped. Returns the files that were loaded.
func LoadEnv(dir string, logger *logrus.Logger) []string {
	loaded := make([]string, 0, len(EnvFiles))
	for _, name := range EnvFiles {
		file := filepath.Join(dir, name)
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Overload(file); err != nil {
			if logger != nil {
				logger.WithError(err).Warnf("failed to load %s", file)
			}
			continue
		}
		loaded = append(loaded, name)
	}
	if logger != nil && len(loaded) > 0 {
		logger.Debugf("loaded env files: %s", strings.Join(loaded, ", "))
	}
	return loaded
}

// ApplyEnv overrides cfg fields from the environment. Empty variables are ignored.
func ApplyEnv(cfg *Config) *Config {
	overlay := &Config{
		Source:        getEnv(EnvSource),
		SpreadsheetID: getEnv(EnvSpreadsheetID),
		DatabaseURL:   getEnv(EnvDatabaseURL),
		Timezone:      getEnv(EnvTimezone),
		LogLevel:      strings.ToLower(getEnv(EnvLogLevel)),
	}
	return Merge(cfg, overlay)
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
