package logger

import (
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/sonarkit-io/sonarkit/pkg/shared/config"
)

// NewLogger builds the named logger for one command run. The level comes from
// the config file first, then from SONARKIT_LOG_LEVEL. CI mode emits JSON
// with timestamps; interactive runs get the plain human format.
func NewLogger(cfg *config.Config, name string) hclog.Logger {
	level := hclog.Info
	switch {
	case cfg != nil && cfg.Logger.Level != "":
		level = parseLevel(cfg.Logger.Level)
	case os.Getenv("SONARKIT_LOG_LEVEL") != "":
		level = parseLevel(os.Getenv("SONARKIT_LOG_LEVEL"))
	}

	ciMode := cfg != nil && cfg.Sonarkit.Mode == "CI"
	return hclog.New(&hclog.LoggerOptions{
		Name:        name,
		Level:       level,
		Output:      os.Stdout,
		JSONFormat:  ciMode,
		DisableTime: !ciMode,
	})
}

// parseLevel maps a level string onto an hclog level, defaulting to info for
// anything unknown.
func parseLevel(s string) hclog.Level {
	if level := hclog.LevelFromString(strings.ToLower(s)); level != hclog.NoLevel {
		return level
	}
	return hclog.Info
}
