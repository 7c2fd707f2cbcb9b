package config

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// NewLogger builds a stderr logger at the given level for use as
// apiscope.Config.Logger. Unknown levels fall back to info.
func NewLogger(level string) *zerolog.Logger {
	lvl := zerolog.InfoLevel
	switch strings.ToLower(level) {
	case "debug":
		lvl = zerolog.DebugLevel
	case "warn":
		lvl = zerolog.WarnLevel
	case "error":
		lvl = zerolog.ErrorLevel
	}
	logger := zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
	return &logger
}
