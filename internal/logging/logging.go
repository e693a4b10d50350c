// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config is the subset of the server configuration logging reads.
type Config interface {
	GetLogLevel() string
	GetLogFormat() string
}

// InitDefault sets up a console logger at info level, used before the
// configuration has been read.
func InitDefault() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = New(os.Stderr, "console")
	zerolog.DefaultContextLogger = &log.Logger
}

// Init sets the global level and output format from cfg. Unknown levels fall
// back to info.
func Init(cfg Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.GetLogLevel()))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = New(os.Stderr, cfg.GetLogFormat())
	zerolog.DefaultContextLogger = &log.Logger
}

// New returns a timestamped logger writing json, or human readable console
// output for any other format.
func New(w io.Writer, format string) zerolog.Logger {
	if strings.EqualFold(format, "json") {
		return zerolog.New(w).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).With().Timestamp().Logger()
}
