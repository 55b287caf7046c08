package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

var Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init sets the global level; unknown levels fall back to info.
func Init(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// Nop is used by tests that do not care about output.
func Nop() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
