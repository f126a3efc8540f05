package config

import (
	"os"

	"github.com/phuslu/log"
)

// SetupLogging installs the process-wide logger. Unknown levels fall back to info.
func SetupLogging(level string) {
	lvl := log.ParseLevel(level)
	if level == "" {
		lvl = log.InfoLevel
	}
	log.DefaultLogger = log.Logger{
		Level:      lvl,
		Caller:     1,
		TimeFormat: "15:04:05",
		Writer: &log.ConsoleWriter{
			ColorOutput:    isTerminal(),
			QuoteString:    true,
			EndWithMessage: true,
		},
	}
}

func isTerminal() bool {
	fi, err := os.Stderr.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
