// Package log configures the process-wide zerolog logger.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// Output formats accepted by --log-format
const (
	FormatAuto    = "auto"
	FormatConsole = "console"
	FormatJSON    = "json"
)

// New builds a logger writing to w. Auto format picks the console writer
// when tty is true and JSON otherwise.
func New(w io.Writer, level, format string, tty bool) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	switch strings.ToLower(format) {
	case FormatAuto, "":
		if tty {
			w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
		}
	case FormatConsole:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: !tty}
	case FormatJSON:
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q", format)
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// Setup installs the global logger on stderr
func Setup(level, format string) error {
	zerolog.TimeFieldFormat = time.RFC3339

	logger, err := New(os.Stderr, level, format, term.IsTerminal(int(os.Stderr.Fd())))
	if err != nil {
		return err
	}
	log.Logger = logger
	zerolog.SetGlobalLevel(logger.GetLevel())
	return nil
}
