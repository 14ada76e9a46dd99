// Package logging builds the zerolog logger shared by the CLI and the
// library packages.
package logging

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// ParseLevel accepts debug, info, warn and error, in any case.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info", "":
		return zerolog.InfoLevel, nil
	case "warn":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	}
	return zerolog.NoLevel, fmt.Errorf("log level %q not one of: debug, info, warn, error", level)
}

// New returns a logger writing to w at the given level. Console output is
// colored when w is a terminal; json selects raw JSON lines instead.
func New(level string, json bool, w io.Writer) (zerolog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}

	color := isTerminal(w)
	w = zerolog.SyncWriter(w)
	if !json {
		w = zerolog.ConsoleWriter{
			Out:     w,
			NoColor: !color,
		}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

func isTerminal(w io.Writer) bool {
	if runtime.GOOS == "windows" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
