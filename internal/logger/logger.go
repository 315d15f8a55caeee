// Package logger configures the process-wide structured logger.
package logger

import (
	"io"
	"os"

	"github.com/phuslu/log"
)

// Setup installs the default logger. Console output is used when w is a
// terminal, JSON lines otherwise.
func Setup(level string, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}

	var writer log.Writer = &log.IOWriter{Writer: w}
	if f, ok := w.(*os.File); ok && log.IsTerminal(f.Fd()) {
		writer = &log.ConsoleWriter{Writer: w, ColorOutput: true, EndWithMessage: true}
	}

	log.DefaultLogger = log.Logger{
		Level:      ParseLevel(level),
		TimeFormat: "15:04:05",
		Writer:     writer,
	}
}

func ParseLevel(level string) log.Level {
	switch level {
	case "trace", "debug", "info", "warn", "error", "fatal":
		return log.ParseLevel(level)
	default:
		return log.InfoLevel
	}
}
