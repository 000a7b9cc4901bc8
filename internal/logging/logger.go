// Package logging builds the structured diagnostic logger used by the
// disassembly engine. Level, prefix and file output are controlled by
// environment variables so listings on stdout stay clean.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// LoggerCloser wraps a logger and closes its writer on shutdown.
type LoggerCloser struct {
	*log.Logger
	closer io.Closer
}

// Close closes the underlying writer if it's closeable.
func (lc *LoggerCloser) Close() error {
	if lc.closer != nil {
		return lc.closer.Close()
	}
	return nil
}

// NewLoggerWithWriter creates a logger writing to w.
func NewLoggerWithWriter(w io.Writer) *LoggerCloser {
	lg := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})

	switch os.Getenv("ROMDIS_LOG_LEVEL") {
	case "debug":
		lg.SetLevel(log.DebugLevel)
	case "warn":
		lg.SetLevel(log.WarnLevel)
	case "error":
		lg.SetLevel(log.ErrorLevel)
	default:
		lg.SetLevel(log.InfoLevel)
	}

	prefix := os.Getenv("ROMDIS_LOG_PREFIX")
	if prefix == "" {
		prefix = "romdis "
	}

	var closer io.Closer
	if c, ok := w.(io.Closer); ok {
		closer = c
	}

	return &LoggerCloser{
		Logger: lg.WithPrefix(prefix),
		closer: closer,
	}
}

// NewLogger creates a logger based on environment variables:
//
//	ROMDIS_LOG_LEVEL: debug, info, warn, error (default: info)
//	ROMDIS_LOG_PREFIX: prefix for log messages (default: "romdis ")
//	ROMDIS_LOG_TO_FILE: when "1", log to a timestamped file instead of stderr
func NewLogger() *LoggerCloser {
	output := io.Writer(os.Stderr)

	if os.Getenv("ROMDIS_LOG_TO_FILE") == "1" {
		timestamp := time.Now().Format("20060102-150405")
		logFile := fmt.Sprintf("romdis-%s-debug.log", timestamp)

		f, err := os.OpenFile(logFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err == nil {
			output = f
		}
		// fall back to stderr when the file cannot be created
	}

	return NewLoggerWithWriter(output)
}

// IsDebug returns true if debug logging is enabled.
func IsDebug() bool {
	return os.Getenv("ROMDIS_LOG_LEVEL") == "debug"
}
