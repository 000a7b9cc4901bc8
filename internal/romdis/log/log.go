package log

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

var (
	initOnce    sync.Once
	initialized atomic.Bool
)

// Setup installs the process-wide slog handler. Debug mode lowers the
// level and adds source positions.
func Setup(debug bool) {
	initOnce.Do(func() {
		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}

		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level:     level,
			AddSource: debug,
		})

		slog.SetDefault(slog.New(handler))
		initialized.Store(true)
	})
}

func Initialized() bool {
	return initialized.Load()
}

// RecoverPanic logs a recovered panic with its stack and then runs the
// cleanup function.
func RecoverPanic(name string, cleanup func()) {
	if r := recover(); r != nil {
		if Initialized() {
			slog.Error(fmt.Sprintf("Panic in %s", name),
				"panic", r,
				"stack", string(debug.Stack()))
		}
		if cleanup != nil {
			cleanup()
		}
	}
}
