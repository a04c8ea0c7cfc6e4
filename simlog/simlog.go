// Package simlog builds the default human-readable logger the engine
// uses for its own lifecycle events (network assembly at info level,
// checkpoint boundaries at debug level). A Simulation works fine with
// no logger at all; this package only exists for callers that want
// one without pulling in their own slog.Handler construction.
package simlog

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Options configures New. A zero Options is a reasonable default:
// Info level, time-of-day (15:04:05) timestamps, writing to stderr.
type Options struct {
	Level  slog.Level
	Writer io.Writer
}

// New builds a tinted console logger, the same construction pattern
// used for telemetry service mains elsewhere in the ecosystem:
// slog.New wrapping a tint.NewHandler.
func New(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      opts.Level,
		TimeFormat: time.TimeOnly,
	}))
}
