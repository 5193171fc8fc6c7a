// Package log provides the process logger and the raw report log.
//
// Without a log file, records below Error go to stdout and Error and above go
// to stderr, so shell redirection can separate normal output from failures.
// With a log file, everything is written to the file and mirrored on stderr.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// LevelTrace defines a custom slog level below Debug for very verbose output,
// such as per-report hex dumps.
const LevelTrace slog.Level = -8

func ParseLevel(s string) slog.Level {
	switch s {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// routedHandler sends records below Error to low and the rest to high, and
// tees every record into the optional file sink.
type routedHandler struct {
	low  slog.Handler
	high slog.Handler
	file slog.Handler
}

func (h routedHandler) console(level slog.Level) slog.Handler {
	if level >= slog.LevelError {
		return h.high
	}
	return h.low
}

func (h routedHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.file != nil && h.file.Enabled(ctx, level) {
		return true
	}
	return h.console(level).Enabled(ctx, level)
}

func (h routedHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.file != nil && h.file.Enabled(ctx, r.Level) {
		_ = h.file.Handle(ctx, r)
	}
	if c := h.console(r.Level); c.Enabled(ctx, r.Level) {
		return c.Handle(ctx, r)
	}
	return nil
}

func (h routedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := routedHandler{low: h.low.WithAttrs(attrs), high: h.high.WithAttrs(attrs)}
	if h.file != nil {
		out.file = h.file.WithAttrs(attrs)
	}
	return out
}

func (h routedHandler) WithGroup(name string) slog.Handler {
	out := routedHandler{low: h.low.WithGroup(name), high: h.high.WithGroup(name)}
	if h.file != nil {
		out.file = h.file.WithGroup(name)
	}
	return out
}

// SetupLogger builds the slog.Logger for the process. The returned closers
// are the open log files, if any.
func SetupLogger(logLevel, logFile string) (*slog.Logger, []io.Closer, error) {
	level := ParseLevel(logLevel)

	if logFile == "" {
		h := routedHandler{
			low:  slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}),
			high: slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}),
		}
		return slog.New(h), nil, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	console := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	h := routedHandler{
		low:  console,
		high: console,
		file: slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}),
	}
	return slog.New(h), []io.Closer{f}, nil
}
