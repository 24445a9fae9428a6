package server

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"github.com/msgguard/msgguard/internal/metrics"
)

// RunWithRecovery supervises a background loop such as rate limiter pruning
// or the TLS listener. A panic or premature return restarts fn after an
// exponential backoff capped at maxBackoff; each restart is counted in
// msgguard_goroutine_restarts_total. It returns once ctx is cancelled.
func RunWithRecovery(ctx context.Context, logger *slog.Logger, name string, fn func(ctx context.Context)) {
	runSupervised(ctx, logger, name, fn, time.Second)
}

const maxBackoff = 5 * time.Minute

func runSupervised(ctx context.Context, logger *slog.Logger, name string, fn func(ctx context.Context), base time.Duration) {
	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			logger.Info("background loop stopped", "name", name)
			return
		}

		if p := runOnce(ctx, fn); p != nil {
			logger.Error("background loop panicked",
				"name", name, "panic", p.value, "stack", p.stack, "attempt", attempt)
		}
		if ctx.Err() != nil {
			logger.Info("background loop stopped", "name", name)
			return
		}

		metrics.Restarts.WithLabelValues(name).Inc()
		backoff := backoffFor(base, attempt)
		logger.Warn("background loop restarting", "name", name, "attempt", attempt, "backoff", backoff)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("background loop stopped", "name", name)
			return
		case <-timer.C:
		}
	}
}

type panicInfo struct {
	value any
	stack string
}

func runOnce(ctx context.Context, fn func(ctx context.Context)) (p *panicInfo) {
	defer func() {
		if r := recover(); r != nil {
			p = &panicInfo{value: r, stack: string(debug.Stack())}
		}
	}()
	fn(ctx)
	return nil
}

// backoffFor doubles base per attempt: base, 2*base, 4*base, ... up to maxBackoff.
func backoffFor(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

// SetupLogger creates a structured slog.Logger with JSON output to stdout.
func SetupLogger(level string) *slog.Logger {
	return NewLogger(os.Stdout, level)
}

// NewLogger creates a JSON slog.Logger writing to w at the named level.
func NewLogger(w io.Writer, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler)
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
