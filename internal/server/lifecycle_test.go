package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msgguard/msgguard/internal/metrics"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn")

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "v", entry["k"])
}

func TestRunWithRecovery_StopsOnCancel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "error")
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int32
	done := make(chan struct{})
	go func() {
		RunWithRecovery(ctx, logger, "test", func(ctx context.Context) {
			calls.Add(1)
			<-ctx.Done()
		})
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunWithRecovery did not return after cancel")
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestRunWithRecovery_RecoversPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "error")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		RunWithRecovery(ctx, logger, "panicky", func(ctx context.Context) {
			defer cancel()
			panic("boom")
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunWithRecovery did not return")
	}
	assert.Contains(t, buf.String(), "background loop panicked")
}

func TestRunSupervised_RestartsAreCounted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "error")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	restarts := metrics.Restarts.WithLabelValues("flaky-loop")
	before := testutil.ToFloat64(restarts)

	var calls atomic.Int32
	done := make(chan struct{})
	go func() {
		runSupervised(ctx, logger, "flaky-loop", func(ctx context.Context) {
			if calls.Add(1) <= 2 {
				panic("transient")
			}
			<-ctx.Done()
		}, time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return calls.Load() == 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, before+2, testutil.ToFloat64(restarts))
}

func TestBackoffFor(t *testing.T) {
	assert.Equal(t, time.Second, backoffFor(time.Second, 1))
	assert.Equal(t, 2*time.Second, backoffFor(time.Second, 2))
	assert.Equal(t, 8*time.Second, backoffFor(time.Second, 4))
	assert.Equal(t, maxBackoff, backoffFor(time.Second, 20))
	assert.Equal(t, maxBackoff, backoffFor(time.Second, 1000))
}
