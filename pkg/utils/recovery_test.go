package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"gitlab.com/timkado/api/outreach-metrics-service/pkg/logger"
)

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	original := logger.Log
	logger.Log = zap.New(core)
	t.Cleanup(func() { logger.Log = original })
	return logs
}

func TestSafeGo_RunsFunction(t *testing.T) {
	observeLogs(t)
	done := make(chan struct{})

	SafeGo("test", func() { close(done) }, nil)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("function did not run")
	}
}

func TestSafeGo_PassesPanicToHandler(t *testing.T) {
	observeLogs(t)
	recovered := make(chan interface{}, 1)

	SafeGo("test", func() { panic("boom") }, func(r interface{}, stack []byte) {
		recovered <- r
	})

	select {
	case r := <-recovered:
		assert.Equal(t, "boom", r)
	case <-time.After(time.Second):
		t.Fatal("panic was not recovered")
	}
}

func TestSafeGo_LogsPanicWithoutHandler(t *testing.T) {
	logs := observeLogs(t)

	SafeGo("http_server", func() { panic("boom") }, nil)

	assert.Eventually(t, func() bool { return logs.FilterMessage("[panic] Recovered from panic").Len() == 1 },
		time.Second, 10*time.Millisecond)
	entry := logs.All()[0]
	assert.Equal(t, "http_server", entry.ContextMap()["operation"])
}

func TestRecoverWithLog(t *testing.T) {
	logs := observeLogs(t)

	func() {
		defer RecoverWithLog(context.Background(), "loop")
		panic("boom")
	}()

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "loop", logs.All()[0].ContextMap()["operation"])
}

func TestWrapWithContextRecovery(t *testing.T) {
	observeLogs(t)
	ctx := context.Background()

	ok := WrapWithContextRecovery("ok", func(ctx context.Context) error { return nil })
	assert.NoError(t, ok(ctx))

	failing := WrapWithContextRecovery("failing", func(ctx context.Context) error { return errors.New("plain error") })
	assert.EqualError(t, failing(ctx), "plain error")

	panicking := WrapWithContextRecovery("ingest", func(ctx context.Context) error { panic("boom") })
	assert.EqualError(t, panicking(ctx), "panic recovered during ingest: boom")
}
