package utils

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/outreach-metrics-service/pkg/logger"
)

// RecoverFn handles a recovered panic.
type RecoverFn func(r interface{}, stack []byte)

// logPanic writes a recovered panic to the context logger, the global logger or stderr.
func logPanic(ctx context.Context, operation string, r interface{}, stack []byte) {
	if logger.Log == nil {
		fmt.Fprintf(os.Stderr, "[PANIC] Recovered from panic during %s: %v\n%s\n", operation, r, stack)
		return
	}
	logger.FromContext(ctx).Error("[panic] Recovered from panic",
		zap.String("operation", operation),
		zap.Any("panic", r),
		zap.ByteString("stack", stack),
	)
}

// SafeGo runs fn in a goroutine. A panic is passed to onPanic, or logged when onPanic is nil.
func SafeGo(operation string, fn func(), onPanic RecoverFn) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				if onPanic != nil {
					onPanic(r, stack)
					return
				}
				logPanic(context.Background(), operation, r, stack)
			}
		}()
		fn()
	}()
}

// RecoverWithLog is deferred by long running loops to log and swallow a panic.
func RecoverWithLog(ctx context.Context, operation string) {
	if r := recover(); r != nil {
		logPanic(ctx, operation, r, debug.Stack())
	}
}

// WrapWithContextRecovery turns a panic inside fn into an error.
func WrapWithContextRecovery(operation string, fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logPanic(ctx, operation, r, debug.Stack())
				err = fmt.Errorf("panic recovered during %s: %v", operation, r)
			}
		}()
		return fn(ctx)
	}
}
