package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/shandysiswandi/apex/internal/pkg/stacktrace"
)

// dispatch runs handler, turning a panic into an error, and applies auto-ack.
func dispatch(ctx context.Context, driver string, handler Handler, msg Message, autoAck bool) error {
	herr := callWithRecover(ctx, driver, func() error { return handler(ctx, msg) })
	if !autoAck {
		return herr
	}

	if herr != nil {
		slog.WarnContext(ctx, "message handler failed", "driver", driver, "error", herr)
		return msg.Nack(ctx)
	}

	return msg.Ack(ctx)
}

func callWithRecover(ctx context.Context, driver string, fn func() error) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			stack := debug.Stack()
			if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
				slog.ErrorContext(ctx, "panic in message handler", "driver", driver, "panic", rvr, "stack", paths)
			} else {
				slog.ErrorContext(ctx, "panic in message handler", "driver", driver, "panic", rvr, "stack", string(stack))
			}
			err = fmt.Errorf("messaging: panic in %s handler: %v", driver, rvr)
		}
	}()

	return fn()
}
