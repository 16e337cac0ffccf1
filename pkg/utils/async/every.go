package async

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/m-mizutani/ctxlog"
)

// Every runs fn every interval in a background goroutine until ctx is done.
// A failing or panicking run is logged and the next tick still fires.
func Every(ctx context.Context, interval time.Duration, fn func(ctx context.Context) error) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run(ctx, fn)
			}
		}
	}()
}

func run(ctx context.Context, fn func(ctx context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			ctxlog.From(ctx).Error("Panic in periodic job",
				"recover", r,
				"stack", string(debug.Stack()),
			)
		}
	}()

	if err := fn(ctx); err != nil {
		ctxlog.From(ctx).Error("Error in periodic job", "error", err)
	}
}
