// Package utils holds small context-aware timing helpers.
package utils

import (
	"context"
	"time"
)

var sleep = time.Sleep

// WaitFor sleeps for d or until ctx is done.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	// bound before the goroutine starts so a stubbed sleep can be swapped safely
	s := sleep
	done := make(chan struct{})
	go func() {
		defer close(done)
		s(d)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Poll calls fn every interval until it reports done or ctx is done. fn runs once immediately.
func Poll(ctx context.Context, interval time.Duration, fn func() bool) error {
	if fn() {
		return nil
	}

	for {
		if err := WaitFor(ctx, interval); err != nil {
			return err
		}
		if fn() {
			return nil
		}
	}
}
