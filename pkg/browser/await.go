package browser

import (
	"context"
	"fmt"
)

// Await runs fn in its own goroutine and waits for it or for ctx, whichever
// finishes first. When ctx wins, fn keeps running until Playwright gives up
// on it and its result is dropped. A panic in fn is returned as an error.
func Await[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{zero, fmt.Errorf("playwright call panicked: %v", r)}
			}
		}()
		v, err := fn()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Call is Await for calls that only return an error.
func Call(ctx context.Context, fn func() error) error {
	_, err := Await(ctx, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
