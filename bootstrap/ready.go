package bootstrap

import (
	"context"
	"fmt"

	"github.com/kbukum/mainkit/di"
)

// ReadyFunc is called with the live container before Run closes it.
type ReadyFunc func(ctx context.Context, c di.Container) error

// runReady calls the callbacks in order and returns the first failure. A
// panicking callback is reported as an error.
func runReady(ctx context.Context, callbacks []ReadyFunc, c di.Container) error {
	for i, fn := range callbacks {
		if err := callReady(ctx, fn, c); err != nil {
			if len(callbacks) > 1 {
				return fmt.Errorf("ready callback %d: %w", i+1, err)
			}
			return err
		}
	}
	return nil
}

func callReady(ctx context.Context, fn ReadyFunc, c di.Container) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ready callback panicked: %v", r)
		}
	}()
	return fn(ctx, c)
}
