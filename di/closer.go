package di

import (
	"context"
	"fmt"
)

// closeInstance calls whichever Close method v has. Instances without one
// are skipped.
func closeInstance(ctx context.Context, v interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("close panicked: %v", r)
		}
	}()

	switch closer := v.(type) {
	case interface{ Close(context.Context) error }:
		return closer.Close(ctx)
	case interface{ Close() error }:
		return closer.Close()
	case interface{ Close() }:
		closer.Close()
	}
	return nil
}
