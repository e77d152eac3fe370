package di

import "fmt"

// MustResolve resolves a component with type safety and panics on error.
//
//	args := di.MustResolve[[]string](c, di.CommandLineArgumentsKey)
func MustResolve[T any](c Container, key string) T {
	result, err := Resolve[T](c, key)
	if err != nil {
		panic(err.Error())
	}
	return result
}

// Resolve resolves a component with type safety. The underlying error stays
// reachable through errors.As.
//
//	store, err := di.Resolve[*Store](c, "store")
//	if err != nil {
//	    return fmt.Errorf("resolving store: %w", err)
//	}
func Resolve[T any](c Container, key string) (T, error) {
	var zero T
	instance, err := c.Resolve(key)
	if err != nil {
		return zero, fmt.Errorf("di: failed to resolve %s: %w", key, err)
	}
	result, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("di: component %s is %T, expected %T", key, instance, zero)
	}
	return result, nil
}

// TryResolve resolves an optional component. It reports false when the key
// is unknown, resolution fails or the type does not match.
//
//	if m, ok := di.TryResolve[*observability.Metrics](c, di.Keys.Metrics); ok {
//	    m.RecordRun(ctx, observability.OutcomeSuccess, d)
//	}
func TryResolve[T any](c Container, key string) (T, bool) {
	result, err := Resolve[T](c, key)
	return result, err == nil
}

