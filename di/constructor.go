package di

import (
	"context"
	"fmt"
	"reflect"
)

var (
	contextType   = reflect.TypeOf((*context.Context)(nil)).Elem()
	containerType = reflect.TypeOf((*Container)(nil)).Elem()
	errorType     = reflect.TypeOf((*error)(nil)).Elem()
)

type paramKind int

const (
	paramContext paramKind = iota
	paramContainer
)

// constructor is a validated constructor function.
type constructor struct {
	fn     reflect.Value
	params []paramKind
}

func newConstructor(fn interface{}) (*constructor, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("constructor must be a function, got %T", fn)
	}
	t := v.Type()
	if t.IsVariadic() {
		return nil, fmt.Errorf("constructor must not be variadic: %s", t)
	}

	params := make([]paramKind, 0, t.NumIn())
	for i := 0; i < t.NumIn(); i++ {
		switch in := t.In(i); in {
		case contextType:
			params = append(params, paramContext)
		case containerType:
			params = append(params, paramContainer)
		default:
			return nil, fmt.Errorf("constructor parameter %d has unsupported type %s", i, in)
		}
	}

	switch t.NumOut() {
	case 1:
	case 2:
		if t.Out(1) != errorType {
			return nil, fmt.Errorf("constructor second result must be error, got %s", t.Out(1))
		}
	default:
		return nil, fmt.Errorf("constructor must return either (instance) or (instance, error): %s", t)
	}

	return &constructor{fn: v, params: params}, nil
}

// call invokes the constructor. A panic is returned as an error.
func (ctor *constructor) call(ctx context.Context, c Container) (instance interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			instance = nil
			err = fmt.Errorf("constructor panicked: %v", r)
		}
	}()

	args := make([]reflect.Value, len(ctor.params))
	for i, p := range ctor.params {
		switch p {
		case paramContext:
			args[i] = reflect.ValueOf(&ctx).Elem()
		case paramContainer:
			args[i] = reflect.ValueOf(&c).Elem()
		}
	}

	results := ctor.fn.Call(args)
	if len(results) == 2 && !results[1].IsNil() {
		return nil, results[1].Interface().(error)
	}
	return results[0].Interface(), nil
}
