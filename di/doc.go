// Package di provides the dependency injection container mainkit boots.
//
// Components are declared on an Initializer and materialized by Initialize,
// which returns an open Container. Constructors are plain functions; the
// container passes a context.Context and/or itself when the signature asks
// for them:
//
//	func() T
//	func() (T, error)
//	func(context.Context) (T, error)
//	func(di.Container) (T, error)
//	func(context.Context, di.Container) (T, error)
//
// # Registration
//
//	init := di.NewDefaultInitializer().
//	    RegisterSingleton(di.Keys.Config, cfg).
//	    RegisterEager("store", newStore).
//	    RegisterLazy("client", newClient, di.WithRetry(retryCfg)).
//	    OnInitialized(func(ctx context.Context, c di.Container) error {
//	        args := di.MustResolve[[]string](c, di.CommandLineArgumentsKey)
//	        return nil
//	    })
//
// # Lifecycle
//
//	c, err := init.Initialize(ctx)
//	defer c.Close()
//
// Close stops lifecycle components in reverse registration order, then
// closes every built instance with a Close method in reverse construction
// order. It runs once; later calls are no-ops.
package di
