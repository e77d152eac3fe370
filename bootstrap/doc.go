// Package bootstrap is the entrypoint of a mainkit program.
//
// Run acquires a DI container, makes the process arguments available to it,
// checks that the container is live, runs the ready callbacks and closes the
// container on every exit path:
//
//	func main() {
//	    init := di.NewInitializer().
//	        RegisterEager("greeter", newGreeter)
//
//	    err := bootstrap.Run(context.Background(), os.Args[1:],
//	        bootstrap.WithInitializer(init),
//	        bootstrap.WithReadyCallback(func(ctx context.Context, c di.Container) error {
//	            return di.MustResolve[*Greeter](c, "greeter").Greet(ctx)
//	        }),
//	    )
//	    os.Exit(errors.ExitCodeFor(err))
//	}
//
// The arguments are registered as the []string singleton
// di.CommandLineArgumentsKey, so any constructor taking a di.Container can
// read them. CommandLineArguments returns the arguments of the most recent
// Run for code outside the container.
//
// Failures are *errors.AppError values with code INITIALIZATION_FAILED,
// WIRING_FAILED or CALLBACK_FAILED; the underlying cause stays reachable
// through errors.Is and errors.As.
package bootstrap
