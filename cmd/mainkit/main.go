// Command mainkit starts a mainkit container with the process arguments,
// echoes them from inside the container and shuts down.
//
// Arguments are passed through verbatim; mainkit itself takes no flags.
// Configuration comes from config.yml, .env and MAINKIT_* environment
// variables; MAINKIT_CONFIG may name the config file explicitly.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/mainkit/bootstrap"
	"github.com/kbukum/mainkit/config"
	"github.com/kbukum/mainkit/di"
	"github.com/kbukum/mainkit/errors"
	"github.com/kbukum/mainkit/logger"
	"github.com/kbukum/mainkit/observability"
	"github.com/kbukum/mainkit/version"
)

const (
	serviceName     = "mainkit"
	shutdownTimeout = 5 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the root command and returns the process exit status.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	// cobra falls back to os.Args when given nil.
	if args == nil {
		args = []string{}
	}
	cmd := newRootCmd(stdout)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		writeReport(stderr, err)
	}
	return errors.ExitCodeFor(err)
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "mainkit [args...]",
		Short: "Run a mainkit container with the given arguments",
		Long: `mainkit builds a DI container, registers the command-line arguments
in it as "commandLineArguments", runs the ready callback and closes the
container before exiting.`,
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args, stdout)
		},
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, err := config.Load(serviceName)
	if err != nil {
		return err
	}

	logger.Init(cfg.Logging)
	logger.RegisterDefaults()
	log := logger.WithComponent("cli")
	info := version.Get()
	log.Info("starting mainkit "+info.Full(), info.Fields())

	provider, err := observability.Setup(ctx, cfg.Observability)
	if err != nil {
		return errors.Internal(err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.Warn("observability shutdown failed", logger.Fields(logger.FieldError, err.Error()))
		}
	}()

	prev := di.SetDefaultInitializerFactory(func() *di.Initializer {
		return di.NewInitializer(
			di.WithLogger(logger.Get("di")),
			di.WithMetrics(provider.Metrics),
			di.WithCloseTimeout(cfg.Bootstrap.CloseTimeout),
		).
			RegisterSingleton(di.Keys.Config, cfg).
			RegisterSingleton(di.Keys.Logger, log).
			RegisterSingleton(di.Keys.Metrics, provider.Metrics)
	})
	defer di.SetDefaultInitializerFactory(prev)

	opts := append(bootstrap.FromConfig(cfg, stdout),
		bootstrap.WithMetrics(provider.Metrics),
		bootstrap.WithReadyCallback(echoArguments(stdout)),
	)
	return bootstrap.Run(ctx, args, opts...)
}

// echoArguments prints the arguments registered in the container, one line
// per run.
func echoArguments(w io.Writer) bootstrap.ReadyFunc {
	return func(ctx context.Context, c di.Container) error {
		if h := c.Health(ctx); !h.Healthy() {
			return fmt.Errorf("container is %s", h.Status)
		}
		args, err := di.Resolve[[]string](c, di.CommandLineArgumentsKey)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, strings.Join(args, " "))
		return err
	}
}

func writeReport(w io.Writer, err error) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(errors.Wrap(err).ToReport()); encErr != nil {
		fmt.Fprintf(w, "mainkit: %v\n", err)
	}
}
