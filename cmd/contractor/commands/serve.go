package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	command "github.com/goliatone/go-command"
	"github.com/goliatone/go-command/cron"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-contractor/cmd/contractor/internal/bootstrap"
	"github.com/goliatone/go-contractor/internal/di"
	"github.com/goliatone/go-contractor/internal/logging"
	"github.com/goliatone/go-contractor/pkg/interfaces"
)

type serveOptions struct {
	addr       string
	blog       bool
	contentDir string
}

func serveCmd(global *globalOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bootOpts := global.bootstrap()
			bootOpts.EnableBlog = opts.blog
			bootOpts.ContentDir = opts.contentDir

			var logger interfaces.Logger = logging.NoOp()
			scheduler := cron.NewScheduler(cron.WithErrorHandler(func(err error) {
				logger.Warn("cli.serve.cron_failed", "error", err)
			}))
			bootOpts.CronRegistrar = cronRegistrar(scheduler)

			cfg, err := bootstrap.LoadConfig(bootOpts)
			if err != nil {
				return err
			}
			module, err := moduleBuilder(bootOpts)
			if err != nil {
				return err
			}
			logger = module.Logger

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			engine, err := module.Module.Handler()
			if err != nil {
				_ = module.Module.Close(context.Background())
				return err
			}

			addr := cfg.HTTP.Addr
			if opts.addr != "" {
				addr = opts.addr
			}
			server := &http.Server{
				Addr:              addr,
				Handler:           engine,
				ReadHeaderTimeout: 10 * time.Second,
			}

			if err := scheduler.Start(ctx); err != nil {
				_ = module.Module.Close(context.Background())
				return fmt.Errorf("serve: start cron: %w", err)
			}
			defer func() { _ = scheduler.Stop(context.Background()) }()

			serveErr := make(chan error, 1)
			go func() {
				module.Logger.Info("cli.serve.listening", "addr", addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			select {
			case err := <-serveErr:
				_ = module.Module.Close(context.Background())
				if err != nil {
					return fmt.Errorf("serve: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()

			module.Logger.Info("cli.serve.shutdown", "timeout", cfg.HTTP.ShutdownTimeout)
			shutdownErr := server.Shutdown(shutdownCtx)
			return errors.Join(shutdownErr, module.Module.Close(shutdownCtx))
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (overrides http.addr)")
	cmd.Flags().BoolVar(&opts.blog, "blog", false, "enable the blog routes")
	cmd.Flags().StringVar(&opts.contentDir, "content-dir", "", "blog content directory")
	return cmd
}

// cronRegistrar schedules the module's recurring commands (overdue sweep,
// activity pruning and job processing) on scheduler.
func cronRegistrar(scheduler *cron.Scheduler) di.CronRegistrar {
	return func(cfg command.HandlerConfig, handler any) error {
		_, err := scheduler.AddHandler(cfg, handler)
		return err
	}
}
