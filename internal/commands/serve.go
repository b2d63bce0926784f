package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"spendwise/internal/backend"
	"spendwise/internal/cli"
	"spendwise/internal/config"
	apphttp "spendwise/internal/http"
	"spendwise/internal/log"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the REST server until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			logger, err := cli.SetupLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, stop := cli.SignalContext(cmd.Context())
			defer stop()

			ln, err := net.Listen("tcp", cfg.Addr())
			if err != nil {
				return fmt.Errorf("listen on %s: %w", cfg.Addr(), err)
			}
			return serve(ctx, cfg, logger, ln)
		},
	}
}

// serve runs the API on ln until ctx is done, then drains in-flight requests
// within the shutdown timeout and releases the backend.
func serve(ctx context.Context, cfg *config.Config, logger *log.Logger, ln net.Listener) (err error) {
	settings, err := backend.SettingsFrom(cfg)
	if err != nil {
		ln.Close()
		return err
	}
	ledger, err := backend.NewBuilder(logger).Build(ctx, settings)
	if err != nil {
		ln.Close()
		return fmt.Errorf("build backend: %w", err)
	}
	defer func() {
		if cerr := ledger.Close(); cerr != nil {
			logger.LogError(context.Background(), "Backend cleanup failed", cerr, log.OpShutdown, nil)
			err = errors.Join(err, cerr)
		}
	}()

	srv, err := apphttp.NewServer(ln.Addr().String(), ledger.Service, apphttp.OptionsFromConfig(cfg, logger))
	if err != nil {
		ln.Close()
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting spendwise server",
			"addr", ln.Addr().String(),
			"store", settings.Store.String(),
			"events", settings.Events.Enabled())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server", "timeout", cfg.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
