package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/crimemap/frontend"
	"github.com/secmon-lab/crimemap/pkg/cli/config"
	controller "github.com/secmon-lab/crimemap/pkg/controller/http"
	"github.com/secmon-lab/crimemap/pkg/datastore"
	"github.com/secmon-lab/crimemap/pkg/repository"
	"github.com/secmon-lab/crimemap/pkg/usecase"
	"github.com/secmon-lab/crimemap/pkg/utils/async"
	"github.com/urfave/cli/v3"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
)

func cmdServe() *cli.Command {
	var (
		serverCfg  config.Server
		gateCfg    config.Gate
		sessionCfg config.Session
		paletteCfg config.Palette
	)

	flags := joinFlags(
		serverCfg.Flags(),
		gateCfg.Flags(),
		sessionCfg.Flags(),
		paletteCfg.Flags(),
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Start the dashboard HTTP server",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			logger.Info("Starting crimemap server",
				slog.Any("server", serverCfg),
				slog.Any("gate", gateCfg),
				slog.Any("session", sessionCfg),
				slog.Any("palette", paletteCfg),
			)

			if err := validateAll(&gateCfg, &sessionCfg); err != nil {
				return err
			}
			logger.Warn("All operators share a single gate secret. Rotate it by restarting with a new value")

			palette, err := paletteCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure palette")
			}

			tokens, err := sessionCfg.Configure(ctx)
			if err != nil {
				return err
			}

			repo := repository.NewMemory()
			defer safeClose(ctx, repo)

			loader := usecase.NewLoader()
			gate := usecase.NewGate(gateCfg.Secret, datastore.NewOpener(), repo,
				usecase.WithSessionTTL(sessionCfg.TTL),
				usecase.WithLoader(loader),
			)
			defer safeClose(ctx, gate)

			sweepCtx, stopSweep := context.WithCancel(ctx)
			defer stopSweep()
			async.Every(sweepCtx, sweepInterval, func(ctx context.Context) error {
				gate.Sweep(ctx)
				return nil
			})

			dashboard := usecase.NewDashboard(loader, usecase.NewExporter(),
				usecase.WithPalette(palette),
			)

			opts := []controller.Option{
				controller.WithDefaultStore(serverCfg.DefaultStore),
			}
			if dist, err := frontend.Dist(); err != nil {
				logger.Warn("Embedded frontend is not available", slog.Any("error", err))
			} else {
				opts = append(opts, controller.WithFrontend(dist))
			}

			server, err := controller.NewServer(ctx, serverCfg.Addr, gate, dashboard, tokens, opts...)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			case err := <-errCh:
				return goerr.Wrap(err, "HTTP server failed", goerr.V("addr", serverCfg.Addr))
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
