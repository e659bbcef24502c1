package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"expenses/internal/cli"
	apphttp "expenses/internal/http"
	applog "expenses/internal/log"
	"expenses/internal/metrics"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
}

func runServe(cmd *cobra.Command) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	a, err := openApp(cmd, applog.ComponentApp, m)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := apphttp.NewServer(cli.ListenAddr(a.cfg.Port), apphttp.Deps{
		Service:            a.backend.Service,
		Logger:             a.logger,
		Metrics:            m,
		CORSAllowedOrigins: a.cfg.CORSAllowedOrigins,
		RateLimitPerMinute: a.cfg.RateLimitPerMinute,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("Starting expenses server",
			applog.FieldOperation, applog.OpStartup,
			"port", a.cfg.Port,
			applog.FieldBackend, a.cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", srv.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Shutdown signal received", applog.FieldOperation, applog.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("Server stopped gracefully")
	return nil
}
