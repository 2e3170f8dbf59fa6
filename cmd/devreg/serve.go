package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Refresh known devices and serve HTTP API until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		return a.serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func (a *app) serve(ctx context.Context) error {
	if err := a.reg.Initialize(ctx); err != nil {
		return fmt.Errorf("initializing registry: %w", err)
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return a.reg.Start(egCtx)
	})

	if a.cfg.Metrics.Enabled {
		promReg := prometheus.NewRegistry()
		promReg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		promReg.MustRegister(a.reg.Metrics()...)

		eg.Go(func() error {
			return a.serveMetrics(egCtx, promReg)
		})
	}

	if err := eg.Wait(); err != nil {
		return fmt.Errorf("serving: %w", err)
	}

	a.logger.Info().Msg("stopped")
	return nil
}

func (a *app) serveMetrics(ctx context.Context, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	serv := &http.Server{
		Addr:              a.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second, //nolint: mnd
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info().Str("addr", serv.Addr).Msg("serving metrics")
		if err := serv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		sdCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		if err := serv.Shutdown(sdCtx); err != nil {
			return fmt.Errorf("shutting down metrics server: %w", err)
		}
		return nil

	case err := <-errCh:
		return fmt.Errorf("running metrics server: %w", err)
	}
}
