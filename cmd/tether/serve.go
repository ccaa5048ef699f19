package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/tether"
	httpAdapter "github.com/aretw0/tether/internal/adapters/http"
	"github.com/aretw0/tether/internal/cli"
	"github.com/aretw0/tether/pkg/domain"
	"github.com/aretw0/tether/pkg/midi"
	"github.com/aretw0/tether/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the reference host behind an HTTP API",
	Long: `Prepares the reference host, resumes its last snapshot, opens a UI context
and exposes the host over HTTP: parameters, MIDI, UI commands, the table, the
runtime nodes, server-sent events and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.Metrics.Addr, _ = cmd.Flags().GetString("addr")
		}

		reg := prometheus.NewRegistry()
		metrics := observability.NewMetrics(reg)

		h, cleanup, err := cli.NewHost(cfg, logger, metrics)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		resumed, err := h.Resume(ctx)
		if err != nil {
			logger.Warn("resume failed, starting fresh", "error", err)
		}
		if err := h.Prepare(ctx, cfg.Host.SampleRate, cfg.Host.BlockSize); err != nil {
			return fmt.Errorf("prepare failed: %w", err)
		}

		streams := httpAdapter.NewStreamManager()
		ui, err := h.OpenUI(tether.WithConsoleListener(func(text string) {
			streams.Broadcast("console", text)
		}))
		if err != nil {
			return err
		}
		ui.HostState.Subscribe(func(s domain.HostState) {
			if data, err := json.Marshal(s); err == nil {
				streams.Broadcast("state", string(data))
			}
		})
		ui.IncomingMIDI.Subscribe(func(msgs []midi.Message) {
			hex := make([]string, len(msgs))
			for i, m := range msgs {
				hex[i] = m.String()
			}
			if data, err := json.Marshal(hex); err == nil {
				streams.Broadcast("midi", string(data))
			}
		})

		srv := &http.Server{
			Addr: cfg.Metrics.Addr,
			Handler: httpAdapter.NewHandler(h,
				httpAdapter.WithLogger(logger),
				httpAdapter.WithMetrics(metrics.Handler()),
				httpAdapter.WithStreams(streams),
			),
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("tether server listening",
				"addr", srv.Addr,
				"instance", h.ID(),
				"resumed", resumed,
				"dev", cfg.DevMode,
			)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-ctx.Done():
			logger.Info("shutting down", "signal", ctx.Signal())
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
			if err := srv.Close(); err != nil {
				logger.Error("failed to close server", "error", err)
			}
		}
		if err := h.Persist(shutdownCtx); err != nil {
			logger.Warn("failed to persist snapshot", "error", err)
		}
		logger.Info("tether server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (overrides metrics.addr from the config)")
}
