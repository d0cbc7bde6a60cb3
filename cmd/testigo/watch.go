package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/testigo/testigo/internal/clock"
	"github.com/testigo/testigo/internal/metrics"
	"github.com/testigo/testigo/internal/recorder"
	"github.com/testigo/testigo/internal/storage"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Serve prometheus metrics about the recorder",
	Long: `Run a long-lived monitor that serves prometheus metrics and refreshes
active-session gauges from storage. The session timer itself never depends
on this loop; elapsed time is always computed on demand from stored
reference points.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if !a.cfg.Metrics.Enabled {
		return fmt.Errorf("metrics are disabled in the configuration")
	}

	registry := prometheus.NewRegistry()
	metrics.Register(registry)

	addr := fmt.Sprintf("%s:%d", a.cfg.Metrics.BindAddress, a.cfg.Metrics.Port)
	server := metrics.NewServer(addr, registry, a.logger)
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	interval := parseDuration(a.cfg.Metrics.RefreshInterval, 5*time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	a.logger.Info().
		Str("addr", addr).
		Dur("refresh_interval", interval).
		Msg("Watching recorder storage")

	a.refreshGauges(cmd.Context())
	for {
		select {
		case <-ticker.C:
			a.refreshGauges(cmd.Context())
		case <-sigChan:
			a.logger.Info().Msg("Shutdown signal received, stopping watch")
			if err := server.Stop(); err != nil {
				a.logger.Error().Err(err).Msg("Error stopping metrics server")
			}
			return nil
		}
	}
}

// refreshGauges recomputes the active-session gauges from storage.
func (a *app) refreshGauges(ctx context.Context) {
	sessions, err := a.store.Sessions().List(ctx, 0, "")
	if err != nil {
		a.logger.Error().Err(err).Msg("Failed to list sessions")
		return
	}

	var newest *storage.Session
	openCount := 0
	for i := range sessions {
		if sessions[i].Open() {
			openCount++
			if newest == nil {
				newest = &sessions[i]
			}
		}
	}
	metrics.ActiveSessions.Set(float64(openCount))

	if newest == nil {
		metrics.ActiveSessionElapsed.Set(0)
		metrics.ActiveSessionEvidences.Set(0)
		return
	}

	// Reattach a throwaway manager so the gauge uses the same timer
	// arithmetic as the CLI.
	probe := recorder.NewManager(a.store, clock.RealClock{}, zerolog.Nop())
	if _, err := probe.Reattach(ctx, newest.ID); err != nil {
		a.logger.Error().Err(err).Str("session_id", newest.ID).Msg("Failed to reattach for gauge refresh")
		return
	}
	metrics.ActiveSessionElapsed.Set(float64(probe.ElapsedSeconds()))

	evidences, err := probe.ListEvidences(ctx)
	if err != nil {
		a.logger.Error().Err(err).Str("session_id", newest.ID).Msg("Failed to list evidences")
		return
	}
	metrics.ActiveSessionEvidences.Set(float64(len(evidences)))
}
