package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobagent/internal/metrics"
	"github.com/amishk599/jobagent/internal/pipeline"
	"github.com/amishk599/jobagent/internal/scheduler"
)

var metricsAddr string

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the scheduled daemon",
	Long:  "Start the cron-driven daemon; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	startCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (default: metrics.addr from config)")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, logger := mustLoad()
	logConfig(cfg, logger)

	sqlStore, err := openStore(cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer sqlStore.Close()

	httpClient := &http.Client{Timeout: 30 * time.Second}
	n := setupNotifier(cfg, httpClient, logger)
	scorer := setupScorer(cfg, logger)
	collector := metrics.NewCollector()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := metricsAddr
	if addr == "" {
		addr = cfg.Metrics.Addr
	}
	if addr != "" {
		srv := serveMetrics(addr, collector, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		logger.Info("serving metrics", "addr", addr, "path", "/metrics")
	}

	run := func(ctx context.Context) error {
		// Sources are rebuilt per run so a crashed browser never outlives its run.
		sources := buildSources(cfg, logger)
		defer sources.Close()

		p := buildPipeline(cfg, sources.collectors, sqlStore, scorer, n, logger, pipeline.WithRecorder(collector))
		_, err := p.Run(ctx)
		if pipeline.IsCancelled(err) {
			return nil
		}
		return err
	}

	sched, err := scheduler.NewScheduler(cfg.Schedule.Cron, cfg.Schedule.RunOnStart, run, logger)
	if err != nil {
		logger.Error("invalid schedule", "error", err)
		os.Exit(1)
	}
	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}

	logger.Info("goodbye")
	return nil
}

func serveMetrics(addr string, collector *metrics.Collector, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	return srv
}
