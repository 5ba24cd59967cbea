package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobagent/internal/metrics"
	"github.com/amishk599/jobagent/internal/model"
	"github.com/amishk599/jobagent/internal/notifier"
	"github.com/amishk599/jobagent/internal/pipeline"
	"github.com/amishk599/jobagent/internal/store"
)

var (
	dryRun      bool
	metricsFile string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one collect, score and notify cycle",
	Long: "One-shot run: collects from every enabled source, stores new jobs, scores them, " +
		"sends the digest and exits. With --dry-run nothing is stored or sent.",
	RunE: runRun,
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "collect and print matches without storing, scoring or notifying")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write metrics in node-exporter textfile format after the run (default: metrics.textfile from config)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, logger := mustLoad()
	logConfig(cfg, logger)

	httpClient := &http.Client{Timeout: 30 * time.Second}

	// In dry-run mode, use a NopStore and the log notifier so nothing is persisted or sent.
	var jobStore model.JobStore
	var n model.Notifier
	if dryRun {
		logger.Info("dry-run mode enabled, nothing will be stored or sent")
		jobStore = store.NewNopStore()
		n = notifier.NewLogNotifier(logger)
	} else {
		sqlStore, err := openStore(cfg)
		if err != nil {
			logger.Error("failed to open store", "error", err)
			os.Exit(1)
		}
		defer sqlStore.Close()
		jobStore = sqlStore
		n = setupNotifier(cfg, httpClient, logger)
	}

	sources := buildSources(cfg, logger)
	defer sources.Close()

	collector := metrics.NewCollector()
	p := buildPipeline(cfg, sources.collectors, jobStore, setupScorer(cfg, logger), n, logger,
		pipeline.WithRecorder(collector))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, runErr := p.Run(ctx)
	printReport(report)

	path := metricsFile
	if path == "" {
		path = cfg.Metrics.Textfile
	}
	if path != "" {
		if err := collector.WriteToTextfile(path); err != nil {
			logger.Error("failed to write metrics textfile", "path", path, "error", err)
		}
	}

	if runErr != nil {
		if pipeline.IsCancelled(runErr) {
			logger.Info("run interrupted")
			return nil
		}
		return runErr
	}
	return nil
}

func printReport(r pipeline.Report) {
	fmt.Printf("\nRun %s (%s)\n", r.RunID, r.Duration.Round(time.Millisecond))
	for _, s := range r.Sources {
		status := "ok"
		if s.Err != nil {
			status = "FAILED: " + s.Err.Error()
		}
		fmt.Printf("  %-12s %4d postings  %-8s %s\n", s.Name, len(s.Postings), s.Duration.Round(time.Millisecond), status)
	}
	fmt.Printf("  collected %d, filtered %d, unique %d, new %d\n", r.Collected, r.Filtered, r.Unique, r.Inserted)
	fmt.Printf("  scored %d (%d fallbacks), unscored %d, selected %d, notified %d\n", r.Scored, r.Fallbacks, r.Unscored, r.Selected, r.Notified)
	if r.NotifyErr != nil {
		fmt.Printf("  digest not sent: %v\n", r.NotifyErr)
	}
}
