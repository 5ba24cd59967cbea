package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobagent/internal/ai"
	"github.com/amishk599/jobagent/internal/model"
	"github.com/amishk599/jobagent/internal/notifier"
	"github.com/amishk599/jobagent/internal/pipeline"
	"github.com/amishk599/jobagent/internal/review"
	"github.com/amishk599/jobagent/internal/store"
)

var checkLimit int

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Collect once, print unique jobs, exit",
	Long:  "One-shot collection: fetches every enabled source, canonicalizes and dedups, prints the result. Does not write to the store.",
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().IntVar(&checkLimit, "limit", 50, "max jobs to print (0 for all)")
	rootCmd.AddCommand(checkCmd)
}

type gathered struct {
	jobs    []model.Job
	results []pipeline.SourceResult
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, logger := mustLoad()
	logger.Info("check mode: nothing will be stored")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gather := func(ctx context.Context, logger *slog.Logger) (gathered, error) {
		sources := buildSources(cfg, logger)
		defer sources.Close()
		p := buildPipeline(cfg, sources.collectors, store.NewNopStore(), ai.NewNopScorer(), notifier.NewLogNotifier(logger), logger)
		jobs, results := p.Gather(ctx)
		return gathered{jobs: jobs, results: results}, ctx.Err()
	}

	var out gathered
	var err error
	if debug {
		out, err = gather(ctx, logger)
	} else {
		// Log output would corrupt the spinner; source failures show in the summary.
		silent := slog.New(slog.NewTextHandler(io.Discard, nil))
		label := fmt.Sprintf("Collecting from %d sources", len(cfg.Sources.EnabledSources()))
		out, err = review.RunLoader(ctx, label, func(ctx context.Context) (gathered, error) {
			return gather(ctx, silent)
		})
	}
	if err != nil {
		logger.Error("check aborted", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	for _, r := range out.results {
		status := "ok"
		if r.Err != nil {
			status = "FAILED: " + r.Err.Error()
		}
		fmt.Printf("%-12s %4d postings  %-8s %s\n", r.Name, len(r.Postings), r.Duration.Round(time.Millisecond), status)
	}
	fmt.Printf("\n%d unique jobs\n\n", len(out.jobs))

	for i, j := range out.jobs {
		if checkLimit > 0 && i >= checkLimit {
			fmt.Printf("... and %d more\n", len(out.jobs)-checkLimit)
			break
		}
		fmt.Printf("%s  %-11s %s\n", j.ContentID, j.Source, j.Title)
		fmt.Printf("%16s  %-11s %s · %s\n", "", "", j.Company, j.Location)
	}
	return nil
}
