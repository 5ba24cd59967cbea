package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobagent/internal/review"
)

var reviewLimit int

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Browse analyzed jobs and give feedback (TUI)",
	Long:  "Shows the source picker TUI, then the split-pane review of analyzed jobs. Press l or d to like or dislike.",
	RunE:  runReview,
}

func init() {
	reviewCmd.Flags().IntVar(&reviewLimit, "limit", 200, "max analyzed jobs to load (newest first)")
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	cfg, logger := mustLoad()

	sqlStore, err := openStore(cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer sqlStore.Close()

	jobs, err := sqlStore.ListAnalyzed(context.Background(), reviewLimit)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Println("No analyzed jobs yet. Run `jobagent run` first.")
		return nil
	}

	options := review.SourceOptions(jobs)
	for {
		choice, err := review.RunSourcePicker(options)
		if err != nil {
			return fmt.Errorf("picker: %w", err)
		}
		if choice < 0 {
			return nil
		}

		wantQuit, err := review.RunReviewTUI(review.FilterBySource(jobs, options[choice].Name), sqlStore)
		if err != nil {
			return fmt.Errorf("review: %w", err)
		}
		if wantQuit {
			return nil
		}
		// else: loop → back to picker
	}
}
