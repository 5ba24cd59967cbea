package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobagent/internal/model"
)

var feedbackComment string

var feedbackCmd = &cobra.Command{
	Use:   "feedback <content-id> like|dislike",
	Short: "Record feedback on a job",
	Long:  "Records a like or dislike for a stored job. Recent feedback is included in future scoring prompts.",
	Args:  cobra.ExactArgs(2),
	RunE:  runFeedback,
}

func init() {
	feedbackCmd.Flags().StringVar(&feedbackComment, "comment", "", "optional comment")
	rootCmd.AddCommand(feedbackCmd)
}

func runFeedback(cmd *cobra.Command, args []string) error {
	kind, err := model.ParseFeedbackKind(args[1])
	if err != nil {
		return err
	}

	cfg, logger := mustLoad()
	sqlStore, err := openStore(cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer sqlStore.Close()

	ctx := context.Background()
	job, err := sqlStore.GetJob(ctx, args[0])
	if errors.Is(err, model.ErrJobNotFound) {
		return fmt.Errorf("no stored job with id %s", args[0])
	}
	if err != nil {
		return err
	}

	if err := sqlStore.InsertFeedback(ctx, model.Feedback{
		ContentID: job.ContentID,
		Kind:      kind,
		Comment:   feedbackComment,
	}); err != nil {
		return err
	}
	fmt.Printf("Recorded %s for %q at %s\n", kind, job.Title, job.Company)
	return nil
}
