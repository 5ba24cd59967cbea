package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print store statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, logger := mustLoad()

	sqlStore, err := openStore(cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer sqlStore.Close()

	st, err := sqlStore.Stats(context.Background(), cfg.Digest.MinRelevance)
	if err != nil {
		return err
	}

	fmt.Printf("Database:        %s\n", cfg.Database.Path)
	fmt.Printf("Total jobs:      %d\n", st.Total)
	fmt.Printf("Analyzed:        %d\n", st.Analyzed)
	fmt.Printf("Score >= %-3d     %d\n", cfg.Digest.MinRelevance, st.AboveThreshold)
	fmt.Printf("Notified:        %d\n", st.Notified)
	fmt.Printf("Pending scoring: %d\n", st.Total-st.Analyzed)
	fmt.Printf("Feedback:        %d\n", st.Feedback)
	return nil
}
