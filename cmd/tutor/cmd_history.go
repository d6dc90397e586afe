package main

import (
	"fmt"
	"io"
	"os"

	"gemtutor/internal/progress"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var historyLimit int

// historyCmd prints the recent progress records
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent progress history",
	Long: `Prints the most recent graded interactions from the progress store, in the
same form they are given to the tutor at the start of a session.

Examples:
  tutor history
  tutor history --limit 20`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit := cfg.History.Limit
		if cmd.Flags().Changed("limit") {
			limit = historyLimit
		}
		return printHistory(os.Stdout, cfg.Storage.ProgressPath, limit)
	},
}

func printHistory(w io.Writer, path string, limit int) error {
	tracker, err := progress.NewTracker(path)
	if err != nil {
		return err
	}
	logger.Debug("reading history", zap.String("path", path), zap.Int("limit", limit))
	fmt.Fprint(w, tracker.RecentHistory(limit))
	return nil
}
