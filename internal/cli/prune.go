package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var pruneOlderThan string

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete delivery history older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		var olderThan time.Duration
		if pruneOlderThan != "" {
			d, err := time.ParseDuration(pruneOlderThan)
			if err != nil {
				return fmt.Errorf("invalid --older-than value: %w", err)
			}
			olderThan = d
		}
		return getApp().Prune(cmd.Context(), olderThan)
	},
}

func init() {
	pruneCmd.Flags().StringVar(&pruneOlderThan, "older-than", "", "Age cutoff such as 720h (defaults to database.retention)")
}
