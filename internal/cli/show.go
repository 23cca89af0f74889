package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"fx-news-alerts/internal/app"
)

var (
	showLimit int
	showKind  string
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent deliveries",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}
		kind, err := parseKind(showKind)
		if err != nil {
			return err
		}

		opts := app.ShowOptions{
			Limit: showLimit,
			Kind:  kind,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of deliveries to display")
	showCmd.Flags().StringVar(&showKind, "kind", "", "Only show breaking or digest deliveries")
}
