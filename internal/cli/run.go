package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"fx-news-alerts/internal/service"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduler: breaking checks plus morning and night digests",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Run(cmd.Context())
	},
}

var checkBreakingCmd = &cobra.Command{
	Use:   "check-breaking",
	Short: "Run one breaking-news pass and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().CheckBreaking(cmd.Context())
	},
}

var digestWhen string

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Send one morning or night digest and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := service.ParseDigestKind(digestWhen)
		if err != nil {
			return err
		}
		return getApp().Digest(cmd.Context(), kind)
	},
}

var summaryURL string

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Fetch one article page and print its analysis without delivering",
	RunE: func(cmd *cobra.Command, args []string) error {
		if summaryURL == "" {
			return errors.New("--url must be provided")
		}
		return getApp().Summary(cmd.Context(), summaryURL)
	},
}

func init() {
	digestCmd.Flags().StringVar(&digestWhen, "when", "morning", "Digest edition: morning or night")
	summaryCmd.Flags().StringVar(&summaryURL, "url", "", "Article URL to analyse")
}
