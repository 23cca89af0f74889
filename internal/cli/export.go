package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fx-news-alerts/internal/app"
	"fx-news-alerts/internal/storage"
)

var (
	exportFrom      string
	exportTo        string
	exportKind      string
	exportPNGPath   string
	exportCSVPath   string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export delivery history as CSV and/or PNG impact chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(exportKind)
		if err != nil {
			return err
		}

		opts := app.ExportOptions{
			Kind:      kind,
			PNGPath:   exportPNGPath,
			CSVPath:   exportCSVPath,
			MaxPoints: exportMaxPoints,
		}

		if exportFrom != "" {
			from, err := time.Parse(time.RFC3339, exportFrom)
			if err != nil {
				return fmt.Errorf("invalid --from value: %w", err)
			}
			opts.From = &from
		}

		if exportTo != "" {
			to, err := time.Parse(time.RFC3339, exportTo)
			if err != nil {
				return fmt.Errorf("invalid --to value: %w", err)
			}
			opts.To = &to
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func parseKind(s string) (storage.DeliveryKind, error) {
	switch storage.DeliveryKind(s) {
	case "", storage.KindBreaking, storage.KindDigest:
		return storage.DeliveryKind(s), nil
	default:
		return "", fmt.Errorf("invalid --kind %q: want breaking or digest", s)
	}
}

func init() {
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "Start timestamp (RFC3339, inclusive)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "End timestamp (RFC3339, exclusive)")
	exportCmd.Flags().StringVar(&exportKind, "kind", "", "Only export breaking or digest deliveries")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum rows to export (defaults to config)")
}
