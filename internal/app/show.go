package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"fx-news-alerts/internal/storage"
)

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
	Kind  storage.DeliveryKind
}

// Show prints recent deliveries.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show deliveries")
	}
	defer closeStore()

	records, err := store.ListDeliveries(ctx, storage.DeliveryFilter{Kind: opts.Kind, Limit: opts.Limit})
	if err != nil {
		return err
	}
	writeDeliveries(os.Stdout, records, a.Config.Location())
	return nil
}

func writeDeliveries(out io.Writer, records []storage.DeliveryRecord, loc *time.Location) {
	if len(records) == 0 {
		fmt.Fprintln(out, "no deliveries found")
		return
	}

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Delivered (%s)\tKind\tImpact\tCategory\tCurrencies\tChannels\tTitle\n", loc)
	for _, rec := range records {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			rec.DeliveredAt.In(loc).Format("2006-01-02 15:04"),
			rec.Kind,
			rec.ImpactScore,
			rec.Category,
			strings.Join(rec.Currencies, ","),
			strings.Join(rec.Channels, ","),
			sanitizeInline(rec.Title),
		)
	}
	writer.Flush()
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	cleaned = strings.ReplaceAll(cleaned, "\t", " ")
	return cleaned
}
