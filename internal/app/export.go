package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"fx-news-alerts/internal/storage"
)

// ExportOptions hold parameters for exporting delivery history.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	Kind      storage.DeliveryKind
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// Export renders delivery history as CSV and/or an impact chart PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	opts.CSVPath = a.outputPath(opts.CSVPath)
	opts.PNGPath = a.outputPath(opts.PNGPath)
	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	defer closeStore()

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}
	from := to.Add(-a.Config.Database.Retention)
	if opts.From != nil {
		from = opts.From.UTC()
	}
	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	records, err := store.ListDeliveries(ctx, storage.DeliveryFilter{
		Kind:      opts.Kind,
		Since:     from,
		Until:     to,
		Ascending: true,
	})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		a.Logger.Info().Msg("no deliveries found for export window")
		return nil
	}

	downsampled := downsampleDeliveries(records, opts.MaxPoints)
	a.Logger.Info().Int("total", len(records)).Int("exported", len(downsampled)).Msg("exporting deliveries")

	if opts.CSVPath != "" {
		if err := writeDeliveriesCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}
	if opts.PNGPath != "" {
		if err := writeImpactPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}
	return nil
}

// outputPath places bare file names under export.output_dir.
func (a *App) outputPath(path string) string {
	if path == "" || filepath.IsAbs(path) || filepath.Dir(path) != "." || a.Config.Export.OutputDir == "" {
		return path
	}
	return filepath.Join(a.Config.Export.OutputDir, path)
}

func downsampleDeliveries(records []storage.DeliveryRecord, max int) []storage.DeliveryRecord {
	if max <= 0 || len(records) <= max {
		return records
	}
	if max == 1 {
		return records[:1]
	}

	result := make([]storage.DeliveryRecord, 0, max)
	step := float64(len(records)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(records) {
			idx = len(records) - 1
		}
		result = append(result, records[idx])
	}
	return result
}

func writeDeliveriesCSV(path string, records []storage.DeliveryRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := []string{"delivered_at", "kind", "article_id", "published_at", "source", "category", "impact_score", "currencies", "channels", "title", "url"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, rec := range records {
		row := []string{
			rec.DeliveredAt.UTC().Format(time.RFC3339),
			string(rec.Kind),
			rec.ArticleID,
			rec.PublishedAt.UTC().Format(time.RFC3339),
			rec.Source,
			rec.Category,
			strconv.Itoa(rec.ImpactScore),
			strings.Join(rec.Currencies, " "),
			strings.Join(rec.Channels, " "),
			rec.Title,
			rec.URL,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeImpactPNG(path string, records []storage.DeliveryRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	series := map[storage.DeliveryKind]*chart.TimeSeries{
		storage.KindBreaking: {Name: "Breaking impact"},
		storage.KindDigest:   {Name: "Digest impact"},
	}
	for _, rec := range records {
		s, ok := series[rec.Kind]
		if !ok {
			continue
		}
		s.XValues = append(s.XValues, rec.DeliveredAt)
		s.YValues = append(s.YValues, float64(rec.ImpactScore))
	}

	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:  "Impact score",
			Range: &chart.ContinuousRange{Min: 0, Max: 100},
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.0f")
			},
		},
	}
	for _, kind := range []storage.DeliveryKind{storage.KindBreaking, storage.KindDigest} {
		// go-chart refuses series with fewer than two points
		if s := series[kind]; len(s.XValues) >= 2 {
			graph.Series = append(graph.Series, *s)
		}
	}
	if len(graph.Series) == 0 {
		return errors.New("not enough deliveries to chart; need at least two of one kind")
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
