package ingest

import (
	"context"

	"fx-news-alerts/internal/domain"
)

// Collector pulls fresh articles from upstream sources, newest first.
type Collector interface {
	Collect(ctx context.Context, limitPerSource int) ([]domain.Article, error)
}

var _ Collector = (*FeedCollector)(nil)
