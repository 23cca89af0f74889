package app

import (
	"context"
	"errors"
	"time"

	"fx-news-alerts/internal/storage"
)

// Prune deletes delivery history older than olderThan, falling back to
// database.retention.
func (a *App) Prune(ctx context.Context, olderThan time.Duration) error {
	if olderThan <= 0 {
		olderThan = a.Config.Database.Retention
	}
	if olderThan <= 0 {
		return errors.New("retention must be greater than zero")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; nothing to prune")
	}
	defer closeStore()

	_, err = a.prune(ctx, store, time.Now().Add(-olderThan))
	return err
}

func (a *App) prune(ctx context.Context, store storage.DeliveryStore, cutoff time.Time) (int64, error) {
	deleted, err := store.DeleteDeliveriesBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	a.Logger.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("delivery history pruned")
	return deleted, nil
}
