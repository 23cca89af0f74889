package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	insertDeliverySQL = `INSERT INTO delivered_articles (
        article_id,
        kind,
        url,
        title,
        source,
        category,
        currencies,
        impact_score,
        published_at,
        delivered_at,
        channels
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
    )
    ON CONFLICT (article_id, kind) DO NOTHING;`

	deleteDeliveriesBeforeSQL = `DELETE FROM delivered_articles WHERE delivered_at < $1;`

	countDeliveriesSQL = `SELECT COUNT(*) FROM delivered_articles;`
)

var deliveryColumns = []string{
	"article_id",
	"kind",
	"url",
	"title",
	"source",
	"category",
	"currencies",
	"impact_score",
	"published_at",
	"delivered_at",
	"channels",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// DeliveryStore defines operations for delivery bookkeeping.
type DeliveryStore interface {
	RecordDelivery(ctx context.Context, rec DeliveryRecord) (bool, error)
	ListDeliveries(ctx context.Context, filter DeliveryFilter) ([]DeliveryRecord, error)
	ListRecentDeliveries(ctx context.Context, limit int) ([]DeliveryRecord, error)
	SeenSince(ctx context.Context, since time.Time) ([]DeliveryRecord, error)
	DeleteDeliveriesBefore(ctx context.Context, olderThan time.Time) (int64, error)
	CountDeliveries(ctx context.Context) (int64, error)
}

// Store persists delivered articles in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// EnsureSchema applies the embedded migrations in file order. Every
// statement is idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)
	for _, name := range names {
		body, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(body)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

// RecordDelivery stores a confirmed delivery. It reports false when the
// article was already recorded for that kind.
func (s *Store) RecordDelivery(ctx context.Context, rec DeliveryRecord) (bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return false, err
	}
	if rec.DeliveredAt.IsZero() {
		rec.DeliveredAt = time.Now().UTC()
	}
	currencies := rec.Currencies
	if currencies == nil {
		currencies = []string{}
	}
	channels := rec.Channels
	if channels == nil {
		channels = []string{}
	}

	tag, execErr := pool.Exec(ctx, insertDeliverySQL,
		rec.ArticleID,
		string(rec.Kind),
		rec.URL,
		rec.Title,
		rec.Source,
		rec.Category,
		currencies,
		rec.ImpactScore,
		rec.PublishedAt,
		rec.DeliveredAt,
		channels,
	)
	if execErr != nil {
		return false, fmt.Errorf("record delivery: %w", execErr)
	}
	return tag.RowsAffected() > 0, nil
}

// ListDeliveries lists deliveries matching filter, newest first unless
// Ascending is set.
func (s *Store) ListDeliveries(ctx context.Context, filter DeliveryFilter) ([]DeliveryRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	query, args, err := buildListQuery(filter)
	if err != nil {
		return nil, fmt.Errorf("build delivery query: %w", err)
	}

	rows, queryErr := pool.Query(ctx, query, args...)
	if queryErr != nil {
		return nil, fmt.Errorf("list deliveries: %w", queryErr)
	}
	defer rows.Close()

	records := make([]DeliveryRecord, 0)
	for rows.Next() {
		rec, scanErr := scanDelivery(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// ListRecentDeliveries lists the most recent deliveries.
func (s *Store) ListRecentDeliveries(ctx context.Context, limit int) ([]DeliveryRecord, error) {
	return s.ListDeliveries(ctx, DeliveryFilter{Limit: limit})
}

// SeenSince lists deliveries made at or after since, oldest first.
func (s *Store) SeenSince(ctx context.Context, since time.Time) ([]DeliveryRecord, error) {
	return s.ListDeliveries(ctx, DeliveryFilter{Since: since, Ascending: true})
}

// DeleteDeliveriesBefore prunes history and returns the removed row count.
func (s *Store) DeleteDeliveriesBefore(ctx context.Context, olderThan time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	tag, execErr := pool.Exec(ctx, deleteDeliveriesBeforeSQL, olderThan)
	if execErr != nil {
		return 0, fmt.Errorf("delete deliveries before: %w", execErr)
	}
	return tag.RowsAffected(), nil
}

// CountDeliveries counts stored deliveries.
func (s *Store) CountDeliveries(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countDeliveriesSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count deliveries: %w", scanErr)
	}
	return count, nil
}

func buildListQuery(filter DeliveryFilter) (string, []any, error) {
	q := psql.Select(deliveryColumns...).From("delivered_articles")
	if filter.Kind != "" {
		q = q.Where(sq.Eq{"kind": string(filter.Kind)})
	}
	if !filter.Since.IsZero() {
		q = q.Where(sq.GtOrEq{"delivered_at": filter.Since})
	}
	if !filter.Until.IsZero() {
		q = q.Where(sq.Lt{"delivered_at": filter.Until})
	}
	if filter.Ascending {
		q = q.OrderBy("delivered_at ASC")
	} else {
		q = q.OrderBy("delivered_at DESC")
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	return q.ToSql()
}

func scanDelivery(rows pgx.Rows) (DeliveryRecord, error) {
	var (
		rec    DeliveryRecord
		kind   string
		impact int16
	)
	if err := rows.Scan(
		&rec.ArticleID,
		&kind,
		&rec.URL,
		&rec.Title,
		&rec.Source,
		&rec.Category,
		&rec.Currencies,
		&impact,
		&rec.PublishedAt,
		&rec.DeliveredAt,
		&rec.Channels,
	); err != nil {
		return DeliveryRecord{}, fmt.Errorf("scan delivery: %w", err)
	}
	rec.Kind = DeliveryKind(kind)
	rec.ImpactScore = int(impact)
	return rec, nil
}

var _ DeliveryStore = (*Store)(nil)
