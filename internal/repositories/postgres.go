package repositories

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgxv5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vidfriends/linkresolver/internal/db"
	"github.com/vidfriends/linkresolver/internal/models"
	"github.com/vidfriends/linkresolver/internal/resolver"
)

// PostgresSettingsRepository stores the provider configuration as key/value rows.
type PostgresSettingsRepository struct {
	pool db.Pool
	now  func() time.Time
}

// NewPostgresSettingsRepository constructs a settings repository backed by PostgreSQL.
func NewPostgresSettingsRepository(pool db.Pool) *PostgresSettingsRepository {
	return &PostgresSettingsRepository{pool: pool, now: time.Now}
}

// Load returns the stored provider configuration or ErrNotFound when nothing
// has been saved yet.
func (r *PostgresSettingsRepository) Load(ctx context.Context) (resolver.ProviderConfig, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return resolver.ProviderConfig{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return resolver.ProviderConfig{}, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return resolver.ProviderConfig{}, fmt.Errorf("scan setting: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return resolver.ProviderConfig{}, fmt.Errorf("iterate settings: %w", err)
	}

	if len(values) == 0 {
		return resolver.ProviderConfig{}, ErrNotFound
	}

	return rowsToSettings(values)
}

// Save upserts every provider setting in one transaction, retrying on
// serialization conflicts.
func (r *PostgresSettingsRepository) Save(ctx context.Context, cfg resolver.ProviderConfig) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	values := settingsToRows(cfg)
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	updatedAt := r.now().UTC()

	err = crdbpgx.ExecuteTx(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, key := range keys {
			if _, err := tx.Exec(ctx, `
                INSERT INTO settings (key, value, updated_at)
                VALUES ($1, $2, $3)
                ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
            `, key, values[key], updatedAt); err != nil {
				return fmt.Errorf("upsert setting %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	return nil
}

// PostgresHistoryRepository persists resolution outcomes.
type PostgresHistoryRepository struct {
	pool db.Pool
}

// NewPostgresHistoryRepository constructs a history repository backed by PostgreSQL.
func NewPostgresHistoryRepository(pool db.Pool) *PostgresHistoryRepository {
	return &PostgresHistoryRepository{pool: pool}
}

// Record inserts a resolution record, assigning an ID when it has none.
func (r *PostgresHistoryRepository) Record(ctx context.Context, record models.ResolutionRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO resolution_history (id, video_url, outcome, error_kind, status, strategy, download_url, duration_ms, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, record.ID, record.VideoURL, record.Outcome, record.ErrorKind, record.Status, record.Strategy, record.DownloadURL, record.DurationMS, record.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert resolution record: %w", err)
	}

	return nil
}

// Recent returns up to limit records, newest first.
func (r *PostgresHistoryRepository) Recent(ctx context.Context, limit int) ([]models.ResolutionRecord, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, video_url, outcome, error_kind, status, strategy, download_url, duration_ms, created_at
        FROM resolution_history
        ORDER BY created_at DESC
        LIMIT $1
    `, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query resolution history: %w", err)
	}
	defer rows.Close()

	var records []models.ResolutionRecord
	for rows.Next() {
		var rec models.ResolutionRecord
		if err := rows.Scan(&rec.ID, &rec.VideoURL, &rec.Outcome, &rec.ErrorKind, &rec.Status, &rec.Strategy, &rec.DownloadURL, &rec.DurationMS, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan resolution record: %w", err)
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resolution history: %w", err)
	}

	return records, nil
}

// Default and upper bound for history page sizes.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 200
)

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	default:
		return limit
	}
}
