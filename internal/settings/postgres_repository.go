package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores settings in the settings table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a PostgreSQL settings repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get retrieves a single setting by key.
func (r *PostgresRepository) Get(ctx context.Context, key string) (*Setting, error) {
	query := `
		SELECT key, value, updated_at
		FROM settings
		WHERE key = $1
	`

	s, err := scanSetting(r.pool.QueryRow(ctx, query, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSettingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get setting %s: %w", key, err)
	}
	return s, nil
}

// GetAll retrieves all stored settings.
func (r *PostgresRepository) GetAll(ctx context.Context) (map[string]*Setting, error) {
	query := `
		SELECT key, value, updated_at
		FROM settings
		ORDER BY key
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	result := make(map[string]*Setting)
	for rows.Next() {
		s, err := scanSetting(rows)
		if err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		result[s.Key] = s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return result, nil
}

// SetMany creates or updates settings in one transaction.
func (r *PostgresRepository) SetMany(ctx context.Context, settings []*Setting) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now()
	for _, s := range settings {
		valueJSON, err := json.Marshal(s.Value)
		if err != nil {
			return fmt.Errorf("encode %s: %w", s.Key, err)
		}
		if _, err := tx.Exec(ctx, query, s.Key, valueJSON, now); err != nil {
			return fmt.Errorf("store %s: %w", s.Key, err)
		}
	}

	return tx.Commit(ctx)
}

func scanSetting(row pgx.Row) (*Setting, error) {
	var (
		s         Setting
		valueJSON []byte
	)
	if err := row.Scan(&s.Key, &valueJSON, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(valueJSON, &s.Value); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.Key, err)
	}
	return &s, nil
}

var _ Repository = (*PostgresRepository)(nil)
