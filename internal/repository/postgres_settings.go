package repository

import (
	"context"
	"database/sql"
	"errors"
)

const settingsSchema = `
CREATE TABLE IF NOT EXISTS settings (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresSettingsRepository stores settings in the settings table.
type PostgresSettingsRepository struct {
	DB *sql.DB
}

func NewPostgresSettingsRepository(db *sql.DB) *PostgresSettingsRepository {
	return &PostgresSettingsRepository{DB: db}
}

// Migrate creates the settings table when missing.
func (r *PostgresSettingsRepository) Migrate(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, settingsSchema)
	return err
}

func (r *PostgresSettingsRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.DB.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *PostgresSettingsRepository) Set(ctx context.Context, key, value string) error {
	query := `
        INSERT INTO settings (key, value, updated_at)
        VALUES ($1, $2, now())
        ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
    `
	_, err := r.DB.ExecContext(ctx, query, key, value)
	return err
}
