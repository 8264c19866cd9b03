package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/RobinCoderZhao/newsdesk/pkg/storage"
)

// Schema is the settings table backing SQLKV. It is valid for both SQLite
// and PostgreSQL.
const Schema = `
CREATE TABLE IF NOT EXISTS settings (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

// SQLKV stores key/value pairs in the settings table.
type SQLKV struct {
	db *storage.DB
}

// NewSQLKV migrates the settings table and returns a KV over it.
func NewSQLKV(ctx context.Context, db *storage.DB) (*SQLKV, error) {
	if err := db.Migrate(ctx, Schema); err != nil {
		return nil, fmt.Errorf("settings schema: %w", err)
	}
	return &SQLKV{db: db}, nil
}

func (s *SQLKV) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT value FROM settings WHERE key = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

const upsertSetting = `
	INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
`

func (s *SQLKV) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(upsertSetting), key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// SetMany upserts every pair in a single transaction.
func (s *SQLKV) SetMany(ctx context.Context, values map[string]string) error {
	now := time.Now().UTC()
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, s.db.Rebind(upsertSetting))
		if err != nil {
			return fmt.Errorf("prepare settings upsert: %w", err)
		}
		defer stmt.Close()

		for k, v := range values {
			if _, err := stmt.ExecContext(ctx, k, v, now); err != nil {
				return fmt.Errorf("set setting %s: %w", k, err)
			}
		}
		return nil
	})
}
