package database

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// NewSQLite opens (creating if needed) a SQLite database file for local use.
// Writes are serialized through a single connection so concurrent upserts
// queue instead of failing with SQLITE_BUSY.
func NewSQLite(ctx context.Context, path string) (*sqlx.DB, error) {
	dsn := "file:" + path + "?" + url.Values{
		"_pragma":      []string{"busy_timeout(5000)", "journal_mode(WAL)", "foreign_keys(1)"},
		"_time_format": []string{"sqlite"},
	}.Encode()

	db, err := sqlx.ConnectContext(ctx, "sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	return db, nil
}
