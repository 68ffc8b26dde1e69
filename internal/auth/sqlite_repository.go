package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// SQLiteRepository implements Repository on a local SQLite file.
type SQLiteRepository struct {
	db *sqlx.DB
}

// NewSQLiteRepository creates a new SQLiteRepository.
func NewSQLiteRepository(db *sqlx.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// UpsertUser uses SQLite's ON CONFLICT ... RETURNING to create or refresh the
// user in one statement.
func (r *SQLiteRepository) UpsertUser(ctx context.Context, input UpsertUserInput) (User, error) {
	const query = `
		INSERT INTO users (id, google_sub, email, name, avatar_url, created_at, updated_at, last_login_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (google_sub)
		DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			avatar_url = excluded.avatar_url,
			updated_at = excluded.updated_at,
			last_login_at = excluded.last_login_at
		RETURNING id, google_sub, COALESCE(email, '') AS email, COALESCE(name, '') AS name,
			COALESCE(avatar_url, '') AS avatar_url, created_at, updated_at, last_login_at
	`

	now := loginTime(input)
	var row userRow
	if err := r.db.GetContext(ctx, &row, query,
		uuid.New().String(),
		input.GoogleSubject,
		input.Email,
		input.Name,
		input.AvatarURL,
		now,
		now,
		now,
	); err != nil {
		return User{}, fmt.Errorf("upsert user: %w", err)
	}

	return row.toUser(), nil
}

// FindUserByID looks up a user by primary key.
func (r *SQLiteRepository) FindUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	const query = `
		SELECT id, google_sub, COALESCE(email, '') AS email, COALESCE(name, '') AS name,
			COALESCE(avatar_url, '') AS avatar_url, created_at, updated_at, last_login_at
		FROM users
		WHERE id = ?
	`

	var row userRow
	if err := r.db.GetContext(ctx, &row, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("find user: %w", err)
	}

	return row.toUser(), nil
}

// dbTime scans timestamps from drivers that return either time.Time or the
// textual forms SQLite stores.
type dbTime struct {
	time.Time
}

var dbTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// Scan implements sql.Scanner.
func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case int64:
		t.Time = time.Unix(v, 0).UTC()
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("scan time: unsupported type %T", src)
	}
}

func (t *dbTime) parse(value string) error {
	value = strings.TrimSpace(value)
	for _, layout := range dbTimeLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("scan time: unrecognized format %q", value)
}
