package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// UpsertUser inserts the user or, when the Google subject already exists,
// refreshes its profile in the same statement. The existing id and
// created_at survive the conflict branch.
func (r *PostgresRepository) UpsertUser(ctx context.Context, input UpsertUserInput) (User, error) {
	const query = `
		INSERT INTO users (id, google_sub, email, name, avatar_url, created_at, updated_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6, $6)
		ON CONFLICT (google_sub)
		DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			avatar_url = EXCLUDED.avatar_url,
			updated_at = EXCLUDED.updated_at,
			last_login_at = EXCLUDED.last_login_at
		RETURNING id, google_sub, COALESCE(email, '') AS email, COALESCE(name, '') AS name,
			COALESCE(avatar_url, '') AS avatar_url, created_at, updated_at, last_login_at
	`

	var row userRow
	if err := r.db.GetContext(ctx, &row, query,
		uuid.New(),
		input.GoogleSubject,
		input.Email,
		input.Name,
		input.AvatarURL,
		loginTime(input),
	); err != nil {
		return User{}, fmt.Errorf("upsert user: %w", err)
	}

	return row.toUser(), nil
}

// FindUserByID looks up a user by primary key.
func (r *PostgresRepository) FindUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	const query = `
		SELECT id, google_sub, COALESCE(email, '') AS email, COALESCE(name, '') AS name,
			COALESCE(avatar_url, '') AS avatar_url, created_at, updated_at, last_login_at
		FROM users
		WHERE id = $1
	`

	var row userRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("find user: %w", err)
	}

	return row.toUser(), nil
}

// userRow is a database row representation of User.
type userRow struct {
	ID            uuid.UUID `db:"id"`
	GoogleSubject string    `db:"google_sub"`
	Email         string    `db:"email"`
	Name          string    `db:"name"`
	AvatarURL     string    `db:"avatar_url"`
	CreatedAt     dbTime    `db:"created_at"`
	UpdatedAt     dbTime    `db:"updated_at"`
	LastLoginAt   dbTime    `db:"last_login_at"`
}

func (r *userRow) toUser() User {
	return User{
		ID:            r.ID,
		GoogleSubject: r.GoogleSubject,
		Email:         r.Email,
		Name:          r.Name,
		AvatarURL:     r.AvatarURL,
		CreatedAt:     r.CreatedAt.Time,
		UpdatedAt:     r.UpdatedAt.Time,
		LastLoginAt:   r.LastLoginAt.Time,
	}
}

func loginTime(input UpsertUserInput) time.Time {
	if input.LoginAt.IsZero() {
		return time.Now().UTC()
	}
	return input.LoginAt.UTC()
}
