package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"sessiongate/migrations"
)

// Dialect selects the migration set and goose dialect.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

const (
	baselineVersion int64 = 1
)

// Apply runs any pending SQL migrations bundled with the binary.
func Apply(ctx context.Context, db *sqlx.DB, dialect Dialect, logger *slog.Logger) error {
	gooseDialect, dir, err := resolve(dialect)
	if err != nil {
		return err
	}

	goose.SetBaseFS(migrations.Files)
	goose.SetLogger(gooseSlogLogger{logger: logger})
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("migrate: set goose dialect: %w", err)
	}

	// Databases created by the previous service already carry the users table
	// without a goose version table.
	if dialect == DialectPostgres {
		if err := bootstrapBaseline(ctx, db.DB, logger); err != nil {
			return err
		}
	}

	if err := goose.UpContext(ctx, db.DB, dir); err != nil {
		return fmt.Errorf("migrate: goose up: %w", err)
	}

	return nil
}

func resolve(dialect Dialect) (string, string, error) {
	switch dialect {
	case DialectPostgres:
		return "postgres", "postgres", nil
	case DialectSQLite:
		return "sqlite3", "sqlite", nil
	default:
		return "", "", fmt.Errorf("migrate: unsupported dialect %q", dialect)
	}
}

func bootstrapBaseline(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	coreExists, err := tableExists(ctx, db, "users")
	if err != nil {
		return fmt.Errorf("migrate: check core tables: %w", err)
	}

	if !coreExists {
		return nil
	}

	if _, err := goose.EnsureDBVersionContext(ctx, db); err != nil {
		return fmt.Errorf("migrate: ensure goose table: %w", err)
	}

	current, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("migrate: check goose version: %w", err)
	}

	if current == 0 {
		columns, err := columnTypes(ctx, db, "users")
		if err != nil {
			return fmt.Errorf("migrate: inspect users table: %w", err)
		}
		if err := checkBaselineColumns(columns); err != nil {
			return err
		}
		if err := insertVersion(ctx, db, baselineVersion); err != nil {
			return fmt.Errorf("migrate: set baseline: %w", err)
		}
		if logger != nil {
			logger.Info("goose baseline recorded for existing users table", "version", baselineVersion)
		}
	}

	return nil
}

func tableExists(ctx context.Context, db *sql.DB, name string) (bool, error) {
	schema, table := splitTableName(name)
	var exists bool
	if schema != "" {
		if err := db.QueryRowContext(
			ctx,
			`SELECT EXISTS (SELECT 1 FROM pg_tables WHERE schemaname = $1 AND tablename = $2)`,
			schema,
			table,
		).Scan(&exists); err != nil {
			return false, err
		}
		return exists, nil
	}

	if err := db.QueryRowContext(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_tables WHERE (current_schema() IS NULL OR schemaname = current_schema()) AND tablename = $1)`,
		table,
	).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// columnTypes returns the data type of every column of the table in the
// current schema, keyed by column name.
func columnTypes(ctx context.Context, db *sql.DB, table string) (map[string]string, error) {
	rows, err := db.QueryContext(
		ctx,
		`SELECT column_name, data_type FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1`,
		table,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make(map[string]string)
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return nil, err
		}
		columns[name] = dataType
	}
	return columns, rows.Err()
}

// checkBaselineColumns refuses to adopt a users table whose shape differs
// from the first migration.
func checkBaselineColumns(columns map[string]string) error {
	want := map[string]string{
		"id":         "uuid",
		"google_sub": "text",
	}
	for name, dataType := range want {
		got, ok := columns[name]
		if !ok {
			return fmt.Errorf("migrate: existing users table has no %s column", name)
		}
		if !strings.EqualFold(got, dataType) {
			return fmt.Errorf("migrate: existing users.%s is %s, expected %s", name, got, dataType)
		}
	}
	return nil
}

func splitTableName(name string) (string, string) {
	schema, table, found := strings.Cut(name, ".")
	if !found {
		return "", name
	}
	return schema, table
}

func insertVersion(ctx context.Context, db *sql.DB, version int64) error {
	query := fmt.Sprintf(`INSERT INTO %s (version_id, is_applied) VALUES ($1, TRUE)`, goose.TableName())
	_, err := db.ExecContext(ctx, query, version)
	return err
}
