// Package database opens the Store's SQL backend and applies the embedded
// goose migrations for the selected dialect.
package database

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/dmitrijs2005/notekeeper/internal/server/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// Dialect ties together a database/sql driver, the goose dialect and the
// placeholder style the repositories must render.
type Dialect struct {
	Driver      string
	Goose       string
	Dir         string
	Placeholder sq.PlaceholderFormat
}

var (
	SQLite   = Dialect{Driver: "sqlite", Goose: "sqlite3", Dir: migrations.DirSQLite, Placeholder: sq.Question}
	Postgres = Dialect{Driver: "pgx", Goose: "postgres", Dir: migrations.DirPostgres, Placeholder: sq.Dollar}
)

// DialectFor maps a configured driver name to its Dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case SQLite.Driver, "sqlite3":
		return SQLite, nil
	case Postgres.Driver, "postgres":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Builder returns a squirrel statement builder for the dialect.
func (d Dialect) Builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(d.Placeholder)
}

var sqlitePragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 5000",
}

// Open connects to dsn. SQLite gets a single long-lived connection so that
// per-connection pragmas (foreign keys above all) stay in force and writers
// are naturally serialized.
func Open(ctx context.Context, d Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Driver, err)
	}

	if d.Driver == SQLite.Driver {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		for _, p := range sqlitePragmas {
			if _, err := db.ExecContext(ctx, p); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("%s: %w", p, err)
			}
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.Driver, err)
	}

	return db, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies every pending migration of the dialect.
func Migrate(ctx context.Context, d Dialect, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(d.Goose); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, d.Dir)
}
