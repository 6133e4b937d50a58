// Package storage is the SQL Entity Store. SQLite and PostgreSQL share one
// set of queries; every Rule Engine operation runs in one transaction.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"spendwise/internal/services"
)

type Store struct {
	db      *sql.DB
	dialect Dialect
}

var _ services.Store = (*Store)(nil)

// sqliteDSN enables foreign keys and waits on a locked database instead of
// failing at once.
func sqliteDSN(path string) string {
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// OpenSQLite opens (creating if needed) the database file at path and
// migrates it.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := sqliteDSN(path)
	db, err := sql.Open(SQLite.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(SQLite, dsn); err != nil {
		db.Close()
		return nil, err
	}

	slog.InfoContext(ctx, "SQLite store ready", "path", path)
	return &Store{db: db, dialect: SQLite}, nil
}

// OpenPostgres connects to the database at url through pgx and migrates it.
func OpenPostgres(ctx context.Context, url string) (*Store, error) {
	db, err := sql.Open(Postgres.driverName(), url)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(Postgres, url); err != nil {
		db.Close()
		return nil, err
	}

	slog.InfoContext(ctx, "PostgreSQL store ready")
	return &Store{db: db, dialect: Postgres}, nil
}

func (s *Store) Dialect() Dialect { return s.dialect }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InTx runs fn between BEGIN and COMMIT. Any error from fn, or a panic,
// rolls back.
func (s *Store) InTx(ctx context.Context, fn func(tx services.Tx) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := sqlTx.Rollback(); rbErr != nil {
				slog.WarnContext(ctx, "Rollback failed", "error", rbErr)
			}
		}
	}()

	if err = fn(&tx{q: sqlTx, d: s.dialect}); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
