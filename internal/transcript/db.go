// Package transcript records a bridge run into a sqlite file for later
// inspection. It only writes; nothing is restored from it.
package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// The transcript is written by one goroutine; WAL keeps readers such as
// the sqlite3 shell from blocking it while the program runs.
var pragmas = []string{
	`PRAGMA foreign_keys = ON`,
	`PRAGMA journal_mode = WAL`,
	`PRAGMA busy_timeout = 5000`,
}

type DB struct {
	conn *sql.DB
	path string
}

func Open(ctx context.Context, path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("transcript path cannot be empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create transcript directory %q: %w", dir, err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript at %q: %w", path, err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := prepare(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &DB{conn: conn, path: path}, nil
}

func prepare(ctx context.Context, conn *sql.DB) error {
	if err := conn.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping transcript database: %w", err)
	}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	return RunMigrations(ctx, conn)
}

func (d *DB) Path() string {
	return d.path
}

func (d *DB) SQL() *sql.DB {
	return d.conn
}

func (d *DB) Close() error {
	if d == nil || d.conn == nil {
		return nil
	}
	return d.conn.Close()
}
