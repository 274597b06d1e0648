// Package db opens the embedded DuckDB database under the data directory.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Config holds database configuration.
type Config struct {
	DataDir string
	DBName  string
	// InMemory opens a throwaway database; DataDir is ignored.
	InMemory bool
}

// Open returns a DuckDB handle for cfg.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	dsn := ""
	if !cfg.InMemory {
		duckdbDir := filepath.Join(cfg.DataDir, "duckdb")
		if err := os.MkdirAll(duckdbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create duckdb directory: %w", err)
		}
		dsn = filepath.Join(duckdbDir, cfg.DBName+".duckdb")
	}

	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening duckdb: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to duckdb: %w", err)
	}
	return conn, nil
}

// Migrate runs statements in order, stopping at the first failure.
func Migrate(ctx context.Context, conn *sql.DB, statements ...string) error {
	for i, stmt := range statements {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
