package poi

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/joeblew999/plat-atlas/internal/db"
)

const createTable = `CREATE TABLE IF NOT EXISTS pois (
	id           VARCHAR PRIMARY KEY,
	name         VARCHAR NOT NULL,
	lat          DOUBLE NOT NULL,
	lng          DOUBLE NOT NULL,
	country_code VARCHAR NOT NULL DEFAULT '',
	created_at   TIMESTAMP NOT NULL
)`

// DuckDBStore keeps POIs in the pois table.
type DuckDBStore struct {
	conn *sql.DB
}

// NewDuckDBStore creates the pois table if needed.
func NewDuckDBStore(ctx context.Context, conn *sql.DB) (*DuckDBStore, error) {
	if err := db.Migrate(ctx, conn, createTable); err != nil {
		return nil, err
	}
	return &DuckDBStore{conn: conn}, nil
}

// Create inserts p, generating an id when it has none.
func (s *DuckDBStore) Create(ctx context.Context, p POI) (POI, error) {
	if p.ID == "" {
		fresh := New(p.Name, p.Lat, p.Lng, p.CountryCode)
		p.ID, p.CreatedAt, p.Name = fresh.ID, fresh.CreatedAt, fresh.Name
	}
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO pois (id, name, lat, lng, country_code, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Lat, p.Lng, p.CountryCode, p.CreatedAt)
	if err != nil {
		return POI{}, fmt.Errorf("inserting poi: %w", err)
	}
	return p, nil
}

// Get returns a POI by id.
func (s *DuckDBStore) Get(ctx context.Context, id string) (POI, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT id, name, lat, lng, country_code, created_at FROM pois WHERE id = ?`, id)
	p, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return POI{}, fmt.Errorf("%q: %w", id, ErrNotFound)
	}
	if err != nil {
		return POI{}, fmt.Errorf("reading poi: %w", err)
	}
	return p, nil
}

// List returns POIs oldest first.
func (s *DuckDBStore) List(ctx context.Context) ([]POI, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, name, lat, lng, country_code, created_at FROM pois ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing pois: %w", err)
	}
	defer rows.Close()

	pois := []POI{}
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("reading poi: %w", err)
		}
		pois = append(pois, p)
	}
	return pois, rows.Err()
}

// Delete removes a POI by id.
func (s *DuckDBStore) Delete(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM pois WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting poi: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%q: %w", id, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (POI, error) {
	var p POI
	err := s.Scan(&p.ID, &p.Name, &p.Lat, &p.Lng, &p.CountryCode, &p.CreatedAt)
	if err == nil {
		p.CreatedAt = p.CreatedAt.UTC()
	}
	return p, err
}
