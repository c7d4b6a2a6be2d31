package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the single JSONB table backing every collection.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
	seq        BIGSERIAL,
	collection TEXT        NOT NULL,
	id         UUID        NOT NULL,
	data       JSONB       NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS documents_collection_seq_idx ON documents (collection, seq);
CREATE INDEX IF NOT EXISTS documents_data_gin_idx ON documents USING GIN (data jsonb_path_ops);
`

// PostgresStore is a PostgreSQL implementation of the DocumentStore interface.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the documents table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Insert stores a new record under a fresh UUID.
func (s *PostgresStore) Insert(ctx context.Context, collection string, record Record) (Record, error) {
	rec := copyRecord(record)
	id := uuid.New().String()
	rec["id"] = id

	_, err := s.db.Exec(ctx,
		"INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)",
		collection, id, map[string]any(rec))
	if err != nil {
		return nil, fmt.Errorf("failed to insert into %s: %w", collection, err)
	}
	return rec, nil
}

// GetByID retrieves a record by its ID.
func (s *PostgresStore) GetByID(ctx context.Context, collection, id string) (Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	var data map[string]any
	err := s.db.QueryRow(ctx,
		"SELECT data FROM documents WHERE collection = $1 AND id = $2",
		collection, id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	return Record(data), nil
}

// Update replaces an existing record. The stored id always wins.
func (s *PostgresStore) Update(ctx context.Context, collection, id string, record Record) (Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	rec := copyRecord(record)
	rec["id"] = id

	tag, err := s.db.Exec(ctx,
		"UPDATE documents SET data = $3::jsonb, updated_at = now() WHERE collection = $1 AND id = $2",
		collection, id, map[string]any(rec))
	if err != nil {
		return nil, fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return rec, nil
}

// Delete removes a record.
func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	tag, err := s.db.Exec(ctx,
		"DELETE FROM documents WHERE collection = $1 AND id = $2", collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Query matches records by JSONB containment of the filter.
func (s *PostgresStore) Query(ctx context.Context, collection string, filter Filter, order *Order, rng *Range) ([]Record, error) {
	sql := "SELECT data FROM documents WHERE collection = $1 AND data @> $2::jsonb"
	args := []any{collection, nest(filter)}

	if order != nil && order.Field != "" {
		args = append(args, order.Path())
		dir := "ASC"
		if order.Desc {
			dir = "DESC"
		}
		sql += fmt.Sprintf(" ORDER BY data #>> $%d::text[] %s, seq ASC", len(args), dir)
	} else {
		sql += " ORDER BY seq ASC"
	}

	if rng != nil {
		if rng.Limit > 0 {
			args = append(args, rng.Limit)
			sql += fmt.Sprintf(" LIMIT $%d", len(args))
		}
		if rng.Offset > 0 {
			args = append(args, rng.Offset)
			sql += fmt.Sprintf(" OFFSET $%d", len(args))
		}
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var data map[string]any
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", collection, err)
		}
		records = append(records, Record(data))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", collection, err)
	}

	return records, nil
}

func copyRecord(in Record) Record {
	out := make(Record, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}
