package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresBackend stores every collection in one JSONB table
// (see internal/db/migrations).
type PostgresBackend struct {
	db *sql.DB
}

func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

func (p *PostgresBackend) Get(ctx context.Context, collection, id string) (Record, error) {
	const query = `
		SELECT data
		FROM documents
		WHERE collection = $1 AND id = $2`
	var data []byte
	err := p.db.QueryRowContext(ctx, query, collection, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	raw, err := decodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return Format(id, raw), nil
}

func (p *PostgresBackend) GetMany(ctx context.Context, collection string, ids []string) ([]Record, error) {
	if len(ids) == 0 {
		return nil, ErrEmptyMatchSet
	}

	const query = `
		SELECT id, data
		FROM documents
		WHERE collection = $1 AND id = ANY($2)`
	rows, err := p.db.QueryContext(ctx, query, collection, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	byID, _, err := scanDocuments(rows, collection)
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(byID))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			out = append(out, rec)
			delete(byID, id)
		}
	}
	return out, nil
}

func (p *PostgresBackend) Query(ctx context.Context, q Query) ([]Record, error) {
	match := make(map[string]any, len(q.Filters))
	for _, f := range q.Filters {
		match[f.Field] = f.Value
	}
	matchJSON, err := json.Marshal(match)
	if err != nil {
		return nil, fmt.Errorf("encode filters: %w", err)
	}

	const query = `
		SELECT id, data
		FROM documents
		WHERE collection = $1 AND data @> $2::jsonb
		ORDER BY seq`
	rows, err := p.db.QueryContext(ctx, query, q.Collection, matchJSON)
	if err != nil {
		return nil, err
	}
	_, records, err := scanDocuments(rows, q.Collection)
	if err != nil {
		return nil, err
	}
	return sortRecords(records, q.OrderBy, q.Descending), nil
}

func (p *PostgresBackend) Create(ctx context.Context, collection, id string, fields map[string]any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}

	const query = `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES ($1, $2, $3::jsonb, NOW(), NOW())
		ON CONFLICT (collection, id)
		DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`
	_, err = p.db.ExecContext(ctx, query, collection, id, data)
	return err
}

// Merge reads the row under a lock and rewrites it, so Increment values
// resolve against the stored document.
func (p *PostgresBackend) Merge(ctx context.Context, collection, id string, fields map[string]any) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const selectQuery = `
		SELECT data
		FROM documents
		WHERE collection = $1 AND id = $2
		FOR UPDATE`
	var current []byte
	if err := tx.QueryRowContext(ctx, selectQuery, collection, id).Scan(&current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	raw, err := decodeDocument(current)
	if err != nil {
		return fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	doc, ok := raw.(map[string]any)
	if !ok || doc == nil {
		doc = make(map[string]any, len(fields))
	}
	applyMerge(doc, fields)

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}

	const updateQuery = `
		UPDATE documents
		SET data = $3::jsonb,
			updated_at = NOW()
		WHERE collection = $1 AND id = $2`
	if _, err := tx.ExecContext(ctx, updateQuery, collection, id, data); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *PostgresBackend) Delete(ctx context.Context, collection, id string) error {
	const query = `DELETE FROM documents WHERE collection = $1 AND id = $2`
	_, err := p.db.ExecContext(ctx, query, collection, id)
	return err
}

func (p *PostgresBackend) Close() error {
	return p.db.Close()
}

func scanDocuments(rows *sql.Rows, collection string) (map[string]Record, []Record, error) {
	defer rows.Close()

	byID := make(map[string]Record)
	var records []Record
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, nil, err
		}
		raw, err := decodeDocument(data)
		if err != nil {
			return nil, nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
		rec := Format(id, raw)
		if rec == nil {
			continue
		}
		byID[id] = rec
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return byID, records, nil
}

// decodeDocument returns the stored JSON value as-is; a payload that is not
// an object is passed through so Format can reject it.
func decodeDocument(data []byte) (any, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
