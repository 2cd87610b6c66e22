package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepo keeps documents as JSONB rows of the documents table.
type PGRepo struct {
	pool *pgxpool.Pool
}

func NewPGRepo(pool *pgxpool.Pool) *PGRepo {
	return &PGRepo{pool: pool}
}

func (r *PGRepo) List(ctx context.Context, collection string) ([]Document, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT body FROM documents
		WHERE collection = $1
		ORDER BY created_at, id`, collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return scanDocuments(rows)
}

func (r *PGRepo) ListByParent(ctx context.Context, collection, parentID string) ([]Document, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT body FROM documents
		WHERE collection = $1 AND parent_id = $2
		ORDER BY created_at, id`, collection, parentID)
	if err != nil {
		return nil, fmt.Errorf("list %s by parent: %w", collection, err)
	}
	return scanDocuments(rows)
}

func (r *PGRepo) Get(ctx context.Context, collection, id string) (Document, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `
		SELECT body FROM documents WHERE collection = $1 AND id = $2`, collection, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", collection, err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", collection, id, err)
	}
	return doc, nil
}

func (r *PGRepo) Put(ctx context.Context, collection, parentID string, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", collection, err)
	}
	var parent *string
	if parentID != "" {
		parent = &parentID
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO documents (collection, id, parent_id, body)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (collection, id)
		DO UPDATE SET parent_id = EXCLUDED.parent_id, body = EXCLUDED.body, updated_at = NOW()`,
		collection, doc.ID(), parent, body)
	if err != nil {
		return fmt.Errorf("put %s: %w", collection, err)
	}
	return nil
}

func (r *PGRepo) Delete(ctx context.Context, collection, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", collection, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDocuments(rows pgx.Rows) ([]Document, error) {
	defer rows.Close()
	out := []Document{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		var doc Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}
