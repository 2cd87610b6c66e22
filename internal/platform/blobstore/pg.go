package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore keeps blobs in the blobs table.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Put(ctx context.Context, meta Metadata, content io.Reader) (*Metadata, error) {
	meta, data, err := prepare(meta, content)
	if err != nil {
		return nil, err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO blobs (id, file_name, content_type, size, hash, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		meta.ID, meta.FileName, meta.ContentType, meta.Size, meta.Hash, data, meta.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert blob: %w", err)
	}
	return &meta, nil
}

func (s *PGStore) Open(ctx context.Context, id string) (io.ReadCloser, *Metadata, error) {
	var m Metadata
	var data []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, file_name, content_type, size, hash, created_at, content
		FROM blobs WHERE id = $1`, id).
		Scan(&m.ID, &m.FileName, &m.ContentType, &m.Size, &m.Hash, &m.CreatedAt, &data)
	if err != nil {
		return nil, nil, notFound(err)
	}
	return io.NopCloser(bytes.NewReader(data)), &m, nil
}

func (s *PGStore) Stat(ctx context.Context, id string) (*Metadata, error) {
	var m Metadata
	err := s.pool.QueryRow(ctx, `
		SELECT id, file_name, content_type, size, hash, created_at
		FROM blobs WHERE id = $1`, id).
		Scan(&m.ID, &m.FileName, &m.ContentType, &m.Size, &m.Hash, &m.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM blobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBlobNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrBlobNotFound
	}
	return fmt.Errorf("query blob: %w", err)
}
