// Package devserver is a development backend speaking the same REST
// conventions as the clinical API: paged lists, parent-scoped listings,
// search, recent items, JSON or multipart writes and bearer auth.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
)

var ErrNotFound = errors.New("document not found")

// Document is a stored entity in its JSON form.
type Document map[string]interface{}

// ID returns the "id" field.
func (d Document) ID() string {
	return d.String("id")
}

// String returns field as a string, formatting non-string values.
func (d Document) String(field string) string {
	switch v := d[field].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Repository stores documents per collection, in creation order.
type Repository interface {
	List(ctx context.Context, collection string) ([]Document, error)
	ListByParent(ctx context.Context, collection, parentID string) ([]Document, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	// Put inserts doc or replaces the document with the same id, keeping its
	// position.
	Put(ctx context.Context, collection, parentID string, doc Document) error
	Delete(ctx context.Context, collection, id string) error
}

// -- In-memory repository --

type memDoc struct {
	parentID string
	doc      Document
}

type memCollection struct {
	order []string
	docs  map[string]memDoc
}

// MemoryRepo is a thread-safe in-memory Repository.
type MemoryRepo struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{collections: make(map[string]*memCollection)}
}

func (r *MemoryRepo) List(_ context.Context, collection string) ([]Document, error) {
	return r.filter(collection, func(memDoc) bool { return true }), nil
}

func (r *MemoryRepo) ListByParent(_ context.Context, collection, parentID string) ([]Document, error) {
	return r.filter(collection, func(d memDoc) bool { return d.parentID == parentID }), nil
}

func (r *MemoryRepo) filter(collection string, keep func(memDoc) bool) []Document {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Document{}
	col, ok := r.collections[collection]
	if !ok {
		return out
	}
	for _, id := range col.order {
		if d := col.docs[id]; keep(d) {
			out = append(out, maps.Clone(d.doc))
		}
	}
	return out
}

func (r *MemoryRepo) Get(_ context.Context, collection, id string) (Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	col, ok := r.collections[collection]
	if !ok {
		return nil, ErrNotFound
	}
	d, ok := col.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return maps.Clone(d.doc), nil
}

func (r *MemoryRepo) Put(_ context.Context, collection, parentID string, doc Document) error {
	id := doc.ID()
	if id == "" {
		return errors.New("document has no id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	col, ok := r.collections[collection]
	if !ok {
		col = &memCollection{docs: make(map[string]memDoc)}
		r.collections[collection] = col
	}
	if _, exists := col.docs[id]; !exists {
		col.order = append(col.order, id)
	}
	col.docs[id] = memDoc{parentID: parentID, doc: maps.Clone(doc)}
	return nil
}

func (r *MemoryRepo) Delete(_ context.Context, collection, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	col, ok := r.collections[collection]
	if !ok {
		return ErrNotFound
	}
	if _, ok := col.docs[id]; !ok {
		return ErrNotFound
	}
	delete(col.docs, id)
	for i, v := range col.order {
		if v == id {
			col.order = append(col.order[:i], col.order[i+1:]...)
			break
		}
	}
	return nil
}
