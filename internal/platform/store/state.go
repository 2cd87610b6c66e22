// Package store implements the generic client-side state slice shared by every
// clinical entity kind. A Slice owns an in-memory cache of one entity kind,
// keeps it consistent with the remote resource through typed actions applied
// by a pure reducer, and exposes read projections over the resulting state.
package store

import (
	"context"
)

// Entity is a record persisted by the remote system. Identifiers are always
// assigned remotely.
type Entity interface {
	EntityID() string
	// ParentID returns the owning entity (consultation, pregnancy, patient)
	// or "" when the kind has no parent.
	ParentID() string
}

// Request is a create or update payload. It never carries an identifier.
type Request interface {
	ParentID() string
}

// Validator is implemented by requests that can be checked before sending.
type Validator interface {
	Validate() error
}

// PageRequest selects a page of the primary collection.
type PageRequest struct {
	Page    int
	Size    int
	SortBy  string
	SortDir string
}

// SearchRequest is a filtered, paginated query.
type SearchRequest struct {
	Term     string
	ParentID string
	Page     int
	Size     int
}

// PageInfo is the pagination metadata of the primary collection.
type PageInfo struct {
	Page    int    `json:"page"`
	Size    int    `json:"size"`
	Total   int    `json:"total"`
	SortBy  string `json:"sort_by,omitempty"`
	SortDir string `json:"sort_dir,omitempty"`
}

// Page is one page of a remote collection.
type Page[T any] struct {
	Items []T
	Info  PageInfo
}

// Resource is the remote collection a slice synchronizes with.
type Resource[T Entity] interface {
	List(ctx context.Context, req PageRequest) (Page[T], error)
	Get(ctx context.Context, id string) (T, error)
	ListByParent(ctx context.Context, parentID string) ([]T, error)
	Search(ctx context.Context, req SearchRequest) (Page[T], error)
	Recent(ctx context.Context, limit int) ([]T, error)
	Create(ctx context.Context, req Request) (T, error)
	Update(ctx context.Context, id string, req Request) (T, error)
	Delete(ctx context.Context, id string) error
}

// ParentStatus tells apart the outcomes of a parent-scoped load.
type ParentStatus string

const (
	ParentIdle   ParentStatus = ""
	ParentReady  ParentStatus = "loaded"
	ParentEmpty  ParentStatus = "empty"
	ParentFailed ParentStatus = "failed"
)

// ParentResult is returned by LoadByParent.
type ParentResult[T any] struct {
	Status ParentStatus
	Items  []T
	Reason string
}

// Config carries the entity-specific behavior injected into the generic engine.
type Config struct {
	// Name identifies the slice in logs, metrics and notifications.
	Name string
	// Label is the human-readable singular used in success toasts.
	Label string
	// Incremental makes Load with Page > 0 append instead of replace.
	Incremental bool
	// SuppressParentErrors downgrades LoadByParent failures into an empty
	// result with no error and no toast. The failure is still recorded in
	// State.ParentStatus.
	SuppressParentErrors bool
	// MirrorParentIntoPrimary makes LoadByParent overwrite Items as well.
	MirrorParentIntoPrimary bool
	// RecentLimit caps LoadRecent. Zero selects 5.
	RecentLimit int
}

// State is the full content of one slice. Zero value is a valid, empty state.
type State[T Entity, F any] struct {
	Items         []T          `json:"items"`
	ByParent      []T          `json:"by_parent"`
	ParentKey     string       `json:"parent_key,omitempty"`
	ParentStatus  ParentStatus `json:"parent_status,omitempty"`
	ParentFailure string       `json:"parent_failure,omitempty"`
	Recent        []T          `json:"recent"`
	SelectedID    string       `json:"selected_id,omitempty"`
	Selected      *T           `json:"selected,omitempty"`
	Pending       int          `json:"pending"`
	Loading       bool         `json:"loading"`
	Error         string       `json:"error,omitempty"`
	Page          PageInfo     `json:"page"`
	Filter        F            `json:"filter"`
	LastAction    ActionType   `json:"last_action,omitempty"`
}
