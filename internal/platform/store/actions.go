package store

// ActionType names an action in logs and in State.LastAction.
type ActionType string

// Op identifies the remote operation an action belongs to.
type Op string

const (
	OpLoad         Op = "load"
	OpLoadByParent Op = "load_by_parent"
	OpLoadRecent   Op = "load_recent"
	OpGet          Op = "get"
	OpCreate       Op = "create"
	OpUpdate       Op = "update"
	OpDelete       Op = "delete"
	OpSearch       Op = "search"
)

// Action is an event applied to a slice by the reducer.
type Action interface {
	Type() ActionType
}

// Started is dispatched before a remote call is issued.
type Started struct {
	Op Op
}

func (a Started) Type() ActionType { return ActionType(string(a.Op) + "/started") }

// Failed carries the user-facing message of a failed remote call.
type Failed struct {
	Op      Op
	Message string
}

func (a Failed) Type() ActionType { return ActionType(string(a.Op) + "/failed") }

// Loaded carries a page of the primary collection. Append merges the page into
// the existing collection instead of replacing it.
type Loaded[T Entity] struct {
	Items  []T
	Info   PageInfo
	Append bool
}

func (Loaded[T]) Type() ActionType { return "load/succeeded" }

// ParentLoaded carries the outcome of a parent-scoped load.
type ParentLoaded[T Entity] struct {
	ParentID string
	Items    []T
	Status   ParentStatus
	Reason   string
	// Mirror also replaces the primary collection.
	Mirror bool
}

func (ParentLoaded[T]) Type() ActionType { return "load_by_parent/succeeded" }

// RecentLoaded replaces the recent collection.
type RecentLoaded[T Entity] struct {
	Items []T
}

func (RecentLoaded[T]) Type() ActionType { return "load_recent/succeeded" }

// Fetched carries a single entity read by id.
type Fetched[T Entity] struct {
	Item T
}

func (Fetched[T]) Type() ActionType { return "get/succeeded" }

// Created carries the entity returned by the remote after a create.
// RequestParent is the parent id of the originating request.
type Created[T Entity] struct {
	Item          T
	RequestParent string
}

func (Created[T]) Type() ActionType { return "create/succeeded" }

// Updated carries the entity returned by the remote after an update.
type Updated[T Entity] struct {
	Item T
}

func (Updated[T]) Type() ActionType { return "update/succeeded" }

// Deleted removes ID from every collection.
type Deleted struct {
	ID string
}

func (Deleted) Type() ActionType { return "delete/succeeded" }

// Searched carries the result page of a search.
type Searched[T Entity] struct {
	Items []T
	Info  PageInfo
}

func (Searched[T]) Type() ActionType { return "search/succeeded" }

// Selected sets or, with an empty ID, clears the selection.
type Selected struct {
	ID string
}

func (Selected) Type() ActionType { return "select" }

// FilterSet replaces the active filter.
type FilterSet[F any] struct {
	Filter F
}

func (FilterSet[F]) Type() ActionType { return "filter/set" }

// CacheCleared empties every collection.
type CacheCleared struct{}

func (CacheCleared) Type() ActionType { return "cache/cleared" }

// ErrorCleared drops the stored error message.
type ErrorCleared struct{}

func (ErrorCleared) Type() ActionType { return "error/cleared" }
