package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/ehr/maternity/internal/platform/notification"
)

var actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "maternity_store_actions_total",
	Help: "Actions applied to state slices",
}, []string{"slice", "action"})

const defaultRecentLimit = 5

// Slice is the state container of one entity kind. Effects (Load, Create, ...)
// block on the remote call and dispatch the matching Started, success and
// Failed actions. Overlapping effects are not sequenced: their actions are
// applied in arrival order.
type Slice[T Entity, F any] struct {
	cfg      Config
	resource Resource[T]
	notifier notification.Notifier
	logger   zerolog.Logger

	mu      sync.Mutex
	deliver sync.Mutex // held across reduce and notify so subscribers see states in order
	state   State[T, F]
	subs    map[int]func(State[T, F])
	nextSub int
}

// New creates an empty slice backed by resource.
func New[T Entity, F any](cfg Config, resource Resource[T], notifier notification.Notifier, logger zerolog.Logger) *Slice[T, F] {
	if cfg.Label == "" {
		cfg.Label = cfg.Name
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = defaultRecentLimit
	}
	return &Slice[T, F]{
		cfg:      cfg,
		resource: resource,
		notifier: notifier,
		logger:   logger.With().Str("slice", cfg.Name).Logger(),
		subs:     make(map[int]func(State[T, F])),
	}
}

// Name returns the configured slice name.
func (s *Slice[T, F]) Name() string { return s.cfg.Name }

// State returns a snapshot of the current state.
func (s *Slice[T, F]) State() State[T, F] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to receive the state after every dispatched action.
// Calls are synchronous and in dispatch order; fn must not dispatch on the
// same slice.
func (s *Slice[T, F]) Subscribe(fn func(State[T, F])) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Dispatch applies a to the current state and notifies subscribers.
func (s *Slice[T, F]) Dispatch(a Action) State[T, F] {
	s.deliver.Lock()
	defer s.deliver.Unlock()

	s.mu.Lock()
	next := Reduce(s.state, a)
	s.state = next
	subs := make([]func(State[T, F]), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	actionsTotal.WithLabelValues(s.cfg.Name, string(a.Type())).Inc()
	for _, fn := range subs {
		fn(next)
	}
	return next
}

// Load fetches a page of the primary collection. With Incremental set, pages
// after the first are merged into the cached collection.
func (s *Slice[T, F]) Load(ctx context.Context, req PageRequest) error {
	s.Dispatch(Started{Op: OpLoad})
	page, err := s.resource.List(ctx, req)
	if err != nil {
		return s.fail(OpLoad, err)
	}
	s.Dispatch(Loaded[T]{
		Items:  page.Items,
		Info:   page.Info,
		Append: s.cfg.Incremental && req.Page > 0,
	})
	return nil
}

// LoadByParent fetches the entities owned by parentID into the scoped
// collection. A 404 from the remote is an empty parent. Other failures are
// returned unless SuppressParentErrors is set, in which case the result is
// empty with ParentFailed and a reason, and no error is stored or notified.
func (s *Slice[T, F]) LoadByParent(ctx context.Context, parentID string) (ParentResult[T], error) {
	s.Dispatch(Started{Op: OpLoadByParent})
	items, err := s.resource.ListByParent(ctx, parentID)
	if err != nil {
		if IsNotFound(err) {
			s.Dispatch(ParentLoaded[T]{ParentID: parentID, Status: ParentEmpty, Mirror: s.cfg.MirrorParentIntoPrimary})
			return ParentResult[T]{Status: ParentEmpty}, nil
		}
		msg := Message(err)
		if s.cfg.SuppressParentErrors {
			s.logger.Warn().Err(err).Str("parent_id", parentID).Msg("parent load failed, showing empty result")
			s.Dispatch(ParentLoaded[T]{ParentID: parentID, Status: ParentFailed, Reason: msg, Mirror: s.cfg.MirrorParentIntoPrimary})
			return ParentResult[T]{Status: ParentFailed, Reason: msg}, nil
		}
		return ParentResult[T]{Status: ParentFailed, Reason: msg}, s.fail(OpLoadByParent, err)
	}

	status := ParentReady
	if len(items) == 0 {
		status = ParentEmpty
		items = []T{}
	}
	s.Dispatch(ParentLoaded[T]{ParentID: parentID, Items: items, Status: status, Mirror: s.cfg.MirrorParentIntoPrimary})
	return ParentResult[T]{Status: status, Items: items}, nil
}

// LoadRecent replaces the recent collection with the server's latest entries.
func (s *Slice[T, F]) LoadRecent(ctx context.Context) error {
	s.Dispatch(Started{Op: OpLoadRecent})
	items, err := s.resource.Recent(ctx, s.cfg.RecentLimit)
	if err != nil {
		return s.fail(OpLoadRecent, err)
	}
	if len(items) > s.cfg.RecentLimit {
		items = items[:s.cfg.RecentLimit]
	}
	s.Dispatch(RecentLoaded[T]{Items: items})
	return nil
}

// Get fetches one entity and merges it into the cache.
func (s *Slice[T, F]) Get(ctx context.Context, id string) (T, error) {
	s.Dispatch(Started{Op: OpGet})
	item, err := s.resource.Get(ctx, id)
	if err != nil {
		var zero T
		return zero, s.fail(OpGet, err)
	}
	s.Dispatch(Fetched[T]{Item: item})
	return item, nil
}

// Create posts req and adds the returned entity to the cache.
func (s *Slice[T, F]) Create(ctx context.Context, req Request) (T, error) {
	s.Dispatch(Started{Op: OpCreate})
	if err := validate(req); err != nil {
		var zero T
		return zero, s.fail(OpCreate, err)
	}
	item, err := s.resource.Create(ctx, req)
	if err != nil {
		var zero T
		return zero, s.fail(OpCreate, err)
	}
	s.Dispatch(Created[T]{Item: item, RequestParent: req.ParentID()})
	notification.Success(s.notifier, s.cfg.Name, fmt.Sprintf("%s created successfully", s.cfg.Label))
	return item, nil
}

// Update puts req for id and replaces the entity in every cached collection.
func (s *Slice[T, F]) Update(ctx context.Context, id string, req Request) (T, error) {
	s.Dispatch(Started{Op: OpUpdate})
	if err := validate(req); err != nil {
		var zero T
		return zero, s.fail(OpUpdate, err)
	}
	item, err := s.resource.Update(ctx, id, req)
	if err != nil {
		var zero T
		return zero, s.fail(OpUpdate, err)
	}
	s.Dispatch(Updated[T]{Item: item})
	notification.Success(s.notifier, s.cfg.Name, fmt.Sprintf("%s updated successfully", s.cfg.Label))
	return item, nil
}

// Delete removes id remotely and from every cached collection.
func (s *Slice[T, F]) Delete(ctx context.Context, id string) error {
	s.Dispatch(Started{Op: OpDelete})
	if err := s.resource.Delete(ctx, id); err != nil {
		return s.fail(OpDelete, err)
	}
	s.Dispatch(Deleted{ID: id})
	notification.Success(s.notifier, s.cfg.Name, fmt.Sprintf("%s deleted successfully", s.cfg.Label))
	return nil
}

// Search replaces the primary collection with a filtered page. The scoped
// collection is left alone.
func (s *Slice[T, F]) Search(ctx context.Context, req SearchRequest) error {
	s.Dispatch(Started{Op: OpSearch})
	page, err := s.resource.Search(ctx, req)
	if err != nil {
		return s.fail(OpSearch, err)
	}
	s.Dispatch(Searched[T]{Items: page.Items, Info: page.Info})
	return nil
}

// Select sets the selected entity. An empty or unknown id clears the selection.
func (s *Slice[T, F]) Select(id string) {
	s.Dispatch(Selected{ID: id})
}

// SetFilter replaces the active filter.
func (s *Slice[T, F]) SetFilter(f F) {
	s.Dispatch(FilterSet[F]{Filter: f})
}

// ClearCache empties every collection so the next read reloads from the remote.
func (s *Slice[T, F]) ClearCache() {
	s.Dispatch(CacheCleared{})
}

// ClearError drops the stored error message.
func (s *Slice[T, F]) ClearError() {
	s.Dispatch(ErrorCleared{})
}

func (s *Slice[T, F]) fail(op Op, err error) error {
	msg := Message(err)
	s.logger.Error().Err(err).Str("op", string(op)).Msg("remote call failed")
	s.Dispatch(Failed{Op: op, Message: msg})
	notification.Error(s.notifier, s.cfg.Name, msg)
	return fmt.Errorf("%s %s: %w", s.cfg.Name, op, err)
}

func validate(req Request) error {
	if v, ok := req.(Validator); ok {
		return v.Validate()
	}
	return nil
}

// Message returns the user-facing text of err.
func Message(err error) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		if m := um.UserMessage(); m != "" {
			return m
		}
	}
	switch {
	case errors.Is(err, context.Canceled):
		return "The request was cancelled."
	case errors.Is(err, context.DeadlineExceeded):
		return "The server took too long to respond."
	}
	return err.Error()
}

// IsNotFound reports whether err carries a 404 status.
func IsNotFound(err error) bool {
	var sc interface{ StatusCode() int }
	return errors.As(err, &sc) && sc.StatusCode() == http.StatusNotFound
}
