package store

import (
	"strings"
	"time"
)

// Selectors are pure projections over a State. They never reach the remote
// and are safe on the zero State.

// ByID looks id up in the primary collection.
func ByID[T Entity, F any](s State[T, F], id string) (T, bool) {
	if i := indexOf(s.Items, id); i >= 0 {
		return s.Items[i], true
	}
	var zero T
	return zero, false
}

// Filter returns the cached items matching keep, in order.
func Filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0)
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// Count returns the number of cached items matching keep.
func Count[T any](items []T, keep func(T) bool) int {
	n := 0
	for _, it := range items {
		if keep(it) {
			n++
		}
	}
	return n
}

// GroupBy groups items by key. Keys keep their first-seen order in the
// returned slice.
func GroupBy[T any](items []T, key func(T) string) (map[string][]T, []string) {
	groups := make(map[string][]T)
	var order []string
	for _, it := range items {
		k := key(it)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], it)
	}
	return groups, order
}

// Average is the mean of the values value reports as present. ok is false
// when no item has a value.
func Average[T any](items []T, value func(T) (float64, bool)) (avg float64, ok bool) {
	var sum float64
	n := 0
	for _, it := range items {
		if v, present := value(it); present {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// Contains reports whether text contains keyword, ignoring case. An empty
// keyword matches everything.
func Contains(text, keyword string) bool {
	if keyword == "" {
		return true
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(keyword))
}

// InDateRange keeps items whose date falls within [from, to], both inclusive.
// A zero bound is open.
func InDateRange[T any](items []T, date func(T) time.Time, from, to time.Time) []T {
	return Filter(items, func(it T) bool {
		d := date(it)
		if d.IsZero() {
			return false
		}
		if !from.IsZero() && d.Before(from) {
			return false
		}
		if !to.IsZero() && d.After(to) {
			return false
		}
		return true
	})
}

// ForParent returns the cached items owned by parentID. It prefers the scoped
// collection when it is scoped to parentID.
func ForParent[T Entity, F any](s State[T, F], parentID string) []T {
	if s.ParentKey == parentID && s.ParentStatus != ParentIdle {
		return clone(nonNil(s.ByParent))
	}
	return Filter(s.Items, func(it T) bool { return it.ParentID() == parentID })
}

// Latest returns the item with the most recent date.
func Latest[T any](items []T, date func(T) time.Time) (T, bool) {
	var best T
	found := false
	var bestDate time.Time
	for _, it := range items {
		d := date(it)
		if !found || d.After(bestDate) {
			best, bestDate, found = it, d, true
		}
	}
	return best, found
}

// ViewStatus is a composite projection for presentation code.
type ViewStatus struct {
	IsLoading bool
	HasError  bool
	IsEmpty   bool
	// ScopedLoadFailed is set when the last parent load failed but was shown
	// as an empty result.
	ScopedLoadFailed bool
	NeedsAttention   bool
}

// Status combines the loading, error and emptiness flags of s.
func Status[T Entity, F any](s State[T, F]) ViewStatus {
	v := ViewStatus{
		IsLoading:        s.Loading,
		HasError:         s.Error != "",
		IsEmpty:          len(s.Items) == 0,
		ScopedLoadFailed: s.ParentStatus == ParentFailed,
	}
	v.NeedsAttention = !v.IsLoading && (v.HasError || v.ScopedLoadFailed)
	return v
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
