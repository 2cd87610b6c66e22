package store

// Reduce returns the state that results from applying a to s. It never
// mutates s: every collection it changes is copied first.
func Reduce[T Entity, F any](s State[T, F], a Action) State[T, F] {
	switch a := a.(type) {
	case Started:
		s.Pending++
		s.Loading = true
		s.Error = ""

	case Failed:
		s = settle(s)
		s.Error = a.Message

	case Loaded[T]:
		s = settle(s)
		if a.Append {
			s.Items = upsertAll(s.Items, a.Items)
		} else {
			s.Items = clone(a.Items)
		}
		s.Page = a.Info
		s = reselect(s)

	case ParentLoaded[T]:
		s = settle(s)
		s.ParentKey = a.ParentID
		s.ParentStatus = a.Status
		s.ParentFailure = a.Reason
		s.ByParent = clone(a.Items)
		if a.Mirror {
			s.Items = clone(a.Items)
			s = reselect(s)
		}

	case RecentLoaded[T]:
		s = settle(s)
		s.Recent = clone(a.Items)

	case Fetched[T]:
		s = settle(s)
		s.Items = upsert(s.Items, a.Item)
		s = replaceEverywhere(s, a.Item)

	case Created[T]:
		s = settle(s)
		before := len(s.Items)
		s.Items = upsert(s.Items, a.Item)
		if len(s.Items) > before {
			s.Page.Total++
		}
		parent := a.RequestParent
		if parent == "" {
			parent = a.Item.ParentID()
		}
		if s.ParentKey != "" && parent == s.ParentKey {
			s.ByParent = upsert(s.ByParent, a.Item)
			if s.ParentStatus == ParentEmpty || s.ParentStatus == ParentIdle {
				s.ParentStatus = ParentReady
			}
		}

	case Updated[T]:
		s = settle(s)
		s = replaceEverywhere(s, a.Item)
		// The scoped view follows the entity's parent in both directions.
		if s.ParentKey != "" && a.Item.ParentID() != "" {
			if a.Item.ParentID() == s.ParentKey {
				s.ByParent = upsert(s.ByParent, a.Item)
				if s.ParentStatus == ParentEmpty {
					s.ParentStatus = ParentReady
				}
			} else {
				s.ByParent = remove(s.ByParent, a.Item.EntityID())
			}
		}

	case Deleted:
		s = settle(s)
		before := len(s.Items)
		s.Items = remove(s.Items, a.ID)
		if len(s.Items) < before && s.Page.Total > 0 {
			s.Page.Total--
		}
		s.ByParent = remove(s.ByParent, a.ID)
		s.Recent = remove(s.Recent, a.ID)
		if s.SelectedID == a.ID {
			s.SelectedID = ""
			s.Selected = nil
		}

	case Searched[T]:
		s = settle(s)
		s.Items = clone(a.Items)
		s.Page = a.Info
		s = reselect(s)

	case Selected:
		s = selectID(s, a.ID)

	case FilterSet[F]:
		s.Filter = a.Filter

	case CacheCleared:
		s.Items = nil
		s.ByParent = nil
		s.Recent = nil
		s.ParentKey = ""
		s.ParentStatus = ParentIdle
		s.ParentFailure = ""
		s.SelectedID = ""
		s.Selected = nil
		s.Page = PageInfo{}

	case ErrorCleared:
		s.Error = ""

	default:
		return s
	}

	s.LastAction = a.Type()
	return s
}

// settle completes one outstanding request.
func settle[T Entity, F any](s State[T, F]) State[T, F] {
	if s.Pending > 0 {
		s.Pending--
	}
	s.Loading = s.Pending > 0
	return s
}

func selectID[T Entity, F any](s State[T, F], id string) State[T, F] {
	s.SelectedID = ""
	s.Selected = nil
	if id == "" {
		return s
	}
	if i := indexOf(s.Items, id); i >= 0 {
		item := s.Items[i]
		s.SelectedID = id
		s.Selected = &item
	}
	return s
}

// reselect re-resolves the selection against the current primary collection.
func reselect[T Entity, F any](s State[T, F]) State[T, F] {
	if s.SelectedID == "" {
		return s
	}
	return selectID(s, s.SelectedID)
}

func replaceEverywhere[T Entity, F any](s State[T, F], item T) State[T, F] {
	id := item.EntityID()
	s.Items = replace(s.Items, item)
	s.ByParent = replace(s.ByParent, item)
	s.Recent = replace(s.Recent, item)
	if s.SelectedID == id {
		s.Selected = &item
	}
	return s
}

func indexOf[T Entity](items []T, id string) int {
	for i, it := range items {
		if it.EntityID() == id {
			return i
		}
	}
	return -1
}

func clone[T any](items []T) []T {
	if items == nil {
		return nil
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}

// upsert replaces the entry with item's id or appends item.
func upsert[T Entity](items []T, item T) []T {
	out := clone(items)
	if i := indexOf(out, item.EntityID()); i >= 0 {
		out[i] = item
		return out
	}
	return append(out, item)
}

func upsertAll[T Entity](items, more []T) []T {
	out := clone(items)
	for _, it := range more {
		if i := indexOf(out, it.EntityID()); i >= 0 {
			out[i] = it
			continue
		}
		out = append(out, it)
	}
	return out
}

// replace swaps the entry with item's id; items without it are returned as is.
func replace[T Entity](items []T, item T) []T {
	i := indexOf(items, item.EntityID())
	if i < 0 {
		return items
	}
	out := clone(items)
	out[i] = item
	return out
}

func remove[T Entity](items []T, id string) []T {
	if indexOf(items, id) < 0 {
		return items
	}
	out := make([]T, 0, len(items)-1)
	for _, it := range items {
		if it.EntityID() != id {
			out = append(out, it)
		}
	}
	return out
}
