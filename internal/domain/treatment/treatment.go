package treatment

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/maternity/internal/platform/apiclient"
	"github.com/ehr/maternity/internal/platform/notification"
	"github.com/ehr/maternity/internal/platform/store"
)

const Endpoint = "/treatments"

// Treatment is a medication prescribed during a consultation.
type Treatment struct {
	ID             string     `json:"id"`
	ConsultationID string     `json:"consultationId"`
	Medication     string     `json:"medication"`
	Dosage         string     `json:"dosage,omitempty"`
	Frequency      string     `json:"frequency,omitempty"`
	Route          string     `json:"route,omitempty"`
	StartDate      time.Time  `json:"startDate"`
	EndDate        *time.Time `json:"endDate,omitempty"`
	Instructions   string     `json:"instructions,omitempty"`
}

func (t Treatment) EntityID() string { return t.ID }
func (t Treatment) ParentID() string { return t.ConsultationID }

// ActiveOn reports whether the treatment covers day. Open-ended treatments
// stay active from their start date.
func (t Treatment) ActiveOn(day time.Time) bool {
	d := truncate(day)
	if d.Before(truncate(t.StartDate)) {
		return false
	}
	return t.EndDate == nil || !d.After(truncate(*t.EndDate))
}

// Request is the create and update payload.
type Request struct {
	ConsultationID string     `json:"consultationId"`
	Medication     string     `json:"medication"`
	Dosage         string     `json:"dosage,omitempty"`
	Frequency      string     `json:"frequency,omitempty"`
	Route          string     `json:"route,omitempty"`
	StartDate      time.Time  `json:"startDate"`
	EndDate        *time.Time `json:"endDate,omitempty"`
	Instructions   string     `json:"instructions,omitempty"`
}

func (r Request) ParentID() string { return r.ConsultationID }

func (r Request) Validate() error {
	switch {
	case r.ConsultationID == "":
		return errors.New("consultationId is required")
	case strings.TrimSpace(r.Medication) == "":
		return errors.New("medication is required")
	case r.StartDate.IsZero():
		return errors.New("startDate is required")
	case r.EndDate != nil && r.EndDate.Before(r.StartDate):
		return errors.New("endDate must not be before startDate")
	}
	return nil
}

// Filter narrows the cached treatments.
type Filter struct {
	Medication string
	ActiveOn   time.Time
}

type (
	Slice = store.Slice[Treatment, Filter]
	State = store.State[Treatment, Filter]
)

// Config returns the slice configuration. Treatment pages accumulate.
func Config() store.Config {
	return store.Config{
		Name:        "treatments",
		Label:       "Treatment",
		Incremental: true,
	}
}

// NewSlice wires the treatments slice to client.
func NewSlice(client *apiclient.Client, notifier notification.Notifier, logger zerolog.Logger) *Slice {
	res := apiclient.NewResource[Treatment](client, Endpoint, apiclient.DefaultParentSegment)
	return store.New[Treatment, Filter](Config(), res, notifier, logger)
}

// -- Selectors --

// GroupByMedication groups the cached treatments by medication name, case
// insensitively. Keys are returned sorted.
func GroupByMedication(s State) (map[string][]Treatment, []string) {
	groups, keys := store.GroupBy(s.Items, func(t Treatment) string {
		return strings.ToLower(strings.TrimSpace(t.Medication))
	})
	sort.Strings(keys)
	return groups, keys
}

// ActiveOn returns the cached treatments covering day.
func ActiveOn(s State, day time.Time) []Treatment {
	return store.Filter(s.Items, func(t Treatment) bool { return t.ActiveOn(day) })
}

// EndingSoon returns the treatments active at now whose end date falls
// within the next window, soonest first.
func EndingSoon(s State, now time.Time, window time.Duration) []Treatment {
	limit := truncate(now.Add(window))
	out := store.Filter(s.Items, func(t Treatment) bool {
		return t.EndDate != nil && t.ActiveOn(now) && !truncate(*t.EndDate).After(limit)
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].EndDate.Before(*out[j].EndDate) })
	return out
}

// Filtered applies the active filter.
func Filtered(s State) []Treatment {
	f := s.Filter
	return store.Filter(s.Items, func(t Treatment) bool {
		if !store.Contains(t.Medication, f.Medication) {
			return false
		}
		return f.ActiveOn.IsZero() || t.ActiveOn(f.ActiveOn)
	})
}

func truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
