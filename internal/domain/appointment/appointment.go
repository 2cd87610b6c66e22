package appointment

import (
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/maternity/internal/platform/apiclient"
	"github.com/ehr/maternity/internal/platform/notification"
	"github.com/ehr/maternity/internal/platform/store"
)

const (
	Endpoint      = "/appointments"
	ParentSegment = "pregnancy"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusDone      Status = "done"
	StatusCancelled Status = "cancelled"
	StatusMissed    Status = "missed"
)

type Appointment struct {
	ID          string    `json:"id"`
	PregnancyID string    `json:"pregnancyId"`
	ScheduledAt time.Time `json:"scheduledAt"`
	Reason      string    `json:"reason,omitempty"`
	Status      Status    `json:"status"`
	Notes       string    `json:"notes,omitempty"`
}

func (a Appointment) EntityID() string { return a.ID }
func (a Appointment) ParentID() string { return a.PregnancyID }

type Request struct {
	PregnancyID string    `json:"pregnancyId"`
	ScheduledAt time.Time `json:"scheduledAt"`
	Reason      string    `json:"reason,omitempty"`
	Status      Status    `json:"status,omitempty"`
	Notes       string    `json:"notes,omitempty"`
}

func (r Request) ParentID() string { return r.PregnancyID }

func (r Request) Validate() error {
	if r.PregnancyID == "" {
		return errors.New("pregnancyId is required")
	}
	if r.ScheduledAt.IsZero() {
		return errors.New("scheduledAt is required")
	}
	return nil
}

type Filter struct {
	Status Status
	From   time.Time
	To     time.Time
}

type (
	Slice = store.Slice[Appointment, Filter]
	State = store.State[Appointment, Filter]
)

// Config returns the slice configuration. Appointment pages accumulate so the
// agenda can scroll.
func Config() store.Config {
	return store.Config{
		Name:        "appointments",
		Label:       "Appointment",
		Incremental: true,
	}
}

// NewSlice wires the appointments slice to client.
func NewSlice(client *apiclient.Client, notifier notification.Notifier, logger zerolog.Logger) *Slice {
	res := apiclient.NewResource[Appointment](client, Endpoint, ParentSegment)
	return store.New[Appointment, Filter](Config(), res, notifier, logger)
}

// -- Selectors --

func scheduled(a Appointment) time.Time { return a.ScheduledAt }

// Upcoming returns the scheduled appointments at or after now, soonest first.
func Upcoming(s State, now time.Time) []Appointment {
	out := store.Filter(s.Items, func(a Appointment) bool {
		return a.Status == StatusScheduled && !a.ScheduledAt.Before(now)
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out
}

// Next returns the next scheduled appointment of pregnancyID.
func Next(s State, pregnancyID string, now time.Time) (Appointment, bool) {
	for _, a := range Upcoming(s, now) {
		if a.PregnancyID == pregnancyID {
			return a, true
		}
	}
	return Appointment{}, false
}

// Overdue returns the appointments still scheduled but already past.
func Overdue(s State, now time.Time) []Appointment {
	return store.Filter(s.Items, func(a Appointment) bool {
		return a.Status == StatusScheduled && a.ScheduledAt.Before(now)
	})
}

func Filtered(s State) []Appointment {
	f := s.Filter
	return store.Filter(store.InDateRange(s.Items, scheduled, f.From, f.To), func(a Appointment) bool {
		return f.Status == "" || a.Status == f.Status
	})
}
