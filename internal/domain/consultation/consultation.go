package consultation

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/maternity/internal/platform/apiclient"
	"github.com/ehr/maternity/internal/platform/notification"
	"github.com/ehr/maternity/internal/platform/store"
)

const (
	Endpoint      = "/consultations"
	ParentSegment = "pregnancy"
)

// Consultation is one prenatal visit of a pregnancy.
type Consultation struct {
	ID          string    `json:"id"`
	Date        time.Time `json:"date"`
	Observation string    `json:"observation,omitempty"`
	PregnancyID string    `json:"pregnancyId"`
}

func (c Consultation) EntityID() string { return c.ID }
func (c Consultation) ParentID() string { return c.PregnancyID }

// Request is the create and update payload.
type Request struct {
	Date        time.Time `json:"date"`
	Observation string    `json:"observation,omitempty"`
	PregnancyID string    `json:"pregnancyId"`
}

func (r Request) ParentID() string { return r.PregnancyID }

func (r Request) Validate() error {
	if r.PregnancyID == "" {
		return errors.New("pregnancyId is required")
	}
	if r.Date.IsZero() {
		return errors.New("date is required")
	}
	return nil
}

// Filter narrows the cached consultations shown to the user.
type Filter struct {
	From    time.Time
	To      time.Time
	Keyword string
}

type (
	Slice = store.Slice[Consultation, Filter]
	State = store.State[Consultation, Filter]
)

// Config returns the slice configuration. Parent loads are shown as empty on
// failure so a pregnancy without consultations never blocks the view.
func Config() store.Config {
	return store.Config{
		Name:                 "consultations",
		Label:                "Consultation",
		SuppressParentErrors: true,
	}
}

// NewSlice wires the consultations slice to client.
func NewSlice(client *apiclient.Client, notifier notification.Notifier, logger zerolog.Logger) *Slice {
	res := apiclient.NewResource[Consultation](client, Endpoint, ParentSegment)
	return store.New[Consultation, Filter](Config(), res, notifier, logger)
}

// -- Selectors --

func date(c Consultation) time.Time { return c.Date }

// InRange returns the cached consultations dated within [from, to].
func InRange(s State, from, to time.Time) []Consultation {
	return store.InDateRange(s.Items, date, from, to)
}

// WithKeyword returns the cached consultations whose observation contains kw.
func WithKeyword(s State, kw string) []Consultation {
	return store.Filter(s.Items, func(c Consultation) bool { return store.Contains(c.Observation, kw) })
}

// Latest returns the most recent consultation of pregnancyID.
func Latest(s State, pregnancyID string) (Consultation, bool) {
	return store.Latest(store.ForParent(s, pregnancyID), date)
}

// Filtered applies the active filter.
func Filtered(s State) []Consultation {
	f := s.Filter
	return store.Filter(store.InDateRange(s.Items, date, f.From, f.To), func(c Consultation) bool {
		return store.Contains(c.Observation, f.Keyword)
	})
}
