package pregnancy

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/maternity/internal/platform/apiclient"
	"github.com/ehr/maternity/internal/platform/notification"
	"github.com/ehr/maternity/internal/platform/store"
)

const (
	Endpoint      = "/pregnancies"
	ParentSegment = "patient"

	// TermDays is the length of a pregnancy counted from the last menstrual period.
	TermDays = 280
)

type Status string

const (
	StatusOngoing    Status = "ongoing"
	StatusDelivered  Status = "delivered"
	StatusTerminated Status = "terminated"
)

type Pregnancy struct {
	ID                  string     `json:"id"`
	PatientID           string     `json:"patientId"`
	LastMenstrualPeriod time.Time  `json:"lastMenstrualPeriod"`
	ExpectedDelivery    *time.Time `json:"expectedDeliveryDate,omitempty"`
	Gravidity           int        `json:"gravidity"`
	Parity              int        `json:"parity"`
	Status              Status     `json:"status"`
	RiskFactors         string     `json:"riskFactors,omitempty"`
}

func (p Pregnancy) EntityID() string { return p.ID }
func (p Pregnancy) ParentID() string { return p.PatientID }

// GestationalAge is the time elapsed since the last menstrual period, in
// completed weeks and remaining days.
func GestationalAge(lmp, now time.Time) (weeks, days int) {
	d := int(truncate(now).Sub(truncate(lmp)).Hours() / 24)
	if d < 0 {
		return 0, 0
	}
	return d / 7, d % 7
}

// GestationalWeeks is GestationalAge as fractional weeks, the unit the
// ultrasound growth curves use.
func GestationalWeeks(lmp, now time.Time) float64 {
	w, d := GestationalAge(lmp, now)
	return float64(w) + float64(d)/7
}

// DueDate is the recorded expected delivery date, or LMP plus 280 days.
func (p Pregnancy) DueDate() time.Time {
	if p.ExpectedDelivery != nil {
		return *p.ExpectedDelivery
	}
	return truncate(p.LastMenstrualPeriod).AddDate(0, 0, TermDays)
}

// Trimester at now: 1 before 14 weeks, 2 before 28, then 3.
func (p Pregnancy) Trimester(now time.Time) int {
	w, _ := GestationalAge(p.LastMenstrualPeriod, now)
	switch {
	case w < 14:
		return 1
	case w < 28:
		return 2
	}
	return 3
}

type Request struct {
	PatientID           string     `json:"patientId"`
	LastMenstrualPeriod time.Time  `json:"lastMenstrualPeriod"`
	ExpectedDelivery    *time.Time `json:"expectedDeliveryDate,omitempty"`
	Gravidity           int        `json:"gravidity"`
	Parity              int        `json:"parity"`
	Status              Status     `json:"status,omitempty"`
	RiskFactors         string     `json:"riskFactors,omitempty"`
}

func (r Request) ParentID() string { return r.PatientID }

func (r Request) Validate() error {
	switch {
	case r.PatientID == "":
		return errors.New("patientId is required")
	case r.LastMenstrualPeriod.IsZero():
		return errors.New("lastMenstrualPeriod is required")
	case r.Parity > r.Gravidity:
		return errors.New("parity cannot exceed gravidity")
	}
	return nil
}

type Filter struct {
	Status Status
}

type (
	Slice = store.Slice[Pregnancy, Filter]
	State = store.State[Pregnancy, Filter]
)

func Config() store.Config {
	return store.Config{Name: "pregnancies", Label: "Pregnancy"}
}

// NewSlice wires the pregnancies slice to client.
func NewSlice(client *apiclient.Client, notifier notification.Notifier, logger zerolog.Logger) *Slice {
	res := apiclient.NewResource[Pregnancy](client, Endpoint, ParentSegment)
	return store.New[Pregnancy, Filter](Config(), res, notifier, logger)
}

// -- Selectors --

// Current returns the ongoing pregnancy of patientID with the latest LMP.
func Current(s State, patientID string) (Pregnancy, bool) {
	ongoing := store.Filter(store.ForParent(s, patientID), func(p Pregnancy) bool { return p.Status == StatusOngoing })
	return store.Latest(ongoing, func(p Pregnancy) time.Time { return p.LastMenstrualPeriod })
}

// DueWithin returns the ongoing pregnancies due between now and now+window.
func DueWithin(s State, now time.Time, window time.Duration) []Pregnancy {
	return store.InDateRange(
		store.Filter(s.Items, func(p Pregnancy) bool { return p.Status == StatusOngoing }),
		Pregnancy.DueDate, truncate(now), now.Add(window),
	)
}

func Filtered(s State) []Pregnancy {
	if s.Filter.Status == "" {
		return s.Items
	}
	return store.Filter(s.Items, func(p Pregnancy) bool { return p.Status == s.Filter.Status })
}

func truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
