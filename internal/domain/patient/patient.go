package patient

import (
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/maternity/internal/platform/apiclient"
	"github.com/ehr/maternity/internal/platform/notification"
	"github.com/ehr/maternity/internal/platform/store"
)

const Endpoint = "/patients"

type Patient struct {
	ID         string     `json:"id"`
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	BirthDate  *time.Time `json:"birthDate,omitempty"`
	Phone      string     `json:"phone,omitempty"`
	Address    string     `json:"address,omitempty"`
	BloodGroup string     `json:"bloodGroup,omitempty"`
}

func (p Patient) EntityID() string { return p.ID }

// ParentID is empty: patients are top-level.
func (p Patient) ParentID() string { return "" }

func (p Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Age in whole years at now, or false without a birth date.
func (p Patient) Age(now time.Time) (int, bool) {
	if p.BirthDate == nil {
		return 0, false
	}
	b := *p.BirthDate
	years := now.Year() - b.Year()
	if now.Month() < b.Month() || (now.Month() == b.Month() && now.Day() < b.Day()) {
		years--
	}
	return years, true
}

type Request struct {
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	BirthDate  *time.Time `json:"birthDate,omitempty"`
	Phone      string     `json:"phone,omitempty"`
	Address    string     `json:"address,omitempty"`
	BloodGroup string     `json:"bloodGroup,omitempty"`
}

func (r Request) ParentID() string { return "" }

func (r Request) Validate() error {
	if strings.TrimSpace(r.FirstName) == "" || strings.TrimSpace(r.LastName) == "" {
		return errors.New("firstName and lastName are required")
	}
	if r.BirthDate != nil && r.BirthDate.After(time.Now()) {
		return errors.New("birthDate must be in the past")
	}
	return nil
}

// Filter is a local name filter over the cached page.
type Filter struct {
	Name string
}

type (
	Slice = store.Slice[Patient, Filter]
	State = store.State[Patient, Filter]
)

func Config() store.Config {
	return store.Config{Name: "patients", Label: "Patient"}
}

// NewSlice wires the patients slice to client.
func NewSlice(client *apiclient.Client, notifier notification.Notifier, logger zerolog.Logger) *Slice {
	res := apiclient.NewResource[Patient](client, Endpoint, "")
	return store.New[Patient, Filter](Config(), res, notifier, logger)
}

// -- Selectors --

// Filtered matches the filter against first and last names.
func Filtered(s State) []Patient {
	return store.Filter(s.Items, func(p Patient) bool { return store.Contains(p.FullName(), s.Filter.Name) })
}

// ByBloodGroup counts the cached patients per blood group.
func ByBloodGroup(s State) map[string]int {
	groups, _ := store.GroupBy(s.Items, func(p Patient) string { return strings.ToUpper(p.BloodGroup) })
	out := make(map[string]int, len(groups))
	for k, v := range groups {
		out[k] = len(v)
	}
	return out
}
