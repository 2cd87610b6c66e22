package biologicalexam

import (
	"errors"
	"strings"

	"github.com/ehr/maternity/internal/domain/interpret"
)

var (
	ErrStandardAct  = errors.New("standard acts cannot be removed")
	ErrDuplicateAct = errors.New("an act with this name already exists")
	ErrEmptyActName = errors.New("act name is required")
	ErrUnknownAct   = errors.New("act not found")
)

// StandardActs is the prenatal panel every new exam starts with.
var StandardActs = []Act{
	{Name: "Groupe sanguin", Standard: true},
	{Name: "RAI", Standard: true},
	{Name: "Hémoglobine", Unit: "g/dL", ReferenceRange: "11-16", Standard: true},
	{Name: "Plaquettes", Unit: "G/L", ReferenceRange: "150-400", Standard: true},
	{Name: "Glycémie à jeun", Unit: "g/L", ReferenceRange: "0.7-0.92", Standard: true},
	{Name: "Albuminurie", Standard: true},
	{Name: "Glucosurie", Standard: true},
	{Name: "Toxoplasmose", Standard: true},
	{Name: "Rubéole", Standard: true},
	{Name: "VIH", Standard: true},
	{Name: "Ag HBs", Standard: true},
	{Name: "TPHA-VDRL", Standard: true},
}

// ActsEditor holds the acts of an exam being edited. Names are compared
// without case or accents. It is not safe for concurrent use.
type ActsEditor struct {
	acts []Act
}

// NewActsEditor seeds the editor with the standard panel followed by the
// extra acts of existing (if any). Values already entered are kept.
func NewActsEditor(existing []Act) *ActsEditor {
	e := &ActsEditor{acts: make([]Act, len(StandardActs))}
	copy(e.acts, StandardActs)
	for _, a := range existing {
		if i := e.index(a.Name); i >= 0 {
			std := e.acts[i].Standard
			e.acts[i] = a
			e.acts[i].Standard = std || a.Standard
			continue
		}
		if strings.TrimSpace(a.Name) != "" {
			e.acts = append(e.acts, a)
		}
	}
	return e
}

// Acts returns a copy of the edited acts in display order.
func (e *ActsEditor) Acts() []Act {
	out := make([]Act, len(e.acts))
	copy(out, e.acts)
	return out
}

// SetValue records the value of the act named name.
func (e *ActsEditor) SetValue(name, value string) error {
	i := e.index(name)
	if i < 0 {
		return ErrUnknownAct
	}
	e.acts[i].Value = value
	return nil
}

// Add appends an ad-hoc act.
func (e *ActsEditor) Add(a Act) error {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return ErrEmptyActName
	}
	if e.index(a.Name) >= 0 {
		return ErrDuplicateAct
	}
	a.Standard = false
	e.acts = append(e.acts, a)
	return nil
}

// Remove drops an ad-hoc act.
func (e *ActsEditor) Remove(name string) error {
	i := e.index(name)
	if i < 0 {
		return ErrUnknownAct
	}
	if e.acts[i].Standard {
		return ErrStandardAct
	}
	e.acts = append(e.acts[:i], e.acts[i+1:]...)
	return nil
}

// Clear empties every value and drops the ad-hoc acts.
func (e *ActsEditor) Clear() {
	e.acts = make([]Act, len(StandardActs))
	copy(e.acts, StandardActs)
}

// Filled returns the acts that have a value, for submission.
func (e *ActsEditor) Filled() []Act {
	out := make([]Act, 0, len(e.acts))
	for _, a := range e.acts {
		if strings.TrimSpace(a.Value) != "" {
			out = append(out, a)
		}
	}
	return out
}

// Results interprets the filled acts.
func (e *ActsEditor) Results() []interpret.Result {
	return analyze(e.acts)
}

// Request builds the payload for consultationID from the filled acts.
func (e *ActsEditor) Request(consultationID, observation string) Request {
	return Request{ConsultationID: consultationID, Observation: observation, Acts: e.Filled()}
}

func (e *ActsEditor) index(name string) int {
	key := interpret.Fold(name)
	for i, a := range e.acts {
		if interpret.Fold(a.Name) == key {
			return i
		}
	}
	return -1
}
