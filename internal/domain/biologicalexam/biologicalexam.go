package biologicalexam

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/maternity/internal/domain/interpret"
	"github.com/ehr/maternity/internal/platform/apiclient"
	"github.com/ehr/maternity/internal/platform/notification"
	"github.com/ehr/maternity/internal/platform/store"
)

const Endpoint = "/biological-exams"

// Act is one laboratory test of an exam.
type Act struct {
	Name           string `json:"name"`
	Value          string `json:"value,omitempty"`
	Unit           string `json:"unit,omitempty"`
	ReferenceRange string `json:"referenceRange,omitempty"`
	Standard       bool   `json:"standard,omitempty"`
}

func (a Act) toInterpret() interpret.Act {
	return interpret.Act{Name: a.Name, Value: a.Value, Unit: a.Unit, ReferenceRange: a.ReferenceRange}
}

// BiologicalExam is the set of laboratory results attached to a consultation.
type BiologicalExam struct {
	ID             string     `json:"id"`
	ConsultationID string     `json:"consultationId"`
	ExamDate       *time.Time `json:"examDate,omitempty"`
	Observation    string     `json:"observation,omitempty"`
	Acts           []Act      `json:"acts"`
}

func (e BiologicalExam) EntityID() string { return e.ID }
func (e BiologicalExam) ParentID() string { return e.ConsultationID }

// Results interprets the acts that have a value.
func (e BiologicalExam) Results() []interpret.Result {
	return analyze(e.Acts)
}

// Request is the create and update payload.
type Request struct {
	ConsultationID string     `json:"consultationId"`
	ExamDate       *time.Time `json:"examDate,omitempty"`
	Observation    string     `json:"observation,omitempty"`
	Acts           []Act      `json:"acts"`
}

func (r Request) ParentID() string { return r.ConsultationID }

func (r Request) Validate() error {
	if r.ConsultationID == "" {
		return errors.New("consultationId is required")
	}
	for _, a := range r.Acts {
		if a.Name == "" {
			return errors.New("every act needs a name")
		}
	}
	return nil
}

// Filter selects exams by consultation.
type Filter struct {
	ConsultationID string
	AbnormalOnly   bool
}

type (
	Slice = store.Slice[BiologicalExam, Filter]
	State = store.State[BiologicalExam, Filter]
)

func Config() store.Config {
	return store.Config{
		Name:                 "biologicalExams",
		Label:                "Biological exam",
		SuppressParentErrors: true,
	}
}

// NewSlice wires the biological exams slice to client.
func NewSlice(client *apiclient.Client, notifier notification.Notifier, logger zerolog.Logger) *Slice {
	res := apiclient.NewResource[BiologicalExam](client, Endpoint, apiclient.DefaultParentSegment)
	return store.New[BiologicalExam, Filter](Config(), res, notifier, logger)
}

func analyze(acts []Act) []interpret.Result {
	in := make([]interpret.Act, len(acts))
	for i, a := range acts {
		in[i] = a.toInterpret()
	}
	return interpret.AnalyzeActs(in)
}

// -- Selectors --

// Flagged pairs an exam with its abnormal results.
type Flagged struct {
	Exam      BiologicalExam
	Anomalies []interpret.Result
	Worst     interpret.Status
}

// WithAnomalies returns the cached exams having at least one abnormal act.
func WithAnomalies(s State) []Flagged {
	out := make([]Flagged, 0)
	for _, e := range s.Items {
		results := e.Results()
		if anomalies := interpret.Anomalies(results); len(anomalies) > 0 {
			out = append(out, Flagged{Exam: e, Anomalies: anomalies, Worst: interpret.Worst(results)})
		}
	}
	return out
}

// Critical returns the cached exams with a critical result.
func Critical(s State) []BiologicalExam {
	return store.Filter(s.Items, func(e BiologicalExam) bool {
		return interpret.Worst(e.Results()) == interpret.StatusCritical
	})
}

// ForConsultation returns the exams of consultationID.
func ForConsultation(s State, consultationID string) []BiologicalExam {
	return store.ForParent(s, consultationID)
}

// Filtered applies the active filter.
func Filtered(s State) []BiologicalExam {
	items := s.Items
	if s.Filter.ConsultationID != "" {
		items = store.ForParent(s, s.Filter.ConsultationID)
	}
	if !s.Filter.AbnormalOnly {
		return items
	}
	return store.Filter(items, func(e BiologicalExam) bool {
		return len(interpret.Anomalies(e.Results())) > 0
	})
}
