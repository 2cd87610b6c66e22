package clinicalexam

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/maternity/internal/domain/interpret"
	"github.com/ehr/maternity/internal/platform/apiclient"
	"github.com/ehr/maternity/internal/platform/notification"
	"github.com/ehr/maternity/internal/platform/store"
)

const Endpoint = "/clinical-exams"

// ClinicalExam holds the vitals and obstetric measurements taken during a
// consultation.
type ClinicalExam struct {
	ID             string     `json:"id"`
	ConsultationID string     `json:"consultationId"`
	ExamDate       *time.Time `json:"examDate,omitempty"`
	Weight         *float64   `json:"weight,omitempty"`
	Height         *float64   `json:"height,omitempty"`
	BloodPressure  string     `json:"bloodPressure,omitempty"`
	Temperature    *float64   `json:"temperature,omitempty"`
	HeartRate      *float64   `json:"heartRate,omitempty"`
	FundalHeight   *float64   `json:"fundalHeight,omitempty"`
	FetalHeartRate *float64   `json:"fetalHeartRate,omitempty"`
	GeneralExam    string     `json:"generalExam,omitempty"`
	ObstetricExam  string     `json:"obstetricExam,omitempty"`
	Observation    string     `json:"observation,omitempty"`
}

func (e ClinicalExam) EntityID() string { return e.ID }
func (e ClinicalExam) ParentID() string { return e.ConsultationID }

// Vitals returns the readings the interpreters know about.
func (e ClinicalExam) Vitals() interpret.Vitals {
	return interpret.Vitals{
		BloodPressure:  e.BloodPressure,
		Temperature:    e.Temperature,
		HeartRate:      e.HeartRate,
		FetalHeartRate: e.FetalHeartRate,
	}
}

// BMI is weight (kg) over height (cm) squared, when both are known.
func (e ClinicalExam) BMI() (float64, bool) {
	if e.Weight == nil || e.Height == nil || *e.Height <= 0 {
		return 0, false
	}
	m := *e.Height / 100
	return *e.Weight / (m * m), true
}

// Request is the create and update payload.
type Request struct {
	ConsultationID string     `json:"consultationId"`
	ExamDate       *time.Time `json:"examDate,omitempty"`
	Weight         *float64   `json:"weight,omitempty"`
	Height         *float64   `json:"height,omitempty"`
	BloodPressure  string     `json:"bloodPressure,omitempty"`
	Temperature    *float64   `json:"temperature,omitempty"`
	HeartRate      *float64   `json:"heartRate,omitempty"`
	FundalHeight   *float64   `json:"fundalHeight,omitempty"`
	FetalHeartRate *float64   `json:"fetalHeartRate,omitempty"`
	GeneralExam    string     `json:"generalExam,omitempty"`
	ObstetricExam  string     `json:"obstetricExam,omitempty"`
	Observation    string     `json:"observation,omitempty"`
}

func (r Request) ParentID() string { return r.ConsultationID }

func (r Request) Validate() error {
	if r.ConsultationID == "" {
		return errors.New("consultationId is required")
	}
	if r.BloodPressure != "" {
		if _, _, ok := interpret.ParseBloodPressure(r.BloodPressure); !ok {
			return errors.New("bloodPressure must be written systolic/diastolic")
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
	Slice = store.Slice[ClinicalExam, Filter]
	State = store.State[ClinicalExam, Filter]
)

func Config() store.Config {
	return store.Config{
		Name:                 "clinicalExams",
		Label:                "Clinical exam",
		SuppressParentErrors: true,
	}
}

// NewSlice wires the clinical exams slice to client.
func NewSlice(client *apiclient.Client, notifier notification.Notifier, logger zerolog.Logger) *Slice {
	res := apiclient.NewResource[ClinicalExam](client, Endpoint, apiclient.DefaultParentSegment)
	return store.New[ClinicalExam, Filter](Config(), res, notifier, logger)
}

// -- Selectors --

// Flagged pairs an exam with its abnormal readings.
type Flagged struct {
	Exam      ClinicalExam
	Anomalies []interpret.Result
	Worst     interpret.Status
}

// AverageWeight is the mean weight of the cached exams.
func AverageWeight(s State) (float64, bool) {
	return store.Average(s.Items, func(e ClinicalExam) (float64, bool) { return deref(e.Weight) })
}

// AverageTemperature is the mean temperature of the cached exams.
func AverageTemperature(s State) (float64, bool) {
	return store.Average(s.Items, func(e ClinicalExam) (float64, bool) { return deref(e.Temperature) })
}

// WithAbnormalVitals returns the cached exams with at least one abnormal
// reading, in collection order.
func WithAbnormalVitals(s State) []Flagged {
	out := make([]Flagged, 0)
	for _, e := range s.Items {
		results := interpret.AnalyzeVitals(e.Vitals())
		if anomalies := interpret.Anomalies(results); len(anomalies) > 0 {
			out = append(out, Flagged{Exam: e, Anomalies: anomalies, Worst: interpret.Worst(results)})
		}
	}
	return out
}

// ForConsultation returns the exams of consultationID.
func ForConsultation(s State, consultationID string) []ClinicalExam {
	return store.ForParent(s, consultationID)
}

// Filtered applies the active filter.
func Filtered(s State) []ClinicalExam {
	items := s.Items
	if s.Filter.ConsultationID != "" {
		items = store.ForParent(s, s.Filter.ConsultationID)
	}
	if !s.Filter.AbnormalOnly {
		return items
	}
	return store.Filter(items, func(e ClinicalExam) bool {
		return interpret.Worst(interpret.AnalyzeVitals(e.Vitals())) != interpret.StatusNormal
	})
}

func deref(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}
