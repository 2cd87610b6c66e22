package ultrasound

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/maternity/internal/domain/interpret"
	"github.com/ehr/maternity/internal/platform/apiclient"
	"github.com/ehr/maternity/internal/platform/notification"
	"github.com/ehr/maternity/internal/platform/store"
)

const (
	Endpoint   = "/ultrasounds"
	ImageField = "images"
)

// Image is an ultrasound picture stored by the backend.
type Image struct {
	ID    string `json:"id"`
	Path  string `json:"path"`
	Title string `json:"title,omitempty"`
}

// Measurements in millimetres, except EmbryoCount.
type Measurements struct {
	CrownRumpLength     *float64 `json:"crownRumpLength,omitempty"`
	NuchalTranslucency  *float64 `json:"nuchalTranslucency,omitempty"`
	BiparietalDiameter  *float64 `json:"biparietalDiameter,omitempty"`
	TransverseAbdominal *float64 `json:"transverseAbdominalDiameter,omitempty"`
	FemurLength         *float64 `json:"femurLength,omitempty"`
	EmbryoCount         *float64 `json:"embryoCount,omitempty"`
}

// List returns the measurements that are present.
func (m Measurements) List() []interpret.Measurement {
	var out []interpret.Measurement
	for _, f := range []struct {
		kind  interpret.Kind
		value *float64
	}{
		{interpret.KindCrownRumpLength, m.CrownRumpLength},
		{interpret.KindNuchalTranslucency, m.NuchalTranslucency},
		{interpret.KindBiparietalDiameter, m.BiparietalDiameter},
		{interpret.KindTransverseAbdominal, m.TransverseAbdominal},
		{interpret.KindFemurLength, m.FemurLength},
		{interpret.KindEmbryoCount, m.EmbryoCount},
	} {
		if f.value != nil {
			out = append(out, interpret.Measurement{Kind: f.kind, Value: *f.value})
		}
	}
	return out
}

// Ultrasound is one ultrasound exam of a consultation.
type Ultrasound struct {
	ID                  string     `json:"id"`
	ConsultationID      string     `json:"consultationId"`
	ExamDate            *time.Time `json:"examDate,omitempty"`
	GestationalAgeWeeks *float64   `json:"gestationalAgeWeeks,omitempty"`
	Measurements
	Conclusion string  `json:"conclusion,omitempty"`
	Images     []Image `json:"images,omitempty"`
}

func (u Ultrasound) EntityID() string { return u.ID }
func (u Ultrasound) ParentID() string { return u.ConsultationID }

// Analyze interprets the measurements at the recorded gestational age.
func (u Ultrasound) Analyze() []interpret.Result {
	return interpret.AnalyzeUltrasound(u.List(), u.GestationalAgeWeeks)
}

// Request is the create and update payload. Images are sent as multipart
// file parts next to the JSON.
type Request struct {
	ConsultationID      string     `json:"consultationId"`
	ExamDate            *time.Time `json:"examDate,omitempty"`
	GestationalAgeWeeks *float64   `json:"gestationalAgeWeeks,omitempty"`
	Measurements
	Conclusion string `json:"conclusion,omitempty"`

	Images []apiclient.Attachment `json:"-"`
}

func (r Request) ParentID() string { return r.ConsultationID }

func (r Request) Attachments() []apiclient.Attachment {
	out := make([]apiclient.Attachment, len(r.Images))
	for i, img := range r.Images {
		if img.Field == "" {
			img.Field = ImageField
		}
		out[i] = img
	}
	return out
}

func (r Request) Validate() error {
	if r.ConsultationID == "" {
		return errors.New("consultationId is required")
	}
	if ga := r.GestationalAgeWeeks; ga != nil && (*ga < 0 || *ga > 45) {
		return errors.New("gestationalAgeWeeks must be between 0 and 45")
	}
	for _, img := range r.Images {
		if img.FileName == "" || len(img.Data) == 0 {
			return errors.New("every image needs a file name and content")
		}
	}
	return nil
}

// Filter selects exams by consultation.
type Filter struct {
	ConsultationID string
	AnomaliesOnly  bool
}

type (
	Slice = store.Slice[Ultrasound, Filter]
	State = store.State[Ultrasound, Filter]
)

func Config() store.Config {
	return store.Config{
		Name:                 "ultrasounds",
		Label:                "Ultrasound",
		SuppressParentErrors: true,
	}
}

// NewSlice wires the ultrasounds slice to client.
func NewSlice(client *apiclient.Client, notifier notification.Notifier, logger zerolog.Logger) *Slice {
	res := apiclient.NewResource[Ultrasound](client, Endpoint, apiclient.DefaultParentSegment)
	return store.New[Ultrasound, Filter](Config(), res, notifier, logger)
}

// -- Selectors --

// Flagged pairs an exam with its abnormal measurements.
type Flagged struct {
	Exam      Ultrasound
	Anomalies []interpret.Result
	Worst     interpret.Status
}

func WithAnomalies(s State) []Flagged {
	out := make([]Flagged, 0)
	for _, u := range s.Items {
		results := u.Analyze()
		if anomalies := interpret.Anomalies(results); len(anomalies) > 0 {
			out = append(out, Flagged{Exam: u, Anomalies: anomalies, Worst: interpret.Worst(results)})
		}
	}
	return out
}

// ImageCount is the number of images across the cached exams.
func ImageCount(s State) int {
	n := 0
	for _, u := range s.Items {
		n += len(u.Images)
	}
	return n
}

func ForConsultation(s State, consultationID string) []Ultrasound {
	return store.ForParent(s, consultationID)
}

// Filtered applies the active filter.
func Filtered(s State) []Ultrasound {
	items := s.Items
	if s.Filter.ConsultationID != "" {
		items = store.ForParent(s, s.Filter.ConsultationID)
	}
	if !s.Filter.AnomaliesOnly {
		return items
	}
	return store.Filter(items, func(u Ultrasound) bool {
		return len(interpret.Anomalies(u.Analyze())) > 0
	})
}
