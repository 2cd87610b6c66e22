package clinicalexam

import (
	"math"
	"testing"

	"github.com/ehr/maternity/internal/domain/interpret"
)

func f(v float64) *float64 { return &v }

func TestSelectors(t *testing.T) {
	s := State{Items: []ClinicalExam{
		{ID: "e1", ConsultationID: "c1", Weight: f(62), Temperature: f(37), BloodPressure: "120/80"},
		{ID: "e2", ConsultationID: "c1", Weight: f(64), Temperature: f(38.4), BloodPressure: "150/95"},
		{ID: "e3", ConsultationID: "c2", FetalHeartRate: f(140)},
	}}

	w, ok := AverageWeight(s)
	if !ok || w != 63 {
		t.Errorf("expected average weight 63, got %v (ok=%v)", w, ok)
	}
	temp, ok := AverageTemperature(s)
	if !ok || math.Abs(temp-37.7) > 1e-9 {
		t.Errorf("expected average temperature 37.7, got %v", temp)
	}

	flagged := WithAbnormalVitals(s)
	if len(flagged) != 1 || flagged[0].Exam.ID != "e2" {
		t.Fatalf("expected only e2 flagged, got %+v", flagged)
	}
	if len(flagged[0].Anomalies) != 2 || flagged[0].Worst != interpret.StatusAbnormal {
		t.Errorf("expected fever and hypertension, got %+v", flagged[0].Anomalies)
	}

	if got := ForConsultation(s, "c1"); len(got) != 2 {
		t.Errorf("expected 2 exams for c1, got %d", len(got))
	}

	s.Filter = Filter{ConsultationID: "c1", AbnormalOnly: true}
	if got := Filtered(s); len(got) != 1 {
		t.Errorf("expected 1 filtered exam, got %d", len(got))
	}
}

func TestSelectors_ZeroState(t *testing.T) {
	var s State
	if _, ok := AverageWeight(s); ok {
		t.Error("expected no average on empty state")
	}
	if got := WithAbnormalVitals(s); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}

func TestBMI(t *testing.T) {
	bmi, ok := ClinicalExam{Weight: f(64), Height: f(160)}.BMI()
	if !ok || math.Abs(bmi-25) > 1e-9 {
		t.Errorf("expected BMI 25, got %v", bmi)
	}
	if _, ok := (ClinicalExam{Weight: f(64)}).BMI(); ok {
		t.Error("expected no BMI without height")
	}
}

func TestRequestValidate(t *testing.T) {
	if err := (Request{ConsultationID: "c1", BloodPressure: "120"}).Validate(); err == nil {
		t.Error("expected malformed blood pressure to be rejected")
	}
	if err := (Request{ConsultationID: "c1", BloodPressure: "12/8"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (Request{}).Validate(); err == nil {
		t.Error("expected missing consultation to be rejected")
	}
}
