package biologicalexam

import (
	"errors"
	"testing"

	"github.com/ehr/maternity/internal/domain/interpret"
)

func TestActsEditor_Seed(t *testing.T) {
	e := NewActsEditor(nil)
	acts := e.Acts()
	if len(acts) != 12 {
		t.Fatalf("expected 12 standard acts, got %d", len(acts))
	}
	for _, a := range acts {
		if !a.Standard || a.Value != "" {
			t.Errorf("expected empty standard act, got %+v", a)
		}
	}
	if len(e.Filled()) != 0 {
		t.Error("expected no filled act on a fresh editor")
	}
}

func TestActsEditor_SeedFromExisting(t *testing.T) {
	e := NewActsEditor([]Act{
		{Name: "Hémoglobine", Value: "12"},
		{Name: "Ferritine", Value: "40", ReferenceRange: "15-150"},
	})
	acts := e.Acts()
	if len(acts) != 13 {
		t.Fatalf("expected 13 acts, got %d", len(acts))
	}
	if acts[2].Value != "12" || !acts[2].Standard {
		t.Errorf("expected hemoglobin value kept as standard act, got %+v", acts[2])
	}
	if acts[12].Name != "Ferritine" || acts[12].Standard {
		t.Errorf("expected ad-hoc act appended, got %+v", acts[12])
	}
}

func TestActsEditor_Edit(t *testing.T) {
	e := NewActsEditor(nil)

	if err := e.SetValue("hemoglobine", "9,5"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.SetValue("Ferritine", "10"); !errors.Is(err, ErrUnknownAct) {
		t.Errorf("expected ErrUnknownAct, got %v", err)
	}
	if err := e.Add(Act{Name: "  "}); !errors.Is(err, ErrEmptyActName) {
		t.Errorf("expected ErrEmptyActName, got %v", err)
	}
	if err := e.Add(Act{Name: "HÉMOGLOBINE"}); !errors.Is(err, ErrDuplicateAct) {
		t.Errorf("expected ErrDuplicateAct, got %v", err)
	}
	if err := e.Add(Act{Name: "Ferritine", Value: "10", ReferenceRange: "15-150", Standard: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.Remove("VIH"); !errors.Is(err, ErrStandardAct) {
		t.Errorf("expected ErrStandardAct, got %v", err)
	}

	filled := e.Filled()
	if len(filled) != 2 {
		t.Fatalf("expected 2 filled acts, got %d", len(filled))
	}
	results := e.Results()
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Status != interpret.StatusAbnormal {
			t.Errorf("expected %s abnormal, got %s (%s)", r.Name, r.Status, r.Interpretation)
		}
	}

	req := e.Request("c1", "bilan T1")
	if req.ConsultationID != "c1" || len(req.Acts) != 2 {
		t.Errorf("unexpected request %+v", req)
	}

	if err := e.Remove("ferritine"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(e.Acts()) != 12 {
		t.Errorf("expected 12 acts after removal, got %d", len(e.Acts()))
	}

	e.Clear()
	if len(e.Filled()) != 0 {
		t.Error("expected clear to drop every value")
	}
}

func TestSelectors(t *testing.T) {
	s := State{Items: []BiologicalExam{
		{ID: "b1", ConsultationID: "c1", Acts: []Act{{Name: "Hémoglobine", Value: "12.5"}, {Name: "VIH", Value: "Négatif"}}},
		{ID: "b2", ConsultationID: "c1", Acts: []Act{{Name: "Hémoglobine", Value: "7"}}},
		{ID: "b3", ConsultationID: "c2", Acts: []Act{{Name: "Rubéole", Value: "non immunisée"}}},
	}}

	flagged := WithAnomalies(s)
	if len(flagged) != 2 || flagged[0].Exam.ID != "b2" || flagged[1].Exam.ID != "b3" {
		t.Fatalf("unexpected flagged exams %+v", flagged)
	}
	if flagged[0].Worst != interpret.StatusCritical {
		t.Errorf("expected severe anemia to be critical, got %s", flagged[0].Worst)
	}

	critical := Critical(s)
	if len(critical) != 1 || critical[0].ID != "b2" {
		t.Errorf("expected only b2 critical, got %+v", critical)
	}

	s.Filter = Filter{ConsultationID: "c1", AbnormalOnly: true}
	if got := Filtered(s); len(got) != 1 || got[0].ID != "b2" {
		t.Errorf("expected b2 for filter, got %+v", got)
	}
	if got := ForConsultation(State{}, "c1"); got == nil {
		t.Error("expected non-nil empty slice")
	}
}

func TestRequestValidate(t *testing.T) {
	if err := (Request{ConsultationID: "c1", Acts: []Act{{Value: "1"}}}).Validate(); err == nil {
		t.Error("expected unnamed act to be rejected")
	}
	if err := (Request{Acts: []Act{{Name: "VIH"}}}).Validate(); err == nil {
		t.Error("expected missing consultation to be rejected")
	}
}
