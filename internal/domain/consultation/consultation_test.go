package consultation

import (
	"testing"
	"time"
)

func day(d int) time.Time { return time.Date(2026, 4, d, 9, 0, 0, 0, time.UTC) }

func sample() State {
	return State{Items: []Consultation{
		{ID: "c1", Date: day(2), Observation: "Nausées, bon état général", PregnancyID: "p1"},
		{ID: "c2", Date: day(16), Observation: "Contrôle tension", PregnancyID: "p1"},
		{ID: "c3", Date: day(20), Observation: "RAS", PregnancyID: "p2"},
	}}
}

func TestSelectors(t *testing.T) {
	s := sample()

	if got := InRange(s, day(10), day(20)); len(got) != 2 {
		t.Errorf("expected 2 consultations in range, got %d", len(got))
	}
	if got := WithKeyword(s, "TENSION"); len(got) != 1 || got[0].ID != "c2" {
		t.Errorf("expected c2 for keyword, got %+v", got)
	}
	latest, ok := Latest(s, "p1")
	if !ok || latest.ID != "c2" {
		t.Errorf("expected latest c2, got %+v", latest)
	}
	if _, ok := Latest(State{}, "p1"); ok {
		t.Error("expected no latest consultation on empty state")
	}

	s.Filter = Filter{From: day(1), Keyword: "ras"}
	if got := Filtered(s); len(got) != 1 || got[0].ID != "c3" {
		t.Errorf("expected c3 for filter, got %+v", got)
	}
}

func TestRequestValidate(t *testing.T) {
	if err := (Request{Date: day(1)}).Validate(); err == nil {
		t.Error("expected error for missing pregnancy")
	}
	if err := (Request{PregnancyID: "p1"}).Validate(); err == nil {
		t.Error("expected error for missing date")
	}
	if err := (Request{PregnancyID: "p1", Date: day(1)}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConfig(t *testing.T) {
	cfg := Config()
	if !cfg.SuppressParentErrors {
		t.Error("expected consultations to suppress parent load errors")
	}
	if cfg.Name != "consultations" {
		t.Errorf("unexpected name %q", cfg.Name)
	}
}
