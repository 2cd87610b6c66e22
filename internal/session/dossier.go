package session

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ehr/maternity/internal/domain/biologicalexam"
	"github.com/ehr/maternity/internal/domain/clinicalexam"
	"github.com/ehr/maternity/internal/domain/interpret"
	"github.com/ehr/maternity/internal/domain/treatment"
	"github.com/ehr/maternity/internal/domain/ultrasound"
	"github.com/ehr/maternity/internal/platform/store"
)

// Dossier is everything recorded during one consultation.
type Dossier struct {
	ConsultationID  string
	ClinicalExams   []clinicalexam.ClinicalExam
	BiologicalExams []biologicalexam.BiologicalExam
	Ultrasounds     []ultrasound.Ultrasound
	Treatments      []treatment.Treatment
	// Unavailable maps slice names to the reason a suppressed load failed.
	// Those sections are shown empty.
	Unavailable map[string]string
	Anomalies   []interpret.Result
	Worst       interpret.Status
}

// LoadConsultation loads the exams and treatments of a consultation in
// parallel into their slices and interprets the results.
func (s *Session) LoadConsultation(ctx context.Context, consultationID string) (Dossier, error) {
	d := Dossier{
		ConsultationID: consultationID,
		Unavailable:    make(map[string]string),
	}
	var (
		clinical   store.ParentResult[clinicalexam.ClinicalExam]
		biological store.ParentResult[biologicalexam.BiologicalExam]
		scans      store.ParentResult[ultrasound.Ultrasound]
		treatments store.ParentResult[treatment.Treatment]
	)

	// A failed section must not cancel its siblings.
	var g errgroup.Group
	g.Go(func() (err error) {
		clinical, err = s.ClinicalExams.LoadByParent(ctx, consultationID)
		return err
	})
	g.Go(func() (err error) {
		biological, err = s.BiologicalExams.LoadByParent(ctx, consultationID)
		return err
	})
	g.Go(func() (err error) {
		scans, err = s.Ultrasounds.LoadByParent(ctx, consultationID)
		return err
	})
	g.Go(func() (err error) {
		treatments, err = s.Treatments.LoadByParent(ctx, consultationID)
		return err
	})
	if err := g.Wait(); err != nil {
		return d, fmt.Errorf("load consultation %s: %w", consultationID, err)
	}

	d.ClinicalExams = clinical.Items
	d.BiologicalExams = biological.Items
	d.Ultrasounds = scans.Items
	d.Treatments = treatments.Items
	for name, st := range map[string]struct {
		status store.ParentStatus
		reason string
	}{
		s.ClinicalExams.Name():   {clinical.Status, clinical.Reason},
		s.BiologicalExams.Name(): {biological.Status, biological.Reason},
		s.Ultrasounds.Name():     {scans.Status, scans.Reason},
		s.Treatments.Name():      {treatments.Status, treatments.Reason},
	} {
		if st.status == store.ParentFailed {
			d.Unavailable[name] = st.reason
		}
	}

	var results []interpret.Result
	for _, e := range d.ClinicalExams {
		results = append(results, interpret.AnalyzeVitals(e.Vitals())...)
	}
	for _, e := range d.BiologicalExams {
		results = append(results, e.Results()...)
	}
	for _, u := range d.Ultrasounds {
		results = append(results, u.Analyze()...)
	}
	d.Anomalies = interpret.Anomalies(results)
	d.Worst = interpret.Worst(results)
	return d, nil
}
