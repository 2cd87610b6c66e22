package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/maternity/internal/domain/biologicalexam"
	"github.com/ehr/maternity/internal/domain/clinicalexam"
	"github.com/ehr/maternity/internal/domain/consultation"
	"github.com/ehr/maternity/internal/domain/interpret"
	"github.com/ehr/maternity/internal/domain/patient"
	"github.com/ehr/maternity/internal/domain/pregnancy"
	"github.com/ehr/maternity/internal/domain/treatment"
	"github.com/ehr/maternity/internal/domain/ultrasound"
	"github.com/ehr/maternity/internal/platform/apiclient"
	"github.com/ehr/maternity/internal/platform/auth"
	"github.com/ehr/maternity/internal/platform/devserver"
	"github.com/ehr/maternity/internal/platform/notification"
	"github.com/ehr/maternity/internal/platform/store"
)

func newSession(t *testing.T) *Session {
	t.Helper()
	return newSessionWith(t, func(h http.Handler) http.Handler { return h })
}

// newSessionWith serves the dev backend through wrap.
func newSessionWith(t *testing.T, wrap func(http.Handler) http.Handler) *Session {
	t.Helper()
	issuer := auth.NewIssuer(auth.IssuerConfig{
		SigningKey: []byte("session-test-key"),
		Users:      map[string]string{"midwife": "secret"},
	})
	srv := httptest.NewServer(wrap(devserver.New(devserver.Options{Issuer: issuer, Logger: zerolog.Nop()})))
	t.Cleanup(srv.Close)

	s := New(Options{BaseURL: srv.URL, Timeout: 5 * time.Second, Logger: zerolog.Nop()})
	require.NoError(t, s.Login(context.Background(), "midwife", "secret"))
	return s
}

func seedPregnancy(t *testing.T, s *Session) pregnancy.Pregnancy {
	t.Helper()
	ctx := context.Background()
	p, err := s.Patients.Create(ctx, patient.Request{FirstName: "Awa", LastName: "Diallo"})
	require.NoError(t, err)
	preg, err := s.Pregnancies.Create(ctx, pregnancy.Request{
		PatientID:           p.ID,
		LastMenstrualPeriod: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Gravidity:           1,
		Status:              pregnancy.StatusOngoing,
	})
	require.NoError(t, err)
	return preg
}

func seedConsultation(t *testing.T, s *Session, pregnancyID string) consultation.Consultation {
	t.Helper()
	c, err := s.Consultations.Create(context.Background(), consultation.Request{
		PregnancyID: pregnancyID,
		Date:        time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		Observation: "first prenatal visit",
	})
	require.NoError(t, err)
	return c
}

func TestLoadByParent_EmptyPregnancy(t *testing.T) {
	s := newSession(t)
	preg := seedPregnancy(t, s)

	res, err := s.Consultations.LoadByParent(context.Background(), preg.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ParentEmpty, res.Status)

	st := s.Consultations.State()
	assert.Empty(t, st.ByParent)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Error)
	assert.Equal(t, 0, s.Loading.Count())
	assert.False(t, s.Loading.Active())
}

func TestLoadByParent_UnknownParentIsEmpty(t *testing.T) {
	s := newSession(t)

	res, err := s.Consultations.LoadByParent(context.Background(), "no-such-pregnancy")
	require.NoError(t, err)
	assert.Equal(t, store.ParentEmpty, res.Status)
	assert.Empty(t, s.Consultations.State().Error)
	_, toasted := s.Toasts.Last()
	assert.False(t, toasted, "an empty parent is not an error")
}

func TestConcurrentCreates(t *testing.T) {
	s := newSession(t)
	preg := seedPregnancy(t, s)
	ctx := context.Background()
	_, err := s.Consultations.LoadByParent(ctx, preg.ID)
	require.NoError(t, err)

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Consultations.Create(ctx, consultation.Request{
				PregnancyID: preg.ID,
				Date:        time.Date(2026, 5, 1+i, 9, 0, 0, 0, time.UTC),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	st := s.Consultations.State()
	seen := make(map[string]bool)
	for _, c := range st.Items {
		assert.False(t, seen[c.ID], "duplicate id %s", c.ID)
		seen[c.ID] = true
	}
	assert.Len(t, st.Items, n)
	assert.Len(t, st.ByParent, n)
	assert.False(t, st.Loading)
	assert.Equal(t, 0, st.Pending)
	assert.Equal(t, 0, s.Loading.Count())
}

func TestExpiredToken_SingleRefresh(t *testing.T) {
	s := newSession(t)
	ctx := context.Background()
	seedPregnancy(t, s)

	s.Auth.SetTokens(auth.Tokens{Access: "stale", Refresh: s.Auth.Tokens().Refresh})

	const n = 6
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Patients.Load(ctx, store.PageRequest{Size: 10})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, int64(1), s.Auth.Refreshes())
	assert.NotEqual(t, "stale", s.Auth.Tokens().Access)
	assert.Len(t, s.Patients.State().Items, 1)
}

func TestRejectedRefresh_ClearsSession(t *testing.T) {
	s := newSession(t)
	s.Auth.SetTokens(auth.Tokens{Access: "stale", Refresh: "bogus"})

	err := s.Patients.Load(context.Background(), store.PageRequest{})
	require.Error(t, err)

	assert.Empty(t, s.Auth.Tokens().Access)
	assert.NotEmpty(t, s.Patients.State().Error)

	var warned bool
	for _, m := range s.Toasts.Messages() {
		if m.Level == notification.LevelWarning && m.Source == "auth" {
			warned = true
		}
	}
	assert.True(t, warned, "expected a session expired toast")
	assert.Equal(t, 0, s.Loading.Count())
}

func TestLoadConsultation(t *testing.T) {
	s := newSession(t)
	ctx := context.Background()
	preg := seedPregnancy(t, s)
	c := seedConsultation(t, s, preg.ID)

	weight, temp := 68.5, 37.0
	_, err := s.ClinicalExams.Create(ctx, clinicalexam.Request{
		ConsultationID: c.ID, Weight: &weight, Temperature: &temp, BloodPressure: "120/80",
	})
	require.NoError(t, err)

	editor := biologicalexam.NewActsEditor(nil)
	require.NoError(t, editor.SetValue("Hémoglobine", "7"))
	_, err = s.BiologicalExams.Create(ctx, editor.Request(c.ID, "routine labs"))
	require.NoError(t, err)

	_, err = s.Treatments.Create(ctx, treatment.Request{
		ConsultationID: c.ID, Medication: "Iron", Dosage: "80mg", StartDate: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	d, err := s.LoadConsultation(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, d.ClinicalExams, 1)
	assert.Len(t, d.BiologicalExams, 1)
	assert.Empty(t, d.Ultrasounds)
	assert.Len(t, d.Treatments, 1)
	assert.Empty(t, d.Unavailable)
	assert.Equal(t, interpret.StatusCritical, d.Worst)
	require.NotEmpty(t, d.Anomalies)

	assert.Equal(t, c.ID, s.ClinicalExams.State().ParentKey)
	assert.Equal(t, store.ParentEmpty, s.Ultrasounds.State().ParentStatus)
}

func TestLoadConsultation_FailedSectionDoesNotCancelOthers(t *testing.T) {
	s := newSessionWith(t, func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/treatments/consultation/"):
				http.Error(w, `{"message":"treatments offline"}`, http.StatusInternalServerError)
				return
			case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/ultrasounds/consultation/"):
				time.Sleep(100 * time.Millisecond)
			}
			h.ServeHTTP(w, r)
		})
	})
	preg := seedPregnancy(t, s)
	c := seedConsultation(t, s, preg.ID)

	_, err := s.LoadConsultation(context.Background(), c.ID)
	require.Error(t, err)

	st := s.Ultrasounds.State()
	assert.Equal(t, store.ParentEmpty, st.ParentStatus)
	assert.Empty(t, st.ParentFailure)
	assert.NotEmpty(t, s.Treatments.State().Error)
}

func TestUltrasoundUpload(t *testing.T) {
	s := newSession(t)
	ctx := context.Background()
	preg := seedPregnancy(t, s)
	c := seedConsultation(t, s, preg.ID)

	crl := 45.0
	u, err := s.Ultrasounds.Create(ctx, ultrasound.Request{
		ConsultationID: c.ID,
		Measurements:   ultrasound.Measurements{CrownRumpLength: &crl},
		Images: []apiclient.Attachment{
			{FileName: "scan.png", ContentType: "image/png", Data: []byte("pixels")},
		},
	})
	require.NoError(t, err)
	require.Len(t, u.Images, 1)
	assert.Equal(t, "scan.png", u.Images[0].Title)
	assert.Equal(t, 1, ultrasound.ImageCount(s.Ultrasounds.State()))
}

func TestLogout_ClearsCaches(t *testing.T) {
	s := newSession(t)
	seedPregnancy(t, s)
	require.NoError(t, s.Patients.Load(context.Background(), store.PageRequest{}))
	require.NotEmpty(t, s.Patients.State().Items)

	s.Logout()

	assert.Empty(t, s.Auth.Tokens().Access)
	assert.Empty(t, s.Patients.State().Items)
	assert.Empty(t, s.Pregnancies.State().Items)
	_, ok := s.Toasts.Last()
	assert.False(t, ok)
}
