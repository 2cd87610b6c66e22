// Package session is the composition root of the client state layer. A
// Session owns the token store and refresh coordinator, the loading tracker,
// the toast channel, the HTTP client and one slice per clinical entity. It is
// built once and passed by reference.
package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/maternity/internal/config"
	"github.com/ehr/maternity/internal/domain/appointment"
	"github.com/ehr/maternity/internal/domain/biologicalexam"
	"github.com/ehr/maternity/internal/domain/clinicalexam"
	"github.com/ehr/maternity/internal/domain/consultation"
	"github.com/ehr/maternity/internal/domain/patient"
	"github.com/ehr/maternity/internal/domain/pregnancy"
	"github.com/ehr/maternity/internal/domain/treatment"
	"github.com/ehr/maternity/internal/domain/ultrasound"
	"github.com/ehr/maternity/internal/platform/apiclient"
	"github.com/ehr/maternity/internal/platform/auth"
	"github.com/ehr/maternity/internal/platform/loading"
	"github.com/ehr/maternity/internal/platform/notification"
)

// Options configures New.
type Options struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int

	LoginPath   string
	RefreshPath string
	// RefreshSkew refreshes access tokens expiring within the window before
	// sending them. Zero refreshes only after a 401.
	RefreshSkew time.Duration
	// Backend overrides the HTTP token backend.
	Backend auth.Backend

	ToastCapacity int
	Logger        zerolog.Logger
}

// OptionsFromConfig maps the loaded configuration onto Options.
func OptionsFromConfig(cfg *config.Config, logger zerolog.Logger) Options {
	return Options{
		BaseURL:           cfg.APIBaseURL,
		Timeout:           cfg.APITimeout,
		RequestsPerSecond: cfg.APIRateLimitRPS,
		Burst:             cfg.APIRateBurst,
		LoginPath:         cfg.AuthLoginPath,
		RefreshPath:       cfg.AuthRefreshPath,
		RefreshSkew:       cfg.AuthRefreshSkew,
		ToastCapacity:     cfg.ToastCapacity,
		Logger:            logger,
	}
}

type Session struct {
	Auth    *auth.Coordinator
	Loading *loading.Tracker
	Toasts  *notification.Channel
	Client  *apiclient.Client

	Patients        *patient.Slice
	Pregnancies     *pregnancy.Slice
	Consultations   *consultation.Slice
	Appointments    *appointment.Slice
	ClinicalExams   *clinicalexam.Slice
	BiologicalExams *biologicalexam.Slice
	Ultrasounds     *ultrasound.Slice
	Treatments      *treatment.Slice
	TreatmentTools  *treatment.Service

	logger zerolog.Logger
}

func New(opts Options) *Session {
	if opts.LoginPath == "" {
		opts.LoginPath = "/auth/login"
	}
	if opts.RefreshPath == "" {
		opts.RefreshPath = "/auth/refresh"
	}
	if opts.ToastCapacity <= 0 {
		opts.ToastCapacity = 20
	}
	logger := opts.Logger

	toasts := notification.NewChannel(opts.ToastCapacity)
	notifier := notification.Multi{toasts, notification.NewLogNotifier(logger)}

	backend := opts.Backend
	if backend == nil {
		backend = auth.NewHTTPBackend(opts.BaseURL, opts.LoginPath, opts.RefreshPath, opts.Timeout)
	}
	coordinator := auth.NewCoordinator(backend, opts.RefreshSkew, notifier, logger)
	tracker := loading.NewTracker()

	client := apiclient.New(apiclient.Options{
		BaseURL:           opts.BaseURL,
		Timeout:           opts.Timeout,
		RequestsPerSecond: opts.RequestsPerSecond,
		Burst:             opts.Burst,
	}, coordinator, tracker, logger)

	return &Session{
		Auth:    coordinator,
		Loading: tracker,
		Toasts:  toasts,
		Client:  client,

		Patients:        patient.NewSlice(client, notifier, logger),
		Pregnancies:     pregnancy.NewSlice(client, notifier, logger),
		Consultations:   consultation.NewSlice(client, notifier, logger),
		Appointments:    appointment.NewSlice(client, notifier, logger),
		ClinicalExams:   clinicalexam.NewSlice(client, notifier, logger),
		BiologicalExams: biologicalexam.NewSlice(client, notifier, logger),
		Ultrasounds:     ultrasound.NewSlice(client, notifier, logger),
		Treatments:      treatment.NewSlice(client, notifier, logger),
		TreatmentTools:  treatment.NewService(logger),

		logger: logger.With().Str("component", "session").Logger(),
	}
}

// Login signs in and keeps the issued tokens.
func (s *Session) Login(ctx context.Context, username, password string) error {
	return s.Auth.Login(ctx, username, password)
}

// Logout drops the tokens and every cached collection.
func (s *Session) Logout() {
	s.Auth.Logout()
	s.ClearCaches()
	s.Loading.Reset()
	s.Toasts.Clear()
	s.logger.Info().Msg("signed out")
}

// ClearCaches empties every slice.
func (s *Session) ClearCaches() {
	s.Patients.ClearCache()
	s.Pregnancies.ClearCache()
	s.Consultations.ClearCache()
	s.Appointments.ClearCache()
	s.ClinicalExams.ClearCache()
	s.BiologicalExams.ClearCache()
	s.Ultrasounds.ClearCache()
	s.Treatments.ClearCache()
}
