package devserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ehr/maternity/internal/platform/auth"
	"github.com/ehr/maternity/internal/platform/blobstore"
	"github.com/ehr/maternity/internal/platform/db"
	"github.com/ehr/maternity/internal/platform/middleware"
)

const Version = "0.1.0"

// Options configures New. Zero values select in-memory storage, no
// authentication and the default limits.
type Options struct {
	Repo  Repository
	Blobs blobstore.Store
	// Issuer enables bearer authentication and the /auth routes.
	Issuer *auth.Issuer
	// DB, when set, backs /health/db.
	DB db.Pinger

	RateLimit   middleware.RateLimitConfig
	BodyLimit   string
	UploadLimit string
	CORSOrigins []string
	Logger      zerolog.Logger
}

// New assembles the echo server.
func New(opts Options) *echo.Echo {
	if opts.Repo == nil {
		opts.Repo = NewMemoryRepo()
	}
	if opts.Blobs == nil {
		opts.Blobs = blobstore.NewMemoryStore()
	}
	if opts.RateLimit.RequestsPerSecond <= 0 {
		opts.RateLimit = middleware.DefaultRateLimitConfig()
	}
	if opts.BodyLimit == "" {
		opts.BodyLimit = "1M"
	}
	if opts.UploadLimit == "" {
		opts.UploadLimit = "25M"
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"http://localhost:4200"}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(opts.Logger))
	e.Use(middleware.Recovery(opts.Logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: opts.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.Metrics())
	e.Use(middleware.BodyLimit(opts.BodyLimit, opts.UploadLimit))
	if opts.Issuer != nil {
		e.Use(auth.BearerMiddleware(opts.Issuer, auth.AuthSkipper))
		auth.RegisterRoutes(e.Group(""), opts.Issuer)
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": Version,
		})
	})
	if opts.DB != nil {
		e.GET("/health/db", db.HealthHandler(opts.DB))
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("", middleware.RateLimit(opts.RateLimit))
	blobstore.NewHandler(opts.Blobs).RegisterRoutes(api)
	for _, col := range Collections() {
		NewHandler(col, opts.Repo, opts.Blobs, opts.Logger).RegisterRoutes(api)
	}

	return e
}
