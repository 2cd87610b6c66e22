package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/maternity/internal/config"
	"github.com/ehr/maternity/internal/platform/auth"
	"github.com/ehr/maternity/internal/platform/blobstore"
	"github.com/ehr/maternity/internal/platform/db"
	"github.com/ehr/maternity/internal/platform/devserver"
	"github.com/ehr/maternity/internal/platform/middleware"
	"github.com/ehr/maternity/internal/session"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "maternity",
		Short:        "Prenatal follow-up client tools and development backend",
		SilenceUsage: true,
	}

	root.AddCommand(serveDevCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(interpretCmd())
	root.AddCommand(consultationsCmd())
	root.AddCommand(treatmentsCmd())
	return root
}

func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	logger := zerolog.New(out).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}
	return logger.Level(cfg.Level())
}

// -- serve-dev --

func serveDevCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve-dev",
		Short: "Start the development backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevServer()
		},
	}
}

func runDevServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stdout)

	issuer, err := newIssuer(cfg, logger)
	if err != nil {
		return err
	}

	opts := devserver.Options{
		Issuer: issuer,
		RateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			BurstSize:         cfg.RateLimitBurst,
		},
		BodyLimit:   cfg.BodyLimit,
		UploadLimit: cfg.UploadLimit,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	}

	ctx := context.Background()
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return err
		}
		defer pool.Close()

		n, err := db.NewMigrator(pool, db.Migrations()).Up(ctx)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info().Int("applied", n).Msg("connected to database")

		opts.Repo = devserver.NewPGRepo(pool)
		opts.Blobs = blobstore.NewPGStore(pool)
		opts.DB = pool
	} else {
		logger.Warn().Msg("DATABASE_URL not set, data is kept in memory")
	}

	e := devserver.New(opts)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting development backend")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

func newIssuer(cfg *config.Config, logger zerolog.Logger) (*auth.Issuer, error) {
	users, err := cfg.Users()
	if err != nil {
		return nil, err
	}
	if len(users) == 0 && cfg.IsDev() {
		users["midwife"] = "midwife"
		logger.Warn().Msg("DEV_USERS not set, signing in with midwife/midwife")
	}

	key := []byte(cfg.JWTSigningKey)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
	}

	return auth.NewIssuer(auth.IssuerConfig{
		SigningKey: key,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
		Users:      users,
	}), nil
}

// -- migrate --

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run development database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator) error {
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				printStatuses(cmd.OutOrStdout(), statuses)
				return nil
			})
		},
	})

	return cmd
}

func withMigrator(fn func(context.Context, *db.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, db.NewMigrator(pool, db.Migrations()))
}

func printStatuses(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

// openSession loads the configuration and signs in when credentials are
// configured.
func openSession(ctx context.Context, errOut io.Writer) (*session.Session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg, errOut)
	s := session.New(session.OptionsFromConfig(cfg, logger))
	if cfg.APIUsername != "" {
		if err := s.Login(ctx, cfg.APIUsername, cfg.APIPassword); err != nil {
			return nil, err
		}
	}
	return s, nil
}
