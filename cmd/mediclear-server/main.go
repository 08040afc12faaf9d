package main

import (
	"context"
	crypto_rand "crypto/rand"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mediclear/mediclear/internal/config"
	"github.com/mediclear/mediclear/internal/domain/identity"
	"github.com/mediclear/mediclear/internal/domain/records"
	"github.com/mediclear/mediclear/internal/domain/schedule"
	"github.com/mediclear/mediclear/internal/platform/apierror"
	"github.com/mediclear/mediclear/internal/platform/auth"
	"github.com/mediclear/mediclear/internal/platform/db"
	"github.com/mediclear/mediclear/internal/platform/middleware"
	"github.com/mediclear/mediclear/internal/platform/simplifier"
	"github.com/mediclear/mediclear/migrations"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "mediclear-server",
		Short: "MediClear clinical instruction API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reconcileCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(func(ctx context.Context, pool db.Pool) error {
				count, err := db.NewMigrator(pool, migrations.FS).Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	})

	// migrate status
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(func(ctx context.Context, pool db.Pool) error {
				statuses, err := db.NewMigrator(pool, migrations.FS).Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}

				fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				fmt.Println("---------- ---------------------------------------- ---------- --------------------")
				for _, s := range statuses {
					state, at := "pending", ""
					if s.Applied {
						state = "applied"
						at = s.AppliedAt.Format(time.RFC3339)
					}
					fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, state, at)
				}
				return nil
			})
		},
	})

	return cmd
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Add missing columns to existing tables and check insert compatibility",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(os.Getenv("ENV"))
			return withPool(func(ctx context.Context, pool db.Pool) error {
				return prepareSchema(ctx, pool, logger, false)
			})
		},
	}
}

func withPool(fn func(ctx context.Context, pool db.Pool) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, pool)
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// signingSecret returns the configured JWT secret. In development an empty
// secret is replaced by a random one, so tokens do not survive a restart.
func signingSecret(cfg *config.Config, logger zerolog.Logger) ([]byte, error) {
	if cfg.JWTSecret != "" {
		return []byte(cfg.JWTSecret), nil
	}
	if !cfg.IsDev() {
		return nil, fmt.Errorf("JWT_SECRET is required when ENV=%q", cfg.Env)
	}
	secret := make([]byte, config.MinJWTSecretLength)
	if _, err := crypto_rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate development secret: %w", err)
	}
	logger.Warn().Msg("JWT_SECRET not set, using a random development secret")
	return secret, nil
}

func tableSpecs() []db.TableSpec {
	var specs []db.TableSpec
	specs = append(specs, identity.TableSpecs()...)
	specs = append(specs, records.TableSpecs()...)
	specs = append(specs, schedule.TableSpecs()...)
	return specs
}

func writeColumns() map[string][]string {
	all := make(map[string][]string)
	for _, m := range []map[string][]string{
		identity.WriteColumns(),
		records.WriteColumns(),
		schedule.WriteColumns(),
	} {
		for table, cols := range m {
			all[table] = cols
		}
	}
	return all
}

// prepareSchema applies pending migrations (when migrate is set), adds any
// columns the write paths need and refuses to continue if a legacy NOT NULL
// column would make an insert fail.
func prepareSchema(ctx context.Context, pool db.Pool, logger zerolog.Logger, migrate bool) error {
	if migrate {
		count, err := db.NewMigrator(pool, migrations.FS).Up(ctx)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info().Int("applied", count).Msg("migrations up to date")
	}

	rec := db.NewReconciler(pool, logger.With().Str("component", "reconciler").Logger())
	added, err := rec.EnsureAll(ctx, tableSpecs())
	if err != nil {
		return fmt.Errorf("reconcile schema: %w", err)
	}
	if added > 0 {
		logger.Info().Int("columns_added", added).Msg("schema reconciled")
	}

	written := writeColumns()
	tables := make([]string, 0, len(written))
	for table := range written {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	for _, table := range tables {
		missing, err := rec.Unfilled(ctx, table, written[table])
		if err != nil {
			return fmt.Errorf("check %s: %w", table, err)
		}
		if len(missing) > 0 {
			return fmt.Errorf("table %s has required columns without defaults that inserts do not supply: %v", table, missing)
		}
	}
	return nil
}

type serverDeps struct {
	cfg        *config.Config
	logger     zerolog.Logger
	pool       db.Pool
	health     echo.HandlerFunc
	tokens     *auth.TokenService
	revoker    auth.Revoker
	simplifier simplifier.Simplifier
}

// newServer builds the echo instance with global middleware and every route.
func newServer(d serverDeps) *echo.Echo {
	cfg := d.cfg

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apierror.Handler()

	// Global middleware
	e.Use(middleware.Recovery(d.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(d.logger))
	e.Use(middleware.SecurityHeaders())
	if !cfg.IsDev() {
		e.Use(middleware.HSTS())
	}
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	if d.health != nil {
		e.GET("/health/db", d.health)
	}

	limitCfg := middleware.DefaultLoginRateLimitConfig()
	if cfg.LoginRateLimitRPS > 0 {
		limitCfg.RequestsPerSecond = cfg.LoginRateLimitRPS
	}
	if cfg.LoginRateLimitBurst > 0 {
		limitCfg.BurstSize = cfg.LoginRateLimitBurst
	}

	authn := auth.Authenticate(d.tokens, d.revoker)
	public := e.Group("/api")
	doctor := e.Group("/api/doctor", authn, auth.RequireDoctor())
	patient := e.Group("/api/patient", authn)

	identitySvc := identity.NewService(identity.NewUserRepoPG(d.pool), d.tokens, d.revoker,
		d.logger.With().Str("component", "identity").Logger())
	identity.NewHandler(identitySvc).RegisterRoutes(public, authn, middleware.RateLimit(limitCfg))

	recordsSvc := records.NewService(records.NewRecordRepoPG(d.pool), d.simplifier)
	records.NewHandler(recordsSvc).RegisterRoutes(doctor, patient)

	scheduleSvc := schedule.NewService(
		schedule.NewSurgeryRepoPG(d.pool),
		schedule.NewMedicationRepoPG(d.pool),
		schedule.NewTestRepoPG(d.pool),
		db.NewTxRunner(d.pool),
		d.simplifier,
	)
	schedule.NewHandler(scheduleSvc).RegisterRoutes(doctor, patient)

	return e
}

func runServer() error {
	// Logger
	logger := newLogger(os.Getenv("ENV"))

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	secret, err := signingSecret(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve signing secret")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	if err := prepareSchema(ctx, pool, logger, cfg.AutoMigrate); err != nil {
		logger.Fatal().Err(err).Msg("schema not ready")
	}

	// Token revocation
	var revoker auth.Revoker
	if cfg.RedisURL != "" {
		client, err := auth.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer client.Close()
		revoker = auth.NewRedisRevoker(client)
		logger.Info().Msg("using redis token revocation")
	} else {
		mem := auth.NewMemoryRevoker()
		defer mem.Close()
		revoker = mem
	}

	simp := simplifier.New(simplifier.Config{
		BaseURL: cfg.OpenAIBaseURL,
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		Timeout: cfg.SimplifierTimeout,
	}, logger)
	if !cfg.SimplifierEnabled() {
		logger.Warn().Msg("OPENAI_API_KEY not set, simplified text will be the fallback message")
	}

	e := newServer(serverDeps{
		cfg:        cfg,
		logger:     logger,
		pool:       pool,
		health:     db.HealthHandler(pool),
		tokens:     auth.NewTokenService(secret, cfg.TokenTTL),
		revoker:    revoker,
		simplifier: simp,
	})

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
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
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
