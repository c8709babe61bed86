package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lims/lims/internal/config"
	"github.com/lims/lims/internal/domain/account"
	"github.com/lims/lims/internal/domain/billing"
	"github.com/lims/lims/internal/domain/catalog"
	"github.com/lims/lims/internal/domain/organization"
	"github.com/lims/lims/internal/domain/person"
	"github.com/lims/lims/internal/domain/printsettings"
	"github.com/lims/lims/internal/domain/report"
	"github.com/lims/lims/internal/platform/apperr"
	"github.com/lims/lims/internal/platform/auth"
	"github.com/lims/lims/internal/platform/cache"
	"github.com/lims/lims/internal/platform/db"
	"github.com/lims/lims/internal/platform/logging"
	"github.com/lims/lims/internal/platform/middleware"
	"github.com/lims/lims/internal/platform/validate"
)

const (
	version         = "0.1.0"
	bodyLimit       = "2M"
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "lims-server",
		Short:        "Multi-tenant laboratory information API server",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(accountCmd())
	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrate, _ := cmd.Flags().GetBool("migrate")
			return runServer(migrate)
		},
	}
	cmd.Flags().Bool("migrate", false, "Apply pending migrations before serving")
	return cmd
}

// connect loads configuration and opens the pool for one-shot commands.
func connect(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, poolConfig(cfg))
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
}

func poolConfig(cfg *config.Config) db.PoolConfig {
	return db.PoolConfig{
		DatabaseURL:     cfg.DatabaseURL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Hour,
	}
}

func migrator(pool *pgxpool.Pool, dir, schema string) (*db.Migrator, error) {
	m := db.NewMigrator(pool, dir)
	if schema == "" || schema == "public" {
		return m, nil
	}
	return m.WithSchema(schema)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			schema, _ := cmd.Flags().GetString("schema")

			ctx := context.Background()
			cfg, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			m, err := migrator(pool, dir, schema)
			if err != nil {
				return err
			}
			count, err := m.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) to schema %s.\n", count, schema)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	upCmd.Flags().String("schema", "public", "Target schema")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			schema, _ := cmd.Flags().GetString("schema")

			ctx := context.Background()
			cfg, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			m, err := migrator(pool, dir, schema)
			if err != nil {
				return err
			}
			statuses, err := m.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.Modified {
						status = "modified"
					}
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	statusCmd.Flags().String("schema", "public", "Target schema")
	cmd.AddCommand(statusCmd)

	return cmd
}

func accountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage user accounts",
	}

	activateCmd := &cobra.Command{
		Use:   "activate",
		Short: "Activate an account by email",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			if email == "" {
				return fmt.Errorf("--email is required")
			}

			ctx := context.Background()
			_, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := account.NewService(account.NewRepoPG(pool), nil, zerolog.Nop())
			if err := svc.Activate(ctx, email); err != nil {
				return err
			}
			fmt.Printf("Account %s activated.\n", account.NormalizeEmail(email))
			return nil
		},
	}
	activateCmd.Flags().String("email", "", "Account email")
	cmd.AddCommand(activateCmd)

	return cmd
}

// handlers groups the HTTP surface of every domain.
type handlers struct {
	accounts      *account.Handler
	organizations *organization.Handler
	persons       *person.Handler
	tests         *catalog.Handler
	bills         *billing.Handler
	reports       *report.Handler
	printSettings *printsettings.Handler
}

func buildHandlers(cfg *config.Config, pool *pgxpool.Pool, issuer *auth.TokenIssuer, views *cache.Cache, logger zerolog.Logger) handlers {
	tx := db.NewTransactor(pool)

	accountRepo := account.NewRepoPG(pool)
	accountSvc := account.NewService(accountRepo, issuer, logger)
	orgSvc := organization.NewService(organization.NewRepoPG(pool), accountRepo, tx, logger)

	reportRepo := report.NewRepoPG(pool)
	publicViews := report.NewViews(reportRepo, views, logger)
	personSvc := person.NewService(person.NewRepoPG(pool), publicViews, logger)
	catalogSvc := catalog.NewService(catalog.NewRepoPG(pool), tx, logger)
	billingSvc := billing.NewService(billing.NewRepoPG(pool), personSvc, catalogSvc, publicViews, logger)
	reportSvc := report.NewService(reportRepo, billingSvc, catalogSvc, personSvc,
		views, tx, report.Options{StrictTransitions: cfg.ReportStrictTransitions}, logger)
	printSvc := printsettings.NewService(printsettings.NewRepoPG(pool), logger)

	return handlers{
		accounts:      account.NewHandler(accountSvc, !cfg.IsDev(), issuer.RefreshTTL()),
		organizations: organization.NewHandler(orgSvc),
		persons:       person.NewHandler(personSvc),
		tests:         catalog.NewHandler(catalogSvc),
		bills:         billing.NewHandler(billingSvc),
		reports:       report.NewHandler(reportSvc),
		printSettings: printsettings.NewHandler(printSvc),
	}
}

func newEcho(cfg *config.Config, verifier auth.Verifier, h handlers, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(logger)
	e.Validator = validate.New()

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID", auth.OrgIDHeader},
		AllowCredentials: true,
	}))

	rateLimitCfg := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rateLimitCfg.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rateLimitCfg.BurstSize = cfg.RateLimitBurst
	}

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(rateLimitCfg))
	apiV1.Use(middleware.BodyLimit(bodyLimit))
	apiV1.Use(middleware.RequestTimeout(requestTimeout, "/api/v1/bills/export"))

	tenantLimitCfg := rateLimitCfg
	tenantLimitCfg.ContextKey = "org_id"
	protected := apiV1.Group("", auth.Gate(verifier), middleware.RateLimit(tenantLimitCfg))

	h.accounts.RegisterRoutes(apiV1, protected)
	h.organizations.RegisterRoutes(apiV1, protected)
	h.persons.RegisterRoutes(protected)
	h.tests.RegisterRoutes(protected)
	h.bills.RegisterRoutes(protected)
	h.reports.RegisterRoutes(apiV1, protected)
	h.printSettings.RegisterRoutes(protected)

	// The protected group shares the /api/v1 prefix, so its catch-all would
	// answer unknown paths with the gate's 401. Re-register it ungated.
	apiV1.RouteNotFound("", echo.NotFoundHandler)
	apiV1.RouteNotFound("/*", echo.NotFoundHandler)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})

	return e
}

func runServer(migrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(logging.Options{
		Level:          cfg.LogLevel,
		Dev:            cfg.IsDev(),
		File:           cfg.LogFile,
		FileMaxSizeMB:  cfg.LogFileMaxSizeMB,
		FileMaxBackups: cfg.LogFileMaxBackups,
		FileMaxAgeDays: cfg.LogFileMaxAgeDays,
	})

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, poolConfig(cfg))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	if migrate {
		count, err := db.NewMigrator(pool, cfg.MigrationsDir).Up(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		logger.Info().Int("applied", count).Msg("migrations applied")
	}

	views, err := cache.New(cache.Options{
		Size:     cfg.CacheSize,
		TTL:      cfg.CacheTTL,
		RedisURL: cfg.RedisURL,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up cache")
	}
	defer views.Close()

	issuer, err := auth.NewTokenIssuer(auth.IssuerConfig{
		AccessSecret:  cfg.AccessSecret(),
		RefreshSecret: cfg.RefreshSecret(),
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up token issuer")
	}

	e := newEcho(cfg, issuer, buildHandlers(cfg, pool, issuer, views, logger), logger)
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/health/cache", func(c echo.Context) error {
		if err := views.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{"status": "degraded", "error": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]interface{}{"status": "ok", "stats": views.Stats()})
	})

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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
