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

	"github.com/ginja/claims-api/internal/config"
	"github.com/ginja/claims-api/internal/domain/catalog"
	"github.com/ginja/claims-api/internal/domain/claims"
	"github.com/ginja/claims-api/internal/domain/member"
	"github.com/ginja/claims-api/internal/domain/provider"
	"github.com/ginja/claims-api/internal/platform/auth"
	"github.com/ginja/claims-api/internal/platform/db"
	"github.com/ginja/claims-api/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "claims-server",
		Short: "Health insurance claims API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the claims API server",
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
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (default from MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (default from MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	// migrate down - keep as warning
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("WARNING: migrate down is destructive and not supported by the built-in runner.")
			return nil
		},
	})

	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load sample members, providers and medical codes",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			if err := seedSampleData(ctx, pool); err != nil {
				return fmt.Errorf("seed failed: %w", err)
			}
			fmt.Println("Database seeded successfully.")
			return nil
		},
	}
}

func strptr(s string) *string { return &s }

// seedSampleData loads a small realistic data set for manual testing. Rows
// are upserted so the command can be re-run safely.
func seedSampleData(ctx context.Context, pool *pgxpool.Pool) error {
	members := []member.Member{
		{ID: "M123", Name: "John Doe", Email: "john.doe@example.com",
			PhoneNumber: strptr("+254700000001"), Status: member.StatusActive,
			BenefitLimit: 100000.00, UsedBenefit: 0.00},
		{ID: "M124", Name: "Jane Smith", Email: "jane.smith@example.com",
			PhoneNumber: strptr("+254700000002"), Status: member.StatusActive,
			BenefitLimit: 50000.00, UsedBenefit: 10000.00},
		{ID: "M125", Name: "Bob Johnson", Email: "bob.johnson@example.com",
			PhoneNumber: strptr("+254700000003"), Status: member.StatusInactive,
			BenefitLimit: 75000.00, UsedBenefit: 0.00},
	}
	for _, m := range members {
		_, err := pool.Exec(ctx, `
			INSERT INTO members (id, name, email, phone_number, status, benefit_limit, used_benefit)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (id) DO NOTHING`,
			m.ID, m.Name, m.Email, m.PhoneNumber, m.Status, m.BenefitLimit, m.UsedBenefit)
		if err != nil {
			return fmt.Errorf("seed member %s: %w", m.ID, err)
		}
	}

	providers := []provider.Provider{
		{ID: "H456", Name: "Nairobi General Hospital",
			Address: strptr("123 Hospital Road, Nairobi"), PhoneNumber: strptr("+254200000001"),
			Email: strptr("info@nairobigeneral.co.ke"), IsActive: true},
		{ID: "H457", Name: "Mombasa Medical Center",
			Address: strptr("456 Coast Avenue, Mombasa"), PhoneNumber: strptr("+254200000002"),
			Email: strptr("info@mombasamedical.co.ke"), IsActive: true},
		{ID: "H458", Name: "Kisumu Health Clinic",
			Address: strptr("789 Lake Road, Kisumu"), PhoneNumber: strptr("+254200000003"),
			Email: strptr("info@kisumuhealth.co.ke"), IsActive: false},
	}
	for _, p := range providers {
		_, err := pool.Exec(ctx, `
			INSERT INTO providers (id, name, address, phone_number, email, is_active)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (id) DO NOTHING`,
			p.ID, p.Name, p.Address, p.PhoneNumber, p.Email, p.IsActive)
		if err != nil {
			return fmt.Errorf("seed provider %s: %w", p.ID, err)
		}
	}

	diagnoses := []catalog.Diagnosis{
		{Code: "D001", Name: "Malaria", Description: strptr("Parasitic infection transmitted by mosquitoes")},
		{Code: "D002", Name: "Typhoid Fever", Description: strptr("Bacterial infection caused by Salmonella typhi")},
		{Code: "D003", Name: "Pneumonia", Description: strptr("Lung infection causing inflammation")},
		{Code: "D004", Name: "Diabetes Type 2", Description: strptr("Chronic condition affecting blood sugar regulation")},
	}
	for _, d := range diagnoses {
		_, err := pool.Exec(ctx, `
			INSERT INTO diagnoses (code, name, description)
			VALUES ($1,$2,$3)
			ON CONFLICT (code) DO NOTHING`,
			d.Code, d.Name, d.Description)
		if err != nil {
			return fmt.Errorf("seed diagnosis %s: %w", d.Code, err)
		}
	}

	procedures := []catalog.Procedure{
		{Code: "P001", Name: "General Consultation",
			Description: strptr("Standard medical consultation and examination"), AverageCost: 5000.00},
		{Code: "P002", Name: "Blood Test Panel",
			Description: strptr("Comprehensive blood analysis"), AverageCost: 8000.00},
		{Code: "P003", Name: "X-Ray Imaging",
			Description: strptr("Radiographic imaging procedure"), AverageCost: 12000.00},
		{Code: "P004", Name: "Minor Surgery",
			Description: strptr("Outpatient surgical procedure"), AverageCost: 25000.00},
		{Code: "P005", Name: "Hospital Admission (3 days)",
			Description: strptr("Inpatient care for 3 days"), AverageCost: 45000.00},
	}
	for _, p := range procedures {
		_, err := pool.Exec(ctx, `
			INSERT INTO procedures (code, name, description, average_cost)
			VALUES ($1,$2,$3,$4)
			ON CONFLICT (code) DO NOTHING`,
			p.Code, p.Name, p.Description, p.AverageCost)
		if err != nil {
			return fmt.Errorf("seed procedure %s: %w", p.Code, err)
		}
	}

	return nil
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.MaxBodySize))
	e.Use(middleware.RequestTimeout(time.Duration(cfg.RequestTimeout) * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
		}))
	}

	// API group
	apiV1 := e.Group("/api/v1")

	// Rate limiting middleware
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Repositories
	memberRepo := member.NewRepoPG(pool)
	providerRepo := provider.NewRepoPG(pool)
	diagnosisRepo := catalog.NewDiagnosisRepoPG(pool)
	procedureRepo := catalog.NewProcedureRepoPG(pool)
	claimsRepo := claims.NewRepoPG(pool)

	// Services
	memberSvc := member.NewService(memberRepo)
	providerSvc := provider.NewService(providerRepo)
	catalogSvc := catalog.NewService(diagnosisRepo, procedureRepo)

	validator := claims.NewValidator(memberRepo, providerRepo, catalogSvc)
	claimsSvc := claims.NewService(claimsRepo, memberRepo, validator, db.NewTxRunner(pool))

	// Handlers
	member.NewHandler(memberSvc).RegisterRoutes(apiV1)
	provider.NewHandler(providerSvc).RegisterRoutes(apiV1)
	catalog.NewHandler(catalogSvc).RegisterRoutes(apiV1)
	claims.NewHandler(claimsSvc).RegisterRoutes(apiV1)

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

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
