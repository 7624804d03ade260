package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"go.uber.org/zap"

	"github.com/elicita/delphi-engine/pkg/audit"
	"github.com/elicita/delphi-engine/pkg/auth"
	"github.com/elicita/delphi-engine/pkg/config"
	"github.com/elicita/delphi-engine/pkg/database"
	"github.com/elicita/delphi-engine/pkg/handlers"
	"github.com/elicita/delphi-engine/pkg/logging"
	"github.com/elicita/delphi-engine/pkg/middleware"
	"github.com/elicita/delphi-engine/pkg/repositories"
	"github.com/elicita/delphi-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("bind_addr", cfg.BindAddr),
		zap.String("port", cfg.Port),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
	)

	ctx := context.Background()

	// Connect to PostgreSQL
	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database",
			zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	// Run migrations using database/sql (required by golang-migrate)
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection",
			zap.String("error", logging.SanitizeError(err)))
	}
	if err := database.RunMigrations(sqlDB, cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations",
			zap.String("error", logging.SanitizeError(err)))
	}
	_ = sqlDB.Close()

	// Authentication
	jwksClient, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
	})
	if err != nil {
		logger.Fatal("Failed to create JWKS client", zap.Error(err))
	}
	defer jwksClient.Close()

	auditor := audit.NewAuditor(logger)

	authService := auth.NewAuthService(jwksClient, logger)
	authMiddleware := auth.NewMiddleware(authService, auditor, logger)

	// Repositories
	caseRepo := repositories.NewCaseRepository(db)
	evalRepo := repositories.NewEvaluationRepository(db)
	analysisRepo := repositories.NewRoundAnalysisRepository(db)

	// Services
	caseService := services.NewCaseService(caseRepo, logger)
	evalService := services.NewEvaluationService(caseRepo, evalRepo, logger)
	analysisService := services.NewAnalysisService(caseRepo, evalRepo, analysisRepo, logger)

	mux := http.NewServeMux()

	// Register handlers
	healthHandler := handlers.NewHealthHandler(cfg, logger)
	healthHandler.RegisterRoutes(mux)

	caseHandler := handlers.NewCaseHandler(caseService, auditor, logger)
	caseHandler.RegisterRoutes(mux, authMiddleware)

	evalHandler := handlers.NewEvaluationHandler(evalService, logger)
	evalHandler.RegisterRoutes(mux, authMiddleware)

	analysisHandler := handlers.NewAnalysisHandler(analysisService, auditor, logger)
	analysisHandler.RegisterRoutes(mux, authMiddleware)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting delphi-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

// newLogger builds a production logger, or a human-readable development one
// for local environments.
func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
