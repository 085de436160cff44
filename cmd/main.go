package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/config"
	"github.com/Dosada05/bracket-engine/db"
	"github.com/Dosada05/bracket-engine/handlers"
	"github.com/Dosada05/bracket-engine/repositories"
	api "github.com/Dosada05/bracket-engine/routes"
	"github.com/Dosada05/bracket-engine/services"
	"github.com/Dosada05/bracket-engine/storage"
	_ "github.com/lib/pq"
)

const schedulerInterval = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	policy, err := services.LoadEnginePolicy(cfg.EnginePolicyPath)
	if err != nil {
		logger.Error("failed to load engine policy", slog.Any("error", err))
		os.Exit(1)
	}

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	if err := db.Migrate(dbConn, cfg.MigrationsPath); err != nil {
		logger.Error("failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("migrations applied")

	var uploader storage.FileUploader
	if cfg.EvidenceStorageConfigured() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize evidence storage", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("evidence storage initialized")
	} else {
		logger.Warn("evidence storage not configured, uploads disabled")
	}

	wsHub := brackets.NewHub()
	go wsHub.Run()

	runner := repositories.NewSQLTxRunner(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	bracketRepo := repositories.NewPostgresBracketRepository(dbConn)
	nodeRepo := repositories.NewPostgresNodeRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	submissionRepo := repositories.NewPostgresSubmissionRepository(dbConn)
	disputeRepo := repositories.NewPostgresDisputeRepository(dbConn)
	standingRepo := repositories.NewPostgresStandingRepository(dbConn)
	leaseRepo := repositories.NewPostgresLeaseRepository(dbConn)

	advancementService := services.NewAdvancementService(
		tournamentRepo, bracketRepo, nodeRepo, matchRepo, standingRepo, policy, logger)
	bracketService := services.NewBracketService(
		runner, leaseRepo, tournamentRepo, participantRepo,
		bracketRepo, nodeRepo, matchRepo, standingRepo, policy, logger)
	matchService := services.NewMatchService(
		runner, matchRepo, advancementService, wsHub, policy, logger)
	resultService := services.NewResultService(
		runner, matchRepo, submissionRepo, disputeRepo,
		advancementService, wsHub, policy, logger)
	disputeService := services.NewDisputeService(
		runner, disputeRepo, matchRepo, submissionRepo,
		advancementService, wsHub, logger)

	routeHandlers := api.Handlers{
		Bracket:   handlers.NewBracketHandler(bracketService),
		Match:     handlers.NewMatchHandler(matchService, resultService),
		Dispute:   handlers.NewDisputeHandler(disputeService),
		WebSocket: handlers.NewWebSocketHandler(wsHub, logger),
	}
	if uploader != nil {
		routeHandlers.Evidence = handlers.NewEvidenceHandler(uploader)
	}
	router := api.InitRoutes(routeHandlers, cfg.JWTSecretKey)

	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	go runScheduler(schedulerCtx, matchService, resultService, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  time.Minute,
	}

	shutdownErr := make(chan error)
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		sig := <-quit
		logger.Info("shutting down", slog.String("signal", sig.String()))

		stopScheduler()
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		shutdownErr <- server.Shutdown(ctx)
	}()

	logger.Info("starting server", slog.String("addr", server.Addr))
	err = server.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
	if err := <-shutdownErr; err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// runScheduler drives the time-based transitions: opening check-in windows,
// forfeiting no-shows, auto-starting ready matches, and confirming lone
// result submissions whose waiting period ran out.
func runScheduler(ctx context.Context, matches services.MatchService, results services.ResultService, logger *slog.Logger) {
	ticker := time.NewTicker(schedulerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("scheduler stopped")
			return
		case now := <-ticker.C:
			if err := matches.OpenCheckIns(ctx, now); err != nil {
				logger.Error("check-in sweep failed", slog.Any("error", err))
			}
			if err := matches.SweepCheckInExpirations(ctx, now); err != nil {
				logger.Error("check-in expiration sweep failed", slog.Any("error", err))
			}
			if err := matches.SweepAutoStarts(ctx, now); err != nil {
				logger.Error("auto-start sweep failed", slog.Any("error", err))
			}
			if err := results.SweepResultDeadlines(ctx, now); err != nil {
				logger.Error("result deadline sweep failed", slog.Any("error", err))
			}
		}
	}
}
