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

	"github.com/go-chi/chi/v5"
	"github.com/morhendos/padel-league/config"
	"github.com/morhendos/padel-league/db"
	"github.com/morhendos/padel-league/handlers"
	"github.com/morhendos/padel-league/repositories"
	api "github.com/morhendos/padel-league/routes"
	"github.com/morhendos/padel-league/schedule"
	"github.com/morhendos/padel-league/services"
	"github.com/morhendos/padel-league/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL)
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

	if err := db.RunMigrations(dbConn); err != nil {
		logger.Error("failed to run database migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database migrations applied")

	var uploader storage.FileUploader
	if cfg.R2Configured() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("R2 uploader initialized")
	} else {
		logger.Warn("R2 storage not configured, file uploads disabled")
	}

	wsHub := schedule.NewHub(logger)
	go wsHub.Run()

	userRepo := repositories.NewPostgresUserRepository(dbConn)
	leagueRepo := repositories.NewPostgresLeagueRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	rankingRepo := repositories.NewPostgresRankingRepository(dbConn)
	transactor := repositories.NewSQLTransactor(dbConn)

	locker := services.NewLeagueLocker()

	authService := services.NewAuthService(userRepo)
	leagueService := services.NewLeagueService(leagueRepo, teamRepo, matchRepo, userRepo, transactor, locker, wsHub, uploader, logger)
	scheduleService := services.NewScheduleService(leagueRepo, teamRepo, matchRepo, userRepo, transactor, locker, wsHub, logger)
	rankingService := services.NewRankingService(rankingRepo, matchRepo, leagueRepo, teamRepo, userRepo, transactor, wsHub, logger)
	matchService := services.NewMatchService(matchRepo, leagueRepo, teamRepo, userRepo, rankingRepo, transactor, wsHub, logger)
	teamService := services.NewTeamService(teamRepo, leagueRepo, userRepo, transactor, uploader, logger)

	authHandler := handlers.NewAuthHandler(authService, cfg.JWTSecretKey)
	leagueHandler := handlers.NewLeagueHandler(leagueService, scheduleService)
	teamHandler := handlers.NewTeamHandler(teamService)
	matchHandler := handlers.NewMatchHandler(matchService)
	rankingHandler := handlers.NewRankingHandler(rankingService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, leagueService, logger)

	router := chi.NewRouter()
	api.SetupRoutes(router, cfg.JWTSecretKey,
		authHandler, leagueHandler, teamHandler, matchHandler, rankingHandler, webSocketHandler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
}
