package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mockielts/mockielts-backend/internal/config"
	"github.com/mockielts/mockielts-backend/internal/database"
	"github.com/mockielts/mockielts-backend/internal/events"
	"github.com/mockielts/mockielts-backend/internal/handler"
	"github.com/mockielts/mockielts-backend/internal/logger"
	"github.com/mockielts/mockielts-backend/internal/repository"
	"github.com/mockielts/mockielts-backend/internal/router"
	"github.com/mockielts/mockielts-backend/internal/service"
	"github.com/mockielts/mockielts-backend/internal/validator"
	"github.com/mockielts/mockielts-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting MockIELTS Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Event Publisher ───────────────────────────────────────────────
	publisher, localBus, err := events.NewPublisher(events.PublisherConfig{
		KafkaBrokers: cfg.KafkaBrokers,
		Topic:        cfg.EventsTopic,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create event publisher")
	}
	defer publisher.Close()
	if localBus != nil {
		if err := events.LogConsumer(ctx, localBus, cfg.EventsTopic, log); err != nil {
			log.Warn().Err(err).Msg("Event log consumer not started")
		}
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	testRepo := repository.NewTestRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	answerRepo := repository.NewAnswerRepository(pool)
	resultRepo := repository.NewResultRepository(pool)
	mediaRepo := repository.NewMediaRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	testService := service.NewTestService(testRepo, rdb, log)
	attemptService := service.NewAttemptService(attemptRepo, resultRepo, answerRepo, testService, rdb, publisher, cfg, log)
	mediaService := service.NewMediaService(cfg, mediaRepo, log)
	dashboardService := service.NewDashboardService(resultRepo)
	exportService := service.NewExportService(resultRepo, testService)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Test:      handler.NewTestHandler(testService),
		Attempt:   handler.NewAttemptHandler(attemptService, mediaService),
		Media:     handler.NewMediaHandler(mediaService),
		Dashboard: handler.NewDashboardHandler(dashboardService),
		Export:    handler.NewExportHandler(exportService),
		WS:        handler.NewWSHandler(attemptService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	answerWorker := worker.NewAnswerWorker(answerRepo, rdb, log)
	resultWorker := worker.NewResultWorker(resultRepo, rdb, log)
	deadlineWorker := worker.NewDeadlineWorker(attemptService, rdb, cfg.DeadlinePoll, log)

	for _, start := range []func(context.Context){answerWorker.Start, resultWorker.Start, deadlineWorker.Start} {
		workers.Add(1)
		go func() {
			defer workers.Done()
			start(workerCtx)
		}()
	}

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load all published tests into Redis BEFORE accepting traffic.
	if err := testService.PrewarmAllCaches(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for the queues to drain.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
