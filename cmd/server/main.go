package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/sanhakwon/metrocast/adapters/llm"
	"github.com/sanhakwon/metrocast/adapters/localfs"
	"github.com/sanhakwon/metrocast/adapters/memory"
	"github.com/sanhakwon/metrocast/adapters/mongo"
	"github.com/sanhakwon/metrocast/adapters/stt"
	"github.com/sanhakwon/metrocast/domain/repositories"
	"github.com/sanhakwon/metrocast/internal/api"
	"github.com/sanhakwon/metrocast/internal/config"
	"github.com/sanhakwon/metrocast/internal/events"
	"github.com/sanhakwon/metrocast/internal/worker"
	"github.com/sanhakwon/metrocast/usecase"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load(logger)

	ctx := context.Background()

	// Persistence: Mongo when configured, in-memory store otherwise.
	var (
		store       *repositories.Store
		mongoClient *mongo.Client
	)
	if cfg.MongoURI != "" {
		client, err := mongo.NewClient(cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		mongoClient = client
		store, err = client.NewStore(ctx)
		if err != nil {
			logger.Fatal("Failed to initialize MongoDB store", zap.Error(err))
		}
		logger.Info("Using MongoDB store", zap.String("database", cfg.MongoDatabase))
	} else {
		_, store = memory.NewStore()
		logger.Warn("MONGODB_URI not set, using in-memory store")
	}

	audioStore, err := localfs.NewAudioStore(cfg.AudioDir)
	if err != nil {
		logger.Fatal("Failed to initialize audio store", zap.Error(err))
	}

	// Speech-to-text: Google Cloud Speech when credentials are present.
	var speechToText repositories.SpeechToText
	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" {
		google, err := stt.NewGoogleSpeechToText(ctx, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Google Speech client", zap.Error(err))
		}
		defer google.Close()
		speechToText = google
	} else {
		logger.Warn("GOOGLE_APPLICATION_CREDENTIALS not set, using mock speech-to-text")
		speechToText = stt.NewMockSpeechToText(logger)
	}

	// Text refinement: Gemini when an API key is present.
	var refiner repositories.TextRefiner
	if cfg.GeminiAPIKey != "" {
		gemini, err := llm.NewGeminiRefiner(ctx, cfg.GeminiAPIKey, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Gemini client", zap.Error(err))
		}
		refiner = gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set, using mock refiner")
		refiner = llm.NewMockRefiner()
	}

	// Usecase services
	hub := events.NewHub(logger)
	gazetteer := usecase.NewStationGazetteer(nil, cfg.SimilarityCutoff)
	segmenter := usecase.NewSegmenter(gazetteer, refiner, cfg.MergeMaxGap, logger)
	matcher := usecase.NewKeywordMatcher(store.Keywords, store.Alerts, logger)
	progress := usecase.NewProgressTracker(store.Sessions, store.Chunks)
	orchestrator := usecase.NewOrchestrator(
		store,
		audioStore,
		speechToText,
		matcher,
		progress,
		hub,
		repositories.AudioConfig{
			SampleRate: cfg.SampleRate,
			Encoding:   cfg.Encoding,
			Language:   cfg.Language,
		},
		cfg.TranscribeTimeout,
		logger,
	)
	sessionService := usecase.NewSessionService(store, audioStore, hub, cfg.SessionTTL, logger)
	keywordService := usecase.NewKeywordService(store, logger)
	resultsBuilder := usecase.NewResultsBuilder(store, segmenter, refiner, cfg.RefineTimeout, logger)

	pool := worker.NewPool(cfg.Workers, cfg.QueueSize, logger)
	pool.Start(ctx)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewRequestValidator()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize API routes
	api.InitRoutes(e, &api.Handlers{
		Sessions: sessionService,
		Keywords: keywordService,
		Results:  resultsBuilder,
		Pool:     pool,
		Runner:   orchestrator,
		Hub:      hub,
		Logger:   logger,
	})

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	pool.Stop()
	if mongoClient != nil {
		if err := mongoClient.Close(shutdownCtx); err != nil {
			logger.Error("Failed to close MongoDB client", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}
