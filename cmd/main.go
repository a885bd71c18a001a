package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/sonara-ai/sonara/adapters/mongo"
	"github.com/sonara-ai/sonara/adapters/stt"
	"github.com/sonara-ai/sonara/adapters/tts"
	"github.com/sonara-ai/sonara/domain/repositories"
	"github.com/sonara-ai/sonara/internal/api"
	"github.com/sonara-ai/sonara/internal/config"
	"github.com/sonara-ai/sonara/internal/metrics"
	"github.com/sonara-ai/sonara/internal/websocket"
	"github.com/sonara-ai/sonara/usecase"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load .env if present, before reading any engine credentials
	if err := godotenv.Load(); err == nil {
		logger.Info("Loaded environment from .env file")
	}

	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Fatal("Failed to load config", zap.String("path", *configPath), zap.Error(err))
		}
		cfg = loaded
		logger.Info("Loaded configuration", zap.String("path", *configPath))
	}

	m := metrics.New()

	// Optional durable archive for conversation events
	var eventStore repositories.EventStore
	if cfg.Archive.Enabled {
		uri := cfg.Archive.URI
		if envURI := os.Getenv("MONGODB_URI"); envURI != "" {
			uri = envURI
		}
		client, err := mongo.NewClient(uri, cfg.Archive.Database, logger)
		if err != nil {
			logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			client.Close(ctx)
		}()
		eventStore = mongo.NewEventStore(client.Database)
	}

	service := usecase.NewStreamingService(usecase.StreamingOptions{
		BufferMaxBytes:       cfg.Streaming.BufferMaxBytes,
		QueueDepth:           cfg.Streaming.QueueDepth,
		SessionTimeout:       cfg.Streaming.GetSessionTimeout(),
		CleanupInterval:      cfg.Streaming.GetCleanupInterval(),
		Logger:               logger,
		Metrics:              m,
		EventStore:           eventStore,
		TranscriptionWorkers: cfg.Streaming.TranscriptionWorkers,
		SynthesisWorkers:     cfg.Streaming.SynthesisWorkers,
	})

	speechToText, err := buildSpeechToText(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize speech-to-text engine", zap.Error(err))
	}
	textToSpeech, err := buildTextToSpeech(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize text-to-speech engine", zap.Error(err))
	}

	transcription := usecase.NewTranscriptionPool(service, speechToText, cfg.Streaming.TranscriptionWorkers, logger, m)
	synthesis := usecase.NewSynthesisPool(service, textToSpeech, cfg.Streaming.SynthesisWorkers, logger, m)

	service.StartExpiryLoop()
	transcription.Start()
	synthesis.Start()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	gateway := websocket.NewGateway(service, logger)
	api.InitRoutes(e, service, gateway, api.Options{
		StreamAuth:     cfg.Auth.Enabled,
		MetricsEnabled: cfg.Server.MetricsEnabled,
	}, logger)

	port := strconv.Itoa(cfg.Server.Port)
	if envPort := os.Getenv("PORT"); envPort != "" {
		port = envPort
	}

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Streaming server started",
		zap.String("port", port),
		zap.String("stt", cfg.Engines.SpeechToText),
		zap.String("tts", cfg.Engines.TextToSpeech))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	transcription.Stop()
	synthesis.Stop()
	service.Stop()

	logger.Info("Server exited")
}

func buildSpeechToText(cfg *config.Config, logger *zap.Logger) (repositories.SpeechToText, error) {
	switch cfg.Engines.SpeechToText {
	case "google":
		return stt.NewGoogleSpeechToText(context.Background(), logger)
	case "mock":
		return stt.NewMockSpeechToText(logger), nil
	default:
		return nil, fmt.Errorf("unknown speech-to-text engine: %s", cfg.Engines.SpeechToText)
	}
}

func buildTextToSpeech(cfg *config.Config, logger *zap.Logger) (repositories.TextToSpeech, error) {
	switch cfg.Engines.TextToSpeech {
	case "elevenlabs":
		return tts.NewElevenLabsTTS(tts.NewElevenLabsConfigFromEnv(), logger)
	case "gemini":
		return tts.NewGeminiTTS(logger)
	case "mock":
		return tts.NewMockTextToSpeech(logger), nil
	default:
		return nil, fmt.Errorf("unknown text-to-speech engine: %s", cfg.Engines.TextToSpeech)
	}
}
