package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Shobhit-2204/PingUp/internal/adapters/directory"
	httpadapter "github.com/Shobhit-2204/PingUp/internal/adapters/http"
	"github.com/Shobhit-2204/PingUp/internal/adapters/llm"
	"github.com/Shobhit-2204/PingUp/internal/adapters/media"
	firestorestore "github.com/Shobhit-2204/PingUp/internal/adapters/storage/firestore"
	memstore "github.com/Shobhit-2204/PingUp/internal/adapters/storage/memory"
	"github.com/Shobhit-2204/PingUp/internal/app/assistant"
	"github.com/Shobhit-2204/PingUp/internal/app/delivery"
	"github.com/Shobhit-2204/PingUp/internal/config"
	"github.com/Shobhit-2204/PingUp/internal/domain"
	"github.com/Shobhit-2204/PingUp/internal/observability"
	"github.com/Shobhit-2204/PingUp/internal/realtime"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	observability.Init(parseLevel(cfg.LogLevel))
	logger := observability.Logger()

	// Generative backend: mock or Gemini
	var generator domain.ReplyGenerator
	if cfg.UseMockLLM {
		logger.Info("using mock reply generator")
		generator = llm.NewMockGenerator()
	} else {
		logger.Info("using Gemini reply generator", "model", cfg.ModelName)
		generator, err = llm.NewGeminiClient(ctx, llm.GeminiConfig{
			APIKey:    cfg.GeminiAPIKey,
			Project:   cfg.GCPProject,
			Location:  cfg.GCPLocation,
			ModelName: cfg.ModelName,
		})
		if err != nil {
			log.Fatalf("error initializing Gemini client: %v", err)
		}
	}

	// Storage: Firestore or Memory
	var messageStore domain.MessageStore
	switch cfg.StorageBackend {
	case config.StorageFirestore:
		logger.Info("using Firestore message store", "project", cfg.GCPProject)
		fsStore, err := firestorestore.NewStore(ctx, cfg.GCPProject)
		if err != nil {
			log.Fatalf("error initializing Firestore store: %v", err)
		}
		defer fsStore.Close()
		messageStore = fsStore
	default:
		logger.Info("using in-memory message store")
		messageStore = memstore.NewMessageStore()
	}

	// Media: ImageKit when configured, local stub otherwise
	var uploader domain.MediaUploader
	if cfg.ImageKit.PrivateKey != "" {
		logger.Info("using ImageKit media uploader")
		uploader = media.NewImageKitUploader(
			cfg.ImageKit.PrivateKey,
			cfg.ImageKit.URLEndpoint,
			cfg.ImageKit.UploadEndpoint,
		)
	} else {
		logger.Info("using in-memory media uploader")
		uploader = media.NewMemoryUploader()
	}

	registry := realtime.NewRegistry()
	deliverySvc := delivery.NewService(messageStore, registry, uploader, directory.NewMemoryDirectory())
	assistantSvc := assistant.NewService(generator)

	handler := httpadapter.NewServer(deliverySvc, assistantSvc, registry,
		httpadapter.HeaderAuthenticator{},
		httpadapter.Options{AllowedOrigin: cfg.AllowedOrigin},
	)

	addr := ":" + cfg.Port
	logger.Info("PingUp messaging API listening", "addr", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatal(err)
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
