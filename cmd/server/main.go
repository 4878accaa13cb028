package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizly-backend/internal/config"
	"quizly-backend/internal/database"
	"quizly-backend/internal/handlers"
	"quizly-backend/internal/middleware"
	"quizly-backend/internal/pipeline"
	"quizly-backend/internal/repository"
	"quizly-backend/internal/router"
	"quizly-backend/internal/services"
	"quizly-backend/internal/websocket"
)

func main() {
	log.Println("🚀 Starting Quizly Backend...")
	ctx := context.Background()

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(ctx, pool, cfg.MigrationsDir); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	quizRepo := repository.NewQuizRepo(pool)

	// ──── Step 5: Initialize AI Clients ────
	geminiService, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	log.Printf("✓ Gemini client initialized (%s)", cfg.GeminiModel)

	var transcriber services.Transcriber
	switch cfg.Transcriber {
	case "gemini":
		transcriber = geminiService
	default:
		transcriber = services.NewWhisperTranscriber(cfg.OpenAIAPIKey, cfg.WhisperModel, cfg.TranscribeLanguage)
	}
	log.Printf("✓ Transcriber: %s", cfg.Transcriber)

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authService := services.NewAuthService(userRepo, services.NewRedisBlacklist(redisClients.Cache), jwtAuth)
	youtubeService := services.NewYouTubeService(cfg.FFmpegPath)

	deps := pipeline.Deps{
		Video:       youtubeService,
		Transcriber: transcriber,
		Synthesizer: geminiService,
		Store:       quizRepo,
		Publisher:   pipeline.NewRedisPublisher(redisClients.Cache),
	}
	if cfg.CaptionsFallback {
		deps.Captions = youtubeService
		log.Println("✓ Captions fallback enabled")
	}
	quizPipeline := pipeline.New(pipeline.Config{
		ScratchDir:             cfg.ScratchDir,
		MaxVideoSeconds:        cfg.MaxVideoSeconds,
		Timeout:                cfg.PipelineTimeout,
		RequireAnswerInOptions: cfg.RequireAnswerInOptions,
	}, deps)

	// ──── Step 6: Start Scratch Sweeper ────
	sweeper := pipeline.NewSweeper(cfg.ScratchDir, cfg.ScratchTTL)
	sweeper.Start()
	log.Println("✓ Scratch sweeper started")

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService, cfg.CookieSecure, cfg.AccessTokenTTL)
	quizHandler := handlers.NewQuizHandler(quizRepo, quizPipeline)

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth, cfg.FrontendURL)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		quizHandler,
		wsHub.HandleWebSocket,
		cfg.FrontendURL,
		router.Limits{AuthPerMinute: cfg.AuthRateLimit, QuizCreatePerMinute: cfg.QuizCreateRateLimit},
	)

	// Quiz creation holds the request open for the whole pipeline.
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		sweeper.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Quizly Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
