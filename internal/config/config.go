package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port         string
	Env          string
	WriteTimeout time.Duration
	CookieSecure bool

	// Database
	DatabaseURL   string
	MigrationsDir string

	// Redis
	RedisURL string

	// JWT
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Gemini AI
	GeminiAPIKey         string
	GeminiModel          string
	GeminiConcurrentReqs int

	// Transcription
	Transcriber        string // "whisper" | "gemini"
	OpenAIAPIKey       string
	WhisperModel       string
	TranscribeLanguage string
	CaptionsFallback   bool

	// Pipeline
	MaxVideoSeconds        int
	FFmpegPath             string
	ScratchDir             string
	ScratchTTL             time.Duration
	PipelineTimeout        time.Duration
	RequireAnswerInOptions bool

	// Rate limits (requests per minute per IP)
	AuthRateLimit       int
	QuizCreateRateLimit int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                   getEnvOrDefault("PORT", "8080"),
		Env:                    getEnvOrDefault("ENV", "development"),
		WriteTimeout:           getEnvAsDurationOrDefault("HTTP_WRITE_TIMEOUT", 12*time.Minute),
		CookieSecure:           getEnvAsBoolOrDefault("COOKIE_SECURE", true),
		DatabaseURL:            mustGetEnv("DATABASE_URL"),
		MigrationsDir:          getEnvOrDefault("MIGRATIONS_DIR", "migrations"),
		RedisURL:               mustGetEnv("REDIS_URL"),
		JWTSecret:              mustGetEnv("JWT_SECRET"),
		AccessTokenTTL:         getEnvAsDurationOrDefault("ACCESS_TOKEN_TTL", 10*time.Minute),
		RefreshTokenTTL:        getEnvAsDurationOrDefault("REFRESH_TOKEN_TTL", 24*time.Hour),
		GeminiAPIKey:           mustGetEnv("GEMINI_API_KEY"),
		GeminiModel:            getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiConcurrentReqs:   getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		Transcriber:            getEnvOrDefault("TRANSCRIBER", "whisper"),
		OpenAIAPIKey:           getEnvOrDefault("OPENAI_API_KEY", ""),
		WhisperModel:           getEnvOrDefault("WHISPER_MODEL", "whisper-1"),
		TranscribeLanguage:     getEnvOrDefault("TRANSCRIBE_LANGUAGE", ""),
		CaptionsFallback:       getEnvAsBoolOrDefault("CAPTIONS_FALLBACK", false),
		MaxVideoSeconds:        getEnvAsIntOrDefault("MAX_VIDEO_SECONDS", 900),
		FFmpegPath:             getEnvOrDefault("FFMPEG_PATH", ""),
		ScratchDir:             getEnvOrDefault("SCRATCH_DIR", "./media"),
		ScratchTTL:             getEnvAsDurationOrDefault("SCRATCH_TTL", time.Hour),
		PipelineTimeout:        getEnvAsDurationOrDefault("PIPELINE_TIMEOUT", 10*time.Minute),
		RequireAnswerInOptions: getEnvAsBoolOrDefault("REQUIRE_ANSWER_IN_OPTIONS", true),
		AuthRateLimit:          getEnvAsIntOrDefault("AUTH_RATE_LIMIT", 10),
		QuizCreateRateLimit:    getEnvAsIntOrDefault("QUIZ_CREATE_RATE_LIMIT", 5),
		FrontendURL:            getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	cfg.ScratchTTL = clampScratchTTL(cfg.ScratchTTL, cfg.PipelineTimeout)

	switch cfg.Transcriber {
	case "whisper":
		if cfg.OpenAIAPIKey == "" {
			panic("OPENAI_API_KEY is required when TRANSCRIBER=whisper")
		}
	case "gemini":
	default:
		panic(fmt.Sprintf("unknown TRANSCRIBER %q (expected whisper or gemini)", cfg.Transcriber))
	}

	return cfg
}

// clampScratchTTL keeps scratch directories alive for longer than a run may
// take, so the sweeper never removes an in-flight workdir.
func clampScratchTTL(ttl, pipelineTimeout time.Duration) time.Duration {
	if ttl <= pipelineTimeout {
		return 2 * pipelineTimeout
	}
	return ttl
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

// getEnvAsDurationOrDefault accepts Go duration strings ("90s", "10m").
func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
