package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"design-analysis-be/pkg/pipeline"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Ai       AIConfig
	Pipeline pipeline.Config
	Tracing  TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	StorageDriver      string // "postgres" or "memory"
	QueueDriver        string // "memory" or "nats"
}

type DatabaseConfig struct {
	Connection string
}

type AuthConfig struct {
	JwtSecret string
}

type AIConfig struct {
	EmbeddingProvider   string // "ollama", "gemini", "openai" or "static"
	EmbeddingModel      string
	EmbeddingDimensions int
	EmbeddingCacheTTL   time.Duration
	OllamaBaseURL       string
	OpenAIBaseURL       string
	// Backends is the ordered fallback chain, each entry "provider:model".
	Backends     []string
	GeminiAPIKey string
	OpenAIAPIKey string
	AnthropicKey string
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", ""),
			StorageDriver:      getEnv("STORAGE_DRIVER", "postgres"),
			QueueDriver:        getEnv("QUEUE_DRIVER", "memory"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Auth: AuthConfig{
			JwtSecret: getEnv("JWT_SECRET", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider:   getEnv("EMBEDDING_PROVIDER", "ollama"),
			EmbeddingModel:      getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			EmbeddingDimensions: getEnvAsInt("EMBEDDING_DIMENSIONS", 768),
			EmbeddingCacheTTL:   getEnvAsDuration("EMBEDDING_CACHE_TTL", 30*time.Minute),
			OllamaBaseURL:       getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", ""),
			Backends:            getEnvAsList("LLM_BACKENDS", []string{"openai:gpt-4o", "anthropic:claude-sonnet-4-5", "ollama:llama3"}),
			GeminiAPIKey:        getEnv("GOOGLE_GEMINI_API_KEY", ""),
			OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
			AnthropicKey:        getEnv("ANTHROPIC_API_KEY", ""),
		},
		Pipeline: loadPipeline(),
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "design-analysis-be"),
		},
	}
}

// loadPipeline overlays environment values on pipeline.DefaultConfig. Validation
// happens once, when the orchestrator is built.
func loadPipeline() pipeline.Config {
	d := pipeline.DefaultConfig()
	return pipeline.Config{
		RAGEnabled:          getEnvAsBool("RAG_ENABLED", d.RAGEnabled),
		SimilarityThreshold: getEnvAsFloat("RAG_SIMILARITY_THRESHOLD", d.SimilarityThreshold),
		TopK:                getEnvAsInt("RAG_TOP_K", d.TopK),
		CategoryFilter:      getEnv("RAG_CATEGORY_FILTER", d.CategoryFilter),
		MaxContextChars:     getEnvAsInt("RAG_MAX_CONTEXT_CHARS", d.MaxContextChars),
		MaxEntryChars:       getEnvAsInt("RAG_MAX_ENTRY_CHARS", d.MaxEntryChars),

		BasePrompt:         getEnv("PIPELINE_BASE_PROMPT", d.BasePrompt),
		DefaultPersonas:    getEnvAsList("PIPELINE_DEFAULT_PERSONAS", d.DefaultPersonas),
		PersonaConcurrency: getEnvAsInt("PIPELINE_PERSONA_CONCURRENCY", d.PersonaConcurrency),
		Temperature:        getEnvAsFloat("LLM_TEMPERATURE", d.Temperature),
		MaxTokens:          getEnvAsInt("LLM_MAX_TOKENS", d.MaxTokens),

		PromptTimeout:    getEnvAsDuration("STAGE_PROMPT_TIMEOUT", d.PromptTimeout),
		CritiqueTimeout:  getEnvAsDuration("STAGE_CRITIQUE_TIMEOUT", d.CritiqueTimeout),
		SynthesisTimeout: getEnvAsDuration("STAGE_SYNTHESIS_TIMEOUT", d.SynthesisTimeout),
		ScoringTimeout:   getEnvAsDuration("STAGE_SCORING_TIMEOUT", d.ScoringTimeout),

		NoReturnStage: d.NoReturnStage,
		StaleAfter:    getEnvAsDuration("PIPELINE_STALE_AFTER", d.StaleAfter),
		LockTTL:       getEnvAsDuration("PIPELINE_LOCK_TTL", d.LockTTL),

		BackfillBatchSize: getEnvAsInt("BACKFILL_BATCH_SIZE", d.BackfillBatchSize),
		BackfillInterval:  getEnvAsDuration("BACKFILL_INTERVAL", d.BackfillInterval),
		WorkerConcurrency: getEnvAsInt("PIPELINE_WORKER_CONCURRENCY", d.WorkerConcurrency),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	strValue := strings.TrimSpace(getEnv(key, ""))
	if strValue == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(strValue, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
