package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App         AppConfig
	Postgres    PostgresConfig
	Redis       RedisConfig
	Logger      LoggerConfig
	VectorStore VectorStoreConfig
	Embedding   EmbeddingConfig
	LLM         LLMConfig
	WebSearch   WebSearchConfig
	Agent       AgentConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// VectorStoreConfig points at the Weaviate instance.
type VectorStoreConfig struct {
	BaseURL        string
	TicketsClass   string
	DocumentsClass string
	TimeoutSeconds int
}

// EmbeddingConfig points at the embedding backend.
type EmbeddingConfig struct {
	BaseURL         string
	Model           string
	TimeoutSeconds  int
	CacheTTLMinutes int
}

// LLMConfig points at the chat-completions backend.
type LLMConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	Temperature    float64
	TimeoutSeconds int
}

// WebSearchConfig selects and configures the web search provider.
type WebSearchConfig struct {
	Provider       string
	TavilyAPIKey   string
	MaxResults     int
	TimeoutSeconds int
}

// AgentConfig bounds the resolution agent and the similarity gate.
type AgentConfig struct {
	MaxIterations       int
	MaxSeconds          int
	SimilarityThreshold float64
	SearchLimit         int
	ToolSearchLimit     int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "triage-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 150),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		VectorStore: VectorStoreConfig{
			BaseURL:        getEnv("WEAVIATE_URL", "http://localhost:8081"),
			TicketsClass:   getEnv("WEAVIATE_TICKETS_CLASS", "SupportTickets"),
			DocumentsClass: getEnv("WEAVIATE_DOCUMENTS_CLASS", "Documents"),
			TimeoutSeconds: getEnvAsInt("WEAVIATE_TIMEOUT_SECONDS", 10),
		},
		Embedding: EmbeddingConfig{
			BaseURL:         getEnv("EMBEDDING_BASE_URL", "http://localhost:11434"),
			Model:           getEnv("EMBEDDING_MODEL", "all-mpnet-base-v2"),
			TimeoutSeconds:  getEnvAsInt("EMBEDDING_TIMEOUT_SECONDS", 30),
			CacheTTLMinutes: getEnvAsInt("EMBEDDING_CACHE_TTL_MINUTES", 720),
		},
		LLM: LLMConfig{
			BaseURL:        getEnv("LLM_BASE_URL", "https://api.groq.com/openai"),
			APIKey:         os.Getenv("LLM_API_KEY"),
			Model:          getEnv("LLM_MODEL", "llama-3.3-70b-versatile"),
			Temperature:    getEnvAsFloat("LLM_TEMPERATURE", 0.1),
			TimeoutSeconds: getEnvAsInt("LLM_TIMEOUT_SECONDS", 60),
		},
		WebSearch: WebSearchConfig{
			Provider:       getEnv("WEB_SEARCH_PROVIDER", "duckduckgo"),
			TavilyAPIKey:   os.Getenv("TAVILY_API_KEY"),
			MaxResults:     getEnvAsInt("WEB_SEARCH_MAX_RESULTS", 5),
			TimeoutSeconds: getEnvAsInt("WEB_SEARCH_TIMEOUT_SECONDS", 15),
		},
		Agent: AgentConfig{
			MaxIterations:       getEnvAsInt("AGENT_MAX_ITERATIONS", 15),
			MaxSeconds:          getEnvAsInt("AGENT_MAX_SECONDS", 120),
			SimilarityThreshold: getEnvAsFloat("SIMILARITY_THRESHOLD", 0.85),
			SearchLimit:         getEnvAsInt("SIMILARITY_SEARCH_LIMIT", 3),
			ToolSearchLimit:     getEnvAsInt("TOOL_SEARCH_LIMIT", 5),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// MaxDuration returns the agent wall-clock budget.
func (a AgentConfig) MaxDuration() time.Duration {
	return time.Duration(a.MaxSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
