package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	ProviderOpenAI   = "openai"
	ProviderGigaChat = "gigachat"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	LLM       LLMConfig
	GigaChat  GigaChatConfig
	Embedding EmbeddingConfig
	RAG       RAGConfig
	Ingest    IngestConfig
	Logger    LoggerConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	StaticDir    string
}

// DatabaseConfig selects the knowledge store backend. Driver "sqlite" uses
// SQLitePath and ignores the Postgres connection fields.
type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SSLMode    string
	SQLitePath string
}

// LLMConfig configures the completion collaborator. The OpenAI provider
// talks to any OpenAI-compatible endpoint (OpenAI, Groq, Ollama /v1).
type LLMConfig struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

type GigaChatConfig struct {
	APIKey             string
	Scope              string
	Model              string
	InsecureSkipVerify bool
	Timeout            time.Duration
}

type EmbeddingConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	QueryPrefix    string
	DocumentPrefix string
	Timeout        time.Duration
	CacheTTL       time.Duration
}

type RAGConfig struct {
	SimilarityThreshold float64
	TopK                int
	AssistantName       string
	ContactURL          string
}

type IngestConfig struct {
	Concurrency    int
	MaxUploadBytes int
}

func Load() (*Config, error) {
	// .env is optional; plain environment variables work the same way
	for _, envFile := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getSeconds("SERVER_READ_TIMEOUT", 30),
			WriteTimeout: getSeconds("SERVER_WRITE_TIMEOUT", 120),
			StaticDir:    getEnv("SERVER_STATIC_DIR", ""),
		},
		Database: DatabaseConfig{
			Driver:     strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", "postgres"),
			DBName:     getEnv("DB_NAME", "kbchat"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			SQLitePath: getEnv("SQLITE_PATH", "kbchat.db"),
		},
		LLM: LLMConfig{
			Provider:    strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI)),
			APIKey:      getEnv("LLM_API_KEY", os.Getenv("GROQ_API_KEY")),
			BaseURL:     getEnv("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
			Model:       getEnv("LLM_MODEL", "llama-3.1-8b-instant"),
			Temperature: float32(getFloat("LLM_TEMPERATURE", 0.1)),
			MaxTokens:   getInt("LLM_MAX_TOKENS", 512),
			Timeout:     getSeconds("LLM_TIMEOUT", 60),
		},
		GigaChat: GigaChatConfig{
			APIKey:             getEnv("GIGACHAT_API_KEY", ""),
			Scope:              getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
			Model:              getEnv("GIGACHAT_MODEL", "GigaChat"),
			InsecureSkipVerify: getEnv("GIGACHAT_INSECURE_SKIP_VERIFY", "false") == "true",
			Timeout:            getSeconds("GIGACHAT_TIMEOUT", 60),
		},
		Embedding: EmbeddingConfig{
			APIKey:         getEnv("EMBEDDING_API_KEY", "ollama"),
			BaseURL:        getEnv("EMBEDDING_BASE_URL", "http://localhost:11434/v1"),
			Model:          getEnv("EMBEDDING_MODEL", "all-minilm"),
			QueryPrefix:    os.Getenv("EMBEDDING_QUERY_PREFIX"),
			DocumentPrefix: os.Getenv("EMBEDDING_DOCUMENT_PREFIX"),
			Timeout:        getSeconds("EMBEDDING_TIMEOUT", 30),
			CacheTTL:       getSeconds("EMBEDDING_CACHE_TTL", 600),
		},
		RAG: RAGConfig{
			SimilarityThreshold: getFloat("RAG_SIMILARITY_THRESHOLD", 0.3),
			TopK:                getInt("RAG_TOP_K", 5),
			AssistantName:       getEnv("RAG_ASSISTANT_NAME", "Kenmark ITan assistant"),
			ContactURL:          getEnv("RAG_CONTACT_URL", "kenmarkitan.com/contact"),
		},
		Ingest: IngestConfig{
			Concurrency:    getInt("INGEST_CONCURRENCY", 4),
			MaxUploadBytes: getInt("INGEST_MAX_UPLOAD_BYTES", 10*1024*1024),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGigaChat:
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLM.Provider)
	}
	if c.RAG.TopK <= 0 {
		return fmt.Errorf("RAG_TOP_K must be positive, got %d", c.RAG.TopK)
	}
	if math.IsNaN(c.RAG.SimilarityThreshold) || c.RAG.SimilarityThreshold < -1 || c.RAG.SimilarityThreshold > 1 {
		return fmt.Errorf("RAG_SIMILARITY_THRESHOLD must be within [-1, 1], got %v", c.RAG.SimilarityThreshold)
	}
	if c.Ingest.Concurrency <= 0 {
		return fmt.Errorf("INGEST_CONCURRENCY must be positive, got %d", c.Ingest.Concurrency)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getSeconds(key string, defaultValue int) time.Duration {
	return time.Duration(getInt(key, defaultValue)) * time.Second
}
