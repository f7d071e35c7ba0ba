package config

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/markdave123-py/smartassist-rag/internal/core"
)

// Folder sources accepted by SYNC_SOURCE.
const (
	SyncSourceNone  = "none"
	SyncSourceDrive = "drive"
	SyncSourceS3    = "s3"
)

type Config struct {
	DatabaseURL string
	DBMinConns  int
	DBMaxConns  int

	EmbedProvider  string
	AIAPIKey       string
	EmbedModel     string
	EmbedDim       int
	EmbedBatchSize int
	OpenAIAPIKey   string
	OpenAIBaseURL  string

	LLMProvider string
	GenModel    string
	GroqAPIKey  string
	GroqModel   string
	GroqBaseURL string

	ChunkSize           int
	ChunkOverlap        int
	TopK                int
	ConfidenceThreshold float64

	SyncSource               string
	DriveFolderID            string
	GoogleServiceAccountJSON string
	AwsAccessKey             string
	AwsSecretKey             string
	AwsRegion                string
	BucketName               string
	S3Prefix                 string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	EmbedCacheTTL time.Duration

	AMQPURL   string
	AMQPQueue string

	Port      string
	LogLevel  string
	LogFormat string
}

// LoadConfig loads the environment variables and returns a validated config.
func LoadConfig() (*Config, error) {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBMinConns:  getEnvInt("DB_MIN_CONNS", 1),
		DBMaxConns:  getEnvInt("DB_MAX_CONNS", 10),

		EmbedProvider:  strings.ToLower(getEnv("EMBED_PROVIDER", "gemini")),
		AIAPIKey:       getEnv("GEMINI_API_KEY", ""),
		EmbedModel:     getEnv("EMBED_MODEL", "text-embedding-004"),
		EmbedDim:       getEnvInt("EMBED_DIM", 768),
		EmbedBatchSize: getEnvInt("EMBED_BATCH_SIZE", 100),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),

		LLMProvider: strings.ToLower(getEnv("LLM_PROVIDER", "gemini")),
		GenModel:    getEnv("GEN_MODEL", "gemini-1.5-flash"),
		GroqAPIKey:  getEnv("GROQ_API_KEY", ""),
		GroqModel:   getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
		GroqBaseURL: getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),

		ChunkSize:           getEnvInt("CHUNK_SIZE", 500),
		ChunkOverlap:        getEnvInt("CHUNK_OVERLAP", 50),
		TopK:                getEnvInt("RAG_TOP_K", 5),
		ConfidenceThreshold: getEnvFloat("RAG_CONFIDENCE_THRESHOLD", 0.35),

		SyncSource:               strings.ToLower(getEnv("SYNC_SOURCE", "")),
		DriveFolderID:            getEnv("GOOGLE_DRIVE_FOLDER_ID", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		AwsAccessKey:             getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:             getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:                getEnv("AWS_REGION", "us-east-2"),
		BucketName:               getEnv("BUCKET_NAME", ""),
		S3Prefix:                 getEnv("S3_PREFIX", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		EmbedCacheTTL: getEnvDuration("EMBED_CACHE_TTL", 24*time.Hour),

		AMQPURL:   getEnv("AMQP_URL", ""),
		AMQPQueue: getEnv("AMQP_QUEUE", "rag.document.ingested"),

		Port:      getEnv("PORT", "8000"),
		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	cfg.SyncSource = cfg.resolveSyncSource()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveSyncSource picks Drive when SYNC_SOURCE is unset and both Drive
// settings are present.
func (c *Config) resolveSyncSource() string {
	if c.SyncSource != "" {
		return c.SyncSource
	}
	if c.DriveFolderID != "" && c.GoogleServiceAccountJSON != "" {
		return SyncSourceDrive
	}
	return SyncSourceNone
}

// Validate rejects settings that must never be silently defaulted.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%w: DATABASE_URL not set", core.ErrConfiguration)
	}
	if c.DBMinConns < 0 || c.DBMaxConns <= 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("%w: DB_MIN_CONNS=%d DB_MAX_CONNS=%d is not a valid pool size", core.ErrConfiguration, c.DBMinConns, c.DBMaxConns)
	}
	if c.EmbedDim <= 0 {
		return fmt.Errorf("%w: EMBED_DIM must be positive, got %d", core.ErrConfiguration, c.EmbedDim)
	}
	if c.EmbedBatchSize <= 0 {
		return fmt.Errorf("%w: EMBED_BATCH_SIZE must be positive, got %d", core.ErrConfiguration, c.EmbedBatchSize)
	}
	if c.ChunkSize <= 0 || c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", core.ErrConfiguration, c.ChunkOverlap, c.ChunkSize)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("%w: RAG_TOP_K must be positive, got %d", core.ErrConfiguration, c.TopK)
	}
	if c.ConfidenceThreshold < -1 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: RAG_CONFIDENCE_THRESHOLD must be within [-1, 1], got %f", core.ErrConfiguration, c.ConfidenceThreshold)
	}

	switch c.EmbedProvider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("%w: unknown EMBED_PROVIDER %q", core.ErrConfiguration, c.EmbedProvider)
	}
	switch c.LLMProvider {
	case "gemini", "groq":
	default:
		return fmt.Errorf("%w: unknown LLM_PROVIDER %q", core.ErrConfiguration, c.LLMProvider)
	}

	switch c.SyncSource {
	case SyncSourceNone:
	case SyncSourceDrive:
		if c.DriveFolderID == "" || c.GoogleServiceAccountJSON == "" {
			return fmt.Errorf("%w: SYNC_SOURCE=drive needs GOOGLE_DRIVE_FOLDER_ID and GOOGLE_SERVICE_ACCOUNT_JSON", core.ErrConfiguration)
		}
	case SyncSourceS3:
		if c.AwsAccessKey == "" || c.AwsSecretKey == "" || c.BucketName == "" {
			return fmt.Errorf("%w: SYNC_SOURCE=s3 needs AWS_ACCESS_KEY, AWS_SECRET_KEY and BUCKET_NAME", core.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown SYNC_SOURCE %q", core.ErrConfiguration, c.SyncSource)
	}
	return nil
}

// SlogLevel maps LOG_LEVEL onto slog levels.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
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

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("WARN: %s=%q not a number, using default %g", key, v, def)
		return def
	}
	return f
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a duration, using default %s", key, v, def)
		return def
	}
	return d
}
