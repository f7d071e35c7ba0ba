package llm

import (
	"context"
	"fmt"
	"log"

	"github.com/markdave123-py/smartassist-rag/internal/config"
	"github.com/markdave123-py/smartassist-rag/internal/core"
)

// NewEmbeddingBackend picks the embedding backend named by EMBED_PROVIDER.
func NewEmbeddingBackend(ctx context.Context, cfg *config.Config) (BatchEmbedder, error) {
	switch cfg.EmbedProvider {
	case "openai":
		return NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.EmbedModel, cfg.EmbedDim)
	case "gemini", "":
		return NewGeminiEmbedder(ctx, cfg.AIAPIKey, cfg.EmbedModel)
	default:
		return nil, fmt.Errorf("%w: unknown EMBED_PROVIDER %q", core.ErrConfiguration, cfg.EmbedProvider)
	}
}

// NewLLM picks the generation backend named by LLM_PROVIDER.
func NewLLM(ctx context.Context, cfg *config.Config) (core.LLMProvider, error) {
	switch cfg.LLMProvider {
	case "groq":
		return NewOpenAICompatLLM(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.GroqModel)
	case "gemini", "":
		return NewGeminiLLM(ctx, cfg.AIAPIKey, cfg.GenModel)
	default:
		return nil, fmt.Errorf("%w: unknown LLM_PROVIDER %q", core.ErrConfiguration, cfg.LLMProvider)
	}
}

// NewEmbeddingCache returns nil when REDIS_ADDR is unset. An unreachable
// Redis only disables caching.
func NewEmbeddingCache(ctx context.Context, cfg *config.Config) EmbedCache {
	if cfg.RedisAddr == "" {
		return nil
	}
	client, err := NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Printf("WARN: embedding cache disabled: %v", err)
		return nil
	}
	return NewRedisEmbedCache(client, cfg.EmbedCacheTTL)
}
