package llm

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// EmbedCache stores vectors by (model, text). Embeddings are deterministic
// for identical input, so a hit is always safe to reuse.
type EmbedCache interface {
	// GetMany returns one entry per text; misses are nil.
	GetMany(ctx context.Context, model string, texts []string) ([][]float32, error)
	SetMany(ctx context.Context, model string, texts []string, vecs [][]float32) error
}

type RedisEmbedCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient dials and pings Redis.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis failed: %w", err)
	}
	return client, nil
}

func NewRedisEmbedCache(client *redis.Client, ttl time.Duration) *RedisEmbedCache {
	return &RedisEmbedCache{client: client, ttl: ttl}
}

func (c *RedisEmbedCache) GetMany(ctx context.Context, model string, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = cacheKey(model, t)
	}

	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return out, fmt.Errorf("redis mget: %w", err)
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if vec, ok := decodeVector([]byte(s)); ok {
			out[i] = vec
		}
	}
	return out, nil
}

func (c *RedisEmbedCache) SetMany(ctx context.Context, model string, texts []string, vecs [][]float32) error {
	if len(texts) == 0 {
		return nil
	}
	pipe := c.client.Pipeline()
	for i, t := range texts {
		pipe.Set(ctx, cacheKey(model, t), encodeVector(vecs[i]), c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline set: %w", err)
	}
	return nil
}

func cacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "rag:emb:" + model + ":" + hex.EncodeToString(sum[:])
}

// encodeVector packs a vector as little-endian float32s.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, bool) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, false
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, true
}

var _ EmbedCache = (*RedisEmbedCache)(nil)
