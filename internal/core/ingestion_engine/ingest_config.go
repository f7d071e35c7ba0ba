package ingestion_engine

import (
	"fmt"

	"github.com/markdave123-py/smartassist-rag/internal/config"
	"github.com/markdave123-py/smartassist-rag/internal/core"
)

// IngestConfig tunes the pipeline.
//
// ChunkSize:    maximum chunk length in runes (e.g., 500).
// ChunkOverlap: runes carried from one chunk into the next (e.g., 50).
// Source:       label attached to ingestion events ("upload", "drive", "s3").
type IngestConfig struct {
	ChunkSize    int
	ChunkOverlap int
	Source       string
}

// IngestConfigFromEnv copies the chunking knobs out of the loaded config.
func IngestConfigFromEnv(cfg *config.Config) IngestConfig {
	return IngestConfig{ChunkSize: cfg.ChunkSize, ChunkOverlap: cfg.ChunkOverlap, Source: "upload"}
}

func (c IngestConfig) validate() error {
	if c.ChunkSize <= 0 || c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", core.ErrConfiguration, c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}

// DocumentIngestor orchestrates extraction, chunking, embedding and the atomic
// replace into the vector store for one document at a time:
//
// store:     vector store holding the chunk rows.
// embedder:  embedding provider (Gemini/OpenAI-compatible).
// registry:  fixed content-type -> extractor map.
// splitter:  recursive chunker.
// events:    downstream notification of finished ingestions.
type DocumentIngestor struct {
	store    core.VectorStore
	embedder core.EmbeddingProvider
	registry *ExtractorRegistry
	splitter *RecursiveSplitter
	events   core.EventPublisher
	cfg      IngestConfig
}
