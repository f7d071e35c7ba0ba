package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/markdave123-py/smartassist-rag/internal/core"
	"github.com/markdave123-py/smartassist-rag/internal/models"
)

// NewDocumentIngestor validates the chunking config and builds the splitter.
// A nil publisher disables events.
func NewDocumentIngestor(store core.VectorStore, emb core.EmbeddingProvider, registry *ExtractorRegistry, events core.EventPublisher, cfg IngestConfig) (*DocumentIngestor, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	splitter, err := NewRecursiveSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if registry == nil {
		registry = NewExtractorRegistry()
	}
	return &DocumentIngestor{
		store:    store,
		embedder: emb,
		registry: registry,
		splitter: splitter,
		events:   events,
		cfg:      cfg,
	}, nil
}

// Ingest extracts, chunks, embeds and stores one document, replacing any
// chunks previously stored under documentID.
func (i *DocumentIngestor) Ingest(ctx context.Context, data []byte, contentType string, documentID string) (*models.IngestResult, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, fmt.Errorf("%w: document id is required", core.ErrInvalidInput)
	}

	extractor, err := i.registry.Lookup(contentType)
	if err != nil {
		return nil, err
	}

	text, err := extractor.ExtractText(ctx, data, contentType)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: no text extracted from %s", core.ErrEmptyDocument, documentID)
	}

	chunks := i.splitter.Split(text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s produced no chunks", core.ErrEmptyDocument, documentID)
	}

	vecs, err := i.embedder.EmbedTexts(ctx, chunks)
	if err != nil {
		return nil, wrapEmbed(err)
	}
	if len(vecs) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d chunks", core.ErrEmbeddingService, len(vecs), len(chunks))
	}

	if err := i.store.SaveChunks(ctx, documentID, chunks, vecs); err != nil {
		return nil, err
	}

	slog.Info("document ingested", "document_id", documentID, "chunks", len(chunks), "source", i.cfg.Source)
	i.publish(ctx, documentID, len(chunks))

	return &models.IngestResult{
		DocumentID: documentID,
		ChunkCount: len(chunks),
		Status:     models.IngestStatusIngested,
	}, nil
}

// publish is best effort: the chunks are already committed.
func (i *DocumentIngestor) publish(ctx context.Context, documentID string, n int) {
	if i.events == nil {
		return
	}
	ev := core.IngestEvent{
		DocumentID: documentID,
		ChunkCount: n,
		Source:     i.cfg.Source,
		IngestedAt: time.Now().UTC(),
	}
	if err := i.events.PublishIngested(ctx, ev); err != nil {
		slog.Warn("publish ingest event failed", "document_id", documentID, "err", err)
	}
}

func wrapEmbed(err error) error {
	if errors.Is(err, core.ErrEmbeddingService) {
		return err
	}
	return fmt.Errorf("%w: %w", core.ErrEmbeddingService, err)
}
