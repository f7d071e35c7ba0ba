package core

import (
	"context"
	"time"

	"github.com/markdave123-py/smartassist-rag/internal/models"
)

// VectorStore holds (document_id, chunk_index, chunk_text, embedding) rows.
type VectorStore interface {
	// SaveChunks atomically replaces every chunk of documentID with chunks,
	// indexed 0..N-1 in order.
	SaveChunks(ctx context.Context, documentID string, chunks []string, embeddings [][]float32) error

	// Search returns at most topK nearest chunks in descending score order.
	Search(ctx context.Context, queryEmbedding []float32, topK int) ([]models.SearchResult, error)
}

// RoomStore exposes the read-only room reference table.
type RoomStore interface {
	ListRooms(ctx context.Context) ([]models.Room, error)
}

// SyncLogStore is the skip-list consulted by the folder sync differ.
type SyncLogStore interface {
	// GetSyncEntry returns nil, nil when the file has never been synced.
	GetSyncEntry(ctx context.Context, externalFileID string) (*models.SyncLogEntry, error)
	UpsertSyncEntry(ctx context.Context, entry models.SyncLogEntry) error
}

// DbClient defines all persistence operations the services need.
// It abstracts Postgres/pgvector so higher layers never depend on a specific DB.
type DbClient interface {
	VectorStore
	RoomStore
	SyncLogStore

	ChunksByDocument(ctx context.Context, documentID string) ([]models.DocumentChunk, error)
	ListDocuments(ctx context.Context) ([]models.DocumentSummary, error)

	Close() error
}

// Ingestor indexes one document.
type Ingestor interface {
	Ingest(ctx context.Context, data []byte, contentType string, documentID string) (*models.IngestResult, error)
	Supports(contentType string) bool
}

// FolderFile is one file visible in an external folder.
type FolderFile struct {
	ID   string
	Name string
	// ContentType is the type the file is ingested as (after any export).
	ContentType string
	// SourceMimeType is the type reported by the external service.
	SourceMimeType string
	ContentHash    string
	ModifiedTime   string
}

// Checksum is the content hash when the source provides one, otherwise the
// last-modified timestamp.
func (f FolderFile) Checksum() string {
	if f.ContentHash != "" {
		return f.ContentHash
	}
	return f.ModifiedTime
}

// FolderSource lists, downloads and uploads files of one external folder.
type FolderSource interface {
	Name() string
	ListFiles(ctx context.Context) ([]FolderFile, error)
	Download(ctx context.Context, file FolderFile) ([]byte, error)
	Upload(ctx context.Context, name, contentType string, data []byte) (FolderFile, error)
}

// IngestEvent is emitted after a document was indexed.
type IngestEvent struct {
	DocumentID string    `json:"document_id"`
	ChunkCount int       `json:"chunk_count"`
	Source     string    `json:"source"`
	IngestedAt time.Time `json:"ingested_at"`
}

// EventPublisher delivers ingestion events to downstream consumers.
type EventPublisher interface {
	PublishIngested(ctx context.Context, event IngestEvent) error
	Close() error
}
