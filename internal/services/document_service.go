package services

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/markdave123-py/smartassist-rag/internal/core"
	objectclient "github.com/markdave123-py/smartassist-rag/internal/core/object-client"
	"github.com/markdave123-py/smartassist-rag/internal/models"
)

// DocumentStore is the part of the store the document facade needs.
type DocumentStore interface {
	core.SyncLogStore
	ListDocuments(ctx context.Context) ([]models.DocumentSummary, error)
}

// UploadRequest is one directly uploaded file.
type UploadRequest struct {
	Filename    string
	ContentType string
	// DocumentID names the indexed document. It must be empty when
	// StoreInFolder is set, since the folder's file id becomes the id.
	DocumentID string
	Data       []byte
	// StoreInFolder also uploads the file to the external folder so the
	// next sync sees it as unchanged.
	StoreInFolder bool
}

type DocumentService struct {
	store    DocumentStore
	folder   core.FolderSource
	ingestor core.Ingestor
}

// NewDocumentService accepts a nil folder when no external folder is configured.
func NewDocumentService(store DocumentStore, folder core.FolderSource, ingestor core.Ingestor) *DocumentService {
	return &DocumentService{store: store, folder: folder, ingestor: ingestor}
}

// Upload ingests a file, optionally storing it in the external folder first.
func (s *DocumentService) Upload(ctx context.Context, req UploadRequest) (*models.IngestResult, error) {
	filename := path.Base(strings.TrimSpace(req.Filename))
	contentType := strings.TrimSpace(req.ContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = objectclient.ContentTypeForName(filename)
	}
	if !s.ingestor.Supports(contentType) {
		return nil, fmt.Errorf("%w: %q", core.ErrUnsupportedType, contentType)
	}

	if !req.StoreInFolder {
		docID := strings.TrimSpace(req.DocumentID)
		if docID == "" {
			docID = uuid.NewString()
		}
		return s.ingestor.Ingest(ctx, req.Data, contentType, docID)
	}

	if strings.TrimSpace(req.DocumentID) != "" {
		return nil, fmt.Errorf("%w: document_id cannot be combined with store_in_folder", core.ErrInvalidInput)
	}
	if s.folder == nil {
		return nil, fmt.Errorf("%w: store_in_folder requested but no external folder is configured", core.ErrInvalidInput)
	}

	f, err := s.folder.Upload(ctx, filename, contentType, req.Data)
	if err != nil {
		return nil, fmt.Errorf("upload to %s: %w", s.folder.Name(), err)
	}

	res, err := s.ingestor.Ingest(ctx, req.Data, contentType, f.ID)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpsertSyncEntry(ctx, models.SyncLogEntry{
		ExternalFileID: f.ID,
		Filename:       f.Name,
		Checksum:       f.Checksum(),
	}); err != nil {
		// Best effort: the next sync re-ingests the file.
		slog.Warn("sync log update after upload failed", "file_id", f.ID, "err", err)
	}
	return res, nil
}

// List returns every indexed document with its chunk count.
func (s *DocumentService) List(ctx context.Context) ([]models.DocumentSummary, error) {
	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []models.DocumentSummary{}
	}
	return docs, nil
}
