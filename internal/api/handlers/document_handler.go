package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/markdave123-py/smartassist-rag/internal/core"
	objectclient "github.com/markdave123-py/smartassist-rag/internal/core/object-client"
	"github.com/markdave123-py/smartassist-rag/internal/models"
	"github.com/markdave123-py/smartassist-rag/internal/services"
)

// maxUploadBytes caps a multipart upload.
const maxUploadBytes = objectclient.MaxObjectSize

type DocumentService interface {
	Upload(ctx context.Context, req services.UploadRequest) (*models.IngestResult, error)
	List(ctx context.Context) ([]models.DocumentSummary, error)
}

type Syncer interface {
	Sync(ctx context.Context) (*models.SyncResult, error)
}

type DocumentHandler struct {
	docs DocumentService
	sync Syncer
}

func NewDocumentHandler(docs DocumentService, sync Syncer) *DocumentHandler {
	return &DocumentHandler{docs: docs, sync: sync}
}

// IngestFile indexes one multipart file. Form fields document_id,
// content_type and store_in_folder are optional; document_id is rejected
// together with store_in_folder.
func (h *DocumentHandler) IngestFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, fmt.Errorf("%w: invalid multipart form: %w", core.ErrInvalidInput, err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, fmt.Errorf("%w: missing file field", core.ErrInvalidInput))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		writeError(w, fmt.Errorf("%w: read upload: %w", core.ErrInvalidInput, err))
		return
	}
	if int64(len(data)) > maxUploadBytes {
		writeError(w, fmt.Errorf("%w: file exceeds %d bytes", core.ErrInvalidInput, maxUploadBytes))
		return
	}

	contentType := strings.TrimSpace(r.FormValue("content_type"))
	if contentType == "" {
		contentType = header.Header.Get("Content-Type")
	}

	storeInFolder := false
	if v := strings.TrimSpace(r.FormValue("store_in_folder")); v != "" {
		storeInFolder, err = strconv.ParseBool(v)
		if err != nil {
			writeError(w, fmt.Errorf("%w: store_in_folder must be a boolean", core.ErrInvalidInput))
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	res, err := h.docs.Upload(ctx, services.UploadRequest{
		Filename:      header.Filename,
		ContentType:   contentType,
		DocumentID:    r.FormValue("document_id"),
		Data:          data,
		StoreInFolder: storeInFolder,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *DocumentHandler) Sync(w http.ResponseWriter, r *http.Request) {
	res, err := h.sync.Sync(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *DocumentHandler) Status(w http.ResponseWriter, r *http.Request) {
	docs, err := h.docs.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}
