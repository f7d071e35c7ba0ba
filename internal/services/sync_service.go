package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/markdave123-py/smartassist-rag/internal/core"
	"github.com/markdave123-py/smartassist-rag/internal/models"
)

// Skip reasons reported in SyncResult.Skipped.
const (
	SkipUnsupportedType = "unsupported type"
	SkipUnchanged       = "unchanged"
	ReasonNotConfigured = "external folder not configured"
)

// fileOutcome is what happened to one folder file during a sync pass:
// exactly one of ingested, skipped or failed.
type fileOutcome interface {
	record(res *models.SyncResult)
}

type ingested struct {
	name       string
	fileID     string
	chunkCount int
}

type skipped struct {
	name   string
	reason string
}

type failed struct {
	name string
	err  error
}

func (o ingested) record(res *models.SyncResult) {
	res.Ingested = append(res.Ingested, models.IngestedFile{Name: o.name, FileID: o.fileID, ChunkCount: o.chunkCount})
}

func (o skipped) record(res *models.SyncResult) {
	res.Skipped = append(res.Skipped, models.SkippedFile{Name: o.name, Reason: o.reason})
}

func (o failed) record(res *models.SyncResult) {
	res.Failed = append(res.Failed, models.FailedFile{Name: o.name, Error: o.err.Error()})
}

// SyncService diffs an external folder against the sync log and re-ingests
// new or changed files.
type SyncService struct {
	source   core.FolderSource
	syncLog  core.SyncLogStore
	ingestor core.Ingestor

	running sync.Mutex
}

// NewSyncService accepts a nil source, in which case Sync reports skipped.
func NewSyncService(source core.FolderSource, syncLog core.SyncLogStore, ingestor core.Ingestor) *SyncService {
	return &SyncService{source: source, syncLog: syncLog, ingestor: ingestor}
}

func (s *SyncService) Configured() bool { return s.source != nil }

// Sync runs one pass. A per-file failure never aborts the pass; only a
// listing failure is returned as an error.
func (s *SyncService) Sync(ctx context.Context) (*models.SyncResult, error) {
	if s.source == nil {
		res := newSyncResult(models.SyncStatusSkipped)
		res.Reason = ReasonNotConfigured
		return res, nil
	}

	if !s.running.TryLock() {
		return nil, core.ErrSyncInProgress
	}
	defer s.running.Unlock()

	files, err := s.source.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s folder: %w", s.source.Name(), err)
	}

	res := newSyncResult(models.SyncStatusDone)
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.syncFile(ctx, f).record(res)
	}

	slog.Info("folder sync finished",
		"source", s.source.Name(),
		"files", len(files),
		"ingested", len(res.Ingested),
		"skipped", len(res.Skipped),
		"failed", len(res.Failed),
	)
	return res, nil
}

func (s *SyncService) syncFile(ctx context.Context, f core.FolderFile) fileOutcome {
	if !s.ingestor.Supports(f.ContentType) {
		return skipped{name: f.Name, reason: SkipUnsupportedType}
	}

	checksum := f.Checksum()
	entry, err := s.syncLog.GetSyncEntry(ctx, f.ID)
	if err != nil {
		return failed{name: f.Name, err: err}
	}
	if entry != nil && entry.Checksum == checksum {
		return skipped{name: f.Name, reason: SkipUnchanged}
	}

	data, err := s.source.Download(ctx, f)
	if err != nil {
		return failed{name: f.Name, err: err}
	}

	out, err := s.ingestor.Ingest(ctx, data, f.ContentType, f.ID)
	if err != nil {
		slog.Warn("sync ingest failed", "file", f.Name, "file_id", f.ID, "err", err)
		return failed{name: f.Name, err: err}
	}

	if err := s.syncLog.UpsertSyncEntry(ctx, models.SyncLogEntry{
		ExternalFileID: f.ID,
		Filename:       f.Name,
		Checksum:       checksum,
	}); err != nil {
		return failed{name: f.Name, err: err}
	}
	return ingested{name: f.Name, fileID: f.ID, chunkCount: out.ChunkCount}
}

func newSyncResult(status string) *models.SyncResult {
	return &models.SyncResult{
		Status:   status,
		Ingested: []models.IngestedFile{},
		Skipped:  []models.SkippedFile{},
		Failed:   []models.FailedFile{},
	}
}
