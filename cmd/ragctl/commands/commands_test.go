package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/smartassist-rag/internal/core"
	"github.com/markdave123-py/smartassist-rag/internal/models"
	"github.com/markdave123-py/smartassist-rag/internal/services"
)

type fakeServices struct {
	upload  services.UploadRequest
	syncErr error
	closed  bool
}

func (f *fakeServices) Sync(context.Context) (*models.SyncResult, error) {
	if f.syncErr != nil {
		return nil, f.syncErr
	}
	return &models.SyncResult{
		Status:   models.SyncStatusDone,
		Ingested: []models.IngestedFile{{Name: "handbook.pdf", FileID: "f1", ChunkCount: 12}},
		Skipped:  []models.SkippedFile{{Name: "logo.png", Reason: services.SkipUnsupportedType}},
		Failed:   []models.FailedFile{},
	}, nil
}

func (f *fakeServices) Upload(_ context.Context, req services.UploadRequest) (*models.IngestResult, error) {
	f.upload = req
	return &models.IngestResult{DocumentID: req.DocumentID, ChunkCount: 3, Status: models.IngestStatusIngested}, nil
}

func (f *fakeServices) List(context.Context) ([]models.DocumentSummary, error) {
	return []models.DocumentSummary{{DocumentID: "handbook", ChunkCount: 12}}, nil
}

func (f *fakeServices) Answer(_ context.Context, msg string) (*models.AnswerResult, error) {
	return &models.AnswerResult{
		Type:      models.AnswerTypeText,
		Answer:    "Labs close at 9pm.",
		Citations: []models.Citation{{DocumentID: "handbook", Excerpt: "Labs close at 9pm.", Score: 0.812}},
	}, nil
}

func (f *fakeServices) SearchRooms(context.Context) ([]models.Room, error) {
	return []models.Room{{ID: "1", Name: "LT1", Location: "A block", Capacity: 120}}, nil
}

func run(t *testing.T, fake *fakeServices, args ...string) (string, error) {
	t.Helper()
	prev := openServices
	t.Cleanup(func() { openServices = prev })
	openServices = func(context.Context) (*Services, error) {
		return &Services{
			Sync:      fake,
			Documents: fake,
			Query:     fake,
			Rooms:     fake,
			Close:     func() { fake.closed = true },
		}, nil
	}

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()
	assert.Equal(t, "ragctl", cmd.Use)

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"sync", "ingest", "ask", "rooms", "documents"})

	flag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "text", flag.DefValue)
}

func TestSyncCmd(t *testing.T) {
	fake := &fakeServices{}
	out, err := run(t, fake, "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "Sync done: 1 ingested, 1 skipped, 0 failed")
	assert.Contains(t, out, "handbook.pdf")
	assert.True(t, fake.closed)
}

func TestSyncCmd_JSON(t *testing.T) {
	out, err := run(t, &fakeServices{}, "sync", "--format", "json")
	require.NoError(t, err)

	var res models.SyncResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "done", res.Status)
	assert.Len(t, res.Ingested, 1)
}

func TestSyncCmd_InProgress(t *testing.T) {
	_, err := run(t, &fakeServices{syncErr: core.ErrSyncInProgress}, "sync")
	require.ErrorIs(t, err, core.ErrSyncInProgress)
}

func TestIngestCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	fake := &fakeServices{}
	out, err := run(t, fake, "ingest", path, "--id", "notes", "--type", "text/plain")
	require.NoError(t, err)
	assert.Contains(t, out, "as notes (3 chunks)")
	assert.Equal(t, "notes", fake.upload.DocumentID)
	assert.Equal(t, "text/plain", fake.upload.ContentType)
	assert.Equal(t, []byte("hello"), fake.upload.Data)
	assert.False(t, fake.upload.StoreInFolder)
}

func TestIngestCmd_MissingFile(t *testing.T) {
	_, err := run(t, &fakeServices{}, "ingest", filepath.Join(t.TempDir(), "nope.pdf"))
	require.Error(t, err)
}

func TestAskCmd(t *testing.T) {
	out, err := run(t, &fakeServices{}, "ask", "When", "do", "labs", "close?")
	require.NoError(t, err)
	assert.Contains(t, out, "Labs close at 9pm.")
	assert.Contains(t, out, "[1] handbook (0.812)")
}

func TestRoomsAndDocumentsCmd(t *testing.T) {
	out, err := run(t, &fakeServices{}, "rooms")
	require.NoError(t, err)
	assert.Contains(t, out, "LT1")
	assert.Contains(t, out, "A block")

	out, err = run(t, &fakeServices{}, "documents", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"documents":[{"document_id":"handbook","chunk_count":12}]}`, out)
}

func TestUnknownFormat(t *testing.T) {
	_, err := run(t, &fakeServices{}, "rooms", "--format", "yaml")
	require.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd...", truncate("abcdefghij", 7))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}
