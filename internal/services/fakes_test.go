package services

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/markdave123-py/smartassist-rag/internal/core"
	"github.com/markdave123-py/smartassist-rag/internal/models"
)

type fakeLLM struct {
	text      string
	genErr    error
	toolGen   *core.Generation
	toolErr   error
	calls     int
	toolCalls int
	lastSys   string
	lastUser  string
}

func (f *fakeLLM) Generate(_ context.Context, system, user string) (string, error) {
	f.calls++
	f.lastSys, f.lastUser = system, user
	return f.text, f.genErr
}

func (f *fakeLLM) GenerateWithTools(_ context.Context, system, user string, _ []core.Tool) (*core.Generation, error) {
	f.toolCalls++
	f.lastSys, f.lastUser = system, user
	return f.toolGen, f.toolErr
}

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return 3 }

type fakeVectorStore struct {
	results []models.SearchResult
	err     error
	topK    int
}

func (f *fakeVectorStore) SaveChunks(context.Context, string, []string, [][]float32) error {
	return nil
}

func (f *fakeVectorStore) Search(_ context.Context, _ []float32, topK int) ([]models.SearchResult, error) {
	f.topK = topK
	return f.results, f.err
}

type fakeRooms struct {
	rooms []models.Room
	err   error
}

func (f *fakeRooms) ListRooms(context.Context) ([]models.Room, error) { return f.rooms, f.err }

// memSyncLog is an in-memory sync log and document listing.
type memSyncLog struct {
	mu      sync.Mutex
	entries map[string]models.SyncLogEntry
	getErr  error
	docs    []models.DocumentSummary
}

func newMemSyncLog() *memSyncLog { return &memSyncLog{entries: map[string]models.SyncLogEntry{}} }

func (m *memSyncLog) GetSyncEntry(_ context.Context, id string) (*models.SyncLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	e, ok := m.entries[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *memSyncLog) UpsertSyncEntry(_ context.Context, e models.SyncLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ExternalFileID] = e
	return nil
}

func (m *memSyncLog) ListDocuments(context.Context) ([]models.DocumentSummary, error) {
	return m.docs, nil
}

// fakeIngestor accepts text/plain and application/pdf.
type fakeIngestor struct {
	mu       sync.Mutex
	failFor  map[string]error
	ingested []string
	block    chan struct{}
}

func (f *fakeIngestor) Supports(ct string) bool {
	return ct == "text/plain" || ct == "application/pdf"
}

func (f *fakeIngestor) Ingest(_ context.Context, data []byte, _ string, id string) (*models.IngestResult, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[id]; err != nil {
		return nil, err
	}
	f.ingested = append(f.ingested, id)
	return &models.IngestResult{DocumentID: id, ChunkCount: len(data), Status: models.IngestStatusIngested}, nil
}

type mockFolder struct {
	mock.Mock
}

func (m *mockFolder) Name() string { return "mock" }

func (m *mockFolder) ListFiles(ctx context.Context) ([]core.FolderFile, error) {
	args := m.Called(ctx)
	files, _ := args.Get(0).([]core.FolderFile)
	return files, args.Error(1)
}

func (m *mockFolder) Download(ctx context.Context, f core.FolderFile) ([]byte, error) {
	args := m.Called(ctx, f)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *mockFolder) Upload(ctx context.Context, name, contentType string, data []byte) (core.FolderFile, error) {
	args := m.Called(ctx, name, contentType, data)
	f, _ := args.Get(0).(core.FolderFile)
	return f, args.Error(1)
}
