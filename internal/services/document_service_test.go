package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/smartassist-rag/internal/core"
	"github.com/markdave123-py/smartassist-rag/internal/models"
)

func TestUpload_DirectWithGivenID(t *testing.T) {
	ing := &fakeIngestor{}
	svc := NewDocumentService(newMemSyncLog(), nil, ing)

	res, err := svc.Upload(context.Background(), UploadRequest{
		Filename:    "handbook.txt",
		ContentType: "text/plain",
		DocumentID:  " handbook ",
		Data:        []byte("hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, "handbook", res.DocumentID)
	assert.Equal(t, []string{"handbook"}, ing.ingested)
}

func TestUpload_GeneratesIDAndInfersType(t *testing.T) {
	ing := &fakeIngestor{}
	svc := NewDocumentService(newMemSyncLog(), nil, ing)

	res, err := svc.Upload(context.Background(), UploadRequest{
		Filename:    "notes.pdf",
		ContentType: "application/octet-stream",
		Data:        []byte("%PDF"),
	})
	require.NoError(t, err)
	_, perr := uuid.Parse(res.DocumentID)
	assert.NoError(t, perr)
}

func TestUpload_UnsupportedTypeRejectedBeforeFolder(t *testing.T) {
	folder := &mockFolder{}
	svc := NewDocumentService(newMemSyncLog(), folder, &fakeIngestor{})

	_, err := svc.Upload(context.Background(), UploadRequest{
		Filename:      "photo.png",
		ContentType:   "image/png",
		Data:          []byte{0x89},
		StoreInFolder: true,
	})
	require.ErrorIs(t, err, core.ErrUnsupportedType)
	folder.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpload_StoreInFolderWithoutFolder(t *testing.T) {
	svc := NewDocumentService(newMemSyncLog(), nil, &fakeIngestor{})

	_, err := svc.Upload(context.Background(), UploadRequest{
		Filename:      "a.txt",
		ContentType:   "text/plain",
		Data:          []byte("a"),
		StoreInFolder: true,
	})
	require.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestUpload_StoreInFolderRejectsDocumentID(t *testing.T) {
	folder := &mockFolder{}
	ing := &fakeIngestor{}
	svc := NewDocumentService(newMemSyncLog(), folder, ing)

	_, err := svc.Upload(context.Background(), UploadRequest{
		Filename:      "a.txt",
		ContentType:   "text/plain",
		DocumentID:    "handbook",
		Data:          []byte("a"),
		StoreInFolder: true,
	})
	require.ErrorIs(t, err, core.ErrInvalidInput)
	assert.Contains(t, err.Error(), "document_id")
	folder.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, ing.ingested)
}

func TestUpload_StoreInFolderRecordsSyncEntry(t *testing.T) {
	ctx := context.Background()
	log := newMemSyncLog()
	ing := &fakeIngestor{}
	folder := &mockFolder{}
	stored := core.FolderFile{ID: "kb/a.txt", Name: "a.txt", ContentType: "text/plain", ContentHash: "abc"}
	folder.On("Upload", mock.Anything, "a.txt", "text/plain", []byte("alpha")).Return(stored, nil).Once()

	svc := NewDocumentService(log, folder, ing)
	res, err := svc.Upload(ctx, UploadRequest{
		Filename:      "uploads/a.txt",
		ContentType:   "text/plain",
		Data:          []byte("alpha"),
		StoreInFolder: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "kb/a.txt", res.DocumentID)

	entry, err := log.GetSyncEntry(ctx, "kb/a.txt")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, stored.Checksum(), entry.Checksum)

	// The uploaded file is unchanged from the next sync's point of view.
	folder.On("ListFiles", mock.Anything).Return([]core.FolderFile{stored}, nil).Once()
	sync, err := NewSyncService(folder, log, ing).Sync(ctx)
	require.NoError(t, err)
	assert.Empty(t, sync.Ingested)
	assert.Equal(t, []models.SkippedFile{{Name: "a.txt", Reason: SkipUnchanged}}, sync.Skipped)
	folder.AssertExpectations(t)
}

func TestUpload_FolderFailure(t *testing.T) {
	folder := &mockFolder{}
	folder.On("Upload", mock.Anything, "a.txt", "text/plain", mock.Anything).Return(core.FolderFile{}, errors.New("denied"))
	ing := &fakeIngestor{}

	_, err := NewDocumentService(newMemSyncLog(), folder, ing).Upload(context.Background(), UploadRequest{
		Filename:      "a.txt",
		ContentType:   "text/plain",
		Data:          []byte("a"),
		StoreInFolder: true,
	})
	require.Error(t, err)
	assert.Empty(t, ing.ingested)
}

func TestList_NeverNil(t *testing.T) {
	svc := NewDocumentService(newMemSyncLog(), nil, &fakeIngestor{})
	docs, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}
