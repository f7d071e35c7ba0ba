package core

import "errors"

// Error taxonomy shared by every layer. Wrap with fmt.Errorf("%w: ...") and
// test with errors.Is.
var (
	// ErrConfiguration indicates a missing or invalid setting (store address,
	// external credentials, tuning constants). Never silently defaulted.
	ErrConfiguration = errors.New("configuration error")

	// ErrUnsupportedType indicates a content type outside the extractor registry.
	ErrUnsupportedType = errors.New("unsupported content type")

	// ErrEmptyDocument indicates a document with no extractable text or no chunks.
	ErrEmptyDocument = errors.New("empty document")

	// ErrInvalidInput indicates malformed caller input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmbeddingService indicates the embedding backend failed or returned bad vectors.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrGenerationService indicates the generative model call failed.
	ErrGenerationService = errors.New("generation service error")

	// ErrStore indicates a connection or transaction failure in the backing store.
	ErrStore = errors.New("store error")

	// ErrSyncInProgress indicates a folder sync is already running.
	ErrSyncInProgress = errors.New("sync in progress")
)
