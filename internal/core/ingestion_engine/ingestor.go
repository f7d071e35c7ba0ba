package ingestion_engine

import "github.com/markdave123-py/smartassist-rag/internal/core"

var _ core.Ingestor = (*DocumentIngestor)(nil)

// Supports reports whether contentType has a registered extractor.
func (i *DocumentIngestor) Supports(contentType string) bool {
	return i.registry.Supports(contentType)
}

// WithSource returns a copy of the ingestor whose events carry source.
func (i *DocumentIngestor) WithSource(source string) *DocumentIngestor {
	cp := *i
	cp.cfg.Source = source
	return &cp
}
