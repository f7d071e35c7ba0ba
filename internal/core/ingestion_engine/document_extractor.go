package ingestion_engine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"sort"
	"strings"

	"code.sajari.com/docconv"

	"github.com/markdave123-py/smartassist-rag/internal/core"
)

// Content types the registry accepts.
const (
	ContentTypePDF   = "application/pdf"
	ContentTypeDOCX  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypePlain = "text/plain"
)

var (
	_ core.DocumentExtractor = (*DocconvExtractor)(nil)
	_ core.DocumentExtractor = PlainTextExtractor{}
)

// NormalizeContentType drops parameters and lowercases the media type, so
// "Text/Plain; charset=utf-8" becomes "text/plain".
func NormalizeContentType(contentType string) string {
	ct := strings.TrimSpace(contentType)
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// ExtractorRegistry maps normalized content types to extractors. It is fixed
// after construction.
type ExtractorRegistry struct {
	extractors map[string]core.DocumentExtractor
}

// NewExtractorRegistry registers docconv for PDF and DOCX and a pass-through
// extractor for plain text.
func NewExtractorRegistry() *ExtractorRegistry {
	dc := NewDocconvExtractor(false)
	return &ExtractorRegistry{extractors: map[string]core.DocumentExtractor{
		ContentTypePDF:   dc,
		ContentTypeDOCX:  dc,
		ContentTypePlain: PlainTextExtractor{},
	}}
}

// Lookup returns the extractor for contentType, or ErrUnsupportedType.
func (r *ExtractorRegistry) Lookup(contentType string) (core.DocumentExtractor, error) {
	ct := NormalizeContentType(contentType)
	ex, ok := r.extractors[ct]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnsupportedType, contentType)
	}
	return ex, nil
}

func (r *ExtractorRegistry) Supports(contentType string) bool {
	_, ok := r.extractors[NormalizeContentType(contentType)]
	return ok
}

// ContentTypes lists the registered types, sorted.
func (r *ExtractorRegistry) ContentTypes() []string {
	out := make([]string, 0, len(r.extractors))
	for ct := range r.extractors {
		out = append(out, ct)
	}
	sort.Strings(out)
	return out
}

// DocconvExtractor implements core.DocumentExtractor using sajari/docconv.
type DocconvExtractor struct {
	useReadability bool
}

func NewDocconvExtractor(useReadability bool) *DocconvExtractor {
	return &DocconvExtractor{useReadability: useReadability}
}

// ExtractText converts the whole document and returns its body text.
func (e *DocconvExtractor) ExtractText(ctx context.Context, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	res, err := docconv.Convert(bytes.NewReader(data), NormalizeContentType(contentType), e.useReadability)
	if err != nil {
		slog.Warn("docconv extraction failed", "content_type", contentType, "err", err)
		return "", fmt.Errorf("%w: extract %s: %w", core.ErrEmptyDocument, contentType, err)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return res.Body, nil
}

// PlainTextExtractor returns the bytes as text, replacing invalid UTF-8.
type PlainTextExtractor struct{}

func (PlainTextExtractor) ExtractText(ctx context.Context, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), "�"), nil
}
