package core

import (
	"context"
)

// DocumentExtractor turns raw document bytes of one content type into plain text.
type DocumentExtractor interface {
	ExtractText(ctx context.Context, data []byte, contentType string) (string, error)
}
