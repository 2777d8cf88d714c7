// Package extraction turns raw document bytes into text.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"
)

// Failure kinds. Implementations wrap one of these so callers can classify
// errors with errors.Is.
var (
	ErrUnsupported = errors.New("unsupported document type")
	ErrCorrupt     = errors.New("document could not be parsed")
	ErrTimeout     = errors.New("extraction timed out")
	ErrUnavailable = errors.New("extraction service unavailable")
)

// Extractor returns best-effort text for a document.
type Extractor interface {
	Extract(ctx context.Context, data []byte, mimeType string) (string, error)
}

// NormalizeMimeType lowercases a content type and strips its parameters.
func NormalizeMimeType(mimeType string) string {
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// contextError maps a context failure to ErrTimeout, or returns nil.
func contextError(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return nil
}
