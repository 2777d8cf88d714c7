package extraction

import (
	"bytes"
	"context"
	"fmt"
	"unicode/utf8"
)

// PlainText handles documents whose bytes already are text.
type PlainText struct{}

var plainTextTypes = map[string]bool{
	"text/plain":       true,
	"text/csv":         true,
	"text/markdown":    true,
	"application/json": true,
}

// Supports reports whether the mime type is handled.
func (PlainText) Supports(mimeType string) bool {
	return plainTextTypes[NormalizeMimeType(mimeType)]
}

func (p PlainText) Extract(ctx context.Context, data []byte, mimeType string) (string, error) {
	if err := contextError(ctx); err != nil {
		return "", err
	}
	if !p.Supports(mimeType) {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, mimeType)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: invalid utf-8", ErrCorrupt)
	}
	return string(bytes.TrimSpace(data)), nil
}
