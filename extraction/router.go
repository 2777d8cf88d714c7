package extraction

import (
	"context"
	"fmt"
)

// Handler is an Extractor that declares which mime types it accepts.
type Handler interface {
	Extractor
	Supports(mimeType string) bool
}

// Router dispatches to the first handler that supports the mime type.
type Router struct {
	handlers []Handler
}

// NewRouter builds a Router. Nil handlers are skipped.
func NewRouter(handlers ...Handler) *Router {
	r := &Router{}
	for _, h := range handlers {
		if h != nil {
			r.handlers = append(r.handlers, h)
		}
	}
	return r
}

func (r *Router) Extract(ctx context.Context, data []byte, mimeType string) (string, error) {
	for _, h := range r.handlers {
		if h.Supports(mimeType) {
			return h.Extract(ctx, data, mimeType)
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupported, mimeType)
}
