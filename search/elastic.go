// Package search keeps a full-text index of document text in Elasticsearch.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"
)

// DefaultIndex is the index documents are written to.
const DefaultIndex = "documents"

// Index is an owner-scoped document index. A nil *Index is valid and
// disables indexing and search.
type Index struct {
	client *elasticsearch.Client
	index  string
	log    *zap.Logger
}

// NewIndex connects to url. An empty url returns a nil index.
func NewIndex(url, index string, transport http.RoundTripper, log *zap.Logger) (*Index, error) {
	if url == "" {
		log.Info("ELASTICSEARCH_URL not set, document search disabled")
		return nil, nil
	}
	if index == "" {
		index = DefaultIndex
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}
	return &Index{client: client, index: index, log: log.Named("search")}, nil
}

// Entry is the indexed form of a document.
type Entry struct {
	DocumentID string    `json:"document_id"`
	Owner      string    `json:"owner"`
	Filename   string    `json:"filename"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
}

// IndexDocument writes or replaces the entry. Failures are logged only so
// that indexing never breaks the caller's operation.
func (i *Index) IndexDocument(ctx context.Context, e Entry) {
	if i == nil {
		return
	}
	body, err := json.Marshal(e)
	if err != nil {
		i.log.Warn("failed to marshal document for indexing", zap.Error(err))
		return
	}

	res, err := i.client.Index(
		i.index,
		bytes.NewReader(body),
		i.client.Index.WithDocumentID(e.DocumentID),
		i.client.Index.WithContext(ctx),
	)
	if err != nil {
		i.log.Warn("elasticsearch indexing error", zap.String("document_id", e.DocumentID), zap.Error(err))
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		i.log.Warn("elasticsearch indexing failed", zap.String("document_id", e.DocumentID), zap.String("response", res.String()))
		return
	}
	i.log.Debug("document indexed", zap.String("document_id", e.DocumentID))
}

// DeleteDocument removes the entry, logging failures.
func (i *Index) DeleteDocument(ctx context.Context, documentID string) {
	if i == nil {
		return
	}
	res, err := i.client.Delete(i.index, documentID, i.client.Delete.WithContext(ctx))
	if err != nil {
		i.log.Warn("elasticsearch delete error", zap.String("document_id", documentID), zap.Error(err))
		return
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		i.log.Warn("elasticsearch delete failed", zap.String("document_id", documentID), zap.String("response", res.String()))
	}
}

// Enabled reports whether searches can run.
func (i *Index) Enabled() bool {
	return i != nil
}

// Search returns the ids of the owner's documents matching query, best first.
func (i *Index) Search(ctx context.Context, owner, query string, limit int) ([]string, error) {
	if i == nil {
		return nil, fmt.Errorf("elasticsearch client is not initialized")
	}
	if limit <= 0 {
		limit = 20
	}

	searchQuery := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":  query,
						"fields": []string{"text", "filename"},
					},
				},
				"filter": map[string]interface{}{
					"term": map[string]interface{}{"owner.keyword": owner},
				},
			},
		},
	}
	body, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := i.client.Search(
		i.client.Search.WithContext(ctx),
		i.client.Search.WithIndex(i.index),
		i.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search failed: %s", res.Status())
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source Entry `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	ids := make([]string, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		if hit.Source.Owner != owner {
			continue
		}
		ids = append(ids, hit.Source.DocumentID)
	}
	return ids, nil
}
