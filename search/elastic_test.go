package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newFakeES(t *testing.T, handler http.HandlerFunc) *Index {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	idx, err := NewIndex(srv.URL, "", nil, zap.NewNop())
	require.NoError(t, err)
	return idx
}

func TestNilIndexIsNoop(t *testing.T) {
	idx, err := NewIndex("", "", nil, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, idx)
	assert.False(t, idx.Enabled())

	idx.IndexDocument(context.Background(), Entry{DocumentID: "d"})
	idx.DeleteDocument(context.Background(), "d")
	_, err = idx.Search(context.Background(), "o", "q", 0)
	assert.Error(t, err)
}

func TestIndexDocument(t *testing.T) {
	var path string
	var got Entry
	idx := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"result":"created"}`)
	})

	idx.IndexDocument(context.Background(), Entry{DocumentID: "doc-1", Owner: "owner-1", Text: "hello"})
	assert.Equal(t, "/documents/_doc/doc-1", path)
	assert.Equal(t, "owner-1", got.Owner)
}

func TestSearchFiltersByOwner(t *testing.T) {
	idx := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/_search"))
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"owner.keyword":"owner-1"`)
		fmt.Fprint(w, `{"hits":{"hits":[
			{"_source":{"document_id":"a","owner":"owner-1"}},
			{"_source":{"document_id":"b","owner":"owner-2"}}
		]}}`)
	})

	ids, err := idx.Search(context.Background(), "owner-1", "gdpr", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)
}

func TestSearchError(t *testing.T) {
	idx := newFakeES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":"boom"}`)
	})

	_, err := idx.Search(context.Background(), "owner-1", "gdpr", 10)
	assert.Error(t, err)
}
