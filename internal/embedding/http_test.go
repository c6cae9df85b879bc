package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbeddingsServer returns [len(text), index-in-request] per input, in reverse index order.
func fakeEmbeddingsServer(t *testing.T, mu *sync.Mutex, batchSizes *[]int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
			return
		}
		var req embeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		*batchSizes = append(*batchSizes, len(req.Input))
		mu.Unlock()

		type item struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		data := make([]item, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, item{Index: i, Embedding: []float32{float32(len(req.Input[i])), float32(i)}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
}

func TestHTTPEmbedder_EmbedBatchSplitsAndKeepsOrder(t *testing.T) {
	var mu sync.Mutex
	var sizes []int
	srv := fakeEmbeddingsServer(t, &mu, &sizes)
	defer srv.Close()

	e, err := NewHTTPEmbedder(HTTPOptions{
		Endpoint:    srv.URL + "/v1/",
		APIKey:      "test-key",
		BatchSize:   2,
		Concurrency: 3,
	}, nil)
	require.NoError(t, err)
	defer e.Close()

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	out, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, out, len(texts))
	for i, text := range texts {
		assert.Equal(t, float32(len(text)), out[i][0], "vector %d out of order", i)
	}
	assert.ElementsMatch(t, []int{2, 2, 1}, sizes)
	assert.Equal(t, 2, e.Dimensions())
}

func TestHTTPEmbedder_Embed(t *testing.T) {
	var mu sync.Mutex
	var sizes []int
	srv := fakeEmbeddingsServer(t, &mu, &sizes)
	defer srv.Close()

	e, err := NewHTTPEmbedder(HTTPOptions{Endpoint: srv.URL + "/v1", APIKey: "test-key", RequestsPerSecond: 100}, nil)
	require.NoError(t, err)
	v, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 0}, v)
}

func TestHTTPEmbedder_errorStatus(t *testing.T) {
	var mu sync.Mutex
	var sizes []int
	srv := fakeEmbeddingsServer(t, &mu, &sizes)
	defer srv.Close()

	e, err := NewHTTPEmbedder(HTTPOptions{Endpoint: srv.URL + "/v1", APIKey: "wrong"}, nil)
	require.NoError(t, err)
	_, err = e.EmbedBatch(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmbedding))
	assert.Contains(t, err.Error(), "bad key")
}

func TestHTTPEmbedder_emptyInput(t *testing.T) {
	e, err := NewHTTPEmbedder(HTTPOptions{Endpoint: "http://127.0.0.1:1"}, nil)
	require.NoError(t, err)
	out, err := e.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestNewHTTPEmbedder_requiresEndpoint(t *testing.T) {
	_, err := NewHTTPEmbedder(HTTPOptions{}, nil)
	assert.Error(t, err)
}
