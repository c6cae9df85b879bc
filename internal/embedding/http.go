package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// HTTPOptions configures an OpenAI-compatible embeddings client.
type HTTPOptions struct {
	// Endpoint is the API base URL, e.g. http://localhost:8001/v1. Requests go to Endpoint + "/embeddings".
	Endpoint          string
	APIKey            string
	Model             string
	Dimensions        int
	BatchSize         int
	Concurrency       int
	RequestsPerSecond float64
	Timeout           time.Duration
}

// HTTPEmbedder calls an OpenAI-compatible /embeddings endpoint. Large batches are split into
// sub-batches sent concurrently and reassembled in input order.
type HTTPEmbedder struct {
	url         string
	apiKey      string
	model       string
	batchSize   int
	concurrency int
	dimensions  atomic.Int64
	limiter     *rate.Limiter
	client      *http.Client
	logger      *zap.Logger
}

type embeddingsRequest struct {
	Model string   `json:"model,omitempty"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewHTTPEmbedder returns a client for opts. A non-positive RequestsPerSecond disables throttling.
func NewHTTPEmbedder(opts HTTPOptions, logger *zap.Logger) (*HTTPEmbedder, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("http embedder: endpoint is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	limit := rate.Inf
	burst := opts.Concurrency
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	e := &HTTPEmbedder{
		url:         strings.TrimRight(opts.Endpoint, "/") + "/embeddings",
		apiKey:      opts.APIKey,
		model:       opts.Model,
		batchSize:   opts.BatchSize,
		concurrency: opts.Concurrency,
		limiter:     rate.NewLimiter(limit, burst),
		client:      &http.Client{Timeout: opts.Timeout},
		logger:      logger,
	}
	e.dimensions.Store(int64(opts.Dimensions))
	return e, nil
}

// Embed returns the embedding for a single text.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in sub-batches of at most BatchSize, with at most Concurrency requests
// in flight. Any failing sub-batch fails the whole call.
func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		g.Go(func() error {
			vectors, err := e.post(gctx, texts[start:end])
			if err != nil {
				return err
			}
			copy(out[start:end], vectors)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(out[0]) > 0 {
		e.dimensions.Store(int64(len(out[0])))
	}
	return out, nil
}

func (e *HTTPEmbedder) post(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	body, err := json.Marshal(embeddingsRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	started := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", ErrEmbedding, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrEmbedding, err)
	}
	var parsed embeddingsResponse
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &parsed) == nil && parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrEmbedding, resp.StatusCode, msg)
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %w", ErrEmbedding, err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrEmbedding, len(parsed.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(texts) || vectors[d.Index] != nil {
			return nil, fmt.Errorf("%w: invalid embedding index %d", ErrEmbedding, d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	e.logger.Debug("embedded batch",
		zap.Int("inputs", len(texts)),
		zap.Duration("took", time.Since(started)))
	return vectors, nil
}

// Dimensions returns the configured dimension, or the last observed one once a call succeeded.
func (e *HTTPEmbedder) Dimensions() int {
	return int(e.dimensions.Load())
}

// Close releases idle connections.
func (e *HTTPEmbedder) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
