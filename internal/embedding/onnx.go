//go:build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXEmbedder runs a sentence-embedding model through ONNX Runtime. The model must take
// input_ids, attention_mask and token_type_ids of shape (1, MaxTokens) and emit a pooled
// "output" of shape (1, Dimensions). Requires CGO and the onnxruntime shared library.
type ONNXEmbedder struct {
	session    *ort.AdvancedSession
	dimensions int
	maxTokens  int
	tokenizer  Tokenizer

	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	tokenTypeIDs  *ort.Tensor[int64]
	output        *ort.Tensor[float32]
	mu            sync.Mutex
}

// NewONNXEmbedder loads the model at opts.ModelPath. InitializeEnvironment is called if not already done.
func NewONNXEmbedder(opts ONNXOptions) (*ONNXEmbedder, error) {
	if opts.ModelPath == "" {
		return nil, fmt.Errorf("onnx embedder: model_path is required")
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	e := &ONNXEmbedder{
		dimensions: opts.Dimensions,
		maxTokens:  opts.MaxTokens,
		tokenizer:  &SimpleTokenizer{},
	}
	shape := ort.NewShape(1, int64(opts.MaxTokens))
	var err error
	if e.inputIDs, err = ort.NewEmptyTensor[int64](shape); err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	if e.attentionMask, err = ort.NewEmptyTensor[int64](shape); err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	if e.tokenTypeIDs, err = ort.NewEmptyTensor[int64](shape); err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	if e.output, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(opts.Dimensions))); err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	e.session, err = ort.NewAdvancedSession(
		opts.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"output"},
		[]ort.ArbitraryTensor{e.inputIDs, e.attentionMask, e.tokenTypeIDs},
		[]ort.ArbitraryTensor{e.output},
		nil,
	)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return e, nil
}

// Embed runs one inference. Calls are serialized because the tensors are shared.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	ids, mask, types := e.tokenizer.Tokenize(text, e.maxTokens)
	copy(e.inputIDs.GetData(), ids)
	copy(e.attentionMask.GetData(), mask)
	copy(e.tokenTypeIDs.GetData(), types)

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("%w: inference failed: %w", ErrEmbedding, err)
	}

	embedding := make([]float32, e.dimensions)
	copy(embedding, e.output.GetData())
	NormalizeL2Slice(embedding)
	return embedding, nil
}

// EmbedBatch runs one inference per text, stopping early if ctx is cancelled.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, e, texts)
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Close destroys the session and tensors.
func (e *ONNXEmbedder) Close() error {
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	if e.inputIDs != nil {
		_ = e.inputIDs.Destroy()
	}
	if e.attentionMask != nil {
		_ = e.attentionMask.Destroy()
	}
	if e.tokenTypeIDs != nil {
		_ = e.tokenTypeIDs.Destroy()
	}
	if e.output != nil {
		_ = e.output.Destroy()
	}
	e.inputIDs, e.attentionMask, e.tokenTypeIDs, e.output = nil, nil, nil, nil
	return err
}
