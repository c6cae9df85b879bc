package embedding

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knights-analytics/hugot"
)

// HugotEmbedder runs a sentence-transformers feature extraction pipeline in pure Go.
type HugotEmbedder struct {
	session    *hugot.Session
	run        func(texts []string) ([][]float32, error)
	dimensions int
	mu         sync.Mutex
}

// PrepareHugotModel returns modelPath if it exists, otherwise downloads modelName into
// modelPath's parent directory and returns the downloaded path.
func PrepareHugotModel(modelName, modelPath string) (string, error) {
	if modelPath != "" {
		if _, err := os.Stat(modelPath); err == nil {
			return modelPath, nil
		}
	}
	modelDir := "./models"
	if modelPath != "" {
		modelDir = filepath.Dir(modelPath)
	}
	if err := os.MkdirAll(modelDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}
	opts := hugot.NewDownloadOptions()
	opts.OnnxFilePath = "onnx/model.onnx"
	downloaded, err := hugot.DownloadModel(modelName, modelDir, opts)
	if err != nil {
		return "", fmt.Errorf("failed to download model %s: %w", modelName, err)
	}
	return downloaded, nil
}

// NewHugotEmbedder loads (downloading if needed) the model and starts a Go-backend session.
func NewHugotEmbedder(modelName, modelPath string, dimensions int) (*HugotEmbedder, error) {
	path, err := PrepareHugotModel(modelName, modelPath)
	if err != nil {
		return nil, err
	}
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}
	config := hugot.FeatureExtractionConfig{
		ModelPath: path,
		Name:      "kura-embedder-" + strings.ReplaceAll(filepath.Base(path), " ", "_"),
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create feature extraction pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create feature extraction pipeline: %w", err)
	}
	return &HugotEmbedder{
		session: session,
		run: func(texts []string) ([][]float32, error) {
			result, err := pipeline.RunPipeline(texts)
			if err != nil {
				return nil, err
			}
			return result.Embeddings, nil
		},
		dimensions: dimensions,
	}, nil
}

// Embed returns the embedding for text.
func (e *HugotEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch runs the pipeline once over all texts.
func (e *HugotEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out, err := e.run(texts)
	if err != nil {
		return nil, fmt.Errorf("%w: hugot pipeline: %w", ErrEmbedding, err)
	}
	if len(out) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrEmbedding, len(out), len(texts))
	}
	if len(out[0]) > 0 {
		e.dimensions = len(out[0])
	}
	return out, nil
}

// Dimensions returns the configured dimension until the first batch reports the real one.
func (e *HugotEmbedder) Dimensions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dimensions
}

// Close destroys the hugot session.
func (e *HugotEmbedder) Close() error {
	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	return err
}
