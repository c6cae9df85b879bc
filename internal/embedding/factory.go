package embedding

import (
	"fmt"

	"github.com/hyperjump/kura/internal/config"
	"go.uber.org/zap"
)

// ONNXOptions configures the ONNX embedder.
type ONNXOptions struct {
	ModelPath  string
	Dimensions int
	MaxTokens  int
}

// New creates the embedder selected by cfg.Provider.
func New(cfg *config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		e   Embedder
		err error
	)
	switch cfg.Provider {
	case "", "mock":
		return NewMockEmbedder(cfg.Dimensions), nil
	case "http":
		var h *HTTPEmbedder
		h, err = NewHTTPEmbedder(HTTPOptions{
			Endpoint:          cfg.Endpoint,
			APIKey:            cfg.APIKey,
			Model:             cfg.Model,
			Dimensions:        cfg.Dimensions,
			BatchSize:         cfg.BatchSize,
			Concurrency:       cfg.Concurrency,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Timeout:           cfg.Timeout,
		}, logger)
		e = h
	case "onnx":
		var o *ONNXEmbedder
		o, err = NewONNXEmbedder(ONNXOptions{
			ModelPath:  cfg.ModelPath,
			Dimensions: cfg.Dimensions,
			MaxTokens:  cfg.MaxTokens,
		})
		e = o
	case "hugot":
		var h *HugotEmbedder
		h, err = NewHugotEmbedder(cfg.ModelName, cfg.ModelPath, cfg.Dimensions)
		e = h
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("embedder ready", zap.String("provider", cfg.Provider), zap.Int("dimensions", e.Dimensions()))
	return e, nil
}
