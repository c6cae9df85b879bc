// Package generation produces answers from a fused context set through a chat-completion model.
package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/kura/internal/config"
	"github.com/hyperjump/kura/internal/models"
	"go.uber.org/zap"
)

// ErrGeneration matches every error returned by a Generator.
var ErrGeneration = errors.New("generation failed")

// Prompt is one chat-completion request.
type Prompt struct {
	System string
	User   string
	Params models.SamplingParams
}

// Generator produces a response for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// GenerationError describes a failed generation call.
type GenerationError struct {
	Code       string
	Message    string
	StatusCode int
	Cause      error
}

// NewGenerationError creates a GenerationError.
func NewGenerationError(code, message string, statusCode int, cause error) *GenerationError {
	return &GenerationError{Code: code, Message: message, StatusCode: statusCode, Cause: cause}
}

func (e *GenerationError) Error() string {
	msg := e.Message
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Is reports every GenerationError as ErrGeneration.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGeneration
}

// New returns the generator selected by cfg.Provider, or nil when generation is disabled.
func New(cfg *config.GenerationConfig, logger *zap.Logger) (Generator, error) {
	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "openai":
		client, err := NewOpenAIClient(cfg, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}
}
