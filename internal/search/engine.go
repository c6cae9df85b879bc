package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/kura/internal/config"
	"github.com/hyperjump/kura/internal/generation"
	"github.com/hyperjump/kura/internal/models"
	"go.uber.org/zap"
)

// ErrGenerationDisabled is returned by Chat when no generator is configured.
var ErrGenerationDisabled = errors.New("answer generation is disabled")

// Engine runs context fusion for queries and feeds the fused context to a generator for chat.
type Engine struct {
	fuser     *Fuser
	generator generation.Generator
	retrieval config.RetrievalConfig
	gen       config.GenerationConfig
	logger    *zap.Logger
}

// NewEngine creates an engine. generator may be nil, in which case Chat returns ErrGenerationDisabled.
func NewEngine(fuser *Fuser, generator generation.Generator, cfg *config.Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		fuser:     fuser,
		generator: generator,
		retrieval: cfg.Retrieval,
		gen:       cfg.Generation,
		logger:    logger,
	}
}

// GenerationEnabled reports whether Chat can produce answers.
func (e *Engine) GenerationEnabled() bool {
	return e.generator != nil
}

// Query returns the fused context set for req. It never fails; retrieval problems fall back
// to external context or general knowledge.
func (e *Engine) Query(ctx context.Context, req *models.QueryRequest) *models.QueryResponse {
	startTime := time.Now()
	result := e.fuse(ctx, req)
	return &models.QueryResponse{
		AnswerSource: result.AnswerSource,
		ContextItems: result.Items,
		QueryTime:    time.Since(startTime).Milliseconds(),
	}
}

// Chat fuses context for req, builds the prompt and generates a response. Only generation
// failures are returned; they match generation.ErrGeneration.
func (e *Engine) Chat(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error) {
	if e.generator == nil {
		return nil, ErrGenerationDisabled
	}
	result := e.fuse(ctx, &req.QueryRequest)

	prompt := generation.BuildPrompt(req.Prompt, result.Items, &e.gen)
	prompt.Params = e.samplingParams(req.SamplingParams)

	if e.gen.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.gen.Timeout)
		defer cancel()
	}
	startTime := time.Now()
	answer, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		if !errors.Is(err, generation.ErrGeneration) {
			err = fmt.Errorf("%w: %w", generation.ErrGeneration, err)
		}
		return nil, err
	}
	e.logger.Info("response generated",
		zap.String("answer_source", string(result.AnswerSource)),
		zap.Int("context_items", len(result.Items)),
		zap.Duration("took", time.Since(startTime)))

	return &models.ChatResponse{
		Response:     answer,
		AnswerSource: result.AnswerSource,
		ContextUsed:  result.Texts(),
		Sources:      result.Items,
	}, nil
}

func (e *Engine) fuse(ctx context.Context, req *models.QueryRequest) *models.FusionResult {
	k := req.K
	if k <= 0 {
		k = e.retrieval.TopK
	}
	if e.retrieval.MaxTopK > 0 && k > e.retrieval.MaxTopK {
		k = e.retrieval.MaxTopK
	}
	return e.fuser.Fuse(ctx, FusionRequest{
		Query:    req.Prompt,
		K:        k,
		UseLocal: req.UseLocalOrDefault(),
		External: req.ExternalContext,
	})
}

func (e *Engine) samplingParams(p models.SamplingParams) models.SamplingParams {
	if p.MaxNewTokens <= 0 {
		p.MaxNewTokens = e.gen.MaxNewTokens
	}
	if p.Temperature <= 0 {
		p.Temperature = e.gen.Temperature
	}
	if p.TopP <= 0 {
		p.TopP = e.gen.TopP
	}
	return p
}
