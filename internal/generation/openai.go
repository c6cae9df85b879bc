package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/kura/internal/config"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.openai.com/v1"

// OpenAIClient calls an OpenAI-compatible /chat/completions endpoint.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewOpenAIClient creates a client from cfg. An empty endpoint uses the public OpenAI API.
func NewOpenAIClient(cfg *config.GenerationConfig, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai generator: model is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &OpenAIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// Generate sends the system and user messages and returns the first choice's content.
func (c *OpenAIClient) Generate(ctx context.Context, prompt Prompt) (string, error) {
	startTime := time.Now()

	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User},
		},
	}
	if prompt.Params.MaxNewTokens > 0 {
		req.MaxTokens = &prompt.Params.MaxNewTokens
	}
	if prompt.Params.Temperature > 0 {
		req.Temperature = &prompt.Params.Temperature
	}
	if prompt.Params.TopP > 0 {
		req.TopP = &prompt.Params.TopP
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", NewGenerationError("MARSHAL_ERROR", "failed to marshal request", 0, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", NewGenerationError("REQUEST_ERROR", "failed to create request", 0, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", NewGenerationError("HTTP_ERROR", "generation request failed", 0, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", NewGenerationError("READ_ERROR", "failed to read response", httpResp.StatusCode, err)
	}
	if httpResp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(respBody))
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			msg = errResp.Error.Message
		}
		return "", NewGenerationError("API_ERROR", msg, httpResp.StatusCode, nil)
	}

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", NewGenerationError("UNMARSHAL_ERROR", "failed to unmarshal response", httpResp.StatusCode, err)
	}
	if len(resp.Choices) == 0 {
		return "", NewGenerationError("EMPTY_RESPONSE", "no choices in response", httpResp.StatusCode, nil)
	}

	c.logger.Debug("generation completed",
		zap.String("model", c.model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.String("finish_reason", resp.Choices[0].FinishReason),
		zap.Duration("took", time.Since(startTime)))
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
