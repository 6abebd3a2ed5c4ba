// Package openai 提供兼容 OpenAI chat-completions 协议的 Provider 实现。
// 任何兼容该协议的自建或托管端点都可以通过 BaseURL 接入。
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/courseflow/llm"
	"github.com/BaSui01/courseflow/types"
)

// Config Provider 配置。
type Config struct {
	Name    string        `json:"name" yaml:"name"` // 注册到网关的标识
	BaseURL string        `json:"base_url" yaml:"base_url"`
	APIKey  string        `json:"api_key" yaml:"api_key"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// Provider OpenAI 兼容后端。
type Provider struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New 创建 Provider。
func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("provider", cfg.Name)),
	}
}

// Name 实现 llm.Provider。
func (p *Provider) Name() string { return p.cfg.Name }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature,omitempty"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Completion 实现 llm.Provider。
func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	body := chatCompletionRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "marshal request").WithCause(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "build request").WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		// 网络层错误视为可重试的上游错误
		return nil, types.NewError(types.ErrUpstreamError, "http request failed").
			WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "read response body").
			WithCause(err).WithRetryable(true)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, p.mapHTTPError(resp.StatusCode, raw)
	}

	var out chatCompletionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "decode response").
			WithCause(err).WithRetryable(true)
	}
	if out.Error != nil {
		return nil, types.NewError(types.ErrUpstreamError, out.Error.Message).WithRetryable(true)
	}
	if len(out.Choices) == 0 {
		return nil, types.NewError(types.ErrEmptyCompletion, "response has no choices").WithRetryable(true)
	}

	return &llm.ChatResponse{
		Content:  out.Choices[0].Message.Content,
		Model:    out.Model,
		Provider: p.cfg.Name,
		Usage: llm.Usage{
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
			TotalTokens:      out.Usage.TotalTokens,
		},
		Latency: time.Since(start),
	}, nil
}

// mapHTTPError 将 HTTP 状态码映射为类型化错误。
// 429 和 5xx 可重试，4xx 请求类错误不可重试。
func (p *Provider) mapHTTPError(status int, body []byte) error {
	msg := fmt.Sprintf("upstream returned %d", status)
	var parsed chatCompletionResponse
	if json.Unmarshal(body, &parsed) == nil && parsed.Error != nil {
		msg = parsed.Error.Message
	}

	switch {
	case status == http.StatusTooManyRequests:
		return types.NewError(types.ErrRateLimited, msg).WithRetryable(true)
	case status >= 500:
		return types.NewError(types.ErrUpstreamError, msg).WithRetryable(true)
	default:
		return types.NewError(types.ErrUpstreamError, msg).WithRetryable(false)
	}
}
