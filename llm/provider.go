package llm

import (
	"context"
	"time"
)

// Role 消息角色。
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message 对话消息。
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest 单次后端调用请求。
type ChatRequest struct {
	TraceID     string        `json:"trace_id,omitempty"`
	Model       string        `json:"model"`
	Messages    []Message     `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`
}

// Usage 单次调用的用量统计。
type Usage struct {
	PromptTokens     int     `json:"prompt_tokens,omitempty"`
	CompletionTokens int     `json:"completion_tokens,omitempty"`
	TotalTokens      int     `json:"total_tokens,omitempty"`
	Cost             float64 `json:"cost,omitempty"` // 以 USD 计
}

// ChatResponse 后端返回的完整响应。
type ChatResponse struct {
	Content  string        `json:"content"`
	Model    string        `json:"model,omitempty"`
	Provider string        `json:"provider,omitempty"`
	Usage    Usage         `json:"usage,omitempty"`
	Latency  time.Duration `json:"latency,omitempty"`
}

// Provider 定义了统一的生成后端适配接口，便于网关路由与监控。
type Provider interface {
	// Completion 发起同步请求，返回完整响应
	Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Name 返回 Provider 的唯一标识
	Name() string
}
