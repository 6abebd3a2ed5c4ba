// MockProvider 的生成后端测试模拟实现。
//
// 支持固定响应、自定义补全函数与错误注入场景。
package mocks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/BaSui01/courseflow/llm"
)

// MockProvider 是 llm.Provider 的模拟实现。
type MockProvider struct {
	mu sync.Mutex

	name     string
	response string
	err      error

	promptTokens     int
	completionTokens int

	completionFunc func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)

	delay     time.Duration
	failFirst int // 前 N 次调用失败，之后成功
	failAfter int // 第 N 次调用之后失败
	callCount int
	calls     []MockProviderCall
}

// MockProviderCall 记录单次调用。
type MockProviderCall struct {
	Request  *llm.ChatRequest
	Response *llm.ChatResponse
	Error    error
}

// NewMockProvider 创建新的 MockProvider。
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		name:             name,
		response:         "mock response",
		promptTokens:     10,
		completionTokens: 20,
	}
}

// WithResponse 设置固定响应内容。
func (m *MockProvider) WithResponse(response string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = response
	return m
}

// WithError 设置返回错误。
func (m *MockProvider) WithError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithTokenUsage 设置 Token 使用量。
func (m *MockProvider) WithTokenUsage(prompt, completion int) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promptTokens = prompt
	m.completionTokens = completion
	return m
}

// WithDelay 设置响应延迟。
func (m *MockProvider) WithDelay(d time.Duration) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithFailFirst 设置前 N 次调用失败，之后成功。
func (m *MockProvider) WithFailFirst(n int, err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failFirst = n
	m.err = err
	return m
}

// WithFailAfter 设置在第 N 次调用后失败。
func (m *MockProvider) WithFailAfter(n int) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	return m
}

// WithCompletionFunc 设置自定义补全函数。
func (m *MockProvider) WithCompletionFunc(fn func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completionFunc = fn
	return m
}

// Name 实现 llm.Provider。
func (m *MockProvider) Name() string { return m.name }

// Completion 实现 llm.Provider。
func (m *MockProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	m.mu.Lock()
	m.callCount++
	count := m.callCount
	delay := m.delay
	fn := m.completionFunc
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAfter > 0 && count > m.failAfter {
		err := errors.New("mock provider: configured to fail after N calls")
		m.calls = append(m.calls, MockProviderCall{Request: req, Error: err})
		return nil, err
	}
	if m.err != nil && (m.failFirst == 0 || count <= m.failFirst) {
		m.calls = append(m.calls, MockProviderCall{Request: req, Error: m.err})
		return nil, m.err
	}

	if fn != nil {
		m.mu.Unlock()
		resp, err := fn(ctx, req)
		m.mu.Lock()
		m.calls = append(m.calls, MockProviderCall{Request: req, Response: resp, Error: err})
		return resp, err
	}

	resp := &llm.ChatResponse{
		Content:  m.response,
		Model:    req.Model,
		Provider: m.name,
		Usage: llm.Usage{
			PromptTokens:     m.promptTokens,
			CompletionTokens: m.completionTokens,
			TotalTokens:      m.promptTokens + m.completionTokens,
		},
	}
	m.calls = append(m.calls, MockProviderCall{Request: req, Response: resp})
	return resp, nil
}

// CallCount 返回调用次数。
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Calls 返回所有调用记录。
func (m *MockProvider) Calls() []MockProviderCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockProviderCall(nil), m.calls...)
}

// LastCall 返回最后一次调用记录。
func (m *MockProvider) LastCall() *MockProviderCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	call := m.calls[len(m.calls)-1]
	return &call
}

// Reset 重置调用记录与错误注入。
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.callCount = 0
	m.err = nil
	m.failFirst = 0
	m.failAfter = 0
}
