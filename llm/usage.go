package llm

import (
	"sync"
	"sync/atomic"

	"github.com/pkoukk/tiktoken-go"
)

// UsageTracker 跨运行共享的用量计数器。
// 多个会话的运行会并发调用网关，因此所有计数必须原子更新。
type UsageTracker struct {
	requests  atomic.Int64
	errors    atomic.Int64
	fallbacks atomic.Int64
	tokens    atomic.Int64
	costMicro atomic.Int64 // 以百万分之一美元计，避免浮点原子操作
}

// UsageSnapshot 某一时刻的用量快照。
type UsageSnapshot struct {
	Requests  int64   `json:"requests"`
	Errors    int64   `json:"errors"`
	Fallbacks int64   `json:"fallbacks"`
	Tokens    int64   `json:"tokens"`
	Cost      float64 `json:"cost"`
}

// NewUsageTracker 创建用量跟踪器。
func NewUsageTracker() *UsageTracker {
	return &UsageTracker{}
}

// RecordRequest 记录一次成功调用的用量。
func (u *UsageTracker) RecordRequest(usage Usage) {
	u.requests.Add(1)
	u.tokens.Add(int64(usage.TotalTokens))
	u.costMicro.Add(int64(usage.Cost * 1e6))
}

// RecordError 记录一次失败调用。
func (u *UsageTracker) RecordError() { u.errors.Add(1) }

// RecordFallback 记录一次降级切换。
func (u *UsageTracker) RecordFallback() { u.fallbacks.Add(1) }

// Snapshot 返回当前用量快照。
func (u *UsageTracker) Snapshot() UsageSnapshot {
	return UsageSnapshot{
		Requests:  u.requests.Load(),
		Errors:    u.errors.Load(),
		Fallbacks: u.fallbacks.Load(),
		Tokens:    u.tokens.Load(),
		Cost:      float64(u.costMicro.Load()) / 1e6,
	}
}

// TokenEstimator 估算文本的 token 数，用于后端未返回用量时的兜底统计。
// 编码表延迟初始化（首次使用可能下载数据），失败时退回到按字符数估算
// （约 4 字符一个 token）。
type TokenEstimator struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewTokenEstimator 创建估算器。
func NewTokenEstimator() *TokenEstimator {
	return &TokenEstimator{}
}

// Estimate 估算 token 数。
func (t *TokenEstimator) Estimate(text string) int {
	if t == nil {
		return len(text) / 4
	}
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			t.enc = enc
		}
	})
	if t.enc == nil {
		return len(text) / 4
	}
	return len(t.enc.Encode(text, nil, nil))
}
