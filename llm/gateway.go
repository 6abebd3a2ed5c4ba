package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/courseflow/internal/metrics"
	"github.com/BaSui01/courseflow/llm/retry"
	"github.com/BaSui01/courseflow/types"
)

// TaskProfile 按任务特征选择后端的画像。
type TaskProfile string

const (
	ProfileReasoning  TaskProfile = "reasoning"         // 推理密集型任务
	ProfileStructured TaskProfile = "structured_output" // 结构化输出任务
	ProfileCreative   TaskProfile = "creative"          // 内容创作任务
	ProfileFast       TaskProfile = "fast"              // 低延迟优先任务
)

// Route 一个画像对应的主/备后端配置。
type Route struct {
	Provider      string `json:"provider" yaml:"provider"`
	Model         string `json:"model" yaml:"model"`
	Fallback      string `json:"fallback,omitempty" yaml:"fallback"`
	FallbackModel string `json:"fallback_model,omitempty" yaml:"fallback_model"`
}

// GatewayConfig 网关配置。
type GatewayConfig struct {
	// Profiles 画像到主/备后端的映射，缺失的画像使用 Default
	Profiles map[TaskProfile]Route `json:"profiles" yaml:"profiles"`
	// Default 未命中画像时使用的路由
	Default Route `json:"default" yaml:"default"`
	// CallTimeout 单次后端调用超时
	CallTimeout time.Duration `json:"call_timeout" yaml:"call_timeout"`
	// MaxAttempts 一次 Generate 允许的总尝试次数（含降级），上限约束
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`
	// RatePerSecond 每个 Provider 的限流速率，0 表示不限流
	RatePerSecond float64 `json:"rate_per_second" yaml:"rate_per_second"`
	// RetryPolicy 同后端重试策略，nil 使用默认
	RetryPolicy *retry.Policy `json:"-" yaml:"-"`
}

// DefaultGatewayConfig 返回默认网关配置。
func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		Profiles:    map[TaskProfile]Route{},
		CallTimeout: 120 * time.Second,
		MaxAttempts: 3,
	}
}

// GenerateRequest 上层发起的一次生成请求。
type GenerateRequest struct {
	Profile     TaskProfile `json:"profile"`
	System      string      `json:"system,omitempty"`
	Prompt      string      `json:"prompt"`
	Temperature float32     `json:"temperature,omitempty"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
	TraceID     string      `json:"trace_id,omitempty"`
}

// GenerateResult 网关返回的生成结果。
type GenerateResult struct {
	Content  string        `json:"content"`
	Provider string        `json:"provider"`
	Model    string        `json:"model"`
	Usage    Usage         `json:"usage"`
	Latency  time.Duration `json:"latency"`
}

// Gateway 生成后端网关。
// 多个会话的运行共享同一个网关实例；除用量计数器外不持有运行级状态。
type Gateway struct {
	providers map[string]Provider
	cfg       GatewayConfig
	limiters  map[string]*rate.Limiter
	usage     *UsageTracker
	estimator *TokenEstimator
	collector *metrics.Collector
	logger    *zap.Logger
}

// NewGateway 创建网关。providers 以 Name 为键注册。
func NewGateway(providers []Provider, cfg GatewayConfig, collector *metrics.Collector, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 120 * time.Second
	}
	if cfg.MaxAttempts <= 0 || cfg.MaxAttempts > 3 {
		cfg.MaxAttempts = 3
	}

	pm := make(map[string]Provider, len(providers))
	limiters := make(map[string]*rate.Limiter, len(providers))
	for _, p := range providers {
		pm[p.Name()] = p
		if cfg.RatePerSecond > 0 {
			limiters[p.Name()] = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
		}
	}

	return &Gateway{
		providers: pm,
		cfg:       cfg,
		limiters:  limiters,
		usage:     NewUsageTracker(),
		estimator: NewTokenEstimator(),
		collector: collector,
		logger:    logger.With(zap.String("component", "llm_gateway")),
	}
}

// Usage 返回跨运行共享的用量快照。
func (g *Gateway) Usage() UsageSnapshot { return g.usage.Snapshot() }

// route 返回画像对应的路由。
func (g *Gateway) route(profile TaskProfile) Route {
	if r, ok := g.cfg.Profiles[profile]; ok {
		return r
	}
	return g.cfg.Default
}

// Generate 执行一次生成调用。
//
// 尝试预算为 MaxAttempts（≤3）：配置了备用后端时，主后端占用
// MaxAttempts-1 次（初次 + 退避重试），备用后端占用最后 1 次；
// 未配置备用后端时主后端用满全部预算。预算耗尽后返回类型化错误。
func (g *Gateway) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	route := g.route(req.Profile)
	primary, ok := g.providers[route.Provider]
	if !ok {
		return nil, types.NewError(types.ErrUpstreamError, "no provider registered for route "+route.Provider)
	}

	primaryBudget := g.cfg.MaxAttempts
	var fallback Provider
	if route.Fallback != "" {
		if fb, ok := g.providers[route.Fallback]; ok && route.Fallback != route.Provider {
			fallback = fb
			primaryBudget = g.cfg.MaxAttempts - 1
		}
	}

	policy := g.cfg.RetryPolicy
	if policy == nil {
		policy = retry.DefaultPolicy()
	}
	// 预算换算为重试次数；不可重试的错误由策略直接放行
	p := *policy
	p.MaxRetries = primaryBudget - 1
	p.Retryable = func(err error) bool { return types.IsRetryable(err) }
	retryer := retry.NewBackoffRetryer(&p, g.logger)

	var result *GenerateResult
	err := retryer.Do(ctx, func() error {
		var callErr error
		result, callErr = g.callOnce(ctx, primary, route.Model, req)
		return callErr
	})
	if err == nil {
		return result, nil
	}

	if fallback == nil {
		return nil, g.exhausted(route, err)
	}

	g.logger.Warn("primary backend exhausted, switching to fallback",
		zap.String("primary", route.Provider),
		zap.String("fallback", route.Fallback),
		zap.Error(err),
	)
	g.usage.RecordFallback()
	g.collector.RecordFallback(route.Provider)

	model := route.FallbackModel
	if model == "" {
		model = route.Model
	}
	result, fbErr := g.callOnce(ctx, fallback, model, req)
	if fbErr != nil {
		return nil, g.exhausted(route, fbErr)
	}
	return result, nil
}

// callOnce 执行单次后端调用：限流、超时、空结果校验、用量统计。
func (g *Gateway) callOnce(ctx context.Context, provider Provider, model string, req *GenerateRequest) (*GenerateResult, error) {
	if lim, ok := g.limiters[provider.Name()]; ok {
		if err := lim.Wait(ctx); err != nil {
			return nil, types.NewError(types.ErrCancelled, "rate limiter wait interrupted").WithCause(err)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
	defer cancel()

	messages := make([]Message, 0, 2)
	if req.System != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: req.System})
	}
	messages = append(messages, Message{Role: RoleUser, Content: req.Prompt})

	start := time.Now()
	resp, err := provider.Completion(callCtx, &ChatRequest{
		TraceID:     req.TraceID,
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Timeout:     g.cfg.CallTimeout,
	})
	latency := time.Since(start)

	if err != nil {
		g.usage.RecordError()
		g.collector.RecordGenerate(provider.Name(), "error", latency, 0, 0)
		if callCtx.Err() == context.DeadlineExceeded {
			return nil, types.NewError(types.ErrUpstreamTimeout, "backend call timed out").
				WithCause(err).WithRetryable(true)
		}
		if ctx.Err() != nil {
			return nil, types.NewError(types.ErrCancelled, "generate cancelled").WithCause(ctx.Err())
		}
		var terr *types.Error
		if errors.As(err, &terr) {
			return nil, terr
		}
		return nil, types.NewError(types.ErrUpstreamError, "backend call failed").
			WithCause(err).WithRetryable(true)
	}

	if strings.TrimSpace(resp.Content) == "" {
		g.usage.RecordError()
		g.collector.RecordGenerate(provider.Name(), "empty", latency, 0, 0)
		return nil, types.NewError(types.ErrEmptyCompletion, "backend returned empty completion").
			WithRetryable(true)
	}

	usage := resp.Usage
	if usage.TotalTokens == 0 {
		usage.TotalTokens = g.estimator.Estimate(req.System + req.Prompt + resp.Content)
	}
	g.usage.RecordRequest(usage)
	g.collector.RecordGenerate(provider.Name(), "ok", latency, usage.TotalTokens, usage.Cost)

	g.logger.Debug("generate completed",
		zap.String("provider", provider.Name()),
		zap.String("model", model),
		zap.Duration("latency", latency),
		zap.Int("tokens", usage.TotalTokens),
	)

	return &GenerateResult{
		Content:  resp.Content,
		Provider: provider.Name(),
		Model:    model,
		Usage:    usage,
		Latency:  latency,
	}, nil
}

func (g *Gateway) exhausted(route Route, cause error) error {
	// 取消优先于上游错误上报
	if types.IsCode(cause, types.ErrCancelled) {
		return cause
	}
	return types.NewError(types.ErrUpstreamError, "all backends exhausted for route "+route.Provider).
		WithCause(cause)
}
