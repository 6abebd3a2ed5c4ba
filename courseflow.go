// Package courseflow provides a top-level convenience entry point for
// building a curriculum-design orchestrator with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/courseflow"
//
//	o, err := courseflow.New(courseflow.WithOpenAI("gpt-4o"))
//	o, err := courseflow.New(courseflow.WithBackend("local", "http://127.0.0.1:8080/v1", "qwen-max"))
//
// 生产部署请使用 config 包加载完整配置后手工装配；
// 本包只覆盖"一个后端、默认参数"的快捷场景。
package courseflow

import (
	"os"

	"go.uber.org/zap"

	"github.com/BaSui01/courseflow/llm"
	"github.com/BaSui01/courseflow/llm/providers/openai"
	"github.com/BaSui01/courseflow/specialists"
	"github.com/BaSui01/courseflow/types"
	"github.com/BaSui01/courseflow/workflow"
)

var errNoBackend = types.NewError(types.ErrValidation,
	"no generation backend configured: use WithOpenAI, WithBackend or WithProvider")

type builder struct {
	provider llm.Provider
	model    string
	cfg      workflow.Config
	logger   *zap.Logger
}

// Option configures the orchestrator created by [New].
type Option func(*builder)

// WithOpenAI creates an OpenAI backend for the given model.
// API key is read from OPENAI_API_KEY.
func WithOpenAI(model string) Option {
	return func(b *builder) {
		b.provider = openai.New(openai.Config{
			Name:   "openai",
			APIKey: os.Getenv("OPENAI_API_KEY"),
		}, b.logger)
		b.model = model
	}
}

// WithBackend creates a backend for any OpenAI-compatible endpoint.
func WithBackend(name, baseURL, model string) Option {
	return func(b *builder) {
		b.provider = openai.New(openai.Config{
			Name:    name,
			BaseURL: baseURL,
			APIKey:  os.Getenv("OPENAI_API_KEY"),
		}, b.logger)
		b.model = model
	}
}

// WithProvider sets a pre-built generation backend.
func WithProvider(p llm.Provider, model string) Option {
	return func(b *builder) {
		b.provider = p
		b.model = model
	}
}

// WithWorkflowConfig overrides the default workflow parameters.
func WithWorkflowConfig(cfg workflow.Config) Option {
	return func(b *builder) { b.cfg = cfg }
}

// WithLogger sets a custom zap logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *builder) { b.logger = l }
}

// New creates a [workflow.Orchestrator] with minimal configuration.
// At minimum a backend must be specified via [WithOpenAI], [WithBackend],
// or [WithProvider].
func New(opts ...Option) (*workflow.Orchestrator, error) {
	b := &builder{cfg: workflow.DefaultConfig(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	if b.provider == nil {
		return nil, errNoBackend
	}

	gwCfg := llm.DefaultGatewayConfig()
	gwCfg.Default = llm.Route{Provider: b.provider.Name(), Model: b.model}

	gw := llm.NewGateway([]llm.Provider{b.provider}, gwCfg, nil, b.logger)
	registry := specialists.NewRegistry(gw, b.logger)
	return workflow.New(registry, b.cfg, workflow.WithLogger(b.logger)), nil
}
