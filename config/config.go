// Package config 统一配置加载，支持 YAML 文件 + 环境变量覆盖。
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("courseflow.yaml").
//	    WithEnvPrefix("COURSEFLOW").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/courseflow/llm"
	"github.com/BaSui01/courseflow/workflow"
)

// Config 是 courseflow 的完整配置结构。
type Config struct {
	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`
	// LLM 生成后端配置
	LLM LLMConfig `yaml:"llm" env:"LLM"`
	// Workflow 编排器运行参数
	Workflow WorkflowConfig `yaml:"workflow" env:"WORKFLOW"`
	// Redis 检查点存储配置
	Redis RedisConfig `yaml:"redis" env:"REDIS"`
	// Metrics 指标暴露配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`
}

// LogConfig 日志配置。
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 是否记录调用位置
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
}

// BackendConfig 一个 OpenAI 兼容后端的接入配置。
type BackendConfig struct {
	// Name 后端标识，路由中以此引用
	Name string `yaml:"name" env:"NAME"`
	// BaseURL API 根地址
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// APIKey 访问密钥
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// Timeout HTTP 客户端超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// RouteConfig 画像到主/备后端的路由配置。
type RouteConfig struct {
	Provider      string `yaml:"provider" env:"PROVIDER"`
	Model         string `yaml:"model" env:"MODEL"`
	Fallback      string `yaml:"fallback" env:"FALLBACK"`
	FallbackModel string `yaml:"fallback_model" env:"FALLBACK_MODEL"`
}

// LLMConfig 生成后端网关配置。
type LLMConfig struct {
	// Backends 注册的后端列表
	Backends []BackendConfig `yaml:"backends" env:"-"`
	// Default 未命中画像时的路由
	Default RouteConfig `yaml:"default" env:"DEFAULT"`
	// Profiles 画像路由表，键为 reasoning/structured_output/creative/fast
	Profiles map[string]RouteConfig `yaml:"profiles" env:"-"`
	// CallTimeout 单次后端调用超时
	CallTimeout time.Duration `yaml:"call_timeout" env:"CALL_TIMEOUT"`
	// MaxAttempts 一次生成的总尝试预算（含降级）
	MaxAttempts int `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	// RatePerSecond 每后端限流速率，0 不限流
	RatePerSecond float64 `yaml:"rate_per_second" env:"RATE_PER_SECOND"`
}

// WorkflowConfig 编排器运行参数。
type WorkflowConfig struct {
	// MaxIterations 质量门最大迭代次数
	MaxIterations int `yaml:"max_iterations" env:"MAX_ITERATIONS"`
	// QualityThreshold 收尾综合分阈值
	QualityThreshold float64 `yaml:"quality_threshold" env:"QUALITY_THRESHOLD"`
	// ConcurrencyLimit 阶段内并发上限
	ConcurrencyLimit int `yaml:"concurrency_limit" env:"CONCURRENCY_LIMIT"`
	// Weights 质量五因子权重
	Weights workflow.Weights `yaml:"quality_weights" env:"-"`
}

// RedisConfig 检查点共享存储配置。未启用时使用进程内存储。
type RedisConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 检查点保留时长，0 不过期
	CheckpointTTL time.Duration `yaml:"checkpoint_ttl" env:"CHECKPOINT_TTL"`
}

// MetricsConfig 指标暴露配置。
type MetricsConfig struct {
	// 是否启用 /metrics 端点
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 监听地址
	Listen string `yaml:"listen" env:"LISTEN"`
}

// GatewayConfig 把 LLM 配置映射为网关配置。
func (c *LLMConfig) GatewayConfig() llm.GatewayConfig {
	gc := llm.DefaultGatewayConfig()
	gc.Default = routeOf(c.Default)
	for name, r := range c.Profiles {
		gc.Profiles[llm.TaskProfile(name)] = routeOf(r)
	}
	if c.CallTimeout > 0 {
		gc.CallTimeout = c.CallTimeout
	}
	if c.MaxAttempts > 0 {
		gc.MaxAttempts = c.MaxAttempts
	}
	gc.RatePerSecond = c.RatePerSecond
	return gc
}

func routeOf(r RouteConfig) llm.Route {
	return llm.Route{
		Provider:      r.Provider,
		Model:         r.Model,
		Fallback:      r.Fallback,
		FallbackModel: r.FallbackModel,
	}
}

// WorkflowConfig 把编排配置映射为运行参数。
func (c *WorkflowConfig) WorkflowConfig() workflow.Config {
	wc := workflow.DefaultConfig()
	if c.MaxIterations >= 0 {
		wc.MaxIterations = c.MaxIterations
	}
	if c.QualityThreshold > 0 {
		wc.QualityThreshold = c.QualityThreshold
	}
	if c.ConcurrencyLimit > 0 {
		wc.ConcurrencyLimit = c.ConcurrencyLimit
	}
	if c.Weights != (workflow.Weights{}) {
		wc.Weights = c.Weights
	}
	return wc
}

// Validate 验证配置。
func (c *Config) Validate() error {
	var errs []string

	if len(c.LLM.Backends) == 0 {
		errs = append(errs, "at least one llm backend is required")
	}
	names := make(map[string]bool, len(c.LLM.Backends))
	for _, b := range c.LLM.Backends {
		if b.Name == "" {
			errs = append(errs, "llm backend name must not be empty")
			continue
		}
		if names[b.Name] {
			errs = append(errs, "duplicate llm backend name: "+b.Name)
		}
		names[b.Name] = true
	}
	if c.LLM.Default.Provider != "" && !names[c.LLM.Default.Provider] {
		errs = append(errs, "default route references unknown backend: "+c.LLM.Default.Provider)
	}
	for profile, r := range c.LLM.Profiles {
		if !names[r.Provider] {
			errs = append(errs, fmt.Sprintf("profile %s references unknown backend: %s", profile, r.Provider))
		}
		if r.Fallback != "" && !names[r.Fallback] {
			errs = append(errs, fmt.Sprintf("profile %s fallback references unknown backend: %s", profile, r.Fallback))
		}
	}

	if c.Workflow.MaxIterations < 0 {
		errs = append(errs, "max_iterations must not be negative")
	}
	if c.Workflow.QualityThreshold < 0 || c.Workflow.QualityThreshold > 1 {
		errs = append(errs, "quality_threshold must be within [0,1]")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
