package config

import (
	"time"

	"github.com/BaSui01/courseflow/workflow"
)

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		LLM: LLMConfig{
			Backends: []BackendConfig{
				{
					Name:    "openai",
					BaseURL: "https://api.openai.com/v1",
					Timeout: 120 * time.Second,
				},
			},
			Default: RouteConfig{
				Provider: "openai",
				Model:    "gpt-4o",
			},
			Profiles: map[string]RouteConfig{
				"reasoning":         {Provider: "openai", Model: "gpt-4o"},
				"structured_output": {Provider: "openai", Model: "gpt-4o"},
				"creative":          {Provider: "openai", Model: "gpt-4o"},
				"fast":              {Provider: "openai", Model: "gpt-4o-mini"},
			},
			CallTimeout: 120 * time.Second,
			MaxAttempts: 3,
		},
		Workflow: WorkflowConfig{
			MaxIterations:    3,
			QualityThreshold: 0.85,
			ConcurrencyLimit: 4,
			Weights:          workflow.DefaultWeights(),
		},
		Redis: RedisConfig{
			Addr:          "localhost:6379",
			CheckpointTTL: 24 * time.Hour,
		},
		Metrics: MetricsConfig{
			Listen: ":9108",
		},
	}
}
