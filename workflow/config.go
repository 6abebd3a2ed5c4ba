package workflow

// Config 编排器运行参数。
// MaxIterations=0 是有意义的取值（质量门直接收尾），
// 零值区分通过 DefaultConfig 完成：未显式配置时用默认值。
type Config struct {
	// MaxIterations 质量门允许的最大迭代次数。
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`
	// QualityThreshold 综合分达到该阈值则直接收尾。
	QualityThreshold float64 `json:"quality_threshold" yaml:"quality_threshold"`
	// ConcurrencyLimit 阶段内并发子任务上限。
	ConcurrencyLimit int `json:"concurrency_limit" yaml:"concurrency_limit"`
	// Weights 质量评估五因子权重。
	Weights Weights `json:"quality_weights" yaml:"quality_weights"`
	// Evaluator 质量评估函数，nil 时使用内置启发式 Evaluate。
	Evaluator Evaluator `json:"-" yaml:"-"`
}

// DefaultConfig 返回默认运行参数。
func DefaultConfig() Config {
	return Config{
		MaxIterations:    3,
		QualityThreshold: 0.85,
		ConcurrencyLimit: 4,
		Weights:          DefaultWeights(),
	}
}

// normalized 填补未设置的字段。MaxIterations 为负视为未设置。
func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.MaxIterations < 0 {
		c.MaxIterations = def.MaxIterations
	}
	if c.QualityThreshold <= 0 {
		c.QualityThreshold = def.QualityThreshold
	}
	if c.ConcurrencyLimit <= 0 {
		c.ConcurrencyLimit = def.ConcurrencyLimit
	}
	if c.Weights.sum() <= 0 {
		c.Weights = def.Weights
	}
	if c.Evaluator == nil {
		c.Evaluator = Evaluate
	}
	return c
}
