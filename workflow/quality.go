package workflow

import (
	"strings"
	"time"
)

// Weights 质量评估五因子权重，归一化后加权求和得到综合分。
type Weights struct {
	Completeness float64 `json:"completeness" yaml:"completeness"`
	Coherence    float64 `json:"coherence" yaml:"coherence"`
	Alignment    float64 `json:"alignment" yaml:"alignment"`
	Innovation   float64 `json:"innovation" yaml:"innovation"`
	Practicality float64 `json:"practicality" yaml:"practicality"`
}

// DefaultWeights 五因子等权。
func DefaultWeights() Weights {
	return Weights{
		Completeness: 0.2,
		Coherence:    0.2,
		Alignment:    0.2,
		Innovation:   0.2,
		Practicality: 0.2,
	}
}

func (w Weights) sum() float64 {
	return w.Completeness + w.Coherence + w.Alignment + w.Innovation + w.Practicality
}

// QualityMetrics 一次质量门评估的结果。
type QualityMetrics struct {
	Completeness float64   `json:"completeness"`
	Coherence    float64   `json:"coherence"`
	Alignment    float64   `json:"alignment"`
	Innovation   float64   `json:"innovation"`
	Practicality float64   `json:"practicality"`
	Composite    float64   `json:"composite"`
	Iteration    int       `json:"iteration"`
	EvaluatedAt  time.Time `json:"evaluated_at"`
}

// Evaluator 质量评估函数。可替换以便注入外部评审逻辑。
type Evaluator func(s *State, w Weights) QualityMetrics

// Evaluate 默认的启发式评估器：从工件槽本身计算五因子。
// 权重为零和时退化为等权，保证综合分始终有定义。
func Evaluate(s *State, w Weights) QualityMetrics {
	if w.sum() <= 0 {
		w = DefaultWeights()
	}
	m := QualityMetrics{
		Completeness: scoreCompleteness(s),
		Coherence:    scoreCoherence(s),
		Alignment:    scoreAlignment(s),
		Innovation:   scoreInnovation(s),
		Practicality: scorePracticality(s),
		Iteration:    s.IterationCount,
		EvaluatedAt:  time.Now(),
	}
	m.Composite = (m.Completeness*w.Completeness +
		m.Coherence*w.Coherence +
		m.Alignment*w.Alignment +
		m.Innovation*w.Innovation +
		m.Practicality*w.Practicality) / w.sum()
	return m
}

// scoreCompleteness 五个工件槽的填充率；内容模块数与架构模块数不一致时折半。
func scoreCompleteness(s *State) float64 {
	a := s.Artifacts
	filled := 0
	if a.Framework != nil {
		filled++
	}
	if a.Architecture != nil && len(a.Architecture.Modules) > 0 {
		filled++
	}
	if len(a.ContentModules) > 0 {
		filled++
	}
	if a.Assessment != nil && len(a.Assessment.Components) > 0 {
		filled++
	}
	if len(a.Materials) > 0 {
		filled++
	}
	score := float64(filled) / 5
	if a.Architecture != nil && len(a.ContentModules) > 0 &&
		len(a.ContentModules) != len(a.Architecture.Modules) {
		score *= 0.5
	}
	return score
}

// scoreCoherence 内容、评估、资料中的模块引用在架构中可解析的比例。
func scoreCoherence(s *State) float64 {
	a := s.Artifacts
	if a.Architecture == nil || len(a.Architecture.Modules) == 0 {
		return 0
	}
	known := make(map[string]bool, len(a.Architecture.Modules))
	for _, m := range a.Architecture.Modules {
		known[m.ID] = true
	}
	refs, resolved := 0, 0
	for _, cm := range a.ContentModules {
		refs++
		if known[cm.ModuleID] {
			resolved++
		}
	}
	if a.Assessment != nil {
		for _, c := range a.Assessment.Components {
			if c.ModuleID == "" {
				continue // 全程性评估不绑定模块
			}
			refs++
			if known[c.ModuleID] {
				resolved++
			}
		}
	}
	for _, mat := range a.Materials {
		if mat.ModuleID == "" {
			continue
		}
		refs++
		if known[mat.ModuleID] {
			resolved++
		}
	}
	if refs == 0 {
		return 0.5 // 无任何引用说明衔接信息缺失
	}
	return float64(resolved) / float64(refs)
}

// scoreAlignment 需求目标在架构模块目标与内容文本中被覆盖的比例。
func scoreAlignment(s *State) float64 {
	goals := s.Requirements.Goals
	if len(goals) == 0 {
		return 1
	}
	var corpus strings.Builder
	if s.Artifacts.Architecture != nil {
		corpus.WriteString(s.Artifacts.Architecture.Overview)
		for _, m := range s.Artifacts.Architecture.Modules {
			corpus.WriteString(" " + m.Title)
			for _, o := range m.Objectives {
				corpus.WriteString(" " + o)
			}
		}
	}
	for _, cm := range s.Artifacts.ContentModules {
		corpus.WriteString(" " + cm.Title)
		for _, l := range cm.Lessons {
			corpus.WriteString(" " + l.Title + " " + l.Content)
		}
	}
	text := strings.ToLower(corpus.String())
	covered := 0
	for _, g := range goals {
		if goalCovered(text, g) {
			covered++
		}
	}
	return float64(covered) / float64(len(goals))
}

// goalCovered 目标的任一关键词出现在语料中即视为覆盖。
func goalCovered(text, goal string) bool {
	for _, word := range strings.Fields(strings.ToLower(goal)) {
		if len(word) < 3 {
			continue
		}
		if strings.Contains(text, word) {
			return true
		}
	}
	return strings.Contains(text, strings.ToLower(goal))
}

// scoreInnovation 框架与内容模块自评分的均值。
func scoreInnovation(s *State) float64 {
	var sum float64
	var n int
	if s.Artifacts.Framework != nil {
		sum += s.Artifacts.Framework.Score
		n++
	}
	for _, cm := range s.Artifacts.ContentModules {
		sum += cm.Score
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// scorePracticality 资料与评估策略自评分的均值。
func scorePracticality(s *State) float64 {
	var sum float64
	var n int
	for _, m := range s.Artifacts.Materials {
		sum += m.Score
		n++
	}
	if s.Artifacts.Assessment != nil {
		sum += s.Artifacts.Assessment.Score
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// improvementFeedback 按低于质量阈值的因子生成给下一轮迭代的改进反馈。
func improvementFeedback(m QualityMetrics, threshold float64) []string {
	var fb []string
	if m.Completeness < threshold {
		fb = append(fb, "补全缺失的课程工件，确保每个架构模块都有对应的教学内容")
	}
	if m.Coherence < threshold {
		fb = append(fb, "修正内容、评估与资料中无法解析的模块引用，保持前后衔接一致")
	}
	if m.Alignment < threshold {
		fb = append(fb, "在模块目标与课程内容中显式覆盖尚未回应的学习目标")
	}
	if m.Innovation < threshold {
		fb = append(fb, "加强项目式情境设计，提升理论框架与内容的创新性")
	}
	if m.Practicality < threshold {
		fb = append(fb, "细化学习资料与评估标准，使其可直接落地课堂")
	}
	if len(fb) == 0 {
		fb = append(fb, "整体质量接近阈值，针对综合分最低的环节做一轮精修")
	}
	return fb
}
