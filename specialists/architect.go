package specialists

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/BaSui01/courseflow/llm"
	"github.com/BaSui01/courseflow/types"
)

// Architect 课程架构师。
// 基于理论框架设计课程整体结构：模块划分、学习路径、评估节点。
type Architect struct {
	base
}

// NewArchitect 创建课程架构师。
func NewArchitect(gw *llm.Gateway, logger *zap.Logger) *Architect {
	return &Architect{base: newBase(types.RoleCourseArchitect, llm.ProfileStructured, gw, logger)}
}

const architectSystemPrompt = `你是一位资深课程架构师，擅长把教学理论框架转化为
结构清晰的课程架构：模块划分合理、学习路径递进、评估节点与模块对应。
Respond with precise, structured output that downstream designers can build on.`

// Execute 实现 Specialist。
func (a *Architect) Execute(ctx context.Context, task Task) (*Result, error) {
	switch task.Type {
	case TaskDesignStructure, TaskImprove:
	default:
		return nil, types.NewError(types.ErrValidation, "architect: unsupported task type "+task.Type).
			WithRole(a.role)
	}
	if task.Framework == nil {
		return nil, types.NewError(types.ErrValidation, "architect: theoretical framework required").
			WithRole(a.role)
	}

	prompt := fmt.Sprintf(`Design the course architecture.

Topic: %s
Duration: %s
Pedagogical approach: %s
Design principles:
%s%s

Respond with a JSON object:
{"title": "...", "overview": "...",
 "modules": [{"id": "m1", "title": "...", "objectives": ["..."],
              "duration_hours": 0, "sequence": 1}],
 "assessment_touchpoints": ["..."],
 "score": 0.0–1.0 self-assessment}`,
		task.Requirements.Topic,
		task.Requirements.Duration,
		task.Framework.Approach,
		joinGoals(task.Framework.DesignPrinciples),
		joinFeedback(task.Feedback),
	)

	var arch types.CourseArchitecture
	raw, err := a.generateJSON(ctx, architectSystemPrompt, prompt, 0.5, task.TraceID, &arch)
	if err != nil {
		return nil, err
	}
	if len(arch.Modules) == 0 {
		return nil, types.NewError(types.ErrGeneration, "architecture has no modules").
			WithRole(a.role).WithRawOutput(raw)
	}
	// 补齐缺失的模块 ID 与顺序，保持下游引用稳定
	for i := range arch.Modules {
		if arch.Modules[i].ID == "" {
			arch.Modules[i].ID = "m" + strconv.Itoa(i+1)
		}
		if arch.Modules[i].Sequence == 0 {
			arch.Modules[i].Sequence = i + 1
		}
	}
	arch.Score = clampScore(arch.Score)

	return &Result{Arch: &arch, Raw: raw}, nil
}
