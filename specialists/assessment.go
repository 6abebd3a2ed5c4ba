package specialists

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/courseflow/llm"
	"github.com/BaSui01/courseflow/types"
)

// AssessmentExpert 评估专家。
// 基于课程架构与已产出的内容设计评估策略与评分量规。
type AssessmentExpert struct {
	base
}

// NewAssessmentExpert 创建评估专家。
func NewAssessmentExpert(gw *llm.Gateway, logger *zap.Logger) *AssessmentExpert {
	return &AssessmentExpert{base: newBase(types.RoleAssessmentExpert, llm.ProfileStructured, gw, logger)}
}

const assessmentSystemPrompt = `你是一位评估设计专家，专精项目式学习的过程性与
终结性评估。设计与模块一一对应的评估组件和可操作的评分量规，
确保评估与学习目标对齐。`

// Execute 实现 Specialist。
func (e *AssessmentExpert) Execute(ctx context.Context, task Task) (*Result, error) {
	switch task.Type {
	case TaskDesignStrategy, TaskImprove:
	default:
		return nil, types.NewError(types.ErrValidation, "assessment expert: unsupported task type "+task.Type).
			WithRole(e.role)
	}
	if task.Architecture == nil {
		return nil, types.NewError(types.ErrValidation, "assessment expert: course architecture required").
			WithRole(e.role)
	}

	var modules strings.Builder
	for _, m := range task.Architecture.Modules {
		fmt.Fprintf(&modules, "- %s: %s\n", m.ID, m.Title)
	}

	prompt := fmt.Sprintf(`Design the assessment strategy for this course.

Course: %s
Modules:
%s
Content modules produced so far: %d%s

Every per-module assessment component must reference one of the module ids above.
Respond with a JSON object:
{"philosophy": "...",
 "components": [{"module_id": "m1", "kind": "formative", "purpose": "...",
                 "criteria": ["..."]}],
 "rubrics": ["..."],
 "score": 0.0–1.0 self-assessment}`,
		task.Architecture.Title,
		modules.String(),
		len(task.Modules),
		joinFeedback(task.Feedback),
	)

	var st types.AssessmentStrategy
	raw, err := e.generateJSON(ctx, assessmentSystemPrompt, prompt, 0.4, task.TraceID, &st)
	if err != nil {
		return nil, err
	}
	if len(st.Components) == 0 {
		return nil, types.NewError(types.ErrGeneration, "assessment strategy has no components").
			WithRole(e.role).WithRawOutput(raw)
	}
	st.Score = clampScore(st.Score)

	return &Result{Assessment: &st, Raw: raw}, nil
}
