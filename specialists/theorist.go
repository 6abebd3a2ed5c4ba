package specialists

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/courseflow/llm"
	"github.com/BaSui01/courseflow/types"
)

// Theorist 教育理论专家。
// 分析课程需求，产出教学理论框架，确保核心能力培养目标有效覆盖。
type Theorist struct {
	base
}

// NewTheorist 创建教育理论专家。
func NewTheorist(gw *llm.Gateway, logger *zap.Logger) *Theorist {
	return &Theorist{base: newBase(types.RoleEducationTheorist, llm.ProfileReasoning, gw, logger)}
}

const theoristSystemPrompt = `你是一位专精项目式学习（PBL）的资深教育理论专家。
根据课程需求选择合适的学习理论（建构主义、体验式学习、社会学习等），
设计完整的教学理论框架，并把能力培养目标映射到具体的设计原则上。
Always reference established educational theories; be specific, actionable
and evidence-based.`

// Execute 实现 Specialist。
func (t *Theorist) Execute(ctx context.Context, task Task) (*Result, error) {
	switch task.Type {
	case TaskAnalyzeRequirements, TaskImprove:
	default:
		return nil, types.NewError(types.ErrValidation, "theorist: unsupported task type "+task.Type).
			WithRole(t.role)
	}

	prompt := fmt.Sprintf(`Design a theoretical framework for the following course.

Topic: %s
Audience: %s
Duration: %s
Learning goals:
%s%s

Respond with a JSON object:
{"approach": "...", "learning_theories": ["..."], "design_principles": ["..."],
 "capability_map": {"capability": "how it is developed"},
 "rationale": "...", "score": 0.0–1.0 self-assessment of framework quality}`,
		task.Requirements.Topic,
		task.Requirements.Audience,
		task.Requirements.Duration,
		joinGoals(task.Requirements.Goals),
		joinFeedback(task.Feedback),
	)

	var fw types.TheoreticalFramework
	raw, err := t.generateJSON(ctx, theoristSystemPrompt, prompt, 0.7, task.TraceID, &fw)
	if err != nil {
		return nil, err
	}
	if fw.Approach == "" || len(fw.LearningTheories) == 0 {
		return nil, types.NewError(types.ErrGeneration, "framework missing approach or theories").
			WithRole(t.role).WithRawOutput(raw)
	}
	fw.Score = clampScore(fw.Score)

	return &Result{Framework: &fw, Raw: raw}, nil
}
