package specialists

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/courseflow/llm"
	"github.com/BaSui01/courseflow/types"
)

// MaterialCreator 资料制作者。
// 按资料类型为课程批量产出学习资料（工作单、模板、指南、数字资源）。
type MaterialCreator struct {
	base
}

// NewMaterialCreator 创建资料制作者。
func NewMaterialCreator(gw *llm.Gateway, logger *zap.Logger) *MaterialCreator {
	return &MaterialCreator{base: newBase(types.RoleMaterialCreator, llm.ProfileCreative, gw, logger)}
}

const materialSystemPrompt = `你是一位学习资料制作专家。根据课程内容为指定资料
类型产出可直接使用的成品资料，语言面向最终使用者（学生或教师）。`

// materialPayload 模型返回的批量资料载荷。
type materialPayload struct {
	Materials []types.LearningMaterial `json:"materials"`
}

// Execute 实现 Specialist。每次调用处理一种资料类型，类型间相互独立。
func (c *MaterialCreator) Execute(ctx context.Context, task Task) (*Result, error) {
	switch task.Type {
	case TaskProduceMaterial, TaskImprove:
	default:
		return nil, types.NewError(types.ErrValidation, "material creator: unsupported task type "+task.Type).
			WithRole(c.role)
	}
	if task.MaterialKind == "" {
		return nil, types.NewError(types.ErrValidation, "material creator: material kind required").
			WithRole(c.role)
	}
	if len(task.Modules) == 0 {
		return nil, types.NewError(types.ErrValidation, "material creator: content modules required").
			WithRole(c.role)
	}

	var outline strings.Builder
	for _, m := range task.Modules {
		fmt.Fprintf(&outline, "- %s: %s (%d lessons)\n", m.ModuleID, m.Title, len(m.Lessons))
	}

	prompt := fmt.Sprintf(`Produce learning materials of kind %q for this course.

Course topic: %s
Content modules:
%s%s
Create one material per module where that makes sense for this kind.
Respond with a JSON object:
{"materials": [{"kind": %q, "module_id": "m1", "title": "...", "body": "...",
                "score": 0.0–1.0 self-assessment}]}`,
		task.MaterialKind,
		task.Requirements.Topic,
		outline.String(),
		joinFeedback(task.Feedback),
		task.MaterialKind,
	)

	var payload materialPayload
	raw, err := c.generateJSON(ctx, materialSystemPrompt, prompt, 0.8, task.TraceID, &payload)
	if err != nil {
		return nil, err
	}
	if len(payload.Materials) == 0 {
		return nil, types.NewError(types.ErrGeneration, "no materials produced for kind "+string(task.MaterialKind)).
			WithRole(c.role).WithRawOutput(raw)
	}
	for i := range payload.Materials {
		payload.Materials[i].Kind = task.MaterialKind // 类型以任务为准
		payload.Materials[i].Score = clampScore(payload.Materials[i].Score)
	}

	return &Result{Materials: payload.Materials, Raw: raw}, nil
}
