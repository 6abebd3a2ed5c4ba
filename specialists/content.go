package specialists

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/courseflow/llm"
	"github.com/BaSui01/courseflow/types"
)

// ContentDesigner 内容设计师。
// 为单个架构模块产出完整教学内容：单元、活动与项目情境。
type ContentDesigner struct {
	base
}

// NewContentDesigner 创建内容设计师。
func NewContentDesigner(gw *llm.Gateway, logger *zap.Logger) *ContentDesigner {
	return &ContentDesigner{base: newBase(types.RoleContentDesigner, llm.ProfileCreative, gw, logger)}
}

const contentSystemPrompt = `你是一位富有创造力的学习内容设计师，专精项目式学习情境
设计。为指定模块产出可直接施教的单元内容、学习活动与真实项目情境，
与模块目标严格对齐。`

// Execute 实现 Specialist。每次调用处理一个模块，模块间相互独立。
func (d *ContentDesigner) Execute(ctx context.Context, task Task) (*Result, error) {
	switch task.Type {
	case TaskCreateContent, TaskImprove:
	default:
		return nil, types.NewError(types.ErrValidation, "content designer: unsupported task type "+task.Type).
			WithRole(d.role)
	}
	if task.Module == nil {
		return nil, types.NewError(types.ErrValidation, "content designer: module spec required").
			WithRole(d.role)
	}

	prompt := fmt.Sprintf(`Create the learning content for one course module.

Course topic: %s
Module: %s — %s
Module objectives:
%s%s

Respond with a JSON object:
{"module_id": %q, "title": "...",
 "lessons": [{"title": "...", "content": "...", "activities": ["..."]}],
 "scenario": "an authentic project scenario for this module",
 "score": 0.0–1.0 self-assessment}`,
		task.Requirements.Topic,
		task.Module.ID, task.Module.Title,
		joinGoals(task.Module.Objectives),
		joinFeedback(task.Feedback),
		task.Module.ID,
	)

	var cm types.ContentModule
	raw, err := d.generateJSON(ctx, contentSystemPrompt, prompt, 0.8, task.TraceID, &cm)
	if err != nil {
		return nil, err
	}
	if len(cm.Lessons) == 0 {
		return nil, types.NewError(types.ErrGeneration, "content module has no lessons").
			WithRole(d.role).WithRawOutput(raw)
	}
	cm.ModuleID = task.Module.ID // 引用以架构为准，不信任模型回填
	if cm.Title == "" {
		cm.Title = task.Module.Title
	}
	cm.Score = clampScore(cm.Score)

	return &Result{Content: &cm, Raw: raw}, nil
}
