package testutil

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/courseflow/llm"
)

// 高质量的角色结构化输出样例。自评分取 0.9，配合完整的模块引用，
// 让默认质量评估器在首轮就能越过收尾阈值。

// FrameworkJSON 教育理论框架样例。
const FrameworkJSON = `{
  "approach": "project_based_learning",
  "learning_theories": ["constructivism", "experiential_learning"],
  "design_principles": ["authentic tasks", "scaffolded inquiry", "reflective practice"],
  "capability_map": {"critical_thinking": "driving questions in every module"},
  "rationale": "PBL fits hands-on AI literacy for middle schoolers",
  "score": 0.9
}`

// ArchitectureJSON 返回包含 n 个模块的课程架构样例，模块 ID 为 m1..mN。
func ArchitectureJSON(n int) string {
	var modules []string
	for i := 1; i <= n; i++ {
		modules = append(modules, fmt.Sprintf(
			`{"id": "m%d", "title": "模块%d", "objectives": ["目标%d"], "duration_hours": 4, "sequence": %d}`,
			i, i, i, i))
	}
	return fmt.Sprintf(`{
  "title": "人工智能启蒙课程",
  "overview": "理解人工智能基本概念 完成一个图像分类小项目 培养批判性思维",
  "modules": [%s],
  "assessment_touchpoints": ["m1 project demo"],
  "score": 0.9
}`, strings.Join(modules, ","))
}

// ContentJSON 单个模块的教学内容样例。
const ContentJSON = `{
  "module_id": "m1",
  "title": "认识人工智能",
  "lessons": [
    {"title": "什么是智能", "content": "理解人工智能基本概念 完成一个图像分类小项目 培养批判性思维",
     "activities": ["分组讨论", "案例分析"]}
  ],
  "scenario": "为校园设计一个识别可回收垃圾的分类器",
  "score": 0.9
}`

// AssessmentJSON 评估策略样例。
const AssessmentJSON = `{
  "philosophy": "过程性评估为主，项目展示为终结性评估",
  "components": [
    {"module_id": "m1", "kind": "formative", "purpose": "检查概念理解",
     "criteria": ["概念准确", "举例恰当"]}
  ],
  "rubrics": ["项目展示量规"],
  "score": 0.9
}`

// MaterialsJSON 一种资料类型的批量产出样例。
const MaterialsJSON = `{
  "materials": [
    {"kind": "worksheet", "module_id": "m1", "title": "图像分类实验记录单",
     "body": "记录训练数据、准确率与反思", "score": 0.9}
  ]
}`

// CourseCompletionFunc 返回按提示词内容路由到对应角色样例输出的补全函数。
// 配合 mocks.MockProvider.WithCompletionFunc 使用，可驱动完整的编排运行。
func CourseCompletionFunc(modules int) func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	return func(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
		return &llm.ChatResponse{
			Content:  CourseReply(lastUserMessage(req), modules),
			Model:    req.Model,
			Provider: "mock",
			Usage:    llm.Usage{PromptTokens: 100, CompletionTokens: 200, TotalTokens: 300},
		}, nil
	}
}

// CourseReply 根据提示词选择对应的角色样例输出。
func CourseReply(prompt string, modules int) string {
	switch {
	case strings.Contains(prompt, "theoretical framework"):
		return FrameworkJSON
	case strings.Contains(prompt, "course architecture"):
		return ArchitectureJSON(modules)
	case strings.Contains(prompt, "learning content"):
		return ContentJSON
	case strings.Contains(prompt, "assessment strategy"):
		return AssessmentJSON
	case strings.Contains(prompt, "learning materials"):
		return MaterialsJSON
	default:
		return FrameworkJSON
	}
}

func lastUserMessage(req *llm.ChatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == llm.RoleUser {
			return req.Messages[i].Content
		}
	}
	return ""
}
