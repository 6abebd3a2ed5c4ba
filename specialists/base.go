package specialists

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/courseflow/llm"
	"github.com/BaSui01/courseflow/types"
)

// base 五个角色共享的公共实现：提示词组装、网关调用、JSON 解析。
type base struct {
	role    types.Role
	profile llm.TaskProfile
	gateway *llm.Gateway
	logger  *zap.Logger
}

func newBase(role types.Role, profile llm.TaskProfile, gw *llm.Gateway, logger *zap.Logger) base {
	return base{
		role:    role,
		profile: profile,
		gateway: gw,
		logger:  logger.With(zap.String("role", string(role))),
	}
}

func (b *base) Role() types.Role { return b.role }

// generate 调用网关并返回原始输出。
// 网关层已经处理了同后端重试与降级；这里只负责把耗尽后的失败包装为
// 携带角色标识的 GENERATION 错误。
func (b *base) generate(ctx context.Context, system, prompt string, temperature float32, traceID string) (string, error) {
	res, err := b.gateway.Generate(ctx, &llm.GenerateRequest{
		Profile:     b.profile,
		System:      system,
		Prompt:      prompt,
		Temperature: temperature,
		TraceID:     traceID,
	})
	if err != nil {
		if types.IsCode(err, types.ErrCancelled) {
			return "", err
		}
		return "", types.NewError(types.ErrGeneration, "backend exhausted for role").
			WithRole(b.role).WithCause(err)
	}
	return res.Content, nil
}

// generateJSON 调用网关并把输出解析到 out。
//
// 首次输出无法解析时，带着更严格的指令重试一次（沿用网关的选择与降级
// 策略）；仍然无效则返回携带最后一次原始输出的 GENERATION 错误。
func (b *base) generateJSON(ctx context.Context, system, prompt string, temperature float32, traceID string, out any) (string, error) {
	raw, err := b.generate(ctx, system, prompt, temperature, traceID)
	if err != nil {
		return "", err
	}

	if err := decodeJSONPayload(raw, out); err == nil {
		return raw, nil
	}

	b.logger.Warn("malformed structured output, retrying with strict instructions",
		zap.String("trace_id", traceID))

	strict := prompt + "\n\nIMPORTANT: the previous response was not valid JSON. " +
		"Respond ONLY with a valid JSON object matching the requested structure. " +
		"No markdown, no explanations, just the JSON object."
	raw, err = b.generate(ctx, system, strict, 0.1, traceID)
	if err != nil {
		return "", err
	}
	if err := decodeJSONPayload(raw, out); err != nil {
		return "", types.NewError(types.ErrGeneration, "malformed structured output after retry").
			WithRole(b.role).WithRawOutput(raw).WithCause(err)
	}
	return raw, nil
}

// decodeJSONPayload 从模型输出中提取并解析 JSON。
// 兼容 ```json 围栏与夹杂说明文字的输出。
func decodeJSONPayload(raw string, out any) error {
	s := raw
	if i := strings.Index(s, "```json"); i >= 0 {
		s = s[i+len("```json"):]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	} else if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	s = strings.TrimSpace(s)
	if start := strings.IndexAny(s, "{["); start > 0 {
		s = s[start:]
	}
	return json.Unmarshal([]byte(s), out)
}

// clampScore 把角色自评分规整到 [0,1]，缺省给中等分。
func clampScore(s float64) float64 {
	switch {
	case s <= 0:
		return 0.75
	case s > 1:
		return 1
	default:
		return s
	}
}

// joinGoals 把目标列表渲染进提示词。
func joinGoals(goals []string) string {
	if len(goals) == 0 {
		return "(none specified)"
	}
	return "- " + strings.Join(goals, "\n- ")
}

// joinFeedback 渲染迭代反馈。
func joinFeedback(feedback []string) string {
	if len(feedback) == 0 {
		return ""
	}
	return "\n\nRevision feedback from the previous iteration, address every point:\n- " +
		strings.Join(feedback, "\n- ")
}
