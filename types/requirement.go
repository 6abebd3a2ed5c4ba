package types

import (
	"strconv"
	"strings"
)

// Requirements 是调用方提交的课程设计需求，Initialize 之后不可变。
type Requirements struct {
	Topic    string         `json:"topic"`
	Audience string         `json:"audience,omitempty"`
	Duration string         `json:"duration"` // 例如 "4 weeks"
	Goals    []string       `json:"goals,omitempty"`
	Context  map[string]any `json:"context,omitempty"`
}

// Validate 校验需求是否可用于启动一次运行。
// 非法输入返回 VALIDATION 错误，立即失败，不重试。
func (r Requirements) Validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return NewError(ErrValidation, "requirements: topic is required")
	}
	if strings.TrimSpace(r.Duration) == "" {
		return NewError(ErrValidation, "requirements: duration is required")
	}
	for i, g := range r.Goals {
		if strings.TrimSpace(g) == "" {
			return NewError(ErrValidation, "requirements: goal "+strconv.Itoa(i)+" is empty")
		}
	}
	return nil
}
