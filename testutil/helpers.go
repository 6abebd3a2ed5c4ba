package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/BaSui01/courseflow/types"
)

// TestContext 返回带超时的测试上下文。
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestContextWithTimeout 返回带自定义超时的测试上下文。
func TestContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// CancelledContext 返回已取消的上下文。
func CancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// SampleRequirements 返回一份有效的课程需求样例。
func SampleRequirements() types.Requirements {
	return types.Requirements{
		Topic:    "人工智能启蒙",
		Audience: "初中一年级学生",
		Duration: "8 weeks",
		Goals:    []string{"理解人工智能基本概念", "完成一个图像分类小项目", "培养批判性思维"},
		Context:  map[string]any{"facilities": "学校有计算机教室", "schedule": "每周两课时"},
	}
}
