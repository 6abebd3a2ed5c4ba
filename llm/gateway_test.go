package llm_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/courseflow/llm"
	"github.com/BaSui01/courseflow/llm/retry"
	"github.com/BaSui01/courseflow/testutil"
	"github.com/BaSui01/courseflow/testutil/mocks"
	"github.com/BaSui01/courseflow/types"
)

func fastGatewayConfig(primary, fallback string) llm.GatewayConfig {
	cfg := llm.DefaultGatewayConfig()
	cfg.Default = llm.Route{Provider: primary, Model: "test-model", Fallback: fallback, FallbackModel: "fb-model"}
	cfg.CallTimeout = 5 * time.Second
	cfg.RetryPolicy = &retry.Policy{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
	return cfg
}

func TestGateway_Generate_Success(t *testing.T) {
	provider := mocks.NewMockProvider("primary").WithResponse("hello course")
	gw := llm.NewGateway([]llm.Provider{provider}, fastGatewayConfig("primary", ""), nil, zaptest.NewLogger(t))

	res, err := gw.Generate(testutil.TestContext(t), &llm.GenerateRequest{
		Profile: llm.ProfileReasoning,
		System:  "system prompt",
		Prompt:  "user prompt",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello course", res.Content)
	assert.Equal(t, "primary", res.Provider)
	assert.Equal(t, "test-model", res.Model)
	assert.Equal(t, 1, provider.CallCount())

	usage := gw.Usage()
	assert.EqualValues(t, 1, usage.Requests)
	assert.EqualValues(t, 30, usage.Tokens)
}

func TestGateway_Generate_RetriesTransientThenSucceeds(t *testing.T) {
	// 没有降级后端时主后端可用满全部 3 次预算
	provider := mocks.NewMockProvider("primary").
		WithResponse("recovered").
		WithFailFirst(2, errors.New("connection reset"))
	gw := llm.NewGateway([]llm.Provider{provider}, fastGatewayConfig("primary", ""), nil, zaptest.NewLogger(t))

	res, err := gw.Generate(testutil.TestContext(t), &llm.GenerateRequest{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "recovered", res.Content)
	assert.Equal(t, 3, provider.CallCount())
	assert.EqualValues(t, 2, gw.Usage().Errors)
}

func TestGateway_Generate_PrimaryExhaustedWithoutFallback(t *testing.T) {
	provider := mocks.NewMockProvider("primary").WithError(errors.New("503"))
	gw := llm.NewGateway([]llm.Provider{provider}, fastGatewayConfig("primary", ""), nil, zaptest.NewLogger(t))

	_, err := gw.Generate(testutil.TestContext(t), &llm.GenerateRequest{Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, types.ErrUpstreamError, types.GetErrorCode(err))
	// 总尝试预算为 3
	assert.Equal(t, 3, provider.CallCount())
}

func TestGateway_Generate_FallbackAfterPrimaryBudget(t *testing.T) {
	primary := mocks.NewMockProvider("primary").WithError(errors.New("down"))
	fallback := mocks.NewMockProvider("backup").WithResponse("from backup")
	gw := llm.NewGateway([]llm.Provider{primary, fallback},
		fastGatewayConfig("primary", "backup"), nil, zaptest.NewLogger(t))

	res, err := gw.Generate(testutil.TestContext(t), &llm.GenerateRequest{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "from backup", res.Content)
	assert.Equal(t, "backup", res.Provider)
	assert.Equal(t, "fb-model", res.Model)
	// 主后端 2 次 + 备用 1 次，总尝试不超过 3
	assert.Equal(t, 2, primary.CallCount())
	assert.Equal(t, 1, fallback.CallCount())
	assert.EqualValues(t, 1, gw.Usage().Fallbacks)
}

func TestGateway_Generate_BothBackendsExhausted(t *testing.T) {
	primary := mocks.NewMockProvider("primary").WithError(errors.New("down"))
	fallback := mocks.NewMockProvider("backup").WithError(errors.New("also down"))
	gw := llm.NewGateway([]llm.Provider{primary, fallback},
		fastGatewayConfig("primary", "backup"), nil, zaptest.NewLogger(t))

	_, err := gw.Generate(testutil.TestContext(t), &llm.GenerateRequest{Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, types.ErrUpstreamError, types.GetErrorCode(err))
	assert.Equal(t, 2, primary.CallCount())
	assert.Equal(t, 1, fallback.CallCount())
}

func TestGateway_Generate_NonRetryableSkipsPrimaryRetries(t *testing.T) {
	// 主后端返回不可重试的类型化错误，立即切到备用
	primary := mocks.NewMockProvider("primary").
		WithError(types.NewError(types.ErrRateLimited, "quota exceeded").WithRetryable(false))
	fallback := mocks.NewMockProvider("backup").WithResponse("ok")
	gw := llm.NewGateway([]llm.Provider{primary, fallback},
		fastGatewayConfig("primary", "backup"), nil, zaptest.NewLogger(t))

	res, err := gw.Generate(testutil.TestContext(t), &llm.GenerateRequest{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Content)
	assert.Equal(t, 1, primary.CallCount())
}

func TestGateway_Generate_EmptyCompletionRetried(t *testing.T) {
	provider := mocks.NewMockProvider("primary").WithResponse("   ")
	gw := llm.NewGateway([]llm.Provider{provider}, fastGatewayConfig("primary", ""), nil, zaptest.NewLogger(t))

	_, err := gw.Generate(testutil.TestContext(t), &llm.GenerateRequest{Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, 3, provider.CallCount())
	assert.Equal(t, types.ErrUpstreamError, types.GetErrorCode(err))
	// 耗尽错误链中保留空补全原因
	assert.Contains(t, err.Error(), "empty completion")
}

func TestGateway_Generate_CancellationPreserved(t *testing.T) {
	provider := mocks.NewMockProvider("primary").WithDelay(50 * time.Millisecond)
	gw := llm.NewGateway([]llm.Provider{provider}, fastGatewayConfig("primary", ""), nil, zaptest.NewLogger(t))

	_, err := gw.Generate(testutil.CancelledContext(), &llm.GenerateRequest{Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, types.ErrCancelled, types.GetErrorCode(err))
	// 取消不触发重试
	assert.Equal(t, 1, provider.CallCount())
}

func TestGateway_Generate_UnknownProvider(t *testing.T) {
	gw := llm.NewGateway(nil, fastGatewayConfig("ghost", ""), nil, zaptest.NewLogger(t))
	_, err := gw.Generate(testutil.TestContext(t), &llm.GenerateRequest{Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, types.ErrUpstreamError, types.GetErrorCode(err))
}

func TestGateway_ProfileRouting(t *testing.T) {
	reasoning := mocks.NewMockProvider("reasoning-backend").WithResponse("deep thought")
	fast := mocks.NewMockProvider("fast-backend").WithResponse("quick answer")

	cfg := fastGatewayConfig("fast-backend", "")
	cfg.Profiles = map[llm.TaskProfile]llm.Route{
		llm.ProfileReasoning: {Provider: "reasoning-backend", Model: "big-model"},
	}
	gw := llm.NewGateway([]llm.Provider{reasoning, fast}, cfg, nil, zaptest.NewLogger(t))

	res, err := gw.Generate(testutil.TestContext(t), &llm.GenerateRequest{
		Profile: llm.ProfileReasoning, Prompt: "p",
	})
	require.NoError(t, err)
	assert.Equal(t, "reasoning-backend", res.Provider)

	// 未命中画像走默认路由
	res, err = gw.Generate(testutil.TestContext(t), &llm.GenerateRequest{
		Profile: llm.ProfileCreative, Prompt: "p",
	})
	require.NoError(t, err)
	assert.Equal(t, "fast-backend", res.Provider)
}

func TestTokenEstimator_FallbackEstimate(t *testing.T) {
	var e *llm.TokenEstimator
	// nil 估算器退回字符数估算
	assert.Equal(t, 5, e.Estimate("12345678901234567890"))
}
