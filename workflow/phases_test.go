package workflow

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/courseflow/llm"
	"github.com/BaSui01/courseflow/llm/retry"
	"github.com/BaSui01/courseflow/specialists"
	"github.com/BaSui01/courseflow/testutil"
	"github.com/BaSui01/courseflow/testutil/mocks"
	"github.com/BaSui01/courseflow/types"
)

func phaseTestOrchestrator(t *testing.T, modules int) *Orchestrator {
	t.Helper()
	gwCfg := llm.DefaultGatewayConfig()
	gwCfg.Default = llm.Route{Provider: "mock", Model: "test-model"}
	gwCfg.RetryPolicy = &retry.Policy{
		MaxRetries:   1,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2.0,
	}
	provider := mocks.NewMockProvider("mock").
		WithCompletionFunc(testutil.CourseCompletionFunc(modules))
	logger := zaptest.NewLogger(t)
	gw := llm.NewGateway([]llm.Provider{provider}, gwCfg, nil, logger)
	return New(specialists.NewRegistry(gw, logger), Config{ConcurrencyLimit: 2}, WithLogger(logger))
}

func stateInPhase(t *testing.T, phases ...types.Phase) *State {
	t.Helper()
	st := NewState(testutil.SampleRequirements())
	for _, p := range phases {
		require.NoError(t, st.TransitionPhase(p))
	}
	return st
}

func TestRunInitialization(t *testing.T) {
	o := phaseTestOrchestrator(t, 1)
	st := stateInPhase(t, types.PhaseInitialization)

	require.NoError(t, o.runInitialization(testutil.TestContext(t), st))
	require.Equal(t, 1, st.MessageCount())
	assert.True(t, st.MessageLog[0].IsBroadcast())
	assert.Equal(t, types.RoleOrchestrator, st.MessageLog[0].Sender)
}

func TestRunArchitecture_MissingFramework(t *testing.T) {
	o := phaseTestOrchestrator(t, 1)
	st := stateInPhase(t, types.PhaseInitialization, types.PhaseTheoreticalFoundation,
		types.PhaseArchitectureDesign)

	err := o.runArchitecture(testutil.TestContext(t), st, nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrDependencyMissing, types.GetErrorCode(err))
}

func TestRunContent_FanOutKeepsModuleOrderAndMessagePairs(t *testing.T) {
	const modules = 5
	o := phaseTestOrchestrator(t, modules)
	st := stateInPhase(t, types.PhaseInitialization, types.PhaseTheoreticalFoundation,
		types.PhaseArchitectureDesign, types.PhaseContentCreation)

	st.Artifacts.Framework = &types.TheoreticalFramework{Approach: "pbl", LearningTheories: []string{"c"}}
	arch := &types.CourseArchitecture{Title: "course"}
	for i := 1; i <= modules; i++ {
		arch.Modules = append(arch.Modules, types.ModuleSpec{
			ID: "m" + string(rune('0'+i)), Title: "模块", Sequence: i,
		})
	}
	st.Artifacts.Architecture = arch

	// 每个子任务完成都回调一次，带上新产出的模块内容
	var mu sync.Mutex
	var reported []int
	emit := func(step string, done, total int, artifact any) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, "module_content_completed", step)
		assert.Equal(t, modules, total)
		assert.NotNil(t, artifact)
		reported = append(reported, done)
	}

	require.NoError(t, o.runContent(testutil.TestContext(t), st, nil, o.cfg, emit))
	assert.Len(t, reported, modules)

	// 结果按架构模块顺序落位，不受并发完成顺序影响
	require.Len(t, st.Artifacts.ContentModules, modules)
	for i, cm := range st.Artifacts.ContentModules {
		assert.Equal(t, arch.Modules[i].ID, cm.ModuleID)
	}
	assert.Equal(t, types.StatusCompleted, st.RoleStatus[types.RoleContentDesigner])

	// 并发扇出下请求/响应消息仍然成对相邻
	for i := 0; i < len(st.MessageLog); i++ {
		if st.MessageLog[i].Type != types.MessageRequest {
			continue
		}
		require.Less(t, i+1, len(st.MessageLog), "request without adjacent reply")
		assert.Equal(t, st.MessageLog[i].ID, st.MessageLog[i+1].ParentID)
	}
}

func TestRunMaterial_RequiresContent(t *testing.T) {
	o := phaseTestOrchestrator(t, 1)
	st := stateInPhase(t, types.PhaseInitialization, types.PhaseTheoreticalFoundation,
		types.PhaseArchitectureDesign, types.PhaseContentCreation,
		types.PhaseAssessmentDesign, types.PhaseMaterialProduction)

	err := o.runMaterial(testutil.TestContext(t), st, nil, o.cfg, nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrDependencyMissing, types.GetErrorCode(err))
}

func TestRunReview(t *testing.T) {
	o := phaseTestOrchestrator(t, 1)
	st := stateInPhase(t, types.PhaseInitialization, types.PhaseTheoreticalFoundation,
		types.PhaseArchitectureDesign, types.PhaseContentCreation,
		types.PhaseAssessmentDesign, types.PhaseMaterialProduction,
		types.PhaseReviewIteration)
	st.Artifacts = Artifacts{
		Framework:      &types.TheoreticalFramework{Approach: "pbl"},
		Architecture:   &types.CourseArchitecture{Title: "a"},
		ContentModules: []types.ContentModule{{ModuleID: "m1"}},
		Assessment:     &types.AssessmentStrategy{},
		Materials:      []types.LearningMaterial{{Title: "w"}},
	}

	fb := o.runReview(testutil.TestContext(t), st, QualityMetrics{Coherence: 0.4, Composite: 0.6}, 0.85)

	assert.Equal(t, 1, st.IterationCount)
	assert.NotEmpty(t, fb)
	assert.NotNil(t, st.Artifacts.Framework)
	assert.Nil(t, st.Artifacts.Architecture)
	assert.Equal(t, types.StatusIdle, st.RoleStatus[types.RoleCourseArchitect])
	// 广播了迭代反馈
	require.Equal(t, 1, st.MessageCount())
	assert.Equal(t, types.MessageBroadcast, st.MessageLog[0].Type)
}

func TestRunFinalization_RequiresCompleteArtifacts(t *testing.T) {
	o := phaseTestOrchestrator(t, 1)
	st := stateInPhase(t, types.PhaseInitialization, types.PhaseTheoreticalFoundation,
		types.PhaseArchitectureDesign, types.PhaseContentCreation,
		types.PhaseAssessmentDesign, types.PhaseMaterialProduction,
		types.PhaseFinalization)

	_, err := o.runFinalization(testutil.TestContext(t), st, QualityMetrics{})
	require.Error(t, err)
	assert.Equal(t, types.ErrDependencyMissing, types.GetErrorCode(err))
}
