package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/courseflow/types"
)

func fullState() *State {
	st := NewState(types.Requirements{
		Topic:    "renewable energy",
		Duration: "4 weeks",
		Goals:    []string{"understand solar power"},
	})
	st.Artifacts = Artifacts{
		Framework: &types.TheoreticalFramework{Approach: "pbl", Score: 0.8},
		Architecture: &types.CourseArchitecture{
			Title:    "Energy Course",
			Overview: "understand solar power from first principles",
			Modules: []types.ModuleSpec{
				{ID: "m1", Title: "Solar"},
				{ID: "m2", Title: "Wind"},
			},
			Score: 0.8,
		},
		ContentModules: []types.ContentModule{
			{ModuleID: "m1", Title: "Solar", Score: 0.8},
			{ModuleID: "m2", Title: "Wind", Score: 0.8},
		},
		Assessment: &types.AssessmentStrategy{
			Components: []types.AssessmentComponent{{ModuleID: "m1", Kind: "formative"}},
			Score:      0.8,
		},
		Materials: []types.LearningMaterial{
			{Kind: types.MaterialWorksheet, ModuleID: "m1", Title: "w", Score: 0.8},
		},
	}
	return st
}

func TestEvaluate_FullArtifacts(t *testing.T) {
	m := Evaluate(fullState(), DefaultWeights())

	assert.InDelta(t, 1.0, m.Completeness, 0.001)
	assert.InDelta(t, 1.0, m.Coherence, 0.001)
	assert.InDelta(t, 1.0, m.Alignment, 0.001)
	assert.InDelta(t, 0.8, m.Innovation, 0.001)
	assert.InDelta(t, 0.8, m.Practicality, 0.001)
	assert.InDelta(t, 0.92, m.Composite, 0.001)
}

func TestEvaluate_ModuleCountMismatchHalvesCompleteness(t *testing.T) {
	st := fullState()
	st.Artifacts.ContentModules = st.Artifacts.ContentModules[:1]

	m := Evaluate(st, DefaultWeights())
	assert.InDelta(t, 0.5, m.Completeness, 0.001)
}

func TestEvaluate_UnresolvedReferencesLowerCoherence(t *testing.T) {
	st := fullState()
	st.Artifacts.Materials = append(st.Artifacts.Materials,
		types.LearningMaterial{Kind: types.MaterialGuide, ModuleID: "ghost", Title: "g"})

	m := Evaluate(st, DefaultWeights())
	// 5 处引用中 4 处可解析
	assert.InDelta(t, 0.8, m.Coherence, 0.001)
}

func TestEvaluate_UncoveredGoalsLowerAlignment(t *testing.T) {
	st := fullState()
	st.Requirements.Goals = []string{"understand solar power", "nuclear fusion mastery"}

	m := Evaluate(st, DefaultWeights())
	assert.InDelta(t, 0.5, m.Alignment, 0.001)
}

func TestEvaluate_NoGoalsMeansFullAlignment(t *testing.T) {
	st := fullState()
	st.Requirements.Goals = nil
	m := Evaluate(st, DefaultWeights())
	assert.InDelta(t, 1.0, m.Alignment, 0.001)
}

func TestEvaluate_EmptyState(t *testing.T) {
	st := NewState(types.Requirements{Topic: "t", Duration: "1 week"})
	m := Evaluate(st, DefaultWeights())
	assert.Equal(t, 0.0, m.Completeness)
	assert.Equal(t, 0.0, m.Coherence)
	assert.Less(t, m.Composite, 0.5)
}

func TestEvaluate_ZeroWeightsFallBackToDefault(t *testing.T) {
	m := Evaluate(fullState(), Weights{})
	assert.Greater(t, m.Composite, 0.0)
}

func TestEvaluate_CustomWeights(t *testing.T) {
	// 只看完整性
	m := Evaluate(fullState(), Weights{Completeness: 1})
	assert.InDelta(t, 1.0, m.Composite, 0.001)
}

func TestImprovementFeedback_TargetsWeakFactors(t *testing.T) {
	fb := improvementFeedback(QualityMetrics{
		Completeness: 0.5,
		Coherence:    0.9,
		Alignment:    0.9,
		Innovation:   0.9,
		Practicality: 0.9,
	}, 0.85)
	require.Len(t, fb, 1)
	assert.Contains(t, fb[0], "补全")

	// 全部达标时仍给出一条通用反馈
	fb = improvementFeedback(QualityMetrics{
		Completeness: 0.9, Coherence: 0.9, Alignment: 0.9, Innovation: 0.9, Practicality: 0.9,
	}, 0.85)
	require.Len(t, fb, 1)
}

func TestImprovementFeedback_UsesConfiguredThreshold(t *testing.T) {
	m := QualityMetrics{
		Completeness: 0.7, Coherence: 0.7, Alignment: 0.7,
		Innovation: 0.7, Practicality: 0.7,
	}

	// 阈值放宽到 0.6 时所有因子达标，只剩通用精修意见
	fb := improvementFeedback(m, 0.6)
	require.Len(t, fb, 1)
	assert.Contains(t, fb[0], "精修")

	// 默认阈值下五个因子全部被点名
	fb = improvementFeedback(m, 0.85)
	assert.Len(t, fb, 5)
}
