package workflow

import (
	"time"

	"github.com/BaSui01/courseflow/types"
)

// ProgressEvent 流式运行的一个进度事件。
// Err 非空表示运行以失败终止；Deliverable 非空表示运行成功完成。
// Artifact 携带本步骤新产出的工件：阶段完成事件带整个阶段产物，
// 扇出子任务事件带单个模块内容或单批资料。
type ProgressEvent struct {
	SessionID   string          `json:"session_id"`
	Phase       types.Phase     `json:"phase"`
	Step        string          `json:"step"`
	Percent     float64         `json:"percent"`
	Iteration   int             `json:"iteration"`
	Metrics     *QualityMetrics `json:"quality_metrics,omitempty"`
	Artifact    any             `json:"artifact,omitempty"`
	Deliverable *Deliverable    `json:"deliverable,omitempty"`
	Err         error           `json:"-"`
	Timestamp   time.Time       `json:"timestamp"`
}

// phaseWeights 各阶段在总进度中的占比，总和为 1。
var phaseWeights = map[types.Phase]float64{
	types.PhaseInitialization:        0.05,
	types.PhaseTheoreticalFoundation: 0.15,
	types.PhaseArchitectureDesign:    0.20,
	types.PhaseContentCreation:       0.25,
	types.PhaseAssessmentDesign:      0.15,
	types.PhaseMaterialProduction:    0.15,
	types.PhaseReviewIteration:       0.03,
	types.PhaseFinalization:          0.02,
}

// phaseOrder 线性主路径上的阶段顺序，用于累计进度。
var phaseOrder = []types.Phase{
	types.PhaseInitialization,
	types.PhaseTheoreticalFoundation,
	types.PhaseArchitectureDesign,
	types.PhaseContentCreation,
	types.PhaseAssessmentDesign,
	types.PhaseMaterialProduction,
	types.PhaseReviewIteration,
	types.PhaseFinalization,
}

// progressTracker 把阶段完成度映射为单调不减的总进度百分比。
// 循环回退会让原始进度倒退，此处用历史最大值夹紧。
type progressTracker struct {
	max float64
}

// completed 返回 phase 完成后的原始累计进度 [0,1]。
func completedProgress(phase types.Phase) float64 {
	var sum float64
	for _, p := range phaseOrder {
		sum += phaseWeights[p]
		if p == phase {
			return sum
		}
	}
	return sum
}

// percent 返回 phase 完成后的展示百分比，保证单调不减。
func (t *progressTracker) percent(phase types.Phase) float64 {
	raw := completedProgress(phase) * 100
	if phase == types.PhaseFinalization {
		raw = 100
	}
	if raw > t.max {
		t.max = raw
	}
	return t.max
}

// subPercent 返回 phase 内完成 done/total 个子任务后的插值百分比。
// 调用方负责串行化：并发扇出的发射点持同一把锁。
func (t *progressTracker) subPercent(phase types.Phase, done, total int) float64 {
	if total <= 0 {
		return t.percent(phase)
	}
	start := completedProgress(phase) - phaseWeights[phase]
	raw := (start + phaseWeights[phase]*float64(done)/float64(total)) * 100
	if raw > t.max {
		t.max = raw
	}
	return t.max
}
