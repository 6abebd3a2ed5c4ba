package types

import "fmt"

// Phase 表示课程设计工作流的一个阶段。
type Phase string

const (
	PhaseInitialization        Phase = "initialization"
	PhaseTheoreticalFoundation Phase = "theoretical_foundation"
	PhaseArchitectureDesign    Phase = "architecture_design"
	PhaseContentCreation       Phase = "content_creation"
	PhaseAssessmentDesign      Phase = "assessment_design"
	PhaseMaterialProduction    Phase = "material_production"
	PhaseReviewIteration       Phase = "review_iteration"
	PhaseFinalization          Phase = "finalization"
	PhaseTerminated            Phase = "terminated"
)

// validPhaseTransitions 定义阶段图中合法的转换边。
// 唯一的分支点在 material_production：质量门决定迭代还是收尾。
// review_iteration -> architecture_design 构成有界循环。
var validPhaseTransitions = map[Phase][]Phase{
	PhaseInitialization:        {PhaseTheoreticalFoundation},
	PhaseTheoreticalFoundation: {PhaseArchitectureDesign},
	PhaseArchitectureDesign:    {PhaseContentCreation},
	PhaseContentCreation:       {PhaseAssessmentDesign},
	PhaseAssessmentDesign:      {PhaseMaterialProduction},
	PhaseMaterialProduction:    {PhaseReviewIteration, PhaseFinalization},
	PhaseReviewIteration:       {PhaseArchitectureDesign},
	PhaseFinalization:          {PhaseTerminated},
}

// CanTransition 检查阶段转换是否合法。
func CanTransition(from, to Phase) bool {
	// 初始进入 initialization 阶段
	if from == "" {
		return to == PhaseInitialization
	}
	for _, p := range validPhaseTransitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// PhaseSuccessor 返回阶段的无条件后继。
// material_production 没有无条件后继（由质量门决定），返回 ok=false。
func PhaseSuccessor(p Phase) (Phase, bool) {
	next, ok := validPhaseTransitions[p]
	if !ok || len(next) != 1 {
		return "", false
	}
	return next[0], true
}

// ErrInvalidPhaseTransition 非法阶段转换错误，属于编排 bug，始终致命。
type ErrInvalidPhaseTransition struct {
	From Phase
	To   Phase
}

func (e ErrInvalidPhaseTransition) Error() string {
	return fmt.Sprintf("invalid phase transition: %s -> %s", e.From, e.To)
}
