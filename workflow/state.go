package workflow

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BaSui01/courseflow/types"
)

// Artifacts 工作流状态中的命名工件槽。
// 每个槽在一次阶段访问中恰好写一次，循环回退时允许整体覆盖。
type Artifacts struct {
	Framework      *types.TheoreticalFramework `json:"theoretical_framework,omitempty"`
	Architecture   *types.CourseArchitecture   `json:"course_architecture,omitempty"`
	ContentModules []types.ContentModule       `json:"content_modules,omitempty"`
	Assessment     *types.AssessmentStrategy   `json:"assessment_strategy,omitempty"`
	Materials      []types.LearningMaterial    `json:"learning_materials,omitempty"`
}

// State 是一次运行的共享可变状态。
// 整个生命周期内由编排器独占持有：只有编排器与它当前正在执行的阶段
// 处理器可以写入。阶段内并发子任务只通过 AppendMessages 写消息日志。
type State struct {
	SessionID      string                          `json:"session_id"`
	Requirements   types.Requirements              `json:"requirements"`
	Phase          types.Phase                     `json:"phase"`
	PhaseHistory   []types.Phase                   `json:"phase_history"`
	IterationCount int                             `json:"iteration_count"`
	MessageLog     []types.Message                 `json:"message_log"`
	Artifacts      Artifacts                       `json:"artifacts"`
	RoleStatus     map[types.Role]types.RoleStatus `json:"role_status"`
	Metrics        *QualityMetrics                 `json:"quality_metrics,omitempty"`
	QualityHistory []QualityMetrics                `json:"quality_history,omitempty"`
	Checkpoints    []Checkpoint                    `json:"checkpoints"`
	CreatedAt      time.Time                       `json:"created_at"`
	UpdatedAt      time.Time                       `json:"updated_at"`

	mu sync.Mutex // 保护并发子任务期间的消息日志追加
}

// NewState 创建一次运行的初始状态。
func NewState(req types.Requirements) *State {
	now := time.Now()
	status := make(map[types.Role]types.RoleStatus, 6)
	for _, r := range types.AllSpecialists() {
		status[r] = types.StatusIdle
	}
	return &State{
		SessionID:    uuid.New().String(),
		Requirements: req,
		RoleStatus:   status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// TransitionPhase 推进到新阶段，强制校验阶段图的合法边。
// 非法转换意味着编排 bug，返回 DEPENDENCY_MISSING 级别的致命错误。
func (s *State) TransitionPhase(to types.Phase) error {
	if !types.CanTransition(s.Phase, to) {
		return types.NewError(types.ErrDependencyMissing, "orchestration bug").
			WithPhase(s.Phase).
			WithCause(types.ErrInvalidPhaseTransition{From: s.Phase, To: to})
	}
	if s.Phase != "" {
		s.PhaseHistory = append(s.PhaseHistory, s.Phase)
	}
	s.Phase = to
	s.UpdatedAt = time.Now()
	return nil
}

// AppendMessages 原子地把一条或多条消息追加到日志。
// 消息日志只追加不修改；同一子任务的请求/响应对一起传入以保持连续。
func (s *State) AppendMessages(msgs ...types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MessageLog = append(s.MessageLog, msgs...)
	s.UpdatedAt = time.Now()
}

// MessageCount 返回当前消息日志长度。
func (s *State) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.MessageLog)
}

// SetRoleStatus 更新角色状态。
func (s *State) SetRoleStatus(role types.Role, status types.RoleStatus) {
	s.RoleStatus[role] = status
	s.UpdatedAt = time.Now()
}

// ClearRecomputedSlots 清空循环回退后需要重算的工件槽。
// 理论框架在迭代间保留，循环只回到 architecture_design。
func (s *State) ClearRecomputedSlots() {
	s.Artifacts.Architecture = nil
	s.Artifacts.ContentModules = nil
	s.Artifacts.Assessment = nil
	s.Artifacts.Materials = nil
	s.UpdatedAt = time.Now()
}

// Snapshot 捕获当前状态的不可变快照。
func (s *State) Snapshot() Checkpoint {
	s.mu.Lock()
	messageCount := len(s.MessageLog)
	s.mu.Unlock()

	cp := Checkpoint{
		ID:             uuid.New().String(),
		SessionID:      s.SessionID,
		Seq:            len(s.Checkpoints) + 1,
		Phase:          s.Phase,
		IterationCount: s.IterationCount,
		Artifacts:      s.Artifacts.clone(),
		MessageCount:   messageCount,
		CreatedAt:      time.Now(),
	}
	if s.Metrics != nil {
		m := *s.Metrics
		cp.Metrics = &m
	}
	return cp
}

// clone 深拷贝工件槽，保证快照不随后续状态变更而改变。
func (a Artifacts) clone() Artifacts {
	out := Artifacts{}
	if a.Framework != nil {
		fw := *a.Framework
		fw.LearningTheories = append([]string(nil), a.Framework.LearningTheories...)
		fw.DesignPrinciples = append([]string(nil), a.Framework.DesignPrinciples...)
		if a.Framework.CapabilityMap != nil {
			fw.CapabilityMap = make(map[string]string, len(a.Framework.CapabilityMap))
			for k, v := range a.Framework.CapabilityMap {
				fw.CapabilityMap[k] = v
			}
		}
		out.Framework = &fw
	}
	if a.Architecture != nil {
		arch := *a.Architecture
		arch.Modules = make([]types.ModuleSpec, len(a.Architecture.Modules))
		for i, m := range a.Architecture.Modules {
			m.Objectives = append([]string(nil), m.Objectives...)
			arch.Modules[i] = m
		}
		arch.AssessmentTouchpoints = append([]string(nil), a.Architecture.AssessmentTouchpoints...)
		out.Architecture = &arch
	}
	if a.ContentModules != nil {
		out.ContentModules = make([]types.ContentModule, len(a.ContentModules))
		for i, cm := range a.ContentModules {
			lessons := make([]types.Lesson, len(cm.Lessons))
			for j, l := range cm.Lessons {
				l.Activities = append([]string(nil), l.Activities...)
				lessons[j] = l
			}
			cm.Lessons = lessons
			out.ContentModules[i] = cm
		}
	}
	if a.Assessment != nil {
		st := *a.Assessment
		st.Components = make([]types.AssessmentComponent, len(a.Assessment.Components))
		for i, c := range a.Assessment.Components {
			c.Criteria = append([]string(nil), c.Criteria...)
			st.Components[i] = c
		}
		st.Rubrics = append([]string(nil), a.Assessment.Rubrics...)
		out.Assessment = &st
	}
	if a.Materials != nil {
		out.Materials = append([]types.LearningMaterial(nil), a.Materials...)
	}
	return out
}
