package specialists

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/courseflow/llm"
	"github.com/BaSui01/courseflow/types"
)

// 任务类型。与阶段处理器构造的请求一一对应。
const (
	TaskAnalyzeRequirements = "analyze_requirements"
	TaskDesignStructure     = "design_structure"
	TaskCreateContent       = "create_content"
	TaskDesignStrategy      = "design_strategy"
	TaskProduceMaterial     = "produce_material"
	TaskImprove             = "improve"
)

// Task 是发给角色的小型结构化任务记录。
// 只携带相关的状态切片而不是整个状态，以约束载荷大小。
type Task struct {
	Type         string                      `json:"type"`
	Requirements types.Requirements          `json:"requirements"`
	Framework    *types.TheoreticalFramework `json:"framework,omitempty"`
	Architecture *types.CourseArchitecture   `json:"architecture,omitempty"`
	Module       *types.ModuleSpec           `json:"module,omitempty"`
	Modules      []types.ContentModule       `json:"modules,omitempty"`
	MaterialKind types.MaterialKind          `json:"material_kind,omitempty"`
	Feedback     []string                    `json:"feedback,omitempty"`
	Iteration    int                         `json:"iteration"`
	TraceID      string                      `json:"trace_id,omitempty"`
}

// Result 一次角色执行的产物。对应角色类型的字段恰好有一个非空。
type Result struct {
	Framework  *types.TheoreticalFramework
	Arch       *types.CourseArchitecture
	Content    *types.ContentModule
	Assessment *types.AssessmentStrategy
	Materials  []types.LearningMaterial
	Raw        string // 后端原始输出，便于诊断
}

// Specialist 是五个角色变体共享的能力多态接口。
type Specialist interface {
	// Role 返回角色标识
	Role() types.Role
	// Execute 执行任务并产出工件
	Execute(ctx context.Context, task Task) (*Result, error)
}

// Registry 封闭的角色注册表，启动时构建，运行期只读。
type Registry struct {
	byRole  map[types.Role]Specialist
	gateway *llm.Gateway
}

// NewRegistry 创建注册表并注册全部五个角色。
func NewRegistry(gw *llm.Gateway, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	all := []Specialist{
		NewTheorist(gw, logger),
		NewArchitect(gw, logger),
		NewContentDesigner(gw, logger),
		NewAssessmentExpert(gw, logger),
		NewMaterialCreator(gw, logger),
	}
	byRole := make(map[types.Role]Specialist, len(all))
	for _, s := range all {
		byRole[s.Role()] = s
	}
	return &Registry{byRole: byRole, gateway: gw}
}

// Get 按角色查找。角色集合固定，查不到属于编排 bug。
func (r *Registry) Get(role types.Role) (Specialist, bool) {
	s, ok := r.byRole[role]
	return s, ok
}

// Usage 返回底层网关的累计用量快照。
func (r *Registry) Usage() llm.UsageSnapshot {
	if r == nil || r.gateway == nil {
		return llm.UsageSnapshot{}
	}
	return r.gateway.Usage()
}
