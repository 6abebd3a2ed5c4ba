package types

// MaterialKind 学习资料类型。每次 material_production 阶段按类型各产出一批。
type MaterialKind string

const (
	MaterialWorksheet MaterialKind = "worksheet"
	MaterialTemplate  MaterialKind = "template"
	MaterialGuide     MaterialKind = "guide"
	MaterialDigital   MaterialKind = "digital"
)

// AllMaterialKinds 返回固定的资料类型集合。
func AllMaterialKinds() []MaterialKind {
	return []MaterialKind{MaterialWorksheet, MaterialTemplate, MaterialGuide, MaterialDigital}
}

// TheoreticalFramework 教育理论框架，由教育理论专家产出。
type TheoreticalFramework struct {
	Approach         string            `json:"approach"`
	LearningTheories []string          `json:"learning_theories"`
	DesignPrinciples []string          `json:"design_principles"`
	CapabilityMap    map[string]string `json:"capability_map,omitempty"`
	Rationale        string            `json:"rationale,omitempty"`
	Score            float64           `json:"score"` // 角色自评质量分 [0,1]
}

// ModuleSpec 课程架构中的一个模块定义。
type ModuleSpec struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Objectives    []string `json:"objectives"`
	DurationHours int      `json:"duration_hours,omitempty"`
	Sequence      int      `json:"sequence"`
}

// CourseArchitecture 课程整体架构，由课程架构师产出。
type CourseArchitecture struct {
	Title                 string       `json:"title"`
	Overview              string       `json:"overview,omitempty"`
	Modules               []ModuleSpec `json:"modules"`
	AssessmentTouchpoints []string     `json:"assessment_touchpoints,omitempty"`
	Score                 float64      `json:"score"`
}

// Lesson 模块内的一个教学单元。
type Lesson struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Activities []string `json:"activities,omitempty"`
}

// ContentModule 一个模块的完整教学内容，与架构模块一一对应。
type ContentModule struct {
	ModuleID string   `json:"module_id"`
	Title    string   `json:"title"`
	Lessons  []Lesson `json:"lessons"`
	Scenario string   `json:"scenario,omitempty"` // 项目情境
	Score    float64  `json:"score"`
}

// AssessmentComponent 评估策略中的一个组成部分。
type AssessmentComponent struct {
	ModuleID string   `json:"module_id,omitempty"` // 关联的架构模块，空表示全程性评估
	Kind     string   `json:"kind"`                // formative / summative / portfolio ...
	Purpose  string   `json:"purpose,omitempty"`
	Criteria []string `json:"criteria,omitempty"`
}

// AssessmentStrategy 评估策略，由评估专家产出。
type AssessmentStrategy struct {
	Philosophy string                `json:"philosophy,omitempty"`
	Components []AssessmentComponent `json:"components"`
	Rubrics    []string              `json:"rubrics,omitempty"`
	Score      float64               `json:"score"`
}

// LearningMaterial 一份学习资料，由资料制作者产出。
type LearningMaterial struct {
	Kind     MaterialKind `json:"kind"`
	ModuleID string       `json:"module_id,omitempty"`
	Title    string       `json:"title"`
	Body     string       `json:"body"`
	Score    float64      `json:"score"`
}
