package types

// Role 标识工作流中的一个参与方。
// 五个专家角色是封闭集合，启动时全部注册，运行期不可扩展。
type Role string

const (
	RoleEducationTheorist Role = "education_theorist" // 教育理论专家
	RoleCourseArchitect   Role = "course_architect"   // 课程架构师
	RoleContentDesigner   Role = "content_designer"   // 内容设计师
	RoleAssessmentExpert  Role = "assessment_expert"  // 评估专家
	RoleMaterialCreator   Role = "material_creator"   // 资料制作者
	RoleOrchestrator      Role = "orchestrator"       // 编排器自身
)

// AllSpecialists 返回固定的五个专家角色（不含编排器）。
func AllSpecialists() []Role {
	return []Role{
		RoleEducationTheorist,
		RoleCourseArchitect,
		RoleContentDesigner,
		RoleAssessmentExpert,
		RoleMaterialCreator,
	}
}

// IsSpecialist 判断角色是否为专家角色。
func (r Role) IsSpecialist() bool {
	switch r {
	case RoleEducationTheorist, RoleCourseArchitect, RoleContentDesigner,
		RoleAssessmentExpert, RoleMaterialCreator:
		return true
	}
	return false
}

// RoleStatus 表示角色在一次运行中的执行状态。
type RoleStatus string

const (
	StatusIdle       RoleStatus = "idle"
	StatusInProgress RoleStatus = "in_progress"
	StatusCompleted  RoleStatus = "completed"
	StatusFailed     RoleStatus = "failed"
)
