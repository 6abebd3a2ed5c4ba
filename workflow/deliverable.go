package workflow

import (
	"time"

	"github.com/BaSui01/courseflow/llm"
	"github.com/BaSui01/courseflow/types"
)

// Deliverable 一次成功运行的最终交付物，收尾阶段从工件槽汇编而成。
type Deliverable struct {
	SessionID    string                     `json:"session_id"`
	Requirements types.Requirements         `json:"requirements"`
	Framework    types.TheoreticalFramework `json:"theoretical_framework"`
	Architecture types.CourseArchitecture   `json:"course_architecture"`
	Modules      []types.ContentModule      `json:"content_modules"`
	Assessment   types.AssessmentStrategy   `json:"assessment_strategy"`
	Materials    []types.LearningMaterial   `json:"learning_materials"`
	Metrics      QualityMetrics             `json:"quality_metrics"`
	Iterations   int                        `json:"iterations"`
	Usage        llm.UsageSnapshot          `json:"usage"`
	CompiledAt   time.Time                  `json:"compiled_at"`
}
