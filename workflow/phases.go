package workflow

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/courseflow/specialists"
	"github.com/BaSui01/courseflow/types"
)

// 阶段处理器。每个处理器在独占持有状态的前提下执行：
// 读取上游工件槽 -> 派发角色任务 -> 写入本阶段工件槽。
// 阶段内并发只发生在内容创作与资料制作的扇出中。

// subStep 扇出子任务完成时的进度回调，由编排器注入，nil 表示不上报。
// 回调可能被并发调用，注入方负责串行化。
type subStep func(step string, done, total int, artifact any)

func (o *Orchestrator) runInitialization(_ context.Context, st *State) error {
	if err := st.Requirements.Validate(); err != nil {
		return err
	}
	st.AppendMessages(types.NewBroadcast(types.RoleOrchestrator, map[string]any{
		"event":    "course_design_started",
		"topic":    st.Requirements.Topic,
		"audience": st.Requirements.Audience,
	}))
	for _, r := range types.AllSpecialists() {
		st.SetRoleStatus(r, types.StatusIdle)
	}
	return nil
}

func (o *Orchestrator) runTheory(ctx context.Context, st *State, feedback []string) error {
	res, err := o.dispatch(ctx, st, types.RoleEducationTheorist, specialists.Task{
		Type:         specialists.TaskAnalyzeRequirements,
		Requirements: st.Requirements,
		Feedback:     feedback,
		Iteration:    st.IterationCount,
		TraceID:      st.SessionID,
	})
	if err != nil {
		return err
	}
	st.Artifacts.Framework = res.Framework
	return nil
}

func (o *Orchestrator) runArchitecture(ctx context.Context, st *State, feedback []string) error {
	if st.Artifacts.Framework == nil {
		return missingArtifact(st, "theoretical framework")
	}
	res, err := o.dispatch(ctx, st, types.RoleCourseArchitect, specialists.Task{
		Type:         specialists.TaskDesignStructure,
		Requirements: st.Requirements,
		Framework:    st.Artifacts.Framework,
		Feedback:     feedback,
		Iteration:    st.IterationCount,
		TraceID:      st.SessionID,
	})
	if err != nil {
		return err
	}
	st.Artifacts.Architecture = res.Arch
	return nil
}

// runContent 为每个架构模块并发派发内容创作，结果按模块顺序落位。
// 每个子任务完成后通过 emit 上报一次进度。
func (o *Orchestrator) runContent(ctx context.Context, st *State, feedback []string, cfg Config, emit subStep) error {
	arch := st.Artifacts.Architecture
	if arch == nil || len(arch.Modules) == 0 {
		return missingArtifact(st, "course architecture")
	}
	designer, _ := o.registry.Get(types.RoleContentDesigner)

	st.SetRoleStatus(types.RoleContentDesigner, types.StatusInProgress)
	results := make([]types.ContentModule, len(arch.Modules))
	var done atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.ConcurrencyLimit)
	for i := range arch.Modules {
		i := i
		mod := arch.Modules[i]
		g.Go(func() error {
			task := specialists.Task{
				Type:         specialists.TaskCreateContent,
				Requirements: st.Requirements,
				Framework:    st.Artifacts.Framework,
				Architecture: arch,
				Module:       &mod,
				Feedback:     feedback,
				Iteration:    st.IterationCount,
				TraceID:      st.SessionID,
			}
			res, err := o.call(gctx, st, designer, task, map[string]any{"module_id": mod.ID})
			if err != nil {
				return err
			}
			results[i] = *res.Content
			if emit != nil {
				emit("module_content_completed", int(done.Add(1)), len(arch.Modules), res.Content)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		st.SetRoleStatus(types.RoleContentDesigner, types.StatusFailed)
		return err
	}
	st.SetRoleStatus(types.RoleContentDesigner, types.StatusCompleted)
	st.Artifacts.ContentModules = results
	return nil
}

func (o *Orchestrator) runAssessment(ctx context.Context, st *State, feedback []string) error {
	if st.Artifacts.Architecture == nil {
		return missingArtifact(st, "course architecture")
	}
	res, err := o.dispatch(ctx, st, types.RoleAssessmentExpert, specialists.Task{
		Type:         specialists.TaskDesignStrategy,
		Requirements: st.Requirements,
		Framework:    st.Artifacts.Framework,
		Architecture: st.Artifacts.Architecture,
		Modules:      st.Artifacts.ContentModules,
		Feedback:     feedback,
		Iteration:    st.IterationCount,
		TraceID:      st.SessionID,
	})
	if err != nil {
		return err
	}
	st.Artifacts.Assessment = res.Assessment
	return nil
}

// runMaterial 按资料类型并发派发制作，产出按固定类型顺序合并。
// 每批资料完成后通过 emit 上报一次进度。
func (o *Orchestrator) runMaterial(ctx context.Context, st *State, feedback []string, cfg Config, emit subStep) error {
	if len(st.Artifacts.ContentModules) == 0 {
		return missingArtifact(st, "content modules")
	}
	creator, _ := o.registry.Get(types.RoleMaterialCreator)
	kinds := types.AllMaterialKinds()

	st.SetRoleStatus(types.RoleMaterialCreator, types.StatusInProgress)
	batches := make([][]types.LearningMaterial, len(kinds))
	var done atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.ConcurrencyLimit)
	for i, kind := range kinds {
		i, kind := i, kind
		g.Go(func() error {
			task := specialists.Task{
				Type:         specialists.TaskProduceMaterial,
				Requirements: st.Requirements,
				Architecture: st.Artifacts.Architecture,
				Modules:      st.Artifacts.ContentModules,
				MaterialKind: kind,
				Feedback:     feedback,
				Iteration:    st.IterationCount,
				TraceID:      st.SessionID,
			}
			res, err := o.call(gctx, st, creator, task, map[string]any{"material_kind": string(kind)})
			if err != nil {
				return err
			}
			batches[i] = res.Materials
			if emit != nil {
				emit("material_batch_completed", int(done.Add(1)), len(kinds), res.Materials)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		st.SetRoleStatus(types.RoleMaterialCreator, types.StatusFailed)
		return err
	}
	st.SetRoleStatus(types.RoleMaterialCreator, types.StatusCompleted)
	var all []types.LearningMaterial
	for _, b := range batches {
		all = append(all, b...)
	}
	st.Artifacts.Materials = all
	return nil
}

// runReview 递增迭代计数，向相关角色广播改进反馈，并清空待重算的工件槽。
// 返回带给下一轮 architecture_design 的反馈列表。
func (o *Orchestrator) runReview(_ context.Context, st *State, metrics QualityMetrics, threshold float64) []string {
	st.IterationCount++
	feedback := improvementFeedback(metrics, threshold)

	st.AppendMessages(types.NewBroadcast(types.RoleOrchestrator, map[string]any{
		"event":     "review_iteration",
		"iteration": st.IterationCount,
		"composite": metrics.Composite,
		"feedback":  feedback,
	}))
	st.ClearRecomputedSlots()
	for _, r := range []types.Role{
		types.RoleCourseArchitect,
		types.RoleContentDesigner,
		types.RoleAssessmentExpert,
		types.RoleMaterialCreator,
	} {
		st.SetRoleStatus(r, types.StatusIdle)
	}
	return feedback
}

// runFinalization 汇编最终交付物。所有工件槽此时必须完整。
func (o *Orchestrator) runFinalization(_ context.Context, st *State, metrics QualityMetrics) (*Deliverable, error) {
	a := st.Artifacts
	if a.Framework == nil || a.Architecture == nil || len(a.ContentModules) == 0 ||
		a.Assessment == nil || len(a.Materials) == 0 {
		return nil, missingArtifact(st, "complete artifact set")
	}
	d := &Deliverable{
		SessionID:    st.SessionID,
		Requirements: st.Requirements,
		Framework:    *a.Framework,
		Architecture: *a.Architecture,
		Modules:      a.ContentModules,
		Assessment:   *a.Assessment,
		Materials:    a.Materials,
		Metrics:      metrics,
		Iterations:   st.IterationCount,
		Usage:        o.registry.Usage(),
		CompiledAt:   time.Now(),
	}
	st.AppendMessages(types.NewBroadcast(types.RoleOrchestrator, map[string]any{
		"event":     "course_design_completed",
		"composite": metrics.Composite,
		"modules":   len(d.Modules),
		"materials": len(d.Materials),
	}))
	return d, nil
}

// dispatch 派发单角色任务：维护角色状态并成对记录请求/响应消息。
func (o *Orchestrator) dispatch(ctx context.Context, st *State, role types.Role, task specialists.Task) (*specialists.Result, error) {
	sp, ok := o.registry.Get(role)
	if !ok {
		return nil, types.NewError(types.ErrDependencyMissing, "specialist not registered").
			WithRole(role).WithPhase(st.Phase)
	}
	st.SetRoleStatus(role, types.StatusInProgress)
	res, err := o.call(ctx, st, sp, task, nil)
	if err != nil {
		st.SetRoleStatus(role, types.StatusFailed)
		return nil, err
	}
	st.SetRoleStatus(role, types.StatusCompleted)
	return res, nil
}

// call 执行一次角色任务并把请求/响应消息对原子追加到日志。
// 失败时记录错误消息，供诊断与回放。
func (o *Orchestrator) call(ctx context.Context, st *State, sp specialists.Specialist, task specialists.Task, extra map[string]any) (*specialists.Result, error) {
	payload := map[string]any{"task": task.Type, "iteration": task.Iteration}
	for k, v := range extra {
		payload[k] = v
	}
	req := types.NewRequest(types.RoleOrchestrator, sp.Role(), payload)

	started := time.Now()
	res, err := sp.Execute(ctx, task)
	if err != nil {
		o.logger.Warn("specialist task failed",
			zap.String("role", string(sp.Role())),
			zap.String("phase", string(st.Phase)),
			zap.String("task", task.Type),
			zap.Error(err))
		st.AppendMessages(req, types.Message{
			ID:        req.ID + ":err",
			Sender:    sp.Role(),
			Recipient: types.RoleOrchestrator,
			Type:      types.MessageError,
			Payload:   map[string]any{"error": err.Error()},
			ParentID:  req.ID,
			Timestamp: time.Now(),
		})
		return nil, err
	}
	resp := types.NewResponse(sp.Role(), types.RoleOrchestrator, req.ID, map[string]any{
		"task":       task.Type,
		"elapsed_ms": time.Since(started).Milliseconds(),
	})
	st.AppendMessages(req, resp)
	return res, nil
}

func missingArtifact(st *State, what string) error {
	return types.NewError(types.ErrDependencyMissing, "required artifact missing: "+what).
		WithPhase(st.Phase)
}
