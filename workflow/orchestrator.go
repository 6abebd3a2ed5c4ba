package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/courseflow/internal/metrics"
	"github.com/BaSui01/courseflow/specialists"
	"github.com/BaSui01/courseflow/types"
)

// Orchestrator 驱动八阶段课程设计工作流。
// 状态由编排器独占持有，阶段间串行推进，质量门在 material_production
// 之后决定迭代或收尾。
type Orchestrator struct {
	registry    *specialists.Registry
	cfg         Config
	sessions    SessionStore
	checkpoints CheckpointStore
	collector   *metrics.Collector
	logger      *zap.Logger
}

// Option 编排器可选配置。
type Option func(*Orchestrator)

// WithLogger 设置日志器。
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithSessionStore 设置会话存储。
func WithSessionStore(s SessionStore) Option {
	return func(o *Orchestrator) { o.sessions = s }
}

// WithCheckpointStore 设置检查点存储。
func WithCheckpointStore(s CheckpointStore) Option {
	return func(o *Orchestrator) { o.checkpoints = s }
}

// WithCollector 设置指标采集器。
func WithCollector(c *metrics.Collector) Option {
	return func(o *Orchestrator) { o.collector = c }
}

// New 创建编排器。零值配置字段按 DefaultConfig 填补。
func New(registry *specialists.Registry, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry: registry,
		cfg:      cfg.normalized(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.sessions == nil {
		o.sessions = NewMemorySessionStore()
	}
	if o.checkpoints == nil {
		o.checkpoints = NewMemoryCheckpointStore()
	}
	return o
}

// Sessions 返回会话存储，供查询运行结果。
func (o *Orchestrator) Sessions() SessionStore { return o.sessions }

// Checkpoints 返回检查点存储。
func (o *Orchestrator) Checkpoints() CheckpointStore { return o.checkpoints }

// Run 同步执行一次完整运行：内部消费进度流直到结束。
// 成功返回交付物；失败返回携带角色与阶段上下文的结构化错误。
func (o *Orchestrator) Run(ctx context.Context, req types.Requirements) (*Deliverable, error) {
	var d *Deliverable
	var runErr error
	for ev := range o.Stream(ctx, req) {
		if ev.Err != nil {
			runErr = ev.Err
		}
		if ev.Deliverable != nil {
			d = ev.Deliverable
		}
	}
	if runErr != nil {
		return nil, runErr
	}
	return d, nil
}

// Stream 启动一次运行并返回进度事件通道。
// 通道在运行结束后关闭；最后一个事件携带交付物或错误。
func (o *Orchestrator) Stream(ctx context.Context, req types.Requirements) <-chan ProgressEvent {
	st := NewState(req)
	now := time.Now()
	o.sessions.Put(Session{
		ID:           st.SessionID,
		Requirements: req,
		State:        SessionRunning,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	return o.run(ctx, st, o.cfg)
}

// CreateSession 校验需求并登记一个待启动的会话，返回会话 ID。
// 供接入层两段式交接：先建会话拿 ID，再按 ID 启动。
// cfg 非空时覆盖该会话的工作流配置。
func (o *Orchestrator) CreateSession(req types.Requirements, cfg *Config) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	id := uuid.New().String()
	now := time.Now()
	o.sessions.Put(Session{
		ID:           id,
		Requirements: req,
		Config:       cfg,
		State:        SessionPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	return id, nil
}

// StartRun 启动一个处于 pending 状态的会话并返回其进度事件流。
// 只有 CreateSession 登记且尚未启动的会话可以启动。
func (o *Orchestrator) StartRun(ctx context.Context, sessionID string) (<-chan ProgressEvent, error) {
	sess, ok := o.sessions.Get(sessionID)
	if !ok {
		return nil, types.NewError(types.ErrValidation, "unknown session: "+sessionID)
	}
	if sess.State != SessionPending {
		return nil, types.NewError(types.ErrValidation,
			"session not pending: "+string(sess.State))
	}
	st := NewState(sess.Requirements)
	st.SessionID = sessionID
	cfg := o.cfg
	if sess.Config != nil {
		cfg = sess.Config.normalized()
	}
	sess.State = SessionRunning
	o.sessions.Put(sess)
	return o.run(ctx, st, cfg), nil
}

// run 在后台执行阶段图主循环，维护会话终态并保证终止事件送达。
func (o *Orchestrator) run(ctx context.Context, st *State, cfg Config) <-chan ProgressEvent {
	ch := make(chan ProgressEvent, 16)
	go func() {
		defer close(ch)
		started := time.Now()
		d, err := o.execute(ctx, st, ch, cfg)

		sess, _ := o.sessions.Get(st.SessionID)
		sess.Phase = st.Phase
		switch {
		case err == nil:
			sess.State = SessionCompleted
			sess.Deliverable = d
			o.collector.RecordRun("completed", st.IterationCount)
		case types.IsCode(err, types.ErrCancelled):
			sess.State = SessionCancelled
			sess.Err = err.Error()
			o.collector.RecordRun("cancelled", st.IterationCount)
		default:
			sess.State = SessionFailed
			sess.Err = err.Error()
			o.collector.RecordRun("failed", st.IterationCount)
		}
		o.sessions.Put(sess)

		if err != nil {
			o.logger.Error("course design run failed",
				zap.String("session_id", st.SessionID),
				zap.String("phase", string(st.Phase)),
				zap.Duration("elapsed", time.Since(started)),
				zap.Error(err))
			// 终止事件必须送达仍在消费的一方，哪怕缓冲已满也要等它拿走；
			// 只有运行本身因取消结束时才降级为尽力送达
			ev := ProgressEvent{
				SessionID: st.SessionID,
				Phase:     st.Phase,
				Step:      "run_failed",
				Iteration: st.IterationCount,
				Err:       err,
				Timestamp: time.Now(),
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
				select {
				case ch <- ev:
				default:
				}
			}
			return
		}
		o.logger.Info("course design run completed",
			zap.String("session_id", st.SessionID),
			zap.Int("iterations", st.IterationCount),
			zap.Float64("composite", d.Metrics.Composite),
			zap.Duration("elapsed", time.Since(started)))
	}()
	return ch
}

// execute 运行阶段图主循环。
func (o *Orchestrator) execute(ctx context.Context, st *State, ch chan<- ProgressEvent, cfg Config) (*Deliverable, error) {
	tracker := &progressTracker{}
	var feedback []string
	var qm QualityMetrics

	// 扇出子任务并发完成，发射点串行化以保证百分比单调送出
	var subMu sync.Mutex
	emitSub := func(step string, done, total int, artifact any) {
		subMu.Lock()
		defer subMu.Unlock()
		o.emit(ctx, ch, ProgressEvent{
			SessionID: st.SessionID,
			Phase:     st.Phase,
			Step:      step,
			Percent:   tracker.subPercent(st.Phase, done, total),
			Iteration: st.IterationCount,
			Artifact:  artifact,
			Timestamp: time.Now(),
		})
	}

	if err := o.phaseStep(ctx, st, ch, tracker, types.PhaseInitialization, func(ctx context.Context) error {
		return o.runInitialization(ctx, st)
	}); err != nil {
		return nil, err
	}
	if err := o.phaseStep(ctx, st, ch, tracker, types.PhaseTheoreticalFoundation, func(ctx context.Context) error {
		return o.runTheory(ctx, st, feedback)
	}); err != nil {
		return nil, err
	}

	// 架构 -> 内容 -> 评估 -> 资料 -> 质量门，有界循环
	for {
		if err := o.phaseStep(ctx, st, ch, tracker, types.PhaseArchitectureDesign, func(ctx context.Context) error {
			return o.runArchitecture(ctx, st, feedback)
		}); err != nil {
			return nil, err
		}
		if err := o.phaseStep(ctx, st, ch, tracker, types.PhaseContentCreation, func(ctx context.Context) error {
			return o.runContent(ctx, st, feedback, cfg, emitSub)
		}); err != nil {
			return nil, err
		}
		if err := o.phaseStep(ctx, st, ch, tracker, types.PhaseAssessmentDesign, func(ctx context.Context) error {
			return o.runAssessment(ctx, st, feedback)
		}); err != nil {
			return nil, err
		}
		if err := o.phaseStep(ctx, st, ch, tracker, types.PhaseMaterialProduction, func(ctx context.Context) error {
			return o.runMaterial(ctx, st, feedback, cfg, emitSub)
		}); err != nil {
			return nil, err
		}

		qm = cfg.Evaluator(st, cfg.Weights)
		st.Metrics = &qm
		st.QualityHistory = append(st.QualityHistory, qm)
		o.emit(ctx, ch, ProgressEvent{
			SessionID: st.SessionID,
			Phase:     st.Phase,
			Step:      "quality_gate",
			Percent:   tracker.percent(st.Phase),
			Iteration: st.IterationCount,
			Metrics:   &qm,
			Timestamp: time.Now(),
		})

		if qm.Composite >= cfg.QualityThreshold {
			o.logger.Info("quality gate passed",
				zap.String("session_id", st.SessionID),
				zap.Float64("composite", qm.Composite),
				zap.Int("iteration", st.IterationCount))
			break
		}
		if st.IterationCount >= cfg.MaxIterations {
			// 迭代上限不是失败：记录后带着当前最好结果收尾
			limitErr := types.NewError(types.ErrIterationLimit, "iteration limit reached").
				WithPhase(st.Phase)
			o.logger.Warn("finalizing below quality threshold",
				zap.String("session_id", st.SessionID),
				zap.Float64("composite", qm.Composite),
				zap.Float64("threshold", cfg.QualityThreshold),
				zap.Int("iterations", st.IterationCount),
				zap.Error(limitErr))
			break
		}

		if err := o.enterPhase(ctx, st, types.PhaseReviewIteration); err != nil {
			return nil, err
		}
		feedback = o.runReview(ctx, st, qm, cfg.QualityThreshold)
		o.emit(ctx, ch, ProgressEvent{
			SessionID: st.SessionID,
			Phase:     st.Phase,
			Step:      "phase_completed",
			Percent:   tracker.percent(st.Phase),
			Iteration: st.IterationCount,
			Timestamp: time.Now(),
		})
	}

	if err := o.enterPhase(ctx, st, types.PhaseFinalization); err != nil {
		return nil, err
	}
	started := time.Now()
	d, err := o.runFinalization(ctx, st, qm)
	if err != nil {
		return nil, err
	}
	o.collector.RecordPhase(string(types.PhaseFinalization), time.Since(started))
	o.emit(ctx, ch, ProgressEvent{
		SessionID:   st.SessionID,
		Phase:       st.Phase,
		Step:        "phase_completed",
		Percent:     tracker.percent(types.PhaseFinalization),
		Iteration:   st.IterationCount,
		Metrics:     &qm,
		Deliverable: d,
		Timestamp:   time.Now(),
	})
	if err := st.TransitionPhase(types.PhaseTerminated); err != nil {
		return nil, err
	}
	return d, nil
}

// phaseStep 进入阶段、执行处理器、记录耗时并发出完成事件。
func (o *Orchestrator) phaseStep(ctx context.Context, st *State, ch chan<- ProgressEvent, tracker *progressTracker, phase types.Phase, fn func(context.Context) error) error {
	if err := o.enterPhase(ctx, st, phase); err != nil {
		return err
	}
	started := time.Now()
	if err := fn(ctx); err != nil {
		o.collector.RecordPhase(string(phase), time.Since(started))
		return err
	}
	elapsed := time.Since(started)
	o.collector.RecordPhase(string(phase), elapsed)
	o.logger.Debug("phase completed",
		zap.String("session_id", st.SessionID),
		zap.String("phase", string(phase)),
		zap.Duration("elapsed", elapsed))
	o.emit(ctx, ch, ProgressEvent{
		SessionID: st.SessionID,
		Phase:     phase,
		Step:      "phase_completed",
		Percent:   tracker.percent(phase),
		Iteration: st.IterationCount,
		Artifact:  phaseArtifact(st, phase),
		Timestamp: time.Now(),
	})
	return nil
}

// phaseArtifact 返回阶段完成后新写入的工件槽内容，用于进度事件的增量上报。
func phaseArtifact(st *State, phase types.Phase) any {
	switch phase {
	case types.PhaseTheoreticalFoundation:
		return st.Artifacts.Framework
	case types.PhaseArchitectureDesign:
		return st.Artifacts.Architecture
	case types.PhaseContentCreation:
		return st.Artifacts.ContentModules
	case types.PhaseAssessmentDesign:
		return st.Artifacts.Assessment
	case types.PhaseMaterialProduction:
		return st.Artifacts.Materials
	default:
		return nil
	}
}

// enterPhase 在阶段边界检查取消、转换阶段并捕获入口检查点。
// 检查点保存失败只降级为日志，不中断运行。
func (o *Orchestrator) enterPhase(ctx context.Context, st *State, to types.Phase) error {
	if err := ctx.Err(); err != nil {
		return types.NewError(types.ErrCancelled, "run cancelled").
			WithPhase(st.Phase).WithCause(err)
	}
	if err := st.TransitionPhase(to); err != nil {
		return err
	}
	cp := st.Snapshot()
	st.Checkpoints = append(st.Checkpoints, cp)
	if err := o.checkpoints.Save(ctx, cp); err != nil {
		o.logger.Warn("checkpoint save failed",
			zap.String("session_id", st.SessionID),
			zap.String("phase", string(to)),
			zap.Error(err))
	}
	return nil
}

// emit 非阻塞语义的事件发送：消费方消失时随取消退出。
func (o *Orchestrator) emit(ctx context.Context, ch chan<- ProgressEvent, ev ProgressEvent) {
	select {
	case ch <- ev:
	case <-ctx.Done():
	}
}
