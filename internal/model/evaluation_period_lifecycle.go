package model

import (
	"errors"
	"fmt"
	"time"
)

// ── 状态机错误 ──

var (
	// ErrInvalidTransition 状态或阶段转换不在允许表中
	ErrInvalidTransition = errors.New("无效的状态或阶段转换")
	// ErrPeriodCompleted 已完成的周期不可再修改设置
	ErrPeriodCompleted = errors.New("评估周期已完成")
)

// TransitionError 描述被拒绝的一次转换，errors.Is 可匹配 ErrInvalidTransition
type TransitionError struct {
	Machine string // status | phase
	From    string
	To      string
}

func (e *TransitionError) Error() string {
	from := e.From
	if from == "" {
		from = "(未设置)"
	}
	return fmt.Sprintf("无效的%s转换: %s → %s", e.Machine, from, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// ── 转换表 ──

// statusTransitions 状态邻接表；completed 为终态
var statusTransitions = map[PeriodStatus][]PeriodStatus{
	PeriodStatusWaiting:    {PeriodStatusInProgress},
	PeriodStatusInProgress: {PeriodStatusCompleted, PeriodStatusWaiting},
	PeriodStatusCompleted:  {},
}

// phaseSuccessors 阶段严格线性推进；closure 为终态
var phaseSuccessors = map[PeriodPhase]PeriodPhase{
	PhaseWaiting:        PhaseSetup,
	PhaseSetup:          PhasePerformance,
	PhasePerformance:    PhaseSelfEvaluation,
	PhaseSelfEvaluation: PhasePeerEvaluation,
	PhasePeerEvaluation: PhaseClosure,
}

// CanTransitionStatus 判断状态转换是否在邻接表中
func CanTransitionStatus(from, to PeriodStatus) bool {
	for _, s := range statusTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// NextPhase 返回 current 的唯一后继阶段。current 为 nil 时后继为 setup。
func NextPhase(current *PeriodPhase) (PeriodPhase, bool) {
	if current == nil {
		return PhaseSetup, true
	}
	next, ok := phaseSuccessors[*current]
	return next, ok
}

// IsValidPhase 判断是否为已知阶段
func IsValidPhase(phase PeriodPhase) bool {
	if phase == PhaseClosure {
		return true
	}
	_, ok := phaseSuccessors[phase]
	return ok
}

// DeadlineFor 返回结束 phase 所依据的截止时间；waiting/closure 没有截止时间
func (p *EvaluationPeriod) DeadlineFor(phase PeriodPhase) *time.Time {
	switch phase {
	case PhaseSetup:
		return p.SetupDeadline
	case PhasePerformance:
		return p.PerformanceDeadline
	case PhaseSelfEvaluation:
		return p.SelfEvaluationDeadline
	case PhasePeerEvaluation:
		return p.PeerEvaluationDeadline
	default:
		return nil
	}
}

// DuePhase 判断在 now 时刻是否应推进一个阶段，返回应进入的阶段。
// 当前阶段未设置、已是终态、或对应截止时间缺失时均不推进。
func (p *EvaluationPeriod) DuePhase(now time.Time) (PeriodPhase, bool) {
	if p.Status != PeriodStatusInProgress || p.CurrentPhase == nil {
		return "", false
	}
	next, ok := NextPhase(p.CurrentPhase)
	if !ok {
		return "", false
	}
	deadline := p.DeadlineFor(*p.CurrentPhase)
	if deadline == nil || now.Before(*deadline) {
		return "", false
	}
	return next, true
}

// ── 状态转换 ──

func (p *EvaluationPeriod) transitionStatus(to PeriodStatus, actorID string, now time.Time) error {
	if !CanTransitionStatus(p.Status, to) {
		return &TransitionError{Machine: "status", From: string(p.Status), To: string(to)}
	}
	p.Status = to
	p.MarkUpdated(actorID, now)
	return nil
}

// Start waiting → in_progress
func (p *EvaluationPeriod) Start(actorID string, now time.Time) error {
	if p.Status != PeriodStatusWaiting {
		return &TransitionError{Machine: "status", From: string(p.Status), To: string(PeriodStatusInProgress)}
	}
	return p.transitionStatus(PeriodStatusInProgress, actorID, now)
}

// Complete in_progress → completed，并记录完成时间
func (p *EvaluationPeriod) Complete(actorID string, now time.Time) error {
	if p.Status != PeriodStatusInProgress {
		return &TransitionError{Machine: "status", From: string(p.Status), To: string(PeriodStatusCompleted)}
	}
	if err := p.transitionStatus(PeriodStatusCompleted, actorID, now); err != nil {
		return err
	}
	completed := now
	p.CompletedDate = &completed
	return nil
}

// RevertToWaiting in_progress → waiting（管理员回退），同时清空当前阶段
func (p *EvaluationPeriod) RevertToWaiting(actorID string, now time.Time) error {
	if p.Status != PeriodStatusInProgress {
		return &TransitionError{Machine: "status", From: string(p.Status), To: string(PeriodStatusWaiting)}
	}
	if err := p.transitionStatus(PeriodStatusWaiting, actorID, now); err != nil {
		return err
	}
	p.CurrentPhase = nil
	return nil
}

// ── 阶段转换 ──

// ChangePhase 推进到 target，target 必须是当前阶段的唯一后继。
// 首次进入阶段（当前未设置）只能落在 setup。
func (p *EvaluationPeriod) ChangePhase(target PeriodPhase, actorID string, now time.Time) error {
	if p.Status != PeriodStatusInProgress {
		return &TransitionError{Machine: "phase", From: string(p.PhaseValue()), To: string(target)}
	}
	next, ok := NextPhase(p.CurrentPhase)
	if !ok || next != target {
		return &TransitionError{Machine: "phase", From: string(p.PhaseValue()), To: string(target)}
	}
	phase := target
	p.CurrentPhase = &phase
	p.MarkUpdated(actorID, now)
	return nil
}

// EnsureSetupPhase 进行中但尚未进入任何阶段时落到 setup；返回是否发生变更
func (p *EvaluationPeriod) EnsureSetupPhase(actorID string, now time.Time) (bool, error) {
	if p.Status != PeriodStatusInProgress || p.CurrentPhase != nil {
		return false, nil
	}
	if err := p.ChangePhase(PhaseSetup, actorID, now); err != nil {
		return false, err
	}
	return true, nil
}

// ── 手动设置 ──

// ManualPermissions 三个相互独立的手动设置开关，nil 表示不修改
type ManualPermissions struct {
	Criteria        *bool
	SelfEvaluation  *bool
	FinalEvaluation *bool
}

// ApplyManualPermissions 切换手动设置开关，已完成的周期拒绝修改
func (p *EvaluationPeriod) ApplyManualPermissions(perms ManualPermissions, actorID string, now time.Time) error {
	if p.Status == PeriodStatusCompleted {
		return ErrPeriodCompleted
	}
	if perms.Criteria != nil {
		p.CriteriaSettingEnabled = *perms.Criteria
	}
	if perms.SelfEvaluation != nil {
		p.SelfEvaluationSettingEnabled = *perms.SelfEvaluation
	}
	if perms.FinalEvaluation != nil {
		p.FinalEvaluationSettingEnabled = *perms.FinalEvaluation
	}
	p.MarkUpdated(actorID, now)
	return nil
}
