package service

import (
	"context"
	"errors"
	"testing"

	"github.com/GTD-web/ems-backend-sub011/internal/dto"
	"github.com/GTD-web/ems-backend-sub011/internal/model"
)

func TestReconciler_StartDateMovedIntoPastDrivesToClosure(t *testing.T) {
	env := setupTestPeriodService(day(2023, 11, 1))
	created := env.createP3(t)

	env.clock.Set(day(2024, 3, 1))
	result, err := env.svc.EvaluationPeriod.UpdateSchedule(context.Background(), created.ID,
		&dto.UpdateScheduleRequest{StartDate: ptr(day(2023, 12, 1))}, testAdminID)
	if err != nil {
		t.Fatalf("UpdateSchedule 应成功: %v", err)
	}
	if result.Status != string(model.PeriodStatusInProgress) {
		t.Errorf("期望 in_progress，实际=%s", result.Status)
	}
	if result.CurrentPhase == nil || *result.CurrentPhase != string(model.PhaseClosure) {
		t.Fatalf("期望推进到 closure，实际=%v", result.CurrentPhase)
	}

	var phases []string
	for _, l := range env.logs.logs {
		if l.PeriodID == created.ID && l.Action == model.ActivityActionPhaseChanged {
			phases = append(phases, l.Metadata["to"].(string))
		}
	}
	want := []string{"setup", "performance", "self_evaluation", "peer_evaluation", "closure"}
	if len(phases) != len(want) {
		t.Fatalf("期望依次经过 %v，实际=%v", want, phases)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Errorf("第 %d 步期望 %s，实际=%s", i, want[i], phases[i])
		}
	}
}

func TestReconciler_IterationCap(t *testing.T) {
	env := setupTestPeriodService(day(2023, 11, 1))
	created := env.createP3(t)
	env.svc.EvaluationPeriod.(*evaluationPeriodService).reconciler.maxIterations = 2

	env.clock.Set(day(2024, 3, 1))
	result, err := env.svc.EvaluationPeriod.UpdateSchedule(context.Background(), created.ID,
		&dto.UpdateScheduleRequest{StartDate: ptr(day(2023, 12, 1))}, testAdminID)
	if err != nil {
		t.Fatalf("UpdateSchedule 应成功: %v", err)
	}
	// setup 之后最多再推进 2 步
	if result.CurrentPhase == nil || *result.CurrentPhase != string(model.PhaseSelfEvaluation) {
		t.Errorf("达到迭代上限时应停在 self_evaluation，实际=%v", result.CurrentPhase)
	}
}

func TestReconciler_FutureStartLeavesWaiting(t *testing.T) {
	env := setupTestPeriodService(day(2023, 11, 1))
	created := env.createP3(t)

	result, err := env.svc.EvaluationPeriod.UpdateSchedule(context.Background(), created.ID,
		&dto.UpdateScheduleRequest{StartDate: ptr(day(2023, 12, 15))}, testAdminID)
	if err != nil {
		t.Fatalf("UpdateSchedule 应成功: %v", err)
	}
	if result.Status != string(model.PeriodStatusWaiting) || result.CurrentPhase != nil {
		t.Errorf("开始时间未到时不应变化，实际 status=%s phase=%v", result.Status, result.CurrentPhase)
	}
	if result.StartDate != "2023-12-15T00:00:00Z" {
		t.Errorf("开始时间应已更新，实际=%s", result.StartDate)
	}
}

func TestReconciler_InProgressDeadlinePulledIn(t *testing.T) {
	env := setupTestPeriodService(day(2024, 1, 10))
	p := env.seedInProgress("进行中", model.PhaseSetup)

	// 把设定截止时间调到当前时间之前：立即推进一个阶段
	result, err := env.svc.EvaluationPeriod.UpdateDeadline(context.Background(), p.PeriodID,
		"setup", day(2024, 1, 8), testAdminID)
	if err != nil {
		t.Fatalf("UpdateDeadline 应成功: %v", err)
	}
	if *result.CurrentPhase != string(model.PhasePerformance) {
		t.Errorf("期望 performance，实际=%s", *result.CurrentPhase)
	}
}

func TestReconciler_PropagatesStoreErrors(t *testing.T) {
	env := setupTestPeriodService(day(2023, 11, 1))
	created := env.createP3(t)
	rec := env.svc.EvaluationPeriod.(*evaluationPeriodService).reconciler

	env.clock.Set(day(2024, 3, 1))
	storeErr := errors.New("connection reset")
	env.periods.failUpdate[created.ID] = storeErr

	if _, err := rec.Reconcile(context.Background(), created.ID, testAdminID); !errors.Is(err, storeErr) {
		t.Errorf("协调失败应原样返回，实际: %v", err)
	}
	if env.periods.stored(created.ID).Status != model.PeriodStatusWaiting {
		t.Error("写入失败时存储状态不应变化")
	}
}

func TestReconciler_NotFound(t *testing.T) {
	env := setupTestPeriodService(day(2024, 3, 1))
	rec := env.svc.EvaluationPeriod.(*evaluationPeriodService).reconciler

	_, err := rec.Reconcile(context.Background(), "11111111-2222-3333-4444-555555555555", testAdminID)
	if !errors.Is(err, ErrPeriodNotFound) {
		t.Errorf("期望 ErrPeriodNotFound，实际: %v", err)
	}
}
