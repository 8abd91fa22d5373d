package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/GTD-web/ems-backend-sub011/internal/model"
)

// ── Mock SweepLocker ──

type mockSweepLocker struct {
	acquired bool
	err      error
	calls    int
	released int
}

func (m *mockSweepLocker) Acquire(_ context.Context, _ string, _ time.Duration) (func(context.Context) error, bool, error) {
	m.calls++
	if m.err != nil || !m.acquired {
		return nil, false, m.err
	}
	return func(context.Context) error {
		m.released++
		return nil
	}, true, nil
}

// seedWaiting 写入一条等待中、开始时间为 start 的记录
func (env *periodTestEnv) seedWaiting(name string, start time.Time) *model.EvaluationPeriod {
	return env.periods.seed(&model.EvaluationPeriod{
		Name:                  name,
		StartDate:             start,
		SetupDeadline:         ptr(start.AddDate(0, 0, 4)),
		Status:                model.PeriodStatusWaiting,
		MaxSelfEvaluationRate: model.DefaultMaxSelfEvaluationRate,
	})
}

// ── Sweep 测试 ──

func TestAutoPhaseScheduler_Sweep_StartAdvanceIdempotent(t *testing.T) {
	env := setupTestPeriodService(day(2023, 12, 1))
	created := env.createP3(t)
	scheduler := env.svc.Scheduler

	// 1/1：开始并进入 setup
	env.clock.Set(day(2024, 1, 1))
	moved, err := scheduler.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep 应成功: %v", err)
	}
	if moved != 1 {
		t.Errorf("期望 1 个周期变化，实际=%d", moved)
	}
	stored := env.periods.stored(created.ID)
	if stored.Status != model.PeriodStatusInProgress || stored.PhaseValue() != model.PhaseSetup {
		t.Fatalf("期望 in_progress/setup，实际 %s/%s", stored.Status, stored.PhaseValue())
	}

	// 1/6：设定截止已过，推进到 performance
	env.clock.Set(day(2024, 1, 6))
	moved, _ = scheduler.Sweep(context.Background())
	if moved != 1 {
		t.Errorf("期望 1 个周期变化，实际=%d", moved)
	}
	if got := env.periods.stored(created.ID).PhaseValue(); got != model.PhasePerformance {
		t.Fatalf("期望 performance，实际=%s", got)
	}

	// 同一时刻再次扫描不产生变化
	moved, _ = scheduler.Sweep(context.Background())
	if moved != 0 {
		t.Errorf("重复扫描不应产生变化，实际=%d", moved)
	}
	if got := env.periods.stored(created.ID).PhaseValue(); got != model.PhasePerformance {
		t.Errorf("重复扫描后阶段不应变化，实际=%s", got)
	}
}

func TestAutoPhaseScheduler_Sweep_BeforeStartNoChange(t *testing.T) {
	env := setupTestPeriodService(day(2023, 12, 31))
	p := env.seedWaiting("未开始", day(2024, 1, 1))

	moved, err := env.svc.Scheduler.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep 应成功: %v", err)
	}
	if moved != 0 || env.periods.stored(p.PeriodID).Status != model.PeriodStatusWaiting {
		t.Errorf("未到开始时间不应变化，moved=%d", moved)
	}
}

func TestAutoPhaseScheduler_Sweep_OneStepPerSweep(t *testing.T) {
	// 所有截止时间都已过去：每次扫描只推进一个阶段
	env := setupTestPeriodService(day(2024, 3, 1))
	p := env.seedInProgress("落后", model.PhaseSetup)

	want := []model.PeriodPhase{model.PhasePerformance, model.PhaseSelfEvaluation, model.PhasePeerEvaluation, model.PhaseClosure}
	for _, phase := range want {
		if _, err := env.svc.Scheduler.Sweep(context.Background()); err != nil {
			t.Fatalf("Sweep 应成功: %v", err)
		}
		if got := env.periods.stored(p.PeriodID).PhaseValue(); got != phase {
			t.Fatalf("期望 %s，实际=%s", phase, got)
		}
	}

	moved, _ := env.svc.Scheduler.Sweep(context.Background())
	if moved != 0 {
		t.Errorf("closure 之后不应再推进，实际=%d", moved)
	}
}

func TestAutoPhaseScheduler_Sweep_MissingDeadlineWaits(t *testing.T) {
	env := setupTestPeriodService(day(2024, 3, 1))
	p := env.seedInProgress("缺截止", model.PhasePerformance)
	env.periods.stored(p.PeriodID).PerformanceDeadline = nil

	moved, _ := env.svc.Scheduler.Sweep(context.Background())
	if moved != 0 || env.periods.stored(p.PeriodID).PhaseValue() != model.PhasePerformance {
		t.Errorf("截止时间缺失时应停留在当前阶段，moved=%d", moved)
	}
}

func TestAutoPhaseScheduler_Sweep_InProgressWithoutPhaseForcedToSetup(t *testing.T) {
	env := setupTestPeriodService(day(2024, 1, 2))
	p := env.seedInProgress("无阶段", model.PhaseSetup)
	env.periods.stored(p.PeriodID).CurrentPhase = nil

	moved, _ := env.svc.Scheduler.Sweep(context.Background())
	if moved != 1 || env.periods.stored(p.PeriodID).PhaseValue() != model.PhaseSetup {
		t.Errorf("进行中但无阶段时应落到 setup，moved=%d phase=%s", moved, env.periods.stored(p.PeriodID).PhaseValue())
	}
}

func TestAutoPhaseScheduler_Sweep_Isolation(t *testing.T) {
	env := setupTestPeriodService(day(2024, 1, 2))
	a := env.seedWaiting("A", day(2024, 1, 1))
	b := env.seedWaiting("B", day(2024, 1, 1))
	c := env.seedWaiting("C", day(2024, 1, 1))
	d := env.seedWaiting("D", day(2024, 1, 1))

	env.periods.failUpdate[b.PeriodID] = errors.New("deadlock detected")
	env.periods.panicGet[c.PeriodID] = true

	moved, err := env.svc.Scheduler.Sweep(context.Background())
	if err != nil {
		t.Fatalf("单个周期失败不应让扫描返回错误: %v", err)
	}
	if moved != 2 {
		t.Errorf("期望 2 个周期变化，实际=%d", moved)
	}
	for _, p := range []*model.EvaluationPeriod{a, d} {
		if env.periods.stored(p.PeriodID).Status != model.PeriodStatusInProgress {
			t.Errorf("%s 应已开始", p.Name)
		}
	}
	if env.periods.stored(b.PeriodID).Status != model.PeriodStatusWaiting {
		t.Error("写入失败的周期应保持原状态")
	}
}

func TestAutoPhaseScheduler_Sweep_ListFailure(t *testing.T) {
	env := setupTestPeriodService(day(2024, 1, 2))
	env.periods.failList = errors.New("db down")

	if _, err := env.svc.Scheduler.Sweep(context.Background()); err == nil {
		t.Error("加载候选列表失败时应返回错误")
	}
}

func TestAutoPhaseScheduler_Sweep_UsesSystemActor(t *testing.T) {
	env := setupTestPeriodService(day(2024, 1, 2))
	p := env.seedWaiting("系统操作", day(2024, 1, 1))

	_, _ = env.svc.Scheduler.Sweep(context.Background())
	stored := env.periods.stored(p.PeriodID)
	if stored.UpdatedBy == nil || *stored.UpdatedBy != testSystemActorID {
		t.Errorf("期望操作人为系统账号，实际=%v", stored.UpdatedBy)
	}
}

func TestEvaluationPeriodService_TriggerAutoPhaseSweep(t *testing.T) {
	env := setupTestPeriodService(day(2024, 1, 2))
	env.seedWaiting("手动触发", day(2024, 1, 1))

	resp, err := env.svc.EvaluationPeriod.TriggerAutoPhaseSweep(context.Background())
	if err != nil {
		t.Fatalf("TriggerAutoPhaseSweep 应成功: %v", err)
	}
	if resp.Moved != 1 {
		t.Errorf("期望 moved=1，实际=%d", resp.Moved)
	}
}

// ── runOnce 分布式锁测试 ──

func TestAutoPhaseScheduler_RunOnce_LockHeldElsewhere(t *testing.T) {
	env := setupTestPeriodService(day(2024, 1, 2))
	p := env.seedWaiting("锁", day(2024, 1, 1))
	locker := &mockSweepLocker{acquired: false}
	env.svc.Scheduler.locker = locker

	env.svc.Scheduler.runOnce(context.Background())
	if env.periods.stored(p.PeriodID).Status != model.PeriodStatusWaiting {
		t.Error("锁被其他实例持有时不应扫描")
	}
}

func TestAutoPhaseScheduler_RunOnce_AcquiresAndReleases(t *testing.T) {
	env := setupTestPeriodService(day(2024, 1, 2))
	p := env.seedWaiting("锁", day(2024, 1, 1))
	locker := &mockSweepLocker{acquired: true}
	env.svc.Scheduler.locker = locker

	env.svc.Scheduler.runOnce(context.Background())
	if env.periods.stored(p.PeriodID).Status != model.PeriodStatusInProgress {
		t.Error("获得锁后应执行扫描")
	}
	if locker.released != 1 {
		t.Errorf("扫描后应释放锁，实际释放次数=%d", locker.released)
	}
}

func TestAutoPhaseScheduler_RunOnce_LockErrorDegrades(t *testing.T) {
	env := setupTestPeriodService(day(2024, 1, 2))
	p := env.seedWaiting("锁", day(2024, 1, 1))
	env.svc.Scheduler.locker = &mockSweepLocker{err: errors.New("redis: connection refused")}

	env.svc.Scheduler.runOnce(context.Background())
	if env.periods.stored(p.PeriodID).Status != model.PeriodStatusInProgress {
		t.Error("Redis 不可用时应降级执行扫描")
	}
}

func TestAutoPhaseScheduler_Run_StopsOnCancel(t *testing.T) {
	env := setupTestPeriodService(day(2024, 1, 2))
	p := env.seedWaiting("循环", day(2024, 1, 1))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		env.svc.Scheduler.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("取消后 Run 应退出")
	}
	if env.periods.stored(p.PeriodID).Status != model.PeriodStatusInProgress {
		t.Error("Run 启动时应立即执行一次扫描")
	}
}
