package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/GTD-web/ems-backend-sub011/internal/model"
	"github.com/GTD-web/ems-backend-sub011/internal/repository"
)

// periodTransitioner 状态/阶段转换的唯一写入路径。
// 管理员操作、自动阶段调度与日程协调都经由这里调用聚合方法并落库。
type periodTransitioner struct {
	clock  Clock
	logger *zap.Logger
}

func newPeriodTransitioner(clock Clock, logger *zap.Logger) *periodTransitioner {
	return &periodTransitioner{clock: clock, logger: logger}
}

// loadPeriod 读取周期并把 gorm.ErrRecordNotFound 转为 ErrPeriodNotFound
func loadPeriod(ctx context.Context, repo *repository.Repository, id string) (*model.EvaluationPeriod, error) {
	period, err := repo.EvaluationPeriod.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPeriodNotFound
		}
		return nil, err
	}
	return period, nil
}

// start waiting → in_progress
func (t *periodTransitioner) start(ctx context.Context, repo *repository.Repository, p *model.EvaluationPeriod, actorID string, journal *activityJournal) error {
	if err := p.Start(actorID, t.clock.Now()); err != nil {
		return err
	}
	if err := repo.EvaluationPeriod.Update(ctx, p); err != nil {
		return err
	}
	journal.add(p.PeriodID, model.ActivityTypePeriodLifecycle, model.ActivityActionStarted, actorID, model.JSONMap{
		"from": string(model.PeriodStatusWaiting),
		"to":   string(model.PeriodStatusInProgress),
	})
	return nil
}

// enterSetup 进行中且尚未进入任何阶段时落到 setup
func (t *periodTransitioner) enterSetup(ctx context.Context, repo *repository.Repository, p *model.EvaluationPeriod, actorID string, journal *activityJournal) (bool, error) {
	changed, err := p.EnsureSetupPhase(actorID, t.clock.Now())
	if err != nil || !changed {
		return false, err
	}
	if err := repo.EvaluationPeriod.Update(ctx, p); err != nil {
		return false, err
	}
	journal.add(p.PeriodID, model.ActivityTypePeriodLifecycle, model.ActivityActionPhaseChanged, actorID, model.JSONMap{
		"from": "",
		"to":   string(model.PhaseSetup),
	})
	return true, nil
}

// advanceIfDue 当前阶段的截止时间已到时推进一个阶段；返回是否推进
func (t *periodTransitioner) advanceIfDue(ctx context.Context, repo *repository.Repository, p *model.EvaluationPeriod, actorID string, journal *activityJournal) (bool, error) {
	now := t.clock.Now()
	next, due := p.DuePhase(now)
	if !due {
		return false, nil
	}
	if err := t.changePhase(ctx, repo, p, next, actorID, "deadline", journal); err != nil {
		return false, err
	}
	return true, nil
}

// changePhase 单步推进到 target
func (t *periodTransitioner) changePhase(ctx context.Context, repo *repository.Repository, p *model.EvaluationPeriod, target model.PeriodPhase, actorID, trigger string, journal *activityJournal) error {
	from := p.PhaseValue()
	if err := p.ChangePhase(target, actorID, t.clock.Now()); err != nil {
		return err
	}
	if err := repo.EvaluationPeriod.Update(ctx, p); err != nil {
		return err
	}
	journal.add(p.PeriodID, model.ActivityTypePeriodLifecycle, model.ActivityActionPhaseChanged, actorID, model.JSONMap{
		"from":    string(from),
		"to":      string(target),
		"trigger": trigger,
	})
	return nil
}

// ── 活动日志 ──

// activityJournal 在事务内收集活动日志，事务提交后再写入。
// 审计写入失败只记录告警，不影响已提交的业务结果。
type activityJournal struct {
	entries []model.PeriodActivityLog
}

func (j *activityJournal) add(periodID, activityType, action, operatorID string, metadata model.JSONMap) {
	if j == nil {
		return
	}
	j.entries = append(j.entries, model.PeriodActivityLog{
		PeriodID:     periodID,
		ActivityType: activityType,
		Action:       action,
		OperatorID:   operatorID,
		Metadata:     metadata,
	})
}

func (j *activityJournal) flush(ctx context.Context, repo *repository.Repository, logger *zap.Logger) {
	if j == nil {
		return
	}
	for i := range j.entries {
		entry := &j.entries[i]
		if err := repo.PeriodActivityLog.Create(ctx, entry); err != nil {
			logger.Warn("写入评估周期活动日志失败",
				zap.String("period_id", entry.PeriodID),
				zap.String("action", entry.Action),
				zap.Error(err))
		}
	}
	j.entries = nil
}
