package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/GTD-web/ems-backend-sub011/internal/model"
	"github.com/GTD-web/ems-backend-sub011/internal/repository"
)

// reconcileMaxIterations 一次协调最多推进的阶段数
const reconcileMaxIterations = 10

// PeriodReconciler 日程修改后立即让状态/阶段与新日期保持一致，
// 不必等待下一次自动阶段扫描。
type PeriodReconciler struct {
	repo          *repository.Repository
	transitioner  *periodTransitioner
	maxIterations int
	logger        *zap.Logger
}

func newPeriodReconciler(repo *repository.Repository, transitioner *periodTransitioner, logger *zap.Logger) *PeriodReconciler {
	return &PeriodReconciler{
		repo:          repo,
		transitioner:  transitioner,
		maxIterations: reconcileMaxIterations,
		logger:        logger,
	}
}

// Reconcile 按新日程启动周期并逐步推进阶段，返回最终状态。
// 转换错误原样返回给触发本次协调的调用方。
func (r *PeriodReconciler) Reconcile(ctx context.Context, periodID, actorID string) (*model.EvaluationPeriod, error) {
	var (
		final      *model.EvaluationPeriod
		journal    activityJournal
		iterations int
	)

	err := r.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		period, err := loadPeriod(ctx, txRepo, periodID)
		if err != nil {
			return err
		}

		if period.Status == model.PeriodStatusWaiting && !r.transitioner.clock.Now().Before(period.StartDate) {
			if err := r.transitioner.start(ctx, txRepo, period, actorID, &journal); err != nil {
				return err
			}
		}

		if period, err = loadPeriod(ctx, txRepo, periodID); err != nil {
			return err
		}
		if _, err := r.transitioner.enterSetup(ctx, txRepo, period, actorID, &journal); err != nil {
			return err
		}

		for iterations = 0; iterations < r.maxIterations; iterations++ {
			if period, err = loadPeriod(ctx, txRepo, periodID); err != nil {
				return err
			}
			if period.CurrentPhase == nil {
				break
			}
			moved, err := r.transitioner.advanceIfDue(ctx, txRepo, period, actorID, &journal)
			if err != nil {
				return err
			}
			if !moved {
				break
			}
		}

		final, err = loadPeriod(ctx, txRepo, periodID)
		return err
	})
	if err != nil {
		return nil, err
	}

	journal.flush(ctx, r.repo, r.logger)
	if iterations >= r.maxIterations {
		r.logger.Warn("日程协调达到迭代上限",
			zap.String("period_id", periodID),
			zap.Int("max_iterations", r.maxIterations),
			zap.String("phase", string(final.PhaseValue())))
	}
	return final, nil
}
