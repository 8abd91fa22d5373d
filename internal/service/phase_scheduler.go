package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GTD-web/ems-backend-sub011/config"
	"github.com/GTD-web/ems-backend-sub011/internal/model"
	"github.com/GTD-web/ems-backend-sub011/internal/repository"
	pkgredis "github.com/GTD-web/ems-backend-sub011/pkg/redis"
)

const sweepLockName = "evaluation-period:auto-phase-sweep"

// SweepLocker 多实例部署时保证同一时刻只有一个实例执行定时扫描
type SweepLocker interface {
	// Acquire 获取锁；acquired=false 且 err=nil 表示锁被其他实例持有
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, acquired bool, err error)
}

type redisSweepLocker struct {
	client *pkgredis.Client
}

// NewRedisSweepLocker 基于 Redis SET NX 的扫描锁
func NewRedisSweepLocker(client *pkgredis.Client) SweepLocker {
	return &redisSweepLocker{client: client}
}

func (l *redisSweepLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, bool, error) {
	lock, err := l.client.TryLock(ctx, name, ttl)
	if err != nil {
		return nil, false, err
	}
	if lock == nil {
		return nil, false, nil
	}
	return lock.Release, true, nil
}

// AutoPhaseScheduler 按固定间隔扫描等待中/进行中的周期，
// 到达开始时间则启动，到达当前阶段截止时间则推进一个阶段。
type AutoPhaseScheduler struct {
	repo         *repository.Repository
	transitioner *periodTransitioner
	locker       SweepLocker
	interval     time.Duration
	lockTTL      time.Duration
	actorID      string
	logger       *zap.Logger

	// 定时扫描与手动触发互斥
	mu sync.Mutex
}

func newAutoPhaseScheduler(
	cfg *config.SchedulerConfig,
	repo *repository.Repository,
	transitioner *periodTransitioner,
	locker SweepLocker,
	logger *zap.Logger,
) *AutoPhaseScheduler {
	return &AutoPhaseScheduler{
		repo:         repo,
		transitioner: transitioner,
		locker:       locker,
		interval:     cfg.Interval,
		lockTTL:      cfg.LockTTL,
		actorID:      cfg.SystemActorID,
		logger:       logger.Named("auto-phase"),
	}
}

// ────────────────────── Sweep ──────────────────────

// Sweep 执行一次扫描，返回状态或阶段发生变化的周期数。
// 单个周期处理失败只记录日志，不影响其余周期；只有加载候选列表失败才返回错误。
func (s *AutoPhaseScheduler) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	periods, err := s.repo.EvaluationPeriod.ListByStatuses(ctx,
		model.PeriodStatusWaiting, model.PeriodStatusInProgress)
	if err != nil {
		s.logger.Error("加载待扫描评估周期失败", zap.Error(err))
		return 0, err
	}

	moved := 0
	for i := range periods {
		id := periods[i].PeriodID
		changed, err := s.sweepOne(ctx, id)
		if err != nil {
			s.logger.Error("自动阶段处理失败，跳过该周期",
				zap.String("period_id", id),
				zap.String("name", periods[i].Name),
				zap.Error(err))
			continue
		}
		if changed {
			moved++
		}
	}

	if moved > 0 {
		s.logger.Info("自动阶段扫描完成", zap.Int("scanned", len(periods)), zap.Int("moved", moved))
	}
	return moved, nil
}

// sweepOne 单个周期在独立事务中处理：重新读取 → 转换 → 落库
func (s *AutoPhaseScheduler) sweepOne(ctx context.Context, periodID string) (changed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			changed = false
			err = fmt.Errorf("处理评估周期时发生 panic: %v", r)
		}
	}()

	var journal activityJournal
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		changed = false
		period, err := loadPeriod(ctx, txRepo, periodID)
		if err != nil {
			return err
		}

		switch period.Status {
		case model.PeriodStatusWaiting:
			if s.transitioner.clock.Now().Before(period.StartDate) {
				return nil
			}
			if err := s.transitioner.start(ctx, txRepo, period, s.actorID, &journal); err != nil {
				return err
			}
			changed = true
		case model.PeriodStatusInProgress:
		default:
			// 列表加载后已被其他请求完成
			return nil
		}

		entered, err := s.transitioner.enterSetup(ctx, txRepo, period, s.actorID, &journal)
		if err != nil {
			return err
		}
		moved, err := s.transitioner.advanceIfDue(ctx, txRepo, period, s.actorID, &journal)
		if err != nil {
			return err
		}
		changed = changed || entered || moved
		return nil
	})
	if err != nil {
		return false, err
	}

	journal.flush(ctx, s.repo, s.logger)
	return changed, nil
}

// ────────────────────── Run ──────────────────────

// Run 启动定时扫描，直到 ctx 取消
func (s *AutoPhaseScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("自动阶段调度已启动", zap.Duration("interval", s.interval))
	s.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("自动阶段调度已停止")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *AutoPhaseScheduler) runOnce(ctx context.Context) {
	if s.locker != nil {
		release, acquired, err := s.locker.Acquire(ctx, sweepLockName, s.lockTTL)
		switch {
		case err != nil:
			// Redis 不可用时降级为本实例直接执行
			s.logger.Warn("获取扫描锁失败，降级执行", zap.Error(err))
		case !acquired:
			s.logger.Debug("扫描锁由其他实例持有，跳过本轮")
			return
		default:
			defer func() {
				if err := release(context.Background()); err != nil {
					s.logger.Warn("释放扫描锁失败", zap.Error(err))
				}
			}()
		}
	}

	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Error("自动阶段扫描失败", zap.Error(err))
	}
}
