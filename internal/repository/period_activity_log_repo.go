package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/GTD-web/ems-backend-sub011/internal/model"
)

// PeriodActivityLogRepository 评估周期活动日志数据访问接口（只追加）
type PeriodActivityLogRepository interface {
	Create(ctx context.Context, log *model.PeriodActivityLog) error
	ListByPeriod(ctx context.Context, periodID string, limit int) ([]model.PeriodActivityLog, error)
}

type periodActivityLogRepo struct {
	db *gorm.DB
}

// NewPeriodActivityLogRepo 创建 PeriodActivityLogRepository 实例
func NewPeriodActivityLogRepo(db *gorm.DB) PeriodActivityLogRepository {
	return &periodActivityLogRepo{db: db}
}

func (r *periodActivityLogRepo) Create(ctx context.Context, log *model.PeriodActivityLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *periodActivityLogRepo) ListByPeriod(ctx context.Context, periodID string, limit int) ([]model.PeriodActivityLog, error) {
	var logs []model.PeriodActivityLog
	err := r.db.WithContext(ctx).
		Where("period_id = ?", periodID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
