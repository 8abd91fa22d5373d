package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/GTD-web/ems-backend-sub011/internal/model"
)

// PeriodParticipantRepository 评估周期参与者数据访问接口
// 参与者的登记与排除由人事模块维护，本服务只读取和在周期删除时批量注销
type PeriodParticipantRepository interface {
	ListByPeriod(ctx context.Context, periodID string, includeExcluded bool) ([]model.PeriodParticipant, error)
	// UnregisterAll 软删除周期下全部参与者，返回受影响条数
	UnregisterAll(ctx context.Context, periodID string, deletedBy string) (int64, error)
}

type periodParticipantRepo struct {
	db *gorm.DB
}

// NewPeriodParticipantRepo 创建 PeriodParticipantRepository 实例
func NewPeriodParticipantRepo(db *gorm.DB) PeriodParticipantRepository {
	return &periodParticipantRepo{db: db}
}

func (r *periodParticipantRepo) ListByPeriod(ctx context.Context, periodID string, includeExcluded bool) ([]model.PeriodParticipant, error) {
	var participants []model.PeriodParticipant
	db := r.db.WithContext(ctx).Where("period_id = ?", periodID)
	if !includeExcluded {
		db = db.Where("is_excluded = ?", false)
	}
	err := db.Order("created_at ASC").Find(&participants).Error
	return participants, err
}

func (r *periodParticipantRepo) UnregisterAll(ctx context.Context, periodID string, deletedBy string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.PeriodParticipant{}).
		Where("period_id = ?", periodID).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		})
	return result.RowsAffected, result.Error
}
