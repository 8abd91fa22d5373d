package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/GTD-web/ems-backend-sub011/internal/model"
	pkgerrors "github.com/GTD-web/ems-backend-sub011/pkg/errors"
)

// EvaluationPeriodRepository 评估周期数据访问接口
type EvaluationPeriodRepository interface {
	Create(ctx context.Context, period *model.EvaluationPeriod) error
	GetByID(ctx context.Context, id string) (*model.EvaluationPeriod, error)
	// Update 基于 version 的乐观锁更新，冲突时返回 pkgerrors.ErrOptimisticLock
	Update(ctx context.Context, period *model.EvaluationPeriod) error
	Delete(ctx context.Context, id string, deletedBy string) error
	ListByStatuses(ctx context.Context, statuses ...model.PeriodStatus) ([]model.EvaluationPeriod, error)
	List(ctx context.Context, offset, limit int) ([]model.EvaluationPeriod, int64, error)
	// ExistsByName 检查未删除周期中是否存在同名记录，excludeID 非空时排除自身
	ExistsByName(ctx context.Context, name string, excludeID string) (bool, error)
	// ListOverlapping 查找 [start_date, peer_evaluation_deadline] 与给定窗口相交的周期；
	// 未设置同行评价截止时间的周期不参与比较
	ListOverlapping(ctx context.Context, start, end time.Time, excludeID string) ([]model.EvaluationPeriod, error)
}

type evaluationPeriodRepo struct {
	db *gorm.DB
}

// NewEvaluationPeriodRepo 创建 EvaluationPeriodRepository 实例
func NewEvaluationPeriodRepo(db *gorm.DB) EvaluationPeriodRepository {
	return &evaluationPeriodRepo{db: db}
}

func (r *evaluationPeriodRepo) Create(ctx context.Context, period *model.EvaluationPeriod) error {
	return r.db.WithContext(ctx).Create(period).Error
}

func (r *evaluationPeriodRepo) GetByID(ctx context.Context, id string) (*model.EvaluationPeriod, error) {
	var period model.EvaluationPeriod
	err := r.db.WithContext(ctx).
		Where("period_id = ?", id).
		First(&period).Error
	if err != nil {
		return nil, err
	}
	return &period, nil
}

func (r *evaluationPeriodRepo) Update(ctx context.Context, period *model.EvaluationPeriod) error {
	oldVersion := period.Version
	result := r.db.WithContext(ctx).
		Model(&model.EvaluationPeriod{}).
		Where("period_id = ? AND version = ?", period.PeriodID, oldVersion).
		Updates(map[string]interface{}{
			"name":                             period.Name,
			"description":                      period.Description,
			"start_date":                       period.StartDate,
			"setup_deadline":                   period.SetupDeadline,
			"performance_deadline":             period.PerformanceDeadline,
			"self_evaluation_deadline":         period.SelfEvaluationDeadline,
			"peer_evaluation_deadline":         period.PeerEvaluationDeadline,
			"completed_date":                   period.CompletedDate,
			"status":                           period.Status,
			"current_phase":                    period.CurrentPhase,
			"criteria_setting_enabled":         period.CriteriaSettingEnabled,
			"self_evaluation_setting_enabled":  period.SelfEvaluationSettingEnabled,
			"final_evaluation_setting_enabled": period.FinalEvaluationSettingEnabled,
			"max_self_evaluation_rate":         period.MaxSelfEvaluationRate,
			"grade_ranges":                     period.GradeRanges,
			"updated_by":                       period.UpdatedBy,
			"updated_at":                       period.UpdatedAt,
			"version":                          oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	period.Version = oldVersion + 1
	return nil
}

func (r *evaluationPeriodRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.EvaluationPeriod{}).
		Where("period_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}

func (r *evaluationPeriodRepo) ListByStatuses(ctx context.Context, statuses ...model.PeriodStatus) ([]model.EvaluationPeriod, error) {
	var periods []model.EvaluationPeriod
	err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("start_date ASC").
		Find(&periods).Error
	return periods, err
}

func (r *evaluationPeriodRepo) List(ctx context.Context, offset, limit int) ([]model.EvaluationPeriod, int64, error) {
	var periods []model.EvaluationPeriod
	var total int64

	db := r.db.WithContext(ctx).Model(&model.EvaluationPeriod{})

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("start_date DESC").
		Find(&periods).Error; err != nil {
		return nil, 0, err
	}

	return periods, total, nil
}

func (r *evaluationPeriodRepo) ExistsByName(ctx context.Context, name string, excludeID string) (bool, error) {
	var count int64
	db := r.db.WithContext(ctx).
		Model(&model.EvaluationPeriod{}).
		Where("name = ?", name)
	if excludeID != "" {
		db = db.Where("period_id <> ?", excludeID)
	}
	if err := db.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *evaluationPeriodRepo) ListOverlapping(ctx context.Context, start, end time.Time, excludeID string) ([]model.EvaluationPeriod, error) {
	var periods []model.EvaluationPeriod
	db := r.db.WithContext(ctx).
		Where("peer_evaluation_deadline IS NOT NULL").
		Where("start_date <= ? AND peer_evaluation_deadline >= ?", end, start)
	if excludeID != "" {
		db = db.Where("period_id <> ?", excludeID)
	}
	err := db.Order("start_date ASC").Find(&periods).Error
	return periods, err
}
