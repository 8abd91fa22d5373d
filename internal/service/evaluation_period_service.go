package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GTD-web/ems-backend-sub011/internal/dto"
	"github.com/GTD-web/ems-backend-sub011/internal/model"
	"github.com/GTD-web/ems-backend-sub011/internal/repository"
	pkgerrors "github.com/GTD-web/ems-backend-sub011/pkg/errors"
)

// ── 评估周期模块业务错误 ──

var (
	ErrPeriodNotFound          = errors.New("评估周期不存在")
	ErrPeriodRequiredMissing   = errors.New("缺少必填字段")
	ErrPeriodInvalidFormat     = errors.New("字段格式无效")
	ErrPeriodDateRangeInvalid  = errors.New("评估周期日期范围无效")
	ErrPeriodBusinessRule      = errors.New("违反评估周期业务规则")
	ErrPeriodNameDuplicate     = errors.New("评估周期名称已存在")
	ErrPeriodOverlap           = errors.New("评估周期时间与已有周期重叠")
	ErrPeriodInvalidTransition = model.ErrInvalidTransition
)

// EvaluationPeriodService 评估周期业务接口
type EvaluationPeriodService interface {
	Create(ctx context.Context, req *dto.CreateEvaluationPeriodRequest, callerID string) (*dto.EvaluationPeriodResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateEvaluationPeriodRequest, callerID string) (*dto.EvaluationPeriodResponse, error)
	UpdateBasicInfo(ctx context.Context, id string, req *dto.UpdateBasicInfoRequest, callerID string) (*dto.EvaluationPeriodResponse, error)
	UpdateSchedule(ctx context.Context, id string, req *dto.UpdateScheduleRequest, callerID string) (*dto.EvaluationPeriodResponse, error)
	UpdateDeadline(ctx context.Context, id string, kind string, deadline time.Time, callerID string) (*dto.EvaluationPeriodResponse, error)
	UpdateGradeRanges(ctx context.Context, id string, req *dto.UpdateGradeRangesRequest, callerID string) (*dto.EvaluationPeriodResponse, error)
	SetManualPermissions(ctx context.Context, id string, req *dto.ManualPermissionsRequest, callerID string) (*dto.EvaluationPeriodResponse, error)
	Start(ctx context.Context, id string, callerID string) (*dto.EvaluationPeriodResponse, error)
	Complete(ctx context.Context, id string, callerID string) (*dto.EvaluationPeriodResponse, error)
	RevertToWaiting(ctx context.Context, id string, callerID string) (*dto.EvaluationPeriodResponse, error)
	ChangePhase(ctx context.Context, id string, targetPhase string, callerID string) (*dto.EvaluationPeriodResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
	GetByID(ctx context.Context, id string) (*dto.EvaluationPeriodResponse, error)
	ListActive(ctx context.Context) ([]dto.EvaluationPeriodResponse, error)
	ListPaged(ctx context.Context, req *dto.PaginationRequest) ([]dto.EvaluationPeriodResponse, int64, error)
	LookupGrade(ctx context.Context, id string, score float64) (*dto.GradeLookupResponse, error)
	ListParticipants(ctx context.Context, id string, includeExcluded bool) ([]dto.PeriodParticipantResponse, error)
	ListActivityLogs(ctx context.Context, id string, query *dto.ActivityLogQuery) ([]dto.PeriodActivityLogResponse, error)
	TriggerAutoPhaseSweep(ctx context.Context) (*dto.AutoPhaseSweepResponse, error)
}

type evaluationPeriodService struct {
	repo         *repository.Repository
	clock        Clock
	transitioner *periodTransitioner
	reconciler   *PeriodReconciler
	scheduler    *AutoPhaseScheduler
	logger       *zap.Logger
}

// NewEvaluationPeriodService 创建 EvaluationPeriodService 实例
func NewEvaluationPeriodService(
	repo *repository.Repository,
	clock Clock,
	reconciler *PeriodReconciler,
	scheduler *AutoPhaseScheduler,
	logger *zap.Logger,
) EvaluationPeriodService {
	return &evaluationPeriodService{
		repo:         repo,
		clock:        clock,
		transitioner: reconciler.transitioner,
		reconciler:   reconciler,
		scheduler:    scheduler,
		logger:       logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *evaluationPeriodService) Create(ctx context.Context, req *dto.CreateEvaluationPeriodRequest, callerID string) (*dto.EvaluationPeriodResponse, error) {
	if err := validateIdentifier("操作人ID", callerID); err != nil {
		return nil, err
	}

	var (
		created *model.EvaluationPeriod
		journal activityJournal
	)
	err := s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		if err := validateCreate(ctx, txRepo, req); err != nil {
			return err
		}

		period := &model.EvaluationPeriod{
			Name:                   strings.TrimSpace(req.Name),
			StartDate:              *req.StartDate,
			SetupDeadline:          req.SetupDeadline,
			PerformanceDeadline:    req.PerformanceDeadline,
			SelfEvaluationDeadline: req.SelfEvaluationDeadline,
			PeerEvaluationDeadline: req.PeerEvaluationDeadline,
			Status:                 model.PeriodStatusWaiting,
			MaxSelfEvaluationRate:  model.DefaultMaxSelfEvaluationRate,
			GradeRanges:            toModelGradeRanges(req.GradeRanges),
		}
		if req.Description != nil {
			period.Description = *req.Description
		}
		if req.MaxSelfEvaluationRate != nil {
			period.MaxSelfEvaluationRate = *req.MaxSelfEvaluationRate
		}
		now := s.clock.Now()
		period.CreatedBy = &callerID
		period.CreatedAt = now
		period.MarkUpdated(callerID, now)
		period.Version = 1

		if err := txRepo.EvaluationPeriod.Create(ctx, period); err != nil {
			return err
		}
		journal.add(period.PeriodID, model.ActivityTypePeriodLifecycle, model.ActivityActionCreated, callerID, model.JSONMap{
			"name": period.Name,
		})
		created = period
		return nil
	})
	if err != nil {
		s.logUnexpected("创建评估周期失败", "", err)
		return nil, err
	}

	journal.flush(ctx, s.repo, s.logger)
	s.logger.Info("评估周期已创建",
		zap.String("period_id", created.PeriodID),
		zap.String("name", created.Name),
		zap.String("caller", callerID))
	return s.toPeriodResponse(created), nil
}

// ────────────────────── Update ──────────────────────

// Update 只修改请求中出现的字段；涉及日程时提交后立即执行日程协调
func (s *evaluationPeriodService) Update(ctx context.Context, id string, req *dto.UpdateEvaluationPeriodRequest, callerID string) (*dto.EvaluationPeriodResponse, error) {
	if err := s.validateRefs(id, callerID); err != nil {
		return nil, err
	}

	var (
		updated *model.EvaluationPeriod
		journal activityJournal
	)
	err := s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		period, err := loadPeriod(ctx, txRepo, id)
		if err != nil {
			return err
		}
		if err := validateUpdate(ctx, txRepo, period, req); err != nil {
			return err
		}

		fields := applyUpdate(period, req)
		if len(fields) == 0 {
			updated = period
			return nil
		}
		period.MarkUpdated(callerID, s.clock.Now())
		if err := txRepo.EvaluationPeriod.Update(ctx, period); err != nil {
			return err
		}
		journal.add(period.PeriodID, model.ActivityTypePeriodSetting, model.ActivityActionUpdated, callerID, model.JSONMap{
			"fields": fields,
		})
		updated = period
		return nil
	})
	if err != nil {
		s.logUnexpected("更新评估周期失败", id, err)
		return nil, err
	}
	journal.flush(ctx, s.repo, s.logger)

	if req.TouchesSchedule() {
		reconciled, err := s.reconciler.Reconcile(ctx, id, callerID)
		if err != nil {
			s.logUnexpected("日程修改后协调状态失败", id, err)
			return nil, err
		}
		updated = reconciled
	}

	return s.toPeriodResponse(updated), nil
}

func (s *evaluationPeriodService) UpdateBasicInfo(ctx context.Context, id string, req *dto.UpdateBasicInfoRequest, callerID string) (*dto.EvaluationPeriodResponse, error) {
	return s.Update(ctx, id, &dto.UpdateEvaluationPeriodRequest{
		Name:                  req.Name,
		Description:           req.Description,
		MaxSelfEvaluationRate: req.MaxSelfEvaluationRate,
	}, callerID)
}

func (s *evaluationPeriodService) UpdateSchedule(ctx context.Context, id string, req *dto.UpdateScheduleRequest, callerID string) (*dto.EvaluationPeriodResponse, error) {
	return s.Update(ctx, id, &dto.UpdateEvaluationPeriodRequest{
		StartDate:              req.StartDate,
		SetupDeadline:          req.SetupDeadline,
		PerformanceDeadline:    req.PerformanceDeadline,
		SelfEvaluationDeadline: req.SelfEvaluationDeadline,
		PeerEvaluationDeadline: req.PeerEvaluationDeadline,
	}, callerID)
}

// UpdateDeadline 修改单个阶段截止时间，kind 取 setup / performance / self_evaluation / peer_evaluation
func (s *evaluationPeriodService) UpdateDeadline(ctx context.Context, id string, kind string, deadline time.Time, callerID string) (*dto.EvaluationPeriodResponse, error) {
	phase := model.PeriodPhase(strings.ReplaceAll(strings.TrimSpace(kind), "-", "_"))
	req := &dto.UpdateEvaluationPeriodRequest{}
	switch phase {
	case model.PhaseSetup:
		req.SetupDeadline = &deadline
	case model.PhasePerformance:
		req.PerformanceDeadline = &deadline
	case model.PhaseSelfEvaluation:
		req.SelfEvaluationDeadline = &deadline
	case model.PhasePeerEvaluation:
		req.PeerEvaluationDeadline = &deadline
	default:
		return nil, fmt.Errorf("%w: 未知的截止时间类型 %q", ErrPeriodInvalidFormat, kind)
	}
	return s.Update(ctx, id, req, callerID)
}

func (s *evaluationPeriodService) UpdateGradeRanges(ctx context.Context, id string, req *dto.UpdateGradeRangesRequest, callerID string) (*dto.EvaluationPeriodResponse, error) {
	ranges := req.GradeRanges
	if ranges == nil {
		ranges = []dto.GradeRangeDTO{}
	}
	return s.Update(ctx, id, &dto.UpdateEvaluationPeriodRequest{GradeRanges: &ranges}, callerID)
}

// ────────────────────── SetManualPermissions ──────────────────────

func (s *evaluationPeriodService) SetManualPermissions(ctx context.Context, id string, req *dto.ManualPermissionsRequest, callerID string) (*dto.EvaluationPeriodResponse, error) {
	return s.mutate(ctx, id, callerID, "修改手动设置失败", func(txRepo *repository.Repository, p *model.EvaluationPeriod, journal *activityJournal) error {
		perms := model.ManualPermissions{
			Criteria:        req.CriteriaSettingEnabled,
			SelfEvaluation:  req.SelfEvaluationSettingEnabled,
			FinalEvaluation: req.FinalEvaluationSettingEnabled,
		}
		if err := p.ApplyManualPermissions(perms, callerID, s.clock.Now()); err != nil {
			if errors.Is(err, model.ErrPeriodCompleted) {
				return fmt.Errorf("%w: 已完成的评估周期不能修改手动设置", ErrPeriodBusinessRule)
			}
			return err
		}
		if err := txRepo.EvaluationPeriod.Update(ctx, p); err != nil {
			return err
		}
		journal.add(p.PeriodID, model.ActivityTypePeriodSetting, model.ActivityActionPermissionChanged, callerID, model.JSONMap{
			"criteria_setting_enabled":         p.CriteriaSettingEnabled,
			"self_evaluation_setting_enabled":  p.SelfEvaluationSettingEnabled,
			"final_evaluation_setting_enabled": p.FinalEvaluationSettingEnabled,
		})
		return nil
	})
}

// ────────────────────── 状态转换 ──────────────────────

// Start 管理员手动开始；与自动调度一致，开始后落在 setup 阶段
func (s *evaluationPeriodService) Start(ctx context.Context, id string, callerID string) (*dto.EvaluationPeriodResponse, error) {
	return s.mutate(ctx, id, callerID, "开始评估周期失败", func(txRepo *repository.Repository, p *model.EvaluationPeriod, journal *activityJournal) error {
		if err := s.transitioner.start(ctx, txRepo, p, callerID, journal); err != nil {
			return err
		}
		_, err := s.transitioner.enterSetup(ctx, txRepo, p, callerID, journal)
		return err
	})
}

func (s *evaluationPeriodService) Complete(ctx context.Context, id string, callerID string) (*dto.EvaluationPeriodResponse, error) {
	return s.mutate(ctx, id, callerID, "完成评估周期失败", func(txRepo *repository.Repository, p *model.EvaluationPeriod, journal *activityJournal) error {
		if err := p.Complete(callerID, s.clock.Now()); err != nil {
			return err
		}
		if err := txRepo.EvaluationPeriod.Update(ctx, p); err != nil {
			return err
		}
		journal.add(p.PeriodID, model.ActivityTypePeriodLifecycle, model.ActivityActionCompleted, callerID, model.JSONMap{
			"phase": string(p.PhaseValue()),
		})
		return nil
	})
}

func (s *evaluationPeriodService) RevertToWaiting(ctx context.Context, id string, callerID string) (*dto.EvaluationPeriodResponse, error) {
	return s.mutate(ctx, id, callerID, "回退评估周期失败", func(txRepo *repository.Repository, p *model.EvaluationPeriod, journal *activityJournal) error {
		from := p.PhaseValue()
		if err := p.RevertToWaiting(callerID, s.clock.Now()); err != nil {
			return err
		}
		if err := txRepo.EvaluationPeriod.Update(ctx, p); err != nil {
			return err
		}
		journal.add(p.PeriodID, model.ActivityTypePeriodLifecycle, model.ActivityActionReverted, callerID, model.JSONMap{
			"from_phase": string(from),
		})
		return nil
	})
}

// ChangePhase 手动推进阶段，只能推进到当前阶段的唯一后继
func (s *evaluationPeriodService) ChangePhase(ctx context.Context, id string, targetPhase string, callerID string) (*dto.EvaluationPeriodResponse, error) {
	target := model.PeriodPhase(strings.TrimSpace(targetPhase))
	if target == model.PhaseWaiting || !model.IsValidPhase(target) {
		return nil, fmt.Errorf("%w: 不支持的目标阶段 %q", ErrPeriodBusinessRule, targetPhase)
	}
	return s.mutate(ctx, id, callerID, "变更评估阶段失败", func(txRepo *repository.Repository, p *model.EvaluationPeriod, journal *activityJournal) error {
		return s.transitioner.changePhase(ctx, txRepo, p, target, callerID, "manual", journal)
	})
}

// ────────────────────── Delete ──────────────────────

func (s *evaluationPeriodService) Delete(ctx context.Context, id string, callerID string) error {
	if err := s.validateRefs(id, callerID); err != nil {
		return err
	}

	var (
		journal      activityJournal
		unregistered int64
	)
	err := s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		period, err := loadPeriod(ctx, txRepo, id)
		if err != nil {
			return err
		}
		if err := checkDeletable(period); err != nil {
			return err
		}
		if unregistered, err = txRepo.PeriodParticipant.UnregisterAll(ctx, id, callerID); err != nil {
			return err
		}
		if err := txRepo.EvaluationPeriod.Delete(ctx, id, callerID); err != nil {
			return err
		}
		journal.add(id, model.ActivityTypePeriodLifecycle, model.ActivityActionDeleted, callerID, model.JSONMap{
			"participants_unregistered": unregistered,
		})
		return nil
	})
	if err != nil {
		s.logUnexpected("删除评估周期失败", id, err)
		return err
	}

	journal.flush(ctx, s.repo, s.logger)
	s.logger.Info("评估周期已删除",
		zap.String("period_id", id),
		zap.Int64("participants_unregistered", unregistered),
		zap.String("caller", callerID))
	return nil
}

// checkDeletable 删除前的业务规则检查，目前任何状态的周期都允许删除
func checkDeletable(_ *model.EvaluationPeriod) error {
	return nil
}

// ────────────────────── 查询 ──────────────────────

func (s *evaluationPeriodService) GetByID(ctx context.Context, id string) (*dto.EvaluationPeriodResponse, error) {
	if err := validateIdentifier("评估周期ID", id); err != nil {
		return nil, err
	}
	period, err := loadPeriod(ctx, s.repo, id)
	if err != nil {
		s.logUnexpected("查询评估周期失败", id, err)
		return nil, err
	}
	return s.toPeriodResponse(period), nil
}

// ListActive 列出进行中的评估周期
func (s *evaluationPeriodService) ListActive(ctx context.Context) ([]dto.EvaluationPeriodResponse, error) {
	periods, err := s.repo.EvaluationPeriod.ListByStatuses(ctx, model.PeriodStatusInProgress)
	if err != nil {
		s.logger.Error("列出进行中的评估周期失败", zap.Error(err))
		return nil, err
	}
	return s.toPeriodResponses(periods), nil
}

func (s *evaluationPeriodService) ListPaged(ctx context.Context, req *dto.PaginationRequest) ([]dto.EvaluationPeriodResponse, int64, error) {
	periods, total, err := s.repo.EvaluationPeriod.List(ctx, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("分页查询评估周期失败", zap.Error(err))
		return nil, 0, err
	}
	return s.toPeriodResponses(periods), total, nil
}

// LookupGrade 按周期的等级区间把分数映射为等级
func (s *evaluationPeriodService) LookupGrade(ctx context.Context, id string, score float64) (*dto.GradeLookupResponse, error) {
	if err := validateIdentifier("评估周期ID", id); err != nil {
		return nil, err
	}
	period, err := loadPeriod(ctx, s.repo, id)
	if err != nil {
		s.logUnexpected("查询评估周期失败", id, err)
		return nil, err
	}

	resp := &dto.GradeLookupResponse{Score: score}
	if match, ok := period.GradeRanges.Lookup(score); ok {
		resp.Matched = true
		resp.Grade = match.Grade
		resp.SubGrade = match.SubGrade
	}
	return resp, nil
}

func (s *evaluationPeriodService) ListParticipants(ctx context.Context, id string, includeExcluded bool) ([]dto.PeriodParticipantResponse, error) {
	if err := validateIdentifier("评估周期ID", id); err != nil {
		return nil, err
	}
	if _, err := loadPeriod(ctx, s.repo, id); err != nil {
		s.logUnexpected("查询评估周期失败", id, err)
		return nil, err
	}

	participants, err := s.repo.PeriodParticipant.ListByPeriod(ctx, id, includeExcluded)
	if err != nil {
		s.logger.Error("查询评估周期参与者失败", zap.String("period_id", id), zap.Error(err))
		return nil, err
	}

	result := make([]dto.PeriodParticipantResponse, 0, len(participants))
	for i := range participants {
		p := &participants[i]
		item := dto.PeriodParticipantResponse{
			ID:             p.ParticipantID,
			EmployeeID:     p.EmployeeID,
			IsExcluded:     p.IsExcluded,
			ExcludedReason: p.ExcludedReason,
		}
		if p.ExcludedAt != nil {
			item.ExcludedAt = s.formatTime(p.ExcludedAt)
		}
		result = append(result, item)
	}
	return result, nil
}

func (s *evaluationPeriodService) ListActivityLogs(ctx context.Context, id string, query *dto.ActivityLogQuery) ([]dto.PeriodActivityLogResponse, error) {
	if err := validateIdentifier("评估周期ID", id); err != nil {
		return nil, err
	}
	if _, err := loadPeriod(ctx, s.repo, id); err != nil {
		s.logUnexpected("查询评估周期失败", id, err)
		return nil, err
	}

	logs, err := s.repo.PeriodActivityLog.ListByPeriod(ctx, id, query.GetLimit())
	if err != nil {
		s.logger.Error("查询评估周期活动日志失败", zap.String("period_id", id), zap.Error(err))
		return nil, err
	}

	result := make([]dto.PeriodActivityLogResponse, 0, len(logs))
	for i := range logs {
		l := &logs[i]
		result = append(result, dto.PeriodActivityLogResponse{
			ID:           l.ActivityLogID,
			ActivityType: l.ActivityType,
			Action:       l.Action,
			OperatorID:   l.OperatorID,
			Metadata:     l.Metadata,
			CreatedAt:    *s.formatTime(&l.CreatedAt),
		})
	}
	return result, nil
}

// ────────────────────── TriggerAutoPhaseSweep ──────────────────────

// TriggerAutoPhaseSweep 手动执行一次自动阶段扫描
func (s *evaluationPeriodService) TriggerAutoPhaseSweep(ctx context.Context) (*dto.AutoPhaseSweepResponse, error) {
	moved, err := s.scheduler.Sweep(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.AutoPhaseSweepResponse{Moved: moved}, nil
}

// ── 内部辅助方法 ──

// mutate 事务内重新读取周期 → 执行 fn → 提交后写入活动日志
func (s *evaluationPeriodService) mutate(
	ctx context.Context,
	id, callerID, failMsg string,
	fn func(txRepo *repository.Repository, p *model.EvaluationPeriod, journal *activityJournal) error,
) (*dto.EvaluationPeriodResponse, error) {
	if err := s.validateRefs(id, callerID); err != nil {
		return nil, err
	}

	var (
		result  *model.EvaluationPeriod
		journal activityJournal
	)
	err := s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		period, err := loadPeriod(ctx, txRepo, id)
		if err != nil {
			return err
		}
		if err := fn(txRepo, period, &journal); err != nil {
			return err
		}
		result = period
		return nil
	})
	if err != nil {
		s.logUnexpected(failMsg, id, err)
		return nil, err
	}

	journal.flush(ctx, s.repo, s.logger)
	return s.toPeriodResponse(result), nil
}

func (s *evaluationPeriodService) validateRefs(id, callerID string) error {
	if err := validateIdentifier("评估周期ID", id); err != nil {
		return err
	}
	return validateIdentifier("操作人ID", callerID)
}

// logUnexpected 业务错误直接返回给调用方，仅记录存储层等非预期错误
func (s *evaluationPeriodService) logUnexpected(msg, id string, err error) {
	if isPeriodDomainError(err) {
		return
	}
	if errors.Is(err, pkgerrors.ErrOptimisticLock) {
		s.logger.Warn(msg, zap.String("period_id", id), zap.Error(err))
		return
	}
	s.logger.Error(msg, zap.String("period_id", id), zap.Error(err))
}

func isPeriodDomainError(err error) bool {
	for _, target := range []error{
		ErrPeriodNotFound,
		ErrPeriodRequiredMissing,
		ErrPeriodInvalidFormat,
		ErrPeriodDateRangeInvalid,
		ErrPeriodBusinessRule,
		ErrPeriodNameDuplicate,
		ErrPeriodOverlap,
		ErrPeriodInvalidTransition,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// applyUpdate 把请求中出现的字段写入周期，返回实际修改的字段名
func applyUpdate(p *model.EvaluationPeriod, req *dto.UpdateEvaluationPeriodRequest) []string {
	var fields []string

	if req.Name != nil {
		if name := strings.TrimSpace(*req.Name); name != p.Name {
			p.Name = name
			fields = append(fields, "name")
		}
	}
	if req.Description != nil && *req.Description != p.Description {
		p.Description = *req.Description
		fields = append(fields, "description")
	}
	if req.MaxSelfEvaluationRate != nil && *req.MaxSelfEvaluationRate != p.MaxSelfEvaluationRate {
		p.MaxSelfEvaluationRate = *req.MaxSelfEvaluationRate
		fields = append(fields, "max_self_evaluation_rate")
	}
	if req.GradeRanges != nil {
		p.GradeRanges = toModelGradeRanges(*req.GradeRanges)
		fields = append(fields, "grade_ranges")
	}
	if req.TouchesSchedule() {
		before := scheduleOf(p)
		merged := mergedSchedule(p, req)
		merged.applyTo(p)
		if !timeEqual(before.StartDate, merged.StartDate) {
			fields = append(fields, "start_date")
		}
		for _, phase := range deadlinePhases {
			if !timeEqual(before.Deadlines[phase], merged.Deadlines[phase]) {
				fields = append(fields, string(phase)+"_deadline")
			}
		}
	}
	return fields
}

func timeEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func toModelGradeRanges(in []dto.GradeRangeDTO) model.GradeRanges {
	out := make(model.GradeRanges, 0, len(in))
	for _, r := range in {
		gr := model.GradeRange{
			Grade:    r.Grade,
			MinRange: r.MinRange,
			MaxRange: r.MaxRange,
		}
		for _, sub := range r.SubGrades {
			gr.SubGrades = append(gr.SubGrades, model.SubGradeRange{
				SubGrade: sub.SubGrade,
				MinRange: sub.MinRange,
				MaxRange: sub.MaxRange,
			})
		}
		out = append(out, gr)
	}
	return out
}

func toGradeRangeDTOs(in model.GradeRanges) []dto.GradeRangeDTO {
	out := make([]dto.GradeRangeDTO, 0, len(in))
	for _, r := range in {
		item := dto.GradeRangeDTO{
			Grade:    r.Grade,
			MinRange: r.MinRange,
			MaxRange: r.MaxRange,
		}
		for _, sub := range r.SubGrades {
			item.SubGrades = append(item.SubGrades, dto.SubGradeRangeDTO{
				SubGrade: sub.SubGrade,
				MinRange: sub.MinRange,
				MaxRange: sub.MaxRange,
			})
		}
		out = append(out, item)
	}
	return out
}

// formatTime 以组织基准时区输出 RFC3339
func (s *evaluationPeriodService) formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.In(s.clock.Now().Location()).Format(time.RFC3339)
	return &v
}

func (s *evaluationPeriodService) toPeriodResponse(p *model.EvaluationPeriod) *dto.EvaluationPeriodResponse {
	resp := &dto.EvaluationPeriodResponse{
		ID:                            p.PeriodID,
		Name:                          p.Name,
		Description:                   p.Description,
		StartDate:                     *s.formatTime(&p.StartDate),
		SetupDeadline:                 s.formatTime(p.SetupDeadline),
		PerformanceDeadline:           s.formatTime(p.PerformanceDeadline),
		SelfEvaluationDeadline:        s.formatTime(p.SelfEvaluationDeadline),
		PeerEvaluationDeadline:        s.formatTime(p.PeerEvaluationDeadline),
		CompletedDate:                 s.formatTime(p.CompletedDate),
		Status:                        string(p.Status),
		CriteriaSettingEnabled:        p.CriteriaSettingEnabled,
		SelfEvaluationSettingEnabled:  p.SelfEvaluationSettingEnabled,
		FinalEvaluationSettingEnabled: p.FinalEvaluationSettingEnabled,
		MaxSelfEvaluationRate:         p.MaxSelfEvaluationRate,
		GradeRanges:                   toGradeRangeDTOs(p.GradeRanges),
		Version:                       p.Version,
		CreatedAt:                     *s.formatTime(&p.CreatedAt),
		UpdatedAt:                     *s.formatTime(&p.UpdatedAt),
	}
	if p.CurrentPhase != nil {
		phase := string(*p.CurrentPhase)
		resp.CurrentPhase = &phase
	}
	return resp
}

func (s *evaluationPeriodService) toPeriodResponses(periods []model.EvaluationPeriod) []dto.EvaluationPeriodResponse {
	result := make([]dto.EvaluationPeriodResponse, 0, len(periods))
	for i := range periods {
		result = append(result, *s.toPeriodResponse(&periods[i]))
	}
	return result
}
