package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/GTD-web/ems-backend-sub011/internal/dto"
	"github.com/GTD-web/ems-backend-sub011/internal/model"
	"github.com/GTD-web/ems-backend-sub011/internal/repository"
)

// ── 评估周期校验规则 ──

const (
	periodNameMaxLen        = 255
	periodDescriptionMaxLen = 1000
	periodMinSpanDays       = 7
	periodMaxSpanDays       = 365
	selfEvaluationRateMin   = 0
	selfEvaluationRateMax   = 200
)

// 字母、数字、空格、下划线、连字符、括号
var periodNamePattern = regexp.MustCompile(`^[\p{L}\p{N} _\-()]+$`)

var deadlineLabels = map[model.PeriodPhase]string{
	model.PhaseSetup:          "评估设定截止时间",
	model.PhasePerformance:    "业绩评估截止时间",
	model.PhaseSelfEvaluation: "自评截止时间",
	model.PhasePeerEvaluation: "同行评价截止时间",
}

// deadlinePhases 截止时间的声明顺序
var deadlinePhases = []model.PeriodPhase{
	model.PhaseSetup,
	model.PhasePerformance,
	model.PhaseSelfEvaluation,
	model.PhasePeerEvaluation,
}

// periodSchedule 开始时间 + 四个阶段截止时间
type periodSchedule struct {
	StartDate *time.Time
	Deadlines map[model.PeriodPhase]*time.Time
}

func scheduleOf(p *model.EvaluationPeriod) periodSchedule {
	start := p.StartDate
	return periodSchedule{
		StartDate: &start,
		Deadlines: map[model.PeriodPhase]*time.Time{
			model.PhaseSetup:          p.SetupDeadline,
			model.PhasePerformance:    p.PerformanceDeadline,
			model.PhaseSelfEvaluation: p.SelfEvaluationDeadline,
			model.PhasePeerEvaluation: p.PeerEvaluationDeadline,
		},
	}
}

// merge 用 override 中的非 nil 字段覆盖当前日程
func (s periodSchedule) merge(start *time.Time, deadlines map[model.PeriodPhase]*time.Time) periodSchedule {
	out := periodSchedule{StartDate: s.StartDate, Deadlines: make(map[model.PeriodPhase]*time.Time, len(deadlinePhases))}
	for _, phase := range deadlinePhases {
		out.Deadlines[phase] = s.Deadlines[phase]
	}
	if start != nil {
		out.StartDate = start
	}
	for phase, at := range deadlines {
		if at != nil {
			out.Deadlines[phase] = at
		}
	}
	return out
}

// applyTo 将日程写回周期
func (s periodSchedule) applyTo(p *model.EvaluationPeriod) {
	if s.StartDate != nil {
		p.StartDate = *s.StartDate
	}
	p.SetupDeadline = s.Deadlines[model.PhaseSetup]
	p.PerformanceDeadline = s.Deadlines[model.PhasePerformance]
	p.SelfEvaluationDeadline = s.Deadlines[model.PhaseSelfEvaluation]
	p.PeerEvaluationDeadline = s.Deadlines[model.PhasePeerEvaluation]
}

// deadlineOrderRule 两个截止时间之间的先后约束。
// when 为 nil 时只要两端都有值即校验；否则仅在 when 成立（中间阶段缺失）时校验。
type deadlineOrderRule struct {
	earlier model.PeriodPhase
	later   model.PeriodPhase
	when    func(s periodSchedule) bool
}

func missing(phases ...model.PeriodPhase) func(s periodSchedule) bool {
	return func(s periodSchedule) bool {
		for _, p := range phases {
			if s.Deadlines[p] != nil {
				return false
			}
		}
		return true
	}
}

var deadlineOrderRules = []deadlineOrderRule{
	{earlier: model.PhaseSetup, later: model.PhasePerformance},
	{earlier: model.PhasePerformance, later: model.PhaseSelfEvaluation},
	{earlier: model.PhaseSelfEvaluation, later: model.PhasePeerEvaluation},
	{earlier: model.PhaseSetup, later: model.PhaseSelfEvaluation, when: missing(model.PhasePerformance)},
	{earlier: model.PhaseSetup, later: model.PhasePeerEvaluation, when: missing(model.PhasePerformance, model.PhaseSelfEvaluation)},
	{earlier: model.PhasePerformance, later: model.PhasePeerEvaluation, when: missing(model.PhaseSelfEvaluation)},
}

// ────────────────────── 纯规则 ──────────────────────

func validateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: 评估周期名称不能为空", ErrPeriodRequiredMissing)
	}
	if utf8.RuneCountInString(trimmed) > periodNameMaxLen {
		return fmt.Errorf("%w: 评估周期名称不能超过 %d 个字符", ErrPeriodInvalidFormat, periodNameMaxLen)
	}
	if !periodNamePattern.MatchString(trimmed) {
		return fmt.Errorf("%w: 评估周期名称只能包含字母、数字、空格、下划线、连字符和括号", ErrPeriodInvalidFormat)
	}
	return nil
}

func validateDescription(desc string) error {
	if utf8.RuneCountInString(desc) > periodDescriptionMaxLen {
		return fmt.Errorf("%w: 描述不能超过 %d 个字符", ErrPeriodInvalidFormat, periodDescriptionMaxLen)
	}
	return nil
}

func validateSelfEvaluationRate(rate int) error {
	if rate < selfEvaluationRateMin || rate > selfEvaluationRateMax {
		return fmt.Errorf("%w: 自评最高比例必须在 %d%%~%d%% 之间",
			ErrPeriodBusinessRule, selfEvaluationRateMin, selfEvaluationRateMax)
	}
	return nil
}

// validateIdentifier 校验 UUID 格式的标识符
func validateIdentifier(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: %s不能为空", ErrPeriodRequiredMissing, field)
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s格式无效", ErrPeriodInvalidFormat, field)
	}
	return nil
}

// validateSchedule 校验开始时间、截止时间先后顺序以及周期跨度
func validateSchedule(s periodSchedule) error {
	if s.StartDate == nil {
		return fmt.Errorf("%w: 开始时间不能为空", ErrPeriodRequiredMissing)
	}

	for _, phase := range deadlinePhases {
		at := s.Deadlines[phase]
		if at != nil && !at.After(*s.StartDate) {
			return fmt.Errorf("%w: %s必须晚于开始时间", ErrPeriodDateRangeInvalid, deadlineLabels[phase])
		}
	}

	for _, rule := range deadlineOrderRules {
		earlier, later := s.Deadlines[rule.earlier], s.Deadlines[rule.later]
		if earlier == nil || later == nil {
			continue
		}
		if rule.when != nil && !rule.when(s) {
			continue
		}
		if !later.After(*earlier) {
			return fmt.Errorf("%w: %s必须晚于%s",
				ErrPeriodDateRangeInvalid, deadlineLabels[rule.later], deadlineLabels[rule.earlier])
		}
	}

	if end := s.Deadlines[model.PhasePeerEvaluation]; end != nil {
		span := end.Sub(*s.StartDate)
		if span < periodMinSpanDays*24*time.Hour || span > periodMaxSpanDays*24*time.Hour {
			return fmt.Errorf("%w: 评估周期跨度必须在 %d~%d 天之间",
				ErrPeriodDateRangeInvalid, periodMinSpanDays, periodMaxSpanDays)
		}
	}
	return nil
}

// ────────────────────── 依赖存储的规则 ──────────────────────

func checkNameAvailable(ctx context.Context, repo *repository.Repository, name, excludeID string) error {
	exists, err := repo.EvaluationPeriod.ExistsByName(ctx, strings.TrimSpace(name), excludeID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrPeriodNameDuplicate, strings.TrimSpace(name))
	}
	return nil
}

// checkNoOverlap 仅当候选周期同时具备开始时间与同行评价截止时间时比较
func checkNoOverlap(ctx context.Context, repo *repository.Repository, s periodSchedule, excludeID string) error {
	end := s.Deadlines[model.PhasePeerEvaluation]
	if s.StartDate == nil || end == nil {
		return nil
	}
	peers, err := repo.EvaluationPeriod.ListOverlapping(ctx, *s.StartDate, *end, excludeID)
	if err != nil {
		return err
	}
	if len(peers) > 0 {
		return fmt.Errorf("%w: 与「%s」时间重叠", ErrPeriodOverlap, peers[0].Name)
	}
	return nil
}

// ────────────────────── 组合入口 ──────────────────────

func createSchedule(req *dto.CreateEvaluationPeriodRequest) periodSchedule {
	return periodSchedule{
		StartDate: req.StartDate,
		Deadlines: map[model.PeriodPhase]*time.Time{
			model.PhaseSetup:          req.SetupDeadline,
			model.PhasePerformance:    req.PerformanceDeadline,
			model.PhaseSelfEvaluation: req.SelfEvaluationDeadline,
			model.PhasePeerEvaluation: req.PeerEvaluationDeadline,
		},
	}
}

// validateCreate 创建前的完整校验：必填、格式、日期、业务规则、唯一性、重叠
func validateCreate(ctx context.Context, repo *repository.Repository, req *dto.CreateEvaluationPeriodRequest) error {
	if err := validateName(req.Name); err != nil {
		return err
	}
	if req.Description != nil {
		if err := validateDescription(*req.Description); err != nil {
			return err
		}
	}
	schedule := createSchedule(req)
	if err := validateSchedule(schedule); err != nil {
		return err
	}
	if req.MaxSelfEvaluationRate != nil {
		if err := validateSelfEvaluationRate(*req.MaxSelfEvaluationRate); err != nil {
			return err
		}
	}
	if err := checkNameAvailable(ctx, repo, req.Name, ""); err != nil {
		return err
	}
	return checkNoOverlap(ctx, repo, schedule, "")
}

// validateUpdate 更新前校验：只校验本次提交的字段，日程类字段与现有值合并后整体校验
func validateUpdate(ctx context.Context, repo *repository.Repository, existing *model.EvaluationPeriod, req *dto.UpdateEvaluationPeriodRequest) error {
	nameChanged := req.Name != nil && strings.TrimSpace(*req.Name) != existing.Name
	startChanged := req.StartDate != nil && !req.StartDate.Equal(existing.StartDate)

	if existing.Status == model.PeriodStatusCompleted && (nameChanged || startChanged) {
		return fmt.Errorf("%w: 已完成的评估周期不能修改名称或开始时间", ErrPeriodBusinessRule)
	}
	if existing.Status != model.PeriodStatusWaiting && startChanged {
		return fmt.Errorf("%w: 仅等待中的评估周期可以修改开始时间", ErrPeriodBusinessRule)
	}

	if req.Name != nil {
		if err := validateName(*req.Name); err != nil {
			return err
		}
	}
	if req.Description != nil {
		if err := validateDescription(*req.Description); err != nil {
			return err
		}
	}
	if req.MaxSelfEvaluationRate != nil {
		if err := validateSelfEvaluationRate(*req.MaxSelfEvaluationRate); err != nil {
			return err
		}
	}

	if req.TouchesSchedule() {
		merged := mergedSchedule(existing, req)
		if err := validateSchedule(merged); err != nil {
			return err
		}
		if err := checkNoOverlap(ctx, repo, merged, existing.PeriodID); err != nil {
			return err
		}
	}

	if nameChanged {
		if err := checkNameAvailable(ctx, repo, *req.Name, existing.PeriodID); err != nil {
			return err
		}
	}
	return nil
}

func mergedSchedule(existing *model.EvaluationPeriod, req *dto.UpdateEvaluationPeriodRequest) periodSchedule {
	return scheduleOf(existing).merge(req.StartDate, map[model.PeriodPhase]*time.Time{
		model.PhaseSetup:          req.SetupDeadline,
		model.PhasePerformance:    req.PerformanceDeadline,
		model.PhaseSelfEvaluation: req.SelfEvaluationDeadline,
		model.PhasePeerEvaluation: req.PeerEvaluationDeadline,
	})
}
