package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GTD-web/ems-backend-sub011/internal/dto"
	"github.com/GTD-web/ems-backend-sub011/internal/service"
	pkgerrors "github.com/GTD-web/ems-backend-sub011/pkg/errors"
	"github.com/GTD-web/ems-backend-sub011/pkg/response"
)

// EvaluationPeriodHandler 评估周期模块 HTTP 处理器
type EvaluationPeriodHandler struct {
	periodSvc service.EvaluationPeriodService
}

// NewEvaluationPeriodHandler 创建 EvaluationPeriodHandler
func NewEvaluationPeriodHandler(periodSvc service.EvaluationPeriodService) *EvaluationPeriodHandler {
	return &EvaluationPeriodHandler{periodSvc: periodSvc}
}

// ────────────────────── 查询 ──────────────────────

// ListPeriods 分页获取评估周期
// GET /api/v1/evaluation-periods
func (h *EvaluationPeriodHandler) ListPeriods(c *gin.Context) {
	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.periodSvc.ListPaged(c.Request.Context(), &req)
	if err != nil {
		h.handleEvaluationPeriodError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// ListActivePeriods 获取进行中的评估周期
// GET /api/v1/evaluation-periods/active
func (h *EvaluationPeriodHandler) ListActivePeriods(c *gin.Context) {
	list, err := h.periodSvc.ListActive(c.Request.Context())
	if err != nil {
		h.handleEvaluationPeriodError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// GetPeriod 获取评估周期详情
// GET /api/v1/evaluation-periods/:id
func (h *EvaluationPeriodHandler) GetPeriod(c *gin.Context) {
	id, ok := pathID(c, "评估周期")
	if !ok {
		return
	}

	period, err := h.periodSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleEvaluationPeriodError(c, err)
		return
	}

	response.OK(c, period)
}

// LookupGrade 按分数查询等级
// GET /api/v1/evaluation-periods/:id/grade?score=85
func (h *EvaluationPeriodHandler) LookupGrade(c *gin.Context) {
	id, ok := pathID(c, "评估周期")
	if !ok {
		return
	}

	var q dto.GradeLookupQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "score 参数缺失或无效")
		return
	}

	result, err := h.periodSvc.LookupGrade(c.Request.Context(), id, *q.Score)
	if err != nil {
		h.handleEvaluationPeriodError(c, err)
		return
	}

	response.OK(c, result)
}

// ListParticipants 获取周期参与者
// GET /api/v1/evaluation-periods/:id/participants
func (h *EvaluationPeriodHandler) ListParticipants(c *gin.Context) {
	id, ok := pathID(c, "评估周期")
	if !ok {
		return
	}

	var q dto.ParticipantQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, err := h.periodSvc.ListParticipants(c.Request.Context(), id, q.IncludeExcluded)
	if err != nil {
		h.handleEvaluationPeriodError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// ListActivityLogs 获取周期活动日志
// GET /api/v1/evaluation-periods/:id/activity-logs
func (h *EvaluationPeriodHandler) ListActivityLogs(c *gin.Context) {
	id, ok := pathID(c, "评估周期")
	if !ok {
		return
	}

	var q dto.ActivityLogQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, err := h.periodSvc.ListActivityLogs(c.Request.Context(), id, &q)
	if err != nil {
		h.handleEvaluationPeriodError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// ────────────────────── 创建 / 修改 / 删除 ──────────────────────

// CreatePeriod 创建评估周期
// POST /api/v1/evaluation-periods
func (h *EvaluationPeriodHandler) CreatePeriod(c *gin.Context) {
	var req dto.CreateEvaluationPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	period, err := h.periodSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleEvaluationPeriodError(c, err)
		return
	}

	response.Created(c, period)
}

// UpdatePeriod 通用更新
// PUT /api/v1/evaluation-periods/:id
func (h *EvaluationPeriodHandler) UpdatePeriod(c *gin.Context) {
	id, ok := pathID(c, "评估周期")
	if !ok {
		return
	}

	var req dto.UpdateEvaluationPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	period, err := h.periodSvc.Update(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleEvaluationPeriodError(c, err)
		return
	}

	response.OK(c, period)
}

// UpdateBasicInfo 更新名称、描述、自评上限
// PATCH /api/v1/evaluation-periods/:id/basic-info
func (h *EvaluationPeriodHandler) UpdateBasicInfo(c *gin.Context) {
	id, ok := pathID(c, "评估周期")
	if !ok {
		return
	}

	var req dto.UpdateBasicInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	period, err := h.periodSvc.UpdateBasicInfo(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleEvaluationPeriodError(c, err)
		return
	}

	response.OK(c, period)
}

// UpdateSchedule 更新开始时间与截止时间
// PATCH /api/v1/evaluation-periods/:id/schedule
func (h *EvaluationPeriodHandler) UpdateSchedule(c *gin.Context) {
	id, ok := pathID(c, "评估周期")
	if !ok {
		return
	}

	var req dto.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	period, err := h.periodSvc.UpdateSchedule(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleEvaluationPeriodError(c, err)
		return
	}

	response.OK(c, period)
}

// UpdateDeadline 更新单个阶段截止时间
// PATCH /api/v1/evaluation-periods/:id/deadlines/:kind
// kind: setup / performance / self-evaluation / peer-evaluation
func (h *EvaluationPeriodHandler) UpdateDeadline(c *gin.Context) {
	id, ok := pathID(c, "评估周期")
	if !ok {
		return
	}

	var req dto.UpdateDeadlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	period, err := h.periodSvc.UpdateDeadline(c.Request.Context(), id, c.Param("kind"), *req.Deadline, callerID)
	if err != nil {
		h.handleEvaluationPeriodError(c, err)
		return
	}

	response.OK(c, period)
}

// UpdateGradeRanges 整体替换等级区间
// PUT /api/v1/evaluation-periods/:id/grade-ranges
func (h *EvaluationPeriodHandler) UpdateGradeRanges(c *gin.Context) {
	id, ok := pathID(c, "评估周期")
	if !ok {
		return
	}

	var req dto.UpdateGradeRangesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	period, err := h.periodSvc.UpdateGradeRanges(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleEvaluationPeriodError(c, err)
		return
	}

	response.OK(c, period)
}

// SetManualPermissions 修改手动设置开关
// PATCH /api/v1/evaluation-periods/:id/manual-permissions
func (h *EvaluationPeriodHandler) SetManualPermissions(c *gin.Context) {
	id, ok := pathID(c, "评估周期")
	if !ok {
		return
	}

	var req dto.ManualPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	period, err := h.periodSvc.SetManualPermissions(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleEvaluationPeriodError(c, err)
		return
	}

	response.OK(c, period)
}

// DeletePeriod 软删除评估周期
// DELETE /api/v1/evaluation-periods/:id
func (h *EvaluationPeriodHandler) DeletePeriod(c *gin.Context) {
	id, ok := pathID(c, "评估周期")
	if !ok {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.periodSvc.Delete(c.Request.Context(), id, callerID); err != nil {
		h.handleEvaluationPeriodError(c, err)
		return
	}

	response.OK(c, nil)
}

// ────────────────────── 状态 / 阶段 ──────────────────────

// StartPeriod 启动评估周期（阶段落到 setup）
// POST /api/v1/evaluation-periods/:id/start
func (h *EvaluationPeriodHandler) StartPeriod(c *gin.Context) {
	id, ok := pathID(c, "评估周期")
	if !ok {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	period, err := h.periodSvc.Start(c.Request.Context(), id, callerID)
	if err != nil {
		h.handleEvaluationPeriodError(c, err)
		return
	}

	response.OK(c, period)
}

// CompletePeriod 完成评估周期
// POST /api/v1/evaluation-periods/:id/complete
func (h *EvaluationPeriodHandler) CompletePeriod(c *gin.Context) {
	id, ok := pathID(c, "评估周期")
	if !ok {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	period, err := h.periodSvc.Complete(c.Request.Context(), id, callerID)
	if err != nil {
		h.handleEvaluationPeriodError(c, err)
		return
	}

	response.OK(c, period)
}

// RevertPeriod 回退到等待状态
// POST /api/v1/evaluation-periods/:id/revert
func (h *EvaluationPeriodHandler) RevertPeriod(c *gin.Context) {
	id, ok := pathID(c, "评估周期")
	if !ok {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	period, err := h.periodSvc.RevertToWaiting(c.Request.Context(), id, callerID)
	if err != nil {
		h.handleEvaluationPeriodError(c, err)
		return
	}

	response.OK(c, period)
}

// ChangePhase 手动变更阶段
// PUT /api/v1/evaluation-periods/:id/phase
func (h *EvaluationPeriodHandler) ChangePhase(c *gin.Context) {
	id, ok := pathID(c, "评估周期")
	if !ok {
		return
	}

	var req dto.ChangePhaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	period, err := h.periodSvc.ChangePhase(c.Request.Context(), id, req.TargetPhase, callerID)
	if err != nil {
		h.handleEvaluationPeriodError(c, err)
		return
	}

	response.OK(c, period)
}

// TriggerAutoPhaseSweep 手动触发一次自动阶段扫描
// POST /api/v1/evaluation-periods/auto-phase/sweep
func (h *EvaluationPeriodHandler) TriggerAutoPhaseSweep(c *gin.Context) {
	result, err := h.periodSvc.TriggerAutoPhaseSweep(c.Request.Context())
	if err != nil {
		h.handleEvaluationPeriodError(c, err)
		return
	}

	response.OK(c, result)
}

// handleEvaluationPeriodError 统一处理评估周期模块业务错误
func (h *EvaluationPeriodHandler) handleEvaluationPeriodError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPeriodNotFound):
		response.NotFound(c, 15201, "评估周期不存在")
	case errors.Is(err, service.ErrPeriodRequiredMissing):
		response.ErrorWithDetails(c, http.StatusBadRequest, 15202, "缺少必填字段", err.Error())
	case errors.Is(err, service.ErrPeriodInvalidFormat):
		response.ErrorWithDetails(c, http.StatusBadRequest, 15203, "字段格式无效", err.Error())
	case errors.Is(err, service.ErrPeriodDateRangeInvalid):
		response.ErrorWithDetails(c, http.StatusBadRequest, 15204, "评估周期日期范围无效", err.Error())
	case errors.Is(err, service.ErrPeriodBusinessRule):
		response.UnprocessableEntity(c, 15205, "违反评估周期业务规则", err.Error())
	case errors.Is(err, service.ErrPeriodNameDuplicate):
		response.Conflict(c, 15206, "评估周期名称已存在", err.Error())
	case errors.Is(err, service.ErrPeriodOverlap):
		response.Conflict(c, 15207, "评估周期时间与已有周期重叠", err.Error())
	case errors.Is(err, service.ErrPeriodInvalidTransition):
		response.UnprocessableEntity(c, 15208, "当前状态不允许该操作", err.Error())
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 15209, "评估周期已被其他操作修改，请刷新后重试", "")
	default:
		response.InternalError(c)
	}
}
