package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/GTD-web/ems-backend-sub011/internal/service"
	"github.com/GTD-web/ems-backend-sub011/pkg/response"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	icsContentType  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.PeriodExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.PeriodExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportOverview 导出评估周期总览
// GET /api/v1/evaluation-periods/export
func (h *ExportHandler) ExportOverview(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportOverview(c.Request.Context())
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	writeAttachment(c, filename, xlsxContentType, buf.Bytes())
}

// ExportCalendar 导出单个周期的阶段日历
// GET /api/v1/evaluation-periods/:id/calendar.ics
func (h *ExportHandler) ExportCalendar(c *gin.Context) {
	id, ok := pathID(c, "评估周期")
	if !ok {
		return
	}

	data, filename, err := h.exportSvc.ExportCalendar(c.Request.Context(), id)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	writeAttachment(c, filename, icsContentType, data)
}

// writeAttachment 设置下载响应头并写出文件
func writeAttachment(c *gin.Context, filename, contentType string, data []byte) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, contentType, data)
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportNoPeriods):
		response.NotFound(c, 16101, "暂无可导出的评估周期")
	case errors.Is(err, service.ErrPeriodNotFound):
		response.NotFound(c, 15201, "评估周期不存在")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		response.InternalError(c)
	}
}
