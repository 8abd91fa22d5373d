package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/GTD-web/ems-backend-sub011/internal/model"
	"github.com/GTD-web/ems-backend-sub011/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoPeriods    = errors.New("暂无评估周期")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// PeriodExportService 评估周期导出业务接口
//
// 设计说明：
//   - 总览导出为 Excel (.xlsx)，每个周期一行
//   - 单个周期的开始时间与各阶段截止时间导出为 iCalendar (.ics)，便于订阅到日历
//   - 导出内容以字节返回，由 Handler 层设置 HTTP 响应头后写入 Response
type PeriodExportService interface {
	// ExportOverview 导出全部评估周期总览
	ExportOverview(ctx context.Context) (*bytes.Buffer, string, error)
	// ExportCalendar 导出单个周期的日程日历
	ExportCalendar(ctx context.Context, periodID string) ([]byte, string, error)
}

type periodExportService struct {
	repo   *repository.Repository
	clock  Clock
	logger *zap.Logger
}

// NewPeriodExportService 创建 PeriodExportService 实例
func NewPeriodExportService(repo *repository.Repository, clock Clock, logger *zap.Logger) PeriodExportService {
	return &periodExportService{repo: repo, clock: clock, logger: logger}
}

var statusLabels = map[model.PeriodStatus]string{
	model.PeriodStatusWaiting:    "等待中",
	model.PeriodStatusInProgress: "进行中",
	model.PeriodStatusCompleted:  "已完成",
}

var phaseLabels = map[model.PeriodPhase]string{
	model.PhaseWaiting:        "等待",
	model.PhaseSetup:          "评估设定",
	model.PhasePerformance:    "业绩评估",
	model.PhaseSelfEvaluation: "自评",
	model.PhasePeerEvaluation: "同行评价",
	model.PhaseClosure:        "收尾",
}

// ═══════════════════════════════════════════════════════════
// ExportOverview 导出评估周期总览为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "评估周期"
//   - 第 1 行标题，第 2 行表头，之后每个周期一行（按开始时间升序）
//   - 时间统一按组织基准时区输出

func (s *periodExportService) ExportOverview(ctx context.Context) (*bytes.Buffer, string, error) {
	periods, err := s.repo.EvaluationPeriod.ListByStatuses(ctx,
		model.PeriodStatusWaiting, model.PeriodStatusInProgress, model.PeriodStatusCompleted)
	if err != nil {
		s.logger.Error("查询评估周期失败", zap.Error(err))
		return nil, "", err
	}
	if len(periods) == 0 {
		return nil, "", ErrExportNoPeriods
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "评估周期"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	headers := []string{
		"名称", "状态", "当前阶段", "开始时间",
		"评估设定截止", "业绩评估截止", "自评截止", "同行评价截止",
		"完成时间", "自评上限(%)", "等级数",
	}

	f.SetColWidth(sheetName, "A", "A", 28)
	f.SetColWidth(sheetName, colName(1), colName(2), 12)
	f.SetColWidth(sheetName, colName(3), colName(8), 18)
	f.SetColWidth(sheetName, colName(9), colName(10), 12)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	exportedAt := s.clock.Now()
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("评估周期总览（导出时间 %s）", exportedAt.Format("2006-01-02 15:04")))
	f.MergeCell(sheetName, "A1", cell(colName(len(headers)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", cell(colName(len(headers)-1), 2), headerStyle)

	// 数据行
	row := 3
	for i := range periods {
		p := &periods[i]
		values := []interface{}{
			p.Name,
			statusLabels[p.Status],
			phaseLabel(p.CurrentPhase),
			s.formatCellTime(&p.StartDate),
			s.formatCellTime(p.SetupDeadline),
			s.formatCellTime(p.PerformanceDeadline),
			s.formatCellTime(p.SelfEvaluationDeadline),
			s.formatCellTime(p.PeerEvaluationDeadline),
			s.formatCellTime(p.CompletedDate),
			p.MaxSelfEvaluationRate,
			len(p.GradeRanges),
		}
		for col, v := range values {
			f.SetCellValue(sheetName, cell(colName(col), row), v)
		}
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("评估周期总览_%s.xlsx", exportedAt.Format("20060102"))
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportCalendar 导出周期日程为 iCalendar
// ═══════════════════════════════════════════════════════════
//
// 每个日程节点一个 VEVENT：开始时间 + 已设置的阶段截止时间。
// UID 由周期 ID 与节点类型组成，重复导出时日历客户端会覆盖而不是新增。

func (s *periodExportService) ExportCalendar(ctx context.Context, periodID string) ([]byte, string, error) {
	if err := validateIdentifier("评估周期ID", periodID); err != nil {
		return nil, "", err
	}
	period, err := loadPeriod(ctx, s.repo, periodID)
	if err != nil {
		if !errors.Is(err, ErrPeriodNotFound) {
			s.logger.Error("查询评估周期失败", zap.String("period_id", periodID), zap.Error(err))
		}
		return nil, "", err
	}

	now := s.clock.Now()
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//ems//evaluation-period//CN")
	cal.SetXWRCalName(period.Name)
	cal.SetXWRTimezone(now.Location().String())

	addEvent := func(key, summary string, at time.Time) {
		event := cal.AddEvent(fmt.Sprintf("%s-%s@ems-evaluation", period.PeriodID, key))
		event.SetDtStampTime(now)
		event.SetStartAt(at)
		event.SetEndAt(at.Add(time.Hour))
		event.SetSummary(fmt.Sprintf("%s · %s", period.Name, summary))
		if period.Description != "" {
			event.SetDescription(period.Description)
		}
	}

	addEvent("start", "评估开始", period.StartDate)
	for _, phase := range deadlinePhases {
		if at := period.DeadlineFor(phase); at != nil {
			addEvent(string(phase), deadlineLabels[phase], *at)
		}
	}

	filename := fmt.Sprintf("%s.ics", period.Name)
	return []byte(cal.Serialize()), filename, nil
}

// ── 辅助函数 ──

func (s *periodExportService) formatCellTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.In(s.clock.Now().Location()).Format("2006-01-02 15:04")
}

func phaseLabel(phase *model.PeriodPhase) string {
	if phase == nil {
		return "-"
	}
	if label, ok := phaseLabels[*phase]; ok {
		return label
	}
	return string(*phase)
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
