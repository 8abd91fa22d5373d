package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

// ── ExportOverview 测试 ──

func TestExportService_ExportOverview_NoPeriods(t *testing.T) {
	env := setupTestPeriodService(day(2024, 1, 2))

	_, _, err := env.svc.Export.ExportOverview(context.Background())
	if !errors.Is(err, ErrExportNoPeriods) {
		t.Errorf("期望 ErrExportNoPeriods，实际: %v", err)
	}
}

func TestExportService_ExportOverview_Success(t *testing.T) {
	env := setupTestPeriodService(day(2023, 12, 1))
	env.createP3(t)

	buf, filename, err := env.svc.Export.ExportOverview(context.Background())
	if err != nil {
		t.Fatalf("ExportOverview 应成功: %v", err)
	}
	if filename != "评估周期总览_20231201.xlsx" {
		t.Errorf("文件名不符合预期: %s", filename)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("无法解析生成的 Excel: %v", err)
	}
	defer f.Close()

	header, _ := f.GetCellValue("评估周期", "A2")
	if header != "名称" {
		t.Errorf("期望表头 A2=名称，实际=%s", header)
	}
	name, _ := f.GetCellValue("评估周期", "A3")
	if name != "P3" {
		t.Errorf("期望 A3=P3，实际=%s", name)
	}
	status, _ := f.GetCellValue("评估周期", "B3")
	if status != "等待中" {
		t.Errorf("期望 B3=等待中，实际=%s", status)
	}
	start, _ := f.GetCellValue("评估周期", "D3")
	if start != "2024-01-01 00:00" {
		t.Errorf("期望 D3=2024-01-01 00:00，实际=%s", start)
	}
}

// ── ExportCalendar 测试 ──

func TestExportService_ExportCalendar_Success(t *testing.T) {
	env := setupTestPeriodService(day(2023, 12, 1))
	created := env.createP3(t)

	data, filename, err := env.svc.Export.ExportCalendar(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("ExportCalendar 应成功: %v", err)
	}
	if filename != "P3.ics" {
		t.Errorf("文件名不符合预期: %s", filename)
	}

	content := string(data)
	if !strings.Contains(content, "BEGIN:VCALENDAR") {
		t.Error("输出应为 iCalendar 格式")
	}
	// 开始时间 + 四个截止时间
	if n := strings.Count(content, "BEGIN:VEVENT"); n != 5 {
		t.Errorf("期望 5 个事件，实际=%d", n)
	}
	if !strings.Contains(content, "UID:"+created.ID+"-start@ems-evaluation") {
		t.Error("事件 UID 应包含周期 ID 与节点类型")
	}
}

func TestExportService_ExportCalendar_SkipsMissingDeadlines(t *testing.T) {
	env := setupTestPeriodService(day(2023, 12, 1))
	req := p3Request()
	req.PerformanceDeadline, req.SelfEvaluationDeadline = nil, nil
	created, err := env.svc.EvaluationPeriod.Create(context.Background(), req, testAdminID)
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}

	data, _, err := env.svc.Export.ExportCalendar(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("ExportCalendar 应成功: %v", err)
	}
	if n := strings.Count(string(data), "BEGIN:VEVENT"); n != 3 {
		t.Errorf("期望 3 个事件，实际=%d", n)
	}
}

func TestExportService_ExportCalendar_NotFound(t *testing.T) {
	env := setupTestPeriodService(day(2023, 12, 1))

	_, _, err := env.svc.Export.ExportCalendar(context.Background(), "11111111-2222-3333-4444-555555555555")
	if !errors.Is(err, ErrPeriodNotFound) {
		t.Errorf("期望 ErrPeriodNotFound，实际: %v", err)
	}
}
