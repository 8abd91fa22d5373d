package dto

import "time"

// ── 评估周期模块 DTO ──
// 时间字段统一为 RFC3339（含时区偏移），例如 "2024-01-05T00:00:00+08:00"

// SubGradeRangeDTO 细分等级区间
type SubGradeRangeDTO struct {
	SubGrade string  `json:"sub_grade"`
	MinRange float64 `json:"min_range"`
	MaxRange float64 `json:"max_range"`
}

// GradeRangeDTO 等级区间
type GradeRangeDTO struct {
	Grade     string             `json:"grade"`
	MinRange  float64            `json:"min_range"`
	MaxRange  float64            `json:"max_range"`
	SubGrades []SubGradeRangeDTO `json:"sub_grades,omitempty"`
}

// CreateEvaluationPeriodRequest 创建评估周期请求
// 必填与格式校验由 Service 层统一完成，以返回稳定的错误类型
type CreateEvaluationPeriodRequest struct {
	Name                   string          `json:"name"`
	Description            *string         `json:"description"`
	StartDate              *time.Time      `json:"start_date"`
	SetupDeadline          *time.Time      `json:"setup_deadline"`
	PerformanceDeadline    *time.Time      `json:"performance_deadline"`
	SelfEvaluationDeadline *time.Time      `json:"self_evaluation_deadline"`
	PeerEvaluationDeadline *time.Time      `json:"peer_evaluation_deadline"`
	MaxSelfEvaluationRate  *int            `json:"max_self_evaluation_rate"`
	GradeRanges            []GradeRangeDTO `json:"grade_ranges"`
}

// UpdateEvaluationPeriodRequest 更新评估周期请求，nil 字段表示不修改
type UpdateEvaluationPeriodRequest struct {
	Name                   *string          `json:"name"`
	Description            *string          `json:"description"`
	StartDate              *time.Time       `json:"start_date"`
	SetupDeadline          *time.Time       `json:"setup_deadline"`
	PerformanceDeadline    *time.Time       `json:"performance_deadline"`
	SelfEvaluationDeadline *time.Time       `json:"self_evaluation_deadline"`
	PeerEvaluationDeadline *time.Time       `json:"peer_evaluation_deadline"`
	MaxSelfEvaluationRate  *int             `json:"max_self_evaluation_rate"`
	GradeRanges            *[]GradeRangeDTO `json:"grade_ranges"`
}

// TouchesSchedule 是否修改了开始时间或任一阶段截止时间
func (r *UpdateEvaluationPeriodRequest) TouchesSchedule() bool {
	return r.StartDate != nil || r.SetupDeadline != nil || r.PerformanceDeadline != nil ||
		r.SelfEvaluationDeadline != nil || r.PeerEvaluationDeadline != nil
}

// UpdateBasicInfoRequest 更新基本信息
type UpdateBasicInfoRequest struct {
	Name                  *string `json:"name"`
	Description           *string `json:"description"`
	MaxSelfEvaluationRate *int    `json:"max_self_evaluation_rate"`
}

// UpdateScheduleRequest 更新日程（开始时间 + 四个截止时间）
type UpdateScheduleRequest struct {
	StartDate              *time.Time `json:"start_date"`
	SetupDeadline          *time.Time `json:"setup_deadline"`
	PerformanceDeadline    *time.Time `json:"performance_deadline"`
	SelfEvaluationDeadline *time.Time `json:"self_evaluation_deadline"`
	PeerEvaluationDeadline *time.Time `json:"peer_evaluation_deadline"`
}

// UpdateDeadlineRequest 更新单个截止时间
type UpdateDeadlineRequest struct {
	Deadline *time.Time `json:"deadline" binding:"required"`
}

// UpdateGradeRangesRequest 更新等级区间（整体替换）
type UpdateGradeRangesRequest struct {
	GradeRanges []GradeRangeDTO `json:"grade_ranges"`
}

// ManualPermissionsRequest 手动设置开关，nil 表示不修改
type ManualPermissionsRequest struct {
	CriteriaSettingEnabled        *bool `json:"criteria_setting_enabled"`
	SelfEvaluationSettingEnabled  *bool `json:"self_evaluation_setting_enabled"`
	FinalEvaluationSettingEnabled *bool `json:"final_evaluation_setting_enabled"`
}

// ChangePhaseRequest 手动变更阶段
type ChangePhaseRequest struct {
	TargetPhase string `json:"target_phase" binding:"required"`
}

// EvaluationPeriodResponse 评估周期响应
type EvaluationPeriodResponse struct {
	ID                            string          `json:"id"`
	Name                          string          `json:"name"`
	Description                   string          `json:"description"`
	StartDate                     string          `json:"start_date"`
	SetupDeadline                 *string         `json:"setup_deadline,omitempty"`
	PerformanceDeadline           *string         `json:"performance_deadline,omitempty"`
	SelfEvaluationDeadline        *string         `json:"self_evaluation_deadline,omitempty"`
	PeerEvaluationDeadline        *string         `json:"peer_evaluation_deadline,omitempty"`
	CompletedDate                 *string         `json:"completed_date,omitempty"`
	Status                        string          `json:"status"`
	CurrentPhase                  *string         `json:"current_phase,omitempty"`
	CriteriaSettingEnabled        bool            `json:"criteria_setting_enabled"`
	SelfEvaluationSettingEnabled  bool            `json:"self_evaluation_setting_enabled"`
	FinalEvaluationSettingEnabled bool            `json:"final_evaluation_setting_enabled"`
	MaxSelfEvaluationRate         int             `json:"max_self_evaluation_rate"`
	GradeRanges                   []GradeRangeDTO `json:"grade_ranges"`
	Version                       int             `json:"version"`
	CreatedAt                     string          `json:"created_at"`
	UpdatedAt                     string          `json:"updated_at"`
}

// GradeLookupResponse 分数 → 等级查询结果
type GradeLookupResponse struct {
	Score    float64 `json:"score"`
	Matched  bool    `json:"matched"`
	Grade    string  `json:"grade,omitempty"`
	SubGrade string  `json:"sub_grade,omitempty"`
}

// AutoPhaseSweepResponse 手动触发自动阶段扫描的结果
type AutoPhaseSweepResponse struct {
	Moved int `json:"moved"`
}

// PeriodParticipantResponse 周期参与者
type PeriodParticipantResponse struct {
	ID             string  `json:"id"`
	EmployeeID     string  `json:"employee_id"`
	IsExcluded     bool    `json:"is_excluded"`
	ExcludedReason string  `json:"excluded_reason,omitempty"`
	ExcludedAt     *string `json:"excluded_at,omitempty"`
}

// PeriodActivityLogResponse 周期活动日志
type PeriodActivityLogResponse struct {
	ID           string                 `json:"id"`
	ActivityType string                 `json:"activity_type"`
	Action       string                 `json:"action"`
	OperatorID   string                 `json:"operator_id"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt    string                 `json:"created_at"`
}

// GradeLookupQuery 分数查询参数
type GradeLookupQuery struct {
	Score *float64 `form:"score" binding:"required"`
}

// ParticipantQuery 参与者查询参数
type ParticipantQuery struct {
	IncludeExcluded bool `form:"include_excluded"`
}
