package model

import "time"

// 活动类型
const (
	ActivityTypePeriodLifecycle = "period_lifecycle"
	ActivityTypePeriodSetting   = "period_setting"
)

// 活动动作
const (
	ActivityActionCreated           = "created"
	ActivityActionUpdated           = "updated"
	ActivityActionStarted           = "started"
	ActivityActionCompleted         = "completed"
	ActivityActionReverted          = "reverted"
	ActivityActionPhaseChanged      = "phase_changed"
	ActivityActionPermissionChanged = "permission_changed"
	ActivityActionDeleted           = "deleted"
)

// PeriodActivityLog 评估周期活动日志表，对应 evaluation_period_activity_logs（纯审计日志）
type PeriodActivityLog struct {
	ActivityLogID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"activity_log_id"`
	PeriodID      string    `gorm:"type:uuid;not null;index"                       json:"period_id"`
	EmployeeID    *string   `gorm:"type:uuid"                                      json:"employee_id,omitempty"`
	ActivityType  string    `gorm:"type:varchar(50);not null"                      json:"activity_type"`
	Action        string    `gorm:"type:varchar(50);not null"                      json:"action"`
	OperatorID    string    `gorm:"type:uuid;not null"                             json:"operator_id"`
	Metadata      JSONMap   `gorm:"type:jsonb"                                     json:"metadata,omitempty"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (PeriodActivityLog) TableName() string { return "evaluation_period_activity_logs" }
