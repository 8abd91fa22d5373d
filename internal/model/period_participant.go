package model

import "time"

// PeriodParticipant 评估周期参与者表，对应 evaluation_period_participants
type PeriodParticipant struct {
	ParticipantID  string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"participant_id"`
	PeriodID       string     `gorm:"type:uuid;not null;index"                       json:"period_id"`
	EmployeeID     string     `gorm:"type:uuid;not null"                             json:"employee_id"`
	IsExcluded     bool       `gorm:"not null;default:false"                         json:"is_excluded"`
	ExcludedReason string     `gorm:"type:varchar(500);not null;default:''"          json:"excluded_reason,omitempty"`
	ExcludedAt     *time.Time `json:"excluded_at,omitempty"`
	SoftDeleteModel
}

// TableName 指定表名
func (PeriodParticipant) TableName() string { return "evaluation_period_participants" }
