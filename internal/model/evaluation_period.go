package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// PeriodStatus 评估周期的粗粒度生命周期状态
type PeriodStatus string

const (
	PeriodStatusWaiting    PeriodStatus = "waiting"
	PeriodStatusInProgress PeriodStatus = "in_progress"
	PeriodStatusCompleted  PeriodStatus = "completed"
)

// PeriodPhase 进行中周期的细粒度阶段
type PeriodPhase string

const (
	PhaseWaiting        PeriodPhase = "waiting"
	PhaseSetup          PeriodPhase = "setup"
	PhasePerformance    PeriodPhase = "performance"
	PhaseSelfEvaluation PeriodPhase = "self_evaluation"
	PhasePeerEvaluation PeriodPhase = "peer_evaluation"
	PhaseClosure        PeriodPhase = "closure"
)

// DefaultMaxSelfEvaluationRate 自评最高比例默认值（百分比）
const DefaultMaxSelfEvaluationRate = 120

// ── 等级区间 ──

// SubGradeRange 细分等级区间
type SubGradeRange struct {
	SubGrade string  `json:"sub_grade"`
	MinRange float64 `json:"min_range"`
	MaxRange float64 `json:"max_range"`
}

// GradeRange 分数区间 → 等级
type GradeRange struct {
	Grade     string          `json:"grade"`
	MinRange  float64         `json:"min_range"`
	MaxRange  float64         `json:"max_range"`
	SubGrades []SubGradeRange `json:"sub_grades,omitempty"`
}

// GradeRanges 对应 evaluation_periods.grade_ranges（jsonb 数组）。
// 区间之间不做重叠/连续性校验，按声明顺序取第一个命中项。
type GradeRanges []GradeRange

// Scan 将 jsonb 数组解析为 GradeRanges。
func (g *GradeRanges) Scan(src interface{}) error {
	if src == nil {
		*g = nil
		return nil
	}
	var out GradeRanges
	if err := scanJSONB(src, &out, "GradeRanges"); err != nil {
		return err
	}
	*g = out
	return nil
}

// Value 将 GradeRanges 序列化为 jsonb 文本。
func (g GradeRanges) Value() (driver.Value, error) {
	if g == nil {
		return "[]", nil
	}
	b, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// GradeMatch 分数查询等级的结果
type GradeMatch struct {
	Grade    string
	SubGrade string
}

// Lookup 根据分数查找等级（含细分等级），区间两端均为闭区间。
// 未命中任何区间时 ok=false。
func (g GradeRanges) Lookup(score float64) (GradeMatch, bool) {
	for _, r := range g {
		if score < r.MinRange || score > r.MaxRange {
			continue
		}
		match := GradeMatch{Grade: r.Grade}
		for _, sub := range r.SubGrades {
			if score >= sub.MinRange && score <= sub.MaxRange {
				match.SubGrade = sub.SubGrade
				break
			}
		}
		return match, true
	}
	return GradeMatch{}, false
}

// EvaluationPeriod 评估周期表，对应 evaluation_periods
type EvaluationPeriod struct {
	PeriodID    string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"period_id"`
	Name        string `gorm:"type:varchar(255);not null"                     json:"name"`
	Description string `gorm:"type:varchar(1000);not null;default:''"         json:"description"`

	StartDate              time.Time  `gorm:"type:timestamptz;not null" json:"start_date"`
	SetupDeadline          *time.Time `gorm:"type:timestamptz"          json:"setup_deadline,omitempty"`
	PerformanceDeadline    *time.Time `gorm:"type:timestamptz"          json:"performance_deadline,omitempty"`
	SelfEvaluationDeadline *time.Time `gorm:"type:timestamptz"          json:"self_evaluation_deadline,omitempty"`
	PeerEvaluationDeadline *time.Time `gorm:"type:timestamptz"          json:"peer_evaluation_deadline,omitempty"`
	CompletedDate          *time.Time `gorm:"type:timestamptz"          json:"completed_date,omitempty"`

	Status       PeriodStatus `gorm:"type:varchar(20);not null;default:'waiting'" json:"status"`
	CurrentPhase *PeriodPhase `gorm:"type:varchar(20)"                            json:"current_phase,omitempty"`

	CriteriaSettingEnabled        bool `gorm:"not null;default:false" json:"criteria_setting_enabled"`
	SelfEvaluationSettingEnabled  bool `gorm:"not null;default:false" json:"self_evaluation_setting_enabled"`
	FinalEvaluationSettingEnabled bool `gorm:"not null;default:false" json:"final_evaluation_setting_enabled"`

	MaxSelfEvaluationRate int         `gorm:"not null"                      json:"max_self_evaluation_rate"`
	GradeRanges           GradeRanges `gorm:"type:jsonb;not null;default:'[]'" json:"grade_ranges"`

	VersionedModel
}

// TableName 指定表名
func (EvaluationPeriod) TableName() string { return "evaluation_periods" }

// PhaseValue 返回当前阶段，未设置时返回空字符串
func (p *EvaluationPeriod) PhaseValue() PeriodPhase {
	if p.CurrentPhase == nil {
		return ""
	}
	return *p.CurrentPhase
}
