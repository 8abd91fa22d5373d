package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ── PostgreSQL JSONB 自定义类型 ──

// scanJSONB 将 PostgreSQL 返回的 jsonb 文本解码到 dst。
func scanJSONB(src interface{}, dst interface{}, typeName string) error {
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("%s.Scan: unsupported type %T", typeName, src)
	}
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("%s.Scan: invalid json: %w", typeName, err)
	}
	return nil
}

// JSONMap 对应 PostgreSQL JSONB 对象，实现 GORM Scanner/Valuer 接口。
type JSONMap map[string]interface{}

// Scan 将 jsonb 解析为 map。
func (m *JSONMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	out := JSONMap{}
	if err := scanJSONB(src, &out, "JSONMap"); err != nil {
		return err
	}
	*m = out
	return nil
}

// Value 将 map 序列化为 jsonb 文本。
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy *string   `gorm:"type:uuid"                          json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy *string   `gorm:"type:uuid"                          json:"updated_by,omitempty"`
}

// SoftDeleteModel 支持软删除的审计字段
type SoftDeleteModel struct {
	BaseModel
	DeletedAt gorm.DeletedAt `gorm:"index"    json:"deleted_at,omitempty"`
	DeletedBy *string        `gorm:"type:uuid" json:"deleted_by,omitempty"`
}

// VersionedModel 支持乐观锁的软删除模型
type VersionedModel struct {
	SoftDeleteModel
	Version int `gorm:"not null;default:1" json:"version"`
}

// MarkUpdated 记录最后修改人与修改时间
func (b *BaseModel) MarkUpdated(actorID string, at time.Time) {
	b.UpdatedBy = &actorID
	b.UpdatedAt = at
}
