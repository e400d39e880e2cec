package model

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// NoteMetadata 是知识条目 metadata 字段解析后的结构化形式。
// 数据库列仍保存序列化串以兼容既有数据，但解析只发生在仓储边界一次。
type NoteMetadata struct {
	Department   string   `json:"department,omitempty"`
	DocumentType string   `json:"documentType,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	LinkedDocIDs []uint   `json:"linkedDocIds,omitempty"`
}

// KnowledgeNote 对应 knowledge_notes 表：由管理员维护的问答/政策条目。
// 访问控制为多值列表语义：请求角色在 access_levels 中才可见。
type KnowledgeNote struct {
	ID           uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Title        string         `gorm:"type:varchar(255);not null" json:"title"`
	Content      string         `gorm:"type:text;not null" json:"content"`
	AccessLevels RoleList       `gorm:"type:varchar(100);not null" json:"accessLevels"`
	Status       string         `gorm:"type:varchar(20);not null;default:active" json:"status"`
	RawMetadata  string         `gorm:"column:metadata;type:text" json:"-"`
	Meta         NoteMetadata   `gorm:"-" json:"metadata"`
	VectorID     string         `gorm:"type:varchar(64)" json:"vectorId"`
	CreatedBy    uint           `gorm:"not null" json:"createdBy"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (KnowledgeNote) TableName() string {
	return "knowledge_notes"
}

// DecodeMetadata 将 RawMetadata 解析到 Meta。仓储在读出记录后调用，
// 其余代码只使用 Meta，不再接触原始串。
func (n *KnowledgeNote) DecodeMetadata() error {
	if n.RawMetadata == "" {
		n.Meta = NoteMetadata{}
		return nil
	}
	return json.Unmarshal([]byte(n.RawMetadata), &n.Meta)
}

// EncodeMetadata 将 Meta 序列化回 RawMetadata，写库前调用。
func (n *KnowledgeNote) EncodeMetadata() error {
	b, err := json.Marshal(n.Meta)
	if err != nil {
		return err
	}
	n.RawMetadata = string(b)
	return nil
}
