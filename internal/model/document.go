package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// DocumentStatus 表示文档在入库流水线中的状态。
type DocumentStatus string

const (
	DocStatusProcessing DocumentStatus = "processing"
	DocStatusProcessed  DocumentStatus = "processed"
	DocStatusFailed     DocumentStatus = "failed"
)

// StringList 是以 JSON 形式持久化的字符串列表，用于 vector_ids 字段。
type StringList []string

// Value 实现 driver.Valuer。
func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

// Scan 实现 sql.Scanner。
func (l *StringList) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("无法将 %T 解析为 StringList", value)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(raw, l)
}

// Document 对应于数据库中的 documents 表，记录每个上传文件的元数据与状态。
// 关系库是事实来源；向量索引只是它的派生投影。
// 不变式：status=processed 时 len(vector_ids)==chunk_count 且每个 id 在索引中可取。
type Document struct {
	ID           uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	FileName     string         `gorm:"type:varchar(255);not null;uniqueIndex" json:"fileName"`
	OriginalName string         `gorm:"type:varchar(255);not null" json:"originalName"`
	AccessLevel  Role           `gorm:"type:varchar(20);not null;index" json:"accessLevel"`
	Status       DocumentStatus `gorm:"type:varchar(20);not null;default:processing" json:"status"`
	ChunkCount   int            `gorm:"not null;default:0" json:"chunkCount"`
	VectorIDs    StringList     `gorm:"type:text" json:"vectorIds"`
	FilePath     string         `gorm:"type:varchar(512);not null" json:"filePath"`
	FileSize     int64          `gorm:"not null;default:0" json:"fileSize"`
	UploadedBy   uint           `gorm:"not null" json:"uploadedBy"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Document) TableName() string {
	return "documents"
}

// DocumentLibraryEntry 对应 document_library 表：由管理员维护的资料库条目，
// 不经过切块流水线，仅参与引用解析与下载。
type DocumentLibraryEntry struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string    `gorm:"type:varchar(255);not null;index" json:"title"`
	FileName    string    `gorm:"type:varchar(255);not null" json:"fileName"`
	FilePath    string    `gorm:"type:varchar(512);not null" json:"filePath"`
	AccessLevel Role      `gorm:"type:varchar(20);not null" json:"accessLevel"`
	Category    string    `gorm:"type:varchar(100)" json:"category"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (DocumentLibraryEntry) TableName() string {
	return "document_library"
}
