package model

import "time"

// DefaultPromptName 是问答链路使用的系统提示词的唯一键。
const DefaultPromptName = "default_rag"

// SystemPrompt 对应 system_prompts 表。name 唯一；default_rag 记录缺失时
// 读取路径需要懒创建一条默认记录。
type SystemPrompt struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	IsActive  bool      `gorm:"not null;default:true" json:"isActive"`
	UpdatedBy uint      `json:"updatedBy"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (SystemPrompt) TableName() string {
	return "system_prompts"
}

// ModelConfig 对应 model_configs 表。不变式：任意时刻恰有一条 is_active=true，
// 切换激活模型必须在同一事务内先全部取消激活再激活目标。
type ModelConfig struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ModelName   string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"modelName"`
	DisplayName string    `gorm:"type:varchar(100)" json:"displayName"`
	Description string    `gorm:"type:text" json:"description"`
	IsActive    bool      `gorm:"not null;default:false" json:"isActive"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ModelConfig) TableName() string {
	return "model_configs"
}

// ToolPermission 对应 tool_permissions 表：控制结构化数据工具对各角色的可用性。
// 这是粗粒度开关；工具内部仍按自身规则做细粒度过滤。
type ToolPermission struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ToolName     string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"toolName"`
	Description  string    `gorm:"type:text" json:"description"`
	AllowedRoles RoleList  `gorm:"type:varchar(100);not null" json:"allowedRoles"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ToolPermission) TableName() string {
	return "tool_permissions"
}
