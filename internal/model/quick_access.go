package model

import "time"

// QuickAccessLink 对应 quick_access_links 表，按角色列表过滤展示。
type QuickAccessLink struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title        string    `gorm:"type:varchar(255);not null" json:"title"`
	URL          string    `gorm:"type:varchar(512);not null" json:"url"`
	AccessLevels RoleList  `gorm:"type:varchar(100);not null" json:"accessLevels"`
	SortOrder    int       `gorm:"not null;default:0" json:"sortOrder"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (QuickAccessLink) TableName() string {
	return "quick_access_links"
}

// PopularQuestion 对应 popular_questions 表，按角色列表过滤展示。
type PopularQuestion struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Question     string    `gorm:"type:varchar(512);not null" json:"question"`
	AccessLevels RoleList  `gorm:"type:varchar(100);not null" json:"accessLevels"`
	ClickCount   int       `gorm:"not null;default:0" json:"clickCount"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (PopularQuestion) TableName() string {
	return "popular_questions"
}
