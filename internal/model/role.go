// Package model 包含了应用的数据模型定义。
package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Role 表示请求方或资源的角色等级。
// 文档访问按 student < member < chairperson 层级判断，
// 笔记/快捷链接/常见问题按列表成员关系判断，两套语义不可混用。
type Role string

const (
	RolePublic      Role = "public"
	RoleStudent     Role = "student"
	RoleMember      Role = "member"
	RoleChairperson Role = "chairperson"
)

// ParseRole 将字符串解析为 Role，未知值返回 false。
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RolePublic:
		return RolePublic, true
	case RoleStudent:
		return RoleStudent, true
	case RoleMember:
		return RoleMember, true
	case RoleChairperson:
		return RoleChairperson, true
	}
	return "", false
}

// RoleList 是以逗号串形式持久化的角色列表，用于多值 access_level 字段。
type RoleList []Role

// Contains 判断列表中是否包含给定角色。
func (l RoleList) Contains(r Role) bool {
	for _, item := range l {
		if item == r {
			return true
		}
	}
	return false
}

// Value 实现 driver.Valuer，序列化为逗号分隔字符串。
func (l RoleList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(l))
	for _, r := range l {
		parts = append(parts, string(r))
	}
	return strings.Join(parts, ","), nil
}

// Scan 实现 sql.Scanner，从逗号分隔字符串反序列化。
func (l *RoleList) Scan(value interface{}) error {
	var raw string
	switch v := value.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("无法将 %T 解析为 RoleList", value)
	}
	if strings.TrimSpace(raw) == "" {
		*l = nil
		return nil
	}
	var roles RoleList
	for _, part := range strings.Split(raw, ",") {
		if r, ok := ParseRole(part); ok {
			roles = append(roles, r)
		}
	}
	*l = roles
	return nil
}
