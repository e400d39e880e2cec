// Package access 实现角色到资源可见性的纯判定逻辑。
// 文档走层级模型，笔记/链接/常见问题走列表成员模型，两者语义不同且均不可简化。
package access

import "deptkb-go/internal/model"

// documentRank 是文档层级判定使用的角色序。public 不参与层级：
// 任何需要登录的文档对 public 一律不可见。
var documentRank = map[model.Role]int{
	model.RoleStudent:     1,
	model.RoleMember:      2,
	model.RoleChairperson: 3,
}

// CanAccessDocument 判断角色能否访问给定访问级别的文档。
// chairperson 可见全部；member 可见 student/member；student 仅可见 student。
func CanAccessDocument(docLevel, requester model.Role) bool {
	dr, ok := documentRank[docLevel]
	if !ok {
		return false
	}
	rr, ok := documentRank[requester]
	if !ok {
		// public 或未知角色
		return false
	}
	return rr >= dr
}

// AllowedDocumentLevels 返回角色可见的全部文档访问级别，
// 供向量检索构建服务端过滤条件使用。public 返回空集。
func AllowedDocumentLevels(requester model.Role) []model.Role {
	rr, ok := documentRank[requester]
	if !ok {
		return nil
	}
	levels := make([]model.Role, 0, 3)
	for _, level := range []model.Role{model.RoleStudent, model.RoleMember, model.RoleChairperson} {
		if rr >= documentRank[level] {
			levels = append(levels, level)
		}
	}
	return levels
}

// CanAccessListed 判断角色能否访问多值访问级别的资源
// （知识条目、快捷链接、常见问题）。纯集合成员判断，无层级语义。
func CanAccessListed(levels model.RoleList, requester model.Role) bool {
	return levels.Contains(requester)
}
