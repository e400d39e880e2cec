package handler

import (
	"net/http"

	"deptkb-go/internal/middleware"
	"deptkb-go/internal/model"
	"deptkb-go/internal/service"

	"github.com/gin-gonic/gin"
)

// PortalHandler 处理门户页的快捷链接与常见问题接口。
type PortalHandler struct {
	portal service.PortalService
}

// NewPortalHandler 创建一个新的 PortalHandler 实例。
func NewPortalHandler(portal service.PortalService) *PortalHandler {
	return &PortalHandler{portal: portal}
}

// QuickLinks 返回请求角色可见的快捷链接。
func (h *PortalHandler) QuickLinks(c *gin.Context) {
	links, err := h.portal.QuickLinks(middleware.RequesterRole(c))
	if err != nil {
		Fail(c, http.StatusInternalServerError, "查询失败")
		return
	}
	Success(c, links)
}

// PopularQuestions 返回请求角色可见的常见问题。
func (h *PortalHandler) PopularQuestions(c *gin.Context) {
	questions, err := h.portal.PopularQuestions(middleware.RequesterRole(c))
	if err != nil {
		Fail(c, http.StatusInternalServerError, "查询失败")
		return
	}
	Success(c, questions)
}

// RecordClick 统计常见问题的点击。
func (h *PortalHandler) RecordClick(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		Fail(c, http.StatusBadRequest, "无效的 ID")
		return
	}
	if err := h.portal.RecordQuestionClick(id); err != nil {
		Fail(c, http.StatusInternalServerError, "记录失败")
		return
	}
	Success(c, nil)
}

type quickLinkRequest struct {
	Title        string   `json:"title" binding:"required"`
	URL          string   `json:"url" binding:"required"`
	AccessLevels []string `json:"accessLevels" binding:"required,min=1"`
	SortOrder    int      `json:"sortOrder"`
}

// CreateQuickLink 新建快捷链接（管理端）。
func (h *PortalHandler) CreateQuickLink(c *gin.Context) {
	var req quickLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}
	roles, ok := parseRoleList(req.AccessLevels)
	if !ok {
		Fail(c, http.StatusBadRequest, "无效的访问级别")
		return
	}
	link := &model.QuickAccessLink{
		Title:        req.Title,
		URL:          req.URL,
		AccessLevels: roles,
		SortOrder:    req.SortOrder,
	}
	if err := h.portal.CreateQuickLink(link); err != nil {
		Fail(c, http.StatusInternalServerError, "创建失败")
		return
	}
	Success(c, link)
}

// DeleteQuickLink 删除快捷链接（管理端）。
func (h *PortalHandler) DeleteQuickLink(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		Fail(c, http.StatusBadRequest, "无效的 ID")
		return
	}
	if err := h.portal.DeleteQuickLink(id); err != nil {
		Fail(c, http.StatusInternalServerError, "删除失败")
		return
	}
	Success(c, nil)
}

type popularQuestionRequest struct {
	Question     string   `json:"question" binding:"required"`
	AccessLevels []string `json:"accessLevels" binding:"required,min=1"`
}

// CreatePopularQuestion 新建常见问题（管理端）。
func (h *PortalHandler) CreatePopularQuestion(c *gin.Context) {
	var req popularQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}
	roles, ok := parseRoleList(req.AccessLevels)
	if !ok {
		Fail(c, http.StatusBadRequest, "无效的访问级别")
		return
	}
	q := &model.PopularQuestion{Question: req.Question, AccessLevels: roles}
	if err := h.portal.CreatePopularQuestion(q); err != nil {
		Fail(c, http.StatusInternalServerError, "创建失败")
		return
	}
	Success(c, q)
}

// DeletePopularQuestion 删除常见问题（管理端）。
func (h *PortalHandler) DeletePopularQuestion(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		Fail(c, http.StatusBadRequest, "无效的 ID")
		return
	}
	if err := h.portal.DeletePopularQuestion(id); err != nil {
		Fail(c, http.StatusInternalServerError, "删除失败")
		return
	}
	Success(c, nil)
}

func parseRoleList(values []string) (model.RoleList, bool) {
	var roles model.RoleList
	for _, s := range values {
		role, ok := model.ParseRole(s)
		if !ok {
			return nil, false
		}
		roles = append(roles, role)
	}
	return roles, true
}
