package handler

import (
	"errors"
	"net/http"

	"deptkb-go/internal/middleware"
	"deptkb-go/internal/model"
	"deptkb-go/internal/repository"
	"deptkb-go/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminHandler 处理管理端设置与对账接口。
type AdminHandler struct {
	admin service.AdminService
}

// NewAdminHandler 创建一个新的 AdminHandler 实例。
func NewAdminHandler(admin service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// GetPrompt 返回当前系统提示词。
func (h *AdminHandler) GetPrompt(c *gin.Context) {
	prompt, err := h.admin.GetPrompt()
	if err != nil {
		Fail(c, http.StatusInternalServerError, "查询失败")
		return
	}
	Success(c, prompt)
}

type updatePromptRequest struct {
	Content string `json:"content" binding:"required"`
}

// UpdatePrompt 更新系统提示词，写入后同步失效缓存。
func (h *AdminHandler) UpdatePrompt(c *gin.Context) {
	var req updatePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}
	if err := h.admin.UpdatePrompt(req.Content, middleware.RequesterID(c)); err != nil {
		Fail(c, http.StatusInternalServerError, "更新失败")
		return
	}
	Success(c, nil)
}

// ListModels 返回全部模型配置。
func (h *AdminHandler) ListModels(c *gin.Context) {
	models, err := h.admin.ListModels()
	if err != nil {
		Fail(c, http.StatusInternalServerError, "查询失败")
		return
	}
	Success(c, models)
}

type createModelRequest struct {
	ModelName   string `json:"modelName" binding:"required"`
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
}

// CreateModel 登记一个新的可用模型。
func (h *AdminHandler) CreateModel(c *gin.Context) {
	var req createModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}
	mc := &model.ModelConfig{
		ModelName:   req.ModelName,
		DisplayName: req.DisplayName,
		Description: req.Description,
	}
	if err := h.admin.CreateModel(mc); err != nil {
		Fail(c, http.StatusInternalServerError, "创建失败")
		return
	}
	Success(c, mc)
}

type activateModelRequest struct {
	ModelName string `json:"modelName" binding:"required"`
}

// ActivateModel 切换激活模型，写入后同步失效缓存。
func (h *AdminHandler) ActivateModel(c *gin.Context) {
	var req activateModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}
	if err := h.admin.SetActiveModel(req.ModelName); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			Fail(c, http.StatusNotFound, "模型不存在")
			return
		}
		Fail(c, http.StatusInternalServerError, "切换失败")
		return
	}
	Success(c, nil)
}

// ListToolPermissions 返回全部工具权限配置。
func (h *AdminHandler) ListToolPermissions(c *gin.Context) {
	perms, err := h.admin.ListToolPermissions()
	if err != nil {
		Fail(c, http.StatusInternalServerError, "查询失败")
		return
	}
	Success(c, perms)
}

type toolPermissionRequest struct {
	ToolName     string   `json:"toolName" binding:"required"`
	AllowedRoles []string `json:"allowedRoles" binding:"required"`
}

// SetToolPermission 设置工具的可用角色，写入后同步失效缓存。
func (h *AdminHandler) SetToolPermission(c *gin.Context) {
	var req toolPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}
	var roles model.RoleList
	for _, s := range req.AllowedRoles {
		role, ok := model.ParseRole(s)
		if !ok {
			Fail(c, http.StatusBadRequest, "无效的角色: "+s)
			return
		}
		roles = append(roles, role)
	}
	if err := h.admin.SetToolPermission(req.ToolName, roles); err != nil {
		Fail(c, http.StatusInternalServerError, "设置失败")
		return
	}
	Success(c, nil)
}

// FindOrphans 报告两库对账发现的孤儿向量，只检测不清理。
func (h *AdminHandler) FindOrphans(c *gin.Context) {
	orphans, err := h.admin.FindOrphans(c.Request.Context())
	if err != nil {
		Fail(c, http.StatusInternalServerError, "对账失败: "+err.Error())
		return
	}
	Success(c, gin.H{"orphans": orphans, "count": len(orphans)})
}

// PurgeOrphans 清理全部孤儿向量，操作幂等。
func (h *AdminHandler) PurgeOrphans(c *gin.Context) {
	purged, err := h.admin.PurgeOrphans(c.Request.Context())
	if err != nil {
		Fail(c, http.StatusInternalServerError, "清理失败: "+err.Error())
		return
	}
	Success(c, gin.H{"purged": purged})
}
