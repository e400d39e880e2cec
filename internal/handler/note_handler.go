package handler

import (
	"net/http"

	"deptkb-go/internal/middleware"
	"deptkb-go/internal/model"
	"deptkb-go/internal/service"

	"github.com/gin-gonic/gin"
)

// NoteHandler 处理知识条目接口。
type NoteHandler struct {
	notes service.NoteService
}

// NewNoteHandler 创建一个新的 NoteHandler 实例。
func NewNoteHandler(notes service.NoteService) *NoteHandler {
	return &NoteHandler{notes: notes}
}

type noteRequest struct {
	Title        string             `json:"title" binding:"required"`
	Content      string             `json:"content" binding:"required"`
	AccessLevels []string           `json:"accessLevels" binding:"required,min=1"`
	Metadata     model.NoteMetadata `json:"metadata"`
}

func (r *noteRequest) roleList() (model.RoleList, bool) {
	var roles model.RoleList
	for _, s := range r.AccessLevels {
		role, ok := model.ParseRole(s)
		if !ok {
			return nil, false
		}
		roles = append(roles, role)
	}
	return roles, true
}

// List 返回请求角色可见的知识条目。
func (h *NoteHandler) List(c *gin.Context) {
	notes, err := h.notes.ListForRole(middleware.RequesterRole(c))
	if err != nil {
		Fail(c, http.StatusInternalServerError, "查询失败")
		return
	}
	Success(c, notes)
}

// ListAll 返回全部条目（管理端）。
func (h *NoteHandler) ListAll(c *gin.Context) {
	notes, err := h.notes.ListAll()
	if err != nil {
		Fail(c, http.StatusInternalServerError, "查询失败")
		return
	}
	Success(c, notes)
}

// Create 新建知识条目并同步写入向量索引（管理端）。
func (h *NoteHandler) Create(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}
	roles, ok := req.roleList()
	if !ok {
		Fail(c, http.StatusBadRequest, "无效的访问级别")
		return
	}

	note := &model.KnowledgeNote{
		Title:        req.Title,
		Content:      req.Content,
		AccessLevels: roles,
		Meta:         req.Metadata,
		Status:       "active",
		CreatedBy:    middleware.RequesterID(c),
	}
	if err := h.notes.Create(c.Request.Context(), note); err != nil {
		Fail(c, http.StatusInternalServerError, "创建失败: "+err.Error())
		return
	}
	Success(c, note)
}

// Update 更新知识条目并重建向量（管理端）。
func (h *NoteHandler) Update(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		Fail(c, http.StatusBadRequest, "无效的条目 ID")
		return
	}
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}
	roles, ok := req.roleList()
	if !ok {
		Fail(c, http.StatusBadRequest, "无效的访问级别")
		return
	}

	note := &model.KnowledgeNote{
		ID:           id,
		Title:        req.Title,
		Content:      req.Content,
		AccessLevels: roles,
		Meta:         req.Metadata,
		Status:       "active",
	}
	if err := h.notes.Update(c.Request.Context(), note); err != nil {
		Fail(c, http.StatusInternalServerError, "更新失败: "+err.Error())
		return
	}
	Success(c, note)
}

// Delete 软删除知识条目并触发异步向量清理（管理端）。
func (h *NoteHandler) Delete(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		Fail(c, http.StatusBadRequest, "无效的条目 ID")
		return
	}
	if err := h.notes.Delete(id); err != nil {
		Fail(c, http.StatusInternalServerError, "删除失败")
		return
	}
	Success(c, nil)
}
