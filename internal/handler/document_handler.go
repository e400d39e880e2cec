package handler

import (
	"errors"
	"net/http"
	"strconv"

	"deptkb-go/internal/middleware"
	"deptkb-go/internal/model"
	"deptkb-go/internal/repository"
	"deptkb-go/internal/service"

	"github.com/gin-gonic/gin"
)

// DocumentHandler 处理文档生命周期接口。
type DocumentHandler struct {
	docs service.DocumentService
}

// NewDocumentHandler 创建一个新的 DocumentHandler 实例。
func NewDocumentHandler(docs service.DocumentService) *DocumentHandler {
	return &DocumentHandler{docs: docs}
}

// Upload 处理文档上传。表单字段：file、accessLevel。
func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		Fail(c, http.StatusBadRequest, "缺少上传文件")
		return
	}

	level, ok := model.ParseRole(c.PostForm("accessLevel"))
	if !ok || level == model.RolePublic {
		Fail(c, http.StatusBadRequest, "访问级别必须是 student/member/chairperson 之一")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		Fail(c, http.StatusInternalServerError, "读取上传文件失败")
		return
	}
	defer file.Close()

	doc, err := h.docs.Upload(c.Request.Context(), middleware.RequesterID(c),
		fileHeader.Filename, fileHeader.Size, file, level)
	if err != nil {
		Fail(c, http.StatusInternalServerError, "上传失败: "+err.Error())
		return
	}
	Success(c, doc)
}

// List 返回请求角色可见的文档列表。
func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.docs.List(middleware.RequesterRole(c))
	if err != nil {
		Fail(c, http.StatusInternalServerError, "查询失败")
		return
	}
	Success(c, docs)
}

// Delete 软删除文档并触发异步向量清理。
func (h *DocumentHandler) Delete(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		Fail(c, http.StatusBadRequest, "无效的文档 ID")
		return
	}
	if err := h.docs.Delete(id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			Fail(c, http.StatusNotFound, "文档不存在")
			return
		}
		Fail(c, http.StatusInternalServerError, "删除失败")
		return
	}
	Success(c, nil)
}

// Download 返回文档的预签名下载链接。
func (h *DocumentHandler) Download(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		Fail(c, http.StatusBadRequest, "无效的文档 ID")
		return
	}
	url, err := h.docs.DownloadURL(id, middleware.RequesterRole(c))
	if err != nil {
		switch err {
		case repository.ErrNotFound:
			Fail(c, http.StatusNotFound, "文档不存在")
		case service.ErrForbidden:
			Fail(c, http.StatusForbidden, err.Error())
		default:
			Fail(c, http.StatusInternalServerError, "生成下载链接失败")
		}
		return
	}
	Success(c, gin.H{"url": url})
}

// ListLibrary 返回请求角色可见的资料库条目。
func (h *DocumentHandler) ListLibrary(c *gin.Context) {
	entries, err := h.docs.ListLibrary(middleware.RequesterRole(c))
	if err != nil {
		Fail(c, http.StatusInternalServerError, "查询失败")
		return
	}
	Success(c, entries)
}

type libraryEntryRequest struct {
	Title       string `json:"title" binding:"required"`
	FileName    string `json:"fileName" binding:"required"`
	FilePath    string `json:"filePath" binding:"required"`
	AccessLevel string `json:"accessLevel" binding:"required"`
	Category    string `json:"category"`
}

// CreateLibraryEntry 新建资料库条目（管理端）。
func (h *DocumentHandler) CreateLibraryEntry(c *gin.Context) {
	var req libraryEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}
	level, ok := model.ParseRole(req.AccessLevel)
	if !ok {
		Fail(c, http.StatusBadRequest, "无效的访问级别")
		return
	}
	entry := &model.DocumentLibraryEntry{
		Title:       req.Title,
		FileName:    req.FileName,
		FilePath:    req.FilePath,
		AccessLevel: level,
		Category:    req.Category,
	}
	if err := h.docs.CreateLibraryEntry(entry); err != nil {
		Fail(c, http.StatusInternalServerError, "创建失败")
		return
	}
	Success(c, entry)
}

// DeleteLibraryEntry 删除资料库条目（管理端）。
func (h *DocumentHandler) DeleteLibraryEntry(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		Fail(c, http.StatusBadRequest, "无效的条目 ID")
		return
	}
	if err := h.docs.DeleteLibraryEntry(id); err != nil {
		Fail(c, http.StatusInternalServerError, "删除失败")
		return
	}
	Success(c, nil)
}

func parseIDParam(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return uint(id), err
}
