package handler

import (
	"net/http"

	"deptkb-go/internal/middleware"
	"deptkb-go/internal/service"

	"github.com/gin-gonic/gin"
)

// UserHandler 处理注册、登录与个人信息接口。
type UserHandler struct {
	users service.UserService
}

// NewUserHandler 创建一个新的 UserHandler 实例。
func NewUserHandler(users service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// Register 处理用户注册。
func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	user, err := h.users.Register(req.Username, req.Email, req.Password)
	if err != nil {
		Fail(c, http.StatusInternalServerError, "注册失败: "+err.Error())
		return
	}
	Success(c, user)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login 处理用户登录并颁发令牌。
func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Fail(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	user, tokens, err := h.users.Login(req.Email, req.Password)
	if err != nil {
		if err == service.ErrInvalidCredentials {
			Fail(c, http.StatusUnauthorized, err.Error())
			return
		}
		Fail(c, http.StatusInternalServerError, "登录失败")
		return
	}
	Success(c, gin.H{"user": user, "tokens": tokens})
}

// Profile 返回当前登录用户的信息。
func (h *UserHandler) Profile(c *gin.Context) {
	user, err := h.users.Profile(middleware.RequesterID(c))
	if err != nil {
		Fail(c, http.StatusNotFound, "用户不存在")
		return
	}
	Success(c, user)
}
