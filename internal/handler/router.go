package handler

import (
	"deptkb-go/internal/middleware"
	"deptkb-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// Handlers 汇总路由注册需要的全部处理器。
type Handlers struct {
	User     *UserHandler
	Chat     *ChatHandler
	Document *DocumentHandler
	Note     *NoteHandler
	Portal   *PortalHandler
	Admin    *AdminHandler
}

// RegisterRoutes 注册全部路由。
// 问答与浏览接口允许匿名访问（角色按 public 处理），写接口需要登录，
// 管理端接口仅 chairperson 可用。
func RegisterRoutes(r *gin.Engine, h Handlers, jwtManager *token.JWTManager) {
	r.Use(middleware.RequestLogger())

	api := r.Group("/api")

	// 认证
	auth := api.Group("/auth")
	{
		auth.POST("/register", h.User.Register)
		auth.POST("/login", h.User.Login)
	}

	// 允许匿名的读接口
	public := api.Group("")
	public.Use(middleware.Auth(jwtManager, true))
	{
		public.POST("/chat/ask", h.Chat.Ask)
		public.GET("/chat/ws", h.Chat.Stream)
		public.GET("/chat/history/:sessionId", h.Chat.History)
		public.GET("/documents", h.Document.List)
		public.GET("/library", h.Document.ListLibrary)
		public.GET("/notes", h.Note.List)
		public.GET("/portal/quick-links", h.Portal.QuickLinks)
		public.GET("/portal/popular-questions", h.Portal.PopularQuestions)
		public.POST("/portal/popular-questions/:id/click", h.Portal.RecordClick)
	}

	// 需要登录的接口
	authed := api.Group("")
	authed.Use(middleware.Auth(jwtManager, false))
	{
		authed.GET("/user/profile", h.User.Profile)
		authed.GET("/documents/:id/download", h.Document.Download)
	}

	// 管理端接口
	admin := api.Group("/admin")
	admin.Use(middleware.Auth(jwtManager, false), middleware.AdminOnly())
	{
		admin.POST("/documents", h.Document.Upload)
		admin.DELETE("/documents/:id", h.Document.Delete)
		admin.POST("/library", h.Document.CreateLibraryEntry)
		admin.DELETE("/library/:id", h.Document.DeleteLibraryEntry)

		admin.GET("/notes", h.Note.ListAll)
		admin.POST("/notes", h.Note.Create)
		admin.PUT("/notes/:id", h.Note.Update)
		admin.DELETE("/notes/:id", h.Note.Delete)

		admin.POST("/portal/quick-links", h.Portal.CreateQuickLink)
		admin.DELETE("/portal/quick-links/:id", h.Portal.DeleteQuickLink)
		admin.POST("/portal/popular-questions", h.Portal.CreatePopularQuestion)
		admin.DELETE("/portal/popular-questions/:id", h.Portal.DeletePopularQuestion)

		admin.GET("/settings/prompt", h.Admin.GetPrompt)
		admin.PUT("/settings/prompt", h.Admin.UpdatePrompt)
		admin.GET("/settings/models", h.Admin.ListModels)
		admin.POST("/settings/models", h.Admin.CreateModel)
		admin.PUT("/settings/models/active", h.Admin.ActivateModel)
		admin.GET("/settings/tools", h.Admin.ListToolPermissions)
		admin.PUT("/settings/tools", h.Admin.SetToolPermission)

		admin.GET("/reconcile/orphans", h.Admin.FindOrphans)
		admin.POST("/reconcile/purge", h.Admin.PurgeOrphans)
	}
}
