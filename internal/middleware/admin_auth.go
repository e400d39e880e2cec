package middleware

import (
	"net/http"

	"deptkb-go/internal/model"

	"github.com/gin-gonic/gin"
)

// AdminOnly 仅放行 chairperson 角色，用于管理端接口。
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if RequesterRole(c) != model.RoleChairperson {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": 403, "msg": "需要管理员权限"})
			return
		}
		c.Next()
	}
}
