// Package middleware 包含了 Gin 的中间件。
package middleware

import (
	"net/http"
	"strings"

	"deptkb-go/internal/model"
	"deptkb-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// 请求上下文中的身份键。核心链路只信任这组从令牌解出的三元组。
const (
	CtxUserID = "userId"
	CtxRole   = "role"
	CtxEmail  = "email"
)

// Auth 校验 Bearer 令牌并把 (userId, role, email) 写入请求上下文。
// optional 为 true 时允许匿名访问，匿名请求的角色为 public。
func Auth(jwtManager *token.JWTManager, optional bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			if optional {
				c.Set(CtxRole, string(model.RolePublic))
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "缺少认证信息"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "认证格式错误"})
			return
		}

		claims, err := jwtManager.VerifyToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "令牌无效或已过期"})
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxRole, claims.Role)
		c.Set(CtxEmail, claims.Email)
		c.Next()
	}
}

// RequesterRole 从上下文取出请求角色，缺失时按 public 处理。
func RequesterRole(c *gin.Context) model.Role {
	roleStr := c.GetString(CtxRole)
	if role, ok := model.ParseRole(roleStr); ok {
		return role
	}
	return model.RolePublic
}

// RequesterID 从上下文取出用户 ID。
func RequesterID(c *gin.Context) uint {
	if v, ok := c.Get(CtxUserID); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// RequesterEmail 从上下文取出用户邮箱。
func RequesterEmail(c *gin.Context) string {
	return c.GetString(CtxEmail)
}
