package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/teamennovat/onebox-sub000/internal/auth/jwt"
)

// 上下文键
const (
	ContextUserID = "user_id"
	ContextEmail  = "user_email"
)

// RequireAuth 强制 JWT 认证
//
// 令牌缺失或无效时返回 401 并终止请求链。
func RequireAuth(manager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": http.StatusUnauthorized,
				"msg":  "缺少认证令牌",
			})
			return
		}

		claims, err := manager.ValidateToken(token, jwt.PurposeAccess)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": http.StatusUnauthorized,
				"msg":  "认证令牌无效或已过期",
			})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Next()
	}
}

// UserID 从请求上下文取当前用户 ID
func UserID(c *gin.Context) string {
	if v, ok := c.Get(ContextUserID); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// extractToken 从 Authorization 头或查询参数提取令牌
//
// WebSocket 握手无法携带自定义请求头，允许从 token 查询参数读取。
func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}
