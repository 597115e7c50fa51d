package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/twitterlite/internal/service"
	"github.com/d60-Lab/twitterlite/pkg/response"
)

// CtxUserKey 当前登录用户 id 在 gin 上下文里的键
const CtxUserKey = "current_user"

// Auth 会话拦截：除放行名单外的路由都要求有效会话
func Auth(sessions service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" {
			response.Unauthorized(c, "missing session token")
			c.Abort()
			return
		}
		userID, err := sessions.Verify(c.Request.Context(), token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired session")
			c.Abort()
			return
		}
		c.Set(CtxUserKey, userID)
		c.Next()
	}
}
