package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/twitterlite/internal/service"
	"github.com/d60-Lab/twitterlite/pkg/response"
)

// Handler 聚合所有 HTTP 处理器的依赖
type Handler struct {
	userService service.UserService
	msgService  service.MessageService
	sessions    service.SessionService
}

func New(userService service.UserService, msgService service.MessageService, sessions service.SessionService) *Handler {
	return &Handler{userService: userService, msgService: msgService, sessions: sessions}
}

// respondErr 按错误类别映射响应
func respondErr(c *gin.Context, err error) {
	switch {
	case service.IsValidation(err):
		response.BadRequest(c, err.Error())
	case service.IsConflict(err):
		response.Conflict(c, err.Error())
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrInvalidSession):
		response.Unauthorized(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}

// currentUserID 取 auth 中间件放进上下文的当前用户，未登录返回空串
func currentUserID(c *gin.Context) string {
	return c.GetString("current_user")
}
