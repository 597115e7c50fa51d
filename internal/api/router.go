package api

import (
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/twitterlite/config"
	_ "github.com/d60-Lab/twitterlite/docs"
	"github.com/d60-Lab/twitterlite/internal/api/handler"
	"github.com/d60-Lab/twitterlite/internal/api/middleware"
	"github.com/d60-Lab/twitterlite/internal/service"
)

// NewRouter 组装路由与中间件。
// 创建用户、登录、swagger、健康检查不需要会话，其余接口都过 Auth。
func NewRouter(cfg *config.Config, h *handler.Handler, sessions service.SessionService) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	r.Use(otelgin.Middleware("twitterlite"))
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(middleware.RateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	v1.POST("/users", h.CreateUser)
	v1.POST("/login", h.Login)

	auth := v1.Group("")
	auth.Use(middleware.Auth(sessions))
	{
		auth.POST("/logout", h.Logout)

		auth.GET("/users", h.ListUsers)
		auth.GET("/users/:id", h.GetUser)
		auth.PUT("/users/:id", h.UpdateUser)
		auth.DELETE("/users/:id", h.DeleteUser)
		auth.GET("/users/:id/messages", h.ListUserMessages)
		auth.GET("/users/:id/timeline", h.ListUserTimeline)
		auth.GET("/users/:id/followers", h.ListFollowers)
		auth.GET("/users/:id/followed", h.ListFollowed)

		auth.POST("/relations/follow", h.Follow)
		auth.POST("/relations/unfollow", h.Unfollow)
		auth.GET("/relations/is-following", h.IsFollowing)

		auth.POST("/messages", h.PostMessage)
		auth.GET("/messages", h.ListMessages)
		auth.GET("/messages/:id", h.GetMessage)
		auth.PUT("/messages/:id", h.UpdateMessage)
		auth.DELETE("/messages/:id", h.DeleteMessage)
	}
	return r
}
