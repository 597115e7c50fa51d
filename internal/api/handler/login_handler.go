package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/twitterlite/pkg/response"
)

type loginRequest struct {
	Login string `json:"login" binding:"required"`
	Email string `json:"email" binding:"required"`
}

// Login 登录（无密码，login + email 匹配即可）
// @Summary 登录，返回会话 token
// @Tags 会话
// @Accept json
// @Produce json
// @Param request body loginRequest true "登录信息"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 404 {object} response.Response
// @Router /api/v1/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "email and login are mandatory fields")
		return
	}
	token, u, err := h.sessions.Login(c.Request.Context(), req.Login, req.Email)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, gin.H{"token": token, "user": u})
}

// Logout 登出，吊销当前会话
// @Summary 登出
// @Tags 会话
// @Success 200 {object} response.Response
// @Router /api/v1/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if token == "" {
		response.BadRequest(c, "missing session token")
		return
	}
	if err := h.sessions.Logout(c.Request.Context(), token); err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, nil)
}
