package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/twitterlite/internal/model"
	"github.com/d60-Lab/twitterlite/internal/service"
	"github.com/d60-Lab/twitterlite/pkg/response"
)

type createUserRequest struct {
	Login string `json:"login" binding:"required"`
	Email string `json:"email" binding:"required"`
}

type updateUserRequest struct {
	Login     *string `json:"login"`
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// userDTO 用户视图，带当前会话相关的元数据
type userDTO struct {
	*model.User
	IsFollowedByCurrentUser *bool `json:"is_followed_by_current_user,omitempty"`
}

// CreateUser 创建用户
// @Summary 创建用户（login 和 email 全局唯一）
// @Tags 用户
// @Accept json
// @Produce json
// @Param request body createUserRequest true "用户信息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/users [post]
func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "email and login are mandatory fields")
		return
	}
	u, err := h.userService.Create(c.Request.Context(), req.Login, req.Email)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, u)
}

// GetUser 查询用户
// @Summary 查询用户详情
// @Tags 用户
// @Param id path string true "用户ID"
// @Success 200 {object} response.Response{data=userDTO}
// @Failure 404 {object} response.Response
// @Router /api/v1/users/{id} [get]
func (h *Handler) GetUser(c *gin.Context) {
	id := c.Param("id")
	u, err := h.userService.Get(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	dto := userDTO{User: u}
	if me := currentUserID(c); me != "" && me != u.ID {
		if ok, err := h.userService.IsFollowing(c.Request.Context(), u.ID, me); err == nil {
			dto.IsFollowedByCurrentUser = &ok
		}
	}
	response.Success(c, dto)
}

// UpdateUser 更新用户
// @Summary 更新用户（提交的字段才会被修改）
// @Tags 用户
// @Accept json
// @Param id path string true "用户ID"
// @Param request body updateUserRequest true "更新字段"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/users/{id} [put]
func (h *Handler) UpdateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.userService.Update(c.Request.Context(), c.Param("id"), service.UserUpdate{
		Login:     req.Login,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, u)
}

// DeleteUser 删除用户
// @Summary 删除用户（级联两张关系索引）
// @Tags 用户
// @Param id path string true "用户ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/users/{id} [delete]
func (h *Handler) DeleteUser(c *gin.Context) {
	if err := h.userService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, nil)
}

// ListUsers 全量用户列表
// @Summary 用户列表（游标翻页，创建时间倒序）
// @Tags 用户
// @Param cursor query string false "上一页返回的游标"
// @Param limit query int false "每页数量" default(25)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))
	users, next, err := h.userService.List(c.Request.Context(), c.Query("cursor"), limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, gin.H{"list": users, "next_cursor": next})
}
