package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/twitterlite/pkg/response"
)

type followRequest struct {
	FollowerID string `json:"follower_id" binding:"required"`
	FollowedID string `json:"followed_id" binding:"required"`
}

// Follow 建立关注（异步扩散历史消息）
// @Summary 关注用户
// @Tags 关系链
// @Accept json
// @Produce json
// @Param request body followRequest true "关注信息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/relations/follow [post]
func (h *Handler) Follow(c *gin.Context) {
	var req followRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.userService.Follow(c.Request.Context(), req.FollowerID, req.FollowedID); err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, nil)
}

// Unfollow 取消关注（异步从历史消息撤出）
// @Summary 取消关注
// @Tags 关系链
// @Accept json
// @Produce json
// @Param request body followRequest true "取消关注信息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/relations/unfollow [post]
func (h *Handler) Unfollow(c *gin.Context) {
	var req followRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.userService.Unfollow(c.Request.Context(), req.FollowerID, req.FollowedID); err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, nil)
}

// IsFollowing 查询关注关系
// @Summary 是否已关注（读的是 follower 侧索引，follow 落库后立即为真）
// @Tags 关系链
// @Param follower_id query string true "粉丝ID"
// @Param followed_id query string true "被关注者ID"
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/relations/is-following [get]
func (h *Handler) IsFollowing(c *gin.Context) {
	followerID := c.Query("follower_id")
	followedID := c.Query("followed_id")
	if followerID == "" || followedID == "" {
		response.BadRequest(c, "follower_id and followed_id are mandatory")
		return
	}
	ok, err := h.userService.IsFollowing(c.Request.Context(), followedID, followerID)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, gin.H{"is_following": ok})
}

// ListFollowers 查询某用户的粉丝
// @Summary 粉丝列表（游标翻页）
// @Tags 关系链
// @Param id path string true "用户ID"
// @Param cursor query string false "游标"
// @Param limit query int false "每页数量" default(25)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/users/{id}/followers [get]
func (h *Handler) ListFollowers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))
	users, next, err := h.userService.ListFollowers(c.Request.Context(), c.Param("id"), c.Query("cursor"), limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, gin.H{"list": users, "next_cursor": next})
}

// ListFollowed 查询某用户关注的人
// @Summary 关注列表（游标翻页）
// @Tags 关系链
// @Param id path string true "用户ID"
// @Param cursor query string false "游标"
// @Param limit query int false "每页数量" default(25)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/users/{id}/followed [get]
func (h *Handler) ListFollowed(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))
	users, next, err := h.userService.ListFollowed(c.Request.Context(), c.Param("id"), c.Query("cursor"), limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, gin.H{"list": users, "next_cursor": next})
}
