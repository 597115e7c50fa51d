package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/twitterlite/internal/model"
	"github.com/d60-Lab/twitterlite/pkg/response"
)

type postMessageRequest struct {
	SenderID string `json:"sender_id" binding:"required"`
	Text     string `json:"text" binding:"required"`
}

type updateMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// messageDTO 消息视图，带当前会话相关的元数据
type messageDTO struct {
	*model.Message
	IsMessageFromCurrentUser bool `json:"is_message_from_current_user"`
}

func (h *Handler) messageDTOs(c *gin.Context, msgs []*model.Message) []messageDTO {
	me := currentUserID(c)
	out := make([]messageDTO, len(msgs))
	for i, m := range msgs {
		out[i] = messageDTO{Message: m, IsMessageFromCurrentUser: me != "" && m.SenderID == me}
	}
	return out
}

// PostMessage 发消息
// @Summary 发布消息（接收者索引异步扩散到粉丝）
// @Tags 消息
// @Accept json
// @Produce json
// @Param request body postMessageRequest true "消息内容"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/messages [post]
func (h *Handler) PostMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	msg, err := h.msgService.Create(c.Request.Context(), req.SenderID, req.Text)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, msg)
}

// GetMessage 查询消息
// @Summary 查询消息详情
// @Tags 消息
// @Param id path string true "消息ID"
// @Success 200 {object} response.Response{data=messageDTO}
// @Failure 404 {object} response.Response
// @Router /api/v1/messages/{id} [get]
func (h *Handler) GetMessage(c *gin.Context) {
	msg, err := h.msgService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	me := currentUserID(c)
	response.Success(c, messageDTO{Message: msg, IsMessageFromCurrentUser: me != "" && msg.SenderID == me})
}

// UpdateMessage 更新消息文本
// @Summary 更新消息（只能改文本，发送者与创建时间不可变）
// @Tags 消息
// @Accept json
// @Param id path string true "消息ID"
// @Param request body updateMessageRequest true "新文本"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/messages/{id} [put]
func (h *Handler) UpdateMessage(c *gin.Context) {
	var req updateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	msg, err := h.msgService.Update(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, msg)
}

// DeleteMessage 删除消息
// @Summary 删除消息（级联接收者索引）
// @Tags 消息
// @Param id path string true "消息ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/messages/{id} [delete]
func (h *Handler) DeleteMessage(c *gin.Context) {
	if err := h.msgService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, nil)
}

// ListMessages 全量消息
// @Summary 消息列表（游标翻页，创建时间倒序）
// @Tags 消息
// @Param cursor query string false "游标"
// @Param limit query int false "每页数量" default(25)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/messages [get]
func (h *Handler) ListMessages(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))
	msgs, next, err := h.msgService.ListAll(c.Request.Context(), c.Query("cursor"), limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, gin.H{"list": h.messageDTOs(c, msgs), "next_cursor": next})
}

// ListUserMessages 某作者的消息
// @Summary 某用户发布的消息（作者写后读可见）
// @Tags 消息
// @Param id path string true "用户ID"
// @Param cursor query string false "游标"
// @Param limit query int false "每页数量" default(25)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/users/{id}/messages [get]
func (h *Handler) ListUserMessages(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))
	msgs, next, err := h.msgService.ListUserMessages(c.Request.Context(), c.Param("id"), c.Query("cursor"), limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, gin.H{"list": h.messageDTOs(c, msgs), "next_cursor": next})
}

// ListUserTimeline 某用户的时间线
// @Summary 时间线（扩散写好的接收者索引，粉丝侧最终一致）
// @Tags 消息
// @Param id path string true "用户ID"
// @Param cursor query string false "游标"
// @Param limit query int false "每页数量" default(25)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/users/{id}/timeline [get]
func (h *Handler) ListUserTimeline(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))
	msgs, next, err := h.msgService.ListUserTimeline(c.Request.Context(), c.Param("id"), c.Query("cursor"), limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, gin.H{"list": h.messageDTOs(c, msgs), "next_cursor": next})
}
