package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/teamennovat/onebox-sub000/internal/middleware"
)

// composeRequest AI 撰写请求体
type composeRequest struct {
	Instruction string `json:"instruction" binding:"required"`
	SenderName  string `json:"sender_name"`
}

// replyRequest AI 回复请求体
type replyRequest struct {
	Instruction string `json:"instruction" binding:"required"`
	Subject     string `json:"subject"`
	From        string `json:"from"`
	Body        string `json:"body"`
}

// summaryRequest AI 摘要请求体
type summaryRequest struct {
	Subject string `json:"subject"`
	From    string `json:"from"`
	Body    string `json:"body" binding:"required"`
}

// sseHeaders 写入 SSE 响应头
func sseHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
}

// sseStream 向客户端转发 SSE 事件流
//
// 响应头推迟到首个事件写出前才设置，流开始前的错误
// （如限流、参数错误）仍能以普通 JSON 返回。
type sseStream struct {
	c       *gin.Context
	started bool
}

func (s *sseStream) begin() {
	if !s.started {
		sseHeaders(s.c)
		s.started = true
	}
}

// delta 转发一个增量片段
func (s *sseStream) delta(chunk string) error {
	s.begin()
	s.c.SSEvent("delta", chunk)
	s.c.Writer.Flush()
	return nil
}

// done 发送结束事件
func (s *sseStream) done() {
	s.begin()
	s.c.SSEvent("done", "")
	s.c.Writer.Flush()
}

// fail 在流中途出错时发送错误事件
func (s *sseStream) fail(err error) {
	s.c.SSEvent("error", err.Error())
	s.c.Writer.Flush()
}

// Compose AI 流式撰写邮件
// @Summary AI 流式撰写邮件正文
// @Tags assist
// @Accept json
// @Produce text/event-stream
// @Security BearerAuth
// @Param request body composeRequest true "撰写指令"
// @Success 200
// @Failure 429 {object} Response
// @Router /v1/assist/compose [post]
func (h *Handler) Compose(c *gin.Context) {
	var req composeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	stream := &sseStream{c: c}
	err := h.assist.Compose(c.Request.Context(), middleware.UserID(c), req.Instruction, req.SenderName, stream.delta)
	if err != nil {
		// 流尚未开始写时仍可返回 JSON 错误
		if !c.Writer.Written() {
			RespondError(c, err)
			return
		}
		stream.fail(err)
		return
	}

	stream.done()
}

// Reply AI 流式回复邮件
// @Summary AI 流式生成邮件回复
// @Tags assist
// @Accept json
// @Produce text/event-stream
// @Security BearerAuth
// @Param request body replyRequest true "回复指令与原始邮件"
// @Success 200
// @Failure 429 {object} Response
// @Router /v1/assist/reply [post]
func (h *Handler) Reply(c *gin.Context) {
	var req replyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	stream := &sseStream{c: c}
	err := h.assist.Reply(c.Request.Context(), middleware.UserID(c), req.Instruction, req.Subject, req.From, req.Body, stream.delta)
	if err != nil {
		if !c.Writer.Written() {
			RespondError(c, err)
			return
		}
		stream.fail(err)
		return
	}

	stream.done()
}

// Summarize AI 生成邮件摘要
// @Summary AI 生成邮件摘要
// @Tags assist
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body summaryRequest true "待摘要邮件"
// @Success 200 {object} Response
// @Failure 429 {object} Response
// @Router /v1/assist/summary [post]
func (h *Handler) Summarize(c *gin.Context) {
	var req summaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	summary, err := h.assist.Summarize(c.Request.Context(), middleware.UserID(c), req.Subject, req.From, req.Body)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Msg: "success", Data: summary})
}
