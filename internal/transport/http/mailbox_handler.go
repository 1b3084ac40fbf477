package http

import (
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/teamennovat/onebox-sub000/internal/middleware"
	"github.com/teamennovat/onebox-sub000/internal/nylas"
	"github.com/teamennovat/onebox-sub000/internal/service"
)

// resolveGrant 校验当前用户对路径中授权 ID 的归属
//
// 校验失败时已写入响应，返回 false。
func (h *Handler) resolveGrant(c *gin.Context) (string, bool) {
	grantID := c.Param("grantId")
	if grantID == "" {
		BadRequest(c, "缺少授权 ID")
		return "", false
	}
	if _, err := h.accounts.ResolveGrant(c.Request.Context(), middleware.UserID(c), grantID); err != nil {
		RespondError(c, err)
		return "", false
	}
	return grantID, true
}

// ListFolders 列出文件夹
// @Summary 列出邮箱文件夹
// @Tags mailbox
// @Produce json
// @Security BearerAuth
// @Param grantId path string true "授权 ID"
// @Success 200 {object} Response
// @Router /v1/grants/{grantId}/folders [get]
func (h *Handler) ListFolders(c *gin.Context) {
	grantID, ok := h.resolveGrant(c)
	if !ok {
		return
	}

	folders, err := h.mailbox.ListFolders(c.Request.Context(), grantID)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, folders)
}

// ListMessages 分页列出邮件
// @Summary 分页列出邮件
// @Tags mailbox
// @Produce json
// @Security BearerAuth
// @Param grantId path string true "授权 ID"
// @Param folder query string false "文件夹 ID"
// @Param search query string false "搜索条件"
// @Param page query int false "页码，从 1 开始"
// @Param unread query bool false "仅未读"
// @Param refresh query bool false "丢弃缓冲区重新拉取"
// @Success 200 {object} Response
// @Router /v1/grants/{grantId}/messages [get]
func (h *Handler) ListMessages(c *gin.Context) {
	grantID, ok := h.resolveGrant(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	list, err := h.mailbox.ListMessages(c.Request.Context(), grantID, service.ListOptions{
		FolderID:   c.Query("folder"),
		Search:     c.Query("search"),
		UnreadOnly: c.Query("unread") == "true",
		Page:       page,
		Refresh:    c.Query("refresh") == "true",
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, list)
}

// GetMessage 获取邮件详情
// @Summary 获取邮件详情
// @Tags mailbox
// @Produce json
// @Security BearerAuth
// @Param grantId path string true "授权 ID"
// @Param messageId path string true "邮件 ID"
// @Success 200 {object} Response
// @Router /v1/grants/{grantId}/messages/{messageId} [get]
func (h *Handler) GetMessage(c *gin.Context) {
	grantID, ok := h.resolveGrant(c)
	if !ok {
		return
	}

	msg, err := h.mailbox.GetMessage(c.Request.Context(), grantID, c.Param("messageId"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, msg)
}

// UpdateMessage 更新邮件
// @Summary 更新邮件（星标/已读/移动文件夹）
// @Tags mailbox
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param grantId path string true "授权 ID"
// @Param messageId path string true "邮件 ID"
// @Param request body nylas.UpdateMessageRequest true "更新内容"
// @Success 200 {object} Response
// @Router /v1/grants/{grantId}/messages/{messageId} [put]
func (h *Handler) UpdateMessage(c *gin.Context) {
	grantID, ok := h.resolveGrant(c)
	if !ok {
		return
	}

	var req nylas.UpdateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	msg, err := h.mailbox.UpdateMessage(c.Request.Context(), grantID, c.Param("messageId"), req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, msg)
}

// DeleteMessage 删除邮件
// @Summary 删除邮件
// @Tags mailbox
// @Produce json
// @Security BearerAuth
// @Param grantId path string true "授权 ID"
// @Param messageId path string true "邮件 ID"
// @Success 204
// @Router /v1/grants/{grantId}/messages/{messageId} [delete]
func (h *Handler) DeleteMessage(c *gin.Context) {
	grantID, ok := h.resolveGrant(c)
	if !ok {
		return
	}

	if err := h.mailbox.DeleteMessage(c.Request.Context(), grantID, c.Param("messageId")); err != nil {
		RespondError(c, err)
		return
	}
	NoContent(c)
}

// SendMessage 发送邮件
// @Summary 发送邮件
// @Tags mailbox
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param grantId path string true "授权 ID"
// @Param request body nylas.SendRequest true "邮件内容"
// @Success 200 {object} Response
// @Router /v1/grants/{grantId}/messages/send [post]
func (h *Handler) SendMessage(c *gin.Context) {
	grantID, ok := h.resolveGrant(c)
	if !ok {
		return
	}

	var req nylas.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}
	if len(req.To) == 0 {
		BadRequest(c, "收件人不能为空")
		return
	}

	msg, err := h.mailbox.Send(c.Request.Context(), grantID, req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, msg)
}

// ListDrafts 列出草稿
// @Summary 列出草稿
// @Tags drafts
// @Produce json
// @Security BearerAuth
// @Param grantId path string true "授权 ID"
// @Success 200 {object} Response
// @Router /v1/grants/{grantId}/drafts [get]
func (h *Handler) ListDrafts(c *gin.Context) {
	grantID, ok := h.resolveGrant(c)
	if !ok {
		return
	}

	drafts, err := h.mailbox.ListDrafts(c.Request.Context(), grantID)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, drafts)
}

// CreateDraft 创建草稿
// @Summary 创建草稿
// @Tags drafts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param grantId path string true "授权 ID"
// @Param request body nylas.Draft true "草稿内容"
// @Success 201 {object} Response
// @Router /v1/grants/{grantId}/drafts [post]
func (h *Handler) CreateDraft(c *gin.Context) {
	grantID, ok := h.resolveGrant(c)
	if !ok {
		return
	}

	var draft nylas.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	created, err := h.mailbox.CreateDraft(c.Request.Context(), grantID, draft)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, created)
}

// GetDraft 获取草稿详情
// @Summary 获取草稿详情
// @Tags drafts
// @Produce json
// @Security BearerAuth
// @Param grantId path string true "授权 ID"
// @Param draftId path string true "草稿 ID"
// @Success 200 {object} Response
// @Router /v1/grants/{grantId}/drafts/{draftId} [get]
func (h *Handler) GetDraft(c *gin.Context) {
	grantID, ok := h.resolveGrant(c)
	if !ok {
		return
	}

	draft, err := h.mailbox.GetDraft(c.Request.Context(), grantID, c.Param("draftId"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, draft)
}

// UpdateDraft 更新草稿
// @Summary 更新草稿
// @Tags drafts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param grantId path string true "授权 ID"
// @Param draftId path string true "草稿 ID"
// @Param request body nylas.Draft true "草稿内容"
// @Success 200 {object} Response
// @Router /v1/grants/{grantId}/drafts/{draftId} [put]
func (h *Handler) UpdateDraft(c *gin.Context) {
	grantID, ok := h.resolveGrant(c)
	if !ok {
		return
	}

	var draft nylas.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	updated, err := h.mailbox.UpdateDraft(c.Request.Context(), grantID, c.Param("draftId"), draft)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, updated)
}

// DeleteDraft 删除草稿
// @Summary 删除草稿
// @Tags drafts
// @Produce json
// @Security BearerAuth
// @Param grantId path string true "授权 ID"
// @Param draftId path string true "草稿 ID"
// @Success 204
// @Router /v1/grants/{grantId}/drafts/{draftId} [delete]
func (h *Handler) DeleteDraft(c *gin.Context) {
	grantID, ok := h.resolveGrant(c)
	if !ok {
		return
	}

	if err := h.mailbox.DeleteDraft(c.Request.Context(), grantID, c.Param("draftId")); err != nil {
		RespondError(c, err)
		return
	}
	NoContent(c)
}

// DownloadAttachment 下载附件
// @Summary 下载附件
// @Tags mailbox
// @Produce octet-stream
// @Security BearerAuth
// @Param grantId path string true "授权 ID"
// @Param attachmentId path string true "附件 ID"
// @Param message_id query string true "邮件 ID"
// @Success 200
// @Router /v1/grants/{grantId}/attachments/{attachmentId} [get]
func (h *Handler) DownloadAttachment(c *gin.Context) {
	grantID, ok := h.resolveGrant(c)
	if !ok {
		return
	}

	messageID := c.Query("message_id")
	if messageID == "" {
		BadRequest(c, "缺少邮件 ID")
		return
	}

	body, contentType, err := h.mailbox.DownloadAttachment(c.Request.Context(), grantID, c.Param("attachmentId"), messageID)
	if err != nil {
		RespondError(c, err)
		return
	}
	defer body.Close()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Status(200)
	io.Copy(c.Writer, body)
}
