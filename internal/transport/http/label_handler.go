package http

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/teamennovat/onebox-sub000/internal/domain"
	"github.com/teamennovat/onebox-sub000/internal/middleware"
)

// applyLabelRequest 手动打标请求体
type applyLabelRequest struct {
	MessageID string             `json:"message_id" binding:"required"`
	Label     string             `json:"label" binding:"required"`
	AccountID string             `json:"account_id" binding:"required"`
	Details   domain.MailDetails `json:"details"`
}

// ListLabels 列出标签目录
// @Summary 列出全部预置标签
// @Tags labels
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response
// @Router /v1/labels [get]
func (h *Handler) ListLabels(c *gin.Context) {
	labels, err := h.labels.Catalog(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, labels)
}

// ApplyLabel 手动为邮件打标
// @Summary 为邮件打标（幂等）
// @Tags labels
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body applyLabelRequest true "打标信息"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Router /v1/labels/apply [post]
func (h *Handler) ApplyLabel(c *gin.Context) {
	var req applyLabelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	account, err := h.accounts.ListAccounts(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	var owner *domain.EmailAccount
	for _, a := range account {
		if a.ID == req.AccountID {
			owner = a
			break
		}
	}
	if owner == nil {
		Forbidden(c, MsgGrantForbidden)
		return
	}

	// 手动打标与自动分类同样记录归属授权，保证可见范围一致
	ml := &domain.MessageLabel{
		MessageID:   req.MessageID,
		AccountID:   req.AccountID,
		AppliedBy:   []string{owner.GrantID},
		MailDetails: req.Details,
	}
	created, err := h.labels.ApplyByName(c.Request.Context(), req.Label, ml)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, gin.H{"created": created, "label_id": ml.LabelID})
}

// MessageLabels 列出单封邮件的标签
// @Summary 列出邮件已有标签
// @Tags labels
// @Produce json
// @Security BearerAuth
// @Param messageId path string true "邮件 ID"
// @Success 200 {object} Response
// @Router /v1/messages/{messageId}/labels [get]
func (h *Handler) MessageLabels(c *gin.Context) {
	mls, err := h.labels.MessageLabels(c.Request.Context(), c.Param("messageId"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, mls)
}

// LabeledMessages 按标签分页列出账户下的邮件
// @Summary 按标签列出已分类邮件
// @Tags labels
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "账户 ID"
// @Param label query string true "标签名称"
// @Param limit query int false "每页条数"
// @Param offset query int false "偏移量"
// @Success 200 {object} Response
// @Router /v1/accounts/{accountId}/labeled [get]
func (h *Handler) LabeledMessages(c *gin.Context) {
	accountID := c.Param("accountId")
	labelName := c.Query("label")
	if labelName == "" {
		BadRequest(c, "缺少标签名称")
		return
	}

	account, err := h.accounts.ListAccounts(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	owned := false
	for _, a := range account {
		if a.ID == accountID {
			owned = true
			break
		}
	}
	if !owned {
		Forbidden(c, MsgGrantForbidden)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	mls, err := h.labels.LabeledMessages(c.Request.Context(), accountID, labelName, limit, offset)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, mls)
}

// RemoveLabel 移除邮件标签
// @Summary 移除邮件标签
// @Tags labels
// @Produce json
// @Security BearerAuth
// @Param messageId path string true "邮件 ID"
// @Param label query string true "标签名称"
// @Success 204
// @Router /v1/messages/{messageId}/labels [delete]
func (h *Handler) RemoveLabel(c *gin.Context) {
	labelName := c.Query("label")
	if labelName == "" {
		BadRequest(c, "缺少标签名称")
		return
	}

	if err := h.labels.Remove(c.Request.Context(), c.Param("messageId"), labelName); err != nil {
		RespondError(c, err)
		return
	}
	NoContent(c)
}
