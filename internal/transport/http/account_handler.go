package http

import (
	"github.com/gin-gonic/gin"

	"github.com/teamennovat/onebox-sub000/internal/middleware"
)

// ConnectAccount 获取 OAuth 授权跳转地址
// @Summary 获取邮箱 OAuth 授权地址
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param login_hint query string false "预填邮箱地址"
// @Success 200 {object} Response
// @Router /v1/accounts/connect [get]
func (h *Handler) ConnectAccount(c *gin.Context) {
	url := h.accounts.AuthURL(middleware.UserID(c), c.Query("login_hint"))
	Success(c, gin.H{"auth_url": url})
}

// OAuthCallback 处理 OAuth 回调
// @Summary 处理邮箱 OAuth 回调
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param code query string true "授权码"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Router /v1/accounts/callback [get]
func (h *Handler) OAuthCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		BadRequest(c, "缺少授权码")
		return
	}

	account, err := h.accounts.HandleCallback(c.Request.Context(), middleware.UserID(c), code)
	if err != nil {
		RespondError(c, err)
		return
	}

	Success(c, account)
}

// ListAccounts 列出当前用户的邮箱账户
// @Summary 列出已连接的邮箱账户
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response
// @Router /v1/accounts [get]
func (h *Handler) ListAccounts(c *gin.Context) {
	accounts, err := h.accounts.ListAccounts(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, accounts)
}

// SetPrimaryAccount 切换主账户
// @Summary 将指定账户设为主账户
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "账户 ID"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /v1/accounts/{accountId}/primary [put]
func (h *Handler) SetPrimaryAccount(c *gin.Context) {
	err := h.accounts.SetPrimary(c.Request.Context(), middleware.UserID(c), c.Param("accountId"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, nil)
}

// DisconnectAccount 断开邮箱账户
// @Summary 断开邮箱账户
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param accountId path string true "账户 ID"
// @Success 204
// @Failure 404 {object} Response
// @Router /v1/accounts/{accountId} [delete]
func (h *Handler) DisconnectAccount(c *gin.Context) {
	err := h.accounts.Disconnect(c.Request.Context(), middleware.UserID(c), c.Param("accountId"))
	if err != nil {
		RespondError(c, err)
		return
	}
	NoContent(c)
}
