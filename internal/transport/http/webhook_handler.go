package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/teamennovat/onebox-sub000/internal/nylas"
)

// webhook 请求体上限，防止恶意大包
const webhookBodyLimit = 1 << 20

// WebhookChallenge 响应服务商的握手校验
//
// 服务商注册 webhook 时会用 GET 携带 challenge 参数验证端点，
// 必须原样返回参数值。
// @Summary Webhook 握手校验
// @Tags webhook
// @Produce plain
// @Param challenge query string true "握手校验串"
// @Success 200 {string} string
// @Router /v1/webhooks/nylas [get]
func (h *Handler) WebhookChallenge(c *gin.Context) {
	challenge := c.Query("challenge")
	if challenge == "" {
		BadRequest(c, "缺少 challenge 参数")
		return
	}
	c.String(http.StatusOK, challenge)
}

// WebhookDeliver 接收邮件事件通知
//
// 先做 HMAC-SHA256 签名校验，签名不符直接拒绝；
// 载荷无法解析返回 400；通过校验后无论分类流水线
// 成败一律返回 200，避免服务商对处理失败的事件反复重投。
// @Summary 接收邮件事件通知
// @Tags webhook
// @Accept json
// @Produce json
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Router /v1/webhooks/nylas [post]
func (h *Handler) WebhookDeliver(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, webhookBodyLimit))
	if err != nil {
		BadRequest(c, "读取请求体失败")
		return
	}

	signature := c.GetHeader(nylas.SignatureHeader)
	if !nylas.VerifyWebhookSignature(h.webhookSecret, signature, body) {
		h.log.Warn("webhook signature verification failed",
			zap.String("client_ip", c.ClientIP()))
		if h.metrics != nil {
			h.metrics.WebhookDeliveriesTotal.WithLabelValues("rejected").Inc()
		}
		Unauthorized(c, "签名校验失败")
		return
	}
	if h.metrics != nil {
		h.metrics.WebhookDeliveriesTotal.WithLabelValues("accepted").Inc()
	}

	var envelope nylas.WebhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		h.log.Warn("failed to decode webhook payload", zap.Error(err))
		BadRequest(c, "载荷解析失败")
		return
	}

	// 只对新邮件分类；message.updated 重分类会给同一封邮件
	// 叠加第二个标签，破坏单封单标签的语义
	if envelope.Type != nylas.WebhookMessageCreated {
		h.log.Debug("ignoring webhook event type", zap.String("type", envelope.Type))
		Success(c, nil)
		return
	}

	if err := h.classifier.ProcessDelivery(c.Request.Context(), &envelope); err != nil {
		// 处理失败只记录，不改变响应状态
		h.log.Error("webhook processing failed", zap.Error(err))
	}
	Success(c, nil)
}
