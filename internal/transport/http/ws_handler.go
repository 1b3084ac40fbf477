package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/teamennovat/onebox-sub000/internal/middleware"
)

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 浏览器侧跨域由 CORS 中间件统一控制
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Events WebSocket 实时事件订阅
//
// 认证通过后升级连接，向客户端推送打标等实时事件。
// @Summary 订阅实时事件
// @Tags realtime
// @Security BearerAuth
// @Success 101
// @Router /v1/ws [get]
func (h *Handler) Events(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		Unauthorized(c, "缺少认证令牌")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	h.hub.NewClient(conn, userID)
}
