package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/teamennovat/onebox-sub000/internal/auth/jwt"
	"github.com/teamennovat/onebox-sub000/internal/config"
	"github.com/teamennovat/onebox-sub000/internal/middleware"
	"github.com/teamennovat/onebox-sub000/internal/monitoring"
	"github.com/teamennovat/onebox-sub000/internal/service"
	"github.com/teamennovat/onebox-sub000/internal/websocket"
)

// Handler 聚合全部 HTTP 处理器的依赖
type Handler struct {
	auth       *service.AuthService
	accounts   *service.AccountService
	mailbox    *service.MailboxService
	labels     *service.LabelService
	assist     *service.AssistService
	classifier *service.ClassifierService
	hub        *websocket.Hub

	jwtManager    *jwt.Manager
	metrics       *monitoring.Metrics
	webhookSecret string
	log           *zap.Logger
}

// RouterDependencies 路由装配依赖
type RouterDependencies struct {
	Config     *config.Config
	Auth       *service.AuthService
	Accounts   *service.AccountService
	Mailbox    *service.MailboxService
	Labels     *service.LabelService
	Assist     *service.AssistService
	Classifier *service.ClassifierService
	Hub        *websocket.Hub
	JWTManager *jwt.Manager
	Metrics    *monitoring.Metrics
	Health     healthcheck.Handler
	Logger     *zap.Logger
}

// NewRouter 装配全部路由与中间件
func NewRouter(deps RouterDependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	h := &Handler{
		auth:          deps.Auth,
		accounts:      deps.Accounts,
		mailbox:       deps.Mailbox,
		labels:        deps.Labels,
		assist:        deps.Assist,
		classifier:    deps.Classifier,
		hub:           deps.Hub,
		jwtManager:    deps.JWTManager,
		metrics:       deps.Metrics,
		webhookSecret: deps.Config.Nylas.WebhookSecret,
		log:           log,
	}

	router := gin.New()
	router.Use(
		middleware.RecoveryHandler(log),
		middleware.RequestLogger(log),
		middleware.SecurityHeaders(),
		middleware.BodyLimit(4<<20),
	)
	if deps.Metrics != nil {
		router.Use(middleware.MetricsCollector(deps.Metrics))
	}

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	origins := deps.Config.CORS.AllowedOrigins
	if len(origins) == 1 && origins[0] == "*" {
		// 通配来源与凭证不能同时开启
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
		corsConfig.AllowCredentials = true
	}
	router.Use(cors.New(corsConfig))

	// 运维端点
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if deps.Health != nil {
		router.GET("/live", gin.WrapF(deps.Health.LiveEndpoint))
		router.GET("/ready", gin.WrapF(deps.Health.ReadyEndpoint))
	}

	v1 := router.Group("/v1")

	// Webhook：服务商回调，不走 JWT 认证
	v1.GET("/webhooks/nylas", h.WebhookChallenge)
	v1.POST("/webhooks/nylas", h.WebhookDeliver)

	// 认证
	auth := v1.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.GET("/me", middleware.RequireAuth(deps.JWTManager), h.Me)
	}

	// 以下路由全部需要认证
	authed := v1.Group("")
	authed.Use(middleware.RequireAuth(deps.JWTManager))
	{
		// 邮箱账户
		authed.GET("/accounts", h.ListAccounts)
		authed.GET("/accounts/connect", h.ConnectAccount)
		authed.GET("/accounts/callback", h.OAuthCallback)
		authed.PUT("/accounts/:accountId/primary", h.SetPrimaryAccount)
		authed.DELETE("/accounts/:accountId", h.DisconnectAccount)
		authed.GET("/accounts/:accountId/labeled", h.LabeledMessages)

		// 邮箱代理
		grants := authed.Group("/grants/:grantId")
		{
			grants.GET("/folders", h.ListFolders)
			grants.GET("/messages", h.ListMessages)
			grants.POST("/messages/send", h.SendMessage)
			grants.GET("/messages/:messageId", h.GetMessage)
			grants.PUT("/messages/:messageId", h.UpdateMessage)
			grants.DELETE("/messages/:messageId", h.DeleteMessage)
			grants.GET("/drafts", h.ListDrafts)
			grants.POST("/drafts", h.CreateDraft)
			grants.GET("/drafts/:draftId", h.GetDraft)
			grants.PUT("/drafts/:draftId", h.UpdateDraft)
			grants.DELETE("/drafts/:draftId", h.DeleteDraft)
			grants.GET("/attachments/:attachmentId", h.DownloadAttachment)
		}

		// 标签
		authed.GET("/labels", h.ListLabels)
		authed.POST("/labels/apply", h.ApplyLabel)
		authed.GET("/messages/:messageId/labels", h.MessageLabels)
		authed.DELETE("/messages/:messageId/labels", h.RemoveLabel)

		// AI 辅助
		assist := authed.Group("/assist")
		{
			assist.POST("/compose", h.Compose)
			assist.POST("/reply", h.Reply)
			assist.POST("/summary", h.Summarize)
		}

		// 实时事件
		authed.GET("/ws", h.Events)
	}

	return router
}
