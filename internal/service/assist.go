package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teamennovat/onebox-sub000/internal/ai"
	"github.com/teamennovat/onebox-sub000/internal/monitoring"
)

// AI 辅助功能错误
var (
	ErrRateLimited      = errors.New("ai request rate limit exceeded")
	ErrEmptyInstruction = errors.New("instruction must not be empty")
)

// MailSummary 邮件摘要结果
type MailSummary struct {
	Summary     string   `json:"summary"`
	ActionItems []string `json:"actionItems"`
}

// AssistService AI 辅助写信与摘要服务
//
// 撰写与回复走流式端点逐片段返回；摘要走同步端点
// 返回完整 JSON。每个用户有独立的请求频率限制。
type AssistService struct {
	streamClient *ai.Client // 流式撰写/回复
	syncClient   *ai.Client // 同步摘要
	metrics      *monitoring.Metrics
	log          *zap.Logger

	mu         sync.Mutex
	limiters   map[string]*rate.Limiter
	ratePerMin int
}

// NewAssistService 创建 AI 辅助服务
func NewAssistService(
	streamClient *ai.Client,
	syncClient *ai.Client,
	ratePerMin int,
	metrics *monitoring.Metrics,
	log *zap.Logger,
) *AssistService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AssistService{
		streamClient: streamClient,
		syncClient:   syncClient,
		metrics:      metrics,
		log:          log,
		limiters:     make(map[string]*rate.Limiter),
		ratePerMin:   ratePerMin,
	}
}

// allow 检查并消耗用户的一次请求配额
func (s *AssistService) allow(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	limiter, ok := s.limiters[userID]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(float64(s.ratePerMin)/60.0), s.ratePerMin)
		s.limiters[userID] = limiter
	}
	return limiter.Allow()
}

// Compose 流式生成邮件正文
func (s *AssistService) Compose(ctx context.Context, userID, instruction, senderName string, onDelta func(string) error) error {
	if strings.TrimSpace(instruction) == "" {
		return ErrEmptyInstruction
	}
	if !s.allow(userID) {
		return ErrRateLimited
	}

	return s.stream(ctx, ai.ComposeMessages(instruction, senderName), onDelta)
}

// Reply 流式生成邮件回复
func (s *AssistService) Reply(ctx context.Context, userID, instruction, subject, from, body string, onDelta func(string) error) error {
	if strings.TrimSpace(instruction) == "" {
		return ErrEmptyInstruction
	}
	if !s.allow(userID) {
		return ErrRateLimited
	}

	return s.stream(ctx, ai.ReplyMessages(instruction, subject, from, body), onDelta)
}

// Summarize 同步生成邮件摘要与待办事项
func (s *AssistService) Summarize(ctx context.Context, userID, subject, from, body string) (*MailSummary, error) {
	if !s.allow(userID) {
		return nil, ErrRateLimited
	}

	// 控制提示词长度，正文只取前 4000 字符
	if len(body) > 4000 {
		body = body[:4000]
	}

	start := time.Now()
	raw, err := s.syncClient.Complete(ctx, ai.SummaryMessages(subject, from, body), true)
	s.countAI("openrouter", start, err)
	if err != nil {
		return nil, err
	}

	var result MailSummary
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &result); err != nil {
		return nil, fmt.Errorf("failed to parse summary result: %w", err)
	}
	if result.Summary == "" {
		return nil, fmt.Errorf("summary result was empty")
	}
	if result.ActionItems == nil {
		result.ActionItems = []string{}
	}
	return &result, nil
}

// stream 执行一次流式生成并记录指标
func (s *AssistService) stream(ctx context.Context, messages []ai.ChatMessage, onDelta func(string) error) error {
	start := time.Now()
	err := s.streamClient.Stream(ctx, messages, onDelta)
	s.countAI("groq", start, err)
	return err
}

// countAI 记录一次 AI 调用结果
func (s *AssistService) countAI(provider string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.AIRequestDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.AIRequestsTotal.WithLabelValues(provider, status).Inc()
}
