package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/teamennovat/onebox-sub000/internal/ai"
	"github.com/teamennovat/onebox-sub000/internal/domain"
	"github.com/teamennovat/onebox-sub000/internal/monitoring"
	"github.com/teamennovat/onebox-sub000/internal/nylas"
	"github.com/teamennovat/onebox-sub000/internal/storage"
	redisstore "github.com/teamennovat/onebox-sub000/internal/storage/redis"
	"github.com/teamennovat/onebox-sub000/internal/websocket"
)

// 单次投递内并发处理的邮件数上限
const classifyConcurrency = 4

// 授权到账户映射的缓存有效期
const grantCacheTTL = 5 * time.Minute

// classifyResult AI 分类响应体
type classifyResult struct {
	Label string `json:"label"`
}

// ClassifierService Webhook 邮件自动打标流水线
//
// 对每封新邮件：解析账户归属、调用 AI 分类、校验标签名、
// 幂等落库、推送实时事件。单封邮件失败不影响同批其他邮件。
type ClassifierService struct {
	store      storage.Store
	cache      *redisstore.Cache
	aiClient   *ai.Client
	labels     *LabelService
	hub        *websocket.Hub
	metrics    *monitoring.Metrics
	labelNames []string
	log        *zap.Logger
}

// NewClassifierService 创建分类服务
func NewClassifierService(
	store storage.Store,
	cache *redisstore.Cache,
	aiClient *ai.Client,
	labels *LabelService,
	hub *websocket.Hub,
	metrics *monitoring.Metrics,
	log *zap.Logger,
) *ClassifierService {
	if log == nil {
		log = zap.NewNop()
	}

	catalog := domain.ClassificationLabels()
	names := make([]string, 0, len(catalog))
	for _, label := range catalog {
		names = append(names, label.Name)
	}

	return &ClassifierService{
		store:      store,
		cache:      cache,
		aiClient:   aiClient,
		labels:     labels,
		hub:        hub,
		metrics:    metrics,
		labelNames: names,
		log:        log,
	}
}

// ProcessDelivery 处理一次 Webhook 投递中的全部邮件
//
// 等待所有邮件处理完成后返回；每封邮件的结果单独记录日志，
// 返回的错误只用于记录，不改变 Webhook 的响应状态。
func (s *ClassifierService) ProcessDelivery(ctx context.Context, envelope *nylas.WebhookEnvelope) error {
	messages := envelope.Messages()
	if len(messages) == 0 {
		s.log.Debug("webhook delivery contained no messages", zap.String("type", envelope.Type))
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(classifyConcurrency)

	for _, msg := range messages {
		msg := msg
		g.Go(func() error {
			if err := s.ProcessMessage(gctx, &msg); err != nil {
				s.log.Error("failed to process webhook message",
					zap.String("message_id", msg.ID),
					zap.String("grant_id", msg.GrantID),
					zap.Error(err))
			}
			// 单封失败不取消同批其他邮件
			return nil
		})
	}
	return g.Wait()
}

// ProcessMessage 对单封邮件执行完整分类流水线
func (s *ClassifierService) ProcessMessage(ctx context.Context, msg *nylas.Message) error {
	start := time.Now()

	account, err := s.resolveAccount(ctx, msg.GrantID)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			s.log.Debug("webhook message for unknown grant, skipping",
				zap.String("grant_id", msg.GrantID),
				zap.String("message_id", msg.ID))
			return nil
		}
		return err
	}

	labelName, err := s.classify(ctx, msg)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ClassificationErrors.Inc()
		}
		return fmt.Errorf("classification failed: %w", err)
	}

	ml := &domain.MessageLabel{
		MessageID:   msg.ID,
		AccountID:   account.ID,
		AppliedBy:   s.fanOutGrants(ctx, msg),
		MailDetails: snapshotMailDetails(msg),
	}

	created, err := s.labels.ApplyByName(ctx, labelName, ml)
	if err != nil {
		if errors.Is(err, ErrUnknownLabel) {
			// 模型输出了目录之外的名称，丢弃该结果
			s.log.Warn("classifier returned unknown label, dropping",
				zap.String("message_id", msg.ID),
				zap.String("label", labelName))
			if s.metrics != nil {
				s.metrics.ClassificationErrors.Inc()
			}
			return nil
		}
		return fmt.Errorf("failed to apply label: %w", err)
	}

	if s.metrics != nil {
		s.metrics.MessagesClassifiedTotal.WithLabelValues(labelName).Inc()
		outcome := "duplicate"
		if created {
			outcome = "created"
		}
		s.metrics.LabelsAppliedTotal.WithLabelValues(outcome).Inc()
	}

	if created && s.hub != nil {
		s.hub.PublishLabelApplied(account.UserID, websocket.LabelAppliedData{
			MessageID: msg.ID,
			LabelID:   ml.LabelID,
			LabelName: labelName,
			AccountID: account.ID,
			Subject:   msg.Subject,
		})
	}

	s.log.Info("message classified",
		zap.String("message_id", msg.ID),
		zap.String("grant_id", msg.GrantID),
		zap.String("label", labelName),
		zap.Bool("created", created),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// resolveAccount 解析授权对应的邮箱账户，优先读 Redis 缓存
func (s *ClassifierService) resolveAccount(ctx context.Context, grantID string) (*domain.EmailAccount, error) {
	key := redisstore.GrantKey(grantID)

	if s.cache != nil {
		var cached domain.EmailAccount
		if err := s.cache.GetJSON(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, redisstore.ErrCacheMiss) {
			s.log.Warn("grant cache read failed", zap.String("grant_id", grantID), zap.Error(err))
		}
	}

	account, err := s.store.GetAccountByGrantID(ctx, grantID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, account, grantCacheTTL); err != nil {
			s.log.Warn("grant cache write failed", zap.String("grant_id", grantID), zap.Error(err))
		}
	}
	return account, nil
}

// fanOutGrants 计算标签关联对哪些授权可见
//
// 收件人中属于本系统其他已连接账户的邮箱，其授权也加入
// applied_by，使同一封邮件在所有相关账户下可见。
func (s *ClassifierService) fanOutGrants(ctx context.Context, msg *nylas.Message) []string {
	grants := []string{msg.GrantID}
	seen := map[string]struct{}{msg.GrantID: {}}

	recipients := append(append([]nylas.Participant{}, msg.To...), msg.Cc...)
	for _, p := range recipients {
		if p.Email == "" {
			continue
		}
		account, err := s.store.GetAccountByEmail(ctx, p.Email)
		if err != nil {
			if !errors.Is(err, storage.ErrAccountNotFound) {
				s.log.Warn("recipient account lookup failed",
					zap.String("email", p.Email), zap.Error(err))
			}
			continue
		}
		if _, ok := seen[account.GrantID]; ok {
			continue
		}
		seen[account.GrantID] = struct{}{}
		grants = append(grants, account.GrantID)
	}
	return grants
}

// classify 调用 AI 对邮件分类并解析出标签名
func (s *ClassifierService) classify(ctx context.Context, msg *nylas.Message) (string, error) {
	from := ""
	if len(msg.From) > 0 {
		from = formatParticipant(msg.From[0])
	}

	snippet := msg.Snippet
	if snippet == "" {
		snippet = msg.Body
	}
	// 控制提示词长度，正文只取前 2000 字符
	if len(snippet) > 2000 {
		snippet = snippet[:2000]
	}

	attachments := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		attachments = append(attachments, a.Filename)
	}

	prompt := ai.ClassifyMessages(s.labelNames, msg.Subject, from, snippet, attachments)

	start := time.Now()
	raw, err := s.aiClient.Complete(ctx, prompt, true)
	if s.metrics != nil {
		s.metrics.AIRequestDuration.WithLabelValues("openrouter").Observe(time.Since(start).Seconds())
		status := "ok"
		if err != nil {
			status = "error"
		}
		s.metrics.AIRequestsTotal.WithLabelValues("openrouter", status).Inc()
	}
	if err != nil {
		return "", err
	}

	var result classifyResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &result); err != nil {
		return "", fmt.Errorf("failed to parse classification result %q: %w", raw, err)
	}
	if result.Label == "" {
		return "", fmt.Errorf("classification result missing label")
	}
	return strings.TrimSpace(result.Label), nil
}

// snapshotMailDetails 提取邮件信封快照
func snapshotMailDetails(msg *nylas.Message) domain.MailDetails {
	attachments := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		attachments = append(attachments, a.Filename)
	}

	return domain.MailDetails{
		Subject:     msg.Subject,
		From:        toMailParticipants(msg.From),
		To:          toMailParticipants(msg.To),
		Snippet:     msg.Snippet,
		Date:        msg.Date,
		Folders:     msg.Folders,
		Attachments: attachments,
		Unread:      msg.Unread,
		Starred:     msg.Starred,
	}
}

// toMailParticipants 转换服务商参与者为落库快照格式
func toMailParticipants(ps []nylas.Participant) []domain.MailParticipant {
	if len(ps) == 0 {
		return nil
	}
	out := make([]domain.MailParticipant, 0, len(ps))
	for _, p := range ps {
		out = append(out, domain.MailParticipant{Name: p.Name, Email: p.Email})
	}
	return out
}

// formatParticipant 格式化参与者为 "Name <email>" 形式
func formatParticipant(p nylas.Participant) string {
	if p.Name != "" {
		return fmt.Sprintf("%s <%s>", p.Name, p.Email)
	}
	return p.Email
}
