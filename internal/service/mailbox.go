package service

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/teamennovat/onebox-sub000/internal/config"
	"github.com/teamennovat/onebox-sub000/internal/monitoring"
	"github.com/teamennovat/onebox-sub000/internal/nylas"
	redisstore "github.com/teamennovat/onebox-sub000/internal/storage/redis"
)

// PageBufferStore 分页缓冲区存取接口，由 Redis 缓存实现
type PageBufferStore interface {
	GetPageBuffer(ctx context.Context, key string) (*redisstore.PageBuffer, error)
	SavePageBuffer(ctx context.Context, key string, buf *redisstore.PageBuffer, ttl time.Duration) error
	DeletePageBuffer(ctx context.Context, key string) error
}

// MessageList 返回给前端的固定大小分页
type MessageList struct {
	Messages []nylas.Message `json:"messages"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
	HasMore  bool            `json:"hasMore"`
}

// ListOptions 邮件列表查询选项
type ListOptions struct {
	FolderID   string
	Search     string
	UnreadOnly bool
	Page       int  // 1 起始
	Refresh    bool // 丢弃缓冲区重新拉取
}

// MailboxService 邮箱代理服务
//
// 大部分操作直接透传服务商 API；邮件列表在 Redis 缓冲区上
// 做累积与去重，把服务商的不定长游标分页转成固定大小分页。
type MailboxService struct {
	nylas   *nylas.Client
	cache   PageBufferStore
	cfg     config.PaginationConfig
	metrics *monitoring.Metrics
	log     *zap.Logger
}

// NewMailboxService 创建邮箱代理服务
func NewMailboxService(
	nylasClient *nylas.Client,
	cache PageBufferStore,
	cfg config.PaginationConfig,
	metrics *monitoring.Metrics,
	log *zap.Logger,
) *MailboxService {
	if log == nil {
		log = zap.NewNop()
	}
	return &MailboxService{
		nylas:   nylasClient,
		cache:   cache,
		cfg:     cfg,
		metrics: metrics,
		log:     log,
	}
}

// ListFolders 列出文件夹
func (s *MailboxService) ListFolders(ctx context.Context, grantID string) ([]nylas.Folder, error) {
	folders, err := s.nylas.ListFolders(ctx, grantID)
	s.countProvider("list_folders", err)
	return folders, err
}

// ListMessages 返回固定大小的一页邮件
//
// 缓冲区按 (授权, 文件夹, 搜索条件) 维度累积服务商返回的邮件，
// 相同 ID 的邮件只保留首次出现的那份；不足一页时继续向服务商
// 拉取，直到凑满或服务商游标耗尽。
func (s *MailboxService) ListMessages(ctx context.Context, grantID string, opts ListOptions) (*MessageList, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	pageSize := s.cfg.PageSize

	key := redisstore.PageBufferKey(grantID, opts.FolderID, opts.Search)
	if opts.Refresh {
		if err := s.cache.DeletePageBuffer(ctx, key); err != nil {
			s.log.Warn("failed to drop page buffer", zap.Error(err))
		}
	}

	buf, err := s.cache.GetPageBuffer(ctx, key)
	if err != nil {
		if !errors.Is(err, redisstore.ErrCacheMiss) {
			s.log.Warn("failed to read page buffer, starting fresh", zap.Error(err))
		}
		buf = &redisstore.PageBuffer{}
	}

	needed := opts.Page * pageSize
	fetched := false
	for len(buf.Messages) < needed && !buf.Exhausted {
		page, err := s.nylas.ListMessages(ctx, grantID, nylas.ListMessagesInput{
			FolderID:   opts.FolderID,
			Search:     opts.Search,
			UnreadOnly: opts.UnreadOnly,
			Limit:      s.cfg.ProviderSize,
			Cursor:     buf.NextCursor,
		})
		s.countProvider("list_messages", err)
		if err != nil {
			return nil, err
		}
		fetched = true

		mergeMessages(buf, page.Messages)
		buf.NextCursor = page.NextCursor
		if page.NextCursor == "" || len(page.Messages) == 0 {
			buf.Exhausted = true
		}
	}

	if fetched {
		if err := s.cache.SavePageBuffer(ctx, key, buf, s.cfg.BufferTTL); err != nil {
			s.log.Warn("failed to save page buffer", zap.Error(err))
		}
	}

	start := (opts.Page - 1) * pageSize
	if start >= len(buf.Messages) {
		return &MessageList{
			Messages: []nylas.Message{},
			Page:     opts.Page,
			PageSize: pageSize,
			HasMore:  false,
		}, nil
	}

	end := start + pageSize
	if end > len(buf.Messages) {
		end = len(buf.Messages)
	}

	return &MessageList{
		Messages: buf.Messages[start:end],
		Page:     opts.Page,
		PageSize: pageSize,
		HasMore:  end < len(buf.Messages) || !buf.Exhausted,
	}, nil
}

// mergeMessages 将新批次合并进缓冲区，按邮件 ID 去重
//
// 服务商在游标续拉时可能重复返回边界邮件，已存在的 ID 保留
// 首次出现的那份，不会改变既有顺序。
func mergeMessages(buf *redisstore.PageBuffer, incoming []nylas.Message) {
	seen := make(map[string]struct{}, len(buf.Messages))
	for _, m := range buf.Messages {
		seen[m.ID] = struct{}{}
	}
	for _, m := range incoming {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		buf.Messages = append(buf.Messages, m)
	}
}

// GetMessage 获取邮件详情
func (s *MailboxService) GetMessage(ctx context.Context, grantID, messageID string) (*nylas.Message, error) {
	msg, err := s.nylas.GetMessage(ctx, grantID, messageID)
	s.countProvider("get_message", err)
	return msg, err
}

// UpdateMessage 更新邮件（星标/已读/移动文件夹）
func (s *MailboxService) UpdateMessage(ctx context.Context, grantID, messageID string, req nylas.UpdateMessageRequest) (*nylas.Message, error) {
	msg, err := s.nylas.UpdateMessage(ctx, grantID, messageID, req)
	s.countProvider("update_message", err)
	return msg, err
}

// DeleteMessage 删除邮件
func (s *MailboxService) DeleteMessage(ctx context.Context, grantID, messageID string) error {
	err := s.nylas.DeleteMessage(ctx, grantID, messageID)
	s.countProvider("delete_message", err)
	return err
}

// Send 发送邮件
func (s *MailboxService) Send(ctx context.Context, grantID string, req nylas.SendRequest) (*nylas.Message, error) {
	msg, err := s.nylas.Send(ctx, grantID, req)
	s.countProvider("send_message", err)
	return msg, err
}

// ListDrafts 列出草稿
func (s *MailboxService) ListDrafts(ctx context.Context, grantID string) ([]nylas.Draft, error) {
	drafts, err := s.nylas.ListDrafts(ctx, grantID)
	s.countProvider("list_drafts", err)
	return drafts, err
}

// CreateDraft 创建草稿
func (s *MailboxService) CreateDraft(ctx context.Context, grantID string, draft nylas.Draft) (*nylas.Draft, error) {
	created, err := s.nylas.CreateDraft(ctx, grantID, draft)
	s.countProvider("create_draft", err)
	return created, err
}

// GetDraft 获取草稿详情
func (s *MailboxService) GetDraft(ctx context.Context, grantID, draftID string) (*nylas.Draft, error) {
	draft, err := s.nylas.GetDraft(ctx, grantID, draftID)
	s.countProvider("get_draft", err)
	return draft, err
}

// UpdateDraft 更新草稿
func (s *MailboxService) UpdateDraft(ctx context.Context, grantID, draftID string, draft nylas.Draft) (*nylas.Draft, error) {
	updated, err := s.nylas.UpdateDraft(ctx, grantID, draftID, draft)
	s.countProvider("update_draft", err)
	return updated, err
}

// DeleteDraft 删除草稿
func (s *MailboxService) DeleteDraft(ctx context.Context, grantID, draftID string) error {
	err := s.nylas.DeleteDraft(ctx, grantID, draftID)
	s.countProvider("delete_draft", err)
	return err
}

// DownloadAttachment 下载附件，调用方负责关闭返回的流
func (s *MailboxService) DownloadAttachment(ctx context.Context, grantID, attachmentID, messageID string) (io.ReadCloser, string, error) {
	body, contentType, err := s.nylas.DownloadAttachment(ctx, grantID, attachmentID, messageID)
	s.countProvider("download_attachment", err)
	return body, contentType, err
}

// countProvider 记录一次上游调用结果
func (s *MailboxService) countProvider(operation string, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.ProviderRequestsTotal.WithLabelValues(operation, status).Inc()
}
