package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/teamennovat/onebox-sub000/internal/cache"
	"github.com/teamennovat/onebox-sub000/internal/domain"
	"github.com/teamennovat/onebox-sub000/internal/storage"
)

// 标签业务错误
var (
	ErrUnknownLabel = errors.New("unknown label name")
)

// 标签目录的本地缓存键
const labelCatalogKey = "labels:catalog"

// LabelService 标签目录与邮件标签关联服务
//
// 标签目录在迁移时播种、运行期只读，服务用本地缓存
// 挡掉绝大多数目录查询。
type LabelService struct {
	store storage.Store
	local *cache.LocalCache
	log   *zap.Logger
}

// NewLabelService 创建标签服务
func NewLabelService(store storage.Store, local *cache.LocalCache, log *zap.Logger) *LabelService {
	if log == nil {
		log = zap.NewNop()
	}
	return &LabelService{
		store: store,
		local: local,
		log:   log,
	}
}

// Catalog 返回全部标签（优先走本地缓存）
func (s *LabelService) Catalog(ctx context.Context) ([]*domain.Label, error) {
	if s.local != nil {
		if v, ok := s.local.Get(labelCatalogKey); ok {
			return v.([]*domain.Label), nil
		}
	}

	labels, err := s.store.ListLabels(ctx)
	if err != nil {
		return nil, err
	}
	if s.local != nil && len(labels) > 0 {
		s.local.Set(labelCatalogKey, labels)
	}
	return labels, nil
}

// ResolveLabel 按名称解析标签，名称不在目录中返回 ErrUnknownLabel
func (s *LabelService) ResolveLabel(ctx context.Context, name string) (*domain.Label, error) {
	labels, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	for _, label := range labels {
		if label.Name == name {
			return label, nil
		}
	}
	return nil, ErrUnknownLabel
}

// Apply 写入邮件标签关联（幂等）
//
// (message_id, label_id) 已存在时视为成功并返回 false，
// 首次写入返回 true。
func (s *LabelService) Apply(ctx context.Context, ml *domain.MessageLabel) (bool, error) {
	err := s.store.ApplyLabel(ctx, ml)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ApplyByName 按标签名称为邮件打标（幂等）
func (s *LabelService) ApplyByName(ctx context.Context, labelName string, ml *domain.MessageLabel) (bool, error) {
	label, err := s.ResolveLabel(ctx, labelName)
	if err != nil {
		return false, err
	}
	ml.LabelID = label.ID
	return s.Apply(ctx, ml)
}

// MessageLabels 列出单封邮件的标签关联
func (s *LabelService) MessageLabels(ctx context.Context, messageID string) ([]*domain.MessageLabel, error) {
	return s.store.ListMessageLabels(ctx, messageID)
}

// LabeledMessages 按标签名称分页列出账户下的已标邮件
func (s *LabelService) LabeledMessages(ctx context.Context, accountID, labelName string, limit, offset int) ([]*domain.MessageLabel, error) {
	label, err := s.ResolveLabel(ctx, labelName)
	if err != nil {
		return nil, err
	}
	return s.store.ListLabeledMessages(ctx, accountID, label.ID, limit, offset)
}

// Remove 删除邮件标签关联
func (s *LabelService) Remove(ctx context.Context, messageID, labelName string) error {
	label, err := s.ResolveLabel(ctx, labelName)
	if err != nil {
		return err
	}
	err = s.store.RemoveLabel(ctx, messageID, label.ID)
	if errors.Is(err, storage.ErrMessageLabelNotFound) {
		return nil
	}
	return err
}
