package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamennovat/onebox-sub000/internal/cache"
	"github.com/teamennovat/onebox-sub000/internal/domain"
	"github.com/teamennovat/onebox-sub000/internal/storage/memory"
)

func newTestLabelService(t *testing.T) *LabelService {
	t.Helper()

	store := memory.NewStore()
	seed := domain.ClassificationLabels()
	labels := make([]*domain.Label, len(seed))
	for i := range seed {
		labels[i] = &seed[i]
	}
	require.NoError(t, store.SeedLabels(context.Background(), labels))

	local := cache.NewLocalCache(time.Minute)
	t.Cleanup(local.Close)
	return NewLabelService(store, local, nil)
}

func TestCatalog(t *testing.T) {
	svc := newTestLabelService(t)

	labels, err := svc.Catalog(context.Background())
	require.NoError(t, err)
	require.Len(t, labels, 9)

	// 按展示顺序返回
	assert.Equal(t, domain.LabelToRespond, labels[0].Name)
	assert.Equal(t, domain.LabelPromotions, labels[8].Name)

	// 第二次读取命中本地缓存，结果一致
	cached, err := svc.Catalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, labels, cached)
}

func TestApplyByName(t *testing.T) {
	svc := newTestLabelService(t)

	ml := &domain.MessageLabel{
		MessageID: "msg-1",
		AccountID: "acct-1",
	}

	t.Run("首次打标返回 created", func(t *testing.T) {
		created, err := svc.ApplyByName(context.Background(), domain.LabelMarketing, ml)
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEmpty(t, ml.LabelID)
	})

	t.Run("重复打标视为成功且不新建", func(t *testing.T) {
		dup := &domain.MessageLabel{MessageID: "msg-1", AccountID: "acct-1"}
		created, err := svc.ApplyByName(context.Background(), domain.LabelMarketing, dup)
		require.NoError(t, err)
		assert.False(t, created)

		mls, err := svc.MessageLabels(context.Background(), "msg-1")
		require.NoError(t, err)
		assert.Len(t, mls, 1)
	})

	t.Run("同一邮件可以打不同标签", func(t *testing.T) {
		other := &domain.MessageLabel{MessageID: "msg-1", AccountID: "acct-1"}
		created, err := svc.ApplyByName(context.Background(), domain.LabelFYI, other)
		require.NoError(t, err)
		assert.True(t, created)

		mls, err := svc.MessageLabels(context.Background(), "msg-1")
		require.NoError(t, err)
		assert.Len(t, mls, 2)
	})

	t.Run("未知标签名返回错误", func(t *testing.T) {
		bad := &domain.MessageLabel{MessageID: "msg-2", AccountID: "acct-1"}
		_, err := svc.ApplyByName(context.Background(), "Nonexistent", bad)
		assert.ErrorIs(t, err, ErrUnknownLabel)
	})
}

func TestRemove(t *testing.T) {
	svc := newTestLabelService(t)

	ml := &domain.MessageLabel{MessageID: "msg-rm", AccountID: "acct-1"}
	_, err := svc.ApplyByName(context.Background(), domain.LabelActioned, ml)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(context.Background(), "msg-rm", domain.LabelActioned))

	mls, err := svc.MessageLabels(context.Background(), "msg-rm")
	require.NoError(t, err)
	assert.Empty(t, mls)

	// 再次删除同样成功（幂等）
	assert.NoError(t, svc.Remove(context.Background(), "msg-rm", domain.LabelActioned))
}
