package service

import (
	"testing"
	"time"

	"vidtube-go/internal/api/dto"
	infraKafka "vidtube-go/internal/infra/kafka"
	"vidtube-go/internal/model"
	"vidtube-go/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newSubscriptionServiceForTest(t *testing.T) (*SubscriptionService, *gorm.DB, *fakeEvents) {
	t.Helper()
	db := newTestDB(t)
	events := &fakeEvents{}
	svc := NewSubscriptionService(
		repository.NewSubscriptionRepository(db),
		repository.NewUserRepository(db),
		events,
		nil,
	)
	return svc, db, events
}

func TestToggleInvolution(t *testing.T) {
	svc, db, events := newSubscriptionServiceForTest(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	// 第一次切换：建立订阅
	result, err := svc.Toggle(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.ActionSubscribed, result.Action)
	require.NotNil(t, result.Subscription)
	assert.Equal(t, alice.ID, result.Subscription.SubscriberID)
	assert.Equal(t, bob.ID, result.Subscription.ChannelID)
	assert.Equal(t, int64(1), result.SubscriberCount)

	// 第二次切换：取消订阅，回到初始状态
	result, err = svc.Toggle(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.ActionUnsubscribed, result.Action)
	assert.Nil(t, result.Subscription)
	assert.Equal(t, int64(0), result.SubscriberCount)

	// 每次切换都有独立的审计事件
	assert.Len(t, events.byType(infraKafka.EventSubscribed), 1)
	assert.Len(t, events.byType(infraKafka.EventUnsubscribed), 1)
}

func TestToggleConcurrentDuplicateCreate(t *testing.T) {
	svc, db, events := newSubscriptionServiceForTest(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	// 在存在性预检之后、插入之前，另一个请求抢先建立了同一条订阅。
	// 回调挂在 INSERT 前，用独立连接直插冲突行来复现这个窗口。
	raced := false
	err := db.Callback().Create().Before("gorm:create").Register("concurrent_subscribe", func(tx *gorm.DB) {
		if raced {
			return
		}
		raced = true
		require.NoError(t, db.Exec(
			"INSERT INTO subscriptions (subscriber_id, channel_id, created_at) VALUES (?, ?, ?)",
			alice.ID, bob.ID, time.Now(),
		).Error)
	})
	require.NoError(t, err)

	result, err := svc.Toggle(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.ActionSubscribed, result.Action)
	require.NotNil(t, result.Subscription)
	assert.Equal(t, alice.ID, result.Subscription.SubscriberID)
	assert.Equal(t, bob.ID, result.Subscription.ChannelID)
	assert.Equal(t, int64(1), result.SubscriberCount)

	// 唯一约束兜底后仍只有一条边
	var count int64
	require.NoError(t, db.Model(&model.Subscription{}).
		Where("subscriber_id = ? AND channel_id = ?", alice.ID, bob.ID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// 冲突一方不重复发订阅事件
	assert.Empty(t, events.byType(infraKafka.EventSubscribed))
}

func TestToggleSelfSubscription(t *testing.T) {
	svc, db, _ := newSubscriptionServiceForTest(t)
	alice := seedUser(t, db, "alice")

	_, err := svc.Toggle(alice.ID, alice.ID)
	assert.ErrorIs(t, err, ErrSelfSubscription)
}

func TestToggleChannelNotFound(t *testing.T) {
	svc, db, _ := newSubscriptionServiceForTest(t)
	alice := seedUser(t, db, "alice")

	_, err := svc.Toggle(alice.ID, 99999)
	assert.ErrorIs(t, err, ErrChannelNotFound)
}

func TestSubscriptionListDirections(t *testing.T) {
	svc, db, _ := newSubscriptionServiceForTest(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	carol := seedUser(t, db, "carol")

	_, err := svc.Toggle(alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = svc.Toggle(carol.ID, bob.ID)
	require.NoError(t, err)

	// bob 的订阅者
	subscribers, err := svc.ListSubscribers(bob.ID)
	require.NoError(t, err)
	require.Len(t, subscribers, 2)

	// alice 订阅的频道
	channels, err := svc.ListSubscribedChannels(alice.ID)
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, "bob", channels[0].Username)

	// bob 没有订阅任何人
	channels, err = svc.ListSubscribedChannels(bob.ID)
	require.NoError(t, err)
	assert.Empty(t, channels)

	_, err = svc.ListSubscribers(99999)
	assert.ErrorIs(t, err, ErrChannelNotFound)
	_, err = svc.ListSubscribedChannels(99999)
	assert.ErrorIs(t, err, ErrSubscriberNotFound)
}
