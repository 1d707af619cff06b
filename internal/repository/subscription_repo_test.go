package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSubscriptionDuplicateCreate(t *testing.T) {
	db := newTestDB(t)
	repo := NewSubscriptionRepository(db)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	_, err := repo.Create(alice.ID, bob.ID)
	require.NoError(t, err)

	// 同一对订阅者/频道第二次创建撞唯一索引
	_, err = repo.Create(alice.ID, bob.ID)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestSubscriptionDeleteByPair(t *testing.T) {
	db := newTestDB(t)
	repo := NewSubscriptionRepository(db)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	_, err := repo.Create(alice.ID, bob.ID)
	require.NoError(t, err)

	deleted, err := repo.DeleteByPair(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	// 已经删掉了，再删一次删不到
	deleted, err = repo.DeleteByPair(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestSubscriptionListDirections(t *testing.T) {
	db := newTestDB(t)
	repo := NewSubscriptionRepository(db)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	carol := seedUser(t, db, "carol")

	// alice 和 carol 订阅 bob；alice 还订阅了 carol
	_, err := repo.Create(alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = repo.Create(carol.ID, bob.ID)
	require.NoError(t, err)
	_, err = repo.Create(alice.ID, carol.ID)
	require.NoError(t, err)

	// bob 的订阅者是 alice 和 carol
	subs, err := repo.ListByChannel(bob.ID)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	names := []string{subs[0].Subscriber.UserName, subs[1].Subscriber.UserName}
	assert.ElementsMatch(t, []string{"alice", "carol"}, names)

	// alice 订阅的频道是 bob 和 carol
	subs, err = repo.ListBySubscriber(alice.ID)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	names = []string{subs[0].Channel.UserName, subs[1].Channel.UserName}
	assert.ElementsMatch(t, []string{"bob", "carol"}, names)

	// 没有任何订阅关系的用户两个方向都是空列表
	subs, err = repo.ListByChannel(alice.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestSubscriptionCountByChannel(t *testing.T) {
	db := newTestDB(t)
	repo := NewSubscriptionRepository(db)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	carol := seedUser(t, db, "carol")

	count, err := repo.CountByChannel(bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	_, err = repo.Create(alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = repo.Create(carol.ID, bob.ID)
	require.NoError(t, err)

	count, err = repo.CountByChannel(bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
