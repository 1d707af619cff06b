package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"vidtube-go/internal/api/dto"
	"vidtube-go/internal/model"
	"vidtube-go/internal/repository"
	"vidtube-go/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupSubscriptionRouter(t *testing.T) (*gin.Engine, *gorm.DB, *model.User, *model.User) {
	t.Helper()
	db := newTestDB(t)

	alice := &model.User{UserName: "alice", Email: "alice@test.local", FullName: "Alice", Password: "x"}
	bob := &model.User{UserName: "bob", Email: "bob@test.local", FullName: "Bob", Password: "x"}
	require.NoError(t, db.Create(alice).Error)
	require.NoError(t, db.Create(bob).Error)

	svc := service.NewSubscriptionService(
		repository.NewSubscriptionRepository(db),
		repository.NewUserRepository(db),
		nil,
		nil,
	)
	h := NewSubscriptionHandler(svc)

	r := gin.New()
	auth := r.Group("", asUser(alice.ID))
	auth.POST("/api/v1/subscriptions/toggle/:channelId", h.Toggle)
	auth.GET("/api/v1/subscriptions/subscribers/:channelId", h.ListSubscribers)
	auth.GET("/api/v1/subscriptions/channels/:subscriberId", h.ListSubscribedChannels)

	return r, db, alice, bob
}

func TestToggleEndpoint(t *testing.T) {
	r, _, _, bob := setupSubscriptionRouter(t)
	path := fmt.Sprintf("/api/v1/subscriptions/toggle/%d", bob.ID)

	w, env := doRequest(t, r, http.MethodPost, path)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)

	var result dto.ToggleResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, dto.ActionSubscribed, result.Action)
	assert.Equal(t, int64(1), result.SubscriberCount)

	// 再切一次回到未订阅
	_, env = doRequest(t, r, http.MethodPost, path)
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, dto.ActionUnsubscribed, result.Action)
	assert.Equal(t, int64(0), result.SubscriberCount)
}

func TestToggleSelfEndpoint(t *testing.T) {
	r, _, alice, _ := setupSubscriptionRouter(t)

	w, env := doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/v1/subscriptions/toggle/%d", alice.ID))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
}

func TestToggleUnknownChannelEndpoint(t *testing.T) {
	r, _, _, _ := setupSubscriptionRouter(t)

	w, env := doRequest(t, r, http.MethodPost, "/api/v1/subscriptions/toggle/99999")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)
}

func TestListSubscribersEndpoint(t *testing.T) {
	r, _, _, bob := setupSubscriptionRouter(t)

	_, _ = doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/v1/subscriptions/toggle/%d", bob.ID))

	w, env := doRequest(t, r, http.MethodGet, fmt.Sprintf("/api/v1/subscriptions/subscribers/%d", bob.ID))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)

	var data struct {
		Subscribers []dto.SubscriberInfo `json:"subscribers"`
		Total       int                  `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 1, data.Total)
	require.Len(t, data.Subscribers, 1)
	assert.Equal(t, "alice", data.Subscribers[0].Username)
}

func TestListSubscribedChannelsEndpoint(t *testing.T) {
	r, _, alice, bob := setupSubscriptionRouter(t)

	_, _ = doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/v1/subscriptions/toggle/%d", bob.ID))

	w, env := doRequest(t, r, http.MethodGet, fmt.Sprintf("/api/v1/subscriptions/channels/%d", alice.ID))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)

	var data struct {
		Channels []dto.ChannelInfo `json:"channels"`
		Total    int               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 1, data.Total)
	require.Len(t, data.Channels, 1)
	assert.Equal(t, "bob", data.Channels[0].Username)
}
