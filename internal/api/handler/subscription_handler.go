package handler

import (
	"errors"

	"vidtube-go/internal/api/middleware"
	"vidtube-go/internal/api/response"
	"vidtube-go/internal/service"
	"vidtube-go/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SubscriptionHandler struct {
	subService *service.SubscriptionService
}

func NewSubscriptionHandler(subService *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subService: subService}
}

// Toggle POST /api/v1/subscriptions/toggle/:channelId
func (h *SubscriptionHandler) Toggle(c *gin.Context) {
	channelID, ok := parseIDParam(c, "channelId")
	if !ok {
		return
	}

	currentUserID, _ := middleware.GetCurrentUserID(c)

	result, err := h.subService.Toggle(currentUserID, channelID)
	if err != nil {
		handleSubscriptionError(c, err)
		return
	}

	response.OK(c, "切换订阅成功", result)
}

// ListSubscribers GET /api/v1/subscriptions/subscribers/:channelId
func (h *SubscriptionHandler) ListSubscribers(c *gin.Context) {
	channelID, ok := parseIDParam(c, "channelId")
	if !ok {
		return
	}

	subscribers, err := h.subService.ListSubscribers(channelID)
	if err != nil {
		handleSubscriptionError(c, err)
		return
	}

	response.OK(c, "获取订阅者列表成功", gin.H{
		"subscribers": subscribers,
		"total":       len(subscribers),
	})
}

// ListSubscribedChannels GET /api/v1/subscriptions/channels/:subscriberId
func (h *SubscriptionHandler) ListSubscribedChannels(c *gin.Context) {
	userID, ok := parseIDParam(c, "subscriberId")
	if !ok {
		return
	}

	channels, err := h.subService.ListSubscribedChannels(userID)
	if err != nil {
		handleSubscriptionError(c, err)
		return
	}

	response.OK(c, "获取订阅频道列表成功", gin.H{
		"channels": channels,
		"total":    len(channels),
	})
}

func handleSubscriptionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSelfSubscription):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrChannelNotFound),
		errors.Is(err, service.ErrSubscriberNotFound):
		response.NotFound(c, err.Error())
	default:
		logger.Error("Subscription operation failed", zap.Error(err))
		response.InternalError(c, "操作失败，请稍后重试")
	}
}
