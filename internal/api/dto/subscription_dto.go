package dto

import "time"

// 订阅切换动作
const (
	ActionSubscribed   = "subscribed"
	ActionUnsubscribed = "unsubscribed"
)

// SubscriptionInfo 订阅边信息
type SubscriptionInfo struct {
	ID           int64     `json:"id"`
	SubscriberID int64     `json:"subscriber_id"`
	ChannelID    int64     `json:"channel_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// ToggleResult 订阅切换结果
type ToggleResult struct {
	Action          string            `json:"action"`
	Subscription    *SubscriptionInfo `json:"subscription,omitempty"`
	SubscriberCount int64             `json:"subscriber_count"`
}

// SubscriberInfo 频道订阅者的公开信息
type SubscriberInfo struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	FullName string  `json:"full_name"`
	Avatar   *string `json:"avatar"`
}

// ChannelInfo 已订阅频道的公开信息
type ChannelInfo struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	FullName string  `json:"full_name"`
	Avatar   *string `json:"avatar"`
}
