package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vidtube-go/internal/config"
	"vidtube-go/pkg/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// 领域事件类型
const (
	EventVideoPublished   = "video.published"
	EventVideoDeleted     = "video.deleted"
	EventAssetDeleteRetry = "asset.delete_retry"
	EventSubscribed       = "subscription.subscribed"
	EventUnsubscribed     = "subscription.unsubscribed"
)

// DomainEvent 领域事件消息体
// 每次订阅切换都会产生一条独立的审计事件；资产删除失败时
// 以 asset.delete_retry 事件交给对账任务重试
type DomainEvent struct {
	Type         string   `json:"type"`
	VideoID      int64    `json:"video_id,omitempty"`
	OwnerID      int64    `json:"owner_id,omitempty"`
	SubscriberID int64    `json:"subscriber_id,omitempty"`
	ChannelID    int64    `json:"channel_id,omitempty"`
	AssetKeys    []string `json:"asset_keys,omitempty"`
	OccurredAt   int64    `json:"occurred_at"`
}

// Producer 领域事件生产者
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer 创建领域事件生产者
func NewProducer(cfg *config.KafkaConfig) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	logger.Info("Kafka producer initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.EventTopic),
	)

	return &Producer{writer: writer, topic: cfg.EventTopic}
}

// Publish 发送领域事件
func (p *Producer) Publish(ctx context.Context, event *DomainEvent) error {
	if event.OccurredAt == 0 {
		event.OccurredAt = time.Now().Unix()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal domain event: %w", err)
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.Type),
		Value: payload,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to send domain event: %w", err)
	}

	logger.Debug("Domain event sent",
		zap.String("type", event.Type),
		zap.Int64("video_id", event.VideoID),
	)

	return nil
}

// Close 关闭生产者
func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	logger.Info("Kafka producer closed")
	return p.writer.Close()
}
