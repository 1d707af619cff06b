package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"vidtube-go/internal/api/dto"
	infraKafka "vidtube-go/internal/infra/kafka"
	"vidtube-go/internal/repository"
	"vidtube-go/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrChannelNotFound    = errors.New("频道不存在")
	ErrSelfSubscription   = errors.New("不能订阅自己")
	ErrSubscriberNotFound = errors.New("订阅者不存在")
)

const (
	subscriberCountKeyPrefix = "channel:subscriber_count:"
	subscriberCountTTL       = 10 * time.Minute
)

type SubscriptionService struct {
	subRepo  *repository.SubscriptionRepository
	userRepo *repository.UserRepository
	events   EventPublisher
	cache    *redis.Client
}

// NewSubscriptionService 创建订阅服务
// events 和 cache 允许为 nil
func NewSubscriptionService(
	subRepo *repository.SubscriptionRepository,
	userRepo *repository.UserRepository,
	events EventPublisher,
	cache *redis.Client,
) *SubscriptionService {
	return &SubscriptionService{
		subRepo:  subRepo,
		userRepo: userRepo,
		events:   events,
		cache:    cache,
	}
}

// Toggle 切换订阅关系：已订阅则取消，未订阅则建立
//
// 并发的重复建立靠 (subscriber_id, channel_id) 唯一约束兜底，
// 撞到唯一键冲突说明另一个请求已经订阅成功，按已订阅返回。
func (s *SubscriptionService) Toggle(subscriberID, channelID int64) (*dto.ToggleResult, error) {
	if subscriberID == channelID {
		return nil, ErrSelfSubscription
	}

	exists, err := s.userRepo.Exists(channelID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrChannelNotFound
	}

	existing, err := s.subRepo.GetByPair(subscriberID, channelID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if existing != nil {
		deleted, err := s.subRepo.DeleteByPair(subscriberID, channelID)
		if err != nil {
			return nil, fmt.Errorf("取消订阅失败: %w", err)
		}
		if deleted {
			s.invalidateCount(channelID)
			s.publishSubEvent(infraKafka.EventUnsubscribed, subscriberID, channelID)
		}
		count, err := s.SubscriberCount(channelID)
		if err != nil {
			return nil, err
		}
		return &dto.ToggleResult{
			Action:          dto.ActionUnsubscribed,
			SubscriberCount: count,
		}, nil
	}

	sub, err := s.subRepo.Create(subscriberID, channelID)
	if err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("建立订阅失败: %w", err)
		}
		// 并发请求抢先创建了同一条订阅，结果一致，不视为错误
		created, err := s.subRepo.GetByPair(subscriberID, channelID)
		if err != nil {
			return nil, err
		}
		sub = created
	} else {
		s.invalidateCount(channelID)
		s.publishSubEvent(infraKafka.EventSubscribed, subscriberID, channelID)
	}

	count, err := s.SubscriberCount(channelID)
	if err != nil {
		return nil, err
	}

	return &dto.ToggleResult{
		Action: dto.ActionSubscribed,
		Subscription: &dto.SubscriptionInfo{
			ID:           sub.ID,
			SubscriberID: sub.SubscriberID,
			ChannelID:    sub.ChannelID,
			CreatedAt:    sub.CreatedAt,
		},
		SubscriberCount: count,
	}, nil
}

// ListSubscribers 某频道的订阅者列表
func (s *SubscriptionService) ListSubscribers(channelID int64) ([]dto.SubscriberInfo, error) {
	exists, err := s.userRepo.Exists(channelID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrChannelNotFound
	}

	subs, err := s.subRepo.ListByChannel(channelID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.SubscriberInfo, 0, len(subs))
	for i := range subs {
		out = append(out, dto.SubscriberInfo{
			ID:       subs[i].Subscriber.ID,
			Username: subs[i].Subscriber.UserName,
			FullName: subs[i].Subscriber.FullName,
			Avatar:   subs[i].Subscriber.Avatar,
		})
	}
	return out, nil
}

// ListSubscribedChannels 某用户订阅的频道列表
func (s *SubscriptionService) ListSubscribedChannels(subscriberID int64) ([]dto.ChannelInfo, error) {
	exists, err := s.userRepo.Exists(subscriberID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrSubscriberNotFound
	}

	subs, err := s.subRepo.ListBySubscriber(subscriberID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.ChannelInfo, 0, len(subs))
	for i := range subs {
		out = append(out, dto.ChannelInfo{
			ID:       subs[i].Channel.ID,
			Username: subs[i].Channel.UserName,
			FullName: subs[i].Channel.FullName,
			Avatar:   subs[i].Channel.Avatar,
		})
	}
	return out, nil
}

// SubscriberCount 频道订阅数，优先读缓存，未命中回源数据库并回填
func (s *SubscriptionService) SubscriberCount(channelID int64) (int64, error) {
	key := subscriberCountKeyPrefix + strconv.FormatInt(channelID, 10)

	if s.cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		val, err := s.cache.Get(ctx, key).Result()
		cancel()
		if err == nil {
			if count, perr := strconv.ParseInt(val, 10, 64); perr == nil {
				return count, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			logger.Warn("Read subscriber count cache failed", zap.Int64("channel_id", channelID), zap.Error(err))
		}
	}

	count, err := s.subRepo.CountByChannel(channelID)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.cache.Set(ctx, key, count, subscriberCountTTL).Err(); err != nil {
			logger.Warn("Write subscriber count cache failed", zap.Int64("channel_id", channelID), zap.Error(err))
		}
	}

	return count, nil
}

func (s *SubscriptionService) invalidateCount(channelID int64) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	key := subscriberCountKeyPrefix + strconv.FormatInt(channelID, 10)
	if err := s.cache.Del(ctx, key).Err(); err != nil {
		logger.Warn("Invalidate subscriber count cache failed", zap.Int64("channel_id", channelID), zap.Error(err))
	}
}

func (s *SubscriptionService) publishSubEvent(eventType string, subscriberID, channelID int64) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.events.Publish(ctx, &infraKafka.DomainEvent{
		Type:         eventType,
		SubscriberID: subscriberID,
		ChannelID:    channelID,
	}); err != nil {
		logger.Error("Publish subscription event failed", zap.String("type", eventType), zap.Error(err))
	}
}
