package repository

import (
	"vidtube-go/internal/model"

	"gorm.io/gorm"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// GetByPair 查询 (subscriber, channel) 对应的订阅边
func (r *SubscriptionRepository) GetByPair(subscriberID, channelID int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.Where("subscriber_id = ? AND channel_id = ?", subscriberID, channelID).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Create 创建订阅边
// 并发下同一对订阅者/频道同时创建时，唯一索引会让后到者收到
// gorm.ErrDuplicatedKey，由调用方按"已订阅"处理
func (r *SubscriptionRepository) Create(subscriberID, channelID int64) (*model.Subscription, error) {
	sub := &model.Subscription{
		SubscriberID: subscriberID,
		ChannelID:    channelID,
	}
	if err := r.db.Create(sub).Error; err != nil {
		return nil, err
	}
	return sub, nil
}

// DeleteByPair 删除订阅边，返回是否删到了记录
func (r *SubscriptionRepository) DeleteByPair(subscriberID, channelID int64) (bool, error) {
	result := r.db.Where("subscriber_id = ? AND channel_id = ?", subscriberID, channelID).
		Delete(&model.Subscription{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListByChannel 获取订阅了指定频道的全部边（含订阅者信息）
func (r *SubscriptionRepository) ListByChannel(channelID int64) ([]model.Subscription, error) {
	var subs []model.Subscription
	err := r.db.Preload("Subscriber").
		Where("channel_id = ?", channelID).
		Order("created_at DESC").
		Find(&subs).Error
	return subs, err
}

// ListBySubscriber 获取指定用户订阅的全部边（含频道信息）
func (r *SubscriptionRepository) ListBySubscriber(subscriberID int64) ([]model.Subscription, error) {
	var subs []model.Subscription
	err := r.db.Preload("Channel").
		Where("subscriber_id = ?", subscriberID).
		Order("created_at DESC").
		Find(&subs).Error
	return subs, err
}

// CountByChannel 统计频道的订阅者数量
func (r *SubscriptionRepository) CountByChannel(channelID int64) (int64, error) {
	var count int64
	err := r.db.Model(&model.Subscription{}).
		Where("channel_id = ?", channelID).
		Count(&count).Error
	return count, err
}
