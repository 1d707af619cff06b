package model

import "time"

// Video 视频模型
// 视频文件和封面只存对象存储中的引用（对象键 + 访问地址），字节本身不进库
type Video struct {
	ID           int64     `gorm:"primaryKey;autoIncrement;comment:视频标识" json:"id"`
	OwnerID      int64     `gorm:"not null;index:idx_videos_owner_id;comment:视频作者ID" json:"owner_id"`
	Title        string    `gorm:"size:200;not null;comment:视频标题" json:"title"`
	Description  string    `gorm:"type:text;not null;comment:视频描述" json:"description"`
	VideoKey     string    `gorm:"size:500;not null;comment:视频文件对象键" json:"video_key"`
	VideoURL     string    `gorm:"size:500;not null;comment:视频播放地址" json:"video_url"`
	ThumbnailKey string    `gorm:"size:500;comment:封面对象键" json:"thumbnail_key"`
	ThumbnailURL string    `gorm:"size:500;comment:封面地址" json:"thumbnail_url"`
	Duration     int       `gorm:"default:0;comment:视频时长（秒）" json:"duration"`
	IsPublished  bool      `gorm:"not null;index:idx_videos_is_published;comment:是否已发布" json:"is_published"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index:idx_videos_created_at;comment:创建时间" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime;comment:更新时间" json:"updated_at"`

	// 关联关系
	Owner User `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
}

func (Video) TableName() string {
	return "videos"
}
