package repository

import (
	"vidtube-go/internal/model"

	"gorm.io/gorm"
)

type VideoRepository struct {
	db *gorm.DB
}

func NewVideoRepository(db *gorm.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// GetByID 根据 ID 获取视频
func (r *VideoRepository) GetByID(id int64) (*model.Video, error) {
	var video model.Video
	err := r.db.Where("id = ?", id).First(&video).Error
	if err != nil {
		return nil, err
	}
	return &video, nil
}

// GetByIDWithOwner 根据 ID 获取视频（含作者信息）
func (r *VideoRepository) GetByIDWithOwner(id int64) (*model.Video, error) {
	var video model.Video
	err := r.db.Preload("Owner").Where("id = ?", id).First(&video).Error
	if err != nil {
		return nil, err
	}
	return &video, nil
}

// Create 创建视频记录
func (r *VideoRepository) Create(video *model.Video) error {
	return r.db.Create(video).Error
}

// Update 更新视频字段
func (r *VideoRepository) Update(id int64, updates map[string]interface{}) (*model.Video, error) {
	result := r.db.Model(&model.Video{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.GetByID(id)
}

// Delete 物理删除视频记录
// 对象存储里的资产由调用方先行清理，数据库记录最后删
func (r *VideoRepository) Delete(id int64) error {
	result := r.db.Where("id = ?", id).Delete(&model.Video{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List 视频目录查询（筛选、排序、分页）
func (r *VideoRepository) List(q *VideoQuery) ([]model.Video, int64, error) {
	q.Normalize()

	var total int64
	if err := q.applyFilter(r.db.Model(&model.Video{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 超出范围的页返回空列表而不是错误
	var videos []model.Video
	if err := q.apply(r.db.Model(&model.Video{})).Find(&videos).Error; err != nil {
		return nil, 0, err
	}

	return videos, total, nil
}

// SearchPublished 在全部已发布视频中做关键词匹配（ES 不可用时的降级路径）
func (r *VideoRepository) SearchPublished(keyword string, page, limit int) ([]model.Video, int64, error) {
	pattern := "%" + keyword + "%"
	base := r.db.Model(&model.Video{}).
		Where("is_published = ?", true).
		Where("LOWER(title) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?)", pattern, pattern)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var videos []model.Video
	err := base.Session(&gorm.Session{}).
		Order("created_at DESC, id ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&videos).Error
	if err != nil {
		return nil, 0, err
	}

	return videos, total, nil
}

// ListAll 分批遍历全部视频（对账扫描用）
func (r *VideoRepository) ListAll(batch int, fn func([]model.Video) error) error {
	var videos []model.Video
	return r.db.Model(&model.Video{}).FindInBatches(&videos, batch, func(_ *gorm.DB, _ int) error {
		return fn(videos)
	}).Error
}
