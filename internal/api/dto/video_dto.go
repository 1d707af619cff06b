package dto

import "time"

// VideoPublishRequest 视频发布请求（multipart/form-data）
// binding 标签在入口处一次性校验所有字段
type VideoPublishRequest struct {
	Title       string `form:"title" binding:"required,min=1,max=200"`
	Description string `form:"description" binding:"required"`
	IsPublished *bool  `form:"isPublished"`
}

// VideoUpdateRequest 视频详情更新请求，两个字段都必填
type VideoUpdateRequest struct {
	Title       string `json:"title" binding:"required,min=1,max=200"`
	Description string `json:"description" binding:"required"`
}

// VideoListRequest 视频目录查询参数
type VideoListRequest struct {
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
	Query    string `form:"query"`
	SortBy   string `form:"sortBy"`
	SortType string `form:"sortType" binding:"omitempty,oneof=asc desc"`
	UserID   int64  `form:"userId"`
}

// OwnerBrief 视频中嵌套的作者简要信息
type OwnerBrief struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	FullName string  `json:"full_name"`
	Avatar   *string `json:"avatar"`
}

// VideoInfo 视频详情
type VideoInfo struct {
	ID           int64       `json:"id"`
	OwnerID      int64       `json:"owner_id"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	VideoURL     string      `json:"video_url"`
	ThumbnailURL string      `json:"thumbnail_url"`
	Duration     int         `json:"duration"`
	IsPublished  bool        `json:"is_published"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	Owner        *OwnerBrief `json:"owner,omitempty"`
}

// VideoListData 视频列表响应数据
type VideoListData struct {
	Videos     []VideoInfo `json:"videos"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int64       `json:"total_pages"`
}

// VideoDeleteData 删除操作返回被删记录的标识
type VideoDeleteData struct {
	ID int64 `json:"id"`
}
