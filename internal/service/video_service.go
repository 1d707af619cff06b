package service

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"vidtube-go/internal/api/dto"
	infraKafka "vidtube-go/internal/infra/kafka"
	"vidtube-go/internal/model"
	"vidtube-go/internal/repository"
	"vidtube-go/internal/storage"
	"vidtube-go/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrVideoNotFound       = errors.New("视频不存在")
	ErrVideoNoPermission   = errors.New("没有权限操作该视频")
	ErrTitleRequired       = errors.New("标题不能为空")
	ErrDescriptionRequired = errors.New("描述不能为空")
	ErrVideoFileRequired   = errors.New("缺少视频文件")
	ErrUploadFailed        = errors.New("上传文件到对象存储失败")
)

// ObjectStorage 对象存储客户端接口，测试时可替换为内存假实现
type ObjectStorage interface {
	UploadFile(ctx context.Context, localPath, contentType string) (*storage.UploadInfo, error)
	Remove(ctx context.Context, key string) error
}

// EventPublisher 领域事件发布接口
type EventPublisher interface {
	Publish(ctx context.Context, event *infraKafka.DomainEvent) error
}

// SearchIndexer 搜索索引同步接口
type SearchIndexer interface {
	IndexVideo(ctx context.Context, v *model.Video) error
	RemoveVideo(ctx context.Context, videoID int64) error
}

type VideoService struct {
	videoRepo *repository.VideoRepository
	userRepo  *repository.UserRepository
	storage   ObjectStorage
	events    EventPublisher
	search    SearchIndexer
}

// NewVideoService 创建视频服务
// events 和 search 允许为 nil（事件总线或搜索不可用时功能降级）
func NewVideoService(
	videoRepo *repository.VideoRepository,
	userRepo *repository.UserRepository,
	storage ObjectStorage,
	events EventPublisher,
	search SearchIndexer,
) *VideoService {
	return &VideoService{
		videoRepo: videoRepo,
		userRepo:  userRepo,
		storage:   storage,
		events:    events,
		search:    search,
	}
}

// Publish 发布视频：先上传资产到对象存储，全部确认后再落库
//
// 主资产（视频文件）上传失败直接中止，不产生任何记录；
// 封面上传失败不致命，实体带空封面引用创建。
// 对象存储和数据库不在一个事务里，顺序选择的取舍是：
// 宁可留下无实体引用的孤儿对象（可由对账任务回收），
// 也不要出现引用着不存在对象的视频记录。
func (s *VideoService) Publish(ownerID int64, req *dto.VideoPublishRequest, videoPath, thumbnailPath string) (*dto.VideoInfo, error) {
	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)

	// 校验失败必须发生在任何外部调用之前
	if title == "" {
		return nil, ErrTitleRequired
	}
	if description == "" {
		return nil, ErrDescriptionRequired
	}
	if videoPath == "" {
		return nil, ErrVideoFileRequired
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	videoInfo, err := s.storage.UploadFile(ctx, videoPath, contentTypeFor(videoPath, "video/mp4"))
	if err != nil {
		logger.Error("Upload video file failed", zap.Int64("owner_id", ownerID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	var thumbKey, thumbURL string
	if thumbnailPath != "" {
		thumbInfo, err := s.storage.UploadFile(ctx, thumbnailPath, contentTypeFor(thumbnailPath, "image/jpeg"))
		if err != nil {
			// 封面是次要资产，上传失败不中止发布
			logger.Warn("Upload thumbnail failed, publishing without thumbnail",
				zap.Int64("owner_id", ownerID), zap.Error(err))
		} else {
			thumbKey = thumbInfo.Key
			thumbURL = thumbInfo.URL
		}
	}

	isPublished := true
	if req.IsPublished != nil {
		isPublished = *req.IsPublished
	}

	video := &model.Video{
		OwnerID:      ownerID,
		Title:        title,
		Description:  description,
		VideoKey:     videoInfo.Key,
		VideoURL:     videoInfo.URL,
		ThumbnailKey: thumbKey,
		ThumbnailURL: thumbURL,
		Duration:     videoInfo.Duration,
		IsPublished:  isPublished,
	}

	if err := s.videoRepo.Create(video); err != nil {
		// 此时对象存储里已经有了孤儿资产，交给对账任务回收
		logger.Error("Persist video failed, uploaded assets are orphaned",
			zap.String("video_key", videoInfo.Key),
			zap.String("thumbnail_key", thumbKey),
			zap.Error(err))
		s.publishEvent(&infraKafka.DomainEvent{
			Type:      infraKafka.EventAssetDeleteRetry,
			OwnerID:   ownerID,
			AssetKeys: assetKeys(videoInfo.Key, thumbKey),
		})
		return nil, fmt.Errorf("持久化视频记录失败: %w", err)
	}

	s.publishEvent(&infraKafka.DomainEvent{
		Type:    infraKafka.EventVideoPublished,
		VideoID: video.ID,
		OwnerID: ownerID,
	})
	s.indexVideo(video)

	return toVideoInfo(video, false), nil
}

// GetByID 获取视频详情（公开读，不做所有权检查）
func (s *VideoService) GetByID(videoID int64) (*dto.VideoInfo, error) {
	video, err := s.videoRepo.GetByIDWithOwner(videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVideoNotFound
		}
		return nil, err
	}
	return toVideoInfo(video, true), nil
}

// UpdateDetails 更新视频标题和描述（且仅这两个字段）
func (s *VideoService) UpdateDetails(videoID int64, req *dto.VideoUpdateRequest) (*dto.VideoInfo, error) {
	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)

	if title == "" {
		return nil, ErrTitleRequired
	}
	if description == "" {
		return nil, ErrDescriptionRequired
	}

	video, err := s.videoRepo.Update(videoID, map[string]interface{}{
		"title":       title,
		"description": description,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVideoNotFound
		}
		return nil, err
	}

	s.indexVideo(video)

	return toVideoInfo(video, false), nil
}

// Delete 删除视频及其资产（仅作者本人）
//
// 顺序：先尽力删对象存储里的视频和封面，最后删数据库记录。
// 资产删除失败只记日志并发对账事件重试，不阻塞记录删除；
// 数据库删除失败才是致命错误。
func (s *VideoService) Delete(videoID, requesterID int64) error {
	video, err := s.videoRepo.GetByID(videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrVideoNotFound
		}
		return err
	}
	if video.OwnerID != requesterID {
		return ErrVideoNoPermission
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var failedKeys []string
	for _, key := range assetKeys(video.VideoKey, video.ThumbnailKey) {
		if err := s.storage.Remove(ctx, key); err != nil {
			logger.Warn("Remove asset failed, will retry via reconciler",
				zap.Int64("video_id", videoID),
				zap.String("key", key),
				zap.Error(err))
			failedKeys = append(failedKeys, key)
		}
	}

	if err := s.videoRepo.Delete(videoID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrVideoNotFound
		}
		return fmt.Errorf("删除视频记录失败: %w", err)
	}

	if len(failedKeys) > 0 {
		s.publishEvent(&infraKafka.DomainEvent{
			Type:      infraKafka.EventAssetDeleteRetry,
			VideoID:   videoID,
			AssetKeys: failedKeys,
		})
	}
	s.publishEvent(&infraKafka.DomainEvent{
		Type:    infraKafka.EventVideoDeleted,
		VideoID: videoID,
		OwnerID: video.OwnerID,
	})
	s.removeFromIndex(videoID)

	return nil
}

// TogglePublish 切换发布状态（仅作者本人）
func (s *VideoService) TogglePublish(videoID, requesterID int64) (*dto.VideoInfo, error) {
	video, err := s.videoRepo.GetByID(videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVideoNotFound
		}
		return nil, err
	}
	if video.OwnerID != requesterID {
		return nil, ErrVideoNoPermission
	}

	updated, err := s.videoRepo.Update(videoID, map[string]interface{}{
		"is_published": !video.IsPublished,
	})
	if err != nil {
		return nil, err
	}

	s.indexVideo(updated)

	return toVideoInfo(updated, false), nil
}

// List 视频目录查询（筛选、排序、分页）
// userId 缺省为当前登录用户；被查询的用户必须存在
func (s *VideoService) List(currentUserID int64, req *dto.VideoListRequest) (*dto.VideoListData, error) {
	ownerID := req.UserID
	if ownerID == 0 {
		ownerID = currentUserID
	}

	exists, err := s.userRepo.Exists(ownerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	q := &repository.VideoQuery{
		OwnerID:  ownerID,
		Search:   req.Query,
		SortBy:   req.SortBy,
		SortDesc: req.SortType == "desc",
		Page:     req.Page,
		Limit:    req.Limit,
	}

	videos, total, err := s.videoRepo.List(q)
	if err != nil {
		return nil, err
	}

	return buildVideoListData(videos, total, q.Page, q.Limit), nil
}

// publishEvent 尽力发布领域事件，失败只记日志
func (s *VideoService) publishEvent(event *infraKafka.DomainEvent) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.events.Publish(ctx, event); err != nil {
		logger.Error("Publish domain event failed", zap.String("type", event.Type), zap.Error(err))
	}
}

func (s *VideoService) indexVideo(video *model.Video) {
	if s.search == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.search.IndexVideo(ctx, video); err != nil {
		logger.Warn("Sync video to search index failed", zap.Int64("video_id", video.ID), zap.Error(err))
	}
}

func (s *VideoService) removeFromIndex(videoID int64) {
	if s.search == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.search.RemoveVideo(ctx, videoID); err != nil {
		logger.Warn("Remove video from search index failed", zap.Int64("video_id", videoID), zap.Error(err))
	}
}

// contentTypeFor 按扩展名推断内容类型
func contentTypeFor(path, fallback string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return fallback
}

// assetKeys 过滤掉空的资产键
func assetKeys(keys ...string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

// toVideoInfo 将 model.Video 转换为 dto.VideoInfo
func toVideoInfo(video *model.Video, includeOwner bool) *dto.VideoInfo {
	info := &dto.VideoInfo{
		ID:           video.ID,
		OwnerID:      video.OwnerID,
		Title:        video.Title,
		Description:  video.Description,
		VideoURL:     video.VideoURL,
		ThumbnailURL: video.ThumbnailURL,
		Duration:     video.Duration,
		IsPublished:  video.IsPublished,
		CreatedAt:    video.CreatedAt,
		UpdatedAt:    video.UpdatedAt,
	}

	if includeOwner && video.Owner.ID != 0 {
		info.Owner = &dto.OwnerBrief{
			ID:       video.Owner.ID,
			Username: video.Owner.UserName,
			FullName: video.Owner.FullName,
			Avatar:   video.Owner.Avatar,
		}
	}

	return info
}

func buildVideoListData(videos []model.Video, total int64, page, limit int) *dto.VideoListData {
	items := make([]dto.VideoInfo, 0, len(videos))
	for i := range videos {
		items = append(items, *toVideoInfo(&videos[i], false))
	}

	totalPages := (total + int64(limit) - 1) / int64(limit)

	return &dto.VideoListData{
		Videos:     items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}
