package handler

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"vidtube-go/internal/api/dto"
	"vidtube-go/internal/api/middleware"
	"vidtube-go/internal/api/response"
	"vidtube-go/internal/service"
	"vidtube-go/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 上传文件大小上限
const (
	maxVideoSize     = int64(500 * 1024 * 1024)
	maxThumbnailSize = int64(10 * 1024 * 1024)
)

var allowedVideoExts = map[string]bool{
	".mp4": true, ".avi": true, ".mov": true,
	".mkv": true, ".flv": true, ".webm": true,
}

var allowedImageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true,
}

type VideoHandler struct {
	videoService *service.VideoService
}

func NewVideoHandler(videoService *service.VideoService) *VideoHandler {
	return &VideoHandler{videoService: videoService}
}

// Publish POST /api/v1/videos/publish
// multipart/form-data：title、description、isPublished + videoFile（必需）+ thumbnail（可选）
func (h *VideoHandler) Publish(c *gin.Context) {
	var req dto.VideoPublishRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, "请求参数无效: "+err.Error())
		return
	}

	videoFile, err := c.FormFile("videoFile")
	if err != nil {
		response.BadRequest(c, "请上传视频文件")
		return
	}

	ext := filepath.Ext(videoFile.Filename)
	if !allowedVideoExts[ext] {
		response.BadRequest(c, "不支持的视频格式，支持: mp4, avi, mov, mkv, flv, webm")
		return
	}
	if videoFile.Size == 0 || videoFile.Size > maxVideoSize {
		response.BadRequest(c, "视频文件大小无效（不能为空，最大 500MB）")
		return
	}

	// 先落到本地临时目录，上传到对象存储后即焚
	tmpDir, err := os.MkdirTemp("", "vidtube-upload-*")
	if err != nil {
		response.InternalError(c, "保存上传文件失败")
		return
	}
	defer os.RemoveAll(tmpDir)

	videoPath := filepath.Join(tmpDir, "video"+ext)
	if err := c.SaveUploadedFile(videoFile, videoPath); err != nil {
		response.InternalError(c, "保存上传文件失败")
		return
	}

	var thumbnailPath string
	if thumbFile, err := c.FormFile("thumbnail"); err == nil {
		thumbExt := filepath.Ext(thumbFile.Filename)
		if !allowedImageExts[thumbExt] {
			response.BadRequest(c, "不支持的封面格式，支持: jpg, jpeg, png, webp")
			return
		}
		if thumbFile.Size == 0 || thumbFile.Size > maxThumbnailSize {
			response.BadRequest(c, "封面文件大小无效（不能为空，最大 10MB）")
			return
		}
		thumbnailPath = filepath.Join(tmpDir, "thumbnail"+thumbExt)
		if err := c.SaveUploadedFile(thumbFile, thumbnailPath); err != nil {
			response.InternalError(c, "保存上传文件失败")
			return
		}
	}

	currentUserID, _ := middleware.GetCurrentUserID(c)

	info, err := h.videoService.Publish(currentUserID, &req, videoPath, thumbnailPath)
	if err != nil {
		handleVideoError(c, err)
		return
	}

	response.Created(c, "视频发布成功", info)
}

// GetDetail GET /api/v1/videos/:videoId
func (h *VideoHandler) GetDetail(c *gin.Context) {
	videoID, ok := parseIDParam(c, "videoId")
	if !ok {
		return
	}

	info, err := h.videoService.GetByID(videoID)
	if err != nil {
		handleVideoError(c, err)
		return
	}

	response.OK(c, "获取视频详情成功", info)
}

// List GET /api/v1/videos
func (h *VideoHandler) List(c *gin.Context) {
	var req dto.VideoListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "请求参数无效: "+err.Error())
		return
	}

	currentUserID, _ := middleware.GetCurrentUserID(c)

	data, err := h.videoService.List(currentUserID, &req)
	if err != nil {
		handleVideoError(c, err)
		return
	}

	response.OK(c, "获取视频列表成功", data)
}

// Update PATCH /api/v1/videos/:videoId
func (h *VideoHandler) Update(c *gin.Context) {
	videoID, ok := parseIDParam(c, "videoId")
	if !ok {
		return
	}

	var req dto.VideoUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数无效: "+err.Error())
		return
	}

	info, err := h.videoService.UpdateDetails(videoID, &req)
	if err != nil {
		handleVideoError(c, err)
		return
	}

	response.OK(c, "更新视频成功", info)
}

// Delete DELETE /api/v1/videos/:videoId
func (h *VideoHandler) Delete(c *gin.Context) {
	videoID, ok := parseIDParam(c, "videoId")
	if !ok {
		return
	}

	currentUserID, _ := middleware.GetCurrentUserID(c)

	if err := h.videoService.Delete(videoID, currentUserID); err != nil {
		handleVideoError(c, err)
		return
	}

	response.OK(c, "删除视频成功", dto.VideoDeleteData{ID: videoID})
}

// TogglePublish PATCH /api/v1/videos/toggle/publish/:videoId
func (h *VideoHandler) TogglePublish(c *gin.Context) {
	videoID, ok := parseIDParam(c, "videoId")
	if !ok {
		return
	}

	currentUserID, _ := middleware.GetCurrentUserID(c)

	info, err := h.videoService.TogglePublish(videoID, currentUserID)
	if err != nil {
		handleVideoError(c, err)
		return
	}

	response.OK(c, "切换发布状态成功", info)
}

// parseIDParam 解析路径里的数字 ID，非法时直接写 400 响应
func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		response.BadRequest(c, "无效的"+name+"参数")
		return 0, false
	}
	return id, true
}

func handleVideoError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrVideoNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrVideoNoPermission):
		response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrTitleRequired),
		errors.Is(err, service.ErrDescriptionRequired),
		errors.Is(err, service.ErrVideoFileRequired):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrUploadFailed):
		logger.Error("Video upload failed", zap.Error(err))
		response.InternalError(c, service.ErrUploadFailed.Error())
	default:
		logger.Error("Video operation failed", zap.Error(err))
		response.InternalError(c, "操作失败，请稍后重试")
	}
}
