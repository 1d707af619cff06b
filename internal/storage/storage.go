package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"vidtube-go/internal/config"
	"vidtube-go/pkg/logger"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// UploadInfo 上传结果：对象键、公开访问地址、视频时长（仅视频文件）
type UploadInfo struct {
	Key      string
	URL      string
	Duration int
}

// Client 对象存储客户端
// 显式构造并注入使用方（而不是包级单例），便于测试时替换为内存假实现
type Client struct {
	mc       *minio.Client
	endpoint string
	useSSL   bool
	bucket   string
}

// New 创建对象存储客户端并确保 Bucket 存在且可公开读
func New(cfg *config.MinIOConfig) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	c := &Client{
		mc:       mc,
		endpoint: cfg.Endpoint,
		useSSL:   cfg.UseSSL,
		bucket:   cfg.Bucket,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := mc.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info("MinIO bucket created", zap.String("bucket", cfg.Bucket))
	}

	// 视频和封面需要公开读，供前端直接播放
	policy := fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, cfg.Bucket)
	if err := mc.SetBucketPolicy(ctx, cfg.Bucket, policy); err != nil {
		return nil, fmt.Errorf("failed to set public policy for %s: %w", cfg.Bucket, err)
	}

	logger.Info("MinIO connected",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("bucket", cfg.Bucket),
	)

	return c, nil
}

// UploadFile 上传本地文件，返回对象键和公开访问地址
// contentType 以 video/ 开头时用 ffprobe 探测时长
func (c *Client) UploadFile(ctx context.Context, localPath, contentType string) (*UploadInfo, error) {
	key := objectKey(localPath, contentType)

	if _, err := c.mc.FPutObject(ctx, c.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return nil, fmt.Errorf("failed to upload to minio: %w", err)
	}

	info := &UploadInfo{
		Key: key,
		URL: c.PublicURL(key),
	}

	if strings.HasPrefix(contentType, "video/") {
		duration, err := probeDuration(localPath)
		if err != nil {
			logger.Warn("Probe video duration failed", zap.String("path", localPath), zap.Error(err))
		} else {
			info.Duration = duration
		}
	}

	return info, nil
}

// Remove 删除对象
func (c *Client) Remove(ctx context.Context, key string) error {
	if err := c.mc.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %s: %w", key, err)
	}
	return nil
}

// ListObjects 遍历 Bucket 内全部对象（对账扫描用）
// fn 返回 false 时提前终止遍历
func (c *Client) ListObjects(ctx context.Context, fn func(key string, lastModified time.Time) bool) error {
	for obj := range c.mc.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		if !fn(obj.Key, obj.LastModified) {
			return nil
		}
	}
	return nil
}

// PublicURL 生成对象的公开访问地址
func (c *Client) PublicURL(key string) string {
	scheme := "http"
	if c.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, c.endpoint, c.bucket, key)
}

// objectKey 按内容类型分目录，文件名用随机 UUID 避免冲突
// 上传发生在数据库写入之前，此时还没有实体 ID 可用
func objectKey(localPath, contentType string) string {
	prefix := "thumbnails"
	if strings.HasPrefix(contentType, "video/") {
		prefix = "videos"
	}
	return fmt.Sprintf("%s/%s%s", prefix, uuid.NewString(), filepath.Ext(localPath))
}

// probeDuration 用 ffprobe 探测视频时长（秒）
func probeDuration(localPath string) (int, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		localPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(output, &probe); err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}

	seconds, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", probe.Format.Duration, err)
	}

	return int(seconds + 0.5), nil
}
