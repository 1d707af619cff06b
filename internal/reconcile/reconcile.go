package reconcile

import (
	"context"
	"errors"
	"time"

	infraKafka "vidtube-go/internal/infra/kafka"
	"vidtube-go/internal/model"
	"vidtube-go/internal/repository"
	"vidtube-go/pkg/logger"

	"go.uber.org/zap"
)

// 上传发生在数据库写入之前，刚写入的对象可能还没有对应记录，
// 扫描时只回收超过宽限期的孤儿对象
const orphanGracePeriod = time.Hour

const listBatchSize = 500

// AssetStore 对账任务需要的对象存储能力
type AssetStore interface {
	Remove(ctx context.Context, key string) error
	ListObjects(ctx context.Context, fn func(key string, lastModified time.Time) bool) error
}

// Reconciler 对象存储对账任务
// 两条路径保证存储与数据库最终一致：
// 消费 asset.delete_retry 事件重试删除失败的资产；
// 周期扫描回收没有任何记录引用的孤儿对象
type Reconciler struct {
	videoRepo *repository.VideoRepository
	store     AssetStore
}

func New(videoRepo *repository.VideoRepository, store AssetStore) *Reconciler {
	return &Reconciler{videoRepo: videoRepo, store: store}
}

// HandleEvent 处理领域事件，只关心资产删除重试
func (r *Reconciler) HandleEvent(event *infraKafka.DomainEvent) error {
	if event.Type != infraKafka.EventAssetDeleteRetry {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var errs []error
	for _, key := range event.AssetKeys {
		if key == "" {
			continue
		}
		if err := r.store.Remove(ctx, key); err != nil {
			logger.Error("Retry asset removal failed",
				zap.Int64("video_id", event.VideoID),
				zap.String("key", key),
				zap.Error(err))
			errs = append(errs, err)
			continue
		}
		logger.Info("Orphaned asset removed via retry event",
			zap.Int64("video_id", event.VideoID),
			zap.String("key", key))
	}

	return errors.Join(errs...)
}

// Sweep 全量扫描一次：Bucket 里没有任何视频记录引用的对象视为孤儿并回收
func (r *Reconciler) Sweep(ctx context.Context) error {
	referenced := make(map[string]struct{})

	err := r.videoRepo.ListAll(listBatchSize, func(videos []model.Video) error {
		for i := range videos {
			if videos[i].VideoKey != "" {
				referenced[videos[i].VideoKey] = struct{}{}
			}
			if videos[i].ThumbnailKey != "" {
				referenced[videos[i].ThumbnailKey] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	now := time.Now()
	var scanned, removed int

	err = r.store.ListObjects(ctx, func(key string, lastModified time.Time) bool {
		scanned++
		if _, ok := referenced[key]; ok {
			return true
		}
		if now.Sub(lastModified) < orphanGracePeriod {
			return true
		}
		if err := r.store.Remove(ctx, key); err != nil {
			logger.Error("Remove orphaned object failed", zap.String("key", key), zap.Error(err))
			return true
		}
		removed++
		logger.Info("Orphaned object removed by sweep", zap.String("key", key))
		return true
	})
	if err != nil {
		return err
	}

	logger.Info("Reconcile sweep finished",
		zap.Int("scanned", scanned),
		zap.Int("removed", removed),
		zap.Int("referenced", len(referenced)),
	)
	return nil
}

// RunSweeper 按固定间隔周期扫描（阻塞，ctx 取消后退出）
// interval 为 0 时关闭周期扫描
func (r *Reconciler) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		logger.Info("Periodic sweep disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Periodic sweep started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Periodic sweep stopped")
			return
		case <-ticker.C:
			if err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
				logger.Error("Reconcile sweep failed", zap.Error(err))
			}
		}
	}
}
