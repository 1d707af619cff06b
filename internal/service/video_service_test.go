package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vidtube-go/internal/api/dto"
	"vidtube-go/internal/config"
	infraKafka "vidtube-go/internal/infra/kafka"
	"vidtube-go/internal/model"
	"vidtube-go/internal/repository"
	"vidtube-go/internal/storage"
	"vidtube-go/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testConfigYAML = `
app:
  name: vidtube-test
  mode: test
minio:
  endpoint: 127.0.0.1:9000
  access_key: test
  secret_key: test
  bucket: test
jwt:
  secret: test-secret
  expire_hours: 1
  refresh_expire_days: 7
`

func TestMain(m *testing.M) {
	_ = logger.Init("error", "json", "stdout", "")

	dir, err := os.MkdirTemp("", "vidtube-test-*")
	if err != nil {
		panic(err)
	}
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(testConfigYAML), 0644); err != nil {
		panic(err)
	}
	if _, err := config.Load(path); err != nil {
		panic(err)
	}

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Video{}, &model.Subscription{}))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) *model.User {
	t.Helper()
	user := &model.User{
		UserName: username,
		Email:    username + "@test.local",
		FullName: username,
		Password: "hashed",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// fakeStorage 内存对象存储，按内容类型区分主资产和封面
type fakeStorage struct {
	uploadCalls int
	failVideo   bool
	failThumb   bool
	removeErr   map[string]error
	removed     []string
}

func (f *fakeStorage) UploadFile(_ context.Context, localPath, contentType string) (*storage.UploadInfo, error) {
	f.uploadCalls++
	if strings.HasPrefix(contentType, "video/") {
		if f.failVideo {
			return nil, errors.New("object store unavailable")
		}
		return &storage.UploadInfo{
			Key:      "videos/" + filepath.Base(localPath),
			URL:      "http://store.local/videos/" + filepath.Base(localPath),
			Duration: 42,
		}, nil
	}
	if f.failThumb {
		return nil, errors.New("object store unavailable")
	}
	return &storage.UploadInfo{
		Key: "thumbnails/" + filepath.Base(localPath),
		URL: "http://store.local/thumbnails/" + filepath.Base(localPath),
	}, nil
}

func (f *fakeStorage) Remove(_ context.Context, key string) error {
	if err := f.removeErr[key]; err != nil {
		return err
	}
	f.removed = append(f.removed, key)
	return nil
}

// fakeEvents 记录发布的领域事件
type fakeEvents struct {
	events []*infraKafka.DomainEvent
}

func (f *fakeEvents) Publish(_ context.Context, event *infraKafka.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEvents) byType(eventType string) []*infraKafka.DomainEvent {
	var out []*infraKafka.DomainEvent
	for _, e := range f.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func newVideoServiceForTest(t *testing.T) (*VideoService, *gorm.DB, *fakeStorage, *fakeEvents) {
	t.Helper()
	db := newTestDB(t)
	store := &fakeStorage{}
	events := &fakeEvents{}
	svc := NewVideoService(
		repository.NewVideoRepository(db),
		repository.NewUserRepository(db),
		store,
		events,
		nil,
	)
	return svc, db, store, events
}

func publishTestVideo(t *testing.T, svc *VideoService, ownerID int64, title string) *dto.VideoInfo {
	t.Helper()
	info, err := svc.Publish(ownerID, &dto.VideoPublishRequest{
		Title:       title,
		Description: "desc",
	}, "/tmp/"+title+".mp4", "")
	require.NoError(t, err)
	return info
}

func TestPublishValidationBeforeUpload(t *testing.T) {
	svc, _, store, _ := newVideoServiceForTest(t)

	tests := []struct {
		name      string
		title     string
		desc      string
		videoPath string
		wantErr   error
	}{
		{"blank title", "   ", "desc", "/tmp/a.mp4", ErrTitleRequired},
		{"blank description", "title", "\t\n", "/tmp/a.mp4", ErrDescriptionRequired},
		{"missing video file", "title", "desc", "", ErrVideoFileRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Publish(1, &dto.VideoPublishRequest{
				Title:       tt.title,
				Description: tt.desc,
			}, tt.videoPath, "")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// 校验失败时不允许发生任何上传
	assert.Equal(t, 0, store.uploadCalls)
}

func TestPublishPrimaryUploadFailure(t *testing.T) {
	svc, db, store, _ := newVideoServiceForTest(t)
	owner := seedUser(t, db, "alice")
	store.failVideo = true

	_, err := svc.Publish(owner.ID, &dto.VideoPublishRequest{
		Title:       "title",
		Description: "desc",
	}, "/tmp/clip.mp4", "")
	assert.ErrorIs(t, err, ErrUploadFailed)

	// 主资产上传失败必须中止，不产生记录
	var count int64
	require.NoError(t, db.Model(&model.Video{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestPublishThumbnailFailureNotFatal(t *testing.T) {
	svc, db, store, _ := newVideoServiceForTest(t)
	owner := seedUser(t, db, "alice")
	store.failThumb = true

	info, err := svc.Publish(owner.ID, &dto.VideoPublishRequest{
		Title:       "title",
		Description: "desc",
	}, "/tmp/clip.mp4", "/tmp/cover.jpg")
	require.NoError(t, err)

	assert.NotEmpty(t, info.VideoURL)
	assert.Empty(t, info.ThumbnailURL)

	var video model.Video
	require.NoError(t, db.First(&video, info.ID).Error)
	assert.Empty(t, video.ThumbnailKey)
}

func TestPublishSuccess(t *testing.T) {
	svc, db, _, events := newVideoServiceForTest(t)
	owner := seedUser(t, db, "alice")

	isPublished := false
	info, err := svc.Publish(owner.ID, &dto.VideoPublishRequest{
		Title:       "  My Video  ",
		Description: "desc",
		IsPublished: &isPublished,
	}, "/tmp/clip.mp4", "/tmp/cover.jpg")
	require.NoError(t, err)

	// 标题去除首尾空白后入库
	assert.Equal(t, "My Video", info.Title)
	assert.Equal(t, 42, info.Duration)
	assert.False(t, info.IsPublished)
	assert.NotEmpty(t, info.ThumbnailURL)

	require.Len(t, events.byType(infraKafka.EventVideoPublished), 1)
}

func TestPublishUnpublishedFlagPersisted(t *testing.T) {
	svc, db, _, _ := newVideoServiceForTest(t)
	owner := seedUser(t, db, "alice")

	isPublished := false
	info, err := svc.Publish(owner.ID, &dto.VideoPublishRequest{
		Title:       "draft",
		Description: "desc",
		IsPublished: &isPublished,
	}, "/tmp/draft.mp4", "")
	require.NoError(t, err)
	assert.False(t, info.IsPublished)

	// 显式传 false 时落库也必须是 false
	var stored model.Video
	require.NoError(t, db.First(&stored, info.ID).Error)
	assert.False(t, stored.IsPublished)

	// 不传该字段时默认发布
	defaulted := publishTestVideo(t, svc, owner.ID, "public")
	stored = model.Video{}
	require.NoError(t, db.First(&stored, defaulted.ID).Error)
	assert.True(t, stored.IsPublished)
}

func TestUpdateDetails(t *testing.T) {
	svc, db, _, _ := newVideoServiceForTest(t)
	owner := seedUser(t, db, "alice")
	info := publishTestVideo(t, svc, owner.ID, "before")

	updated, err := svc.UpdateDetails(info.ID, &dto.VideoUpdateRequest{
		Title:       "after",
		Description: "new desc",
	})
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Title)
	assert.Equal(t, "new desc", updated.Description)

	_, err = svc.UpdateDetails(99999, &dto.VideoUpdateRequest{Title: "x", Description: "y"})
	assert.ErrorIs(t, err, ErrVideoNotFound)

	_, err = svc.UpdateDetails(info.ID, &dto.VideoUpdateRequest{Title: " ", Description: "y"})
	assert.ErrorIs(t, err, ErrTitleRequired)
}

func TestDeleteRequiresOwnership(t *testing.T) {
	svc, db, store, _ := newVideoServiceForTest(t)
	owner := seedUser(t, db, "alice")
	other := seedUser(t, db, "bob")
	info := publishTestVideo(t, svc, owner.ID, "clip")

	err := svc.Delete(info.ID, other.ID)
	assert.ErrorIs(t, err, ErrVideoNoPermission)

	// 记录和资产都不能被动过
	var count int64
	require.NoError(t, db.Model(&model.Video{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Empty(t, store.removed)
}

func TestDeleteRemovesAssetsAndRecord(t *testing.T) {
	svc, db, store, events := newVideoServiceForTest(t)
	owner := seedUser(t, db, "alice")

	info, err := svc.Publish(owner.ID, &dto.VideoPublishRequest{
		Title:       "clip",
		Description: "desc",
	}, "/tmp/clip.mp4", "/tmp/cover.jpg")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(info.ID, owner.ID))

	err = db.First(&model.Video{}, info.ID).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// 视频文件和封面都被删掉
	assert.Len(t, store.removed, 2)
	require.Len(t, events.byType(infraKafka.EventVideoDeleted), 1)

	err = svc.Delete(info.ID, owner.ID)
	assert.ErrorIs(t, err, ErrVideoNotFound)
}

func TestDeleteAssetFailureStillDeletesRecord(t *testing.T) {
	svc, db, store, events := newVideoServiceForTest(t)
	owner := seedUser(t, db, "alice")
	info := publishTestVideo(t, svc, owner.ID, "clip")

	var video model.Video
	require.NoError(t, db.First(&video, info.ID).Error)
	store.removeErr = map[string]error{video.VideoKey: errors.New("object store unavailable")}

	// 资产删除是尽力而为，失败不阻塞数据库删除
	require.NoError(t, svc.Delete(info.ID, owner.ID))

	err := db.First(&model.Video{}, info.ID).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// 删不掉的键交给对账任务重试
	retries := events.byType(infraKafka.EventAssetDeleteRetry)
	require.Len(t, retries, 1)
	assert.Equal(t, []string{video.VideoKey}, retries[0].AssetKeys)
}

func TestTogglePublishPersisted(t *testing.T) {
	svc, db, _, _ := newVideoServiceForTest(t)
	owner := seedUser(t, db, "alice")
	other := seedUser(t, db, "bob")
	info := publishTestVideo(t, svc, owner.ID, "clip")
	require.True(t, info.IsPublished)

	_, err := svc.TogglePublish(info.ID, other.ID)
	assert.ErrorIs(t, err, ErrVideoNoPermission)

	toggled, err := svc.TogglePublish(info.ID, owner.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsPublished)

	// 状态写穿到数据库，不是只改内存
	var video model.Video
	require.NoError(t, db.First(&video, info.ID).Error)
	assert.False(t, video.IsPublished)

	toggled, err = svc.TogglePublish(info.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsPublished)
}

func TestListDefaultsToCurrentUser(t *testing.T) {
	svc, db, _, _ := newVideoServiceForTest(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	publishTestVideo(t, svc, alice.ID, "alice-clip")
	publishTestVideo(t, svc, bob.ID, "bob-clip")

	// userId 缺省时查当前用户自己的视频
	data, err := svc.List(alice.ID, &dto.VideoListRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), data.Total)
	require.Len(t, data.Videos, 1)
	assert.Equal(t, alice.ID, data.Videos[0].OwnerID)

	// 显式指定 userId 查别人的
	data, err = svc.List(alice.ID, &dto.VideoListRequest{UserID: bob.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), data.Total)

	// 被查询的用户必须存在
	_, err = svc.List(alice.ID, &dto.VideoListRequest{UserID: 99999})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetByIDIncludesOwner(t *testing.T) {
	svc, db, _, _ := newVideoServiceForTest(t)
	owner := seedUser(t, db, "alice")
	published := publishTestVideo(t, svc, owner.ID, "clip")

	info, err := svc.GetByID(published.ID)
	require.NoError(t, err)
	require.NotNil(t, info.Owner)
	assert.Equal(t, "alice", info.Owner.Username)

	_, err = svc.GetByID(99999)
	assert.ErrorIs(t, err, ErrVideoNotFound)
}
