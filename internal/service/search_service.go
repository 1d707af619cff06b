package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"vidtube-go/internal/api/dto"
	"vidtube-go/internal/infra/elasticsearch"
	"vidtube-go/internal/model"
	"vidtube-go/internal/repository"
	"vidtube-go/pkg/logger"

	"go.uber.org/zap"
)

type SearchService struct {
	videoRepo *repository.VideoRepository
}

// NewSearchService 创建搜索服务
func NewSearchService(videoRepo *repository.VideoRepository) *SearchService {
	return &SearchService{videoRepo: videoRepo}
}

// IndexVideo 同步视频文档到搜索索引
func (s *SearchService) IndexVideo(ctx context.Context, v *model.Video) error {
	if !elasticsearch.Available() {
		return nil
	}
	return elasticsearch.SyncVideo(ctx, v)
}

// RemoveVideo 从搜索索引删除视频文档
func (s *SearchService) RemoveVideo(ctx context.Context, videoID int64) error {
	if !elasticsearch.Available() {
		return nil
	}
	return elasticsearch.DeleteVideo(ctx, videoID)
}

// Search 在已发布视频中做全文搜索
// ES 可用时走 ES，否则降级到数据库模糊匹配
func (s *SearchService) Search(req *dto.SearchRequest) (*dto.VideoListData, error) {
	keyword := strings.TrimSpace(req.Query)
	page := req.Page
	if page < 1 {
		page = repository.DefaultPage
	}
	limit := req.Limit
	if limit < 1 || limit > repository.MaxLimit {
		limit = repository.DefaultLimit
	}

	if elasticsearch.Available() {
		data, err := s.searchES(keyword, page, limit)
		if err == nil {
			return data, nil
		}
		logger.Warn("Elasticsearch search failed, falling back to database", zap.Error(err))
	}

	videos, total, err := s.videoRepo.SearchPublished(keyword, page, limit)
	if err != nil {
		return nil, err
	}
	return buildVideoListData(videos, total, page, limit), nil
}

func (s *SearchService) searchES(keyword string, page, limit int) (*dto.VideoListData, error) {
	query := map[string]interface{}{
		"from": (page - 1) * limit,
		"size": limit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":  keyword,
						"fields": []string{"title^2", "description"},
					},
				},
				"filter": map[string]interface{}{
					"term": map[string]interface{}{"is_published": true},
				},
			},
		},
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := elasticsearch.Search(ctx, elasticsearch.VideoIndexName(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return nil, fmt.Errorf("search failed: %s", resp.String())
	}

	var result struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source elasticsearch.VideoDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	items := make([]dto.VideoInfo, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		items = append(items, docToVideoInfo(&hit.Source))
	}

	totalPages := (result.Hits.Total.Value + int64(limit) - 1) / int64(limit)

	return &dto.VideoListData{
		Videos:     items,
		Total:      result.Hits.Total.Value,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

func docToVideoInfo(doc *elasticsearch.VideoDoc) dto.VideoInfo {
	createdAt, _ := time.Parse(time.RFC3339, doc.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339, doc.UpdatedAt)
	return dto.VideoInfo{
		ID:          doc.ID,
		OwnerID:     doc.OwnerID,
		Title:       doc.Title,
		Description: doc.Description,
		Duration:    doc.Duration,
		IsPublished: doc.IsPublished,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
}
