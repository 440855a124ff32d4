package video_service

import (
	"fmt"
	"log"

	"ugc-video-service/database"
	"ugc-video-service/model"
)

// VideoStore is the persistence surface the service needs.
type VideoStore interface {
	Create(video *model.UgcVideo) error
	GetByID(shop string, id int64) (*model.UgcVideo, error)
	ListByShop(shop string) ([]*model.UgcVideo, error)
	ListActiveByShop(shop string) ([]*model.UgcVideo, error)
	UpdateActive(shop string, id int64, active bool) error
	Delete(shop string, id int64) error
}

// CreateVideoInput carries the fields for a new video record. SortOrder is
// assigned by the store, never by the caller.
type CreateVideoInput struct {
	Title        string
	Description  string
	VideoUrl     string
	ThumbnailUrl string
	Duration     int
	SourceAuthor string
	SourceType   string
	ProductId    string
}

// VideoService manages a shop's video catalog and the public feed.
type VideoService struct {
	store VideoStore
}

// NewVideoService create video service instance
func NewVideoService(store VideoStore) *VideoService {
	return &VideoService{store: store}
}

// CreateVideo creates a record for the shop. New records land at the end of
// the feed; the store assigns max(sortOrder)+1 in its own transaction.
func (s *VideoService) CreateVideo(shop string, input CreateVideoInput) (*model.UgcVideo, error) {
	if shop == "" {
		return nil, fmt.Errorf("shop is required")
	}
	if input.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if input.VideoUrl == "" {
		return nil, fmt.Errorf("video url is required")
	}

	video := &model.UgcVideo{
		Shop:         shop,
		Title:        input.Title,
		Description:  input.Description,
		VideoUrl:     input.VideoUrl,
		ThumbnailUrl: input.ThumbnailUrl,
		Duration:     input.Duration,
		SourceAuthor: input.SourceAuthor,
		SourceType:   input.SourceType,
		ProductId:    input.ProductId,
		IsActive:     true,
	}
	if err := s.store.Create(video); err != nil {
		return nil, fmt.Errorf("failed to create video: %w", err)
	}

	s.invalidateFeedCache(shop)
	log.Printf("[Video] Created record %d for shop %s (sort %d)", video.ID, shop, video.SortOrder)
	return video, nil
}

// ListVideos returns every record for the shop, feed order.
func (s *VideoService) ListVideos(shop string) ([]*model.UgcVideo, error) {
	return s.store.ListByShop(shop)
}

// ToggleVideo flips the active flag on exactly one record.
func (s *VideoService) ToggleVideo(shop string, id int64) (*model.UgcVideo, error) {
	video, err := s.store.GetByID(shop, id)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateActive(shop, id, !video.IsActive); err != nil {
		return nil, fmt.Errorf("failed to toggle video %d: %w", id, err)
	}
	video.IsActive = !video.IsActive

	s.invalidateFeedCache(shop)
	return video, nil
}

// DeleteVideo removes one record. Remaining records keep their sort order,
// leaving a gap rather than renumbering.
func (s *VideoService) DeleteVideo(shop string, id int64) error {
	if _, err := s.store.GetByID(shop, id); err != nil {
		return err
	}

	if err := s.store.Delete(shop, id); err != nil {
		return fmt.Errorf("failed to delete video %d: %w", id, err)
	}

	s.invalidateFeedCache(shop)
	return nil
}

// PublicFeed returns the shop's active videos in feed order, cached in Redis
// when available.
func (s *VideoService) PublicFeed(shop string) ([]*model.UgcVideo, error) {
	if shop == "" {
		return nil, fmt.Errorf("shop is required")
	}

	cacheKey := feedCacheKey(shop)
	var cached []*model.UgcVideo
	if err := database.GetCache(cacheKey, &cached); err == nil {
		return cached, nil
	}

	videos, err := s.store.ListActiveByShop(shop)
	if err != nil {
		return nil, err
	}

	if err := database.SetCache(cacheKey, videos); err != nil {
		log.Printf("[Video] Failed to cache feed for shop %s: %v", shop, err)
	}
	return videos, nil
}

func (s *VideoService) invalidateFeedCache(shop string) {
	if err := database.DeleteCache(feedCacheKey(shop)); err != nil {
		log.Printf("[Video] Failed to invalidate feed cache for shop %s: %v", shop, err)
	}
}

func feedCacheKey(shop string) string {
	return "ugc:feed:" + shop
}
