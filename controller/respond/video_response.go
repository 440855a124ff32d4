package respond

import (
	"time"

	"ugc-video-service/model"
)

// Video represents the public view of a video record.
type Video struct {
	Id           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	VideoUrl     string    `json:"videoUrl"`
	ThumbnailUrl string    `json:"thumbnailUrl"`
	Duration     int       `json:"duration"`
	SourceAuthor string    `json:"sourceAuthor"`
	SourceType   string    `json:"sourceType"`
	ProductId    string    `json:"productId"`
	SortOrder    int       `json:"sortOrder"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// VideoListResponse wraps a video list.
type VideoListResponse struct {
	Videos []*Video `json:"videos"`
	Total  int      `json:"total"`
}

// ToVideo converts a model.UgcVideo into a public response struct.
func ToVideo(video *model.UgcVideo) *Video {
	if video == nil {
		return nil
	}
	return &Video{
		Id:           video.ID,
		Title:        video.Title,
		Description:  video.Description,
		VideoUrl:     video.VideoUrl,
		ThumbnailUrl: video.ThumbnailUrl,
		Duration:     video.Duration,
		SourceAuthor: video.SourceAuthor,
		SourceType:   video.SourceType,
		ProductId:    video.ProductId,
		SortOrder:    video.SortOrder,
		IsActive:     video.IsActive,
		CreatedAt:    video.CreatedAt,
		UpdatedAt:    video.UpdatedAt,
	}
}

// ToVideoList converts a slice of model videos to response structs.
func ToVideoList(videos []*model.UgcVideo) []*Video {
	result := make([]*Video, 0, len(videos))
	for _, v := range videos {
		result = append(result, ToVideo(v))
	}
	return result
}
