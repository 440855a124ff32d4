package handler

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"ugc-video-service/controller/respond"
	"ugc-video-service/service/video_service"

	"github.com/gin-gonic/gin"
)

// VideoHandler video catalog handler
type VideoHandler struct {
	videoService *video_service.VideoService
}

// NewVideoHandler create video handler instance
func NewVideoHandler(videoService *video_service.VideoService) *VideoHandler {
	return &VideoHandler{
		videoService: videoService,
	}
}

// shopFromHeader resolves the acting shop. Empty means the request is rejected.
func shopFromHeader(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader("X-Shop-Domain"))
}

// bindJSONWithOptionalGzip handles JSON payloads that may be gzip-compressed.
// If the request header specifies gzip encoding, the body is decompressed before binding.
func bindJSONWithOptionalGzip(c *gin.Context, obj interface{}) error {
	encoding := strings.ToLower(strings.TrimSpace(c.GetHeader("Content-Encoding")))
	if strings.Contains(encoding, "gzip") {
		defer c.Request.Body.Close()

		gzipReader, err := gzip.NewReader(c.Request.Body)
		if err != nil {
			return err
		}
		defer gzipReader.Close()

		bodyBytes, err := io.ReadAll(gzipReader)
		if err != nil {
			return err
		}

		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		c.Request.ContentLength = int64(len(bodyBytes))
		c.Request.Header.Del("Content-Encoding")
	}

	return c.ShouldBindJSON(obj)
}

// CreateVideoRequest create video request (direct URL, no upload pipeline)
type CreateVideoRequest struct {
	Title        string `json:"title" binding:"required"`
	Description  string `json:"description"`
	VideoUrl     string `json:"videoUrl" binding:"required"`
	ThumbnailUrl string `json:"thumbnailUrl"`
	Duration     int    `json:"duration"`
	SourceAuthor string `json:"sourceAuthor"`
	SourceType   string `json:"sourceType"`
	ProductId    string `json:"productId"`
}

// ListVideos returns every video for the shop in feed order.
func (h *VideoHandler) ListVideos(c *gin.Context) {
	shop := shopFromHeader(c)
	if shop == "" {
		respond.InvalidParam(c, "X-Shop-Domain header is required")
		return
	}

	videos, err := h.videoService.ListVideos(shop)
	if err != nil {
		respond.ServerError(c, "failed to list videos")
		return
	}

	respond.Success(c, respond.VideoListResponse{
		Videos: respond.ToVideoList(videos),
		Total:  len(videos),
	})
}

// CreateVideo creates a record from a direct video URL.
func (h *VideoHandler) CreateVideo(c *gin.Context) {
	shop := shopFromHeader(c)
	if shop == "" {
		respond.InvalidParam(c, "X-Shop-Domain header is required")
		return
	}

	var req CreateVideoRequest
	if err := bindJSONWithOptionalGzip(c, &req); err != nil {
		respond.InvalidParam(c, "invalid request body: "+err.Error())
		return
	}

	sourceType := req.SourceType
	if sourceType == "" {
		sourceType = "url"
	}

	video, err := h.videoService.CreateVideo(shop, video_service.CreateVideoInput{
		Title:        req.Title,
		Description:  req.Description,
		VideoUrl:     req.VideoUrl,
		ThumbnailUrl: req.ThumbnailUrl,
		Duration:     req.Duration,
		SourceAuthor: req.SourceAuthor,
		SourceType:   sourceType,
		ProductId:    req.ProductId,
	})
	if err != nil {
		respond.ServerError(c, err.Error())
		return
	}

	respond.Success(c, respond.ToVideo(video))
}

// ToggleVideo flips the active flag on one record.
func (h *VideoHandler) ToggleVideo(c *gin.Context) {
	shop := shopFromHeader(c)
	if shop == "" {
		respond.InvalidParam(c, "X-Shop-Domain header is required")
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respond.InvalidParam(c, "invalid video id")
		return
	}

	video, err := h.videoService.ToggleVideo(shop, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respond.NotFound(c, "video not found")
			return
		}
		respond.ServerError(c, "failed to toggle video")
		return
	}

	respond.Success(c, respond.ToVideo(video))
}

// DeleteVideo removes one record.
func (h *VideoHandler) DeleteVideo(c *gin.Context) {
	shop := shopFromHeader(c)
	if shop == "" {
		respond.InvalidParam(c, "X-Shop-Domain header is required")
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respond.InvalidParam(c, "invalid video id")
		return
	}

	if err := h.videoService.DeleteVideo(shop, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respond.NotFound(c, "video not found")
			return
		}
		respond.ServerError(c, "failed to delete video")
		return
	}

	respond.Success(c, gin.H{"deleted": id})
}

// PublicFeed returns the active videos for a shop, storefront order.
func (h *VideoHandler) PublicFeed(c *gin.Context) {
	shop := strings.TrimSpace(c.Query("shop"))
	if shop == "" {
		respond.InvalidParam(c, "shop query parameter is required")
		return
	}

	videos, err := h.videoService.PublicFeed(shop)
	if err != nil {
		respond.ServerError(c, "failed to load feed")
		return
	}

	respond.Success(c, respond.VideoListResponse{
		Videos: respond.ToVideoList(videos),
		Total:  len(videos),
	})
}
