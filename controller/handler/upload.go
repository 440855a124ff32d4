package handler

import (
	"errors"
	"io"
	"strconv"

	"gorm.io/gorm"

	"ugc-video-service/controller/respond"
	"ugc-video-service/service/upload_service"

	"github.com/gin-gonic/gin"
)

// UploadHandler upload pipeline handler
type UploadHandler struct {
	uploadService *upload_service.UploadService
}

// NewUploadHandler create upload handler instance
func NewUploadHandler(uploadService *upload_service.UploadService) *UploadHandler {
	return &UploadHandler{
		uploadService: uploadService,
	}
}

// StartUpload accepts a multipart video upload and starts a pipeline session.
// The response carries the session ID; progress is exposed on the session
// status endpoint.
func (h *UploadHandler) StartUpload(c *gin.Context) {
	shop := shopFromHeader(c)
	if shop == "" {
		respond.InvalidParam(c, "X-Shop-Domain header is required")
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respond.InvalidParam(c, "file is required")
		return
	}
	defer file.Close()

	mimeType := c.PostForm("mimeType")
	if mimeType == "" {
		mimeType = header.Header.Get("Content-Type")
	}

	// Reject oversize and non-video payloads before buffering the content.
	if err := upload_service.ValidateFile(mimeType, header.Size); err != nil {
		respond.InvalidParam(c, err.Error())
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		respond.ServerError(c, "failed to read file")
		return
	}

	duration, _ := strconv.Atoi(c.PostForm("duration"))

	session, err := h.uploadService.StartUpload(&upload_service.StartUploadRequest{
		Shop:         shop,
		FileName:     header.Filename,
		MimeType:     mimeType,
		FileSize:     int64(len(content)),
		Content:      content,
		Title:        c.PostForm("title"),
		Description:  c.PostForm("description"),
		Duration:     duration,
		SourceAuthor: c.PostForm("sourceAuthor"),
		SourceType:   c.PostForm("sourceType"),
		ProductId:    c.PostForm("productId"),
	})
	if err != nil {
		if errors.Is(err, upload_service.ErrSessionActive) {
			respond.Conflict(c, err.Error())
			return
		}
		if upload_service.KindOf(err) == upload_service.ErrKindValidation {
			respond.InvalidParam(c, err.Error())
			return
		}
		respond.ServerError(c, "failed to start upload")
		return
	}

	respond.Accepted(c, respond.UploadSessionCreatedResponse{
		SessionId: session.SessionId,
		Stage:     string(session.Stage),
	})
}

// GetSession returns one session's status and progress.
func (h *UploadHandler) GetSession(c *gin.Context) {
	shop := shopFromHeader(c)
	if shop == "" {
		respond.InvalidParam(c, "X-Shop-Domain header is required")
		return
	}

	sessionID := c.Param("sessionId")
	session, err := h.uploadService.GetSession(sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respond.NotFound(c, "session not found")
			return
		}
		respond.ServerError(c, "failed to load session")
		return
	}
	if session.Shop != shop {
		respond.NotFound(c, "session not found")
		return
	}

	respond.Success(c, respond.ToUploadSession(session))
}

// CancelSession requests cooperative cancellation of a running session.
func (h *UploadHandler) CancelSession(c *gin.Context) {
	shop := shopFromHeader(c)
	if shop == "" {
		respond.InvalidParam(c, "X-Shop-Domain header is required")
		return
	}

	sessionID := c.Param("sessionId")
	if err := h.uploadService.Cancel(shop, sessionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respond.NotFound(c, "session not found")
			return
		}
		respond.ServerError(c, "failed to cancel session")
		return
	}

	respond.Success(c, gin.H{"sessionId": sessionID, "canceled": true})
}

// ListSessions returns recent sessions for the shop (cursor pagination).
func (h *UploadHandler) ListSessions(c *gin.Context) {
	shop := shopFromHeader(c)
	if shop == "" {
		respond.InvalidParam(c, "X-Shop-Domain header is required")
		return
	}

	cursor, _ := strconv.ParseInt(c.Query("cursor"), 10, 64)
	size, _ := strconv.Atoi(c.Query("size"))

	sessions, nextCursor, hasMore, err := h.uploadService.ListSessions(shop, cursor, size)
	if err != nil {
		respond.ServerError(c, "failed to list sessions")
		return
	}

	respond.Success(c, respond.UploadSessionListResponse{
		Sessions:   respond.ToUploadSessionList(sessions),
		NextCursor: nextCursor,
		HasMore:    hasMore,
	})
}
