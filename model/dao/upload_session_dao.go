package dao

import (
	"fmt"
	"time"

	"ugc-video-service/database"
	"ugc-video-service/model"
)

// UploadSessionDAO data access layer for upload sessions.
type UploadSessionDAO struct{}

// NewUploadSessionDAO creates a new DAO instance.
func NewUploadSessionDAO() *UploadSessionDAO {
	return &UploadSessionDAO{}
}

// Create inserts a new session record.
func (dao *UploadSessionDAO) Create(session *model.UploadSession) error {
	return database.DB.Create(session).Error
}

// GetBySessionID fetches a session by session ID.
func (dao *UploadSessionDAO) GetBySessionID(sessionID string) (*model.UploadSession, error) {
	var session model.UploadSession
	err := database.DB.Where("session_id = ?", sessionID).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Update persists session changes.
func (dao *UploadSessionDAO) Update(session *model.UploadSession) error {
	if session == nil {
		return fmt.Errorf("session is nil")
	}

	return database.DB.Model(&model.UploadSession{}).
		Where("id = ?", session.ID).
		Select("*").
		Updates(session).Error
}

// ListByShopWithCursor returns up to limit sessions for a shop (id desc).
// cursor: last session row ID from previous page (0 for first page).
func (dao *UploadSessionDAO) ListByShopWithCursor(shop string, cursor int64, limit int) ([]*model.UploadSession, error) {
	if limit <= 0 {
		limit = 20
	}

	var sessions []*model.UploadSession
	query := database.DB.Where("shop = ?", shop)
	if cursor > 0 {
		query = query.Where("id < ?", cursor)
	}

	if err := query.Order("id DESC").Limit(limit).Find(&sessions).Error; err != nil {
		return nil, err
	}

	return sessions, nil
}

// DeleteFinishedBefore removes done/failed sessions finished before the given time.
func (dao *UploadSessionDAO) DeleteFinishedBefore(before time.Time, limit int) (int64, error) {
	if limit <= 0 {
		limit = 100
	}

	result := database.DB.
		Where("stage IN ? AND finished_at IS NOT NULL AND finished_at < ?",
			[]model.SessionStage{model.StageDone, model.StageFailed}, before).
		Limit(limit).
		Delete(&model.UploadSession{})
	return result.RowsAffected, result.Error
}
