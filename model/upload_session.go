package model

import "time"

// SessionStage indicates the current stage of an upload session.
type SessionStage string

const (
	StageIdle       SessionStage = "idle"       // Slot free, nothing running
	StageStaging    SessionStage = "staging"    // Requesting a staged upload target
	StageUploading  SessionStage = "uploading"  // Transferring bytes to the staged target
	StageCreating   SessionStage = "creating"   // Registering the uploaded asset
	StagePolling    SessionStage = "polling"    // Waiting for the platform to process the asset
	StageFinalizing SessionStage = "finalizing" // Creating the video record
	StageDone       SessionStage = "done"       // Record created
	StageFailed     SessionStage = "failed"     // Terminal failure, see error fields
)

// Finished reports whether the stage is terminal.
func (s SessionStage) Finished() bool {
	return s == StageDone || s == StageFailed
}

// UploadSession represents one run of the media ingestion pipeline.
type UploadSession struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	// Session identifier
	SessionId string `gorm:"uniqueIndex;type:varchar(255)" json:"session_id"` // Unique session ID

	// Ownership (immutable after create)
	Shop string `gorm:"type:varchar(255);index" json:"shop"` // Shop domain

	// File info (immutable after create)
	FileName string `gorm:"type:varchar(255)" json:"file_name"` // Original file name
	MimeType string `gorm:"type:varchar(100)" json:"mime_type"` // MIME type
	FileSize int64  `json:"file_size"`                          // File size in bytes

	// Session status & progress
	Stage       SessionStage `gorm:"type:varchar(20);default:'idle'" json:"stage"` // Current stage token
	PollAttempt int          `gorm:"type:int;default:0" json:"poll_attempt"`       // Readiness polls performed (0-60)
	Progress    int          `gorm:"type:int;default:0" json:"progress"`           // Transfer percent (0-100)

	// Result info
	AssetId      string `gorm:"type:varchar(255)" json:"asset_id"`       // Platform asset ID
	VideoUrl     string `gorm:"type:varchar(1024)" json:"video_url"`     // Resolved playback URL
	ThumbnailUrl string `gorm:"type:varchar(1024)" json:"thumbnail_url"` // Resolved preview URL
	VideoId      int64  `gorm:"type:bigint;default:0" json:"video_id"`   // Created record ID (after done)
	ErrorKind    string `gorm:"type:varchar(50)" json:"error_kind"`      // validation/remote/transfer/timeout/canceled/finalize
	ErrorMessage string `gorm:"type:text" json:"error_message"`          // Error message

	// Timestamps
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	StartedAt  *time.Time `gorm:"type:timestamp" json:"started_at"`
	FinishedAt *time.Time `gorm:"type:timestamp" json:"finished_at"`
}

// TableName sets custom table name
func (UploadSession) TableName() string {
	return "tb_upload_session"
}
