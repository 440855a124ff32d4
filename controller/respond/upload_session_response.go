package respond

import (
	"time"

	"ugc-video-service/model"
)

// UploadSessionCreatedResponse describes the response after starting an upload.
type UploadSessionCreatedResponse struct {
	SessionId string `json:"sessionId" example:"us_abc123"`
	Stage     string `json:"stage" example:"staging"`
}

// UploadSession represents the public view of an upload session.
type UploadSession struct {
	SessionId    string     `json:"sessionId"`
	FileName     string     `json:"fileName"`
	MimeType     string     `json:"mimeType"`
	FileSize     int64      `json:"fileSize"`
	Stage        string     `json:"stage"`
	PollAttempt  int        `json:"pollAttempt"`
	Progress     int        `json:"progress"`
	AssetId      string     `json:"assetId"`
	VideoUrl     string     `json:"videoUrl"`
	ThumbnailUrl string     `json:"thumbnailUrl"`
	VideoId      int64      `json:"videoId"`
	ErrorKind    string     `json:"errorKind"`
	ErrorMessage string     `json:"errorMessage"`
	CreatedAt    time.Time  `json:"createdAt"`
	StartedAt    *time.Time `json:"startedAt"`
	FinishedAt   *time.Time `json:"finishedAt"`
}

// UploadSessionListResponse describes a paginated session list.
type UploadSessionListResponse struct {
	Sessions   []*UploadSession `json:"sessions"`
	NextCursor int64            `json:"nextCursor"`
	HasMore    bool             `json:"hasMore"`
}

// ToUploadSession converts a model.UploadSession into a public response struct.
func ToUploadSession(session *model.UploadSession) *UploadSession {
	if session == nil {
		return nil
	}
	return &UploadSession{
		SessionId:    session.SessionId,
		FileName:     session.FileName,
		MimeType:     session.MimeType,
		FileSize:     session.FileSize,
		Stage:        string(session.Stage),
		PollAttempt:  session.PollAttempt,
		Progress:     session.Progress,
		AssetId:      session.AssetId,
		VideoUrl:     session.VideoUrl,
		ThumbnailUrl: session.ThumbnailUrl,
		VideoId:      session.VideoId,
		ErrorKind:    session.ErrorKind,
		ErrorMessage: session.ErrorMessage,
		CreatedAt:    session.CreatedAt,
		StartedAt:    session.StartedAt,
		FinishedAt:   session.FinishedAt,
	}
}

// ToUploadSessionList converts a slice of model sessions to response structs.
func ToUploadSessionList(sessions []*model.UploadSession) []*UploadSession {
	result := make([]*UploadSession, 0, len(sessions))
	for _, s := range sessions {
		result = append(result, ToUploadSession(s))
	}
	return result
}
