package upload_service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"ugc-video-service/mediaplatform"
	"ugc-video-service/model"
	"ugc-video-service/service/video_service"
)

// MaxUploadBytes is the hard payload ceiling (250 MiB).
const MaxUploadBytes = 250 << 20

// PlatformAPI is the slice of the media platform client the pipeline uses.
type PlatformAPI interface {
	RequestStagedUpload(filename, mimeType string, byteSize int64) (*mediaplatform.StagedTarget, error)
	RegisterAsset(resourceURL string) (*mediaplatform.RegisteredAsset, error)
	GetAssetStatus(assetID string) (*mediaplatform.AssetStatus, error)
}

// TransferFunc performs the multipart POST to a staged target.
type TransferFunc func(target *mediaplatform.StagedTarget, filename, mimeType string, content []byte, onProgress func(percent int)) error

// SessionStore persists upload session rows.
type SessionStore interface {
	Create(session *model.UploadSession) error
	Update(session *model.UploadSession) error
	GetBySessionID(sessionID string) (*model.UploadSession, error)
	ListByShopWithCursor(shop string, cursor int64, limit int) ([]*model.UploadSession, error)
	DeleteFinishedBefore(before time.Time, limit int) (int64, error)
}

// RecordCreator creates the final video record.
type RecordCreator interface {
	CreateVideo(shop string, input video_service.CreateVideoInput) (*model.UgcVideo, error)
}

// StartUploadRequest carries the file and record metadata for one session.
type StartUploadRequest struct {
	Shop     string
	FileName string
	MimeType string
	FileSize int64
	Content  []byte

	Title        string
	Description  string
	Duration     int
	SourceAuthor string
	SourceType   string
	ProductId    string
}

// UploadService drives upload sessions. One active session per shop.
type UploadService struct {
	platform PlatformAPI
	transfer TransferFunc
	records  RecordCreator
	sessions SessionStore

	mu     sync.Mutex
	active map[string]*pipelineSession // shop -> running session

	pollInterval    time.Duration
	pollMaxAttempts int
}

// NewUploadService create upload service instance
func NewUploadService(platform PlatformAPI, records RecordCreator, sessions SessionStore) *UploadService {
	return &UploadService{
		platform:        platform,
		transfer:        mediaplatform.UploadStagedFile,
		records:         records,
		sessions:        sessions,
		active:          make(map[string]*pipelineSession),
		pollInterval:    3 * time.Second,
		pollMaxAttempts: 60,
	}
}

// SetPollPolicy overrides the readiness poll interval and attempt ceiling.
func (s *UploadService) SetPollPolicy(interval time.Duration, maxAttempts int) {
	if interval > 0 {
		s.pollInterval = interval
	}
	if maxAttempts > 0 {
		s.pollMaxAttempts = maxAttempts
	}
}

// StartUpload validates the file, claims the shop's session slot and launches
// the pipeline goroutine. Validation failures and slot conflicts are reported
// synchronously, before any network call.
func (s *UploadService) StartUpload(request *StartUploadRequest) (*model.UploadSession, error) {
	if request == nil || request.Shop == "" {
		return nil, validationError("shop is required")
	}
	if err := ValidateFile(request.MimeType, request.FileSize); err != nil {
		return nil, err
	}
	if int64(len(request.Content)) != request.FileSize {
		return nil, validationError("file size mismatch: declared %d, got %d", request.FileSize, len(request.Content))
	}

	sess := &pipelineSession{
		svc:      s,
		request:  request,
		cancelCh: make(chan struct{}),
	}

	s.mu.Lock()
	if _, busy := s.active[request.Shop]; busy {
		s.mu.Unlock()
		return nil, ErrSessionActive
	}
	s.active[request.Shop] = sess
	s.mu.Unlock()

	now := time.Now()
	row := &model.UploadSession{
		SessionId: newSessionID(),
		Shop:      request.Shop,
		FileName:  request.FileName,
		MimeType:  request.MimeType,
		FileSize:  request.FileSize,
		Stage:     model.StageStaging,
		StartedAt: &now,
	}
	if err := s.sessions.Create(row); err != nil {
		s.release(request.Shop)
		return nil, fmt.Errorf("failed to create session record: %w", err)
	}
	sess.row = row

	log.Printf("[Upload] Session %s started for shop %s (%s, %d bytes)",
		row.SessionId, row.Shop, row.FileName, row.FileSize)

	go sess.run()

	return row, nil
}

// ValidateFile checks MIME type and size limits. Purely local, safe to call
// repeatedly.
func ValidateFile(mimeType string, byteSize int64) error {
	if !strings.HasPrefix(mimeType, "video/") {
		return validationError("unsupported file type %q, expected video/*", mimeType)
	}
	if byteSize <= 0 {
		return validationError("file is empty")
	}
	if byteSize > MaxUploadBytes {
		return validationError("file size %d exceeds limit of %d bytes", byteSize, int64(MaxUploadBytes))
	}
	return nil
}

// GetSession returns the persisted session row.
func (s *UploadService) GetSession(sessionID string) (*model.UploadSession, error) {
	return s.sessions.GetBySessionID(sessionID)
}

// ListSessions returns recent sessions for a shop with cursor pagination.
// One extra row is fetched to decide whether another page exists.
func (s *UploadService) ListSessions(shop string, cursor int64, size int) ([]*model.UploadSession, int64, bool, error) {
	if size <= 0 || size > 100 {
		size = 20
	}

	sessions, err := s.sessions.ListByShopWithCursor(shop, cursor, size+1)
	if err != nil {
		return nil, 0, false, err
	}

	hasMore := len(sessions) > size
	if hasMore {
		sessions = sessions[:size]
	}

	var nextCursor int64
	if len(sessions) > 0 {
		nextCursor = sessions[len(sessions)-1].ID
	}
	return sessions, nextCursor, hasMore, nil
}

// Cancel flags the session for cooperative cancellation. An in-flight remote
// call is not aborted; its result is discarded and no further poll rounds are
// scheduled. Canceling a finished session is a no-op.
func (s *UploadService) Cancel(shop, sessionID string) error {
	row, err := s.sessions.GetBySessionID(sessionID)
	if err != nil {
		return err
	}
	if row.Shop != shop {
		return fmt.Errorf("session %s does not belong to shop %s", sessionID, shop)
	}
	if row.Stage.Finished() {
		return nil
	}

	s.mu.Lock()
	sess := s.active[shop]
	s.mu.Unlock()

	if sess == nil || sess.row == nil || sess.row.SessionId != sessionID {
		return nil
	}

	sess.cancel()
	log.Printf("[Upload] Session %s cancel requested", sessionID)
	return nil
}

// HasActiveSession reports whether the shop's slot is taken.
func (s *UploadService) HasActiveSession(shop string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, busy := s.active[shop]
	return busy
}

// release frees the shop's session slot. Done and failed sessions both end here.
func (s *UploadService) release(shop string) {
	s.mu.Lock()
	delete(s.active, shop)
	s.mu.Unlock()
}

func newSessionID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("us_%d", time.Now().UnixNano())
	}
	return "us_" + hex.EncodeToString(buf)
}
