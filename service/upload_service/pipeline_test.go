package upload_service

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ugc-video-service/mediaplatform"
	"ugc-video-service/model"
	"ugc-video-service/service/video_service"
)

// fakePlatform is an in-memory PlatformAPI with call counters.
type fakePlatform struct {
	stagedCalls   int32
	registerCalls int32
	statusCalls   int32

	stagedErr   error
	registerErr error
	statusErr   error

	registerSources []mediaplatform.AssetSource
	statusFn        func(call int32) *mediaplatform.AssetStatus
}

func (f *fakePlatform) RequestStagedUpload(filename, mimeType string, byteSize int64) (*mediaplatform.StagedTarget, error) {
	atomic.AddInt32(&f.stagedCalls, 1)
	if f.stagedErr != nil {
		return nil, f.stagedErr
	}
	return &mediaplatform.StagedTarget{
		URL:         "https://bucket.example/upload",
		ResourceURL: "https://bucket.example/resource/abc",
		Parameters:  []mediaplatform.FormField{{Name: "key", Value: "uploads/abc"}},
	}, nil
}

func (f *fakePlatform) RegisterAsset(resourceURL string) (*mediaplatform.RegisteredAsset, error) {
	atomic.AddInt32(&f.registerCalls, 1)
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &mediaplatform.RegisteredAsset{
		AssetID:      "gid://media/Video/1",
		Sources:      f.registerSources,
		ThumbnailURL: "https://cdn.example/thumb.jpg",
	}, nil
}

func (f *fakePlatform) GetAssetStatus(assetID string) (*mediaplatform.AssetStatus, error) {
	call := atomic.AddInt32(&f.statusCalls, 1)
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	if f.statusFn != nil {
		return f.statusFn(call), nil
	}
	return &mediaplatform.AssetStatus{RawStatus: "PROCESSING"}, nil
}

// fakeSessionStore keeps session snapshots in memory.
type fakeSessionStore struct {
	mu   sync.Mutex
	rows map[string]*model.UploadSession
	next int64
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{rows: make(map[string]*model.UploadSession)}
}

func (f *fakeSessionStore) Create(session *model.UploadSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	session.ID = f.next
	snapshot := *session
	f.rows[session.SessionId] = &snapshot
	return nil
}

func (f *fakeSessionStore) Update(session *model.UploadSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot := *session
	f.rows[session.SessionId] = &snapshot
	return nil
}

func (f *fakeSessionStore) GetBySessionID(sessionID string) (*model.UploadSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}
	snapshot := *row
	return &snapshot, nil
}

func (f *fakeSessionStore) ListByShopWithCursor(shop string, cursor int64, limit int) ([]*model.UploadSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*model.UploadSession
	for _, row := range f.rows {
		if row.Shop != shop {
			continue
		}
		if cursor > 0 && row.ID >= cursor {
			continue
		}
		snapshot := *row
		result = append(result, &snapshot)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (f *fakeSessionStore) DeleteFinishedBefore(before time.Time, limit int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for id, row := range f.rows {
		if row.Stage.Finished() && row.FinishedAt != nil && row.FinishedAt.Before(before) {
			delete(f.rows, id)
			deleted++
		}
	}
	return deleted, nil
}

// fakeRecords counts record creations.
type fakeRecords struct {
	calls int32
	err   error
}

func (f *fakeRecords) CreateVideo(shop string, input video_service.CreateVideoInput) (*model.UgcVideo, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return &model.UgcVideo{
		ID:       42,
		Shop:     shop,
		Title:    input.Title,
		VideoUrl: input.VideoUrl,
		IsActive: true,
	}, nil
}

func newTestService(platform *fakePlatform, records *fakeRecords, store *fakeSessionStore) *UploadService {
	svc := NewUploadService(platform, records, store)
	svc.SetPollPolicy(time.Millisecond, 60)
	svc.transfer = func(target *mediaplatform.StagedTarget, filename, mimeType string, content []byte, onProgress func(int)) error {
		if onProgress != nil {
			onProgress(100)
		}
		return nil
	}
	return svc
}

func testRequest() *StartUploadRequest {
	return &StartUploadRequest{
		Shop:     "demo.myshopify.com",
		FileName: "clip.mp4",
		MimeType: "video/mp4",
		FileSize: 4,
		Content:  []byte("data"),
		Title:    "My clip",
	}
}

func waitFinished(t *testing.T, store *fakeSessionStore, sessionID string) *model.UploadSession {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		row, err := store.GetBySessionID(sessionID)
		if err == nil && row.Stage.Finished() {
			return row
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("session did not finish in time")
	return nil
}

func TestStartUpload_ValidationRejectsBeforeNetwork(t *testing.T) {
	platform := &fakePlatform{}
	store := newFakeSessionStore()
	svc := newTestService(platform, &fakeRecords{}, store)

	tests := []struct {
		name     string
		mimeType string
		fileSize int64
	}{
		{"non-video mime", "image/png", 1024},
		{"empty file", "video/mp4", 0},
		{"oversize file", "video/mp4", MaxUploadBytes + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testRequest()
			req.MimeType = tt.mimeType
			req.FileSize = tt.fileSize

			_, err := svc.StartUpload(req)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if KindOf(err) != ErrKindValidation {
				t.Errorf("Expected validation kind, got %q", KindOf(err))
			}
		})
	}

	if n := atomic.LoadInt32(&platform.stagedCalls); n != 0 {
		t.Errorf("Expected no network calls on validation failure, got %d", n)
	}
	if len(store.rows) != 0 {
		t.Errorf("Expected no session rows on validation failure, got %d", len(store.rows))
	}
}

func TestStartUpload_SingleFlightPerShop(t *testing.T) {
	platform := &fakePlatform{
		registerSources: []mediaplatform.AssetSource{{URL: "https://cdn.example/v.mp4", MimeType: "video/mp4"}},
	}
	store := newFakeSessionStore()
	svc := newTestService(platform, &fakeRecords{}, store)

	block := make(chan struct{})
	svc.transfer = func(target *mediaplatform.StagedTarget, filename, mimeType string, content []byte, onProgress func(int)) error {
		<-block
		return nil
	}

	first, err := svc.StartUpload(testRequest())
	if err != nil {
		t.Fatalf("First StartUpload failed: %v", err)
	}

	// Second start for the same shop must be rejected while the first runs.
	_, err = svc.StartUpload(testRequest())
	if !errors.Is(err, ErrSessionActive) {
		t.Errorf("Expected ErrSessionActive, got %v", err)
	}

	// A different shop is not affected by the slot.
	other := testRequest()
	other.Shop = "other.myshopify.com"
	otherRow, err := svc.StartUpload(other)
	if err != nil {
		t.Errorf("Different shop should start, got %v", err)
	}

	close(block)
	waitFinished(t, store, first.SessionId)
	waitFinished(t, store, otherRow.SessionId)

	// Slot released after the terminal state, a new session may start.
	if svc.HasActiveSession("demo.myshopify.com") {
		t.Error("Expected slot released after session finished")
	}
	again, err := svc.StartUpload(testRequest())
	if err != nil {
		t.Fatalf("Restart after finish failed: %v", err)
	}
	waitFinished(t, store, again.SessionId)
}

func TestPipeline_ImmediateSourcesSkipPolling(t *testing.T) {
	platform := &fakePlatform{
		registerSources: []mediaplatform.AssetSource{
			{URL: "https://cdn.example/v.webm", MimeType: "video/webm"},
			{URL: "https://cdn.example/v.mp4", MimeType: "video/mp4"},
		},
	}
	store := newFakeSessionStore()
	records := &fakeRecords{}
	svc := newTestService(platform, records, store)

	row, err := svc.StartUpload(testRequest())
	if err != nil {
		t.Fatalf("StartUpload failed: %v", err)
	}
	final := waitFinished(t, store, row.SessionId)

	if final.Stage != model.StageDone {
		t.Fatalf("Expected done, got %s (%s)", final.Stage, final.ErrorMessage)
	}
	if final.PollAttempt != 0 {
		t.Errorf("Expected pollAttempt 0 when sources arrive at registration, got %d", final.PollAttempt)
	}
	if n := atomic.LoadInt32(&platform.statusCalls); n != 0 {
		t.Errorf("Expected no status queries, got %d", n)
	}
	if final.VideoUrl != "https://cdn.example/v.mp4" {
		t.Errorf("Expected mp4 source preferred, got %s", final.VideoUrl)
	}
	if final.VideoId != 42 {
		t.Errorf("Expected video record id recorded, got %d", final.VideoId)
	}
	if n := atomic.LoadInt32(&records.calls); n != 1 {
		t.Errorf("Expected exactly one record creation, got %d", n)
	}
}

func TestPipeline_PollsUntilSourcesAppear(t *testing.T) {
	platform := &fakePlatform{
		statusFn: func(call int32) *mediaplatform.AssetStatus {
			if call < 3 {
				return &mediaplatform.AssetStatus{RawStatus: "PROCESSING"}
			}
			return &mediaplatform.AssetStatus{
				RawStatus: "READY",
				Sources:   []mediaplatform.AssetSource{{URL: "https://cdn.example/v.mp4", MimeType: "video/mp4"}},
			}
		},
	}
	store := newFakeSessionStore()
	svc := newTestService(platform, &fakeRecords{}, store)

	row, err := svc.StartUpload(testRequest())
	if err != nil {
		t.Fatalf("StartUpload failed: %v", err)
	}
	final := waitFinished(t, store, row.SessionId)

	if final.Stage != model.StageDone {
		t.Fatalf("Expected done, got %s (%s)", final.Stage, final.ErrorMessage)
	}
	if final.PollAttempt != 3 {
		t.Errorf("Expected pollAttempt 3, got %d", final.PollAttempt)
	}
	if final.VideoUrl != "https://cdn.example/v.mp4" {
		t.Errorf("Expected resolved source URL, got %s", final.VideoUrl)
	}
}

func TestPipeline_PollCeilingTimesOut(t *testing.T) {
	platform := &fakePlatform{} // never returns sources
	store := newFakeSessionStore()
	records := &fakeRecords{}
	svc := newTestService(platform, records, store)
	svc.SetPollPolicy(time.Millisecond, 5)

	row, err := svc.StartUpload(testRequest())
	if err != nil {
		t.Fatalf("StartUpload failed: %v", err)
	}
	final := waitFinished(t, store, row.SessionId)

	if final.Stage != model.StageFailed {
		t.Fatalf("Expected failed, got %s", final.Stage)
	}
	if final.ErrorKind != string(ErrKindTimeout) {
		t.Errorf("Expected timeout kind, got %s", final.ErrorKind)
	}
	if final.PollAttempt != 5 {
		t.Errorf("Expected pollAttempt at ceiling 5, got %d", final.PollAttempt)
	}
	if n := atomic.LoadInt32(&platform.statusCalls); n != 5 {
		t.Errorf("Expected exactly 5 status queries, got %d", n)
	}
	if n := atomic.LoadInt32(&records.calls); n != 0 {
		t.Errorf("Expected no record on timeout, got %d creations", n)
	}
}

func TestPipeline_StagingErrorFailsSession(t *testing.T) {
	platform := &fakePlatform{stagedErr: errors.New("file too large")}
	store := newFakeSessionStore()
	records := &fakeRecords{}
	svc := newTestService(platform, records, store)

	row, err := svc.StartUpload(testRequest())
	if err != nil {
		t.Fatalf("StartUpload failed: %v", err)
	}
	final := waitFinished(t, store, row.SessionId)

	if final.Stage != model.StageFailed {
		t.Fatalf("Expected failed, got %s", final.Stage)
	}
	if final.ErrorKind != string(ErrKindRemote) {
		t.Errorf("Expected remote kind, got %s", final.ErrorKind)
	}
	if n := atomic.LoadInt32(&records.calls); n != 0 {
		t.Errorf("Expected no record on staging failure, got %d creations", n)
	}
	if svc.HasActiveSession("demo.myshopify.com") {
		t.Error("Expected slot released after failure")
	}
}

func TestPipeline_RegistrationErrorFailsSession(t *testing.T) {
	platform := &fakePlatform{registerErr: errors.New("resource not found")}
	store := newFakeSessionStore()
	records := &fakeRecords{}
	svc := newTestService(platform, records, store)

	row, err := svc.StartUpload(testRequest())
	if err != nil {
		t.Fatalf("StartUpload failed: %v", err)
	}
	final := waitFinished(t, store, row.SessionId)

	if final.Stage != model.StageFailed {
		t.Fatalf("Expected failed, got %s", final.Stage)
	}
	if final.ErrorKind != string(ErrKindRemote) {
		t.Errorf("Expected remote kind, got %s", final.ErrorKind)
	}
	if n := atomic.LoadInt32(&platform.statusCalls); n != 0 {
		t.Errorf("Expected no status queries after registration failure, got %d", n)
	}
	if n := atomic.LoadInt32(&records.calls); n != 0 {
		t.Errorf("Expected no record on registration failure, got %d creations", n)
	}
}

func TestPipeline_PollErrorFailsImmediately(t *testing.T) {
	platform := &fakePlatform{statusErr: errors.New("bad gateway")}
	store := newFakeSessionStore()
	records := &fakeRecords{}
	svc := newTestService(platform, records, store)

	row, err := svc.StartUpload(testRequest())
	if err != nil {
		t.Fatalf("StartUpload failed: %v", err)
	}
	final := waitFinished(t, store, row.SessionId)

	if final.Stage != model.StageFailed {
		t.Fatalf("Expected failed, got %s", final.Stage)
	}
	if final.ErrorKind != string(ErrKindRemote) {
		t.Errorf("Expected remote kind, got %s", final.ErrorKind)
	}
	// The first transport error ends the session, no further rounds.
	if n := atomic.LoadInt32(&platform.statusCalls); n != 1 {
		t.Errorf("Expected exactly 1 status query, got %d", n)
	}
	if final.PollAttempt != 0 {
		t.Errorf("Expected no applied poll attempts, got %d", final.PollAttempt)
	}
	if n := atomic.LoadInt32(&records.calls); n != 0 {
		t.Errorf("Expected no record on poll failure, got %d creations", n)
	}
}

func TestPipeline_FinalizeErrorFailsSession(t *testing.T) {
	platform := &fakePlatform{
		registerSources: []mediaplatform.AssetSource{{URL: "https://cdn.example/v.mp4", MimeType: "video/mp4"}},
	}
	store := newFakeSessionStore()
	records := &fakeRecords{err: errors.New("duplicate entry")}
	svc := newTestService(platform, records, store)

	row, err := svc.StartUpload(testRequest())
	if err != nil {
		t.Fatalf("StartUpload failed: %v", err)
	}
	final := waitFinished(t, store, row.SessionId)

	if final.Stage != model.StageFailed {
		t.Fatalf("Expected failed, got %s", final.Stage)
	}
	if final.ErrorKind != string(ErrKindFinalize) {
		t.Errorf("Expected finalize kind, got %s", final.ErrorKind)
	}
	if svc.HasActiveSession("demo.myshopify.com") {
		t.Error("Expected slot released after finalize failure")
	}
}

func TestPipeline_TransferErrorCarriesStatus(t *testing.T) {
	platform := &fakePlatform{}
	store := newFakeSessionStore()
	svc := newTestService(platform, &fakeRecords{}, store)
	svc.transfer = func(target *mediaplatform.StagedTarget, filename, mimeType string, content []byte, onProgress func(int)) error {
		return &mediaplatform.HTTPStatusError{StatusCode: 403}
	}

	row, err := svc.StartUpload(testRequest())
	if err != nil {
		t.Fatalf("StartUpload failed: %v", err)
	}
	final := waitFinished(t, store, row.SessionId)

	if final.ErrorKind != string(ErrKindTransfer) {
		t.Errorf("Expected transfer kind, got %s", final.ErrorKind)
	}
	if n := atomic.LoadInt32(&platform.registerCalls); n != 0 {
		t.Errorf("Expected no registration after transfer failure, got %d", n)
	}
}

func TestPipeline_CancelStopsPolling(t *testing.T) {
	firstPoll := make(chan struct{})
	var once sync.Once
	platform := &fakePlatform{
		statusFn: func(call int32) *mediaplatform.AssetStatus {
			once.Do(func() { close(firstPoll) })
			return &mediaplatform.AssetStatus{RawStatus: "PROCESSING"}
		},
	}
	store := newFakeSessionStore()
	records := &fakeRecords{}
	svc := newTestService(platform, records, store)

	row, err := svc.StartUpload(testRequest())
	if err != nil {
		t.Fatalf("StartUpload failed: %v", err)
	}

	<-firstPoll
	if err := svc.Cancel("demo.myshopify.com", row.SessionId); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	final := waitFinished(t, store, row.SessionId)
	if final.Stage != model.StageFailed {
		t.Fatalf("Expected failed, got %s", final.Stage)
	}
	if final.ErrorKind != string(ErrKindCanceled) {
		t.Errorf("Expected canceled kind, got %s", final.ErrorKind)
	}
	if n := atomic.LoadInt32(&records.calls); n != 0 {
		t.Errorf("Expected no record after cancel, got %d creations", n)
	}

	// No further polls once the session is terminal.
	callsAtFinish := atomic.LoadInt32(&platform.statusCalls)
	time.Sleep(20 * time.Millisecond)
	if n := atomic.LoadInt32(&platform.statusCalls); n != callsAtFinish {
		t.Errorf("Polling continued after cancel: %d -> %d", callsAtFinish, n)
	}
}

func TestCancel_FinishedSessionIsNoop(t *testing.T) {
	platform := &fakePlatform{
		registerSources: []mediaplatform.AssetSource{{URL: "https://cdn.example/v.mp4", MimeType: "video/mp4"}},
	}
	store := newFakeSessionStore()
	svc := newTestService(platform, &fakeRecords{}, store)

	row, err := svc.StartUpload(testRequest())
	if err != nil {
		t.Fatalf("StartUpload failed: %v", err)
	}
	waitFinished(t, store, row.SessionId)

	if err := svc.Cancel("demo.myshopify.com", row.SessionId); err != nil {
		t.Errorf("Cancel on finished session should be a no-op, got %v", err)
	}
	final, _ := store.GetBySessionID(row.SessionId)
	if final.Stage != model.StageDone {
		t.Errorf("Finished session must stay done, got %s", final.Stage)
	}
}

func TestListSessions_Pagination(t *testing.T) {
	store := newFakeSessionStore()
	svc := newTestService(&fakePlatform{}, &fakeRecords{}, store)

	for i := 1; i <= 5; i++ {
		err := store.Create(&model.UploadSession{
			SessionId: fmt.Sprintf("us_%d", i),
			Shop:      "demo.myshopify.com",
			Stage:     model.StageDone,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Create(&model.UploadSession{SessionId: "us_other", Shop: "other.myshopify.com"}); err != nil {
		t.Fatal(err)
	}

	// First page, newest first.
	page, cursor, hasMore, err := svc.ListSessions("demo.myshopify.com", 0, 2)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(page) != 2 || page[0].ID != 5 || page[1].ID != 4 {
		t.Fatalf("Expected rows [5 4], got %d rows", len(page))
	}
	if !hasMore {
		t.Error("Expected more pages after the first")
	}
	if cursor != 4 {
		t.Errorf("Expected cursor 4, got %d", cursor)
	}

	// Middle page still reports more.
	page, cursor, hasMore, err = svc.ListSessions("demo.myshopify.com", cursor, 2)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(page) != 2 || page[0].ID != 3 || page[1].ID != 2 {
		t.Fatalf("Expected rows [3 2], got %d rows", len(page))
	}
	if !hasMore {
		t.Error("Expected more pages after the second")
	}

	// Short last page.
	page, _, hasMore, err = svc.ListSessions("demo.myshopify.com", cursor, 2)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(page) != 1 || page[0].ID != 1 {
		t.Fatalf("Expected row [1], got %d rows", len(page))
	}
	if hasMore {
		t.Error("Expected no more pages after the last row")
	}

	// A page that consumes the remaining rows exactly is still the last page.
	page, _, hasMore, err = svc.ListSessions("demo.myshopify.com", 0, 5)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(page) != 5 {
		t.Fatalf("Expected 5 rows, got %d", len(page))
	}
	if hasMore {
		t.Error("Expected no more pages when the page holds every row")
	}
}

func TestSequenceGuard_RejectsDuplicateAndStale(t *testing.T) {
	ps := &pipelineSession{cancelCh: make(chan struct{})}

	seq1 := ps.dispatch()
	seq2 := ps.dispatch()

	// Newest result lands first.
	if !ps.applyResult(seq2) {
		t.Error("Expected newest sequence to apply")
	}

	// The same response delivered twice must not apply again.
	if ps.applyResult(seq2) {
		t.Error("Expected duplicate delivery to be rejected")
	}

	// A replay from a stale closure carries an older sequence.
	if ps.applyResult(seq1) {
		t.Error("Expected stale sequence to be rejected")
	}

	// The guard compares values, not identity: a later dispatch still applies.
	seq3 := ps.dispatch()
	if !ps.applyResult(seq3) {
		t.Error("Expected later sequence to apply after rejections")
	}
}

func TestSetProgress_MonotonicAndClamped(t *testing.T) {
	store := newFakeSessionStore()
	row := &model.UploadSession{SessionId: "us_test", Shop: "demo.myshopify.com"}
	if err := store.Create(row); err != nil {
		t.Fatal(err)
	}

	svc := newTestService(&fakePlatform{}, &fakeRecords{}, store)
	ps := &pipelineSession{svc: svc, row: row, cancelCh: make(chan struct{})}

	ps.setProgress(50)
	ps.setProgress(30) // stale callback, must not move backwards
	if row.Progress != 50 {
		t.Errorf("Expected progress 50 after stale update, got %d", row.Progress)
	}

	ps.setProgress(80)
	ps.setProgress(130)
	if row.Progress != 100 {
		t.Errorf("Expected progress clamped to 100, got %d", row.Progress)
	}
}

func TestValidateFile(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		byteSize int64
		wantErr  bool
	}{
		{"mp4 ok", "video/mp4", 1024, false},
		{"webm ok", "video/webm", MaxUploadBytes, false},
		{"image rejected", "image/png", 1024, true},
		{"empty mime rejected", "", 1024, true},
		{"zero size rejected", "video/mp4", 0, true},
		{"oversize rejected", "video/mp4", MaxUploadBytes + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFile(tt.mimeType, tt.byteSize)
			if tt.wantErr && err == nil {
				t.Error("Expected error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}
