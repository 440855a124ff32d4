package upload_service

import (
	"errors"
	"log"
	"sync"
	"time"

	"ugc-video-service/mediaplatform"
	"ugc-video-service/model"
	"ugc-video-service/service/video_service"
)

// pipelineSession is one in-flight run of the ingestion pipeline. A single
// goroutine drives the stages in strict order; cancellation and result
// sequencing guard against late deliveries acting on a session that moved on.
type pipelineSession struct {
	svc     *UploadService
	request *StartUploadRequest
	row     *model.UploadSession

	cancelOnce sync.Once
	cancelCh   chan struct{}

	mu          sync.Mutex
	nextSeq     uint64 // next sequence number handed out at dispatch
	lastApplied uint64 // highest sequence whose result was accepted
}

func (ps *pipelineSession) cancel() {
	ps.cancelOnce.Do(func() {
		close(ps.cancelCh)
	})
}

func (ps *pipelineSession) canceled() bool {
	select {
	case <-ps.cancelCh:
		return true
	default:
		return false
	}
}

// waitOrCancel sleeps for d, returning early with true when canceled.
func (ps *pipelineSession) waitOrCancel(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ps.cancelCh:
		return true
	case <-timer.C:
		return false
	}
}

// dispatch hands out the sequence number for one remote call.
func (ps *pipelineSession) dispatch() uint64 {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.nextSeq++
	return ps.nextSeq
}

// applyResult accepts a remote result only when its sequence number is
// strictly greater than the last applied one. Duplicate deliveries and replays
// from stale closures both fail the comparison and are discarded.
func (ps *pipelineSession) applyResult(seq uint64) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if seq <= ps.lastApplied {
		return false
	}
	ps.lastApplied = seq
	return true
}

// run executes the pipeline and records the terminal state.
func (ps *pipelineSession) run() {
	defer ps.svc.release(ps.row.Shop)

	video, err := ps.execute()
	now := time.Now()

	if err != nil {
		kind := KindOf(err)
		if kind == "" {
			kind = ErrKindRemote
		}
		ps.row.Stage = model.StageFailed
		ps.row.ErrorKind = string(kind)
		ps.row.ErrorMessage = err.Error()
		ps.row.FinishedAt = &now
		ps.persistRow()
		log.Printf("[Upload] Session %s failed (%s): %v", ps.row.SessionId, kind, err)
		return
	}

	ps.row.Stage = model.StageDone
	ps.row.VideoId = video.ID
	ps.row.FinishedAt = &now
	ps.persistRow()
	log.Printf("[Upload] Session %s done, video record %d created", ps.row.SessionId, video.ID)
}

// execute drives Staging -> Transfer -> Registration -> [Poll]* -> Finalize.
// Any error is terminal; there are no retries and no partial records.
func (ps *pipelineSession) execute() (*model.UgcVideo, error) {
	// Staging
	ps.setStage(model.StageStaging)
	target, err := ps.svc.platform.RequestStagedUpload(ps.request.FileName, ps.request.MimeType, ps.request.FileSize)
	if err != nil {
		return nil, remoteError("staged upload negotiation failed", err)
	}
	if ps.canceled() {
		return nil, canceledError()
	}

	// Transfer
	ps.setStage(model.StageUploading)
	err = ps.svc.transfer(target, ps.request.FileName, ps.request.MimeType, ps.request.Content, ps.setProgress)
	if err != nil {
		var statusErr *mediaplatform.HTTPStatusError
		if errors.As(err, &statusErr) {
			return nil, transferError(statusErr.StatusCode, err)
		}
		return nil, transferError(0, err)
	}
	if ps.canceled() {
		return nil, canceledError()
	}

	// Registration
	ps.setStage(model.StageCreating)
	asset, err := ps.svc.platform.RegisterAsset(target.ResourceURL)
	if err != nil {
		return nil, remoteError("asset registration failed", err)
	}
	ps.row.AssetId = asset.AssetID
	ps.persistRow()
	if ps.canceled() {
		return nil, canceledError()
	}

	videoURL := ""
	thumbnailURL := asset.ThumbnailURL

	// Registration may already carry processed sources; polling is skipped
	// entirely then and pollAttempt stays 0.
	if src := mediaplatform.PickPlaybackSource(asset.Sources); src != nil {
		videoURL = src.URL
	} else {
		ps.setStage(model.StagePolling)
		videoURL, thumbnailURL, err = ps.poll(asset.AssetID)
		if err != nil {
			return nil, err
		}
	}

	// Finalize
	ps.setStage(model.StageFinalizing)
	ps.row.VideoUrl = videoURL
	ps.row.ThumbnailUrl = thumbnailURL
	ps.persistRow()

	video, err := ps.svc.records.CreateVideo(ps.row.Shop, video_service.CreateVideoInput{
		Title:        ps.request.Title,
		Description:  ps.request.Description,
		VideoUrl:     videoURL,
		ThumbnailUrl: thumbnailURL,
		Duration:     ps.request.Duration,
		SourceAuthor: ps.request.SourceAuthor,
		SourceType:   ps.request.SourceType,
		ProductId:    ps.request.ProductId,
	})
	if err != nil {
		return nil, finalizeError(err)
	}
	return video, nil
}

// poll waits for the platform to finish processing the asset. Each round
// sleeps the poll interval first, so the first query also runs after one full
// interval. The cancel flag is checked before dispatching a round and again
// before acting on its result; an in-flight query is never aborted.
func (ps *pipelineSession) poll(assetID string) (videoURL, thumbnailURL string, err error) {
	for attempt := 1; attempt <= ps.svc.pollMaxAttempts; attempt++ {
		if ps.waitOrCancel(ps.svc.pollInterval) {
			return "", "", canceledError()
		}

		seq := ps.dispatch()
		status, err := ps.svc.platform.GetAssetStatus(assetID)

		if ps.canceled() {
			return "", "", canceledError()
		}
		if err != nil {
			return "", "", remoteError("asset status query failed", err)
		}
		if !ps.applyResult(seq) {
			// Stale or duplicate delivery, drop it and move on.
			continue
		}

		ps.row.PollAttempt = attempt
		ps.persistRow()

		if src := mediaplatform.PickPlaybackSource(status.Sources); src != nil {
			thumb := status.ThumbnailURL
			if thumb == "" {
				thumb = ps.row.ThumbnailUrl
			}
			return src.URL, thumb, nil
		}
	}
	return "", "", timeoutError(ps.svc.pollMaxAttempts)
}

// setStage advances the session's stage token and persists it.
func (ps *pipelineSession) setStage(stage model.SessionStage) {
	ps.row.Stage = stage
	ps.persistRow()
	log.Printf("[Upload] Session %s -> %s", ps.row.SessionId, stage)
}

// setProgress records transfer progress. Only the transfer stage reports
// percentages and they never go backwards.
func (ps *pipelineSession) setProgress(percent int) {
	if percent < ps.row.Progress {
		return
	}
	if percent > 100 {
		percent = 100
	}
	ps.row.Progress = percent
	ps.persistRow()
}

func (ps *pipelineSession) persistRow() {
	if err := ps.svc.sessions.Update(ps.row); err != nil {
		log.Printf("[Upload] Failed to persist session %s: %v", ps.row.SessionId, err)
	}
}
