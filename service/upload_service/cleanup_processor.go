package upload_service

import (
	"log"
	"time"
)

// CleanupProcessor periodically deletes finished session rows past retention.
type CleanupProcessor struct {
	uploadService *UploadService
	stopChan      chan struct{}
	interval      time.Duration
	batchSize     int
	retention     time.Duration // done/failed rows older than this are removed
}

// NewCleanupProcessor create cleanup processor
func NewCleanupProcessor(uploadService *UploadService, interval, retention time.Duration) *CleanupProcessor {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &CleanupProcessor{
		uploadService: uploadService,
		stopChan:      make(chan struct{}),
		interval:      interval,
		batchSize:     100,
		retention:     retention,
	}
}

// Start launches the cleanup loop.
func (cp *CleanupProcessor) Start() {
	log.Println("Cleanup processor started")
	go cp.run()
}

// Stop stops the cleanup loop.
func (cp *CleanupProcessor) Stop() {
	log.Println("Stopping cleanup processor...")
	close(cp.stopChan)
}

func (cp *CleanupProcessor) run() {
	ticker := time.NewTicker(cp.interval)
	defer ticker.Stop()

	// Run once at startup
	cp.cleanupFinishedSessions()

	for {
		select {
		case <-cp.stopChan:
			log.Println("Cleanup processor stopped")
			return
		case <-ticker.C:
			cp.cleanupFinishedSessions()
		}
	}
}

func (cp *CleanupProcessor) cleanupFinishedSessions() {
	beforeTime := time.Now().Add(-cp.retention)

	deleted, err := cp.uploadService.sessions.DeleteFinishedBefore(beforeTime, cp.batchSize)
	if err != nil {
		log.Printf("Failed to cleanup finished sessions: %v", err)
		return
	}

	if deleted > 0 {
		log.Printf("Cleaned up %d finished upload sessions (before: %s)",
			deleted, beforeTime.Format(time.RFC3339))
	}
}
