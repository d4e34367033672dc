package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/knowledgevault/api/internal/model"
	"gorm.io/gorm"
)

// Revoked rows are kept for a while after revocation so a replayed
// token is still distinguishable from a never-issued one in the logs.
const revokedRetention = 30 * 24 * time.Hour

// TokenCleanupScheduler periodically purges refresh tokens that can
// never validate again: expired rows, and revoked rows past retention.
type TokenCleanupScheduler struct {
	db       *gorm.DB
	interval time.Duration

	mu       sync.Mutex
	running  bool
	lastRun  time.Time
	purged   int64
	stopChan chan struct{}
}

func NewTokenCleanupScheduler(db *gorm.DB, interval time.Duration) *TokenCleanupScheduler {
	if interval == 0 {
		interval = time.Hour
	}
	return &TokenCleanupScheduler{
		db:       db,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

func (s *TokenCleanupScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	log.Printf("[TokenCleanup] Starting with interval %v", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[TokenCleanup] Context cancelled, stopping")
			return
		case <-s.stopChan:
			log.Println("[TokenCleanup] Stop signal received")
			return
		case <-ticker.C:
			s.runOnce()
		}
	}
}

func (s *TokenCleanupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		close(s.stopChan)
		s.running = false
		log.Println("[TokenCleanup] Stopped")
	}
}

func (s *TokenCleanupScheduler) runOnce() {
	now := time.Now().UTC()

	result := s.db.
		Where("expires_at < ? OR (is_revoked = ? AND updated_at < ?)", now, true, now.Add(-revokedRetention)).
		Delete(&model.RefreshToken{})
	if result.Error != nil {
		log.Printf("[TokenCleanup] Purge failed: %v", result.Error)
		return
	}

	s.mu.Lock()
	s.lastRun = now
	s.purged += result.RowsAffected
	s.mu.Unlock()

	if result.RowsAffected > 0 {
		log.Printf("[TokenCleanup] Purged %d dead refresh tokens", result.RowsAffected)
	}
}

// GetStatus reports scheduler state for the status endpoint.
func (s *TokenCleanupScheduler) GetStatus() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := map[string]interface{}{
		"enabled":      s.running,
		"interval":     s.interval.String(),
		"total_purged": s.purged,
	}
	if !s.lastRun.IsZero() {
		status["last_run"] = s.lastRun
	}
	return status
}
