package cron

import (
	"context"
	"log"
	"time"

	"github.com/haru-album/pocket-backend/internal/repository"
	"github.com/robfig/cron/v3"
)

// Scheduler handles scheduled tasks
type Scheduler struct {
	cron     *cron.Cron
	userRepo repository.UserRepository
}

// NewScheduler creates a new scheduler
func NewScheduler(userRepo repository.UserRepository) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		userRepo: userRepo,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	// Purge expired refresh tokens - Run every day at 3 AM
	s.cron.AddFunc("0 3 * * *", func() {
		log.Println("[Cron] Running refresh token cleanup...")
		s.cleanupExpiredRefreshTokens()
	})

	s.cron.Start()
	log.Println("[Cron] Scheduler started")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[Cron] Scheduler stopped")
}

func (s *Scheduler) cleanupExpiredRefreshTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deleted, err := s.userRepo.DeleteExpiredRefreshTokens(ctx)
	if err != nil {
		log.Printf("[Cron] Error cleaning up refresh tokens: %v", err)
		return
	}

	if deleted > 0 {
		log.Printf("[Cron] 🧹 Deleted %d expired refresh token(s)", deleted)
	}
}
