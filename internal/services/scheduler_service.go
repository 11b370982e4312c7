package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

const sweepLockTTL = 30 * time.Minute

// SchedulerService runs the periodic context sweep: every ContextSweepHours
// it re-synthesizes the business context for users with recent module
// activity, so stored snapshots never drift far behind.
type SchedulerService struct {
	scheduler    gocron.Scheduler
	store        ModuleStore
	refresher    contextRefresher
	redisService *RedisService
	instanceID   string
	sweepEvery   time.Duration
}

// NewSchedulerService creates the sweep scheduler. redisService may be nil;
// without it the sweep runs unconditionally on every instance.
func NewSchedulerService(store ModuleStore, refresher contextRefresher, redisService *RedisService, sweepEvery time.Duration) (*SchedulerService, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &SchedulerService{
		scheduler:    scheduler,
		store:        store,
		refresher:    refresher,
		redisService: redisService,
		instanceID:   uuid.New().String(),
		sweepEvery:   sweepEvery,
	}, nil
}

// Start registers the sweep job and starts the scheduler
func (s *SchedulerService) Start() error {
	log.Println("⏰ Starting scheduler service...")

	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.sweepEvery),
		gocron.NewTask(func() {
			s.runContextSweep()
		}),
		gocron.WithName("context-sweep"),
	)
	if err != nil {
		return fmt.Errorf("failed to register context sweep: %w", err)
	}

	s.scheduler.Start()
	log.Printf("✅ Scheduler started (sweep every %s, instance: %s)", s.sweepEvery, s.instanceID)
	return nil
}

// Stop gracefully shuts down the scheduler
func (s *SchedulerService) Stop() error {
	log.Println("🛑 Stopping scheduler service...")
	return s.scheduler.Shutdown()
}

// runContextSweep refreshes snapshots for users active within the last
// sweep window. A Redis lock keeps multi-instance deployments from
// sweeping the same window twice.
func (s *SchedulerService) runContextSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if s.redisService != nil {
		acquired, err := s.redisService.SetNX(ctx, "lock:context-sweep", s.instanceID, sweepLockTTL)
		if err != nil {
			log.Printf("⚠️ [SWEEP] Failed to acquire sweep lock: %v", err)
			return
		}
		if !acquired {
			log.Println("⏭️ [SWEEP] Another instance holds the sweep lock, skipping")
			return
		}
		defer func() {
			if err := s.redisService.Delete(ctx, "lock:context-sweep"); err != nil {
				log.Printf("⚠️ [SWEEP] Failed to release sweep lock: %v", err)
			}
		}()
	}

	since := time.Now().UTC().Add(-s.sweepEvery)
	userIDs, err := s.store.RecentlyActiveUsers(ctx, since)
	if err != nil {
		log.Printf("⚠️ [SWEEP] Failed to list recently active users: %v", err)
		return
	}

	refreshed := 0
	for _, userID := range userIDs {
		changed, err := s.refresher.RefreshUserContext(ctx, userID)
		if err != nil {
			log.Printf("⚠️ [SWEEP] Context refresh failed for user %s: %v", userID, err)
			continue
		}
		if changed {
			refreshed++
		}
	}

	log.Printf("🧹 [SWEEP] Context sweep done: %d users checked, %d snapshots refreshed", len(userIDs), refreshed)
}
