package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mealsync/server/internal/models"
	"github.com/mealsync/server/internal/observability"
	"github.com/mealsync/server/internal/repository"
)

// RetryScheduler periodically sweeps all users' pending and failed rows
// and re-attempts the ones whose backoff has elapsed. The sweep always
// completes; per-item and per-user errors are logged, never raised.
type RetryScheduler struct {
	manager  *SyncManager
	status   repository.SyncStatusRepo
	itemRepo repository.PlannedItemRepo
	policy   *RetryPolicy
	cron     *cron.Cron
	interval time.Duration
	metrics  *observability.SyncMetrics
	logger   *observability.Logger
}

// NewRetryScheduler creates a RetryScheduler sweeping at the given interval
func NewRetryScheduler(
	manager *SyncManager,
	status repository.SyncStatusRepo,
	itemRepo repository.PlannedItemRepo,
	policy *RetryPolicy,
	interval time.Duration,
) *RetryScheduler {
	return &RetryScheduler{
		manager:  manager,
		status:   status,
		itemRepo: itemRepo,
		policy:   policy,
		cron:     cron.New(),
		interval: interval,
		logger:   observability.GetLogger().WithField("component", "retry_scheduler"),
	}
}

// SetMetrics attaches the sync metrics instruments
func (s *RetryScheduler) SetMetrics(metrics *observability.SyncMetrics) {
	s.metrics = metrics
}

// Start begins the periodic sweep
func (s *RetryScheduler) Start() error {
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		result := s.RunSweep(context.Background())
		if result.Retried > 0 || result.Skipped > 0 {
			s.logger.WithFields(map[string]interface{}{
				"retried": result.Retried,
				"skipped": result.Skipped,
			}).Info("retry sweep complete")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule retry sweep: %w", err)
	}
	s.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish
func (s *RetryScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// RunSweep executes one pass over every user with retryable rows
func (s *RetryScheduler) RunSweep(ctx context.Context) *models.SweepResult {
	result := &models.SweepResult{}
	now := time.Now().UTC()

	userIDs, err := s.status.ListUserIDsWithRetryable(ctx)
	if err != nil {
		s.logger.Errorf("failed to list users for retry sweep: %v", err)
		return result
	}

	for _, userID := range userIDs {
		s.sweepUser(ctx, userID, now, result)
	}
	s.metrics.RecordSweep(ctx, result.Retried, result.Skipped)
	return result
}

func (s *RetryScheduler) sweepUser(ctx context.Context, userID string, now time.Time, result *models.SweepResult) {
	statuses, err := s.status.ListRetryable(ctx, userID)
	if err != nil {
		s.logger.WithField("user_id", userID).Errorf("failed to list retryable rows: %v", err)
		return
	}

	for _, status := range statuses {
		if !s.policy.ShouldRetry(status, now) {
			result.Skipped++
			continue
		}

		item, err := s.itemRepo.GetByID(ctx, status.ItemID)
		if err != nil {
			s.logger.WithField("item_id", status.ItemID).Errorf("failed to resolve item: %v", err)
			result.Skipped++
			continue
		}
		if item == nil {
			// item is gone but the row was never tombstoned; leave it
			// for the next pass rather than guessing
			result.Skipped++
			continue
		}

		err = s.manager.SyncPlannedItem(ctx, requestFromItem(item))
		if errors.Is(err, ErrNotConfigured) {
			// config was removed or disabled since the row was listed
			result.Skipped++
			continue
		}
		if err != nil {
			s.logger.WithField("item_id", status.ItemID).Warnf("retry attempt failed: %v", err)
		}
		result.Retried++
	}
}
