package services

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/mealsync/server/internal/models"
)

func TestBackoffDoubles(t *testing.T) {
	policy := NewRetryPolicy()

	tests := []struct {
		retryCount int
		want       time.Duration
	}{
		{0, 1 * time.Minute},
		{1, 2 * time.Minute},
		{2, 4 * time.Minute},
		{3, 8 * time.Minute},
		{10, 1024 * time.Minute},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, policy.BackoffFor(tt.retryCount), "retryCount=%d", tt.retryCount)
	}
}

func TestShouldRetry(t *testing.T) {
	policy := NewRetryPolicy()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	lastSync := func(ago time.Duration) *time.Time {
		ts := now.Add(-ago)
		return &ts
	}

	tests := []struct {
		name   string
		status *models.SyncStatus
		want   bool
	}{
		{
			name:   "never attempted",
			status: &models.SyncStatus{Status: models.SyncStatePending, RetryCount: 0},
			want:   true,
		},
		{
			name:   "backoff not elapsed",
			status: &models.SyncStatus{Status: models.SyncStateFailed, RetryCount: 2, LastSyncAt: lastSync(3 * time.Minute)},
			want:   false,
		},
		{
			name:   "backoff elapsed",
			status: &models.SyncStatus{Status: models.SyncStateFailed, RetryCount: 2, LastSyncAt: lastSync(5 * time.Minute)},
			want:   true,
		},
		{
			name:   "backoff exactly elapsed",
			status: &models.SyncStatus{Status: models.SyncStateFailed, RetryCount: 2, LastSyncAt: lastSync(4 * time.Minute)},
			want:   true,
		},
		{
			name:   "at retry ceiling",
			status: &models.SyncStatus{Status: models.SyncStateFailed, RetryCount: 10, LastSyncAt: lastSync(24 * time.Hour)},
			want:   false,
		},
		{
			name:   "past retry ceiling",
			status: &models.SyncStatus{Status: models.SyncStateFailed, RetryCount: 15, LastSyncAt: lastSync(24 * time.Hour)},
			want:   false,
		},
		{
			name:   "synced is not retryable",
			status: &models.SyncStatus{Status: models.SyncStateSynced, RetryCount: 0},
			want:   false,
		},
		{
			name:   "removed is not retryable",
			status: &models.SyncStatus{Status: models.SyncStateRemoved, RetryCount: 0},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.ShouldRetry(tt.status, now))
		})
	}
}

func TestTruncateError(t *testing.T) {
	short := "connection refused"
	assert.Equal(t, short, TruncateError(short))

	exactly := strings.Repeat("x", 500)
	assert.Equal(t, exactly, TruncateError(exactly))

	long := strings.Repeat("x", 501)
	truncated := TruncateError(long)
	assert.Len(t, truncated, 500)
	assert.Equal(t, strings.Repeat("x", 497)+"...", truncated)

	// the cut never splits a multibyte rune
	wide := strings.Repeat("é", 300)
	truncated = TruncateError(wide)
	assert.True(t, utf8.ValidString(truncated))
	assert.LessOrEqual(t, len(truncated), 500)
	assert.True(t, strings.HasSuffix(truncated, "..."))
}
