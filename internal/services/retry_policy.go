package services

import (
	"time"
	"unicode/utf8"

	"github.com/mealsync/server/internal/models"
)

const (
	// MaxRetryCount is the attempt ceiling after which an item is left
	// failed until a manual retry resets it.
	MaxRetryCount = 10

	// MaxErrorMessageLength bounds the stored error text
	MaxErrorMessageLength = 500
)

// RetryPolicy decides when a failed or pending item is due for another
// sync attempt. Backoff doubles with every failure.
type RetryPolicy struct{}

// NewRetryPolicy creates a RetryPolicy
func NewRetryPolicy() *RetryPolicy {
	return &RetryPolicy{}
}

// BackoffFor returns the wait before attempt retryCount+1, doubling from
// one minute: 1m after the first failure, 2m after the second, and so on.
func (p *RetryPolicy) BackoffFor(retryCount int) time.Duration {
	return time.Duration(1<<uint(retryCount)) * time.Minute
}

// ShouldRetry reports whether the status row is due for another attempt.
// Rows at or past MaxRetryCount are never due. A row that has never been
// attempted (no lastSyncAt) is always due.
func (p *RetryPolicy) ShouldRetry(status *models.SyncStatus, now time.Time) bool {
	if !status.IsRetryable() {
		return false
	}
	if status.RetryCount >= MaxRetryCount {
		return false
	}
	if status.LastSyncAt == nil {
		return true
	}
	return !now.Before(status.LastSyncAt.Add(p.BackoffFor(status.RetryCount)))
}

// TruncateError bounds an error message for storage. Messages over
// MaxErrorMessageLength keep their first 497 bytes plus "...", backing
// off to a rune boundary so the stored text stays valid UTF-8.
func TruncateError(message string) string {
	if len(message) <= MaxErrorMessageLength {
		return message
	}
	cut := MaxErrorMessageLength - 3
	for cut > 0 && !utf8.RuneStart(message[cut]) {
		cut--
	}
	return message[:cut] + "..."
}
