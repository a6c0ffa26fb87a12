package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/madebyarthouse/rental-monitor-sub000/internal/logger"
)

const (
	// maxWriteAttempts bounds retries of a contended write.
	maxWriteAttempts = 3
	// retryBackoffBase is multiplied by the attempt number between retries.
	retryBackoffBase = 100 * time.Millisecond
)

// Postgres error codes classified as transient contention.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// WithRetry runs fn, retrying up to maxWriteAttempts times with linearly
// increasing backoff when the error classifies as transient lock
// contention. Any other error propagates immediately and aborts the
// enclosing job.
func WithRetry(ctx context.Context, log logger.Interface, operation string, fn func() error) error {
	var err error

	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		if !IsRetryable(err) {
			return err
		}

		log.Warn("retrying contended write",
			"operation", operation,
			"attempt", attempt,
			"max_attempts", maxWriteAttempts,
			"error", err.Error(),
		)

		if attempt == maxWriteAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s interrupted: %w", operation, ctx.Err())
		case <-time.After(time.Duration(attempt) * retryBackoffBase):
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, maxWriteAttempts, err)
}

// IsRetryable classifies an error as transient lock/busy contention.
// It prefers the driver's typed error codes and falls back to message
// matching for errors the driver does not type.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "lock timeout") ||
		strings.Contains(msg, "could not obtain lock") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "busy")
}
