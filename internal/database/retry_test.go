package database_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madebyarthouse/rental-monitor-sub000/internal/database"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/logger"
)

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "serialization failure", err: &pq.Error{Code: "40001"}, want: true},
		{name: "deadlock detected", err: &pq.Error{Code: "40P01"}, want: true},
		{name: "lock not available", err: &pq.Error{Code: "55P03"}, want: true},
		{name: "unique violation", err: &pq.Error{Code: "23505", Message: "duplicate key"}, want: false},
		{name: "wrapped pq error", err: fmt.Errorf("apply batch: %w", &pq.Error{Code: "40P01"}), want: true},
		{name: "deadlock by message", err: errors.New("deadlock detected while waiting"), want: true},
		{name: "lock timeout by message", err: errors.New("canceling statement due to lock timeout"), want: true},
		{name: "plain failure", err: errors.New("connection refused"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, database.IsRetryable(tt.err))
		})
	}
}

func TestWithRetry_SucceedsAfterContention(t *testing.T) {
	t.Parallel()

	attempts := 0
	err := database.WithRetry(context.Background(), logger.NewNoOp(), "test write", func() error {
		attempts++
		if attempts < 3 {
			return &pq.Error{Code: "40001"}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetry_NonRetryableFailsImmediately(t *testing.T) {
	t.Parallel()

	permanent := errors.New("relation does not exist")

	attempts := 0
	err := database.WithRetry(context.Background(), logger.NewNoOp(), "test write", func() error {
		attempts++
		return permanent
	})

	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	attempts := 0
	err := database.WithRetry(context.Background(), logger.NewNoOp(), "test write", func() error {
		attempts++
		return &pq.Error{Code: "40P01"}
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, err.Error(), "failed after 3 attempts")

	var pqErr *pq.Error
	assert.ErrorAs(t, err, &pqErr, "last driver error stays unwrappable")
}

func TestWithRetry_ContextCanceledDuringBackoff(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := database.WithRetry(ctx, logger.NewNoOp(), "test write", func() error {
		attempts++
		cancel()
		return &pq.Error{Code: "40001"}
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, context.Canceled)
}
