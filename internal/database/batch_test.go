package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madebyarthouse/rental-monitor-sub000/internal/database"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/domain"
	"github.com/madebyarthouse/rental-monitor-sub000/internal/logger"
)

func newBatchWriter(t *testing.T) (*database.BatchWriter, sqlmock.Sqlmock, func()) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db := sqlx.NewDb(mockDB, "postgres")
	writer := database.NewBatchWriter(db, logger.NewNoOp())

	return writer, mock, func() { mockDB.Close() }
}

func newDiscoveredListing(seenAt time.Time) *domain.Listing {
	return &domain.Listing{
		Title:              "Helle 2-Zimmer-Wohnung",
		Price:              1234.56,
		Platform:           "willhaben",
		URL:                "https://www.willhaben.at/iad/immobilien/d/901234567",
		ExternalID:         "901234567",
		FirstSeenAt:        seenAt,
		LastSeenAt:         seenAt,
		IsActive:           true,
		VerificationStatus: domain.VerificationActive,
	}
}

func TestApply_EmptyBatchTouchesNothing(t *testing.T) {
	t.Parallel()

	writer, mock, cleanup := newBatchWriter(t)
	defer cleanup()

	err := writer.Apply(context.Background(), database.NewBatch())
	require.NoError(t, err)

	expectationsMet(t, mock)
}

func TestApply_SingleTransaction(t *testing.T) {
	t.Parallel()

	writer, mock, cleanup := newBatchWriter(t)
	defer cleanup()

	seenAt := time.Date(2025, 11, 4, 10, 0, 0, 0, time.UTC)
	listing := newDiscoveredListing(seenAt)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE listings").
		WithArgs(pq.Array([]string{"uuid-known"}), seenAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO listings").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("uuid-new"))
	mock.ExpectExec("INSERT INTO price_history").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	batch := database.NewBatch()
	batch.TouchListings([]string{"uuid-known"}, seenAt)
	batch.UpsertListing(listing)
	batch.AppendPriceHistory(listing, listing.Price, seenAt)

	err := writer.Apply(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, "uuid-new", listing.ID, "generated row id is written back")

	expectationsMet(t, mock)
}

func TestApply_RetriesOnDeadlock(t *testing.T) {
	t.Parallel()

	writer, mock, cleanup := newBatchWriter(t)
	defer cleanup()

	seenAt := time.Date(2025, 11, 4, 10, 0, 0, 0, time.UTC)

	// First attempt hits a deadlock and rolls back, second succeeds.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE listings").
		WillReturnError(&pq.Error{Code: "40P01", Message: "deadlock detected"})
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE listings").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	batch := database.NewBatch()
	batch.SweepUpdate("uuid-1", 900, seenAt)

	err := writer.Apply(context.Background(), batch)
	require.NoError(t, err)

	expectationsMet(t, mock)
}

func TestApply_PermanentErrorRollsBack(t *testing.T) {
	t.Parallel()

	writer, mock, cleanup := newBatchWriter(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE listings").
		WillReturnError(&pq.Error{Code: "42P01", Message: "relation does not exist"})
	mock.ExpectRollback()

	batch := database.NewBatch()
	batch.MarkVerified("uuid-1", time.Now().UTC())

	err := writer.Apply(context.Background(), batch)
	require.Error(t, err)

	expectationsMet(t, mock)
}

func TestApply_NotFoundTransition(t *testing.T) {
	t.Parallel()

	writer, mock, cleanup := newBatchWriter(t)
	defer cleanup()

	at := time.Date(2025, 11, 4, 11, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE listings").
		WithArgs("uuid-1", at, domain.VerificationNotFound).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	batch := database.NewBatch()
	batch.MarkNotFound("uuid-1", at)

	err := writer.Apply(context.Background(), batch)
	require.NoError(t, err)

	expectationsMet(t, mock)
}
