package main

import (
	"context"
	"os"
	"testing"
	"time"

	"go-passport-scanner/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// openTestPostgres connects to the database named by POSTGRES_URL, or
// skips when no database is available.
func openTestPostgres(t *testing.T) *PostgresAuditLogStore {
	t.Helper()

	url := os.Getenv("POSTGRES_URL")
	if url == "" {
		t.Skip("POSTGRES_URL not set, skipping postgres storage test")
	}

	db, err := OpenPostgres(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresAuditLogStore(db)
}

func TestPostgresAuditLogAppendIncreasesCount(t *testing.T) {
	store := openTestPostgres(t)
	ctx := context.Background()

	before, err := store.Count(ctx)
	require.NoError(t, err)

	err = store.Append(ctx, models.AuditLogEntry{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		RequestID:  uuid.NewString(),
		Model:      "test-model",
		InputJSON:  `{"messages":[]}`,
		OutputJSON: `{"document_number":"X"}`,
		Success:    true,
	})
	require.NoError(t, err)

	after, err := store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, before+1, after)
}

func TestPostgresScanStoreRoundTrip(t *testing.T) {
	url := os.Getenv("POSTGRES_URL")
	if url == "" {
		t.Skip("POSTGRES_URL not set, skipping postgres storage test")
	}

	ctx := context.Background()
	db, err := OpenPostgres(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := NewPostgresScanStore(db)
	record := models.ScanRecord{
		ScanID:        uuid.NewString(),
		Timestamp:     time.Now().UTC().Truncate(time.Microsecond),
		PassportJSON:  `{"name":"A"}`,
		FaceImagePath: "/tmp/face.jpg",
	}
	require.NoError(t, store.SaveScan(ctx, record))

	got, err := store.GetScan(ctx, record.ScanID)
	require.NoError(t, err)
	require.Equal(t, record.ScanID, got.ScanID)
	require.Equal(t, record.PassportJSON, got.PassportJSON)
	require.Equal(t, record.FaceImagePath, got.FaceImagePath)
	require.WithinDuration(t, record.Timestamp, got.Timestamp, time.Second)

	_, err = store.GetScan(ctx, "no-such-scan")
	require.ErrorIs(t, err, ErrScanNotFound)
}
