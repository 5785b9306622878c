//go:build integration
// +build integration

package history

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func testDSN(t *testing.T) string {
	dsn := os.Getenv("NESTER_HISTORY_TEST_DSN")
	if dsn == "" {
		t.Skip("NESTER_HISTORY_TEST_DSN not set, skipping Postgres-backed history test")
	}
	return dsn
}

func TestStoreRecordAndGet(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, Config{DSN: testDSN(t)})
	require.NoError(t, err)
	defer store.Close()

	fitness := 1.5
	bins := 2
	rec := Record{
		ID:          uuid.New(),
		RequestedAt: time.Now().UTC().Truncate(time.Millisecond),
		Fitness:     &fitness,
		BinsUsed:    &bins,
		DurationMS:  42,
	}

	require.NoError(t, store.Record(ctx, rec))

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, rec.ID, got.ID)
	require.NotNil(t, got.Fitness)
	require.InDelta(t, fitness, *got.Fitness, 1e-9)
}

func TestStoreRecordsErrorPath(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, Config{DSN: testDSN(t)})
	require.NoError(t, err)
	defer store.Close()

	errMsg := "session: invalid input: no shapes requested"
	rec := Record{
		ID:          uuid.New(),
		RequestedAt: time.Now().UTC().Truncate(time.Millisecond),
		DurationMS:  3,
		Error:       &errMsg,
	}
	require.NoError(t, store.Record(ctx, rec))

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.Nil(t, got.Fitness)
	require.Nil(t, got.BinsUsed)
	require.NotNil(t, got.Error)
}
