package database

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"shareit/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentApprove(t *testing.T) {
	logger := zerolog.Nop()
	dbPath := filepath.Join(t.TempDir(), "concurrency.db")
	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	owner := createTestUser(t, db, "owner")
	item := createTestItem(t, db, owner.ID, "дрель")

	start := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	end := start.Add(48 * time.Hour)

	// Ten overlapping WAITING requests for the same item.
	const numBookings = 10
	ids := make([]int64, 0, numBookings)
	for i := 0; i < numBookings; i++ {
		booker := createTestUser(t, db, "booker"+string(rune('a'+i)))
		booking := &models.Booking{
			ItemID:   item.ID,
			BookerID: booker.ID,
			Start:    start.Add(time.Duration(i) * time.Hour),
			End:      end,
			Status:   models.StatusWaiting,
		}
		require.NoError(t, db.CreateBooking(ctx, booking))
		ids = append(ids, booking.ID)
	}

	var wg sync.WaitGroup
	wg.Add(numBookings)
	results := make(chan error, numBookings)

	for _, id := range ids {
		go func(bookingID int64) {
			defer wg.Done()
			_, err := db.ApproveBookingTx(ctx, bookingID)
			results <- err
		}(id)
	}

	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		if err == nil {
			successCount++
		}
	}
	assert.Equal(t, 1, successCount, "only one overlapping approval may succeed")

	approved, err := db.ListBookings(ctx, ListQuery{
		UserID: owner.ID,
		Role:   models.RoleOwner,
		Filter: models.FilterByStatus,
		Status: models.StatusApproved,
		Now:    time.Now(),
		From:   0,
		Size:   numBookings,
	})
	require.NoError(t, err)
	assert.Len(t, approved, 1)
}
