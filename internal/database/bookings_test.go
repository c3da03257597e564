package database

import (
	"context"
	"testing"
	"time"

	"shareit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hour returns base shifted by n hours, truncated to the storage precision.
func hour(base time.Time, n int) time.Time {
	return base.Add(time.Duration(n) * time.Hour)
}

func createTestBooking(t *testing.T, db *DB, itemID, bookerID int64, start, end time.Time, status string) *models.Booking {
	b := &models.Booking{ItemID: itemID, BookerID: bookerID, Start: start, End: end, Status: status}
	require.NoError(t, db.CreateBooking(context.Background(), b))
	return b
}

func TestCreateAndGetBooking(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	booker := createTestUser(t, db, "booker")
	item := createTestItem(t, db, owner.ID, "drill")

	base := time.Now().UTC().Truncate(time.Second)
	created := createTestBooking(t, db, item.ID, booker.ID, hour(base, 1), hour(base, 3), models.StatusWaiting)
	assert.NotZero(t, created.ID)
	assert.Equal(t, int64(1), created.Version)

	got, err := db.GetBooking(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ID, got.ItemID)
	assert.Equal(t, booker.ID, got.BookerID)
	assert.True(t, got.Start.Equal(hour(base, 1)))
	assert.True(t, got.End.Equal(hour(base, 3)))
	assert.Equal(t, models.StatusWaiting, got.Status)
}

func TestGetBooking_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_, err := db.GetBooking(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCountOverlapping(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	booker := createTestUser(t, db, "booker")
	item := createTestItem(t, db, owner.ID, "drill")

	base := time.Now().UTC().Truncate(time.Second)
	// Approved booking occupies [10, 12).
	createTestBooking(t, db, item.ID, booker.ID, hour(base, 10), hour(base, 12), models.StatusApproved)

	tests := []struct {
		name       string
		start, end time.Time
		want       int
	}{
		{"touching on the right does not overlap", hour(base, 12), hour(base, 14), 0},
		{"touching on the left does not overlap", hour(base, 8), hour(base, 10), 0},
		{"partial overlap counts", hour(base, 11), hour(base, 13), 1},
		{"contained interval counts", hour(base, 10), hour(base, 11), 1},
		{"surrounding interval counts", hour(base, 9), hour(base, 13), 1},
		{"disjoint interval is free", hour(base, 20), hour(base, 22), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, err := db.CountOverlapping(ctx, item.ID, tt.start, tt.end, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, count)
		})
	}
}

func TestCountOverlapping_OnlyApprovedCounts(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	booker := createTestUser(t, db, "booker")
	item := createTestItem(t, db, owner.ID, "drill")

	base := time.Now().UTC().Truncate(time.Second)
	createTestBooking(t, db, item.ID, booker.ID, hour(base, 10), hour(base, 12), models.StatusWaiting)
	createTestBooking(t, db, item.ID, booker.ID, hour(base, 10), hour(base, 12), models.StatusRejected)
	createTestBooking(t, db, item.ID, booker.ID, hour(base, 10), hour(base, 12), models.StatusCanceled)

	count, err := db.CountOverlapping(ctx, item.ID, hour(base, 10), hour(base, 12), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestApproveBookingTx(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	booker := createTestUser(t, db, "booker")
	item := createTestItem(t, db, owner.ID, "drill")

	base := time.Now().UTC().Truncate(time.Second)
	booking := createTestBooking(t, db, item.ID, booker.ID, hour(base, 1), hour(base, 3), models.StatusWaiting)

	approved, err := db.ApproveBookingTx(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)
	assert.Equal(t, int64(2), approved.Version)

	// A second approval finds the booking no longer WAITING.
	_, err = db.ApproveBookingTx(ctx, booking.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestApproveBookingTx_Overlap(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	booker := createTestUser(t, db, "booker")
	rival := createTestUser(t, db, "rival")
	item := createTestItem(t, db, owner.ID, "drill")

	base := time.Now().UTC().Truncate(time.Second)
	createTestBooking(t, db, item.ID, booker.ID, hour(base, 1), hour(base, 5), models.StatusApproved)
	waiting := createTestBooking(t, db, item.ID, rival.ID, hour(base, 4), hour(base, 6), models.StatusWaiting)

	_, err := db.ApproveBookingTx(ctx, waiting.ID)
	assert.ErrorIs(t, err, ErrOverlap)

	// The loser stays WAITING.
	got, err := db.GetBooking(ctx, waiting.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaiting, got.Status)
}

func TestApproveBookingTx_TouchingSucceeds(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	booker := createTestUser(t, db, "booker")
	rival := createTestUser(t, db, "rival")
	item := createTestItem(t, db, owner.ID, "drill")

	base := time.Now().UTC().Truncate(time.Second)
	createTestBooking(t, db, item.ID, booker.ID, hour(base, 1), hour(base, 5), models.StatusApproved)
	touching := createTestBooking(t, db, item.ID, rival.ID, hour(base, 5), hour(base, 7), models.StatusWaiting)

	approved, err := db.ApproveBookingTx(ctx, touching.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)
}

func TestApproveBookingTx_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_, err := db.ApproveBookingTx(context.Background(), 4242)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateBookingStatusWithVersion(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	booker := createTestUser(t, db, "booker")
	item := createTestItem(t, db, owner.ID, "drill")

	base := time.Now().UTC().Truncate(time.Second)
	booking := createTestBooking(t, db, item.ID, booker.ID, hour(base, 1), hour(base, 3), models.StatusWaiting)

	// Stale version loses.
	err := db.UpdateBookingStatusWithVersion(ctx, booking.ID, booking.Version+1, models.StatusRejected)
	assert.ErrorIs(t, err, ErrVersionConflict)

	require.NoError(t, db.UpdateBookingStatusWithVersion(ctx, booking.ID, booking.Version, models.StatusRejected))

	got, err := db.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, got.Status)
	assert.Equal(t, int64(2), got.Version)

	// Terminal bookings cannot transition again.
	err = db.UpdateBookingStatusWithVersion(ctx, booking.ID, got.Version, models.StatusCanceled)
	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestListBookings_Filters(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	booker := createTestUser(t, db, "booker")
	item := createTestItem(t, db, owner.ID, "drill")

	now := time.Now().UTC().Truncate(time.Second)
	past := createTestBooking(t, db, item.ID, booker.ID, hour(now, -10), hour(now, -8), models.StatusApproved)
	current := createTestBooking(t, db, item.ID, booker.ID, hour(now, -1), hour(now, 1), models.StatusApproved)
	futureShort := createTestBooking(t, db, item.ID, booker.ID, hour(now, 2), hour(now, 3), models.StatusWaiting)
	futureLong := createTestBooking(t, db, item.ID, booker.ID, hour(now, 1), hour(now, 8), models.StatusWaiting)

	list := func(filter, status string) []models.Booking {
		got, err := db.ListBookings(ctx, ListQuery{
			UserID: booker.ID, Role: models.RoleBooker, Filter: filter, Status: status,
			Now: now, From: 0, Size: 10,
		})
		require.NoError(t, err)
		return got
	}

	ids := func(bs []models.Booking) []int64 {
		out := make([]int64, len(bs))
		for i, b := range bs {
			out[i] = b.ID
		}
		return out
	}

	// ALL orders by start descending.
	assert.Equal(t, []int64{futureShort.ID, futureLong.ID, current.ID, past.ID}, ids(list(models.FilterAll, "")))

	// CURRENT contains only the booking spanning now.
	assert.Equal(t, []int64{current.ID}, ids(list(models.FilterCurrent, "")))

	// PAST contains only the finished booking.
	assert.Equal(t, []int64{past.ID}, ids(list(models.FilterPast, "")))

	// FUTURE orders by end descending, not by start.
	assert.Equal(t, []int64{futureLong.ID, futureShort.ID}, ids(list(models.FilterFuture, "")))

	// BY_STATUS matches exactly.
	assert.Equal(t, []int64{futureShort.ID, futureLong.ID}, ids(list(models.FilterByStatus, models.StatusWaiting)))
	assert.Empty(t, list(models.FilterByStatus, models.StatusRejected))
}

func TestListBookings_OwnerRole(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	other := createTestUser(t, db, "other")
	booker := createTestUser(t, db, "booker")
	item := createTestItem(t, db, owner.ID, "drill")
	otherItem := createTestItem(t, db, other.ID, "saw")

	now := time.Now().UTC().Truncate(time.Second)
	mine := createTestBooking(t, db, item.ID, booker.ID, hour(now, 1), hour(now, 2), models.StatusWaiting)
	createTestBooking(t, db, otherItem.ID, booker.ID, hour(now, 1), hour(now, 2), models.StatusWaiting)

	got, err := db.ListBookings(ctx, ListQuery{
		UserID: owner.ID, Role: models.RoleOwner, Filter: models.FilterAll,
		Now: now, From: 0, Size: 10,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, mine.ID, got[0].ID)
}

func TestListBookings_Pagination(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	booker := createTestUser(t, db, "booker")
	item := createTestItem(t, db, owner.ID, "drill")

	now := time.Now().UTC().Truncate(time.Second)
	for i := 1; i <= 5; i++ {
		createTestBooking(t, db, item.ID, booker.ID, hour(now, i), hour(now, i+1), models.StatusWaiting)
	}

	page, err := db.ListBookings(ctx, ListQuery{
		UserID: booker.ID, Role: models.RoleBooker, Filter: models.FilterAll,
		Now: now, From: 2, Size: 2,
	})
	require.NoError(t, err)
	require.Len(t, page, 2)
	// Start descending: starts at hours 5,4,[3,2],1.
	assert.True(t, page[0].Start.Equal(hour(now, 3)))
	assert.True(t, page[1].Start.Equal(hour(now, 2)))
}

func TestListBookings_UnknownRoleAndFilter(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	_, err := db.ListBookings(ctx, ListQuery{UserID: 1, Role: "tenant", Filter: models.FilterAll, Size: 10})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = db.ListBookings(ctx, ListQuery{UserID: 1, Role: models.RoleBooker, Filter: "RECENT", Size: 10})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNextAndLastBooking(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	booker := createTestUser(t, db, "booker")
	item := createTestItem(t, db, owner.ID, "drill")

	now := time.Now().UTC().Truncate(time.Second)

	// No approved bookings yet.
	next, err := db.NextBooking(ctx, item.ID, now)
	require.NoError(t, err)
	assert.Nil(t, next)
	last, err := db.LastBooking(ctx, item.ID, now)
	require.NoError(t, err)
	assert.Nil(t, last)

	older := createTestBooking(t, db, item.ID, booker.ID, hour(now, -10), hour(now, -8), models.StatusApproved)
	newer := createTestBooking(t, db, item.ID, booker.ID, hour(now, -4), hour(now, -2), models.StatusApproved)
	soonEnd := createTestBooking(t, db, item.ID, booker.ID, hour(now, 2), hour(now, 3), models.StatusApproved)
	createTestBooking(t, db, item.ID, booker.ID, hour(now, 1), hour(now, 8), models.StatusWaiting)
	_ = older

	next, err = db.NextBooking(ctx, item.ID, now)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, soonEnd.ID, next.ID)

	last, err = db.LastBooking(ctx, item.ID, now)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, newer.ID, last.ID)
}

func TestCountUsage(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	booker := createTestUser(t, db, "booker")
	item := createTestItem(t, db, owner.ID, "drill")

	now := time.Now().UTC().Truncate(time.Second)

	count, err := db.CountUsage(ctx, booker.ID, item.ID, now)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Future approved booking does not count as usage.
	createTestBooking(t, db, item.ID, booker.ID, hour(now, 1), hour(now, 2), models.StatusApproved)
	count, err = db.CountUsage(ctx, booker.ID, item.ID, now)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Started approved booking does.
	createTestBooking(t, db, item.ID, booker.ID, hour(now, -2), hour(now, 2), models.StatusApproved)
	count, err = db.CountUsage(ctx, booker.ID, item.ID, now)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Started but only WAITING does not.
	createTestBooking(t, db, item.ID, booker.ID, hour(now, -5), hour(now, -4), models.StatusWaiting)
	count, err = db.CountUsage(ctx, booker.ID, item.ID, now)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBookingsInRange(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	booker := createTestUser(t, db, "booker")
	item := createTestItem(t, db, owner.ID, "drill")

	now := time.Now().UTC().Truncate(time.Second)
	inside := createTestBooking(t, db, item.ID, booker.ID, hour(now, 1), hour(now, 2), models.StatusWaiting)
	spanning := createTestBooking(t, db, item.ID, booker.ID, hour(now, -1), hour(now, 5), models.StatusApproved)
	createTestBooking(t, db, item.ID, booker.ID, hour(now, 10), hour(now, 12), models.StatusWaiting)

	got, err := db.BookingsInRange(ctx, now, hour(now, 4))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.ElementsMatch(t, []int64{inside.ID, spanning.ID}, []int64{got[0].ID, got[1].ID})
}
