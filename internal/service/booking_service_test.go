package service

import (
	"context"
	"testing"
	"time"

	"shareit/internal/database"
	"shareit/internal/events"
	"shareit/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) CreateBooking(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}
func (m *mockRepo) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockRepo) ApproveBookingTx(ctx context.Context, bookingID int64) (*models.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockRepo) UpdateBookingStatusWithVersion(ctx context.Context, id, v int64, s string) error {
	return m.Called(ctx, id, v, s).Error(0)
}
func (m *mockRepo) CountOverlapping(ctx context.Context, itemID int64, start, end time.Time, excludeID int64) (int, error) {
	args := m.Called(ctx, itemID, start, end, excludeID)
	return args.Int(0), args.Error(1)
}
func (m *mockRepo) ListBookings(ctx context.Context, q database.ListQuery) ([]models.Booking, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}
func (m *mockRepo) NextBooking(ctx context.Context, itemID int64, now time.Time) (*models.Booking, error) {
	args := m.Called(ctx, itemID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockRepo) LastBooking(ctx context.Context, itemID int64, now time.Time) (*models.Booking, error) {
	args := m.Called(ctx, itemID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockRepo) CountUsage(ctx context.Context, bookerID, itemID int64, now time.Time) (int, error) {
	args := m.Called(ctx, bookerID, itemID, now)
	return args.Int(0), args.Error(1)
}
func (m *mockRepo) CreateItem(ctx context.Context, i *models.Item) error {
	return m.Called(ctx, i).Error(0)
}
func (m *mockRepo) GetItemByID(ctx context.Context, id int64) (*models.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Item), args.Error(1)
}
func (m *mockRepo) GetItemsByOwner(ctx context.Context, ownerID int64, from, size int) ([]models.Item, error) {
	args := m.Called(ctx, ownerID, from, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Item), args.Error(1)
}
func (m *mockRepo) UpdateItemAvailability(ctx context.Context, id int64, available bool) error {
	return m.Called(ctx, id, available).Error(0)
}
func (m *mockRepo) CreateUser(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *mockRepo) UserExists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
func (m *mockRepo) CreateComment(ctx context.Context, c *models.Comment) error {
	return m.Called(ctx, c).Error(0)
}
func (m *mockRepo) HasCommentFrom(ctx context.Context, itemID, authorID int64) (bool, error) {
	args := m.Called(ctx, itemID, authorID)
	return args.Bool(0), args.Error(1)
}
func (m *mockRepo) GetItemComments(ctx context.Context, itemID int64) ([]models.Comment, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Comment), args.Error(1)
}

type fakeBus struct {
	published []string
	payloads  []interface{}
}

func (f *fakeBus) PublishJSON(eventType string, payload interface{}) error {
	f.published = append(f.published, eventType)
	f.payloads = append(f.payloads, payload)
	return nil
}

type fakeSyncWorker struct {
	tasks []string
}

func (f *fakeSyncWorker) EnqueueTask(_ context.Context, taskType string, _ int64, _ *models.Booking, _ string) error {
	f.tasks = append(f.tasks, taskType)
	return nil
}

type fakeCache struct {
	stored      map[int64]*models.ItemProjection
	invalidated []int64
}

func newFakeCache() *fakeCache {
	return &fakeCache{stored: make(map[int64]*models.ItemProjection)}
}

func (f *fakeCache) GetProjection(_ context.Context, itemID int64) (*models.ItemProjection, error) {
	return f.stored[itemID], nil
}
func (f *fakeCache) SetProjection(_ context.Context, p *models.ItemProjection) error {
	f.stored[p.ItemID] = p
	return nil
}
func (f *fakeCache) InvalidateProjection(_ context.Context, itemID int64) error {
	f.invalidated = append(f.invalidated, itemID)
	delete(f.stored, itemID)
	return nil
}

func newBookingService(repo *mockRepo) (*BookingService, *fakeBus, *fakeSyncWorker, *fakeCache) {
	logger := zerolog.Nop()
	bus := &fakeBus{}
	sync := &fakeSyncWorker{}
	cache := newFakeCache()
	return NewBookingService(repo, bus, sync, cache, 365, &logger), bus, sync, cache
}

func TestCreateBooking_IntervalValidation(t *testing.T) {
	repo := new(mockRepo)
	svc, _, _, _ := newBookingService(repo)
	ctx := context.Background()
	now := time.Now()

	tests := []struct {
		name       string
		start, end time.Time
	}{
		{"start equals end", now.Add(time.Hour), now.Add(time.Hour)},
		{"start after end", now.Add(2 * time.Hour), now.Add(time.Hour)},
		{"start in the past", now.Add(-time.Hour), now.Add(time.Hour)},
		{"start beyond configured horizon", now.AddDate(0, 0, 400), now.AddDate(0, 0, 401)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateBooking(ctx, 1, 2, tt.start, tt.end)
			assert.ErrorIs(t, err, database.ErrValidation)
		})
	}
	repo.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestCreateBooking_FarFutureWithoutHorizon(t *testing.T) {
	repo := new(mockRepo)
	logger := zerolog.Nop()
	svc := NewBookingService(repo, nil, nil, nil, 0, &logger)
	repo.On("UserExists", mock.Anything, int64(2)).Return(true, nil)
	repo.On("GetItemByID", mock.Anything, int64(1)).Return(&models.Item{ID: 1, OwnerID: 9, Available: true}, nil)
	repo.On("CreateBooking", mock.Anything, mock.Anything).Return(nil)

	start := time.Now().AddDate(2, 0, 0)
	booking, err := svc.CreateBooking(context.Background(), 1, 2, start, start.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaiting, booking.Status)
}

func TestCreateBooking_UnknownBooker(t *testing.T) {
	repo := new(mockRepo)
	svc, _, _, _ := newBookingService(repo)
	repo.On("UserExists", mock.Anything, int64(2)).Return(false, nil)

	now := time.Now()
	_, err := svc.CreateBooking(context.Background(), 1, 2, now.Add(time.Hour), now.Add(2*time.Hour))
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestCreateBooking_UnavailableItem(t *testing.T) {
	repo := new(mockRepo)
	svc, _, _, _ := newBookingService(repo)
	repo.On("UserExists", mock.Anything, int64(2)).Return(true, nil)
	repo.On("GetItemByID", mock.Anything, int64(1)).Return(&models.Item{ID: 1, OwnerID: 9, Available: false}, nil)

	now := time.Now()
	_, err := svc.CreateBooking(context.Background(), 1, 2, now.Add(time.Hour), now.Add(2*time.Hour))
	assert.ErrorIs(t, err, database.ErrValidation)
}

func TestCreateBooking_OwnItem(t *testing.T) {
	repo := new(mockRepo)
	svc, _, _, _ := newBookingService(repo)
	repo.On("UserExists", mock.Anything, int64(9)).Return(true, nil)
	repo.On("GetItemByID", mock.Anything, int64(1)).Return(&models.Item{ID: 1, OwnerID: 9, Available: true}, nil)

	now := time.Now()
	_, err := svc.CreateBooking(context.Background(), 1, 9, now.Add(time.Hour), now.Add(2*time.Hour))
	assert.ErrorIs(t, err, database.ErrValidation)
}

func TestCreateBooking_Success(t *testing.T) {
	repo := new(mockRepo)
	svc, bus, sync, _ := newBookingService(repo)
	repo.On("UserExists", mock.Anything, int64(2)).Return(true, nil)
	repo.On("GetItemByID", mock.Anything, int64(1)).Return(&models.Item{ID: 1, OwnerID: 9, Available: true}, nil)
	repo.On("CreateBooking", mock.Anything, mock.MatchedBy(func(b *models.Booking) bool {
		return b.Status == models.StatusWaiting && b.ItemID == 1 && b.BookerID == 2
	})).Return(nil)

	now := time.Now()
	booking, err := svc.CreateBooking(context.Background(), 1, 2, now.Add(time.Hour), now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaiting, booking.Status)
	assert.Equal(t, []string{"booking_created"}, bus.published)
	assert.Equal(t, []string{"upsert"}, sync.tasks)
	repo.AssertExpectations(t)
}

func TestApproveBooking_NotOwner(t *testing.T) {
	repo := new(mockRepo)
	svc, _, _, _ := newBookingService(repo)
	repo.On("GetBooking", mock.Anything, int64(5)).Return(&models.Booking{ID: 5, ItemID: 1, Status: models.StatusWaiting}, nil)
	repo.On("GetItemByID", mock.Anything, int64(1)).Return(&models.Item{ID: 1, OwnerID: 9}, nil)

	_, err := svc.ApproveBooking(context.Background(), 5, 7)
	assert.ErrorIs(t, err, database.ErrForbidden)
	repo.AssertNotCalled(t, "ApproveBookingTx", mock.Anything, mock.Anything)
}

func TestApproveBooking_AlreadyResolved(t *testing.T) {
	repo := new(mockRepo)
	svc, _, _, _ := newBookingService(repo)
	repo.On("GetBooking", mock.Anything, int64(5)).Return(&models.Booking{ID: 5, ItemID: 1, Status: models.StatusRejected}, nil)
	repo.On("GetItemByID", mock.Anything, int64(1)).Return(&models.Item{ID: 1, OwnerID: 9}, nil)

	_, err := svc.ApproveBooking(context.Background(), 5, 9)
	assert.ErrorIs(t, err, database.ErrInvalidState)
}

func TestApproveBooking_Success(t *testing.T) {
	repo := new(mockRepo)
	svc, bus, sync, cache := newBookingService(repo)
	waiting := &models.Booking{ID: 5, ItemID: 1, BookerID: 2, Status: models.StatusWaiting, Version: 1}
	approved := &models.Booking{ID: 5, ItemID: 1, BookerID: 2, Status: models.StatusApproved, Version: 2}
	repo.On("GetBooking", mock.Anything, int64(5)).Return(waiting, nil)
	repo.On("GetItemByID", mock.Anything, int64(1)).Return(&models.Item{ID: 1, OwnerID: 9}, nil)
	repo.On("ApproveBookingTx", mock.Anything, int64(5)).Return(approved, nil)

	got, err := svc.ApproveBooking(context.Background(), 5, 9)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
	assert.Equal(t, []int64{1}, cache.invalidated)
	assert.Equal(t, []string{"booking_approved"}, bus.published)
	assert.Equal(t, []string{"update_status"}, sync.tasks)
}

func TestApproveBooking_OverlapFromStore(t *testing.T) {
	repo := new(mockRepo)
	svc, bus, _, cache := newBookingService(repo)
	repo.On("GetBooking", mock.Anything, int64(5)).Return(&models.Booking{ID: 5, ItemID: 1, Status: models.StatusWaiting}, nil)
	repo.On("GetItemByID", mock.Anything, int64(1)).Return(&models.Item{ID: 1, OwnerID: 9}, nil)
	repo.On("ApproveBookingTx", mock.Anything, int64(5)).Return(nil, database.ErrOverlap)

	_, err := svc.ApproveBooking(context.Background(), 5, 9)
	assert.ErrorIs(t, err, database.ErrOverlap)
	assert.Empty(t, bus.published)
	assert.Empty(t, cache.invalidated)
}

func TestRejectBooking_Success(t *testing.T) {
	repo := new(mockRepo)
	svc, bus, _, _ := newBookingService(repo)
	repo.On("GetBooking", mock.Anything, int64(5)).Return(&models.Booking{ID: 5, ItemID: 1, Status: models.StatusWaiting, Version: 3}, nil)
	repo.On("GetItemByID", mock.Anything, int64(1)).Return(&models.Item{ID: 1, OwnerID: 9}, nil)
	repo.On("UpdateBookingStatusWithVersion", mock.Anything, int64(5), int64(3), models.StatusRejected).Return(nil)

	got, err := svc.RejectBooking(context.Background(), 5, 9)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, got.Status)
	assert.Equal(t, []string{"booking_rejected"}, bus.published)
}

func TestCancelBooking_OnlyBooker(t *testing.T) {
	repo := new(mockRepo)
	svc, _, _, _ := newBookingService(repo)
	repo.On("GetBooking", mock.Anything, int64(5)).Return(&models.Booking{ID: 5, ItemID: 1, BookerID: 2, Status: models.StatusWaiting}, nil)

	_, err := svc.CancelBooking(context.Background(), 5, 9)
	assert.ErrorIs(t, err, database.ErrForbidden)
}

func TestCancelBooking_Success(t *testing.T) {
	repo := new(mockRepo)
	svc, bus, _, _ := newBookingService(repo)
	repo.On("GetBooking", mock.Anything, int64(5)).Return(&models.Booking{ID: 5, ItemID: 1, BookerID: 2, Status: models.StatusWaiting, Version: 1}, nil)
	repo.On("GetItemByID", mock.Anything, int64(1)).Return(&models.Item{ID: 1, OwnerID: 9}, nil)
	repo.On("UpdateBookingStatusWithVersion", mock.Anything, int64(5), int64(1), models.StatusCanceled).Return(nil)

	got, err := svc.CancelBooking(context.Background(), 5, 2)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, got.Status)
	assert.Equal(t, []string{"booking_canceled"}, bus.published)

	// The owner is notified about the withdrawal, so the event must carry
	// the real owner id.
	require.Len(t, bus.payloads, 1)
	payload, ok := bus.payloads[0].(events.BookingEventPayload)
	require.True(t, ok)
	assert.Equal(t, int64(9), payload.OwnerID)
	assert.Equal(t, int64(2), payload.ChangedBy)
}

func TestListBookings_Validation(t *testing.T) {
	repo := new(mockRepo)
	svc, _, _, _ := newBookingService(repo)
	ctx := context.Background()

	_, err := svc.ListBookings(ctx, 1, models.RoleBooker, models.FilterAll, "", -1, 10)
	assert.ErrorIs(t, err, database.ErrValidation)

	_, err = svc.ListBookings(ctx, 1, models.RoleBooker, models.FilterAll, "", 0, 0)
	assert.ErrorIs(t, err, database.ErrValidation)

	_, err = svc.ListBookings(ctx, 1, "tenant", models.FilterAll, "", 0, 10)
	assert.ErrorIs(t, err, database.ErrValidation)

	_, err = svc.ListBookings(ctx, 1, models.RoleBooker, models.FilterByStatus, "DONE", 0, 10)
	assert.ErrorIs(t, err, database.ErrValidation)
}

func TestListBookings_DefaultsToAll(t *testing.T) {
	repo := new(mockRepo)
	svc, _, _, _ := newBookingService(repo)
	repo.On("UserExists", mock.Anything, int64(1)).Return(true, nil)
	repo.On("ListBookings", mock.Anything, mock.MatchedBy(func(q database.ListQuery) bool {
		return q.Filter == models.FilterAll && q.Role == models.RoleBooker
	})).Return([]models.Booking{}, nil)

	_, err := svc.ListBookings(context.Background(), 1, models.RoleBooker, "", "", 0, 10)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}
