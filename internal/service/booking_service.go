package service

import (
	"context"
	"fmt"
	"time"

	"shareit/internal/database"
	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

// BookingService owns the booking lifecycle: request creation, owner
// approval/rejection, booker cancellation and the listing queries. The
// no-overlap invariant is enforced at approval time only; WAITING requests
// may freely compete for the same interval.
type BookingService struct {
	repo           domain.Repository
	eventBus       domain.EventPublisher
	syncWorker     domain.SyncWorker
	cache          domain.ProjectionCache
	maxBookingDays int
	logger         *zerolog.Logger
}

// NewBookingService wires the lifecycle engine. maxBookingDays <= 0 means the
// booking horizon is unbounded.
func NewBookingService(repo domain.Repository, eventBus domain.EventPublisher, syncWorker domain.SyncWorker, cache domain.ProjectionCache, maxBookingDays int, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		repo:           repo,
		eventBus:       eventBus,
		syncWorker:     syncWorker,
		cache:          cache,
		maxBookingDays: maxBookingDays,
		logger:         logger,
	}
}

func (s *BookingService) validateInterval(start, end, now time.Time) error {
	if !start.Before(end) {
		return fmt.Errorf("start must be before end: %w", database.ErrValidation)
	}
	if !start.After(now) {
		return fmt.Errorf("start must be in the future: %w", database.ErrValidation)
	}
	if s.maxBookingDays > 0 && start.After(now.AddDate(0, 0, s.maxBookingDays)) {
		return fmt.Errorf("start is more than %d days ahead: %w", s.maxBookingDays, database.ErrValidation)
	}
	return nil
}

// CreateBooking registers a WAITING request. Overlap with approved bookings
// is deliberately not checked here; competing requests stay open until the
// owner resolves them.
func (s *BookingService) CreateBooking(ctx context.Context, itemID, bookerID int64, start, end time.Time) (*models.Booking, error) {
	if err := s.validateInterval(start, end, time.Now()); err != nil {
		return nil, err
	}

	exists, err := s.repo.UserExists(ctx, bookerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("booker %d: %w", bookerID, database.ErrNotFound)
	}

	item, err := s.repo.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.Available {
		return nil, fmt.Errorf("item %d is unavailable: %w", itemID, database.ErrValidation)
	}
	if item.OwnerID == bookerID {
		return nil, fmt.Errorf("owner cannot book own item: %w", database.ErrValidation)
	}

	booking := &models.Booking{
		ItemID:   itemID,
		BookerID: bookerID,
		Start:    start,
		End:      end,
		Status:   models.StatusWaiting,
	}
	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		return nil, err
	}

	s.publishEvent(events.EventBookingCreated, booking, item.OwnerID, bookerID)
	s.enqueueSync(ctx, booking, "upsert")

	return booking, nil
}

// ApproveBooking confirms a WAITING request. The overlap check and the status
// write run atomically in the store; two racing approvals of conflicting
// requests cannot both succeed.
func (s *BookingService) ApproveBooking(ctx context.Context, bookingID, actorID int64) (*models.Booking, error) {
	booking, item, err := s.authorizeOwner(ctx, bookingID, actorID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.StatusWaiting {
		return nil, fmt.Errorf("booking %d is %s: %w", bookingID, booking.Status, database.ErrInvalidState)
	}

	approved, err := s.repo.ApproveBookingTx(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	s.invalidateProjection(ctx, approved.ItemID)
	s.publishEvent(events.EventBookingApproved, approved, item.OwnerID, actorID)
	s.enqueueSync(ctx, approved, "update_status")

	return approved, nil
}

// RejectBooking declines a WAITING request. No conflict check is needed.
func (s *BookingService) RejectBooking(ctx context.Context, bookingID, actorID int64) (*models.Booking, error) {
	booking, item, err := s.authorizeOwner(ctx, bookingID, actorID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.StatusWaiting {
		return nil, fmt.Errorf("booking %d is %s: %w", bookingID, booking.Status, database.ErrInvalidState)
	}

	if err := s.repo.UpdateBookingStatusWithVersion(ctx, bookingID, booking.Version, models.StatusRejected); err != nil {
		return nil, err
	}
	booking.Status = models.StatusRejected
	booking.Version++

	s.publishEvent(events.EventBookingRejected, booking, item.OwnerID, actorID)
	s.enqueueSync(ctx, booking, "update_status")

	return booking, nil
}

// CancelBooking withdraws a WAITING request; only the booker may do this.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, actorID int64) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.BookerID != actorID {
		return nil, fmt.Errorf("user %d is not the booker of booking %d: %w", actorID, bookingID, database.ErrForbidden)
	}
	if booking.Status != models.StatusWaiting {
		return nil, fmt.Errorf("booking %d is %s: %w", bookingID, booking.Status, database.ErrInvalidState)
	}

	item, err := s.repo.GetItemByID(ctx, booking.ItemID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateBookingStatusWithVersion(ctx, bookingID, booking.Version, models.StatusCanceled); err != nil {
		return nil, err
	}
	booking.Status = models.StatusCanceled
	booking.Version++

	s.publishEvent(events.EventBookingCanceled, booking, item.OwnerID, actorID)
	s.enqueueSync(ctx, booking, "update_status")

	return booking, nil
}

// ListBookings runs one of the five listing queries for an identity acting
// as owner or booker.
func (s *BookingService) ListBookings(ctx context.Context, userID int64, role, filter, status string, from, size int) ([]models.Booking, error) {
	if from < 0 || size <= 0 {
		return nil, fmt.Errorf("invalid page parameters from=%d size=%d: %w", from, size, database.ErrValidation)
	}
	if role != models.RoleOwner && role != models.RoleBooker {
		return nil, fmt.Errorf("unknown role %q: %w", role, database.ErrValidation)
	}
	if filter == "" {
		filter = models.FilterAll
	}
	if filter == models.FilterByStatus && !models.ValidStatus(status) {
		return nil, fmt.Errorf("unknown status %q: %w", status, database.ErrValidation)
	}

	exists, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("user %d: %w", userID, database.ErrNotFound)
	}

	return s.repo.ListBookings(ctx, database.ListQuery{
		UserID: userID,
		Role:   role,
		Filter: filter,
		Status: status,
		Now:    time.Now(),
		From:   from,
		Size:   size,
	})
}

func (s *BookingService) authorizeOwner(ctx context.Context, bookingID, actorID int64) (*models.Booking, *models.Item, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	item, err := s.repo.GetItemByID(ctx, booking.ItemID)
	if err != nil {
		return nil, nil, err
	}
	if item.OwnerID != actorID {
		return nil, nil, fmt.Errorf("user %d does not own item %d: %w", actorID, item.ID, database.ErrForbidden)
	}
	return booking, item, nil
}

func (s *BookingService) invalidateProjection(ctx context.Context, itemID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateProjection(ctx, itemID); err != nil {
		s.logger.Error().Err(err).Int64("item_id", itemID).Msg("invalidate projection error")
	}
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, ownerID, changedBy int64) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID: booking.ID,
		ItemID:    booking.ItemID,
		OwnerID:   ownerID,
		BookerID:  booking.BookerID,
		Status:    booking.Status,
		Start:     booking.Start,
		End:       booking.End,
		ChangedBy: changedBy,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueSync(ctx context.Context, booking *models.Booking, taskType string) {
	if s.syncWorker == nil {
		return
	}

	var status string
	if taskType == "update_status" {
		status = booking.Status
	}

	if err := s.syncWorker.EnqueueTask(ctx, taskType, booking.ID, booking, status); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Str("task", taskType).Msg("sheets enqueue error")
	}
}
