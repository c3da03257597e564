package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shareit/internal/database"
	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

// ItemService serves item views. For the owner it enriches each item with
// the availability projection: the nearest future and most recent approved
// bookings relative to the moment of the request.
type ItemService struct {
	repo   domain.Repository
	cache  domain.ProjectionCache
	logger *zerolog.Logger
}

func NewItemService(repo domain.Repository, cache domain.ProjectionCache, logger *zerolog.Logger) *ItemService {
	return &ItemService{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

func (s *ItemService) CreateItem(ctx context.Context, item *models.Item) error {
	if strings.TrimSpace(item.Name) == "" {
		return fmt.Errorf("item name is required: %w", database.ErrValidation)
	}
	exists, err := s.repo.UserExists(ctx, item.OwnerID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("owner %d: %w", item.OwnerID, database.ErrNotFound)
	}
	return s.repo.CreateItem(ctx, item)
}

// UpdateAvailability flips whether the item accepts new booking requests.
// Only the owner may do this; existing bookings are untouched.
func (s *ItemService) UpdateAvailability(ctx context.Context, itemID, actorID int64, available bool) (*models.Item, error) {
	item, err := s.repo.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != actorID {
		return nil, fmt.Errorf("user %d does not own item %d: %w", actorID, itemID, database.ErrForbidden)
	}

	if err := s.repo.UpdateItemAvailability(ctx, itemID, available); err != nil {
		return nil, err
	}
	item.Available = available
	return item, nil
}

// GetItem returns the item with comments; the owner additionally sees the
// next/last booking projection.
func (s *ItemService) GetItem(ctx context.Context, itemID, viewerID int64) (*models.ItemView, error) {
	item, err := s.repo.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	view := &models.ItemView{Item: *item}

	comments, err := s.repo.GetItemComments(ctx, itemID)
	if err != nil {
		return nil, err
	}
	view.Comments = comments

	if item.OwnerID == viewerID {
		proj, err := s.projection(ctx, itemID, time.Now())
		if err != nil {
			return nil, err
		}
		view.NextBooking = proj.Next
		view.LastBooking = proj.Last
	}

	return view, nil
}

// GetItemsOfOwner lists the owner's items, each enriched with its projection.
func (s *ItemService) GetItemsOfOwner(ctx context.Context, ownerID int64, from, size int) ([]models.ItemView, error) {
	if from < 0 || size <= 0 {
		return nil, fmt.Errorf("invalid page parameters from=%d size=%d: %w", from, size, database.ErrValidation)
	}
	exists, err := s.repo.UserExists(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("user %d: %w", ownerID, database.ErrNotFound)
	}

	items, err := s.repo.GetItemsByOwner(ctx, ownerID, from, size)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	views := make([]models.ItemView, 0, len(items))
	for _, item := range items {
		proj, err := s.projection(ctx, item.ID, now)
		if err != nil {
			return nil, err
		}
		views = append(views, models.ItemView{
			Item:        item,
			NextBooking: proj.Next,
			LastBooking: proj.Last,
		})
	}
	return views, nil
}

// NextBooking returns the approved booking with start >= now ending earliest;
// nil without error when none exists.
func (s *ItemService) NextBooking(ctx context.Context, itemID int64, now time.Time) (*models.Booking, error) {
	if _, err := s.repo.GetItemByID(ctx, itemID); err != nil {
		return nil, err
	}
	return s.repo.NextBooking(ctx, itemID, now)
}

// LastBooking returns the approved booking with start <= now ending latest;
// nil without error when none exists.
func (s *ItemService) LastBooking(ctx context.Context, itemID int64, now time.Time) (*models.Booking, error) {
	if _, err := s.repo.GetItemByID(ctx, itemID); err != nil {
		return nil, err
	}
	return s.repo.LastBooking(ctx, itemID, now)
}

// projection reads the cached snapshot or computes and caches it. The cache
// TTL bounds staleness; approval invalidates the item's entry.
func (s *ItemService) projection(ctx context.Context, itemID int64, now time.Time) (*models.ItemProjection, error) {
	if s.cache != nil {
		proj, err := s.cache.GetProjection(ctx, itemID)
		if err != nil {
			s.logger.Error().Err(err).Int64("item_id", itemID).Msg("projection cache read error")
		} else if proj != nil {
			return proj, nil
		}
	}

	next, err := s.repo.NextBooking(ctx, itemID, now)
	if err != nil {
		return nil, err
	}
	last, err := s.repo.LastBooking(ctx, itemID, now)
	if err != nil {
		return nil, err
	}

	proj := &models.ItemProjection{ItemID: itemID, Next: next, Last: last}
	if s.cache != nil {
		if err := s.cache.SetProjection(ctx, proj); err != nil {
			s.logger.Error().Err(err).Int64("item_id", itemID).Msg("projection cache write error")
		}
	}
	return proj, nil
}
