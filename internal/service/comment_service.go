package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shareit/internal/database"
	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

// CommentService gates comments on verified prior usage: the author must
// hold an approved booking for the item whose period has already begun.
type CommentService struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewCommentService(repo domain.Repository, eventBus domain.EventPublisher, logger *zerolog.Logger) *CommentService {
	return &CommentService{
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
	}
}

func (s *CommentService) AddComment(ctx context.Context, itemID, authorID int64, text string) (*models.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("comment text is required: %w", database.ErrValidation)
	}

	author, err := s.repo.GetUserByID(ctx, authorID)
	if err != nil {
		return nil, err
	}
	item, err := s.repo.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID == authorID {
		return nil, fmt.Errorf("owner cannot comment on own item: %w", database.ErrForbidden)
	}

	now := time.Now()
	used, err := s.repo.CountUsage(ctx, authorID, itemID, now)
	if err != nil {
		return nil, err
	}
	if used == 0 {
		return nil, fmt.Errorf("user %d has not used item %d: %w", authorID, itemID, database.ErrValidation)
	}

	// The store re-checks inside the insert transaction; this early check
	// just spares the write attempt.
	exists, err := s.repo.HasCommentFrom(ctx, itemID, authorID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("user %d already commented on item %d: %w", authorID, itemID, database.ErrDuplicateComment)
	}

	comment := &models.Comment{
		ItemID:     itemID,
		AuthorID:   authorID,
		AuthorName: author.Name,
		Text:       text,
		CreatedAt:  now,
	}
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	if s.eventBus != nil {
		payload := events.CommentEventPayload{
			CommentID: comment.ID,
			ItemID:    itemID,
			OwnerID:   item.OwnerID,
			AuthorID:  authorID,
			Text:      text,
		}
		if err := s.eventBus.PublishJSON(events.EventCommentAdded, payload); err != nil {
			s.logger.Error().Err(err).Int64("comment_id", comment.ID).Msg("publish event error")
		}
	}

	return comment, nil
}

func (s *CommentService) GetItemComments(ctx context.Context, itemID int64) ([]models.Comment, error) {
	if _, err := s.repo.GetItemByID(ctx, itemID); err != nil {
		return nil, err
	}
	return s.repo.GetItemComments(ctx, itemID)
}
