package domain

import (
	"context"
	"time"

	"shareit/internal/database"
	"shareit/internal/models"
)

// Repository is the interval store contract the services depend on.
type Repository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ApproveBookingTx(ctx context.Context, bookingID int64) (*models.Booking, error)
	UpdateBookingStatusWithVersion(ctx context.Context, id, version int64, status string) error
	CountOverlapping(ctx context.Context, itemID int64, start, end time.Time, excludeID int64) (int, error)
	ListBookings(ctx context.Context, q database.ListQuery) ([]models.Booking, error)
	NextBooking(ctx context.Context, itemID int64, now time.Time) (*models.Booking, error)
	LastBooking(ctx context.Context, itemID int64, now time.Time) (*models.Booking, error)
	CountUsage(ctx context.Context, bookerID, itemID int64, now time.Time) (int, error)

	CreateItem(ctx context.Context, item *models.Item) error
	GetItemByID(ctx context.Context, id int64) (*models.Item, error)
	GetItemsByOwner(ctx context.Context, ownerID int64, from, size int) ([]models.Item, error)
	UpdateItemAvailability(ctx context.Context, id int64, available bool) error

	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	UserExists(ctx context.Context, id int64) (bool, error)

	CreateComment(ctx context.Context, comment *models.Comment) error
	HasCommentFrom(ctx context.Context, itemID, authorID int64) (bool, error)
	GetItemComments(ctx context.Context, itemID int64) ([]models.Comment, error)
}

// ProjectionCache holds short-lived next/last snapshots per item.
type ProjectionCache interface {
	GetProjection(ctx context.Context, itemID int64) (*models.ItemProjection, error)
	SetProjection(ctx context.Context, projection *models.ItemProjection) error
	InvalidateProjection(ctx context.Context, itemID int64) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// SheetsWriter applies booking rows to the report spreadsheet.
type SheetsWriter interface {
	UpsertBooking(ctx context.Context, booking *models.Booking) error
	UpdateBookingStatus(ctx context.Context, bookingID int64, status string) error
}

// SyncWorker accepts spreadsheet synchronization tasks.
type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, bookingID int64, booking *models.Booking, status string) error
}

type BookingService interface {
	CreateBooking(ctx context.Context, itemID, bookerID int64, start, end time.Time) (*models.Booking, error)
	ApproveBooking(ctx context.Context, bookingID, actorID int64) (*models.Booking, error)
	RejectBooking(ctx context.Context, bookingID, actorID int64) (*models.Booking, error)
	CancelBooking(ctx context.Context, bookingID, actorID int64) (*models.Booking, error)
	ListBookings(ctx context.Context, userID int64, role, filter, status string, from, size int) ([]models.Booking, error)
}

type ItemService interface {
	CreateItem(ctx context.Context, item *models.Item) error
	UpdateAvailability(ctx context.Context, itemID, actorID int64, available bool) (*models.Item, error)
	GetItem(ctx context.Context, itemID, viewerID int64) (*models.ItemView, error)
	GetItemsOfOwner(ctx context.Context, ownerID int64, from, size int) ([]models.ItemView, error)
	NextBooking(ctx context.Context, itemID int64, now time.Time) (*models.Booking, error)
	LastBooking(ctx context.Context, itemID int64, now time.Time) (*models.Booking, error)
}

type CommentService interface {
	AddComment(ctx context.Context, itemID, authorID int64, text string) (*models.Comment, error)
	GetItemComments(ctx context.Context, itemID int64) ([]models.Comment, error)
}

type UserService interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	UserExists(ctx context.Context, id int64) (bool, error)
}
