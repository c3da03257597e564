package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shareit/internal/models"
)

const bookingColumns = `id, item_id, booker_id, start_date, end_date, status, created_at, updated_at, version`

func scanBooking(row interface{ Scan(...any) error }) (*models.Booking, error) {
	var b models.Booking
	var start, end string
	err := row.Scan(
		&b.ID,
		&b.ItemID,
		&b.BookerID,
		&start,
		&end,
		&b.Status,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.Version,
	)
	if err != nil {
		return nil, err
	}
	if b.Start, err = parseTime(start); err != nil {
		return nil, err
	}
	if b.End, err = parseTime(end); err != nil {
		return nil, err
	}
	return &b, nil
}

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	query := `INSERT INTO bookings (
				item_id, booker_id, start_date, end_date, status,
				created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		booking.ItemID,
		booking.BookerID,
		formatTime(booking.Start),
		formatTime(booking.End),
		booking.Status,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1

	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	booking, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("booking %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// CountOverlapping returns how many APPROVED bookings of the item share at
// least one instant with [start, end). Touching endpoints do not count.
// excludeID skips the booking being approved itself.
func (db *DB) CountOverlapping(ctx context.Context, itemID int64, start, end time.Time, excludeID int64) (int, error) {
	query := `SELECT COUNT(*) FROM bookings
              WHERE item_id = ? AND status = ? AND id != ?
              AND NOT (start_date >= ? OR ? >= end_date)`
	var count int
	err := db.QueryRowContext(ctx, query,
		itemID, models.StatusApproved, excludeID,
		formatTime(end), formatTime(start),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count overlapping bookings: %w", err)
	}
	return count, nil
}

// ApproveBookingTx re-reads the booking, checks the overlap invariant and
// flips the status to APPROVED inside a single transaction. The version guard
// on the UPDATE turns a lost race into ErrVersionConflict instead of a
// silent double-approval.
func (db *DB) ApproveBookingTx(ctx context.Context, bookingID int64) (*models.Booking, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	booking, err := scanBooking(tx.QueryRowContext(ctx, query, bookingID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("booking %d: %w", bookingID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read booking in tx: %w", err)
	}

	if booking.Status != models.StatusWaiting {
		return nil, fmt.Errorf("booking %d is %s: %w", bookingID, booking.Status, ErrInvalidState)
	}

	queryCount := `SELECT COUNT(*) FROM bookings
                   WHERE item_id = ? AND status = ? AND id != ?
                   AND NOT (start_date >= ? OR ? >= end_date)`
	var overlaps int
	err = tx.QueryRowContext(ctx, queryCount,
		booking.ItemID, models.StatusApproved, booking.ID,
		formatTime(booking.End), formatTime(booking.Start),
	).Scan(&overlaps)
	if err != nil {
		return nil, fmt.Errorf("failed to check overlaps in tx: %w", err)
	}
	if overlaps > 0 {
		return nil, fmt.Errorf("booking %d: %w", bookingID, ErrOverlap)
	}

	now := time.Now()
	result, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?, updated_at = ?, version = version + 1
         WHERE id = ? AND version = ? AND status = ?`,
		models.StatusApproved, now, booking.ID, booking.Version, models.StatusWaiting,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to approve booking: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("booking %d: %w", bookingID, ErrVersionConflict)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit approval: %w", err)
	}

	booking.Status = models.StatusApproved
	booking.UpdatedAt = now
	booking.Version++
	return booking, nil
}

// UpdateBookingStatusWithVersion moves a WAITING booking to a terminal status.
// Zero affected rows means the booking changed underneath the caller.
func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id, version int64, status string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE bookings SET status = ?, updated_at = ?, version = version + 1
         WHERE id = ? AND version = ? AND status = ?`,
		status, time.Now(), id, version, models.StatusWaiting,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("booking %d: %w", id, ErrVersionConflict)
	}
	return nil
}

// ListQuery parameterizes the booking listings: whose bookings (identity plus
// owner/booker role), which time or status filter, and the page window.
type ListQuery struct {
	UserID int64
	Role   string
	Filter string
	Status string
	Now    time.Time
	From   int
	Size   int
}

// ListBookings runs the five listing queries. All filters order by start
// descending except FUTURE which orders by end descending; that asymmetry is
// load-bearing for callers and pinned by tests.
func (db *DB) ListBookings(ctx context.Context, q ListQuery) ([]models.Booking, error) {
	var who string
	switch q.Role {
	case models.RoleOwner:
		who = `b.item_id IN (SELECT id FROM items WHERE owner_id = ?)`
	case models.RoleBooker:
		who = `b.booker_id = ?`
	default:
		return nil, fmt.Errorf("unknown listing role %q: %w", q.Role, ErrValidation)
	}

	nowStr := formatTime(q.Now)
	query := `SELECT ` + bookingColumns + ` FROM bookings b WHERE ` + who
	args := []any{q.UserID}

	switch q.Filter {
	case models.FilterAll:
		query += ` ORDER BY b.start_date DESC`
	case models.FilterCurrent:
		query += ` AND b.start_date <= ? AND b.end_date >= ? ORDER BY b.start_date DESC`
		args = append(args, nowStr, nowStr)
	case models.FilterPast:
		query += ` AND b.end_date < ? ORDER BY b.start_date DESC`
		args = append(args, nowStr)
	case models.FilterFuture:
		query += ` AND b.start_date > ? ORDER BY b.end_date DESC`
		args = append(args, nowStr)
	case models.FilterByStatus:
		query += ` AND b.status = ? ORDER BY b.start_date DESC`
		args = append(args, q.Status)
	default:
		return nil, fmt.Errorf("unknown listing filter %q: %w", q.Filter, ErrValidation)
	}

	query += ` LIMIT ? OFFSET ?`
	args = append(args, q.Size, q.From)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return bookings, nil
}

// NextBooking returns the approved booking with start >= now that ends
// earliest, or nil when the item has no future approved booking.
func (db *DB) NextBooking(ctx context.Context, itemID int64, now time.Time) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE item_id = ? AND status = ? AND start_date >= ?
              ORDER BY end_date ASC LIMIT 1`
	booking, err := scanBooking(db.QueryRowContext(ctx, query, itemID, models.StatusApproved, formatTime(now)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get next booking: %w", err)
	}
	return booking, nil
}

// LastBooking returns the approved booking with start <= now that ends
// latest, or nil when the item has no past or ongoing approved booking.
func (db *DB) LastBooking(ctx context.Context, itemID int64, now time.Time) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE item_id = ? AND status = ? AND start_date <= ?
              ORDER BY end_date DESC LIMIT 1`
	booking, err := scanBooking(db.QueryRowContext(ctx, query, itemID, models.StatusApproved, formatTime(now)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last booking: %w", err)
	}
	return booking, nil
}

// BookingsInRange returns every booking that shares at least one instant with
// [start, end), grouped by item for report building.
func (db *DB) BookingsInRange(ctx context.Context, start, end time.Time) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE NOT (start_date >= ? OR ? >= end_date)
              ORDER BY item_id, start_date`
	rows, err := db.QueryContext(ctx, query, formatTime(end), formatTime(start))
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings in range: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return bookings, nil
}

// CountUsage returns how many approved bookings the user holds on the item
// whose period has already begun. Comment eligibility reads this.
func (db *DB) CountUsage(ctx context.Context, bookerID, itemID int64, now time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM bookings
              WHERE booker_id = ? AND item_id = ? AND status = ? AND start_date < ?`
	var count int
	err := db.QueryRowContext(ctx, query, bookerID, itemID, models.StatusApproved, formatTime(now)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count usage: %w", err)
	}
	return count, nil
}
