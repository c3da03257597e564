package models

import "time"

type Booking struct {
	ID        int64     `json:"id"`
	ItemID    int64     `json:"item_id"`
	BookerID  int64     `json:"booker_id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Status    string    `json:"status"` // WAITING, APPROVED, REJECTED, CANCELED
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// Overlaps reports whether the [Start, End) intervals of two bookings share
// at least one instant. Touching endpoints do not overlap.
func (b *Booking) Overlaps(other *Booking) bool {
	return b.OverlapsRange(other.Start, other.End)
}

// OverlapsRange reports whether the booking shares at least one instant with
// the half-open interval [start, end).
func (b *Booking) OverlapsRange(start, end time.Time) bool {
	return b.End.After(start) && end.After(b.Start)
}

// IsTerminal reports whether the booking reached a final state.
func (b *Booking) IsTerminal() bool {
	return b.Status != StatusWaiting
}
