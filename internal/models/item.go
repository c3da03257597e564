package models

import "time"

type Item struct {
	ID          int64     `yaml:"id" json:"id"`
	OwnerID     int64     `yaml:"owner_id" json:"owner_id"`
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description" json:"description"`
	Available   bool      `yaml:"available" json:"available"`
	CreatedAt   time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt   time.Time `yaml:"updated_at" json:"updated_at"`
}

// ItemView is an item as returned to callers: the owner additionally sees
// the nearest future and most recent approved bookings.
type ItemView struct {
	Item
	NextBooking *Booking  `json:"next_booking,omitempty"`
	LastBooking *Booking  `json:"last_booking,omitempty"`
	Comments    []Comment `json:"comments,omitempty"`
}
