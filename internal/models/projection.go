package models

// ItemProjection is the cached next/last booking snapshot for one item.
// Either side may be nil when no approved booking satisfies the predicate.
type ItemProjection struct {
	ItemID int64    `json:"item_id"`
	Next   *Booking `json:"next,omitempty"`
	Last   *Booking `json:"last,omitempty"`
}
