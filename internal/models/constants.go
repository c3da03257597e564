package models

// Booking lifecycle statuses. Values are persisted and compared in SQL,
// so they never change casing.
const (
	StatusWaiting  = "WAITING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
	StatusCanceled = "CANCELED"
)

// ValidStatus reports whether s is a known booking status.
func ValidStatus(s string) bool {
	switch s {
	case StatusWaiting, StatusApproved, StatusRejected, StatusCanceled:
		return true
	}
	return false
}

// Listing roles: whose bookings a listing query returns.
const (
	RoleOwner  = "owner"
	RoleBooker = "booker"
)

// Listing filters over booking time and status.
const (
	FilterAll      = "ALL"
	FilterCurrent  = "CURRENT"
	FilterPast     = "PAST"
	FilterFuture   = "FUTURE"
	FilterByStatus = "BY_STATUS"
)

const (
	// DefaultPageSize applies when a listing request omits size.
	DefaultPageSize = 20

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 1000

	// ProjectionCacheTTL время жизни кэша проекций next/last в секундах
	ProjectionCacheTTL = 60
)
