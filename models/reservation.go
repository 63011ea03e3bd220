package models

import (
	"time"

	"github.com/google/uuid"
)

// ReservationStatus is the reservation state machine. Active is the only
// non-terminal state; released, fulfilled and expired admit no transitions.
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationReleased  ReservationStatus = "released"
	ReservationFulfilled ReservationStatus = "fulfilled"
	ReservationExpired   ReservationStatus = "expired"
)

// IsTerminal reports whether the status admits no further transitions.
func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationReleased || s == ReservationFulfilled || s == ReservationExpired
}

// Reservation is a time-bounded soft hold against available stock.
// Exactly one of SessionID (guest checkout) or UserID is set.
type Reservation struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID  string            `gorm:"type:varchar(64);index;not null" json:"product_id"`
	Quantity   int               `gorm:"not null" json:"quantity"`
	Status     ReservationStatus `gorm:"type:varchar(16);index;not null;default:'active'" json:"status"`
	SessionID  string            `gorm:"type:varchar(128)" json:"session_id,omitempty"`
	UserID     string            `gorm:"type:varchar(64);index" json:"user_id,omitempty"`
	Reference  string            `gorm:"type:varchar(128);index" json:"reference,omitempty"`
	CreatedAt  time.Time         `gorm:"autoCreateTime" json:"created_at"`
	ExpiresAt  *time.Time        `gorm:"index" json:"expires_at,omitempty"` // nil = no auto-expiry
	ReleasedAt *time.Time        `json:"released_at,omitempty"`
}

// ReserveRequest is the payload for creating a hold.
type ReserveRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Reference string `json:"reference"`
	// TTLSeconds bounds the hold; 0 falls back to the configured default,
	// a negative value creates a hold with no auto-expiry.
	TTLSeconds int `json:"ttl_seconds"`
}

// ReserveResponse returns the created hold plus the counters it left behind.
type ReserveResponse struct {
	Reservation    Reservation `json:"reservation"`
	PhysicalStock  int         `json:"physical_stock"`
	ReservedStock  int         `json:"reserved_stock"`
	AvailableStock int         `json:"available_stock"`
}

// FulfillRequest bulk-converts active holds into physical decrements.
type FulfillRequest struct {
	ReservationIDs []uuid.UUID `json:"reservation_ids" binding:"required,min=1"`
	Reference      string      `json:"reference"`
}

// FulfillItemResult reports the outcome for one reservation in a bulk fulfill.
type FulfillItemResult struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	Fulfilled     bool      `json:"fulfilled"`
	Error         string    `json:"error,omitempty"`
}

// SweepResult reports an expiry sweep run.
type SweepResult struct {
	Processed int       `json:"processed"`
	SweptAt   time.Time `json:"swept_at"`
}
