package models

import (
	"time"

	"github.com/google/uuid"
)

// OperationType tags an audit entry with the mutation that produced it.
type OperationType string

const (
	OpReservation         OperationType = "reservation"
	OpRelease             OperationType = "release"
	OpExpiry              OperationType = "expiry"
	OpFulfillment         OperationType = "fulfillment"
	OpAdjustment          OperationType = "adjustment"
	OpReturn              OperationType = "return"
	OpCancellationRestock OperationType = "cancellation_restock"
)

// AuditEntry is one append-only row per stock-affecting operation. It is
// inserted in the same transaction as the counter mutation and never updated
// or deleted afterwards. Change amounts are not stored; they are derived
// from the before/after pairs at query time.
type AuditEntry struct {
	ID                   uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID            string        `gorm:"type:varchar(64);index;not null" json:"product_id"`
	OperationType        OperationType `gorm:"type:varchar(32);index;not null" json:"operation_type"`
	PhysicalStockBefore  int           `gorm:"not null" json:"physical_stock_before"`
	PhysicalStockAfter   int           `gorm:"not null" json:"physical_stock_after"`
	ReservedStockBefore  int           `gorm:"not null" json:"reserved_stock_before"`
	ReservedStockAfter   int           `gorm:"not null" json:"reserved_stock_after"`
	AvailableStockBefore int           `gorm:"not null" json:"available_stock_before"`
	AvailableStockAfter  int           `gorm:"not null" json:"available_stock_after"`
	QuantityAffected     int           `gorm:"not null" json:"quantity_affected"`
	Reference            string        `gorm:"type:varchar(128);index" json:"reference,omitempty"`
	Actor                string        `gorm:"type:varchar(64)" json:"actor,omitempty"`
	Notes                string        `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt            time.Time     `gorm:"autoCreateTime;index" json:"created_at"`
}

// AuditFilter narrows an audit log query. Zero values mean "no filter".
type AuditFilter struct {
	ProductID     string
	Reference     string
	OperationType OperationType
	From          *time.Time
	To            *time.Time
	Page          int
	PageSize      int
}

// AuditEntryView is an AuditEntry with the per-counter deltas computed.
type AuditEntryView struct {
	AuditEntry
	PhysicalChange  int `json:"physical_change"`
	ReservedChange  int `json:"reserved_change"`
	AvailableChange int `json:"available_change"`
}

// View computes the derived change fields for API responses.
func (e AuditEntry) View() AuditEntryView {
	return AuditEntryView{
		AuditEntry:      e,
		PhysicalChange:  e.PhysicalStockAfter - e.PhysicalStockBefore,
		ReservedChange:  e.ReservedStockAfter - e.ReservedStockBefore,
		AvailableChange: e.AvailableStockAfter - e.AvailableStockBefore,
	}
}
