package models

import (
	"time"
)

// StockRecord holds the per-product stock counters stored in Postgres.
// physical_stock and reserved_stock are the only persisted counters;
// available stock is always derived as physical - reserved. Version is the
// optimistic concurrency token: every mutation must carry the version it
// read and bumps it by one on commit.
type StockRecord struct {
	ProductID     string    `gorm:"type:varchar(64);primaryKey" json:"product_id"`
	Category      string    `gorm:"type:varchar(64);index" json:"category,omitempty"`
	Active        bool      `gorm:"not null;default:true" json:"active"`
	PhysicalStock int       `gorm:"not null;default:0" json:"physical_stock"`
	ReservedStock int       `gorm:"not null;default:0" json:"reserved_stock"`
	ReorderPoint  int       `gorm:"not null;default:0" json:"reorder_point"`
	MaxStockLevel int       `gorm:"not null;default:0" json:"max_stock_level"` // 0 = no cap
	Version       int64     `gorm:"not null;default:1" json:"version"`
	LastUpdateAt  time.Time `gorm:"autoUpdateTime" json:"last_update_at"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// AvailableStock returns the quantity offerable to new reservations.
func (s *StockRecord) AvailableStock() int {
	return s.PhysicalStock - s.ReservedStock
}

// StockRecordResponse is a StockRecord with the derived available count attached.
type StockRecordResponse struct {
	StockRecord
	AvailableStock int `json:"available_stock"`
}

// NewStockRecordResponse builds the API view of a stock record.
func NewStockRecordResponse(rec *StockRecord) *StockRecordResponse {
	return &StockRecordResponse{StockRecord: *rec, AvailableStock: rec.AvailableStock()}
}

// CreateStockRequest initializes the ledger for a product.
type CreateStockRequest struct {
	ProductID     string `json:"product_id" binding:"required"`
	Category      string `json:"category"`
	PhysicalStock int    `json:"physical_stock" binding:"gte=0"`
	ReorderPoint  int    `json:"reorder_point" binding:"gte=0"`
	MaxStockLevel int    `json:"max_stock_level" binding:"gte=0"`
}

// UpdateStockRequest partially updates thresholds and sellability flags.
// Counters are never updated through this path; adjustments own those.
type UpdateStockRequest struct {
	Category      *string `json:"category"`
	Active        *bool   `json:"active"`
	ReorderPoint  *int    `json:"reorder_point" binding:"omitempty,gte=0"`
	MaxStockLevel *int    `json:"max_stock_level" binding:"omitempty,gte=0"`
}

// AdjustmentType enumerates the supported physical stock mutations.
type AdjustmentType string

const (
	AdjustmentIncrease AdjustmentType = "increase"
	AdjustmentDecrease AdjustmentType = "decrease"
	AdjustmentSet      AdjustmentType = "set"
)

// AdjustmentReason maps an adjustment to the audit operation type it records.
type AdjustmentReason string

const (
	ReasonManual              AdjustmentReason = "manual"
	ReasonReturn              AdjustmentReason = "return"
	ReasonCancellationRestock AdjustmentReason = "cancellation_restock"
)

// AdjustRequest is the payload for POST /inventory/adjust.
type AdjustRequest struct {
	ProductID string         `json:"product_id" binding:"required"`
	Type      AdjustmentType `json:"type" binding:"required,oneof=increase decrease set"`
	Quantity  int            `json:"quantity" binding:"gte=0"`
	Reason    string         `json:"reason" binding:"required,min=1"`
	// ReasonCode selects the audit operation type; defaults to manual.
	ReasonCode AdjustmentReason `json:"reason_code" binding:"omitempty,oneof=manual return cancellation_restock"`
	Reference  string           `json:"reference"`
	Notes      string           `json:"notes"`
}

// AdjustmentResult reports the counters after a successful adjustment.
type AdjustmentResult struct {
	AdjustmentID   string         `json:"adjustment_id"`
	ProductID      string         `json:"product_id"`
	Type           AdjustmentType `json:"type"`
	Quantity       int            `json:"quantity"`
	PhysicalStock  int            `json:"physical_stock"`
	ReservedStock  int            `json:"reserved_stock"`
	AvailableStock int            `json:"available_stock"`
	Version        int64          `json:"version"`
	AppliedAt      time.Time      `json:"applied_at"`
}

// CheckItem is a single product + quantity in an availability check.
type CheckItem struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// CheckStockRequest asks for a pre-checkout availability report.
type CheckStockRequest struct {
	Items []CheckItem `json:"items" binding:"required,min=1,dive"`
}

// StockCheckResult reports availability for a single product.
type StockCheckResult struct {
	ProductID      string `json:"product_id"`
	PhysicalStock  int    `json:"physical_stock"`
	ReservedStock  int    `json:"reserved_stock"`
	AvailableStock int    `json:"available_stock"`
	Requested      int    `json:"requested"`
	IsSufficient   bool   `json:"is_sufficient"`
}
