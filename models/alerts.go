package models

import (
	"time"
)

// AlertStatus classifies a product's stock level.
type AlertStatus string

const (
	AlertOutOfStock AlertStatus = "out_of_stock"
	AlertCritical   AlertStatus = "critical"
	AlertLow        AlertStatus = "low"
	AlertInStock    AlertStatus = "in_stock"
)

// AlertSettings is the global threshold configuration, stored as a single
// row. Thresholds are percentages of max_stock_level.
type AlertSettings struct {
	ID                        int64     `gorm:"primaryKey" json:"-"`
	LowStockThresholdPct      float64   `gorm:"not null;default:20" json:"low_stock_threshold_pct"`
	CriticalStockThresholdPct float64   `gorm:"not null;default:10" json:"critical_stock_threshold_pct"`
	NotificationsEnabled      bool      `gorm:"not null;default:true" json:"notifications_enabled"`
	NotifyOutOfStock          bool      `gorm:"not null;default:true" json:"notify_out_of_stock"`
	NotifyCritical            bool      `gorm:"not null;default:true" json:"notify_critical"`
	NotifyLow                 bool      `gorm:"not null;default:false" json:"notify_low"`
	UpdatedAt                 time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// OverrideScope is the target kind of an alert override.
type OverrideScope string

const (
	OverrideProduct  OverrideScope = "product"
	OverrideCategory OverrideScope = "category"
)

// AlertOverride replaces the global thresholds for one product or category.
// A product override wins over a category override.
type AlertOverride struct {
	ID                        int64         `gorm:"primaryKey" json:"id"`
	Scope                     OverrideScope `gorm:"type:varchar(16);not null;uniqueIndex:idx_override_target" json:"scope"`
	RefID                     string        `gorm:"type:varchar(64);not null;uniqueIndex:idx_override_target" json:"ref_id"`
	LowStockThresholdPct      float64       `gorm:"not null" json:"low_stock_threshold_pct"`
	CriticalStockThresholdPct float64       `gorm:"not null" json:"critical_stock_threshold_pct"`
	Enabled                   bool          `gorm:"not null;default:true" json:"enabled"`
	UpdatedAt                 time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

// UpdateAlertSettingsRequest partially updates the global settings.
type UpdateAlertSettingsRequest struct {
	LowStockThresholdPct      *float64 `json:"low_stock_threshold_pct" binding:"omitempty,gte=0,lte=100"`
	CriticalStockThresholdPct *float64 `json:"critical_stock_threshold_pct" binding:"omitempty,gte=0,lte=100"`
	NotificationsEnabled      *bool    `json:"notifications_enabled"`
	NotifyOutOfStock          *bool    `json:"notify_out_of_stock"`
	NotifyCritical            *bool    `json:"notify_critical"`
	NotifyLow                 *bool    `json:"notify_low"`
}

// UpsertOverrideRequest creates or replaces a threshold override.
type UpsertOverrideRequest struct {
	Scope                     OverrideScope `json:"scope" binding:"required,oneof=product category"`
	RefID                     string        `json:"ref_id" binding:"required"`
	LowStockThresholdPct      float64       `json:"low_stock_threshold_pct" binding:"gte=0,lte=100"`
	CriticalStockThresholdPct float64       `json:"critical_stock_threshold_pct" binding:"gte=0,lte=100"`
	Enabled                   bool          `json:"enabled"`
}

// ProductAlert is the per-product classification produced by an evaluation.
type ProductAlert struct {
	ProductID       string      `json:"product_id"`
	Category        string      `json:"category,omitempty"`
	PhysicalStock   int         `json:"physical_stock"`
	ReservedStock   int         `json:"reserved_stock"`
	AvailableStock  int         `json:"available_stock"`
	MaxStockLevel   int         `json:"max_stock_level"`
	StockPercentage float64     `json:"stock_percentage"`
	Status          AlertStatus `json:"status"`
}

// AlertReport is the full evaluation: per-item rows plus aggregates.
type AlertReport struct {
	Items       []ProductAlert      `json:"items"`
	Counts      map[AlertStatus]int `json:"counts"`
	Total       int                 `json:"total"`
	EvaluatedAt time.Time           `json:"evaluated_at"`
}
