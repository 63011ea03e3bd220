package notifier

import (
	"context"
	"encoding/json"
	"time"

	"inventory-ledger/models"
	"inventory-ledger/repository"
	"inventory-ledger/services"

	"go.uber.org/zap"
)

// LowStockEvent is the SNS payload for a stock alert notification.
type LowStockEvent struct {
	EventType       string             `json:"event_type"`
	ProductID       string             `json:"product_id"`
	Status          models.AlertStatus `json:"status"`
	AvailableStock  int                `json:"available_stock"`
	MaxStockLevel   int                `json:"max_stock_level"`
	StockPercentage float64            `json:"stock_percentage"`
	Timestamp       time.Time          `json:"timestamp"`
}

// LowStockNotifier publishes an SNS notification when a mutation leaves a
// product at or below its alert thresholds. It runs after commit, best
// effort: a publish failure never fails the stock operation.
type LowStockNotifier struct {
	sns       SNSPublisher
	topicArn  string
	alertRepo repository.AlertRepository
	logger    *zap.Logger
}

// NewLowStockNotifier creates a LowStockNotifier.
func NewLowStockNotifier(sns SNSPublisher, topicArn string, alertRepo repository.AlertRepository, logger *zap.Logger) *LowStockNotifier {
	return &LowStockNotifier{sns: sns, topicArn: topicArn, alertRepo: alertRepo, logger: logger}
}

// CheckAndNotify classifies the record against the current settings and
// publishes when the status matches an enabled toggle.
func (n *LowStockNotifier) CheckAndNotify(ctx context.Context, rec *models.StockRecord) {
	if n == nil || n.sns == nil || n.topicArn == "" {
		return
	}

	settings, err := n.alertRepo.GetSettings(ctx)
	if err != nil {
		n.logger.Warn("Low-stock check skipped: settings unavailable", zap.Error(err))
		return
	}
	if !settings.NotificationsEnabled {
		return
	}
	overrides, err := n.alertRepo.ListOverrides(ctx)
	if err != nil {
		n.logger.Warn("Low-stock check skipped: overrides unavailable", zap.Error(err))
		return
	}

	alert := services.Classify(rec, services.ResolveThresholds(rec, settings, overrides))

	notify := false
	switch alert.Status {
	case models.AlertOutOfStock:
		notify = settings.NotifyOutOfStock
	case models.AlertCritical:
		notify = settings.NotifyCritical
	case models.AlertLow:
		notify = settings.NotifyLow
	}
	if !notify {
		return
	}

	payload, err := json.Marshal(LowStockEvent{
		EventType:       "inventory.stock_alert",
		ProductID:       alert.ProductID,
		Status:          alert.Status,
		AvailableStock:  alert.AvailableStock,
		MaxStockLevel:   alert.MaxStockLevel,
		StockPercentage: alert.StockPercentage,
		Timestamp:       time.Now().UTC(),
	})
	if err != nil {
		return
	}

	if err := n.sns.Publish(ctx, n.topicArn, payload); err != nil {
		n.logger.Warn("Low-stock notification publish failed",
			zap.String("product_id", alert.ProductID), zap.Error(err))
		return
	}
	n.logger.Info("Low-stock notification published",
		zap.String("product_id", alert.ProductID),
		zap.String("status", string(alert.Status)))
}
