package services

import (
	"context"
	"time"

	"inventory-ledger/models"
	"inventory-ledger/repository"

	"go.uber.org/zap"
)

// Thresholds is the effective low/critical pair for one product after
// override resolution.
type Thresholds struct {
	LowPct      float64
	CriticalPct float64
}

// ResolveThresholds picks the thresholds for a record: an enabled product
// override wins, then an enabled category override, then the global settings.
func ResolveThresholds(rec *models.StockRecord, settings *models.AlertSettings, overrides []models.AlertOverride) Thresholds {
	var categoryHit *models.AlertOverride
	for i := range overrides {
		o := &overrides[i]
		if !o.Enabled {
			continue
		}
		if o.Scope == models.OverrideProduct && o.RefID == rec.ProductID {
			return Thresholds{LowPct: o.LowStockThresholdPct, CriticalPct: o.CriticalStockThresholdPct}
		}
		if o.Scope == models.OverrideCategory && rec.Category != "" && o.RefID == rec.Category {
			categoryHit = o
		}
	}
	if categoryHit != nil {
		return Thresholds{LowPct: categoryHit.LowStockThresholdPct, CriticalPct: categoryHit.CriticalStockThresholdPct}
	}
	return Thresholds{LowPct: settings.LowStockThresholdPct, CriticalPct: settings.CriticalStockThresholdPct}
}

// StockPercentage computes available/max as a percentage. A max level of
// zero cannot be divided through and reads as fully depleted.
func StockPercentage(available, maxLevel int) float64 {
	if maxLevel <= 0 {
		return 0
	}
	return float64(available) / float64(maxLevel) * 100
}

// Classify maps a record to its alert status under the given thresholds.
func Classify(rec *models.StockRecord, th Thresholds) models.ProductAlert {
	available := rec.AvailableStock()
	pct := StockPercentage(available, rec.MaxStockLevel)

	status := models.AlertInStock
	switch {
	case available <= 0:
		status = models.AlertOutOfStock
	case pct <= th.CriticalPct:
		status = models.AlertCritical
	case pct <= th.LowPct:
		status = models.AlertLow
	}

	return models.ProductAlert{
		ProductID:       rec.ProductID,
		Category:        rec.Category,
		PhysicalStock:   rec.PhysicalStock,
		ReservedStock:   rec.ReservedStock,
		AvailableStock:  available,
		MaxStockLevel:   rec.MaxStockLevel,
		StockPercentage: pct,
		Status:          status,
	}
}

// AlertService evaluates stock alert levels and manages the threshold
// configuration. Evaluate has no side effects and is safe to call on every
// dashboard refresh.
type AlertService interface {
	Evaluate(ctx context.Context) (*models.AlertReport, *ServiceError)
	GetSettings(ctx context.Context) (*models.AlertSettings, *ServiceError)
	UpdateSettings(ctx context.Context, req *models.UpdateAlertSettingsRequest) (*models.AlertSettings, *ServiceError)
	UpsertOverride(ctx context.Context, req *models.UpsertOverrideRequest) (*models.AlertOverride, *ServiceError)
}

type alertServiceImpl struct {
	stockRepo repository.StockRepository
	alertRepo repository.AlertRepository
	logger    *zap.Logger
}

// NewAlertService creates a new AlertService.
func NewAlertService(stockRepo repository.StockRepository, alertRepo repository.AlertRepository, logger *zap.Logger) AlertService {
	return &alertServiceImpl{stockRepo: stockRepo, alertRepo: alertRepo, logger: logger}
}

func (s *alertServiceImpl) Evaluate(ctx context.Context) (*models.AlertReport, *ServiceError) {
	records, err := s.stockRepo.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list stock records for alert evaluation", zap.Error(err))
		return nil, internalError("Failed to evaluate alerts")
	}
	settings, err := s.alertRepo.GetSettings(ctx)
	if err != nil {
		s.logger.Error("Failed to load alert settings", zap.Error(err))
		return nil, internalError("Failed to evaluate alerts")
	}
	overrides, err := s.alertRepo.ListOverrides(ctx)
	if err != nil {
		s.logger.Error("Failed to load alert overrides", zap.Error(err))
		return nil, internalError("Failed to evaluate alerts")
	}

	report := &models.AlertReport{
		Items: make([]models.ProductAlert, 0, len(records)),
		Counts: map[models.AlertStatus]int{
			models.AlertOutOfStock: 0,
			models.AlertCritical:   0,
			models.AlertLow:        0,
			models.AlertInStock:    0,
		},
		Total:       len(records),
		EvaluatedAt: time.Now().UTC(),
	}

	for i := range records {
		item := Classify(&records[i], ResolveThresholds(&records[i], settings, overrides))
		report.Items = append(report.Items, item)
		report.Counts[item.Status]++
	}

	return report, nil
}

func (s *alertServiceImpl) GetSettings(ctx context.Context) (*models.AlertSettings, *ServiceError) {
	settings, err := s.alertRepo.GetSettings(ctx)
	if err != nil {
		return nil, internalError("Failed to load alert settings")
	}
	return settings, nil
}

func (s *alertServiceImpl) UpdateSettings(ctx context.Context, req *models.UpdateAlertSettingsRequest) (*models.AlertSettings, *ServiceError) {
	settings, err := s.alertRepo.GetSettings(ctx)
	if err != nil {
		return nil, internalError("Failed to load alert settings")
	}

	if req.LowStockThresholdPct != nil {
		settings.LowStockThresholdPct = *req.LowStockThresholdPct
	}
	if req.CriticalStockThresholdPct != nil {
		settings.CriticalStockThresholdPct = *req.CriticalStockThresholdPct
	}
	if settings.CriticalStockThresholdPct > settings.LowStockThresholdPct {
		return nil, newError(400, CodeInvalidThresholds, "Critical threshold cannot exceed low threshold")
	}
	if req.NotificationsEnabled != nil {
		settings.NotificationsEnabled = *req.NotificationsEnabled
	}
	if req.NotifyOutOfStock != nil {
		settings.NotifyOutOfStock = *req.NotifyOutOfStock
	}
	if req.NotifyCritical != nil {
		settings.NotifyCritical = *req.NotifyCritical
	}
	if req.NotifyLow != nil {
		settings.NotifyLow = *req.NotifyLow
	}

	if err := s.alertRepo.SaveSettings(ctx, settings); err != nil {
		s.logger.Error("Failed to save alert settings", zap.Error(err))
		return nil, internalError("Failed to save alert settings")
	}

	s.logger.Info("Alert settings updated",
		zap.Float64("low_pct", settings.LowStockThresholdPct),
		zap.Float64("critical_pct", settings.CriticalStockThresholdPct))
	return settings, nil
}

func (s *alertServiceImpl) UpsertOverride(ctx context.Context, req *models.UpsertOverrideRequest) (*models.AlertOverride, *ServiceError) {
	if req.CriticalStockThresholdPct > req.LowStockThresholdPct {
		return nil, newError(400, CodeInvalidThresholds, "Critical threshold cannot exceed low threshold")
	}
	override := &models.AlertOverride{
		Scope:                     req.Scope,
		RefID:                     req.RefID,
		LowStockThresholdPct:      req.LowStockThresholdPct,
		CriticalStockThresholdPct: req.CriticalStockThresholdPct,
		Enabled:                   req.Enabled,
	}
	if err := s.alertRepo.UpsertOverride(ctx, override); err != nil {
		s.logger.Error("Failed to upsert alert override", zap.Error(err))
		return nil, internalError("Failed to save alert override")
	}
	return override, nil
}
