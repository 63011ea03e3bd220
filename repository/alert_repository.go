package repository

import (
	"context"
	"errors"

	"inventory-ledger/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AlertRepository stores the global alert settings row and the per-product /
// per-category threshold overrides.
type AlertRepository interface {
	GetSettings(ctx context.Context) (*models.AlertSettings, error)
	SaveSettings(ctx context.Context, s *models.AlertSettings) error
	ListOverrides(ctx context.Context) ([]models.AlertOverride, error)
	UpsertOverride(ctx context.Context, o *models.AlertOverride) error
}

// GormAlertRepository implements AlertRepository on Postgres.
type GormAlertRepository struct {
	db *gorm.DB
}

// NewGormAlertRepository creates a new GormAlertRepository.
func NewGormAlertRepository(db *gorm.DB) AlertRepository {
	return &GormAlertRepository{db: db}
}

// GetSettings returns the singleton settings row, creating it with defaults
// on first use.
func (r *GormAlertRepository) GetSettings(ctx context.Context) (*models.AlertSettings, error) {
	var s models.AlertSettings
	err := r.db.WithContext(ctx).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s = models.AlertSettings{
			LowStockThresholdPct:      20,
			CriticalStockThresholdPct: 10,
			NotificationsEnabled:      true,
			NotifyOutOfStock:          true,
			NotifyCritical:            true,
		}
		if err := r.db.WithContext(ctx).Create(&s).Error; err != nil {
			return nil, err
		}
		return &s, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *GormAlertRepository) SaveSettings(ctx context.Context, s *models.AlertSettings) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *GormAlertRepository) ListOverrides(ctx context.Context) ([]models.AlertOverride, error) {
	var out []models.AlertOverride
	err := r.db.WithContext(ctx).Find(&out).Error
	return out, err
}

// UpsertOverride inserts or replaces the override for a scope+ref pair.
func (r *GormAlertRepository) UpsertOverride(ctx context.Context, o *models.AlertOverride) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "scope"}, {Name: "ref_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"low_stock_threshold_pct", "critical_stock_threshold_pct", "enabled", "updated_at",
		}),
	}).Create(o).Error
}
