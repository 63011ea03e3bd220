package repository

import (
	"context"

	"inventory-ledger/models"

	"gorm.io/gorm"
)

// AuditRepository queries the append-only audit log. Entries are only ever
// inserted, and only inside StockRepository.Commit.
type AuditRepository interface {
	Query(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, int64, error)
}

// GormAuditRepository implements AuditRepository on Postgres.
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository.
func NewGormAuditRepository(db *gorm.DB) AuditRepository {
	return &GormAuditRepository{db: db}
}

// Query returns matching entries newest-first with the total match count.
func (r *GormAuditRepository) Query(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, int64, error) {
	var entries []models.AuditEntry
	var total int64

	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}
	if filter.Page < 1 {
		filter.Page = 1
	}

	query := r.db.WithContext(ctx).Model(&models.AuditEntry{})

	if filter.ProductID != "" {
		query = query.Where("product_id = ?", filter.ProductID)
	}
	if filter.Reference != "" {
		query = query.Where("reference = ?", filter.Reference)
	}
	if filter.OperationType != "" {
		query = query.Where("operation_type = ?", filter.OperationType)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.PageSize
	err := query.Order("created_at DESC").
		Limit(filter.PageSize).
		Offset(offset).
		Find(&entries).Error

	return entries, total, err
}
