package services

import (
	"context"

	"inventory-ledger/models"
	"inventory-ledger/repository"

	"github.com/google/uuid"
)

// newAuditEntry snapshots the counters around a mutation. The after-fields
// must equal the stock record exactly as committed; callers pass the record
// states they handed to the repository, not re-read ones.
func newAuditEntry(before, after *models.StockRecord, op models.OperationType, quantity int, reference, actor, notes string) *models.AuditEntry {
	return &models.AuditEntry{
		ID:                   uuid.New(),
		ProductID:            before.ProductID,
		OperationType:        op,
		PhysicalStockBefore:  before.PhysicalStock,
		PhysicalStockAfter:   after.PhysicalStock,
		ReservedStockBefore:  before.ReservedStock,
		ReservedStockAfter:   after.ReservedStock,
		AvailableStockBefore: before.AvailableStock(),
		AvailableStockAfter:  after.AvailableStock(),
		QuantityAffected:     quantity,
		Reference:            reference,
		Actor:                actor,
		Notes:                notes,
	}
}

// AuditService exposes read access to the audit ledger.
type AuditService interface {
	Query(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntryView, int64, *ServiceError)
}

type auditServiceImpl struct {
	repo repository.AuditRepository
}

// NewAuditService creates a new AuditService.
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditServiceImpl{repo: repo}
}

// Query returns matching entries newest-first with per-counter deltas
// computed from the stored before/after pairs.
func (s *auditServiceImpl) Query(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntryView, int64, *ServiceError) {
	entries, total, err := s.repo.Query(ctx, filter)
	if err != nil {
		return nil, 0, internalError("Failed to query audit log")
	}
	views := make([]models.AuditEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, e.View())
	}
	return views, total, nil
}
