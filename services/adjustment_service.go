package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"inventory-ledger/events"
	"inventory-ledger/models"
	"inventory-ledger/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdjustmentService applies explicit, audited changes to physical stock.
// Validation failures carry the current counters so the caller can decide on
// a corrective quantity; they are never retried by the service.
type AdjustmentService interface {
	Adjust(ctx context.Context, req *models.AdjustRequest, actor string) (*models.AdjustmentResult, *ServiceError)
}

type adjustmentServiceImpl struct {
	stockRepo  repository.StockRepository
	publisher  events.Publisher
	notifier   StockNotifier
	cache      CacheInvalidator
	logger     *zap.Logger
	maxRetries int
}

// NewAdjustmentService creates a new AdjustmentService.
func NewAdjustmentService(
	stockRepo repository.StockRepository,
	publisher events.Publisher,
	notifier StockNotifier,
	cache CacheInvalidator,
	logger *zap.Logger,
	maxRetries int,
) AdjustmentService {
	if maxRetries < 1 {
		maxRetries = 3
	}
	return &adjustmentServiceImpl{
		stockRepo:  stockRepo,
		publisher:  publisher,
		notifier:   notifier,
		cache:      cache,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Adjust executes an increase/decrease/set against physical stock as a
// single compare-and-swap, emitting one audit entry capturing before/after
// for all three counters. Bounds: a result above max_stock_level (when a cap
// is set) is ExceedsMaxStock; a result below zero, or below the currently
// reserved quantity (which would drive available stock negative), is
// NegativeStock.
func (s *adjustmentServiceImpl) Adjust(ctx context.Context, req *models.AdjustRequest, actor string) (*models.AdjustmentResult, *ServiceError) {
	op := operationTypeFor(req.ReasonCode)

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		rec, err := s.stockRepo.Get(ctx, req.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, newError(http.StatusNotFound, CodeProductNotFound, "No stock record for product")
			}
			s.logger.Error("Failed to load stock record", zap.String("product_id", req.ProductID), zap.Error(err))
			return nil, internalError("Failed to load stock record")
		}

		var newPhysical int
		switch req.Type {
		case models.AdjustmentIncrease:
			newPhysical = rec.PhysicalStock + req.Quantity
		case models.AdjustmentDecrease:
			newPhysical = rec.PhysicalStock - req.Quantity
		case models.AdjustmentSet:
			newPhysical = req.Quantity
		default:
			return nil, newError(http.StatusBadRequest, CodeInternal, "Unknown adjustment type")
		}

		if svcErr := validateBounds(rec, newPhysical); svcErr != nil {
			return nil, svcErr
		}

		updated := *rec
		updated.PhysicalStock = newPhysical

		notes := req.Reason
		if req.Notes != "" {
			notes = req.Reason + ": " + req.Notes
		}
		adjustmentID := uuid.New()

		err = s.stockRepo.Commit(ctx, &repository.StockMutation{
			Record:          &updated,
			ExpectedVersion: rec.Version,
			Audit: newAuditEntry(rec, &updated, op, req.Quantity,
				firstNonEmpty(req.Reference, adjustmentID.String()), actor, notes),
		})
		if errors.Is(err, repository.ErrVersionConflict) {
			continue
		}
		if err != nil {
			s.logger.Error("Failed to commit adjustment", zap.String("product_id", req.ProductID), zap.Error(err))
			return nil, internalError("Failed to apply adjustment")
		}

		updated.Version = rec.Version + 1
		s.afterMutation(ctx, &updated, events.StockEvent{
			EventType: events.EventStockAdjusted,
			ProductID: updated.ProductID,
			Quantity:  req.Quantity,
			Reference: req.Reference,
			Actor:     actor,
		})

		s.logger.Info("Stock adjusted",
			zap.String("product_id", req.ProductID),
			zap.String("type", string(req.Type)),
			zap.Int("quantity", req.Quantity),
			zap.String("reason", req.Reason),
			zap.String("actor", actor))

		return &models.AdjustmentResult{
			AdjustmentID:   adjustmentID.String(),
			ProductID:      updated.ProductID,
			Type:           req.Type,
			Quantity:       req.Quantity,
			PhysicalStock:  updated.PhysicalStock,
			ReservedStock:  updated.ReservedStock,
			AvailableStock: updated.AvailableStock(),
			Version:        updated.Version,
			AppliedAt:      time.Now().UTC(),
		}, nil
	}

	s.logger.Warn("Adjustment abandoned after contention", zap.String("product_id", req.ProductID))
	return nil, contentionError()
}

func validateBounds(rec *models.StockRecord, newPhysical int) *ServiceError {
	counters := func() map[string]interface{} {
		return map[string]interface{}{
			"product_id":      rec.ProductID,
			"physical_stock":  rec.PhysicalStock,
			"reserved_stock":  rec.ReservedStock,
			"available_stock": rec.AvailableStock(),
			"max_stock_level": rec.MaxStockLevel,
		}
	}
	if newPhysical < 0 {
		return newError(http.StatusBadRequest, CodeNegativeStock,
			"Adjustment would drive physical stock negative").withDetails(counters())
	}
	if newPhysical < rec.ReservedStock {
		return newError(http.StatusBadRequest, CodeNegativeStock,
			"Adjustment would drop physical stock below reserved holds").withDetails(counters())
	}
	if rec.MaxStockLevel > 0 && newPhysical > rec.MaxStockLevel {
		return newError(http.StatusBadRequest, CodeExceedsMaxStock,
			"Adjustment would exceed max stock level").withDetails(counters())
	}
	return nil
}

func operationTypeFor(reason models.AdjustmentReason) models.OperationType {
	switch reason {
	case models.ReasonReturn:
		return models.OpReturn
	case models.ReasonCancellationRestock:
		return models.OpCancellationRestock
	default:
		return models.OpAdjustment
	}
}

func (s *adjustmentServiceImpl) afterMutation(ctx context.Context, rec *models.StockRecord, evt events.StockEvent) {
	evt.PhysicalStock = rec.PhysicalStock
	evt.ReservedStock = rec.ReservedStock
	evt.AvailableStock = rec.AvailableStock()

	if s.publisher != nil {
		if err := s.publisher.PublishStockEvent(ctx, evt); err != nil {
			s.logger.Warn("Stock event publish failed",
				zap.String("event_type", string(evt.EventType)), zap.Error(err))
		}
	}
	if s.cache != nil {
		s.cache.InvalidateAsync()
	}
	if s.notifier != nil {
		s.notifier.CheckAndNotify(ctx, rec)
	}
}
