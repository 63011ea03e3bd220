package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"inventory-ledger/models"
	"inventory-ledger/repository"

	"go.uber.org/zap"
)

// StockService bootstraps and maintains stock records: creation with initial
// stock, threshold/sellability updates, and reads. Counters are never
// changed through this path; the adjustment engine and reservation manager
// own those.
type StockService interface {
	Get(ctx context.Context, productID string) (*models.StockRecordResponse, *ServiceError)
	Create(ctx context.Context, req *models.CreateStockRequest, actor string) (*models.StockRecordResponse, *ServiceError)
	Update(ctx context.Context, productID string, req *models.UpdateStockRequest) (*models.StockRecordResponse, *ServiceError)
}

type stockServiceImpl struct {
	stockRepo  repository.StockRepository
	cache      CacheInvalidator
	logger     *zap.Logger
	maxRetries int
}

// NewStockService creates a new StockService.
func NewStockService(stockRepo repository.StockRepository, cache CacheInvalidator, logger *zap.Logger, maxRetries int) StockService {
	if maxRetries < 1 {
		maxRetries = 3
	}
	return &stockServiceImpl{stockRepo: stockRepo, cache: cache, logger: logger, maxRetries: maxRetries}
}

func (s *stockServiceImpl) Get(ctx context.Context, productID string) (*models.StockRecordResponse, *ServiceError) {
	rec, err := s.stockRepo.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(http.StatusNotFound, CodeProductNotFound, "No stock record for product")
		}
		s.logger.Error("Failed to load stock record", zap.String("product_id", productID), zap.Error(err))
		return nil, internalError("Failed to load stock record")
	}
	return models.NewStockRecordResponse(rec), nil
}

// Create initializes the ledger for a product. The initial physical stock is
// recorded in the audit log as an adjustment so the ledger explains the
// opening balance.
func (s *stockServiceImpl) Create(ctx context.Context, req *models.CreateStockRequest, actor string) (*models.StockRecordResponse, *ServiceError) {
	if req.MaxStockLevel > 0 && req.PhysicalStock > req.MaxStockLevel {
		return nil, newError(http.StatusBadRequest, CodeExceedsMaxStock,
			"Initial stock exceeds max stock level")
	}

	rec := &models.StockRecord{
		ProductID:     req.ProductID,
		Category:      req.Category,
		Active:        true,
		PhysicalStock: req.PhysicalStock,
		ReservedStock: 0,
		ReorderPoint:  req.ReorderPoint,
		MaxStockLevel: req.MaxStockLevel,
		Version:       1,
	}

	empty := models.StockRecord{ProductID: req.ProductID}
	audit := newAuditEntry(&empty, rec, models.OpAdjustment, req.PhysicalStock, "", actor, "initial stock")

	if err := s.stockRepo.Create(ctx, rec, audit); err != nil {
		if isDuplicateKey(err) {
			return nil, newError(http.StatusConflict, CodeDuplicateProduct,
				"Stock record already exists for product")
		}
		s.logger.Error("Failed to create stock record", zap.String("product_id", req.ProductID), zap.Error(err))
		return nil, internalError("Failed to create stock record")
	}

	if s.cache != nil {
		s.cache.InvalidateAsync()
	}
	s.logger.Info("Stock record created",
		zap.String("product_id", rec.ProductID),
		zap.Int("physical_stock", rec.PhysicalStock),
		zap.Int("max_stock_level", rec.MaxStockLevel))
	return models.NewStockRecordResponse(rec), nil
}

// Update changes thresholds, category or the sellable flag through the same
// versioned path as counter mutations, so no writer ever bypasses the
// optimistic concurrency token.
func (s *stockServiceImpl) Update(ctx context.Context, productID string, req *models.UpdateStockRequest) (*models.StockRecordResponse, *ServiceError) {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		rec, err := s.stockRepo.Get(ctx, productID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, newError(http.StatusNotFound, CodeProductNotFound, "No stock record for product")
			}
			return nil, internalError("Failed to load stock record")
		}

		updated := *rec
		if req.Category != nil {
			updated.Category = *req.Category
		}
		if req.Active != nil {
			updated.Active = *req.Active
		}
		if req.ReorderPoint != nil {
			updated.ReorderPoint = *req.ReorderPoint
		}
		if req.MaxStockLevel != nil {
			updated.MaxStockLevel = *req.MaxStockLevel
		}
		if updated.MaxStockLevel > 0 && updated.PhysicalStock > updated.MaxStockLevel {
			return nil, newError(http.StatusBadRequest, CodeExceedsMaxStock,
				"Max stock level cannot be set below current physical stock")
		}

		err = s.stockRepo.Commit(ctx, &repository.StockMutation{
			Record:          &updated,
			ExpectedVersion: rec.Version,
		})
		if errors.Is(err, repository.ErrVersionConflict) {
			continue
		}
		if err != nil {
			s.logger.Error("Failed to update stock record", zap.String("product_id", productID), zap.Error(err))
			return nil, internalError("Failed to update stock record")
		}

		updated.Version = rec.Version + 1
		if s.cache != nil {
			s.cache.InvalidateAsync()
		}
		return models.NewStockRecordResponse(&updated), nil
	}

	return nil, contentionError()
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
