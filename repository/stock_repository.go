package repository

import (
	"context"
	"errors"
	"time"

	"inventory-ledger/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrNotFound means no stock record exists for the product.
	ErrNotFound = errors.New("stock record not found")
	// ErrVersionConflict means the row changed since it was read; the caller
	// should re-read and retry.
	ErrVersionConflict = errors.New("stock record version conflict")
	// ErrReservationNotActive means a status guard on a reservation update
	// matched no row (already terminal or missing).
	ErrReservationNotActive = errors.New("reservation is not active")
)

// ReservationStatusUpdate transitions one reservation out of active as part
// of a stock mutation.
type ReservationStatusUpdate struct {
	ID         uuid.UUID
	ToStatus   models.ReservationStatus
	ReleasedAt *time.Time
}

// StockMutation is the unit of atomicity: the new counter state for one
// product guarded by the version it was read at, the audit entry recording
// the change, and any reservation row written alongside. Everything commits
// together or not at all.
type StockMutation struct {
	Record            *models.StockRecord
	ExpectedVersion   int64
	Audit             *models.AuditEntry
	NewReservation    *models.Reservation
	UpdateReservation *ReservationStatusUpdate
}

// StockRepository is the data access contract for stock records. All counter
// writes go through Commit; nothing else touches physical/reserved stock.
type StockRepository interface {
	Get(ctx context.Context, productID string) (*models.StockRecord, error)
	List(ctx context.Context) ([]models.StockRecord, error)
	Create(ctx context.Context, rec *models.StockRecord, audit *models.AuditEntry) error
	Commit(ctx context.Context, m *StockMutation) error
}

// GormStockRepository implements StockRepository on Postgres.
type GormStockRepository struct {
	db *gorm.DB
}

// NewGormStockRepository creates a new GormStockRepository.
func NewGormStockRepository(db *gorm.DB) StockRepository {
	return &GormStockRepository{db: db}
}

func (r *GormStockRepository) Get(ctx context.Context, productID string) (*models.StockRecord, error) {
	var rec models.StockRecord
	err := r.db.WithContext(ctx).First(&rec, "product_id = ?", productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *GormStockRepository) List(ctx context.Context) ([]models.StockRecord, error) {
	var recs []models.StockRecord
	err := r.db.WithContext(ctx).Order("product_id").Find(&recs).Error
	return recs, err
}

// Create inserts a new record together with the audit entry recording its
// initial stock, in one transaction.
func (r *GormStockRepository) Create(ctx context.Context, rec *models.StockRecord, audit *models.AuditEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rec).Error; err != nil {
			return err
		}
		if audit != nil {
			if err := tx.Create(audit).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Commit applies a StockMutation in one transaction. The counter update is a
// compare-and-swap keyed on version: zero rows affected means the record was
// mutated concurrently and the whole transaction rolls back with
// ErrVersionConflict. Reservation status updates carry their own guard so a
// sweep racing a release can never double-decrement.
func (r *GormStockRepository) Commit(ctx context.Context, m *StockMutation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.StockRecord{}).
			Where("product_id = ? AND version = ?", m.Record.ProductID, m.ExpectedVersion).
			Updates(map[string]interface{}{
				"physical_stock":  m.Record.PhysicalStock,
				"reserved_stock":  m.Record.ReservedStock,
				"reorder_point":   m.Record.ReorderPoint,
				"max_stock_level": m.Record.MaxStockLevel,
				"category":        m.Record.Category,
				"active":          m.Record.Active,
				"version":         gorm.Expr("version + 1"),
				"last_update_at":  time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}

		if m.NewReservation != nil {
			if err := tx.Create(m.NewReservation).Error; err != nil {
				return err
			}
		}

		if m.UpdateReservation != nil {
			u := m.UpdateReservation
			res := tx.Model(&models.Reservation{}).
				Where("id = ? AND status = ?", u.ID, models.ReservationActive).
				Updates(map[string]interface{}{
					"status":      u.ToStatus,
					"released_at": u.ReleasedAt,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrReservationNotActive
			}
		}

		if m.Audit != nil {
			if err := tx.Create(m.Audit).Error; err != nil {
				return err
			}
		}

		return nil
	})
}
