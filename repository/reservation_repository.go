package repository

import (
	"context"
	"errors"
	"time"

	"inventory-ledger/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrReservationNotFound means no reservation exists with the given id.
var ErrReservationNotFound = errors.New("reservation not found")

// ReservationRepository reads reservations. Writes happen exclusively inside
// StockRepository.Commit so the hold and the counters can never diverge.
type ReservationRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	FindExpired(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error)
	FindByReference(ctx context.Context, reference string) ([]models.Reservation, error)
}

// GormReservationRepository implements ReservationRepository on Postgres.
type GormReservationRepository struct {
	db *gorm.DB
}

// NewGormReservationRepository creates a new GormReservationRepository.
func NewGormReservationRepository(db *gorm.DB) ReservationRepository {
	return &GormReservationRepository{db: db}
}

func (r *GormReservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var res models.Reservation
	err := r.db.WithContext(ctx).First(&res, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return &res, nil
}

// FindExpired returns active reservations whose expiry has passed, oldest
// first. Rows with a null expires_at never expire.
func (r *GormReservationRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error) {
	var out []models.Reservation
	q := r.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", models.ReservationActive, now).
		Order("expires_at")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

func (r *GormReservationRepository) FindByReference(ctx context.Context, reference string) ([]models.Reservation, error) {
	var out []models.Reservation
	err := r.db.WithContext(ctx).
		Where("reference = ?", reference).
		Order("created_at").
		Find(&out).Error
	return out, err
}
