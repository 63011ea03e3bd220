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

// StockNotifier receives post-commit stock states for alert notification.
// Implemented by notifier.LowStockNotifier; nil-safe by contract.
type StockNotifier interface {
	CheckAndNotify(ctx context.Context, rec *models.StockRecord)
}

// CacheInvalidator drops cached dashboard reads after a mutation.
type CacheInvalidator interface {
	InvalidateAsync()
}

// ReservationService manages the lifecycle of soft holds against available
// stock: create, release, fulfill, expire, plus read-only availability checks.
type ReservationService interface {
	Reserve(ctx context.Context, req *models.ReserveRequest) (*models.ReserveResponse, *ServiceError)
	Release(ctx context.Context, id uuid.UUID, actor string) (*models.Reservation, *ServiceError)
	Fulfill(ctx context.Context, req *models.FulfillRequest, actor string) ([]models.FulfillItemResult, *ServiceError)
	SweepExpired(ctx context.Context, now time.Time) (*models.SweepResult, *ServiceError)
	CheckAvailability(ctx context.Context, items []models.CheckItem) ([]models.StockCheckResult, *ServiceError)
	Get(ctx context.Context, id uuid.UUID) (*models.Reservation, *ServiceError)
}

type reservationServiceImpl struct {
	stockRepo  repository.StockRepository
	resRepo    repository.ReservationRepository
	publisher  events.Publisher
	notifier   StockNotifier
	cache      CacheInvalidator
	logger     *zap.Logger
	maxRetries int
	defaultTTL time.Duration
}

// ReservationServiceConfig carries the tunables for NewReservationService.
type ReservationServiceConfig struct {
	MaxRetries int           // CAS attempts before surfacing contention
	DefaultTTL time.Duration // applied when a reserve request has ttl_seconds == 0
}

// NewReservationService creates a new ReservationService. publisher, notifier
// and cache may be nil when the corresponding backend is not configured.
func NewReservationService(
	stockRepo repository.StockRepository,
	resRepo repository.ReservationRepository,
	publisher events.Publisher,
	notifier StockNotifier,
	cache CacheInvalidator,
	logger *zap.Logger,
	cfg ReservationServiceConfig,
) ReservationService {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 3
	}
	return &reservationServiceImpl{
		stockRepo:  stockRepo,
		resRepo:    resRepo,
		publisher:  publisher,
		notifier:   notifier,
		cache:      cache,
		logger:     logger,
		maxRetries: cfg.MaxRetries,
		defaultTTL: cfg.DefaultTTL,
	}
}

// Reserve places a hold against available stock. The counter increment, the
// reservation row and the audit entry commit as one transaction; on version
// conflict the whole attempt is retried with fresh state. Two concurrent
// reservations for the last unit cannot both succeed: the loser's CAS
// matches zero rows and its re-read sees the depleted availability.
func (s *reservationServiceImpl) Reserve(ctx context.Context, req *models.ReserveRequest) (*models.ReserveResponse, *ServiceError) {
	if (req.SessionID == "") == (req.UserID == "") {
		return nil, newError(http.StatusBadRequest, CodeInvalidOwner,
			"Exactly one of session_id or user_id must be set")
	}

	var expiresAt *time.Time
	switch {
	case req.TTLSeconds > 0:
		t := time.Now().UTC().Add(time.Duration(req.TTLSeconds) * time.Second)
		expiresAt = &t
	case req.TTLSeconds == 0 && s.defaultTTL > 0:
		t := time.Now().UTC().Add(s.defaultTTL)
		expiresAt = &t
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		rec, err := s.stockRepo.Get(ctx, req.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, newError(http.StatusNotFound, CodeProductNotFound, "No stock record for product")
			}
			s.logger.Error("Failed to load stock record", zap.String("product_id", req.ProductID), zap.Error(err))
			return nil, internalError("Failed to load stock record")
		}
		if !rec.Active {
			return nil, newError(http.StatusUnprocessableEntity, CodeProductInactive, "Product is not sellable")
		}
		if req.Quantity > rec.AvailableStock() {
			return nil, newError(http.StatusBadRequest, CodeInsufficientStock, "Insufficient stock").
				withDetails(map[string]interface{}{
					"product_id": rec.ProductID,
					"requested":  req.Quantity,
					"available":  rec.AvailableStock(),
				})
		}

		reservation := &models.Reservation{
			ID:        uuid.New(),
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
			Status:    models.ReservationActive,
			SessionID: req.SessionID,
			UserID:    req.UserID,
			Reference: req.Reference,
			ExpiresAt: expiresAt,
		}

		updated := *rec
		updated.ReservedStock += req.Quantity

		err = s.stockRepo.Commit(ctx, &repository.StockMutation{
			Record:          &updated,
			ExpectedVersion: rec.Version,
			Audit: newAuditEntry(rec, &updated, models.OpReservation, req.Quantity,
				firstNonEmpty(req.Reference, reservation.ID.String()), req.UserID, ""),
			NewReservation: reservation,
		})
		if errors.Is(err, repository.ErrVersionConflict) {
			continue
		}
		if err != nil {
			s.logger.Error("Failed to commit reservation", zap.String("product_id", req.ProductID), zap.Error(err))
			return nil, internalError("Failed to create reservation")
		}

		updated.Version = rec.Version + 1
		s.afterMutation(ctx, &updated, events.StockEvent{
			EventType: events.EventStockReserved,
			ProductID: updated.ProductID,
			Quantity:  req.Quantity,
			Reference: req.Reference,
			Actor:     req.UserID,
		})

		s.logger.Info("Reservation created",
			zap.String("reservation_id", reservation.ID.String()),
			zap.String("product_id", req.ProductID),
			zap.Int("quantity", req.Quantity))

		return &models.ReserveResponse{
			Reservation:    *reservation,
			PhysicalStock:  updated.PhysicalStock,
			ReservedStock:  updated.ReservedStock,
			AvailableStock: updated.AvailableStock(),
		}, nil
	}

	s.logger.Warn("Reservation abandoned after contention", zap.String("product_id", req.ProductID))
	return nil, contentionError()
}

// Release returns a hold's quantity to available stock. Valid only from
// active; terminal reservations surface AlreadyTerminal so callers can treat
// a double-release as a logged no-op.
func (s *reservationServiceImpl) Release(ctx context.Context, id uuid.UUID, actor string) (*models.Reservation, *ServiceError) {
	reservation, svcErr := s.Get(ctx, id)
	if svcErr != nil {
		return nil, svcErr
	}
	if reservation.Status.IsTerminal() {
		return nil, newError(http.StatusConflict, CodeAlreadyTerminal, "Reservation is already terminal").
			withDetails(map[string]interface{}{"status": reservation.Status})
	}

	now := time.Now().UTC()
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		rec, err := s.stockRepo.Get(ctx, reservation.ProductID)
		if err != nil {
			s.logger.Error("Failed to load stock record for release", zap.Error(err))
			return nil, internalError("Failed to load stock record")
		}

		updated := *rec
		updated.ReservedStock -= reservation.Quantity
		if updated.ReservedStock < 0 {
			s.logger.Error("Reserved stock underflow on release",
				zap.String("reservation_id", id.String()),
				zap.String("product_id", rec.ProductID))
			return nil, internalError("Inconsistent reserved stock")
		}

		err = s.stockRepo.Commit(ctx, &repository.StockMutation{
			Record:          &updated,
			ExpectedVersion: rec.Version,
			Audit: newAuditEntry(rec, &updated, models.OpRelease, reservation.Quantity,
				firstNonEmpty(reservation.Reference, id.String()), actor, ""),
			UpdateReservation: &repository.ReservationStatusUpdate{
				ID:         id,
				ToStatus:   models.ReservationReleased,
				ReleasedAt: &now,
			},
		})
		if errors.Is(err, repository.ErrVersionConflict) {
			continue
		}
		if errors.Is(err, repository.ErrReservationNotActive) {
			// Lost a race against a sweep or another release; the hold is
			// terminal and the counters were adjusted by the winner.
			return nil, newError(http.StatusConflict, CodeAlreadyTerminal, "Reservation is already terminal")
		}
		if err != nil {
			s.logger.Error("Failed to commit release", zap.Error(err))
			return nil, internalError("Failed to release reservation")
		}

		updated.Version = rec.Version + 1
		s.afterMutation(ctx, &updated, events.StockEvent{
			EventType: events.EventStockReleased,
			ProductID: updated.ProductID,
			Quantity:  reservation.Quantity,
			Reference: reservation.Reference,
			Actor:     actor,
		})

		reservation.Status = models.ReservationReleased
		reservation.ReleasedAt = &now
		s.logger.Info("Reservation released",
			zap.String("reservation_id", id.String()),
			zap.String("product_id", reservation.ProductID))
		return reservation, nil
	}

	return nil, contentionError()
}

// Fulfill converts active holds tied to a confirmed order into physical
// decrements: for each reservation the physical and reserved counters drop
// by its quantity in one transaction, leaving available stock unchanged.
// Terminal reservations are reported per item rather than failing the batch.
func (s *reservationServiceImpl) Fulfill(ctx context.Context, req *models.FulfillRequest, actor string) ([]models.FulfillItemResult, *ServiceError) {
	results := make([]models.FulfillItemResult, 0, len(req.ReservationIDs))

	for _, id := range req.ReservationIDs {
		results = append(results, s.fulfillOne(ctx, id, req.Reference, actor))
	}

	return results, nil
}

func (s *reservationServiceImpl) fulfillOne(ctx context.Context, id uuid.UUID, reference, actor string) models.FulfillItemResult {
	result := models.FulfillItemResult{ReservationID: id}

	reservation, err := s.resRepo.GetByID(ctx, id)
	if err != nil {
		result.Error = "reservation not found"
		return result
	}
	if reservation.Status.IsTerminal() {
		result.Error = "reservation is already " + string(reservation.Status)
		return result
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		rec, err := s.stockRepo.Get(ctx, reservation.ProductID)
		if err != nil {
			result.Error = "failed to load stock record"
			return result
		}
		if rec.ReservedStock < reservation.Quantity || rec.PhysicalStock < reservation.Quantity {
			s.logger.Error("Counter underflow on fulfill",
				zap.String("reservation_id", id.String()),
				zap.String("product_id", rec.ProductID))
			result.Error = "inconsistent stock counters"
			return result
		}

		updated := *rec
		updated.PhysicalStock -= reservation.Quantity
		updated.ReservedStock -= reservation.Quantity

		err = s.stockRepo.Commit(ctx, &repository.StockMutation{
			Record:          &updated,
			ExpectedVersion: rec.Version,
			Audit: newAuditEntry(rec, &updated, models.OpFulfillment, reservation.Quantity,
				firstNonEmpty(reference, reservation.Reference, id.String()), actor, ""),
			UpdateReservation: &repository.ReservationStatusUpdate{
				ID:       id,
				ToStatus: models.ReservationFulfilled,
			},
		})
		if errors.Is(err, repository.ErrVersionConflict) {
			continue
		}
		if errors.Is(err, repository.ErrReservationNotActive) {
			result.Error = "reservation is already terminal"
			return result
		}
		if err != nil {
			result.Error = "failed to commit fulfillment"
			return result
		}

		updated.Version = rec.Version + 1
		s.afterMutation(ctx, &updated, events.StockEvent{
			EventType: events.EventStockFulfilled,
			ProductID: updated.ProductID,
			Quantity:  reservation.Quantity,
			Reference: reference,
			Actor:     actor,
		})

		result.Fulfilled = true
		return result
	}

	result.Error = "contention"
	return result
}

// SweepExpired expires every active reservation whose deadline has passed.
// Idempotent: each row is guarded by its active status inside the commit, so
// concurrent sweeps (or a racing release) process it exactly once, and a
// second run with no newly expired holds processes zero.
func (s *reservationServiceImpl) SweepExpired(ctx context.Context, now time.Time) (*models.SweepResult, *ServiceError) {
	expired, err := s.resRepo.FindExpired(ctx, now, 500)
	if err != nil {
		s.logger.Error("Failed to find expired reservations", zap.Error(err))
		return nil, internalError("Failed to find expired reservations")
	}

	processed := 0
	for i := range expired {
		if s.expireOne(ctx, &expired[i], now) {
			processed++
		}
	}

	if processed > 0 {
		s.logger.Info("Expiry sweep completed", zap.Int("processed", processed))
	}
	return &models.SweepResult{Processed: processed, SweptAt: now}, nil
}

func (s *reservationServiceImpl) expireOne(ctx context.Context, reservation *models.Reservation, now time.Time) bool {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		rec, err := s.stockRepo.Get(ctx, reservation.ProductID)
		if err != nil {
			s.logger.Error("Failed to load stock record for expiry",
				zap.String("product_id", reservation.ProductID), zap.Error(err))
			return false
		}

		updated := *rec
		updated.ReservedStock -= reservation.Quantity
		if updated.ReservedStock < 0 {
			s.logger.Error("Reserved stock underflow on expiry",
				zap.String("reservation_id", reservation.ID.String()))
			return false
		}

		err = s.stockRepo.Commit(ctx, &repository.StockMutation{
			Record:          &updated,
			ExpectedVersion: rec.Version,
			Audit: newAuditEntry(rec, &updated, models.OpExpiry, reservation.Quantity,
				firstNonEmpty(reservation.Reference, reservation.ID.String()), "", "reservation expired"),
			UpdateReservation: &repository.ReservationStatusUpdate{
				ID:         reservation.ID,
				ToStatus:   models.ReservationExpired,
				ReleasedAt: &now,
			},
		})
		if errors.Is(err, repository.ErrVersionConflict) {
			continue
		}
		if errors.Is(err, repository.ErrReservationNotActive) {
			// Released or fulfilled between the scan and this commit.
			return false
		}
		if err != nil {
			s.logger.Error("Failed to commit expiry",
				zap.String("reservation_id", reservation.ID.String()), zap.Error(err))
			return false
		}

		updated.Version = rec.Version + 1
		s.afterMutation(ctx, &updated, events.StockEvent{
			EventType: events.EventStockExpired,
			ProductID: updated.ProductID,
			Quantity:  reservation.Quantity,
			Reference: reservation.Reference,
		})
		return true
	}

	s.logger.Warn("Expiry abandoned after contention",
		zap.String("reservation_id", reservation.ID.String()))
	return false
}

// CheckAvailability computes a per-item availability report without mutating
// state. Unknown products report zero availability instead of failing the
// whole check.
func (s *reservationServiceImpl) CheckAvailability(ctx context.Context, items []models.CheckItem) ([]models.StockCheckResult, *ServiceError) {
	results := make([]models.StockCheckResult, 0, len(items))

	for _, item := range items {
		rec, err := s.stockRepo.Get(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				results = append(results, models.StockCheckResult{
					ProductID:    item.ProductID,
					Requested:    item.Quantity,
					IsSufficient: false,
				})
				continue
			}
			s.logger.Error("Failed to check stock", zap.String("product_id", item.ProductID), zap.Error(err))
			return nil, internalError("Failed to check stock")
		}
		available := rec.AvailableStock()
		results = append(results, models.StockCheckResult{
			ProductID:      rec.ProductID,
			PhysicalStock:  rec.PhysicalStock,
			ReservedStock:  rec.ReservedStock,
			AvailableStock: available,
			Requested:      item.Quantity,
			IsSufficient:   rec.Active && available >= item.Quantity,
		})
	}

	return results, nil
}

func (s *reservationServiceImpl) Get(ctx context.Context, id uuid.UUID) (*models.Reservation, *ServiceError) {
	reservation, err := s.resRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return nil, newError(http.StatusNotFound, CodeReservationNotFound, "Reservation not found")
		}
		return nil, internalError("Failed to load reservation")
	}
	return reservation, nil
}

// afterMutation runs the post-commit side effects: event publish, cache
// invalidation and low-stock notification. All best effort.
func (s *reservationServiceImpl) afterMutation(ctx context.Context, rec *models.StockRecord, evt events.StockEvent) {
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

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
