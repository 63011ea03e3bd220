package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"inventory-ledger/models"
	"inventory-ledger/repository"
	"inventory-ledger/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// --- Mock Ledger (StockRepository + ReservationRepository) ---

// mockLedger mimics the versioned Postgres store in memory: Commit only
// applies when the expected version matches, and reservation status updates
// only apply to active rows.
type mockLedger struct {
	mu           sync.Mutex
	records      map[string]*models.StockRecord
	reservations map[uuid.UUID]*models.Reservation
	audits       []models.AuditEntry
}

func newMockLedger() *mockLedger {
	return &mockLedger{
		records:      make(map[string]*models.StockRecord),
		reservations: make(map[uuid.UUID]*models.Reservation),
	}
}

func (m *mockLedger) Get(_ context.Context, productID string) (*models.StockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[productID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *mockLedger) List(_ context.Context) ([]models.StockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.StockRecord
	for _, rec := range m.records {
		out = append(out, *rec)
	}
	return out, nil
}

func (m *mockLedger) Create(_ context.Context, rec *models.StockRecord, audit *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[rec.ProductID]; exists {
		return &duplicateKeyError{}
	}
	cp := *rec
	m.records[rec.ProductID] = &cp
	if audit != nil {
		m.audits = append(m.audits, *audit)
	}
	return nil
}

func (m *mockLedger) Commit(_ context.Context, mut *repository.StockMutation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.records[mut.Record.ProductID]
	if !ok || current.Version != mut.ExpectedVersion {
		return repository.ErrVersionConflict
	}

	if mut.UpdateReservation != nil {
		res, ok := m.reservations[mut.UpdateReservation.ID]
		if !ok || res.Status != models.ReservationActive {
			return repository.ErrReservationNotActive
		}
		res.Status = mut.UpdateReservation.ToStatus
		res.ReleasedAt = mut.UpdateReservation.ReleasedAt
	}
	if mut.NewReservation != nil {
		cp := *mut.NewReservation
		m.reservations[cp.ID] = &cp
	}

	cp := *mut.Record
	cp.Version = mut.ExpectedVersion + 1
	m.records[cp.ProductID] = &cp

	if mut.Audit != nil {
		m.audits = append(m.audits, *mut.Audit)
	}
	return nil
}

func (m *mockLedger) GetByID(_ context.Context, id uuid.UUID) (*models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	cp := *res
	return &cp, nil
}

func (m *mockLedger) FindExpired(_ context.Context, now time.Time, limit int) ([]models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Reservation
	for _, res := range m.reservations {
		if res.Status == models.ReservationActive && res.ExpiresAt != nil && res.ExpiresAt.Before(now) {
			out = append(out, *res)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *mockLedger) FindByReference(_ context.Context, reference string) ([]models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Reservation
	for _, res := range m.reservations {
		if res.Reference == reference {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (m *mockLedger) auditCount(op models.OperationType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.audits {
		if e.OperationType == op {
			n++
		}
	}
	return n
}

// conflictLedger simulates a row that changes under every writer: each
// Commit fails with a version conflict, forcing the retry loop to exhaust.
type conflictLedger struct {
	*mockLedger
	commits int
}

func (c *conflictLedger) Commit(_ context.Context, _ *repository.StockMutation) error {
	c.commits++
	return repository.ErrVersionConflict
}

type duplicateKeyError struct{}

func (e *duplicateKeyError) Error() string {
	return `duplicate key value violates unique constraint "stock_records_pkey"`
}

// --- Helpers ---

func newReservationService(ledger *mockLedger) services.ReservationService {
	logger, _ := zap.NewDevelopment()
	return services.NewReservationService(ledger, ledger, nil, nil, nil, logger,
		services.ReservationServiceConfig{MaxRetries: 5, DefaultTTL: 15 * time.Minute})
}

func seedStock(ledger *mockLedger, productID string, physical, reserved, maxLevel int) {
	ledger.records[productID] = &models.StockRecord{
		ProductID:     productID,
		Active:        true,
		PhysicalStock: physical,
		ReservedStock: reserved,
		MaxStockLevel: maxLevel,
		Version:       1,
	}
}

func seedReservation(ledger *mockLedger, productID string, quantity int, status models.ReservationStatus, expiresAt *time.Time) uuid.UUID {
	id := uuid.New()
	ledger.reservations[id] = &models.Reservation{
		ID:        id,
		ProductID: productID,
		Quantity:  quantity,
		Status:    status,
		SessionID: "sess-1",
		ExpiresAt: expiresAt,
	}
	return id
}

// --- Reserve ---

func TestReservation_Reserve_Success(t *testing.T) {
	ledger := newMockLedger()
	seedStock(ledger, "prod-1", 10, 0, 0)
	svc := newReservationService(ledger)

	resp, svcErr := svc.Reserve(context.Background(), &models.ReserveRequest{
		ProductID: "prod-1",
		Quantity:  3,
		SessionID: "sess-abc",
	})

	assert.Nil(t, svcErr)
	assert.Equal(t, 10, resp.PhysicalStock)
	assert.Equal(t, 3, resp.ReservedStock)
	assert.Equal(t, 7, resp.AvailableStock)
	assert.Equal(t, models.ReservationActive, resp.Reservation.Status)
	assert.NotNil(t, resp.Reservation.ExpiresAt, "default TTL should set a deadline")

	rec := ledger.records["prod-1"]
	assert.Equal(t, int64(2), rec.Version, "successful commit bumps the version")
	assert.Equal(t, 1, ledger.auditCount(models.OpReservation))
}

func TestReservation_Reserve_InsufficientStock(t *testing.T) {
	ledger := newMockLedger()
	seedStock(ledger, "prod-1", 5, 3, 0) // available = 2
	svc := newReservationService(ledger)

	_, svcErr := svc.Reserve(context.Background(), &models.ReserveRequest{
		ProductID: "prod-1",
		Quantity:  3,
		SessionID: "s",
	})

	assert.NotNil(t, svcErr)
	assert.Equal(t, 400, svcErr.StatusCode)
	assert.Equal(t, services.CodeInsufficientStock, svcErr.Code)
	assert.Equal(t, 2, svcErr.Details["available"])
	assert.Equal(t, 3, ledger.records["prod-1"].ReservedStock, "counters untouched on rejection")
}

func TestReservation_Reserve_ProductNotFound(t *testing.T) {
	ledger := newMockLedger()
	svc := newReservationService(ledger)

	_, svcErr := svc.Reserve(context.Background(), &models.ReserveRequest{
		ProductID: "ghost",
		Quantity:  1,
		SessionID: "s",
	})

	assert.NotNil(t, svcErr)
	assert.Equal(t, 404, svcErr.StatusCode)
}

func TestReservation_Reserve_InactiveProduct(t *testing.T) {
	ledger := newMockLedger()
	seedStock(ledger, "prod-1", 10, 0, 0)
	ledger.records["prod-1"].Active = false
	svc := newReservationService(ledger)

	_, svcErr := svc.Reserve(context.Background(), &models.ReserveRequest{
		ProductID: "prod-1",
		Quantity:  1,
		SessionID: "s",
	})

	assert.NotNil(t, svcErr)
	assert.Equal(t, 422, svcErr.StatusCode)
	assert.Equal(t, services.CodeProductInactive, svcErr.Code)
}

func TestReservation_Reserve_OwnerXOR(t *testing.T) {
	ledger := newMockLedger()
	seedStock(ledger, "prod-1", 10, 0, 0)
	svc := newReservationService(ledger)

	_, svcErr := svc.Reserve(context.Background(), &models.ReserveRequest{
		ProductID: "prod-1", Quantity: 1,
	})
	assert.NotNil(t, svcErr)
	assert.Equal(t, services.CodeInvalidOwner, svcErr.Code)

	_, svcErr = svc.Reserve(context.Background(), &models.ReserveRequest{
		ProductID: "prod-1", Quantity: 1, SessionID: "s", UserID: "u",
	})
	assert.NotNil(t, svcErr)
	assert.Equal(t, services.CodeInvalidOwner, svcErr.Code)
}

func TestReservation_Reserve_NoExpiryTTL(t *testing.T) {
	ledger := newMockLedger()
	seedStock(ledger, "prod-1", 10, 0, 0)
	svc := newReservationService(ledger)

	resp, svcErr := svc.Reserve(context.Background(), &models.ReserveRequest{
		ProductID:  "prod-1",
		Quantity:   1,
		SessionID:  "s",
		TTLSeconds: -1,
	})

	assert.Nil(t, svcErr)
	assert.Nil(t, resp.Reservation.ExpiresAt, "negative ttl means no auto-expiry")
}

// Concurrent reservations for the last units: exactly as many succeed as
// there is available stock, and reserved never overshoots physical.
func TestReservation_Reserve_ConcurrentLastUnits(t *testing.T) {
	ledger := newMockLedger()
	seedStock(ledger, "prod-1", 3, 0, 0)
	svc := newReservationService(ledger)

	const workers = 10
	var wg sync.WaitGroup
	var successes, insufficient int32
	var countMu sync.Mutex

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, svcErr := svc.Reserve(context.Background(), &models.ReserveRequest{
				ProductID: "prod-1",
				Quantity:  1,
				SessionID: "s",
			})
			countMu.Lock()
			defer countMu.Unlock()
			if svcErr == nil {
				successes++
			} else if svcErr.Code == services.CodeInsufficientStock {
				insufficient++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(3), successes, "only the available units can be held")
	assert.Equal(t, int32(7), insufficient)

	rec := ledger.records["prod-1"]
	assert.Equal(t, 3, rec.ReservedStock)
	assert.Equal(t, 3, rec.PhysicalStock)
	assert.Equal(t, 3, ledger.auditCount(models.OpReservation))
}

func TestReservation_Reserve_ContentionAfterRetries(t *testing.T) {
	inner := newMockLedger()
	seedStock(inner, "prod-1", 10, 0, 0)
	ledger := &conflictLedger{mockLedger: inner}
	logger, _ := zap.NewDevelopment()
	svc := services.NewReservationService(ledger, inner, nil, nil, nil, logger,
		services.ReservationServiceConfig{MaxRetries: 3, DefaultTTL: time.Minute})

	_, svcErr := svc.Reserve(context.Background(), &models.ReserveRequest{
		ProductID: "prod-1",
		Quantity:  1,
		SessionID: "s",
	})

	assert.NotNil(t, svcErr)
	assert.Equal(t, 409, svcErr.StatusCode)
	assert.Equal(t, services.CodeContention, svcErr.Code)
	assert.Equal(t, 3, ledger.commits, "one commit attempt per configured retry")
	assert.Equal(t, 0, inner.records["prod-1"].ReservedStock)
	assert.Empty(t, inner.audits, "an abandoned reservation leaves no trace")
}

func TestReservation_Release_ContentionAfterRetries(t *testing.T) {
	inner := newMockLedger()
	seedStock(inner, "prod-1", 10, 2, 0)
	id := seedReservation(inner, "prod-1", 2, models.ReservationActive, nil)
	ledger := &conflictLedger{mockLedger: inner}
	logger, _ := zap.NewDevelopment()
	svc := services.NewReservationService(ledger, inner, nil, nil, nil, logger,
		services.ReservationServiceConfig{MaxRetries: 3})

	_, svcErr := svc.Release(context.Background(), id, "")

	assert.NotNil(t, svcErr)
	assert.Equal(t, 409, svcErr.StatusCode)
	assert.Equal(t, services.CodeContention, svcErr.Code)
	assert.Equal(t, 3, ledger.commits)
	assert.Equal(t, models.ReservationActive, inner.reservations[id].Status)
	assert.Equal(t, 2, inner.records["prod-1"].ReservedStock)
}

// --- Release ---

func TestReservation_Release_RoundTrip(t *testing.T) {
	ledger := newMockLedger()
	seedStock(ledger, "prod-1", 10, 0, 0)
	svc := newReservationService(ledger)

	resp, svcErr := svc.Reserve(context.Background(), &models.ReserveRequest{
		ProductID: "prod-1", Quantity: 4, SessionID: "s",
	})
	assert.Nil(t, svcErr)

	released, svcErr := svc.Release(context.Background(), resp.Reservation.ID, "user-1")
	assert.Nil(t, svcErr)
	assert.Equal(t, models.ReservationReleased, released.Status)
	assert.NotNil(t, released.ReleasedAt)

	rec := ledger.records["prod-1"]
	assert.Equal(t, 0, rec.ReservedStock, "release returns the full hold")
	assert.Equal(t, 10, rec.PhysicalStock)
	assert.Equal(t, 1, ledger.auditCount(models.OpReservation))
	assert.Equal(t, 1, ledger.auditCount(models.OpRelease))
}

func TestReservation_Release_AlreadyTerminal(t *testing.T) {
	ledger := newMockLedger()
	seedStock(ledger, "prod-1", 10, 2, 0)
	id := seedReservation(ledger, "prod-1", 2, models.ReservationFulfilled, nil)
	svc := newReservationService(ledger)

	_, svcErr := svc.Release(context.Background(), id, "")
	assert.NotNil(t, svcErr)
	assert.Equal(t, 409, svcErr.StatusCode)
	assert.Equal(t, services.CodeAlreadyTerminal, svcErr.Code)
	assert.Equal(t, 2, ledger.records["prod-1"].ReservedStock, "double release must not free stock twice")
}

func TestReservation_Release_NotFound(t *testing.T) {
	ledger := newMockLedger()
	svc := newReservationService(ledger)

	_, svcErr := svc.Release(context.Background(), uuid.New(), "")
	assert.NotNil(t, svcErr)
	assert.Equal(t, 404, svcErr.StatusCode)
}

// --- Fulfill ---

func TestReservation_Fulfill_DecrementsBothCounters(t *testing.T) {
	ledger := newMockLedger()
	seedStock(ledger, "prod-1", 10, 0, 0)
	svc := newReservationService(ledger)

	resp, svcErr := svc.Reserve(context.Background(), &models.ReserveRequest{
		ProductID: "prod-1", Quantity: 4, SessionID: "s", Reference: "order-77",
	})
	assert.Nil(t, svcErr)
	availableBefore := ledger.records["prod-1"].AvailableStock()

	results, svcErr := svc.Fulfill(context.Background(), &models.FulfillRequest{
		ReservationIDs: []uuid.UUID{resp.Reservation.ID},
		Reference:      "order-77",
	}, "admin")

	assert.Nil(t, svcErr)
	assert.Len(t, results, 1)
	assert.True(t, results[0].Fulfilled)

	rec := ledger.records["prod-1"]
	assert.Equal(t, 6, rec.PhysicalStock)
	assert.Equal(t, 0, rec.ReservedStock)
	assert.Equal(t, availableBefore, rec.AvailableStock(), "fulfillment leaves available stock unchanged")
	assert.Equal(t, models.ReservationFulfilled, ledger.reservations[resp.Reservation.ID].Status)
	assert.Equal(t, 1, ledger.auditCount(models.OpFulfillment))
}

func TestReservation_Fulfill_PartialBatch(t *testing.T) {
	ledger := newMockLedger()
	seedStock(ledger, "prod-1", 10, 2, 0)
	active := seedReservation(ledger, "prod-1", 2, models.ReservationActive, nil)
	terminal := seedReservation(ledger, "prod-1", 1, models.ReservationReleased, nil)
	svc := newReservationService(ledger)

	results, svcErr := svc.Fulfill(context.Background(), &models.FulfillRequest{
		ReservationIDs: []uuid.UUID{active, terminal, uuid.New()},
	}, "admin")

	assert.Nil(t, svcErr)
	assert.Len(t, results, 3)
	assert.True(t, results[0].Fulfilled)
	assert.False(t, results[1].Fulfilled)
	assert.Contains(t, results[1].Error, "released")
	assert.False(t, results[2].Fulfilled)
	assert.Contains(t, results[2].Error, "not found")
}

// --- Sweep ---

func TestReservation_SweepExpired_Idempotent(t *testing.T) {
	ledger := newMockLedger()
	seedStock(ledger, "prod-1", 10, 5, 0)
	past := time.Now().UTC().Add(-1 * time.Minute)
	future := time.Now().UTC().Add(1 * time.Hour)
	seedReservation(ledger, "prod-1", 2, models.ReservationActive, &past)
	seedReservation(ledger, "prod-1", 3, models.ReservationActive, &past)
	live := seedReservation(ledger, "prod-1", 1, models.ReservationActive, &future)
	svc := newReservationService(ledger)

	now := time.Now().UTC()
	result, svcErr := svc.SweepExpired(context.Background(), now)
	assert.Nil(t, svcErr)
	assert.Equal(t, 2, result.Processed)

	rec := ledger.records["prod-1"]
	assert.Equal(t, 0, rec.ReservedStock)
	assert.Equal(t, models.ReservationActive, ledger.reservations[live].Status)
	assert.Equal(t, 2, ledger.auditCount(models.OpExpiry))

	// Second run finds nothing newly expired.
	result, svcErr = svc.SweepExpired(context.Background(), now)
	assert.Nil(t, svcErr)
	assert.Equal(t, 0, result.Processed)
	assert.Equal(t, 2, ledger.auditCount(models.OpExpiry), "no duplicate expiry entries")
}

func TestReservation_Sweep_NoExpiryNeverSwept(t *testing.T) {
	ledger := newMockLedger()
	seedStock(ledger, "prod-1", 10, 2, 0)
	id := seedReservation(ledger, "prod-1", 2, models.ReservationActive, nil)
	svc := newReservationService(ledger)

	result, svcErr := svc.SweepExpired(context.Background(), time.Now().UTC().Add(24*time.Hour))
	assert.Nil(t, svcErr)
	assert.Equal(t, 0, result.Processed)
	assert.Equal(t, models.ReservationActive, ledger.reservations[id].Status)
}

// --- CheckAvailability ---

func TestReservation_CheckAvailability(t *testing.T) {
	ledger := newMockLedger()
	seedStock(ledger, "prod-1", 10, 4, 0)
	seedStock(ledger, "prod-2", 2, 0, 0)
	ledger.records["prod-2"].Active = false
	svc := newReservationService(ledger)

	results, svcErr := svc.CheckAvailability(context.Background(), []models.CheckItem{
		{ProductID: "prod-1", Quantity: 6},
		{ProductID: "prod-1", Quantity: 7},
		{ProductID: "prod-2", Quantity: 1},
		{ProductID: "ghost", Quantity: 1},
	})

	assert.Nil(t, svcErr)
	assert.Len(t, results, 4)
	assert.True(t, results[0].IsSufficient)
	assert.Equal(t, 6, results[0].AvailableStock)
	assert.False(t, results[1].IsSufficient)
	assert.False(t, results[2].IsSufficient, "inactive products are never sufficient")
	assert.False(t, results[3].IsSufficient)
	assert.Equal(t, 0, results[3].AvailableStock, "unknown product reads as zero availability")
}
