package services_test

import (
	"context"
	"testing"

	"inventory-ledger/models"
	"inventory-ledger/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newStockService(ledger *mockLedger) services.StockService {
	logger, _ := zap.NewDevelopment()
	return services.NewStockService(ledger, nil, logger, 5)
}

func TestStock_Create_Success(t *testing.T) {
	ledger := newMockLedger()
	svc := newStockService(ledger)

	resp, svcErr := svc.Create(context.Background(), &models.CreateStockRequest{
		ProductID:     "prod-1",
		Category:      "electronics",
		PhysicalStock: 50,
		ReorderPoint:  10,
		MaxStockLevel: 100,
	}, "admin-1")

	assert.Nil(t, svcErr)
	assert.Equal(t, 50, resp.PhysicalStock)
	assert.Equal(t, 0, resp.ReservedStock)
	assert.Equal(t, 50, resp.AvailableStock)
	assert.Equal(t, int64(1), resp.Version)
	assert.True(t, resp.Active)

	assert.Len(t, ledger.audits, 1, "creation is audited")
	assert.Equal(t, 0, ledger.audits[0].PhysicalStockBefore)
	assert.Equal(t, 50, ledger.audits[0].PhysicalStockAfter)
}

func TestStock_Create_Duplicate(t *testing.T) {
	ledger := newMockLedger()
	seedStock(ledger, "prod-1", 10, 0, 0)
	svc := newStockService(ledger)

	_, svcErr := svc.Create(context.Background(), &models.CreateStockRequest{
		ProductID:     "prod-1",
		PhysicalStock: 5,
	}, "admin-1")

	assert.NotNil(t, svcErr)
	assert.Equal(t, 409, svcErr.StatusCode)
	assert.Equal(t, services.CodeDuplicateProduct, svcErr.Code)
}

func TestStock_Create_InitialExceedsMax(t *testing.T) {
	svc := newStockService(newMockLedger())

	_, svcErr := svc.Create(context.Background(), &models.CreateStockRequest{
		ProductID:     "prod-1",
		PhysicalStock: 120,
		MaxStockLevel: 100,
	}, "admin-1")

	assert.NotNil(t, svcErr)
	assert.Equal(t, services.CodeExceedsMaxStock, svcErr.Code)
}

func TestStock_Get(t *testing.T) {
	ledger := newMockLedger()
	seedStock(ledger, "prod-1", 10, 4, 0)
	svc := newStockService(ledger)

	resp, svcErr := svc.Get(context.Background(), "prod-1")
	assert.Nil(t, svcErr)
	assert.Equal(t, 6, resp.AvailableStock)

	_, svcErr = svc.Get(context.Background(), "ghost")
	assert.NotNil(t, svcErr)
	assert.Equal(t, 404, svcErr.StatusCode)
}

func TestStock_Update_ThresholdsBumpVersion(t *testing.T) {
	ledger := newMockLedger()
	seedStock(ledger, "prod-1", 10, 0, 0)
	svc := newStockService(ledger)

	reorder := 5
	maxLevel := 200
	inactive := false
	resp, svcErr := svc.Update(context.Background(), "prod-1", &models.UpdateStockRequest{
		ReorderPoint:  &reorder,
		MaxStockLevel: &maxLevel,
		Active:        &inactive,
	})

	assert.Nil(t, svcErr)
	assert.Equal(t, 5, resp.ReorderPoint)
	assert.Equal(t, 200, resp.MaxStockLevel)
	assert.False(t, resp.Active)
	assert.Equal(t, int64(2), resp.Version)
	assert.Equal(t, 10, resp.PhysicalStock, "counters never move through update")
	assert.Empty(t, ledger.audits, "threshold changes leave no audit entry")
}

func TestStock_Update_ContentionAfterRetries(t *testing.T) {
	inner := newMockLedger()
	seedStock(inner, "prod-1", 10, 0, 0)
	ledger := &conflictLedger{mockLedger: inner}
	logger, _ := zap.NewDevelopment()
	svc := services.NewStockService(ledger, nil, logger, 3)

	reorder := 7
	_, svcErr := svc.Update(context.Background(), "prod-1", &models.UpdateStockRequest{
		ReorderPoint: &reorder,
	})

	assert.NotNil(t, svcErr)
	assert.Equal(t, 409, svcErr.StatusCode)
	assert.Equal(t, services.CodeContention, svcErr.Code)
	assert.Equal(t, 3, ledger.commits)
	assert.Equal(t, 0, inner.records["prod-1"].ReorderPoint)
}

func TestStock_Update_MaxBelowPhysicalRejected(t *testing.T) {
	ledger := newMockLedger()
	seedStock(ledger, "prod-1", 50, 0, 0)
	svc := newStockService(ledger)

	maxLevel := 40
	_, svcErr := svc.Update(context.Background(), "prod-1", &models.UpdateStockRequest{
		MaxStockLevel: &maxLevel,
	})

	assert.NotNil(t, svcErr)
	assert.Equal(t, services.CodeExceedsMaxStock, svcErr.Code)
}

// Full checkout lifecycle: create, reserve, release, reserve again, fulfill.
// Counters and the audit trail must line up at every step.
func TestStock_CheckoutLifecycle(t *testing.T) {
	ledger := newMockLedger()
	stockSvc := newStockService(ledger)
	resSvc := newReservationService(ledger)

	_, svcErr := stockSvc.Create(context.Background(), &models.CreateStockRequest{
		ProductID:     "prod-1",
		PhysicalStock: 20,
		MaxStockLevel: 50,
	}, "admin-1")
	assert.Nil(t, svcErr)

	first, svcErr := resSvc.Reserve(context.Background(), &models.ReserveRequest{
		ProductID: "prod-1", Quantity: 8, SessionID: "cart-1",
	})
	assert.Nil(t, svcErr)
	assert.Equal(t, 12, first.AvailableStock)

	_, svcErr = resSvc.Release(context.Background(), first.Reservation.ID, "")
	assert.Nil(t, svcErr)
	assert.Equal(t, 0, ledger.records["prod-1"].ReservedStock)

	second, svcErr := resSvc.Reserve(context.Background(), &models.ReserveRequest{
		ProductID: "prod-1", Quantity: 5, UserID: "user-7", Reference: "order-42",
	})
	assert.Nil(t, svcErr)

	results, svcErr := resSvc.Fulfill(context.Background(), &models.FulfillRequest{
		ReservationIDs: []uuid.UUID{second.Reservation.ID},
		Reference:      "order-42",
	}, "admin-1")
	assert.Nil(t, svcErr)
	assert.True(t, results[0].Fulfilled)

	rec := ledger.records["prod-1"]
	assert.Equal(t, 15, rec.PhysicalStock)
	assert.Equal(t, 0, rec.ReservedStock)
	assert.GreaterOrEqual(t, rec.PhysicalStock, rec.ReservedStock)

	// One audit entry per stock-affecting operation.
	assert.Equal(t, 2, ledger.auditCount(models.OpReservation))
	assert.Equal(t, 1, ledger.auditCount(models.OpRelease))
	assert.Equal(t, 1, ledger.auditCount(models.OpFulfillment))
	assert.Equal(t, 1, ledger.auditCount(models.OpAdjustment)) // initial stock
}
