package services_test

import (
	"context"
	"testing"

	"inventory-ledger/models"
	"inventory-ledger/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type mockAuditRepo struct {
	entries   []models.AuditEntry
	gotFilter models.AuditFilter
}

func (m *mockAuditRepo) Query(_ context.Context, filter models.AuditFilter) ([]models.AuditEntry, int64, error) {
	m.gotFilter = filter
	return m.entries, int64(len(m.entries)), nil
}

func TestAudit_Query_ComputesDeltas(t *testing.T) {
	repo := &mockAuditRepo{entries: []models.AuditEntry{
		{
			ID:                   uuid.New(),
			ProductID:            "prod-1",
			OperationType:        models.OpReservation,
			PhysicalStockBefore:  10,
			PhysicalStockAfter:   10,
			ReservedStockBefore:  0,
			ReservedStockAfter:   3,
			AvailableStockBefore: 10,
			AvailableStockAfter:  7,
			QuantityAffected:     3,
		},
		{
			ID:                   uuid.New(),
			ProductID:            "prod-1",
			OperationType:        models.OpFulfillment,
			PhysicalStockBefore:  10,
			PhysicalStockAfter:   7,
			ReservedStockBefore:  3,
			ReservedStockAfter:   0,
			AvailableStockBefore: 7,
			AvailableStockAfter:  7,
			QuantityAffected:     3,
		},
	}}
	svc := services.NewAuditService(repo)

	views, total, svcErr := svc.Query(context.Background(), models.AuditFilter{ProductID: "prod-1"})

	assert.Nil(t, svcErr)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "prod-1", repo.gotFilter.ProductID)

	assert.Equal(t, 0, views[0].PhysicalChange)
	assert.Equal(t, 3, views[0].ReservedChange)
	assert.Equal(t, -3, views[0].AvailableChange)

	assert.Equal(t, -3, views[1].PhysicalChange)
	assert.Equal(t, -3, views[1].ReservedChange)
	assert.Equal(t, 0, views[1].AvailableChange, "fulfillment nets out on availability")
}
