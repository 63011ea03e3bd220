package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"inventory-ledger/models"
	"inventory-ledger/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func reservationRows(ids ...uuid.UUID) *sqlmock.Rows {
	now := time.Now()
	expires := now.Add(-5 * time.Minute)
	rows := sqlmock.NewRows([]string{
		"id", "product_id", "quantity", "status", "session_id", "user_id",
		"reference", "created_at", "expires_at", "released_at",
	})
	for _, id := range ids {
		rows.AddRow(id, "prod-1", 2, models.ReservationActive, "sess-1", "", "order-9", now, expires, nil)
	}
	return rows
}

func TestReservationGetByID_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormReservationRepository(gormDB)

	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reservations"`)).
		WillReturnRows(reservationRows(id))

	res, err := repo.GetByID(context.Background(), id)
	assert.NoError(t, err)
	assert.Equal(t, id, res.ID)
	assert.Equal(t, models.ReservationActive, res.Status)
	assert.Equal(t, 2, res.Quantity)
}

func TestReservationGetByID_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormReservationRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reservations"`)).
		WillReturnRows(sqlmock.NewRows([]string{}))

	res, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrReservationNotFound)
	assert.Nil(t, res)
}

func TestReservationFindExpired(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormReservationRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reservations"`)).
		WillReturnRows(reservationRows(uuid.New(), uuid.New()))

	out, err := repo.FindExpired(context.Background(), time.Now().UTC(), 500)
	assert.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestReservationFindByReference(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormReservationRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reservations"`)).
		WillReturnRows(reservationRows(uuid.New()))

	out, err := repo.FindByReference(context.Background(), "order-9")
	assert.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, "order-9", out[0].Reference)
}
