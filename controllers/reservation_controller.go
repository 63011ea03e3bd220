package controllers

import (
	"net/http"
	"time"

	"inventory-ledger/middleware"
	"inventory-ledger/models"
	"inventory-ledger/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReservationController handles HTTP requests for reservations and
// availability checks.
type ReservationController struct {
	reservationService services.ReservationService
}

// NewReservationController creates a new ReservationController.
func NewReservationController(reservationService services.ReservationService) *ReservationController {
	return &ReservationController{reservationService: reservationService}
}

// Reserve handles POST /inventory/reservations.
func (rc *ReservationController) Reserve(ctx *gin.Context) {
	var req models.ReserveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	// Authenticated callers reserve as themselves regardless of the payload.
	if userID, err := middleware.GetUserID(ctx); err == nil {
		req.UserID = userID
		req.SessionID = ""
	}

	resp, svcErr := rc.reservationService.Reserve(ctx.Request.Context(), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

// GetReservation handles GET /inventory/reservations/:id.
func (rc *ReservationController) GetReservation(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reservation ID"})
		return
	}

	reservation, svcErr := rc.reservationService.Get(ctx.Request.Context(), id)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, reservation)
}

// Release handles POST /inventory/reservations/:id/release.
func (rc *ReservationController) Release(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reservation ID"})
		return
	}

	actor, _ := middleware.GetUserID(ctx)
	reservation, svcErr := rc.reservationService.Release(ctx.Request.Context(), id, actor)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, reservation)
}

// Fulfill handles POST /inventory/reservations/fulfill (admin/internal).
func (rc *ReservationController) Fulfill(ctx *gin.Context) {
	var req models.FulfillRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	actor, _ := middleware.GetUserID(ctx)
	results, svcErr := rc.reservationService.Fulfill(ctx.Request.Context(), &req, actor)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"results": results})
}

// Sweep handles POST /inventory/reservations/sweep, the entry point for the
// external scheduler. Idempotent; safe to call on any interval.
func (rc *ReservationController) Sweep(ctx *gin.Context) {
	result, svcErr := rc.reservationService.SweepExpired(ctx.Request.Context(), time.Now().UTC())
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// CheckStock handles POST /inventory/check.
func (rc *ReservationController) CheckStock(ctx *gin.Context) {
	var req models.CheckStockRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	results, svcErr := rc.reservationService.CheckAvailability(ctx.Request.Context(), req.Items)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"results": results})
}
