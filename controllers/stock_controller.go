package controllers

import (
	"net/http"

	"inventory-ledger/middleware"
	"inventory-ledger/models"
	"inventory-ledger/services"

	"github.com/gin-gonic/gin"
)

// StockController handles HTTP requests for stock records and adjustments.
type StockController struct {
	stockService      services.StockService
	adjustmentService services.AdjustmentService
}

// NewStockController creates a new StockController.
func NewStockController(stockService services.StockService, adjustmentService services.AdjustmentService) *StockController {
	return &StockController{stockService: stockService, adjustmentService: adjustmentService}
}

// GetStock handles GET /inventory/:productId.
func (sc *StockController) GetStock(ctx *gin.Context) {
	productID := ctx.Param("productId")
	if productID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing product ID"})
		return
	}

	rec, svcErr := sc.stockService.Get(ctx.Request.Context(), productID)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, rec)
}

// CreateStock handles POST /inventory (admin only).
func (sc *StockController) CreateStock(ctx *gin.Context) {
	var req models.CreateStockRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	actor, _ := middleware.GetUserID(ctx)
	rec, svcErr := sc.stockService.Create(ctx.Request.Context(), &req, actor)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, rec)
}

// UpdateStock handles PUT /inventory/:productId (admin only).
func (sc *StockController) UpdateStock(ctx *gin.Context) {
	productID := ctx.Param("productId")
	var req models.UpdateStockRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	rec, svcErr := sc.stockService.Update(ctx.Request.Context(), productID, &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, rec)
}

// Adjust handles POST /inventory/adjust (admin only).
func (sc *StockController) Adjust(ctx *gin.Context) {
	var req models.AdjustRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	actor, _ := middleware.GetUserID(ctx)
	result, svcErr := sc.adjustmentService.Adjust(ctx.Request.Context(), &req, actor)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// respondError maps a ServiceError to its HTTP response. Structured details
// (available vs requested) ride along so clients can offer corrective
// actions.
func respondError(ctx *gin.Context, svcErr *services.ServiceError) {
	body := gin.H{"error": svcErr.Message, "code": svcErr.Code}
	if len(svcErr.Details) > 0 {
		body["details"] = svcErr.Details
	}
	ctx.JSON(svcErr.StatusCode, body)
}
