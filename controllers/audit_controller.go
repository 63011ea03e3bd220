package controllers

import (
	"net/http"
	"strconv"
	"time"

	"inventory-ledger/models"
	"inventory-ledger/services"

	"github.com/gin-gonic/gin"
)

// AuditController handles HTTP requests for the audit ledger.
type AuditController struct {
	auditService services.AuditService
}

// NewAuditController creates a new AuditController.
func NewAuditController(auditService services.AuditService) *AuditController {
	return &AuditController{auditService: auditService}
}

// Query handles GET /inventory/audit (admin only). Filters: product_id,
// reference, operation_type, from, to (RFC3339), page, page_size.
func (ac *AuditController) Query(ctx *gin.Context) {
	filter := models.AuditFilter{
		ProductID:     ctx.Query("product_id"),
		Reference:     ctx.Query("reference"),
		OperationType: models.OperationType(ctx.Query("operation_type")),
	}

	if v := ctx.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'from' timestamp, expected RFC3339"})
			return
		}
		filter.From = &t
	}
	if v := ctx.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'to' timestamp, expected RFC3339"})
			return
		}
		filter.To = &t
	}

	filter.Page, _ = strconv.Atoi(ctx.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(ctx.DefaultQuery("page_size", "20"))

	entries, total, svcErr := ac.auditService.Query(ctx.Request.Context(), filter)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"entries":   entries,
		"total":     total,
		"page":      filter.Page,
		"page_size": filter.PageSize,
	})
}
