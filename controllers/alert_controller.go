package controllers

import (
	"net/http"

	"inventory-ledger/cache"
	"inventory-ledger/models"
	"inventory-ledger/services"

	"github.com/gin-gonic/gin"
)

// AlertController handles HTTP requests for alert evaluation and settings.
// The evaluation itself is pure; this layer adds the short-TTL dashboard
// cache on top.
type AlertController struct {
	alertService services.AlertService
	alertCache   *cache.AlertCache
}

// NewAlertController creates a new AlertController. alertCache may be nil
// when Redis is not configured.
func NewAlertController(alertService services.AlertService, alertCache *cache.AlertCache) *AlertController {
	return &AlertController{alertService: alertService, alertCache: alertCache}
}

// Evaluate handles GET /inventory/alerts.
func (ac *AlertController) Evaluate(ctx *gin.Context) {
	cached, version, ok := ac.alertCache.GetReport(ctx.Request.Context())
	if ok {
		ctx.JSON(http.StatusOK, cached)
		return
	}

	report, svcErr := ac.alertService.Evaluate(ctx.Request.Context())
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}

	ac.alertCache.SetReportAsync(report, version)
	ctx.JSON(http.StatusOK, report)
}

// GetSettings handles GET /inventory/alerts/settings (admin only).
func (ac *AlertController) GetSettings(ctx *gin.Context) {
	settings, svcErr := ac.alertService.GetSettings(ctx.Request.Context())
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, settings)
}

// UpdateSettings handles PUT /inventory/alerts/settings (admin only).
func (ac *AlertController) UpdateSettings(ctx *gin.Context) {
	var req models.UpdateAlertSettingsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	settings, svcErr := ac.alertService.UpdateSettings(ctx.Request.Context(), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}

	ac.alertCache.InvalidateAsync()
	ctx.JSON(http.StatusOK, settings)
}

// UpsertOverride handles PUT /inventory/alerts/overrides (admin only).
func (ac *AlertController) UpsertOverride(ctx *gin.Context) {
	var req models.UpsertOverrideRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	override, svcErr := ac.alertService.UpsertOverride(ctx.Request.Context(), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}

	ac.alertCache.InvalidateAsync()
	ctx.JSON(http.StatusOK, override)
}
