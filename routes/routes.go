package routes

import (
	"inventory-ledger/controllers"
	"inventory-ledger/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all inventory ledger routes. Checkout-facing
// endpoints accept guests (session-owned holds); management endpoints
// require an authenticated admin.
func RegisterRoutes(
	r *gin.Engine,
	stock *controllers.StockController,
	reservations *controllers.ReservationController,
	audit *controllers.AuditController,
	alerts *controllers.AlertController,
) {
	inventory := r.Group("/inventory")

	// Checkout-facing endpoints
	public := inventory.Group("")
	public.Use(middleware.OptionalAuth())
	{
		public.GET("/:productId", stock.GetStock)
		public.POST("/check", reservations.CheckStock)
		public.POST("/reservations", reservations.Reserve)
		public.GET("/reservations/:id", reservations.GetReservation)
		public.POST("/reservations/:id/release", reservations.Release)
	}

	// Admin/internal endpoints
	admin := inventory.Group("")
	admin.Use(middleware.AuthMiddleware(), middleware.AdminOnly())
	{
		admin.POST("", stock.CreateStock)
		admin.PUT("/:productId", stock.UpdateStock)
		admin.POST("/adjust", stock.Adjust)
		admin.POST("/reservations/fulfill", reservations.Fulfill)
		admin.POST("/reservations/sweep", reservations.Sweep)
		admin.GET("/audit", audit.Query)
		admin.GET("/alerts", alerts.Evaluate)
		admin.GET("/alerts/settings", alerts.GetSettings)
		admin.PUT("/alerts/settings", alerts.UpdateSettings)
		admin.PUT("/alerts/overrides", alerts.UpsertOverride)
	}
}
