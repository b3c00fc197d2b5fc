package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andenet/shop-backend/internal/metrics"
)

// NewRouter assembles the HTTP surface: the order/payment routes, health
// check and Prometheus endpoint.
func NewRouter(h *Handler, auth *Auth) *gin.Engine {
	router := gin.Default()
	router.Use(metrics.PrometheusMiddleware("shop-api"))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	order := router.Group("/api/order")

	// User payment routes
	order.POST("/place", auth.User(), h.PlaceOrder)
	order.POST("/chapa", auth.User(), h.PlaceOrderChapa)
	order.POST("/mpesa", auth.User(), h.PlaceOrderMpesa)
	order.POST("/userorders", auth.User(), h.UserOrders)

	// Payment reconciliation routes. The callback is unauthenticated: the
	// provider does not sign in, it just posts the outcome.
	order.GET("/chapa/verify/:tx_ref", auth.User(), h.VerifyChapa)
	order.POST("/mpesa/callback", h.MpesaCallback)
	order.GET("/mpesa/status/:checkoutRequestId", auth.User(), h.MpesaStatus)

	// Admin routes
	order.GET("/list", auth.Admin(), h.ListOrders)
	order.POST("/status", auth.Admin(), h.UpdateStatus)

	return router
}
