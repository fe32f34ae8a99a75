package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"icepay-gateway/internal/infrastructure/metrics"
	"icepay-gateway/internal/shared/middleware"
	"icepay-gateway/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	// Global middlewares
	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
	)

	router.GET("/metrics", gin.WrapH(metrics.Handler(prometheus.DefaultGatherer)))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheckHandler(c))

		setupCheckoutRoutes(v1, c)
		setupWebhookRoutes(v1, c)
		setupAdminPaymentRoutes(v1, c)
	}

	return router
}

// ========================================
// CHECKOUT ROUTES
// ========================================
func setupCheckoutRoutes(v1 *gin.RouterGroup, c *container.Container) {
	checkout := v1.Group("/checkout/:order_id/icepay")
	{
		checkout.POST("", c.PaymentHandler.StartCheckout)
		checkout.GET("/return", c.PaymentHandler.Return)
		checkout.GET("/cancel", c.PaymentHandler.Cancel)
	}
}

// ========================================
// WEBHOOK ROUTES (no auth, checksum verified)
// ========================================
func setupWebhookRoutes(v1 *gin.RouterGroup, c *container.Container) {
	webhooks := v1.Group("/webhooks/icepay")
	{
		webhooks.GET("/notify", c.PaymentHandler.NotifyHealth)
		webhooks.POST("/notify", c.PaymentHandler.Notify)
	}
}

// ========================================
// ADMIN PAYMENT ROUTES
// ========================================
func setupAdminPaymentRoutes(v1 *gin.RouterGroup, c *container.Container) {
	adminPayments := v1.Group("/admin/payments")
	adminPayments.Use(middleware.AuthMiddleware(c.JWTManager), middleware.AdminMiddleware())
	{
		adminPayments.GET("/postbacks", c.PaymentHandler.AdminListPostbacks)
		adminPayments.GET("/:payment_id", c.PaymentHandler.AdminGetPayment)
	}
}

// ========================================
// HEALTH CHECK HANDLER
// ========================================
func healthCheckHandler(appCtx *container.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := "ok"

		dbStatus := "ok"
		if err := appCtx.DB.HealthCheck(ctx); err != nil {
			dbStatus = "error: " + err.Error()
			status = "degraded"
		}

		redisStatus := "ok"
		if err := appCtx.Redis.HealthCheck(ctx); err != nil {
			redisStatus = "error: " + err.Error()
			status = "degraded"
		}

		statusCode := http.StatusOK
		if status != "ok" {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, gin.H{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   appCtx.Config.App.Version,
			"services": gin.H{
				"database": dbStatus,
				"redis":    redisStatus,
			},
		})
	}
}
