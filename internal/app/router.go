package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"orderpay/internal/handler"
	"orderpay/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	OrderHandler   *handler.OrderHandler
	PaymentHandler *handler.PaymentHandler
	GatewayHandler *handler.GatewayHandler
	RedisClient    *redis.Client
	NewRelicApp    *newrelic.Application
	Logger         *zap.Logger
	AllowedOrigins []string
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.CORSMiddleware(deps.AllowedOrigins...))

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
		router.Use(middleware.NewRelicErrors())
	}

	if deps.RedisClient != nil {
		router.Use(middleware.IdempotencyMiddleware(deps.RedisClient, deps.Logger))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Order routes.
		orders := v1.Group("/orders")
		{
			orders.POST("", deps.OrderHandler.CreateOrder)
			orders.GET("", deps.OrderHandler.ListOrders)
			orders.GET("/:id", deps.OrderHandler.GetOrder)
			orders.PUT("/:id", deps.OrderHandler.UpdateOrder)
			orders.DELETE("/:id", deps.OrderHandler.DeleteOrder)
			orders.POST("/:id/confirm", deps.OrderHandler.ConfirmOrder)
			orders.POST("/:id/cancel", deps.OrderHandler.CancelOrder)

			orders.GET("/:id/payments", deps.PaymentHandler.ListOrderPayments)
			orders.POST("/:id/payments", deps.PaymentHandler.ProcessPayment)
			orders.GET("/:id/payments/stats", deps.PaymentHandler.PaymentStats)
		}

		// Payment routes.
		payments := v1.Group("/payments")
		{
			payments.GET("", deps.PaymentHandler.ListPayments)
			payments.GET("/:id", deps.PaymentHandler.GetPayment)
			payments.POST("/:id/refund", deps.PaymentHandler.RefundPayment)
		}

		// Gateway discovery.
		v1.GET("/gateways", deps.GatewayHandler.ListGateways)
	}

	return router
}
