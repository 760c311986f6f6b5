package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"orderpay/internal/gateway"
	"orderpay/internal/redis"
)

// GatewayHandler handles HTTP requests for gateway discovery.
type GatewayHandler struct {
	registry *gateway.Registry
	cache    redis.CacheStoreInterface
	logger   *zap.Logger
}

// NewGatewayHandler creates a new GatewayHandler. A nil cache disables caching.
func NewGatewayHandler(registry *gateway.Registry, cache redis.CacheStoreInterface, logger *zap.Logger) *GatewayHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GatewayHandler{registry: registry, cache: cache, logger: logger}
}

// GatewaysResponse is the HTTP response for gateway discovery.
type GatewaysResponse struct {
	Available  []string `json:"available"`
	Configured []string `json:"configured"`
}

// ListGateways handles GET /v1/gateways
func (h *GatewayHandler) ListGateways(c *gin.Context) {
	ctx := c.Request.Context()

	if h.cache != nil {
		cached, err := h.cache.GetGatewayListing(ctx)
		if err != nil {
			h.logger.Warn("Gateway listing cache read failed", zap.Error(err))
		} else if cached != nil {
			respondJSON(c, http.StatusOK, DataResponse{Data: GatewaysResponse(*cached)})
			return
		}
	}

	listing := redis.GatewayListing{
		Available:  h.registry.Available(),
		Configured: h.registry.ConfiguredGateways(ctx),
	}

	if h.cache != nil {
		if err := h.cache.SetGatewayListing(ctx, &listing); err != nil {
			h.logger.Warn("Gateway listing cache write failed", zap.Error(err))
		}
	}

	respondJSON(c, http.StatusOK, DataResponse{Data: GatewaysResponse(listing)})
}
