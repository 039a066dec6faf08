package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/tiibntick/service-expedition/internal/application"
	"github.com/tiibntick/service-expedition/internal/platform/auth"
	"github.com/tiibntick/service-expedition/internal/platform/middleware"
	"github.com/tiibntick/service-expedition/internal/platform/response"
)

// AdminShipmentHandler handles admin HTTP requests for shipment management.
type AdminShipmentHandler struct {
	service *application.ShipmentService
}

// NewAdminShipmentHandler creates a new AdminShipmentHandler.
func NewAdminShipmentHandler(service *application.ShipmentService) *AdminShipmentHandler {
	return &AdminShipmentHandler{service: service}
}

// RegisterRoutes registers admin shipment routes.
func (h *AdminShipmentHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	adminRole := middleware.RequireRole(auth.RoleAdmin)

	admin := r.Group("/api/v1/admin")
	admin.Use(authMW, adminRole)
	{
		admin.GET("/shipments", h.ListShipments)
		admin.GET("/stats/shipments", h.ShipmentStats)
	}
}

// ListShipments handles GET /api/v1/admin/shipments.
func (h *AdminShipmentHandler) ListShipments(c *gin.Context) {
	page, limit := parsePagination(c)

	shipments, total, err := h.service.ListAll(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, shipments, total, page, limit)
}

// ShipmentStats handles GET /api/v1/admin/stats/shipments.
func (h *AdminShipmentHandler) ShipmentStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}
