package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tiibntick/service-expedition/internal/application"
	"github.com/tiibntick/service-expedition/internal/platform/auth"
	"github.com/tiibntick/service-expedition/internal/platform/middleware"
	"github.com/tiibntick/service-expedition/internal/platform/response"
)

// CourierLocationHandler receives courier positions and serves the last known one.
type CourierLocationHandler struct {
	service *application.CourierLocationService
}

// NewCourierLocationHandler creates a new CourierLocationHandler.
func NewCourierLocationHandler(service *application.CourierLocationService) *CourierLocationHandler {
	return &CourierLocationHandler{service: service}
}

// RegisterRoutes registers the courier location routes. The path matches the one
// the courier app already reports to.
func (h *CourierLocationHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	couriers := r.Group("/api/delivery-persons")
	couriers.Use(middleware.AuthMiddleware(jwtManager))
	{
		couriers.PATCH("/:id/location", middleware.RequireRole(auth.RoleCourier), h.UpdateLocation)
		couriers.GET("/:id/location", h.GetLocation)
	}
}

// UpdateLocation handles PATCH /api/delivery-persons/:id/location. Couriers may only
// move themselves.
func (h *CourierLocationHandler) UpdateLocation(c *gin.Context) {
	courierID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid courier ID")
		return
	}

	own, ok := currentCourierID(c)
	if !ok {
		return
	}
	if own != courierID {
		response.Forbidden(c, "cannot report another courier's location")
		return
	}

	var req application.UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.UpdateLocation(c.Request.Context(), courierID, *req.Latitude, *req.Longitude)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetLocation handles GET /api/delivery-persons/:id/location.
func (h *CourierLocationHandler) GetLocation(c *gin.Context) {
	courierID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid courier ID")
		return
	}

	result, err := h.service.GetLocation(c.Request.Context(), courierID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
