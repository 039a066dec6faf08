package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tiibntick/service-expedition/internal/application"
	"github.com/tiibntick/service-expedition/internal/domain/geo"
	"github.com/tiibntick/service-expedition/internal/platform/auth"
	"github.com/tiibntick/service-expedition/internal/platform/middleware"
	"github.com/tiibntick/service-expedition/internal/platform/response"
)

// GeoHandler serves address search, route previews and the relay network.
type GeoHandler struct {
	service *application.GeoService
}

// NewGeoHandler creates a new GeoHandler.
func NewGeoHandler(service *application.GeoService) *GeoHandler {
	return &GeoHandler{service: service}
}

// RegisterRoutes registers the geo routes.
func (h *GeoHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	api := r.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(jwtManager))
	{
		api.GET("/geocode/search", h.Search)
		api.GET("/geocode/reverse", h.Reverse)
		api.POST("/routes/preview", h.PreviewRoute)
		api.GET("/relay-points", h.RelayPoints)
	}
}

// Search handles GET /api/v1/geocode/search?q=.
func (h *GeoHandler) Search(c *gin.Context) {
	result, err := h.service.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Reverse handles GET /api/v1/geocode/reverse?lat=&lon=.
func (h *GeoHandler) Reverse(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		response.BadRequest(c, "invalid lat")
		return
	}
	lon, err := strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil {
		response.BadRequest(c, "invalid lon")
		return
	}

	result, err := h.service.Reverse(c.Request.Context(), geo.Coordinate{Lat: lat, Lon: lon})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// PreviewRoute handles POST /api/v1/routes/preview.
func (h *GeoHandler) PreviewRoute(c *gin.Context) {
	var req application.RoutePreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.PreviewRoute(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// RelayPoints handles GET /api/v1/relay-points.
func (h *GeoHandler) RelayPoints(c *gin.Context) {
	response.Success(c, h.service.RelayPoints())
}
