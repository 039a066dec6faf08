package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/tiibntick/service-expedition/internal/application"
	"github.com/tiibntick/service-expedition/internal/domain/geo"
	"github.com/tiibntick/service-expedition/internal/platform/auth"
	"github.com/tiibntick/service-expedition/internal/platform/middleware"
	"github.com/tiibntick/service-expedition/internal/platform/response"
)

// RouteSessionHandler exposes the map step of the shipment wizard.
type RouteSessionHandler struct {
	service *application.RouteSessionService
}

// NewRouteSessionHandler creates a new RouteSessionHandler.
func NewRouteSessionHandler(service *application.RouteSessionService) *RouteSessionHandler {
	return &RouteSessionHandler{service: service}
}

// RegisterRoutes registers the route-session routes.
func (h *RouteSessionHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	sessions := r.Group("/api/v1/route-sessions")
	sessions.Use(middleware.AuthMiddleware(jwtManager), middleware.RequireRole(auth.RoleClient))
	{
		sessions.POST("", h.Start)
		sessions.GET("/:id", h.Get)
		sessions.POST("/:id/clicks", h.Click)
		sessions.POST("/:id/reset", h.Reset)
		sessions.POST("/:id/confirm", h.Confirm)
	}
}

// Start handles POST /api/v1/route-sessions.
func (h *RouteSessionHandler) Start(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req application.StartRouteSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Start(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// Get handles GET /api/v1/route-sessions/:id.
func (h *RouteSessionHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	result, err := h.service.Get(c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Click handles POST /api/v1/route-sessions/:id/clicks.
func (h *RouteSessionHandler) Click(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req application.ClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	point := geo.Coordinate{Lat: *req.Latitude, Lon: *req.Longitude}
	result, err := h.service.Click(c.Request.Context(), c.Param("id"), userID, point)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Reset handles POST /api/v1/route-sessions/:id/reset.
func (h *RouteSessionHandler) Reset(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	result, err := h.service.Reset(c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Confirm handles POST /api/v1/route-sessions/:id/confirm.
func (h *RouteSessionHandler) Confirm(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	result, err := h.service.Confirm(c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
