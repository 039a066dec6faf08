package handler

import (
	"bytes"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tiibntick/service-expedition/internal/application"
	"github.com/tiibntick/service-expedition/internal/platform/auth"
	"github.com/tiibntick/service-expedition/internal/platform/middleware"
	"github.com/tiibntick/service-expedition/internal/platform/response"
)

type courierTransitionFunc func(ctx context.Context, trackingNumber string, courierID uuid.UUID) (*application.ShipmentDTO, error)

// ShipmentHandler handles HTTP requests for shipment operations.
type ShipmentHandler struct {
	service *application.ShipmentService
}

// NewShipmentHandler creates a new ShipmentHandler.
func NewShipmentHandler(service *application.ShipmentService) *ShipmentHandler {
	return &ShipmentHandler{service: service}
}

// RegisterRoutes registers all shipment routes on the given router group.
func (h *ShipmentHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	courierRole := middleware.RequireRole(auth.RoleCourier)

	shipments := r.Group("/api/v1/shipments")
	shipments.Use(authMW)
	{
		shipments.POST("", middleware.RequireRole(auth.RoleClient), h.CreateShipment)
		shipments.GET("", h.ListShipments)
		shipments.GET("/:tracking", h.GetShipment)
		shipments.GET("/:tracking/receipt", h.DownloadReceipt)
		shipments.POST("/:tracking/cancel", middleware.RequireRole(auth.RoleClient), h.CancelShipment)
		shipments.POST("/:tracking/pickup", courierRole, h.PickUp)
		shipments.POST("/:tracking/transit", courierRole, h.StartTransit)
		shipments.POST("/:tracking/deliver", courierRole, h.Deliver)
	}
}

// CreateShipment handles POST /api/v1/shipments.
func (h *ShipmentHandler) CreateShipment(c *gin.Context) {
	clientID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req application.CreateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateShipment(c.Request.Context(), clientID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListShipments handles GET /api/v1/shipments. Clients see their own shipments,
// couriers the ones they carry.
func (h *ShipmentHandler) ListShipments(c *gin.Context) {
	session, ok := middleware.GetSession(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	page, limit := parsePagination(c)

	if session.Role == auth.RoleCourier {
		courierID, ok := currentCourierID(c)
		if !ok {
			return
		}
		result, err := h.service.ListForCourier(c.Request.Context(), courierID, page, limit)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
		return
	}

	result, err := h.service.ListForClient(c.Request.Context(), session.UserID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetShipment handles GET /api/v1/shipments/:tracking.
func (h *ShipmentHandler) GetShipment(c *gin.Context) {
	result, err := h.service.GetByTracking(c.Request.Context(), c.Param("tracking"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// DownloadReceipt handles GET /api/v1/shipments/:tracking/receipt.
func (h *ShipmentHandler) DownloadReceipt(c *gin.Context) {
	var buf bytes.Buffer
	fileName, err := h.service.RenderReceipt(c.Request.Context(), c.Param("tracking"), &buf)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+fileName)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// CancelShipment handles POST /api/v1/shipments/:tracking/cancel.
func (h *ShipmentHandler) CancelShipment(c *gin.Context) {
	clientID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req application.CancelShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Cancel(c.Request.Context(), c.Param("tracking"), clientID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// PickUp handles POST /api/v1/shipments/:tracking/pickup.
func (h *ShipmentHandler) PickUp(c *gin.Context) {
	h.courierTransition(c, h.service.PickUp)
}

// StartTransit handles POST /api/v1/shipments/:tracking/transit.
func (h *ShipmentHandler) StartTransit(c *gin.Context) {
	h.courierTransition(c, h.service.StartTransit)
}

// Deliver handles POST /api/v1/shipments/:tracking/deliver.
func (h *ShipmentHandler) Deliver(c *gin.Context) {
	h.courierTransition(c, h.service.Deliver)
}

func (h *ShipmentHandler) courierTransition(c *gin.Context, transition courierTransitionFunc) {
	courierID, ok := currentCourierID(c)
	if !ok {
		return
	}

	result, err := transition(c.Request.Context(), c.Param("tracking"), courierID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
