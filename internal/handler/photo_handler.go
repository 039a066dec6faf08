package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/tiibntick/service-expedition/internal/application"
	"github.com/tiibntick/service-expedition/internal/platform/auth"
	"github.com/tiibntick/service-expedition/internal/platform/middleware"
	"github.com/tiibntick/service-expedition/internal/platform/response"
)

// PhotoHandler handles HTTP requests for shipment proof photos.
type PhotoHandler struct {
	service *application.PhotoService
}

// NewPhotoHandler creates a new PhotoHandler.
func NewPhotoHandler(service *application.PhotoService) *PhotoHandler {
	return &PhotoHandler{service: service}
}

// RegisterRoutes registers all photo routes.
func (h *PhotoHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	photos := r.Group("/api/v1/shipments")
	photos.Use(middleware.AuthMiddleware(jwtManager))
	{
		photos.POST("/:tracking/photo", middleware.RequireRole(auth.RoleCourier), h.UploadPhoto)
		photos.GET("/:tracking/photos", h.GetShipmentPhotos)
	}
}

// UploadPhoto handles POST /api/v1/shipments/:tracking/photo.
func (h *PhotoHandler) UploadPhoto(c *gin.Context) {
	courierID, ok := currentCourierID(c)
	if !ok {
		return
	}

	var req application.UploadPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.UploadPhoto(c.Request.Context(), c.Param("tracking"), courierID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// GetShipmentPhotos handles GET /api/v1/shipments/:tracking/photos.
func (h *PhotoHandler) GetShipmentPhotos(c *gin.Context) {
	result, err := h.service.GetShipmentPhotos(c.Request.Context(), c.Param("tracking"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
