package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	photoDomain "github.com/tiibntick/service-expedition/internal/domain/photo"
	"github.com/tiibntick/service-expedition/internal/domain/shipment"
	"github.com/tiibntick/service-expedition/internal/platform/apperr"
	"go.uber.org/zap"
)

// UploadPhotoRequest holds the data to upload a proof photo.
type UploadPhotoRequest struct {
	Kind    string `json:"kind" binding:"required"`
	URL     string `json:"url" binding:"required"`
	Caption string `json:"caption"`
}

// PhotoDTO is the API response representation of a shipment photo.
type PhotoDTO struct {
	ID         uuid.UUID `json:"id"`
	ShipmentID uuid.UUID `json:"shipment_id"`
	CourierID  uuid.UUID `json:"courier_id"`
	Kind       string    `json:"kind"`
	URL        string    `json:"url"`
	Caption    string    `json:"caption"`
	TakenAt    time.Time `json:"taken_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// PhotoService handles pickup and delivery proof photos.
type PhotoService struct {
	repo      photoDomain.PhotoRepository
	shipments shipment.ShipmentRepository
	logger    *zap.Logger
}

// NewPhotoService creates a new PhotoService.
func NewPhotoService(repo photoDomain.PhotoRepository, shipments shipment.ShipmentRepository, logger *zap.Logger) *PhotoService {
	return &PhotoService{repo: repo, shipments: shipments, logger: logger}
}

// UploadPhoto attaches a proof photo to a shipment carried by the courier.
func (s *PhotoService) UploadPhoto(ctx context.Context, trackingNumber string, courierID uuid.UUID, req UploadPhotoRequest) (*PhotoDTO, error) {
	sh, err := s.shipments.FindByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return nil, err
	}
	if !sh.IsAssignedTo(courierID) {
		return nil, apperr.NewForbiddenError("shipment is not assigned to this courier")
	}

	photo, err := photoDomain.NewShipmentPhoto(sh.ID(), courierID, photoDomain.Kind(req.Kind), req.URL, req.Caption)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, photo); err != nil {
		return nil, err
	}

	s.logger.Info("photo uploaded",
		zap.String("tracking_number", trackingNumber),
		zap.String("kind", req.Kind),
	)
	return toPhotoDTO(photo), nil
}

// GetShipmentPhotos returns all photos of a shipment.
func (s *PhotoService) GetShipmentPhotos(ctx context.Context, trackingNumber string) ([]*PhotoDTO, error) {
	sh, err := s.shipments.FindByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return nil, err
	}
	photos, err := s.repo.FindByShipmentID(ctx, sh.ID())
	if err != nil {
		return nil, err
	}

	dtos := make([]*PhotoDTO, len(photos))
	for i, p := range photos {
		dtos[i] = toPhotoDTO(p)
	}
	return dtos, nil
}

func toPhotoDTO(p *photoDomain.ShipmentPhoto) *PhotoDTO {
	return &PhotoDTO{
		ID:         p.ID(),
		ShipmentID: p.ShipmentID(),
		CourierID:  p.CourierID(),
		Kind:       string(p.Kind()),
		URL:        p.URL(),
		Caption:    p.Caption(),
		TakenAt:    p.TakenAt(),
		CreatedAt:  p.CreatedAt(),
	}
}
