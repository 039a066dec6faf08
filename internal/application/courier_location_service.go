package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tiibntick/service-expedition/internal/contracts"
	"github.com/tiibntick/service-expedition/internal/domain/courier"
	"github.com/tiibntick/service-expedition/internal/domain/geo"
	"github.com/tiibntick/service-expedition/internal/platform/apperr"
	"go.uber.org/zap"
)

// UpdateLocationRequest is the body the courier app PATCHes.
type UpdateLocationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

// LocationDTO is the response representation of a courier position.
type LocationDTO struct {
	CourierID uuid.UUID `json:"courier_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CourierLocationService stores the last known courier positions.
type CourierLocationService struct {
	repo      courier.LocationRepository
	publisher EventPublisher
	logger    *zap.Logger
}

// NewCourierLocationService creates a new CourierLocationService.
func NewCourierLocationService(repo courier.LocationRepository, publisher EventPublisher, logger *zap.Logger) *CourierLocationService {
	return &CourierLocationService{repo: repo, publisher: publisher, logger: logger}
}

// UpdateLocation records a position report and announces it.
func (s *CourierLocationService) UpdateLocation(ctx context.Context, courierID uuid.UUID, lat, lon float64) (*LocationDTO, error) {
	loc, err := courier.NewLocation(courierID, geo.Coordinate{Lat: lat, Lon: lon})
	if err != nil {
		return nil, err
	}

	prev, err := s.repo.FindByCourierID(ctx, courierID)
	if err != nil && !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}

	if err := s.repo.Upsert(ctx, loc); err != nil {
		return nil, err
	}

	evt := contracts.CourierLocationUpdatedEvent{
		CourierID:   courierID,
		Latitude:    lat,
		Longitude:   lon,
		MovedMeters: loc.DistanceFrom(prev),
		OccurredAt:  loc.UpdatedAt(),
	}
	publishEvent(ctx, s.publisher, s.logger, contracts.TopicCourierEvents, contracts.CourierLocationUpdated, courierID.String(), evt)

	return toLocationDTO(loc), nil
}

// GetLocation returns the last known position of a courier.
func (s *CourierLocationService) GetLocation(ctx context.Context, courierID uuid.UUID) (*LocationDTO, error) {
	loc, err := s.repo.FindByCourierID(ctx, courierID)
	if err != nil {
		return nil, err
	}
	return toLocationDTO(loc), nil
}

func toLocationDTO(l *courier.Location) *LocationDTO {
	c := l.Coordinate()
	return &LocationDTO{
		CourierID: l.CourierID(),
		Latitude:  c.Lat,
		Longitude: c.Lon,
		UpdatedAt: l.UpdatedAt(),
	}
}
