package application

import (
	"context"
	"strings"

	"github.com/paulmach/orb/geojson"
	"github.com/tiibntick/service-expedition/internal/domain/geo"
	"github.com/tiibntick/service-expedition/internal/domain/shipment"
	"github.com/tiibntick/service-expedition/internal/geocoding"
	"github.com/tiibntick/service-expedition/internal/platform/apperr"
	"github.com/tiibntick/service-expedition/internal/routing"
	"go.uber.org/zap"
)

// RoutePreviewRequest asks for the route and price between two points.
type RoutePreviewRequest struct {
	From geo.Coordinate `json:"from" binding:"required"`
	To   geo.Coordinate `json:"to" binding:"required"`
}

// RoutePreviewDTO is a priced route.
type RoutePreviewDTO struct {
	DistanceKm      float64          `json:"distance_km"`
	DurationMinutes int              `json:"duration_minutes"`
	TravelPrice     int64            `json:"travel_price"`
	Currency        string           `json:"currency"`
	Path            *geojson.Feature `json:"path,omitempty"`
}

// GeoService exposes geocoding, routing and the relay network to clients.
type GeoService struct {
	geocoder geocoding.Geocoder
	router   routing.Router
	pricing  shipment.PricingStrategy
	logger   *zap.Logger
}

// NewGeoService creates a new GeoService.
func NewGeoService(geocoder geocoding.Geocoder, router routing.Router, pricing shipment.PricingStrategy, logger *zap.Logger) *GeoService {
	return &GeoService{geocoder: geocoder, router: router, pricing: pricing, logger: logger}
}

// Search returns the candidates for a free-text address.
func (s *GeoService) Search(ctx context.Context, query string) ([]geo.AddressCandidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.NewValidationError("query is required")
	}
	candidates, err := s.geocoder.Forward(ctx, query)
	if err != nil {
		return nil, err
	}
	if candidates == nil {
		candidates = []geo.AddressCandidate{}
	}
	return candidates, nil
}

// Reverse resolves a coordinate to an address.
func (s *GeoService) Reverse(ctx context.Context, c geo.Coordinate) (*geo.AddressCandidate, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	candidate, err := s.geocoder.Reverse(ctx, c)
	if err != nil {
		return nil, err
	}
	return &candidate, nil
}

// PreviewRoute routes between two points and prices the distance.
func (s *GeoService) PreviewRoute(ctx context.Context, req RoutePreviewRequest) (*RoutePreviewDTO, error) {
	if err := req.From.Validate(); err != nil {
		return nil, err
	}
	if err := req.To.Validate(); err != nil {
		return nil, err
	}

	res, err := s.router.Route(ctx, req.From, req.To)
	if err != nil {
		return nil, err
	}

	km := res.DistanceKm()
	return &RoutePreviewDTO{
		DistanceKm:      km,
		DurationMinutes: res.DurationMinutes(),
		TravelPrice:     s.pricing.TravelPrice(km),
		Currency:        shipment.Currency,
		Path:            res.Feature(),
	}, nil
}

// RelayPoints lists the relay network.
func (s *GeoService) RelayPoints() []shipment.RelayPoint {
	return shipment.RelayPoints()
}
