package courier

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geo"
	geodomain "github.com/tiibntick/service-expedition/internal/domain/geo"
)

// Location is the last known position reported by a courier.
type Location struct {
	courierID  uuid.UUID
	coordinate geodomain.Coordinate
	updatedAt  time.Time
}

// NewLocation validates a reported position.
func NewLocation(courierID uuid.UUID, c geodomain.Coordinate) (*Location, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &Location{courierID: courierID, coordinate: c, updatedAt: time.Now().UTC()}, nil
}

// ReconstructLocation rebuilds a Location from persistence.
func ReconstructLocation(courierID uuid.UUID, c geodomain.Coordinate, updatedAt time.Time) *Location {
	return &Location{courierID: courierID, coordinate: c, updatedAt: updatedAt}
}

func (l *Location) CourierID() uuid.UUID             { return l.courierID }
func (l *Location) Coordinate() geodomain.Coordinate { return l.coordinate }
func (l *Location) UpdatedAt() time.Time             { return l.updatedAt }

// DistanceFrom is the great-circle distance in meters to another location, 0 when prev is nil.
func (l *Location) DistanceFrom(prev *Location) float64 {
	if prev == nil {
		return 0
	}
	return geo.Distance(prev.coordinate.Point(), l.coordinate.Point())
}

// LocationRepository persists the latest position per courier.
type LocationRepository interface {
	Upsert(ctx context.Context, loc *Location) error
	FindByCourierID(ctx context.Context, courierID uuid.UUID) (*Location, error)
}
