package shipment

import (
	"context"

	"github.com/google/uuid"
)

// ShipmentRepository defines the persistence contract for shipment aggregates.
type ShipmentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Shipment, error)

	// FindByTrackingNumber retrieves a shipment by the number printed on its receipt.
	FindByTrackingNumber(ctx context.Context, trackingNumber string) (*Shipment, error)

	FindByClientID(ctx context.Context, clientID uuid.UUID, page, limit int) ([]*Shipment, int64, error)

	FindByCourierID(ctx context.Context, courierID uuid.UUID, page, limit int) ([]*Shipment, int64, error)

	// ListAll retrieves all shipments with pagination (admin).
	ListAll(ctx context.Context, page, limit int) ([]*Shipment, int64, error)

	// CountByStatus returns shipment counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)

	Save(ctx context.Context, s *Shipment) error

	// Update persists changes to an existing shipment with optimistic locking.
	Update(ctx context.Context, s *Shipment) error
}
