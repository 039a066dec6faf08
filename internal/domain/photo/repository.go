package photo

import (
	"context"

	"github.com/google/uuid"
)

// PhotoRepository defines persistence operations for shipment photos.
type PhotoRepository interface {
	Save(ctx context.Context, photo *ShipmentPhoto) error
	FindByShipmentID(ctx context.Context, shipmentID uuid.UUID) ([]*ShipmentPhoto, error)
	FindByID(ctx context.Context, id uuid.UUID) (*ShipmentPhoto, error)
}
