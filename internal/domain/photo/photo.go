package photo

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tiibntick/service-expedition/internal/platform/apperr"
)

// Kind tells at which handover a proof photo was taken.
type Kind string

const (
	KindPickup   Kind = "pickup"
	KindDelivery Kind = "delivery"
)

// IsValid returns true if the photo kind is recognized.
func (k Kind) IsValid() bool {
	return k == KindPickup || k == KindDelivery
}

// ShipmentPhoto is a proof-of-handover picture attached to a shipment by its courier.
type ShipmentPhoto struct {
	id         uuid.UUID
	shipmentID uuid.UUID
	courierID  uuid.UUID
	kind       Kind
	url        string
	caption    string
	takenAt    time.Time
	createdAt  time.Time
}

// NewShipmentPhoto validates and creates a proof photo. url may be an http(s) link or a data URL.
func NewShipmentPhoto(shipmentID, courierID uuid.UUID, kind Kind, url, caption string) (*ShipmentPhoto, error) {
	if !kind.IsValid() {
		return nil, apperr.NewValidationError("invalid photo kind: " + string(kind))
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, apperr.NewValidationError("photo URL is required")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "data:image/") {
		return nil, apperr.NewValidationError("photo URL must be an http(s) link or an image data URL")
	}

	now := time.Now().UTC()
	return &ShipmentPhoto{
		id:         uuid.New(),
		shipmentID: shipmentID,
		courierID:  courierID,
		kind:       kind,
		url:        url,
		caption:    caption,
		takenAt:    now,
		createdAt:  now,
	}, nil
}

// Reconstruct rebuilds a ShipmentPhoto from persistence.
func Reconstruct(id, shipmentID, courierID uuid.UUID, kind Kind, url, caption string, takenAt, createdAt time.Time) *ShipmentPhoto {
	return &ShipmentPhoto{
		id:         id,
		shipmentID: shipmentID,
		courierID:  courierID,
		kind:       kind,
		url:        url,
		caption:    caption,
		takenAt:    takenAt,
		createdAt:  createdAt,
	}
}

// Getters.
func (p *ShipmentPhoto) ID() uuid.UUID         { return p.id }
func (p *ShipmentPhoto) ShipmentID() uuid.UUID { return p.shipmentID }
func (p *ShipmentPhoto) CourierID() uuid.UUID  { return p.courierID }
func (p *ShipmentPhoto) Kind() Kind            { return p.kind }
func (p *ShipmentPhoto) URL() string           { return p.url }
func (p *ShipmentPhoto) Caption() string       { return p.caption }
func (p *ShipmentPhoto) TakenAt() time.Time    { return p.takenAt }
func (p *ShipmentPhoto) CreatedAt() time.Time  { return p.createdAt }
