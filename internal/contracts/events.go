// Package contracts holds the Kafka topics, event types and payloads the
// expedition service exchanges with the rest of the platform.
package contracts

import (
	"time"

	"github.com/google/uuid"
)

// Topics.
const (
	TopicShipmentEvents = "shipment.events"
	TopicCourierEvents  = "courier.events"
	TopicPaymentEvents  = "payment.events"
)

// Event types.
const (
	ShipmentCreated   = "shipment.created"
	ShipmentPaid      = "shipment.paid"
	ShipmentPickedUp  = "shipment.picked_up"
	ShipmentInTransit = "shipment.in_transit"
	ShipmentDelivered = "shipment.delivered"
	ShipmentCancelled = "shipment.cancelled"

	CourierLocationUpdated = "courier.location.updated"

	PaymentConfirmed = "payment.confirmed"
)

// EventSource is the CloudEvents source of everything this service publishes.
const EventSource = "service-expedition"

// ShipmentCreatedEvent is published once a shipment and its receipt exist.
type ShipmentCreatedEvent struct {
	ShipmentID     uuid.UUID `json:"shipment_id"`
	TrackingNumber string    `json:"tracking_number"`
	ClientID       uuid.UUID `json:"client_id"`
	PaymentMethod  string    `json:"payment_method"`
	PayerPhone     string    `json:"payer_phone,omitempty"`
	DistanceKm     float64   `json:"distance_km"`
	TotalPrice     int64     `json:"total_price"`
	Currency       string    `json:"currency"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// ShipmentStatusChangedEvent is published on every later lifecycle transition.
type ShipmentStatusChangedEvent struct {
	ShipmentID     uuid.UUID  `json:"shipment_id"`
	TrackingNumber string     `json:"tracking_number"`
	ClientID       uuid.UUID  `json:"client_id"`
	CourierID      *uuid.UUID `json:"courier_id,omitempty"`
	Status         string     `json:"status"`
	Reason         string     `json:"reason,omitempty"`
	OccurredAt     time.Time  `json:"occurred_at"`
}

// CourierLocationUpdatedEvent carries one accepted position report.
type CourierLocationUpdatedEvent struct {
	CourierID   uuid.UUID `json:"courier_id"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	MovedMeters float64   `json:"moved_meters"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// PaymentConfirmedEvent is consumed from the payment service.
type PaymentConfirmedEvent struct {
	PaymentID      uuid.UUID `json:"payment_id"`
	ShipmentID     uuid.UUID `json:"shipment_id"`
	TrackingNumber string    `json:"tracking_number,omitempty"`
	Amount         int64     `json:"amount"`
	Currency       string    `json:"currency"`
	Reference      string    `json:"reference"`
	OccurredAt     time.Time `json:"occurred_at"`
}
