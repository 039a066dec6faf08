package shipment

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/tiibntick/service-expedition/internal/platform/apperr"
)

const trackingNumberChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Shipment is the aggregate root for the expedition domain.
type Shipment struct {
	id             uuid.UUID
	trackingNumber string
	clientID       uuid.UUID
	courierID      *uuid.UUID
	status         ShipmentStatus

	sender    Party
	recipient Party
	parcel    Parcel
	route     RouteData

	pricing       Pricing
	paymentMethod PaymentMethod
	payerPhone    string
	paymentRef    string
	signature     string

	paidAt      *time.Time
	pickedUpAt  *time.Time
	deliveredAt *time.Time
	cancelledAt *time.Time
	cancelNote  string

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewShipmentParams groups the inputs of NewShipment.
type NewShipmentParams struct {
	ClientID      uuid.UUID
	Sender        Party
	Recipient     Party
	Parcel        Parcel
	Route         RouteData
	Pricing       Pricing
	PaymentMethod PaymentMethod
	PayerPhone    string
	Signature     string
}

// GenerateTrackingNumber creates a tracking number in the format "TRK-XXXXXXXX".
func GenerateTrackingNumber() (string, error) {
	result := make([]byte, 8)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(trackingNumberChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate tracking number: %w", err)
		}
		result[i] = trackingNumberChars[n.Int64()]
	}
	return "TRK-" + string(result), nil
}

// NewShipment creates a new Shipment aggregate with status=created.
func NewShipment(p NewShipmentParams) (*Shipment, error) {
	if p.ClientID == uuid.Nil {
		return nil, apperr.NewValidationError("client ID is required")
	}
	if err := p.Sender.Validate("sender"); err != nil {
		return nil, err
	}
	if err := p.Recipient.Validate("recipient"); err != nil {
		return nil, err
	}
	if err := p.Parcel.Validate(); err != nil {
		return nil, err
	}
	if !(p.Route.DistanceKm > 0) {
		return nil, apperr.NewValidationError("a computed route is required")
	}
	if !isKnownPointID(p.Route.DeparturePointID) || !isKnownPointID(p.Route.ArrivalPointID) {
		return nil, apperr.NewValidationError("unknown relay point")
	}
	if !p.PaymentMethod.IsValid() {
		return nil, apperr.NewValidationError(fmt.Sprintf("invalid payment method: %s", p.PaymentMethod))
	}
	if p.PaymentMethod == PaymentMobile && !IsMobileMoneyNumber(p.PayerPhone) {
		return nil, apperr.NewValidationError("a valid mobile money number is required")
	}
	if p.Pricing.TotalPrice <= 0 {
		return nil, apperr.NewValidationError("total price must be positive")
	}

	trackingNumber, err := GenerateTrackingNumber()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Shipment{
		id:             uuid.New(),
		trackingNumber: trackingNumber,
		clientID:       p.ClientID,
		status:         StatusCreated,
		sender:         p.Sender,
		recipient:      p.Recipient,
		parcel:         p.Parcel,
		route:          p.Route.Clone(),
		pricing:        p.Pricing,
		paymentMethod:  p.PaymentMethod,
		payerPhone:     p.PayerPhone,
		signature:      p.Signature,
		version:        1,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// ReconstructParams groups every persisted field of a Shipment.
type ReconstructParams struct {
	ID             uuid.UUID
	TrackingNumber string
	ClientID       uuid.UUID
	CourierID      *uuid.UUID
	Status         ShipmentStatus
	Sender         Party
	Recipient      Party
	Parcel         Parcel
	Route          RouteData
	Pricing        Pricing
	PaymentMethod  PaymentMethod
	PayerPhone     string
	PaymentRef     string
	Signature      string
	PaidAt         *time.Time
	PickedUpAt     *time.Time
	DeliveredAt    *time.Time
	CancelledAt    *time.Time
	CancelNote     string
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ReconstructShipment rebuilds a Shipment from persistence data (no validation).
func ReconstructShipment(p ReconstructParams) *Shipment {
	return &Shipment{
		id:             p.ID,
		trackingNumber: p.TrackingNumber,
		clientID:       p.ClientID,
		courierID:      p.CourierID,
		status:         p.Status,
		sender:         p.Sender,
		recipient:      p.Recipient,
		parcel:         p.Parcel,
		route:          p.Route,
		pricing:        p.Pricing,
		paymentMethod:  p.PaymentMethod,
		payerPhone:     p.PayerPhone,
		paymentRef:     p.PaymentRef,
		signature:      p.Signature,
		paidAt:         p.PaidAt,
		pickedUpAt:     p.PickedUpAt,
		deliveredAt:    p.DeliveredAt,
		cancelledAt:    p.CancelledAt,
		cancelNote:     p.CancelNote,
		version:        p.Version,
		createdAt:      p.CreatedAt,
		updatedAt:      p.UpdatedAt,
	}
}

// --- Getters ---

func (s *Shipment) ID() uuid.UUID                { return s.id }
func (s *Shipment) TrackingNumber() string       { return s.trackingNumber }
func (s *Shipment) ClientID() uuid.UUID          { return s.clientID }
func (s *Shipment) CourierID() *uuid.UUID        { return s.courierID }
func (s *Shipment) Status() ShipmentStatus       { return s.status }
func (s *Shipment) Sender() Party                { return s.sender }
func (s *Shipment) Recipient() Party             { return s.recipient }
func (s *Shipment) Parcel() Parcel               { return s.parcel }
func (s *Shipment) Route() RouteData             { return s.route.Clone() }
func (s *Shipment) Pricing() Pricing             { return s.pricing }
func (s *Shipment) PaymentMethod() PaymentMethod { return s.paymentMethod }
func (s *Shipment) PayerPhone() string           { return s.payerPhone }
func (s *Shipment) PaymentRef() string           { return s.paymentRef }
func (s *Shipment) Signature() string            { return s.signature }
func (s *Shipment) PaidAt() *time.Time           { return s.paidAt }
func (s *Shipment) PickedUpAt() *time.Time       { return s.pickedUpAt }
func (s *Shipment) DeliveredAt() *time.Time      { return s.deliveredAt }
func (s *Shipment) CancelledAt() *time.Time      { return s.cancelledAt }
func (s *Shipment) CancelNote() string           { return s.cancelNote }

// Version returns the entity version for optimistic locking.
func (s *Shipment) Version() int64       { return s.version }
func (s *Shipment) CreatedAt() time.Time { return s.createdAt }
func (s *Shipment) UpdatedAt() time.Time { return s.updatedAt }

// --- Behavior ---

// MarkPaid records a confirmed mobile money payment.
func (s *Shipment) MarkPaid(paymentRef string) error {
	if s.paymentMethod != PaymentMobile {
		return apperr.NewValidationError("recipient-paid shipments are settled on delivery")
	}
	if !s.status.CanTransitionTo(StatusPaid) {
		return apperr.NewInvalidStateError(string(s.status), string(StatusPaid))
	}
	now := time.Now().UTC()
	s.status = StatusPaid
	s.paymentRef = paymentRef
	s.paidAt = &now
	s.updatedAt = now
	return nil
}

// PickUp assigns the courier collecting the parcel. Sender-paid shipments must be paid first.
func (s *Shipment) PickUp(courierID uuid.UUID) error {
	if !s.status.CanTransitionTo(StatusPickedUp) {
		return apperr.NewInvalidStateError(string(s.status), string(StatusPickedUp))
	}
	if s.status == StatusCreated && s.paymentMethod == PaymentMobile {
		return apperr.NewInvalidStateError(string(s.status), string(StatusPickedUp))
	}
	if courierID == uuid.Nil {
		return apperr.NewValidationError("courier ID is required")
	}
	now := time.Now().UTC()
	s.courierID = &courierID
	s.status = StatusPickedUp
	s.pickedUpAt = &now
	s.updatedAt = now
	return nil
}

// StartTransit marks the parcel as on its way.
func (s *Shipment) StartTransit() error {
	if !s.status.CanTransitionTo(StatusInTransit) {
		return apperr.NewInvalidStateError(string(s.status), string(StatusInTransit))
	}
	s.status = StatusInTransit
	s.updatedAt = time.Now().UTC()
	return nil
}

// Deliver marks the parcel as handed to the recipient.
func (s *Shipment) Deliver() error {
	if !s.status.CanTransitionTo(StatusDelivered) {
		return apperr.NewInvalidStateError(string(s.status), string(StatusDelivered))
	}
	now := time.Now().UTC()
	s.status = StatusDelivered
	s.deliveredAt = &now
	s.updatedAt = now
	return nil
}

// Cancel transitions the shipment to cancelled if the parcel has not been collected.
func (s *Shipment) Cancel(reason string) error {
	if !s.status.CanBeCancelled() {
		return apperr.NewInvalidStateError(string(s.status), string(StatusCancelled))
	}
	now := time.Now().UTC()
	s.status = StatusCancelled
	s.cancelNote = reason
	s.cancelledAt = &now
	s.updatedAt = now
	return nil
}

// IsAssignedTo reports whether the courier carries this shipment.
func (s *Shipment) IsAssignedTo(courierID uuid.UUID) bool {
	return s.courierID != nil && *s.courierID == courierID
}

// IncrementVersion bumps the version for optimistic locking.
func (s *Shipment) IncrementVersion() {
	s.version++
	s.updatedAt = time.Now().UTC()
}
