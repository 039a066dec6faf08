package application

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/tiibntick/service-expedition/internal/contracts"
	"github.com/tiibntick/service-expedition/internal/domain/shipment"
	"github.com/tiibntick/service-expedition/internal/platform/apperr"
	"github.com/tiibntick/service-expedition/internal/platform/paging"
	"github.com/tiibntick/service-expedition/internal/receipt"
	"github.com/tiibntick/service-expedition/internal/routeselect"
	"go.uber.org/zap"
)

// CreateShipmentRequest is the final submission of the expedition wizard.
type CreateShipmentRequest struct {
	RouteSessionID   string          `json:"route_session_id" binding:"required"`
	Sender           shipment.Party  `json:"sender" binding:"required"`
	Recipient        shipment.Party  `json:"recipient" binding:"required"`
	Parcel           shipment.Parcel `json:"parcel" binding:"required"`
	PaymentMethod    string          `json:"payment_method" binding:"required"`
	PayerPhone       string          `json:"payer_phone"`
	Signature        string          `json:"signature"`
	DeparturePointID *string         `json:"departure_point_id"`
	ArrivalPointID   *string         `json:"arrival_point_id"`
}

// CancelShipmentRequest holds the client's reason for cancelling.
type CancelShipmentRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ShipmentDTO is the response representation of a shipment.
type ShipmentDTO struct {
	ID             uuid.UUID          `json:"id"`
	TrackingNumber string             `json:"tracking_number"`
	ClientID       uuid.UUID          `json:"client_id"`
	CourierID      *uuid.UUID         `json:"courier_id,omitempty"`
	Status         string             `json:"status"`
	Sender         shipment.Party     `json:"sender"`
	Recipient      shipment.Party     `json:"recipient"`
	Parcel         shipment.Parcel    `json:"parcel"`
	Route          shipment.RouteData `json:"route"`
	Pricing        shipment.Pricing   `json:"pricing"`
	PaymentMethod  string             `json:"payment_method"`
	PayerPhone     string             `json:"payer_phone,omitempty"`
	PaymentRef     string             `json:"payment_ref,omitempty"`
	HasSignature   bool               `json:"has_signature"`
	PaidAt         *time.Time         `json:"paid_at,omitempty"`
	PickedUpAt     *time.Time         `json:"picked_up_at,omitempty"`
	DeliveredAt    *time.Time         `json:"delivered_at,omitempty"`
	CancelledAt    *time.Time         `json:"cancelled_at,omitempty"`
	CancelNote     string             `json:"cancel_note,omitempty"`
	Version        int64              `json:"version"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// ShipmentStatsDTO holds shipment statistics for the admin dashboard.
type ShipmentStatsDTO struct {
	TotalShipments int64            `json:"total_shipments"`
	ByStatus       map[string]int64 `json:"by_status"`
}

// RouteConfirmer hands over the confirmed route of a wizard session.
type RouteConfirmer interface {
	Confirm(sessionID string, clientID uuid.UUID) (routeselect.Confirmation, error)
	Discard(sessionID string)
}

// ShipmentService is the application service orchestrating shipment use cases.
type ShipmentService struct {
	repo       shipment.ShipmentRepository
	pricing    shipment.PricingStrategy
	routes     RouteConfirmer
	renderer   *receipt.Renderer
	receiptDir string
	publisher  EventPublisher
	logger     *zap.Logger
	now        func() time.Time
}

// NewShipmentService creates a new ShipmentService. An empty receiptDir disables
// archiving receipts on creation; they can still be rendered on demand.
func NewShipmentService(
	repo shipment.ShipmentRepository,
	pricing shipment.PricingStrategy,
	routes RouteConfirmer,
	renderer *receipt.Renderer,
	receiptDir string,
	publisher EventPublisher,
	logger *zap.Logger,
) *ShipmentService {
	return &ShipmentService{
		repo:       repo,
		pricing:    pricing,
		routes:     routes,
		renderer:   renderer,
		receiptDir: receiptDir,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateShipment turns a confirmed route session plus the wizard form into a shipment.
// Prices are recomputed here; the client never supplies amounts.
func (s *ShipmentService) CreateShipment(ctx context.Context, clientID uuid.UUID, req CreateShipmentRequest) (*ShipmentDTO, error) {
	method, err := shipment.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, apperr.NewValidationError(err.Error())
	}
	if err := validateImage("parcel photo", req.Parcel.Photo); err != nil {
		return nil, err
	}
	if err := validateImage("signature", req.Signature); err != nil {
		return nil, err
	}

	conf, err := s.routes.Confirm(req.RouteSessionID, clientID)
	if err != nil {
		return nil, err
	}

	route, err := applyRelayPoints(conf.Route, req.DeparturePointID, req.ArrivalPointID)
	if err != nil {
		return nil, err
	}

	sh, err := shipment.NewShipment(shipment.NewShipmentParams{
		ClientID:      clientID,
		Sender:        req.Sender.WithAddress(conf.Sender),
		Recipient:     req.Recipient.WithAddress(conf.Recipient),
		Parcel:        req.Parcel,
		Route:         route,
		Pricing:       shipment.Quote(s.pricing, req.Parcel, route.DistanceKm, method),
		PaymentMethod: method,
		PayerPhone:    req.PayerPhone,
		Signature:     req.Signature,
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, sh); err != nil {
		return nil, fmt.Errorf("failed to save shipment: %w", err)
	}
	s.routes.Discard(req.RouteSessionID)

	s.archiveReceipt(sh)

	pricing := sh.Pricing()
	evt := contracts.ShipmentCreatedEvent{
		ShipmentID:     sh.ID(),
		TrackingNumber: sh.TrackingNumber(),
		ClientID:       sh.ClientID(),
		PaymentMethod:  string(sh.PaymentMethod()),
		PayerPhone:     sh.PayerPhone(),
		DistanceKm:     sh.Route().DistanceKm,
		TotalPrice:     pricing.TotalPrice,
		Currency:       pricing.Currency,
		OccurredAt:     s.now().UTC(),
	}
	publishEvent(ctx, s.publisher, s.logger, contracts.TopicShipmentEvents, contracts.ShipmentCreated, sh.ID().String(), evt)

	s.logger.Info("shipment created",
		zap.String("tracking_number", sh.TrackingNumber()),
		zap.String("client_id", clientID.String()),
		zap.Int64("total_price", pricing.TotalPrice),
	)

	result := toShipmentDTO(sh)
	return &result, nil
}

// GetByTracking retrieves a single shipment by tracking number.
func (s *ShipmentService) GetByTracking(ctx context.Context, trackingNumber string) (*ShipmentDTO, error) {
	sh, err := s.repo.FindByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return nil, err
	}
	result := toShipmentDTO(sh)
	return &result, nil
}

// ListForClient retrieves paginated shipments created by a client.
func (s *ShipmentService) ListForClient(ctx context.Context, clientID uuid.UUID, page, limit int) (*paging.Result[ShipmentDTO], error) {
	shipments, total, err := s.repo.FindByClientID(ctx, clientID, page, limit)
	if err != nil {
		return nil, err
	}
	result := paging.NewResult(toShipmentDTOs(shipments), total, page, limit)
	return &result, nil
}

// ListForCourier retrieves paginated shipments picked up by a courier.
func (s *ShipmentService) ListForCourier(ctx context.Context, courierID uuid.UUID, page, limit int) (*paging.Result[ShipmentDTO], error) {
	shipments, total, err := s.repo.FindByCourierID(ctx, courierID, page, limit)
	if err != nil {
		return nil, err
	}
	result := paging.NewResult(toShipmentDTOs(shipments), total, page, limit)
	return &result, nil
}

// RenderReceipt writes the PDF receipt of a shipment to w and returns its download name.
func (s *ShipmentService) RenderReceipt(ctx context.Context, trackingNumber string, w io.Writer) (string, error) {
	sh, err := s.repo.FindByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return "", err
	}
	r := receipt.FromShipment(sh, s.now())
	if err := s.renderer.Render(w, r); err != nil {
		return "", err
	}
	return r.FileName(), nil
}

// Cancel cancels a shipment on behalf of the client who created it.
func (s *ShipmentService) Cancel(ctx context.Context, trackingNumber string, clientID uuid.UUID, reason string) (*ShipmentDTO, error) {
	sh, err := s.repo.FindByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return nil, err
	}
	if sh.ClientID() != clientID {
		return nil, apperr.NewForbiddenError("shipment does not belong to this user")
	}

	if err := sh.Cancel(reason); err != nil {
		return nil, err
	}
	return s.commit(ctx, sh, contracts.ShipmentCancelled, reason)
}

// MarkPaid records a confirmed mobile-money payment. Replaying the same payment
// reference is a no-op.
func (s *ShipmentService) MarkPaid(ctx context.Context, shipmentID uuid.UUID, paymentRef string, amount int64) (*ShipmentDTO, error) {
	sh, err := s.repo.FindByID(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if sh.PaymentRef() != "" && sh.PaymentRef() == paymentRef {
		result := toShipmentDTO(sh)
		return &result, nil
	}
	if amount > 0 && amount != sh.Pricing().TotalPrice {
		return nil, apperr.NewValidationError(fmt.Sprintf(
			"payment amount %d does not match shipment total %d", amount, sh.Pricing().TotalPrice))
	}

	if err := sh.MarkPaid(paymentRef); err != nil {
		return nil, err
	}
	return s.commit(ctx, sh, contracts.ShipmentPaid, "")
}

// PickUp assigns the shipment to the courier collecting it.
func (s *ShipmentService) PickUp(ctx context.Context, trackingNumber string, courierID uuid.UUID) (*ShipmentDTO, error) {
	sh, err := s.repo.FindByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return nil, err
	}
	if err := sh.PickUp(courierID); err != nil {
		return nil, err
	}
	return s.commit(ctx, sh, contracts.ShipmentPickedUp, "")
}

// StartTransit marks a picked-up shipment as on its way.
func (s *ShipmentService) StartTransit(ctx context.Context, trackingNumber string, courierID uuid.UUID) (*ShipmentDTO, error) {
	sh, err := s.assignedShipment(ctx, trackingNumber, courierID)
	if err != nil {
		return nil, err
	}
	if err := sh.StartTransit(); err != nil {
		return nil, err
	}
	return s.commit(ctx, sh, contracts.ShipmentInTransit, "")
}

// Deliver marks the shipment as handed over to the recipient.
func (s *ShipmentService) Deliver(ctx context.Context, trackingNumber string, courierID uuid.UUID) (*ShipmentDTO, error) {
	sh, err := s.assignedShipment(ctx, trackingNumber, courierID)
	if err != nil {
		return nil, err
	}
	if err := sh.Deliver(); err != nil {
		return nil, err
	}
	return s.commit(ctx, sh, contracts.ShipmentDelivered, "")
}

// --- Admin methods ---

// ListAll returns a paginated list of all shipments (admin).
func (s *ShipmentService) ListAll(ctx context.Context, page, limit int) ([]ShipmentDTO, int64, error) {
	shipments, total, err := s.repo.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list shipments: %w", err)
	}
	return toShipmentDTOs(shipments), total, nil
}

// Stats returns aggregate shipment statistics (admin).
func (s *ShipmentService) Stats(ctx context.Context) (*ShipmentStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get shipment stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}
	return &ShipmentStatsDTO{TotalShipments: total, ByStatus: counts}, nil
}

// --- Helpers ---

func (s *ShipmentService) assignedShipment(ctx context.Context, trackingNumber string, courierID uuid.UUID) (*shipment.Shipment, error) {
	sh, err := s.repo.FindByTrackingNumber(ctx, trackingNumber)
	if err != nil {
		return nil, err
	}
	if !sh.IsAssignedTo(courierID) {
		return nil, apperr.NewForbiddenError("shipment is not assigned to this courier")
	}
	return sh, nil
}

// commit persists a transition and announces it.
func (s *ShipmentService) commit(ctx context.Context, sh *shipment.Shipment, eventType, reason string) (*ShipmentDTO, error) {
	sh.IncrementVersion()
	if err := s.repo.Update(ctx, sh); err != nil {
		return nil, err
	}

	evt := contracts.ShipmentStatusChangedEvent{
		ShipmentID:     sh.ID(),
		TrackingNumber: sh.TrackingNumber(),
		ClientID:       sh.ClientID(),
		CourierID:      sh.CourierID(),
		Status:         sh.Status().String(),
		Reason:         reason,
		OccurredAt:     s.now().UTC(),
	}
	publishEvent(ctx, s.publisher, s.logger, contracts.TopicShipmentEvents, eventType, sh.ID().String(), evt)

	result := toShipmentDTO(sh)
	return &result, nil
}

func (s *ShipmentService) archiveReceipt(sh *shipment.Shipment) {
	if s.receiptDir == "" || s.renderer == nil {
		return
	}
	if _, err := s.renderer.Save(s.receiptDir, receipt.FromShipment(sh, s.now())); err != nil {
		s.logger.Error("failed to archive receipt",
			zap.String("tracking_number", sh.TrackingNumber()),
			zap.Error(err),
		)
	}
}

// validateImage rejects images the receipt could not embed.
func validateImage(field, dataURL string) error {
	if dataURL == "" {
		return nil
	}
	if _, err := receipt.DecodeDataURL(dataURL); err != nil {
		return apperr.NewValidationError(fmt.Sprintf("%s must be a PNG or JPEG data URL", field))
	}
	return nil
}

// applyRelayPoints replaces a manual endpoint with the relay point the user chose.
func applyRelayPoints(route shipment.RouteData, departureID, arrivalID *string) (shipment.RouteData, error) {
	out := route.Clone()
	if departureID != nil && *departureID != "" && *departureID != shipment.ManualPointID {
		rp, ok := shipment.FindRelayPoint(*departureID)
		if !ok {
			return out, apperr.NewValidationError("unknown departure relay point: " + *departureID)
		}
		id := rp.ID
		out.DeparturePointID = &id
		out.DeparturePointName = rp.Name
	}
	if arrivalID != nil && *arrivalID != "" && *arrivalID != shipment.ManualPointID {
		rp, ok := shipment.FindRelayPoint(*arrivalID)
		if !ok {
			return out, apperr.NewValidationError("unknown arrival relay point: " + *arrivalID)
		}
		id := rp.ID
		out.ArrivalPointID = &id
		out.ArrivalPointName = rp.Name
	}
	return out, nil
}

func toShipmentDTOs(shipments []*shipment.Shipment) []ShipmentDTO {
	dtos := make([]ShipmentDTO, len(shipments))
	for i, sh := range shipments {
		dtos[i] = toShipmentDTO(sh)
	}
	return dtos
}

func toShipmentDTO(sh *shipment.Shipment) ShipmentDTO {
	return ShipmentDTO{
		ID:             sh.ID(),
		TrackingNumber: sh.TrackingNumber(),
		ClientID:       sh.ClientID(),
		CourierID:      sh.CourierID(),
		Status:         sh.Status().String(),
		Sender:         sh.Sender(),
		Recipient:      sh.Recipient(),
		Parcel:         sh.Parcel(),
		Route:          sh.Route(),
		Pricing:        sh.Pricing(),
		PaymentMethod:  string(sh.PaymentMethod()),
		PayerPhone:     sh.PayerPhone(),
		PaymentRef:     sh.PaymentRef(),
		HasSignature:   sh.Signature() != "",
		PaidAt:         sh.PaidAt(),
		PickedUpAt:     sh.PickedUpAt(),
		DeliveredAt:    sh.DeliveredAt(),
		CancelledAt:    sh.CancelledAt(),
		CancelNote:     sh.CancelNote(),
		Version:        sh.Version(),
		CreatedAt:      sh.CreatedAt(),
		UpdatedAt:      sh.UpdatedAt(),
	}
}
