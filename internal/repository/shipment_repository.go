package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tiibntick/service-expedition/internal/domain/shipment"
	"github.com/tiibntick/service-expedition/internal/platform/apperr"
	"gorm.io/gorm"
)

// ShipmentModel is the GORM model for the shipments table.
type ShipmentModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TrackingNumber string          `gorm:"uniqueIndex;not null;size:20"`
	ClientID       uuid.UUID       `gorm:"type:uuid;index;not null"`
	CourierID      *uuid.UUID      `gorm:"type:uuid;index"`
	Status         string          `gorm:"not null;size:20;index"`
	Sender         json.RawMessage `gorm:"type:jsonb;not null"`
	Recipient      json.RawMessage `gorm:"type:jsonb;not null"`
	Parcel         json.RawMessage `gorm:"type:jsonb;not null"`
	Route          json.RawMessage `gorm:"type:jsonb;not null"`
	BasePrice      int64           `gorm:"not null"`
	TravelPrice    int64           `gorm:"not null"`
	OperatorFee    int64           `gorm:"not null;default:0"`
	TotalPrice     int64           `gorm:"not null"`
	Currency       string          `gorm:"not null;size:3;default:'XAF'"`
	PaymentMethod  string          `gorm:"not null;size:20"`
	PayerPhone     string          `gorm:"size:20"`
	PaymentRef     string          `gorm:"size:100"`
	Signature      string          `gorm:"type:text"`
	PaidAt         *time.Time      `gorm:""`
	PickedUpAt     *time.Time      `gorm:""`
	DeliveredAt    *time.Time      `gorm:""`
	CancelledAt    *time.Time      `gorm:""`
	CancelNote     string          `gorm:"size:500"`
	Version        int64           `gorm:"not null;default:1"`
	CreatedAt      time.Time       `gorm:"not null"`
	UpdatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (ShipmentModel) TableName() string {
	return "shipments"
}

// GormShipmentRepository is the GORM-based implementation of ShipmentRepository.
type GormShipmentRepository struct {
	db *gorm.DB
}

// NewGormShipmentRepository creates a new GormShipmentRepository.
func NewGormShipmentRepository(db *gorm.DB) *GormShipmentRepository {
	return &GormShipmentRepository{db: db}
}

// FindByID retrieves a shipment by its unique identifier.
func (r *GormShipmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*shipment.Shipment, error) {
	return r.findOne(ctx, "id = ?", id, id.String())
}

// FindByTrackingNumber retrieves a shipment by its tracking number.
func (r *GormShipmentRepository) FindByTrackingNumber(ctx context.Context, trackingNumber string) (*shipment.Shipment, error) {
	return r.findOne(ctx, "tracking_number = ?", trackingNumber, trackingNumber)
}

// FindByClientID retrieves a client's shipments, newest first.
func (r *GormShipmentRepository) FindByClientID(ctx context.Context, clientID uuid.UUID, page, limit int) ([]*shipment.Shipment, int64, error) {
	return r.findPage(ctx, r.db.Where("client_id = ?", clientID), page, limit)
}

// FindByCourierID retrieves the shipments a courier collected, newest first.
func (r *GormShipmentRepository) FindByCourierID(ctx context.Context, courierID uuid.UUID, page, limit int) ([]*shipment.Shipment, int64, error) {
	return r.findPage(ctx, r.db.Where("courier_id = ?", courierID), page, limit)
}

// ListAll retrieves all shipments with pagination (admin).
func (r *GormShipmentRepository) ListAll(ctx context.Context, page, limit int) ([]*shipment.Shipment, int64, error) {
	return r.findPage(ctx, r.db, page, limit)
}

// CountByStatus returns shipment counts grouped by status (admin).
func (r *GormShipmentRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&ShipmentModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// Save persists a new shipment.
func (r *GormShipmentRepository) Save(ctx context.Context, s *shipment.Shipment) error {
	model, err := toShipmentModel(s)
	if err != nil {
		return fmt.Errorf("failed to convert shipment to model: %w", err)
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.NewConflictError("tracking number already in use")
		}
		return fmt.Errorf("failed to save shipment: %w", err)
	}
	return nil
}

// Update persists changes to an existing shipment with optimistic locking. The caller
// has already incremented the version, so the stored row must hold version-1.
func (r *GormShipmentRepository) Update(ctx context.Context, s *shipment.Shipment) error {
	model, err := toShipmentModel(s)
	if err != nil {
		return fmt.Errorf("failed to convert shipment to model: %w", err)
	}

	expectedVersion := s.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&ShipmentModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"courier_id":   model.CourierID,
			"status":       model.Status,
			"sender":       model.Sender,
			"recipient":    model.Recipient,
			"parcel":       model.Parcel,
			"route":        model.Route,
			"payment_ref":  model.PaymentRef,
			"paid_at":      model.PaidAt,
			"picked_up_at": model.PickedUpAt,
			"delivered_at": model.DeliveredAt,
			"cancelled_at": model.CancelledAt,
			"cancel_note":  model.CancelNote,
			"version":      model.Version,
			"updated_at":   model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update shipment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NewConflictError("shipment was modified by another transaction")
	}
	return nil
}

func (r *GormShipmentRepository) findOne(ctx context.Context, query string, arg interface{}, ref string) (*shipment.Shipment, error) {
	var model ShipmentModel
	if err := r.db.WithContext(ctx).Where(query, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NewNotFoundError("Shipment", ref)
		}
		return nil, fmt.Errorf("failed to find shipment: %w", err)
	}
	return toDomainShipment(&model)
}

func (r *GormShipmentRepository) findPage(ctx context.Context, scope *gorm.DB, page, limit int) ([]*shipment.Shipment, int64, error) {
	var total int64
	if err := scope.Session(&gorm.Session{}).WithContext(ctx).Model(&ShipmentModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count shipments: %w", err)
	}

	var models []ShipmentModel
	offset := (page - 1) * limit
	if err := scope.Session(&gorm.Session{}).WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list shipments: %w", err)
	}

	shipments := make([]*shipment.Shipment, len(models))
	for i := range models {
		s, err := toDomainShipment(&models[i])
		if err != nil {
			return nil, 0, err
		}
		shipments[i] = s
	}
	return shipments, total, nil
}

// --- Conversion Helpers ---

func toShipmentModel(s *shipment.Shipment) (*ShipmentModel, error) {
	sender, err := json.Marshal(s.Sender())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sender: %w", err)
	}
	recipient, err := json.Marshal(s.Recipient())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal recipient: %w", err)
	}
	parcel, err := json.Marshal(s.Parcel())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal parcel: %w", err)
	}
	route, err := json.Marshal(s.Route())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal route: %w", err)
	}

	pricing := s.Pricing()
	return &ShipmentModel{
		ID:             s.ID(),
		TrackingNumber: s.TrackingNumber(),
		ClientID:       s.ClientID(),
		CourierID:      s.CourierID(),
		Status:         s.Status().String(),
		Sender:         sender,
		Recipient:      recipient,
		Parcel:         parcel,
		Route:          route,
		BasePrice:      pricing.BasePrice,
		TravelPrice:    pricing.TravelPrice,
		OperatorFee:    pricing.OperatorFee,
		TotalPrice:     pricing.TotalPrice,
		Currency:       pricing.Currency,
		PaymentMethod:  string(s.PaymentMethod()),
		PayerPhone:     s.PayerPhone(),
		PaymentRef:     s.PaymentRef(),
		Signature:      s.Signature(),
		PaidAt:         s.PaidAt(),
		PickedUpAt:     s.PickedUpAt(),
		DeliveredAt:    s.DeliveredAt(),
		CancelledAt:    s.CancelledAt(),
		CancelNote:     s.CancelNote(),
		Version:        s.Version(),
		CreatedAt:      s.CreatedAt(),
		UpdatedAt:      s.UpdatedAt(),
	}, nil
}

func toDomainShipment(m *ShipmentModel) (*shipment.Shipment, error) {
	var sender, recipient shipment.Party
	if err := json.Unmarshal(m.Sender, &sender); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sender: %w", err)
	}
	if err := json.Unmarshal(m.Recipient, &recipient); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recipient: %w", err)
	}

	var parcel shipment.Parcel
	if err := json.Unmarshal(m.Parcel, &parcel); err != nil {
		return nil, fmt.Errorf("failed to unmarshal parcel: %w", err)
	}

	var route shipment.RouteData
	if err := json.Unmarshal(m.Route, &route); err != nil {
		return nil, fmt.Errorf("failed to unmarshal route: %w", err)
	}

	status, err := shipment.ParseShipmentStatus(m.Status)
	if err != nil {
		return nil, err
	}

	return shipment.ReconstructShipment(shipment.ReconstructParams{
		ID:             m.ID,
		TrackingNumber: m.TrackingNumber,
		ClientID:       m.ClientID,
		CourierID:      m.CourierID,
		Status:         status,
		Sender:         sender,
		Recipient:      recipient,
		Parcel:         parcel,
		Route:          route,
		Pricing: shipment.Pricing{
			BasePrice:   m.BasePrice,
			TravelPrice: m.TravelPrice,
			OperatorFee: m.OperatorFee,
			TotalPrice:  m.TotalPrice,
			Currency:    m.Currency,
		},
		PaymentMethod: shipment.PaymentMethod(m.PaymentMethod),
		PayerPhone:    m.PayerPhone,
		PaymentRef:    m.PaymentRef,
		Signature:     m.Signature,
		PaidAt:        m.PaidAt,
		PickedUpAt:    m.PickedUpAt,
		DeliveredAt:   m.DeliveredAt,
		CancelledAt:   m.CancelledAt,
		CancelNote:    m.CancelNote,
		Version:       m.Version,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}), nil
}
