package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	photoDomain "github.com/tiibntick/service-expedition/internal/domain/photo"
	"github.com/tiibntick/service-expedition/internal/platform/apperr"
	"gorm.io/gorm"
)

// PhotoModel is the GORM model for the shipment_photos table.
type PhotoModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	ShipmentID uuid.UUID `gorm:"type:uuid;not null;index"`
	CourierID  uuid.UUID `gorm:"type:uuid;not null"`
	Kind       string    `gorm:"type:varchar(20);not null"`
	URL        string    `gorm:"column:url;type:text;not null"`
	Caption    string    `gorm:"type:text"`
	TakenAt    time.Time `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName sets the table name.
func (PhotoModel) TableName() string { return "shipment_photos" }

// GormPhotoRepository implements PhotoRepository using GORM.
type GormPhotoRepository struct {
	db *gorm.DB
}

// NewGormPhotoRepository creates a new GormPhotoRepository.
func NewGormPhotoRepository(db *gorm.DB) *GormPhotoRepository {
	return &GormPhotoRepository{db: db}
}

// Save persists a new shipment photo.
func (r *GormPhotoRepository) Save(ctx context.Context, photo *photoDomain.ShipmentPhoto) error {
	model := toPhotoModel(photo)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to save photo: %w", err)
	}
	return nil
}

// FindByShipmentID returns all photos of a shipment, oldest first.
func (r *GormPhotoRepository) FindByShipmentID(ctx context.Context, shipmentID uuid.UUID) ([]*photoDomain.ShipmentPhoto, error) {
	var models []PhotoModel
	if err := r.db.WithContext(ctx).Where("shipment_id = ?", shipmentID).Order("taken_at ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find shipment photos: %w", err)
	}

	photos := make([]*photoDomain.ShipmentPhoto, len(models))
	for i := range models {
		photos[i] = toPhotoDomain(&models[i])
	}
	return photos, nil
}

// FindByID returns a single photo by ID.
func (r *GormPhotoRepository) FindByID(ctx context.Context, id uuid.UUID) (*photoDomain.ShipmentPhoto, error) {
	var model PhotoModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NewNotFoundError("ShipmentPhoto", id.String())
		}
		return nil, fmt.Errorf("failed to find photo: %w", err)
	}
	return toPhotoDomain(&model), nil
}

func toPhotoModel(p *photoDomain.ShipmentPhoto) PhotoModel {
	return PhotoModel{
		ID:         p.ID(),
		ShipmentID: p.ShipmentID(),
		CourierID:  p.CourierID(),
		Kind:       string(p.Kind()),
		URL:        p.URL(),
		Caption:    p.Caption(),
		TakenAt:    p.TakenAt(),
		CreatedAt:  p.CreatedAt(),
	}
}

func toPhotoDomain(m *PhotoModel) *photoDomain.ShipmentPhoto {
	return photoDomain.Reconstruct(
		m.ID,
		m.ShipmentID,
		m.CourierID,
		photoDomain.Kind(m.Kind),
		m.URL,
		m.Caption,
		m.TakenAt,
		m.CreatedAt,
	)
}
