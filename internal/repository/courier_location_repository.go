package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tiibntick/service-expedition/internal/domain/courier"
	"github.com/tiibntick/service-expedition/internal/domain/geo"
	"github.com/tiibntick/service-expedition/internal/platform/apperr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CourierLocationModel is the GORM model for the courier_locations table. One row per courier.
type CourierLocationModel struct {
	CourierID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Latitude  float64   `gorm:"not null"`
	Longitude float64   `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName sets the table name.
func (CourierLocationModel) TableName() string { return "courier_locations" }

// GormCourierLocationRepository implements courier.LocationRepository using GORM.
type GormCourierLocationRepository struct {
	db *gorm.DB
}

// NewGormCourierLocationRepository creates a new GormCourierLocationRepository.
func NewGormCourierLocationRepository(db *gorm.DB) *GormCourierLocationRepository {
	return &GormCourierLocationRepository{db: db}
}

// Upsert stores the courier's latest position, replacing the previous one.
func (r *GormCourierLocationRepository) Upsert(ctx context.Context, loc *courier.Location) error {
	c := loc.Coordinate()
	model := CourierLocationModel{
		CourierID: loc.CourierID(),
		Latitude:  c.Lat,
		Longitude: c.Lon,
		UpdatedAt: loc.UpdatedAt(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "courier_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"latitude", "longitude", "updated_at"}),
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("failed to upsert courier location: %w", err)
	}
	return nil
}

// FindByCourierID returns the courier's last known position.
func (r *GormCourierLocationRepository) FindByCourierID(ctx context.Context, courierID uuid.UUID) (*courier.Location, error) {
	var model CourierLocationModel
	if err := r.db.WithContext(ctx).Where("courier_id = ?", courierID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NewNotFoundError("CourierLocation", courierID.String())
		}
		return nil, fmt.Errorf("failed to find courier location: %w", err)
	}
	return courier.ReconstructLocation(
		model.CourierID,
		geo.Coordinate{Lat: model.Latitude, Lon: model.Longitude},
		model.UpdatedAt,
	), nil
}
