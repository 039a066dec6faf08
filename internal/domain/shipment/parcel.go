package shipment

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/tiibntick/service-expedition/internal/platform/apperr"
)

// TransportMethod is the vehicle class requested for the parcel.
type TransportMethod string

const (
	TransportTruck    TransportMethod = "truck"
	TransportTricycle TransportMethod = "tricycle"
	TransportMoto     TransportMethod = "moto"
	TransportBike     TransportMethod = "bike"
	TransportCar      TransportMethod = "car"
)

// IsValid returns true if the transport method is recognized. Empty means "any".
func (t TransportMethod) IsValid() bool {
	switch t {
	case "", TransportTruck, TransportTricycle, TransportMoto, TransportBike, TransportCar:
		return true
	}
	return false
}

// LogisticsOption is the delivery speed tier.
type LogisticsOption string

const (
	LogisticsStandard   LogisticsOption = "standard"
	LogisticsExpress48h LogisticsOption = "express_48h"
	LogisticsExpress24h LogisticsOption = "express_24h"
)

// IsValid returns true if the logistics option is recognized.
func (l LogisticsOption) IsValid() bool {
	switch l {
	case LogisticsStandard, LogisticsExpress48h, LogisticsExpress24h:
		return true
	}
	return false
}

// Parcel describes the goods being shipped.
type Parcel struct {
	Designation     string          `json:"designation"`
	Description     string          `json:"description,omitempty"`
	WeightKg        float64         `json:"weight_kg"`
	LengthCm        float64         `json:"length_cm,omitempty"`
	WidthCm         float64         `json:"width_cm,omitempty"`
	HeightCm        float64         `json:"height_cm,omitempty"`
	Fragile         bool            `json:"fragile"`
	Perishable      bool            `json:"perishable"`
	TransportMethod TransportMethod `json:"transport_method,omitempty"`
	Logistics       LogisticsOption `json:"logistics"`
	Pickup          bool            `json:"pickup"`
	Delivery        bool            `json:"delivery"`
	Photo           string          `json:"photo,omitempty"`
}

// VolumeM3 is the parcel volume; missing dimensions count as 10 cm.
func (p Parcel) VolumeM3() float64 {
	return dimension(p.LengthCm) * dimension(p.WidthCm) * dimension(p.HeightCm) / 1_000_000
}

// BillableWeightKg is the greater of the declared and the volumetric weight.
func (p Parcel) BillableWeightKg() float64 {
	return math.Max(p.WeightKg, p.VolumeM3()*volumetricFactor)
}

// Handling lists the handling flags for display, e.g. "Fragile, Périssable".
func (p Parcel) Handling() []string {
	var flags []string
	if p.Fragile {
		flags = append(flags, "Fragile")
	}
	if p.Perishable {
		flags = append(flags, "Périssable")
	}
	return flags
}

// Validate checks the parcel can be priced and shipped.
func (p Parcel) Validate() error {
	if strings.TrimSpace(p.Designation) == "" {
		return apperr.NewValidationError("parcel designation is required")
	}
	if !(p.WeightKg > 0) {
		return apperr.NewValidationError("parcel weight must be positive")
	}
	if p.LengthCm < 0 || p.WidthCm < 0 || p.HeightCm < 0 {
		return apperr.NewValidationError("parcel dimensions cannot be negative")
	}
	if !p.TransportMethod.IsValid() {
		return apperr.NewValidationError(fmt.Sprintf("invalid transport method: %s", p.TransportMethod))
	}
	if !p.Logistics.IsValid() {
		return apperr.NewValidationError(fmt.Sprintf("invalid logistics option: %s", p.Logistics))
	}
	return nil
}

func dimension(cm float64) float64 {
	if cm > 0 {
		return cm
	}
	return defaultDimensionCm
}

var mobileMoneyNumber = regexp.MustCompile(`^(\+237\s?)?6[0-9]{8}$`)

// IsMobileMoneyNumber reports whether phone is a Cameroonian mobile number.
func IsMobileMoneyNumber(phone string) bool {
	return mobileMoneyNumber.MatchString(strings.TrimSpace(phone))
}

// Party is the sender or the recipient of a shipment.
type Party struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email,omitempty"`
	Country string `json:"country,omitempty"`
	Region  string `json:"region,omitempty"`
	City    string `json:"city,omitempty"`
	Address string `json:"address,omitempty"`
	LieuDit string `json:"lieu_dit,omitempty"`
}

// Validate checks the party can be contacted.
func (p Party) Validate(role string) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperr.NewValidationError(role + " name is required")
	}
	if strings.TrimSpace(p.Phone) == "" {
		return apperr.NewValidationError(role + " phone is required")
	}
	return nil
}

// AddressUpdate carries the normalized address fields resolved from a map point.
type AddressUpdate struct {
	Address string `json:"address"`
	City    string `json:"city"`
	Region  string `json:"region"`
	LieuDit string `json:"lieu_dit"`
}

// WithAddress returns a copy of the party with the non-empty fields of u applied.
func (p Party) WithAddress(u *AddressUpdate) Party {
	if u == nil {
		return p
	}
	if u.Address != "" {
		p.Address = u.Address
	}
	if u.City != "" {
		p.City = u.City
	}
	if u.Region != "" {
		p.Region = u.Region
	}
	if u.LieuDit != "" {
		p.LieuDit = u.LieuDit
	}
	return p
}
