package shipment

import (
	"fmt"
	"math"
)

// Tariff constants, all amounts in FCFA.
const (
	TravelBaseFee   = 500
	TravelPerKmRate = 80

	ParcelBaseFee       = 1500
	ParcelPerKgRate     = 300
	FragileSurcharge    = 1200
	PerishableSurcharge = 800

	// volumetric weight in kg per cubic meter
	volumetricFactor   = 200
	defaultDimensionCm = 10

	MobileOperatorFee = 100

	Currency = "XAF"
)

// PaymentMethod is who pays and how.
type PaymentMethod string

const (
	PaymentMobile    PaymentMethod = "mobile"
	PaymentRecipient PaymentMethod = "recipient"
)

// IsValid returns true if the payment method is recognized.
func (m PaymentMethod) IsValid() bool {
	return m == PaymentMobile || m == PaymentRecipient
}

// ParsePaymentMethod converts a string to a PaymentMethod.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(s)
	if !m.IsValid() {
		return "", fmt.Errorf("invalid payment method: %s", s)
	}
	return m, nil
}

// TravelPrice maps a route distance to its travel cost: zero for non-positive
// distances, otherwise round(500 + 80 * km).
func TravelPrice(distanceKm float64) int64 {
	if !(distanceKm > 0) {
		return 0
	}
	return int64(math.Round(TravelBaseFee + distanceKm*TravelPerKmRate))
}

// PricingStrategy computes each line of a shipment's price.
type PricingStrategy interface {
	TravelPrice(distanceKm float64) int64
	BasePrice(parcel Parcel) int64
	OperatorFee(method PaymentMethod) int64
}

// StandardPricingStrategy implements the public tariff.
type StandardPricingStrategy struct{}

// NewStandardPricingStrategy creates a new StandardPricingStrategy.
func NewStandardPricingStrategy() *StandardPricingStrategy {
	return &StandardPricingStrategy{}
}

// TravelPrice delegates to the package-level tariff.
func (s *StandardPricingStrategy) TravelPrice(distanceKm float64) int64 {
	return TravelPrice(distanceKm)
}

// BasePrice charges the billable weight, the greater of actual and volumetric weight,
// plus handling surcharges.
func (s *StandardPricingStrategy) BasePrice(parcel Parcel) int64 {
	price := ParcelBaseFee + parcel.BillableWeightKg()*ParcelPerKgRate
	if parcel.Fragile {
		price += FragileSurcharge
	}
	if parcel.Perishable {
		price += PerishableSurcharge
	}
	return int64(math.Round(price))
}

// OperatorFee is charged for mobile money payments only.
func (s *StandardPricingStrategy) OperatorFee(method PaymentMethod) int64 {
	if method == PaymentMobile {
		return MobileOperatorFee
	}
	return 0
}

// Pricing is the itemized price of a shipment.
type Pricing struct {
	BasePrice   int64  `json:"base_price"`
	TravelPrice int64  `json:"travel_price"`
	OperatorFee int64  `json:"operator_fee"`
	TotalPrice  int64  `json:"total_price"`
	Currency    string `json:"currency"`
}

// NewPricing sums the lines. A non-positive operator fee is not charged.
func NewPricing(base, travel, operatorFee int64) Pricing {
	if operatorFee < 0 {
		operatorFee = 0
	}
	return Pricing{
		BasePrice:   base,
		TravelPrice: travel,
		OperatorFee: operatorFee,
		TotalPrice:  base + travel + operatorFee,
		Currency:    Currency,
	}
}

// Quote prices a parcel over a distance with the given strategy.
func Quote(strategy PricingStrategy, parcel Parcel, distanceKm float64, method PaymentMethod) Pricing {
	return NewPricing(
		strategy.BasePrice(parcel),
		strategy.TravelPrice(distanceKm),
		strategy.OperatorFee(method),
	)
}

// Totals prices already computed base and travel lines for a payment method.
func Totals(base, travel int64, method PaymentMethod) Pricing {
	return NewPricing(base, travel, NewStandardPricingStrategy().OperatorFee(method))
}
