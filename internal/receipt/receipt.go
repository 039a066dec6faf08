// Package receipt renders the shipment receipt ("bordereau d'expédition") as a PDF.
package receipt

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tiibntick/service-expedition/internal/domain/shipment"
)

// Receipt is everything printed on a bordereau.
type Receipt struct {
	TrackingNumber string
	GeneratedAt    time.Time

	SenderName     string
	SenderPhone    string
	DeparturePoint string

	RecipientName  string
	RecipientPhone string
	ArrivalPoint   string

	Designation string
	WeightKg    float64
	Fragile     bool
	Perishable  bool
	Photo       string // data URL, optional

	BasePrice     int64
	TravelPrice   int64
	OperatorFee   int64
	PaymentMethod shipment.PaymentMethod

	Signature string // data URL, optional
}

// FromShipment builds the receipt of a persisted shipment.
func FromShipment(s *shipment.Shipment, generatedAt time.Time) Receipt {
	route := s.Route()
	parcel := s.Parcel()
	pricing := s.Pricing()
	return Receipt{
		TrackingNumber: s.TrackingNumber(),
		GeneratedAt:    generatedAt,
		SenderName:     s.Sender().Name,
		SenderPhone:    s.Sender().Phone,
		DeparturePoint: route.DeparturePointName,
		RecipientName:  s.Recipient().Name,
		RecipientPhone: s.Recipient().Phone,
		ArrivalPoint:   route.ArrivalPointName,
		Designation:    parcel.Designation,
		WeightKg:       parcel.WeightKg,
		Fragile:        parcel.Fragile,
		Perishable:     parcel.Perishable,
		Photo:          parcel.Photo,
		BasePrice:      pricing.BasePrice,
		TravelPrice:    pricing.TravelPrice,
		OperatorFee:    pricing.OperatorFee,
		PaymentMethod:  s.PaymentMethod(),
		Signature:      s.Signature(),
	}
}

// Total is base + travel + the operator fee when positive.
func (r Receipt) Total() int64 {
	total := r.BasePrice + r.TravelPrice
	if r.OperatorFee > 0 {
		total += r.OperatorFee
	}
	return total
}

// FileName is the download name of the document.
func (r Receipt) FileName() string {
	return fmt.Sprintf("Bordereau_%s.pdf", r.TrackingNumber)
}

// TotalLabel depends on who pays.
func (r Receipt) TotalLabel() string {
	if r.PaymentMethod == shipment.PaymentRecipient {
		return "Total à payer par le Destinataire"
	}
	return "Total payé par l'Expéditeur"
}

// Handling is "Fragile, Périssable", one of them, or "Aucune".
func (r Receipt) Handling() string {
	flags := shipment.Parcel{Fragile: r.Fragile, Perishable: r.Perishable}.Handling()
	if len(flags) == 0 {
		return "Aucune"
	}
	return strings.Join(flags, ", ")
}

// FormatAmount renders 1900 as "1 900 FCFA".
func FormatAmount(amount int64) string {
	digits := strconv.FormatInt(amount, 10)
	sign := ""
	if amount < 0 {
		sign, digits = "-", digits[1:]
	}
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(d)
	}
	return sign + b.String() + " FCFA"
}

func formatWeight(kg float64) string {
	return strconv.FormatFloat(kg, 'f', -1, 64) + " kg"
}
