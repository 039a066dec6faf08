package shipment

import "github.com/tiibntick/service-expedition/internal/domain/geo"

// ManualPointID marks an endpoint picked on the map rather than a relay point.
const ManualPointID = "manual"

const (
	DeparturePlaceholder = "Sélectionnez le point de départ"
	ArrivalPlaceholder   = "Sélectionnez le point d'arrivée"
)

// RouteData is the route summary carried from route selection to the shipment.
type RouteData struct {
	DeparturePointID   *string `json:"departure_point_id"`
	ArrivalPointID     *string `json:"arrival_point_id"`
	DeparturePointName string  `json:"departure_point_name"`
	ArrivalPointName   string  `json:"arrival_point_name"`
	DistanceKm         float64 `json:"distance_km"`
	DurationMinutes    int     `json:"duration_minutes"`
}

// NewRouteData starts a manual route labelled with the addresses typed earlier.
func NewRouteData(departureText, arrivalText string) RouteData {
	return RouteData{
		DeparturePointID:   stringPtr(ManualPointID),
		ArrivalPointID:     stringPtr(ManualPointID),
		DeparturePointName: departureText,
		ArrivalPointName:   arrivalText,
	}
}

// PlaceholderRouteData is the route after a reset: no endpoints, prompt labels.
func PlaceholderRouteData() RouteData {
	return RouteData{
		DeparturePointName: DeparturePlaceholder,
		ArrivalPointName:   ArrivalPlaceholder,
	}
}

// WithRoute returns a copy carrying the computed distance, duration and endpoint names.
func (r RouteData) WithRoute(res geo.RouteResult, departureName, arrivalName string) RouteData {
	out := r.Clone()
	out.DistanceKm = res.DistanceKm()
	out.DurationMinutes = res.DurationMinutes()
	out.DeparturePointName = departureName
	out.ArrivalPointName = arrivalName
	return out
}

// Clone deep-copies the point id pointers.
func (r RouteData) Clone() RouteData {
	out := r
	if r.DeparturePointID != nil {
		out.DeparturePointID = stringPtr(*r.DeparturePointID)
	}
	if r.ArrivalPointID != nil {
		out.ArrivalPointID = stringPtr(*r.ArrivalPointID)
	}
	return out
}

func stringPtr(s string) *string { return &s }
