package geo

const (
	DepartureLabel = "Départ"
	DepartureColor = "#f97316"
	ArrivalLabel   = "Arrivée"
	ArrivalColor   = "#10b981"
)

// Marker is a labelled pin on the map.
type Marker struct {
	Position Coordinate `json:"position"`
	Label    string     `json:"label"`
	Color    string     `json:"color,omitempty"`
}

// DepartureMarker pins the departure point.
func DepartureMarker(c Coordinate) Marker {
	return Marker{Position: c, Label: DepartureLabel, Color: DepartureColor}
}

// ArrivalMarker pins the arrival point.
func ArrivalMarker(c Coordinate) Marker {
	return Marker{Position: c, Label: ArrivalLabel, Color: ArrivalColor}
}
