package shipment

import "github.com/tiibntick/service-expedition/internal/domain/geo"

// RelayPoint is a named pickup/drop-off location an endpoint can use instead of a map point.
type RelayPoint struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Coordinate geo.Coordinate `json:"coordinate"`
}

var relayPoints = []RelayPoint{
	{ID: "r-1", Name: "Relais Centre", Coordinate: geo.Coordinate{Lat: 3.848, Lon: 11.502}},
	{ID: "r-2", Name: "Relais Est", Coordinate: geo.Coordinate{Lat: 3.854, Lon: 11.510}},
	{ID: "r-3", Name: "Relais Ouest", Coordinate: geo.Coordinate{Lat: 3.842, Lon: 11.494}},
}

// RelayPoints lists the relay network.
func RelayPoints() []RelayPoint {
	out := make([]RelayPoint, len(relayPoints))
	copy(out, relayPoints)
	return out
}

// FindRelayPoint looks a relay point up by id.
func FindRelayPoint(id string) (RelayPoint, bool) {
	for _, rp := range relayPoints {
		if rp.ID == id {
			return rp, true
		}
	}
	return RelayPoint{}, false
}

// isKnownPointID accepts nil, "manual" or a relay point id.
func isKnownPointID(id *string) bool {
	if id == nil || *id == ManualPointID {
		return true
	}
	_, ok := FindRelayPoint(*id)
	return ok
}
