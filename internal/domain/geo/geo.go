package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/tiibntick/service-expedition/internal/platform/apperr"
)

// Coordinate is a WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks the coordinate is within WGS84 bounds.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) {
		return apperr.NewValidationError("coordinate is not a number")
	}
	if c.Lat < -90 || c.Lat > 90 {
		return apperr.NewValidationError(fmt.Sprintf("latitude out of range: %v", c.Lat))
	}
	if c.Lon < -180 || c.Lon > 180 {
		return apperr.NewValidationError(fmt.Sprintf("longitude out of range: %v", c.Lon))
	}
	return nil
}

// Point returns the coordinate as an orb point (longitude first).
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

// FromPoint converts an orb point back to a Coordinate.
func FromPoint(p orb.Point) Coordinate {
	return Coordinate{Lat: p.Lat(), Lon: p.Lon()}
}

// Midpoint is the arithmetic mean of two coordinates; good enough to center a city-scale map.
func Midpoint(a, b Coordinate) Coordinate {
	return Coordinate{Lat: (a.Lat + b.Lat) / 2, Lon: (a.Lon + b.Lon) / 2}
}

// Address holds the structured fields a geocoder returns.
type Address struct {
	Road          string `json:"road,omitempty"`
	Pedestrian    string `json:"pedestrian,omitempty"`
	Suburb        string `json:"suburb,omitempty"`
	Neighbourhood string `json:"neighbourhood,omitempty"`
	City          string `json:"city,omitempty"`
	Town          string `json:"town,omitempty"`
	Village       string `json:"village,omitempty"`
	State         string `json:"state,omitempty"`
	Postcode      string `json:"postcode,omitempty"`
	Country       string `json:"country,omitempty"`
}

// AddressCandidate is one geocoding match.
type AddressCandidate struct {
	Label      string     `json:"label"`
	Coordinate Coordinate `json:"coordinate"`
	Address    Address    `json:"address"`
}

// Locality is the suburb, falling back to the neighbourhood.
func (a AddressCandidate) Locality() string {
	return firstNonEmpty(a.Address.Suburb, a.Address.Neighbourhood)
}

// CityName is the city, falling back to town then village.
func (a AddressCandidate) CityName() string {
	return firstNonEmpty(a.Address.City, a.Address.Town, a.Address.Village)
}

// PlaceName is the road, falling back to the pedestrian way then the full display label.
func (a AddressCandidate) PlaceName() string {
	return firstNonEmpty(a.Address.Road, a.Address.Pedestrian, a.Label)
}

// RouteResult is a computed path between two coordinates.
type RouteResult struct {
	DistanceMeters  float64        `json:"distance_meters"`
	DurationSeconds float64        `json:"duration_seconds"`
	Path            orb.LineString `json:"path"`
}

// DistanceKm is the distance in kilometers rounded to two decimals.
func (r RouteResult) DistanceKm() float64 {
	return RoundTo(r.DistanceMeters/1000, 2)
}

// DurationMinutes is the duration rounded to the nearest minute.
func (r RouteResult) DurationMinutes() int {
	return int(math.Round(r.DurationSeconds / 60))
}

// Feature wraps the path as a GeoJSON feature for map clients.
func (r RouteResult) Feature() *geojson.Feature {
	return PathFeature(r.Path)
}

// PathFeature wraps a path as a GeoJSON feature, or returns nil for an empty path.
func PathFeature(path orb.LineString) *geojson.Feature {
	if len(path) == 0 {
		return nil
	}
	return geojson.NewFeature(path)
}

// RoundTo rounds v half away from zero to the given number of decimals.
func RoundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
