// Package geocoding resolves free-text addresses to coordinates and back.
package geocoding

import (
	"context"

	"github.com/tiibntick/service-expedition/internal/domain/geo"
	"github.com/tiibntick/service-expedition/internal/platform/apperr"
)

// Geocoder is a forward and reverse geocoding provider.
type Geocoder interface {
	// Forward returns the candidates for text, best first. No match is an empty slice, not an error.
	Forward(ctx context.Context, text string) ([]geo.AddressCandidate, error)
	Reverse(ctx context.Context, c geo.Coordinate) (geo.AddressCandidate, error)
}

// First returns the best forward match for text, or a NotFound error when there is none.
func First(ctx context.Context, g Geocoder, text string) (geo.AddressCandidate, error) {
	candidates, err := g.Forward(ctx, text)
	if err != nil {
		return geo.AddressCandidate{}, err
	}
	if len(candidates) == 0 {
		return geo.AddressCandidate{}, apperr.NewNotFoundError("address", text)
	}
	return candidates[0], nil
}
