package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tiibntick/service-expedition/internal/domain/geo"
	"github.com/tiibntick/service-expedition/internal/platform/apperr"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// NominatimClient talks to a Nominatim-compatible geocoding API.
type NominatimClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
	logger    *zap.Logger
}

// NewNominatimClient creates a client. A User-Agent is mandatory under the Nominatim usage policy.
func NewNominatimClient(baseURL, userAgent string, timeout time.Duration, logger *zap.Logger) *NominatimClient {
	return &NominatimClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		http:      &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

type nominatimPlace struct {
	Lat         string      `json:"lat"`
	Lon         string      `json:"lon"`
	DisplayName string      `json:"display_name"`
	Address     geo.Address `json:"address"`
	Error       string      `json:"error,omitempty"`
}

func (p nominatimPlace) candidate() (geo.AddressCandidate, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return geo.AddressCandidate{}, fmt.Errorf("parse lat %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return geo.AddressCandidate{}, fmt.Errorf("parse lon %q: %w", p.Lon, err)
	}
	return geo.AddressCandidate{
		Label:      p.DisplayName,
		Coordinate: geo.Coordinate{Lat: lat, Lon: lon},
		Address:    p.Address,
	}, nil
}

// Forward searches for text.
func (c *NominatimClient) Forward(ctx context.Context, text string) ([]geo.AddressCandidate, error) {
	q := url.Values{}
	q.Set("q", text)
	q.Set("format", "json")
	q.Set("limit", "5")
	q.Set("addressdetails", "1")

	var places []nominatimPlace
	if err := c.get(ctx, "/search", q, &places); err != nil {
		return nil, apperr.NewTransportError("geocode search", err)
	}

	out := make([]geo.AddressCandidate, 0, len(places))
	for _, p := range places {
		cand, err := p.candidate()
		if err != nil {
			return nil, apperr.NewTransportError("geocode search", err)
		}
		out = append(out, cand)
	}

	c.logger.Debug("geocode search",
		zap.String("query", text),
		zap.Int("results", len(out)),
	)
	return out, nil
}

// Reverse resolves the address at a coordinate.
func (c *NominatimClient) Reverse(ctx context.Context, coord geo.Coordinate) (geo.AddressCandidate, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(coord.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(coord.Lon, 'f', -1, 64))
	q.Set("format", "json")
	q.Set("addressdetails", "1")
	q.Set("zoom", "18")

	var place nominatimPlace
	if err := c.get(ctx, "/reverse", q, &place); err != nil {
		return geo.AddressCandidate{}, apperr.NewTransportError("reverse geocode", err)
	}
	if place.Error != "" {
		return geo.AddressCandidate{}, apperr.NewNotFoundError("address", fmt.Sprintf("%v,%v", coord.Lat, coord.Lon))
	}

	cand, err := place.candidate()
	if err != nil {
		return geo.AddressCandidate{}, apperr.NewTransportError("reverse geocode", err)
	}
	return cand, nil
}

func (c *NominatimClient) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "fr")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
