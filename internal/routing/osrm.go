// Package routing computes drivable routes between two coordinates.
package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/tiibntick/service-expedition/internal/domain/geo"
	"github.com/tiibntick/service-expedition/internal/platform/apperr"
	"go.uber.org/zap"
)

// ErrNoRoute means the provider answered but found no path between the points.
var ErrNoRoute = apperr.New(apperr.KindNotFound, "no route between the given points")

// Router computes a route between two coordinates.
type Router interface {
	Route(ctx context.Context, from, to geo.Coordinate) (*geo.RouteResult, error)
}

// OSRMClient talks to an OSRM-compatible routing API.
type OSRMClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
	logger    *zap.Logger
}

// NewOSRMClient creates a client for the driving profile.
func NewOSRMClient(baseURL, userAgent string, timeout time.Duration, logger *zap.Logger) *OSRMClient {
	return &OSRMClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		http:      &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64           `json:"distance"`
		Duration float64           `json:"duration"`
		Geometry *geojson.Geometry `json:"geometry"`
	} `json:"routes"`
}

func (r osrmResponse) noRoute() bool {
	return r.Code == "NoRoute" || r.Code == "NoSegment" || (r.Code == "Ok" && len(r.Routes) == 0)
}

// RouteURL builds the request URL. OSRM takes longitude first and does not
// accept exponent notation.
func (c *OSRMClient) RouteURL(from, to geo.Coordinate) string {
	return fmt.Sprintf("%s/route/v1/driving/%s,%s;%s,%s?overview=full&geometries=geojson",
		c.baseURL, decimal(from.Lon), decimal(from.Lat), decimal(to.Lon), decimal(to.Lat))
}

func decimal(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Route returns the first route OSRM proposes. No retries are attempted.
func (c *OSRMClient) Route(ctx context.Context, from, to geo.Coordinate) (*geo.RouteResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.RouteURL(from, to), nil)
	if err != nil {
		return nil, apperr.NewTransportError("route", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.NewTransportError("route", err)
	}
	defer resp.Body.Close()

	var body osrmResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&body)

	// OSRM answers NoRoute with a 400, so the code is checked before the status.
	if decodeErr == nil && body.noRoute() {
		c.logger.Debug("no route", zap.String("code", body.Code))
		return nil, ErrNoRoute
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.NewTransportError("route", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body.Message))
	}
	if decodeErr != nil {
		return nil, apperr.NewTransportError("route", fmt.Errorf("decode response: %w", decodeErr))
	}
	if body.Code != "Ok" {
		return nil, apperr.NewTransportError("route", fmt.Errorf("routing error %s: %s", body.Code, body.Message))
	}

	best := body.Routes[0]
	path, err := lineString(best.Geometry)
	if err != nil {
		return nil, apperr.NewTransportError("route", err)
	}

	return &geo.RouteResult{
		DistanceMeters:  best.Distance,
		DurationSeconds: best.Duration,
		Path:            path,
	}, nil
}

func lineString(g *geojson.Geometry) (orb.LineString, error) {
	if g == nil || g.Coordinates == nil {
		return nil, errors.New("route has no geometry")
	}
	ls, ok := g.Coordinates.(orb.LineString)
	if !ok {
		return nil, fmt.Errorf("unexpected geometry type %s", g.Coordinates.GeoJSONType())
	}
	return ls, nil
}
