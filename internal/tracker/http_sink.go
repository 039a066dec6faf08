package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tiibntick/service-expedition/internal/domain/geo"
	"github.com/tiibntick/service-expedition/internal/platform/apperr"
	"github.com/tiibntick/service-expedition/internal/platform/auth"
)

// HTTPSink forwards positions to the expedition API's courier location endpoint.
type HTTPSink struct {
	baseURL string
	http    *http.Client
}

// NewHTTPSink creates a sink targeting baseURL (scheme and host, no trailing path).
func NewHTTPSink(baseURL string, timeout time.Duration) *HTTPSink {
	return &HTTPSink{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type locationUpdate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Send PATCHes {latitude, longitude} as the session's courier.
func (s *HTTPSink) Send(ctx context.Context, session auth.Session, c geo.Coordinate) error {
	body, err := json.Marshal(locationUpdate{Latitude: c.Lat, Longitude: c.Lon})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/api/delivery-persons/%s/location", s.baseURL, url.PathEscape(session.CourierID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return apperr.NewTransportError("location update", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+session.Token)

	resp, err := s.http.Do(req)
	if err != nil {
		return apperr.NewTransportError("location update", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return apperr.New(apperr.KindUnauthorized, "location update rejected: session expired")
	case resp.StatusCode == http.StatusForbidden:
		return apperr.NewForbiddenError("location update rejected for this courier")
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return apperr.NewTransportError("location update", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	return nil
}
