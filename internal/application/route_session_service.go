package application

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"github.com/tiibntick/service-expedition/internal/domain/geo"
	"github.com/tiibntick/service-expedition/internal/geocoding"
	"github.com/tiibntick/service-expedition/internal/platform/apperr"
	"github.com/tiibntick/service-expedition/internal/routeselect"
	"github.com/tiibntick/service-expedition/internal/routing"
	"go.uber.org/zap"
)

// StartRouteSessionRequest carries the addresses typed in the earlier wizard steps.
type StartRouteSessionRequest struct {
	DepartureText string `json:"departure_text"`
	ArrivalText   string `json:"arrival_text"`
}

// ClickRequest is a map click.
type ClickRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

// RouteSessionDTO is a route-selection session as seen by the wizard. Alerts are
// the messages raised since the previous response.
type RouteSessionDTO struct {
	ID string `json:"id"`
	routeselect.Snapshot
	Path      *geojson.Feature `json:"path,omitempty"`
	Alerts    []string         `json:"alerts"`
	ExpiresAt time.Time        `json:"expires_at"`
}

type routeSession struct {
	id      string
	ownerID uuid.UUID
	orch    *routeselect.Orchestrator

	mu       sync.Mutex
	alerts   []string
	lastSeen time.Time
}

func (rs *routeSession) notify(message string) {
	rs.mu.Lock()
	rs.alerts = append(rs.alerts, message)
	rs.mu.Unlock()
}

func (rs *routeSession) drainAlerts() []string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	alerts := rs.alerts
	rs.alerts = nil
	if alerts == nil {
		alerts = []string{}
	}
	return alerts
}

func (rs *routeSession) touch(now time.Time) {
	rs.mu.Lock()
	rs.lastSeen = now
	rs.mu.Unlock()
}

func (rs *routeSession) idleSince() time.Time {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.lastSeen
}

// RouteSessionService keeps one route-selection orchestrator per open wizard.
// Sessions live in memory and expire after an idle TTL.
type RouteSessionService struct {
	geocoder geocoding.Geocoder
	router   routing.Router
	pricer   routeselect.Pricer
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*routeSession
}

// NewRouteSessionService creates a new RouteSessionService.
func NewRouteSessionService(
	geocoder geocoding.Geocoder,
	router routing.Router,
	pricer routeselect.Pricer,
	ttl time.Duration,
	logger *zap.Logger,
) *RouteSessionService {
	return &RouteSessionService{
		geocoder: geocoder,
		router:   router,
		pricer:   pricer,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*routeSession),
	}
}

// Start opens a session and runs the automatic address resolution before returning.
func (s *RouteSessionService) Start(ctx context.Context, ownerID uuid.UUID, req StartRouteSessionRequest) (*RouteSessionDTO, error) {
	rs := &routeSession{
		id:       uuid.NewString(),
		ownerID:  ownerID,
		lastSeen: s.now(),
	}
	rs.orch = routeselect.New(
		s.geocoder,
		s.router,
		s.pricer,
		routeselect.NotifierFunc(rs.notify),
		s.logger.With(zap.String("route_session_id", rs.id)),
		req.DepartureText,
		req.ArrivalText,
	)

	s.mu.Lock()
	s.sessions[rs.id] = rs
	s.mu.Unlock()

	rs.orch.Start(ctx)

	s.logger.Debug("route session started",
		zap.String("route_session_id", rs.id),
		zap.String("owner_id", ownerID.String()),
	)
	return s.toDTO(rs), nil
}

// Get returns the current state of a session.
func (s *RouteSessionService) Get(id string, ownerID uuid.UUID) (*RouteSessionDTO, error) {
	rs, err := s.lookup(id, ownerID)
	if err != nil {
		return nil, err
	}
	return s.toDTO(rs), nil
}

// Click forwards a map click. When it completes a departure/arrival pair the route
// is computed before returning.
func (s *RouteSessionService) Click(ctx context.Context, id string, ownerID uuid.UUID, c geo.Coordinate) (*RouteSessionDTO, error) {
	rs, err := s.lookup(id, ownerID)
	if err != nil {
		return nil, err
	}
	if err := rs.orch.Click(ctx, c); err != nil {
		return nil, err
	}
	return s.toDTO(rs), nil
}

// Reset clears the session's route.
func (s *RouteSessionService) Reset(id string, ownerID uuid.UUID) (*RouteSessionDTO, error) {
	rs, err := s.lookup(id, ownerID)
	if err != nil {
		return nil, err
	}
	rs.orch.Reset()
	return s.toDTO(rs), nil
}

// Confirm returns the finalized route of a session.
func (s *RouteSessionService) Confirm(id string, ownerID uuid.UUID) (routeselect.Confirmation, error) {
	rs, err := s.lookup(id, ownerID)
	if err != nil {
		return routeselect.Confirmation{}, err
	}
	return rs.orch.Confirm()
}

// Discard forgets a session, typically once its shipment exists.
func (s *RouteSessionService) Discard(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Len is the number of open sessions.
func (s *RouteSessionService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// RunJanitor evicts idle sessions every interval until ctx is cancelled.
func (s *RouteSessionService) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.EvictExpired(); n > 0 {
				s.logger.Debug("expired route sessions evicted", zap.Int("count", n))
			}
		}
	}
}

// EvictExpired drops every session idle for longer than the TTL and returns how many went.
func (s *RouteSessionService) EvictExpired() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, rs := range s.sessions {
		if rs.idleSince().Before(cutoff) {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

func (s *RouteSessionService) lookup(id string, ownerID uuid.UUID) (*routeSession, error) {
	s.mu.Lock()
	rs, ok := s.sessions[id]
	s.mu.Unlock()

	if !ok {
		return nil, apperr.NewNotFoundError("route session", id)
	}
	if rs.ownerID != ownerID {
		return nil, apperr.NewForbiddenError("route session belongs to another user")
	}
	rs.touch(s.now())
	return rs, nil
}

func (s *RouteSessionService) toDTO(rs *routeSession) *RouteSessionDTO {
	snap := rs.orch.Snapshot()
	return &RouteSessionDTO{
		ID:        rs.id,
		Snapshot:  snap,
		Path:      geo.PathFeature(snap.Path),
		Alerts:    rs.drainAlerts(),
		ExpiresAt: rs.idleSince().Add(s.ttl),
	}
}
