package routeselect

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tiibntick/service-expedition/internal/domain/geo"
	"github.com/tiibntick/service-expedition/internal/domain/shipment"
	"github.com/tiibntick/service-expedition/internal/platform/apperr"
	"github.com/tiibntick/service-expedition/internal/routing"
	"go.uber.org/zap"
)

var (
	abidjanDep = geo.Coordinate{Lat: 5.3364, Lon: -4.0267}
	abidjanArr = geo.Coordinate{Lat: 5.3600, Lon: -4.0100}
)

type fakeGeocoder struct {
	mu      sync.Mutex
	forward map[string][]geo.AddressCandidate
	fwdErr  error
	revErr  error
	calls   int
}

func (g *fakeGeocoder) Forward(_ context.Context, text string) ([]geo.AddressCandidate, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.fwdErr != nil {
		return nil, g.fwdErr
	}
	return g.forward[text], nil
}

func (g *fakeGeocoder) Reverse(_ context.Context, c geo.Coordinate) (geo.AddressCandidate, error) {
	if g.revErr != nil {
		return geo.AddressCandidate{}, g.revErr
	}
	suburb := "Plateau"
	if c == abidjanArr {
		suburb = "Cocody"
	}
	return geo.AddressCandidate{
		Label:      "display " + suburb,
		Coordinate: c,
		Address:    geo.Address{Suburb: suburb, City: "Abidjan", State: "Lagunes"},
	}, nil
}

type fakeRouter struct {
	mu      sync.Mutex
	result  *geo.RouteResult
	err     error
	calls   int
	started chan struct{}
	release chan struct{}
}

func (r *fakeRouter) Route(ctx context.Context, _, _ geo.Coordinate) (*geo.RouteResult, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.release != nil {
		<-r.release
	}
	return r.result, r.err
}

func (r *fakeRouter) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(m string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, m)
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

func fiveKmRoute() *geo.RouteResult {
	return &geo.RouteResult{
		DistanceMeters:  5000,
		DurationSeconds: 600,
		Path:            orb.LineString{abidjanDep.Point(), abidjanArr.Point()},
	}
}

func newOrchestrator(g *fakeGeocoder, r *fakeRouter, n *recordingNotifier, dep, arr string) *Orchestrator {
	return New(g, r, shipment.NewStandardPricingStrategy(), n, zap.NewNop(), dep, arr)
}

func TestOrchestrator_AutoResolveComputesRoute(t *testing.T) {
	g := &fakeGeocoder{forward: map[string][]geo.AddressCandidate{
		"Plateau": {{Coordinate: abidjanDep}},
		"Cocody":  {{Coordinate: abidjanArr}},
	}}
	r := &fakeRouter{result: fiveKmRoute()}
	n := &recordingNotifier{}
	o := newOrchestrator(g, r, n, "Plateau", "Cocody")

	o.Start(context.Background())
	s := o.Snapshot()

	assert.Equal(t, StateRouteComputed, s.State)
	assert.Equal(t, ModeNone, s.Mode)
	assert.Equal(t, 5.0, s.Route.DistanceKm)
	assert.Equal(t, 10, s.Route.DurationMinutes)
	assert.Equal(t, int64(900), s.TravelPrice)
	assert.Equal(t, "Plateau", s.Route.DeparturePointName)
	assert.Equal(t, "Cocody", s.Route.ArrivalPointName)
	require.Len(t, s.Markers, 2)
	assert.Equal(t, geo.DepartureLabel, s.Markers[0].Label)
	assert.Equal(t, abidjanArr, s.Markers[1].Position)
	assert.Equal(t, geo.Midpoint(abidjanDep, abidjanArr), s.Center)
	assert.Len(t, s.Path, 2)
	assert.False(t, s.Loading)
	assert.True(t, s.Confirmable)
	assert.Empty(t, n.all())

	require.NotNil(t, s.Sender)
	assert.Equal(t, shipment.AddressUpdate{Address: "Plateau", City: "Abidjan", Region: "Lagunes", LieuDit: "display Plateau"}, *s.Sender)
	assert.Equal(t, "Cocody", s.Recipient.Address)
}

func TestOrchestrator_UnresolvedAddressFallsBackToManual(t *testing.T) {
	g := &fakeGeocoder{forward: map[string][]geo.AddressCandidate{
		"Plateau": {{Coordinate: abidjanDep}},
	}}
	r := &fakeRouter{result: fiveKmRoute()}
	n := &recordingNotifier{}
	o := newOrchestrator(g, r, n, "Plateau", "Nowhere")

	o.Start(context.Background())
	s := o.Snapshot()

	assert.Equal(t, StateManualDeparturePick, s.State)
	assert.Equal(t, ModeDeparture, s.Mode)
	assert.Equal(t, []string{MsgManualSelectionRequired}, n.all())
	assert.Zero(t, r.callCount())
	assert.False(t, s.Loading)
}

func TestOrchestrator_GeocoderDownFallsBackToManual(t *testing.T) {
	g := &fakeGeocoder{fwdErr: apperr.NewTransportError("geocode search", errors.New("dial tcp"))}
	r := &fakeRouter{}
	n := &recordingNotifier{}
	o := newOrchestrator(g, r, n, "Plateau", "Cocody")

	o.Start(context.Background())

	assert.Equal(t, StateManualDeparturePick, o.Snapshot().State)
	assert.Len(t, n.all(), 1)
	assert.Zero(t, r.callCount())
}

func TestOrchestrator_StartWithoutAddressesStaysIdle(t *testing.T) {
	g := &fakeGeocoder{}
	o := newOrchestrator(g, &fakeRouter{}, &recordingNotifier{}, "", "Cocody")

	o.Start(context.Background())
	require.NoError(t, o.Click(context.Background(), abidjanDep))

	s := o.Snapshot()
	assert.Equal(t, StateIdle, s.State)
	assert.Equal(t, ModeNone, s.Mode)
	assert.Empty(t, s.Markers)
	assert.Zero(t, g.calls)
}

func TestOrchestrator_ManualSelection(t *testing.T) {
	r := &fakeRouter{result: fiveKmRoute()}
	o := newOrchestrator(&fakeGeocoder{}, r, &recordingNotifier{}, "", "")
	o.Reset()

	require.NoError(t, o.Click(context.Background(), abidjanDep))
	s := o.Snapshot()
	assert.Equal(t, StateManualArrivalPick, s.State)
	assert.Equal(t, ModeArrival, s.Mode)
	require.Len(t, s.Markers, 1)
	assert.Equal(t, geo.DepartureLabel, s.Markers[0].Label)

	require.NoError(t, o.Click(context.Background(), abidjanArr))
	s = o.Snapshot()
	assert.Equal(t, StateRouteComputed, s.State)
	assert.Len(t, s.Markers, 2)
	assert.Equal(t, int64(900), s.TravelPrice)
	assert.Equal(t, 1, r.callCount())
}

func TestOrchestrator_MisorderedArrivalClick(t *testing.T) {
	r := &fakeRouter{result: fiveKmRoute()}
	o := newOrchestrator(&fakeGeocoder{}, r, &recordingNotifier{}, "", "")
	o.Reset()
	require.NoError(t, o.Click(context.Background(), abidjanDep))

	// An arrival-mode click with no departure marker is kept as the arrival.
	o.mu.Lock()
	o.markers = nil
	o.mu.Unlock()

	require.NoError(t, o.Click(context.Background(), abidjanArr))
	s := o.Snapshot()
	assert.Equal(t, ModeDeparture, s.Mode)
	assert.Equal(t, StateManualDeparturePick, s.State)
	require.Len(t, s.Markers, 1)
	assert.Equal(t, geo.ArrivalLabel, s.Markers[0].Label)
	assert.Zero(t, r.callCount())
}

func TestOrchestrator_NoRouteKeepsMarkers(t *testing.T) {
	r := &fakeRouter{err: routing.ErrNoRoute}
	n := &recordingNotifier{}
	o := newOrchestrator(&fakeGeocoder{}, r, n, "", "")
	o.Reset()

	require.NoError(t, o.Click(context.Background(), abidjanDep))
	require.NoError(t, o.Click(context.Background(), abidjanArr))

	s := o.Snapshot()
	assert.Equal(t, []string{MsgNoItinerary}, n.all())
	assert.Equal(t, StateError, s.State)
	require.Len(t, s.Markers, 1)
	assert.Equal(t, abidjanDep, s.Markers[0].Position)
	assert.Zero(t, s.Route.DistanceKm)
	assert.False(t, s.Loading)
	assert.False(t, s.Confirmable)
}

func TestOrchestrator_TransportErrorAlerts(t *testing.T) {
	tests := []struct {
		name string
		g    *fakeGeocoder
		r    *fakeRouter
	}{
		{"router down", &fakeGeocoder{}, &fakeRouter{err: apperr.NewTransportError("route", errors.New("timeout"))}},
		{"reverse geocoder down", &fakeGeocoder{revErr: apperr.NewTransportError("reverse geocode", errors.New("timeout"))}, &fakeRouter{result: fiveKmRoute()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &recordingNotifier{}
			o := newOrchestrator(tt.g, tt.r, n, "", "")
			o.Reset()
			require.NoError(t, o.Click(context.Background(), abidjanDep))
			require.NoError(t, o.Click(context.Background(), abidjanArr))

			s := o.Snapshot()
			assert.Equal(t, []string{MsgRoutingError}, n.all())
			assert.Equal(t, StateError, s.State)
			assert.False(t, s.Loading)
		})
	}
}

func TestOrchestrator_ResetClearsEverything(t *testing.T) {
	g := &fakeGeocoder{forward: map[string][]geo.AddressCandidate{
		"Plateau": {{Coordinate: abidjanDep}},
		"Cocody":  {{Coordinate: abidjanArr}},
	}}
	o := newOrchestrator(g, &fakeRouter{result: fiveKmRoute()}, &recordingNotifier{}, "Plateau", "Cocody")
	o.Start(context.Background())
	require.Equal(t, StateRouteComputed, o.Snapshot().State)

	o.Reset()
	s := o.Snapshot()

	assert.Empty(t, s.Markers)
	assert.Empty(t, s.Path)
	assert.Zero(t, s.Route.DistanceKm)
	assert.Zero(t, s.TravelPrice)
	assert.Equal(t, ModeDeparture, s.Mode)
	assert.Equal(t, StateManualDeparturePick, s.State)
	assert.Nil(t, s.Route.DeparturePointID)
	assert.Equal(t, shipment.DeparturePlaceholder, s.Route.DeparturePointName)
	assert.Equal(t, shipment.ArrivalPlaceholder, s.Route.ArrivalPointName)
	assert.Nil(t, s.Sender)

	_, err := o.Confirm()
	assert.ErrorIs(t, err, ErrNotConfirmable)
}

func TestOrchestrator_StaleResultDiscardedAfterReset(t *testing.T) {
	r := &fakeRouter{
		result:  fiveKmRoute(),
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	n := &recordingNotifier{}
	o := newOrchestrator(&fakeGeocoder{}, r, n, "", "")
	o.Reset()
	require.NoError(t, o.Click(context.Background(), abidjanDep))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = o.Click(context.Background(), abidjanArr)
	}()

	<-r.started
	assert.True(t, o.Snapshot().Loading)
	o.Reset()
	close(r.release)
	<-done

	s := o.Snapshot()
	assert.Empty(t, s.Markers)
	assert.Zero(t, s.TravelPrice)
	assert.Zero(t, s.Route.DistanceKm)
	assert.False(t, s.Loading)
	assert.Empty(t, n.all())
}

func TestOrchestrator_Confirm(t *testing.T) {
	g := &fakeGeocoder{forward: map[string][]geo.AddressCandidate{
		"Plateau": {{Coordinate: abidjanDep}},
		"Cocody":  {{Coordinate: abidjanArr}},
	}}
	o := newOrchestrator(g, &fakeRouter{result: fiveKmRoute()}, &recordingNotifier{}, "Plateau", "Cocody")

	_, err := o.Confirm()
	assert.ErrorIs(t, err, ErrNotConfirmable)

	o.Start(context.Background())
	conf, err := o.Confirm()
	require.NoError(t, err)
	assert.Equal(t, int64(900), conf.TravelPrice)
	assert.Equal(t, 5.0, conf.Route.DistanceKm)
	assert.Equal(t, shipment.ManualPointID, *conf.Route.DeparturePointID)
	assert.Equal(t, "Plateau", conf.Sender.Address)
	assert.Equal(t, "Cocody", conf.Recipient.Address)
}

func TestOrchestrator_ClickRejectsInvalidCoordinate(t *testing.T) {
	o := newOrchestrator(&fakeGeocoder{}, &fakeRouter{}, &recordingNotifier{}, "", "")
	o.Reset()
	err := o.Click(context.Background(), geo.Coordinate{Lat: 100, Lon: 0})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Empty(t, o.Snapshot().Markers)
}
