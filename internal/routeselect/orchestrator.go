// Package routeselect drives the route step of the expedition wizard: it
// resolves the two endpoints (automatically from typed addresses or from map
// clicks), computes the route and its travel price, and hands the result back
// to the wizard once it is confirmable.
package routeselect

import (
	"context"
	"errors"
	"sync"

	"github.com/paulmach/orb"
	"github.com/tiibntick/service-expedition/internal/domain/geo"
	"github.com/tiibntick/service-expedition/internal/domain/shipment"
	"github.com/tiibntick/service-expedition/internal/geocoding"
	"github.com/tiibntick/service-expedition/internal/platform/apperr"
	"github.com/tiibntick/service-expedition/internal/routing"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// State is the orchestrator's position in the selection flow.
type State string

const (
	StateIdle                State = "idle"
	StateAutoResolving       State = "auto_resolving"
	StateManualDeparturePick State = "manual_departure_pick"
	StateManualArrivalPick   State = "manual_arrival_pick"
	StateRouteComputed       State = "route_computed"
	StateError               State = "error"
)

// Mode is which endpoint the next map click sets.
type Mode string

const (
	ModeNone      Mode = "none"
	ModeDeparture Mode = "departure"
	ModeArrival   Mode = "arrival"
)

// User-facing alerts.
const (
	MsgManualSelectionRequired = "Certaines adresses n'ont pas été trouvées. Veuillez sélectionner les points de départ et d'arrivée manuellement sur la carte."
	MsgNoItinerary             = "Aucun itinéraire trouvé entre ces deux points."
	MsgRoutingError            = "Erreur de calcul d'itinéraire."
)

// DefaultCenter is Yaoundé.
var DefaultCenter = geo.Coordinate{Lat: 3.848, Lon: 11.502}

// ErrNotConfirmable is returned by Confirm while no route is available.
var ErrNotConfirmable = apperr.New(apperr.KindInvalidState, "route is not ready to be confirmed")

// Notifier shows an alert to the user.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

// Pricer turns a distance into a travel price.
type Pricer interface {
	TravelPrice(distanceKm float64) int64
}

// Snapshot is a consistent copy of the orchestrator's observable state.
type Snapshot struct {
	State       State                   `json:"state"`
	Mode        Mode                    `json:"selection_mode"`
	Markers     []geo.Marker            `json:"markers"`
	Path        orb.LineString          `json:"-"`
	Center      geo.Coordinate          `json:"center"`
	Route       shipment.RouteData      `json:"route"`
	TravelPrice int64                   `json:"travel_price"`
	Sender      *shipment.AddressUpdate `json:"sender_update,omitempty"`
	Recipient   *shipment.AddressUpdate `json:"recipient_update,omitempty"`
	Loading     bool                    `json:"loading"`
	Confirmable bool                    `json:"confirmable"`
}

// Confirmation is what the wizard receives when the user validates the route.
type Confirmation struct {
	Route       shipment.RouteData      `json:"route"`
	TravelPrice int64                   `json:"travel_price"`
	Sender      *shipment.AddressUpdate `json:"sender_update,omitempty"`
	Recipient   *shipment.AddressUpdate `json:"recipient_update,omitempty"`
}

// Orchestrator is one route-selection session. It is safe for concurrent use;
// network calls run outside the lock and a result is applied only if no reset
// or newer computation happened meanwhile.
type Orchestrator struct {
	geocoder geocoding.Geocoder
	router   routing.Router
	pricer   Pricer
	notifier Notifier
	logger   *zap.Logger

	departureText string
	arrivalText   string

	mu         sync.Mutex
	generation uint64
	state      State
	mode       Mode
	markers    []geo.Marker
	path       orb.LineString
	center     geo.Coordinate
	route      shipment.RouteData
	price      int64
	sender     *shipment.AddressUpdate
	recipient  *shipment.AddressUpdate
	loading    bool
}

// New creates an orchestrator for the addresses typed in earlier wizard steps (either may be empty).
func New(
	geocoder geocoding.Geocoder,
	router routing.Router,
	pricer Pricer,
	notifier Notifier,
	logger *zap.Logger,
	departureText, arrivalText string,
) *Orchestrator {
	if notifier == nil {
		notifier = NotifierFunc(func(string) {})
	}
	return &Orchestrator{
		geocoder:      geocoder,
		router:        router,
		pricer:        pricer,
		notifier:      notifier,
		logger:        logger,
		departureText: departureText,
		arrivalText:   arrivalText,
		state:         StateIdle,
		mode:          ModeNone,
		center:        DefaultCenter,
		route:         shipment.NewRouteData(departureText, arrivalText),
	}
}

// Start resolves both typed addresses concurrently and computes the route when both are found.
// Without both addresses it does nothing and the session stays idle.
func (o *Orchestrator) Start(ctx context.Context) {
	if o.departureText == "" || o.arrivalText == "" {
		return
	}

	o.mu.Lock()
	o.generation++
	token := o.generation
	o.state = StateAutoResolving
	o.loading = true
	o.mu.Unlock()

	var dep, arr geo.AddressCandidate
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		dep, err = geocoding.First(gctx, o.geocoder, o.departureText)
		return err
	})
	g.Go(func() (err error) {
		arr, err = geocoding.First(gctx, o.geocoder, o.arrivalText)
		return err
	})
	if err := g.Wait(); err != nil {
		o.logger.Info("automatic address resolution failed",
			zap.String("departure", o.departureText),
			zap.String("arrival", o.arrivalText),
			zap.Error(err),
		)
		o.mu.Lock()
		current := token == o.generation
		if current {
			o.state = StateManualDeparturePick
			o.mode = ModeDeparture
			o.loading = false
		}
		o.mu.Unlock()
		if current {
			o.notifier.Notify(MsgManualSelectionRequired)
		}
		return
	}

	o.computeRoute(ctx, token, dep.Coordinate, arr.Coordinate)
}

// Click handles a map click according to the current selection mode.
func (o *Orchestrator) Click(ctx context.Context, c geo.Coordinate) error {
	if err := c.Validate(); err != nil {
		return err
	}

	o.mu.Lock()
	switch o.mode {
	case ModeDeparture:
		o.markers = []geo.Marker{geo.DepartureMarker(c)}
		o.mode = ModeArrival
		o.state = StateManualArrivalPick
		o.mu.Unlock()
		return nil

	case ModeArrival:
		if len(o.markers) == 0 {
			// Arrival picked before any departure: keep it and ask for the departure again.
			o.markers = []geo.Marker{geo.ArrivalMarker(c)}
			o.mode = ModeDeparture
			o.state = StateManualDeparturePick
			o.mu.Unlock()
			return nil
		}
		departure := o.markers[0].Position
		o.generation++
		token := o.generation
		o.mu.Unlock()

		o.computeRoute(ctx, token, departure, c)
		return nil

	default:
		o.mu.Unlock()
		return nil
	}
}

// Reset clears the route and waits for a departure pick. In-flight computations are discarded.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.generation++
	o.markers = nil
	o.path = nil
	o.price = 0
	o.sender = nil
	o.recipient = nil
	o.route = shipment.PlaceholderRouteData()
	o.mode = ModeDeparture
	o.state = StateManualDeparturePick
	o.loading = false
}

// Snapshot returns a copy of the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	markers := make([]geo.Marker, len(o.markers))
	copy(markers, o.markers)
	path := make(orb.LineString, len(o.path))
	copy(path, o.path)

	return Snapshot{
		State:       o.state,
		Mode:        o.mode,
		Markers:     markers,
		Path:        path,
		Center:      o.center,
		Route:       o.route.Clone(),
		TravelPrice: o.price,
		Sender:      cloneUpdate(o.sender),
		Recipient:   cloneUpdate(o.recipient),
		Loading:     o.loading,
		Confirmable: o.confirmableLocked(),
	}
}

// Confirm returns the finalized route, or ErrNotConfirmable while loading or without a distance.
func (o *Orchestrator) Confirm() (Confirmation, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.confirmableLocked() {
		return Confirmation{}, ErrNotConfirmable
	}
	return Confirmation{
		Route:       o.route.Clone(),
		TravelPrice: o.price,
		Sender:      cloneUpdate(o.sender),
		Recipient:   cloneUpdate(o.recipient),
	}, nil
}

func (o *Orchestrator) confirmableLocked() bool {
	return !o.loading && o.route.DistanceKm > 0
}

// computeRoute reverse-geocodes both ends, then routes between them. token must
// come from a generation bump made by the caller.
func (o *Orchestrator) computeRoute(ctx context.Context, token uint64, dep, arr geo.Coordinate) {
	o.mu.Lock()
	if token != o.generation {
		o.mu.Unlock()
		return
	}
	o.loading = true
	o.mu.Unlock()

	var alert string
	defer func() {
		o.mu.Lock()
		current := token == o.generation
		if current {
			o.loading = false
		}
		o.mu.Unlock()
		if current && alert != "" {
			o.notifier.Notify(alert)
		}
	}()

	var depAddr, arrAddr geo.AddressCandidate
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		depAddr, err = o.geocoder.Reverse(gctx, dep)
		return err
	})
	g.Go(func() (err error) {
		arrAddr, err = o.geocoder.Reverse(gctx, arr)
		return err
	})
	if err := g.Wait(); err != nil {
		o.logger.Warn("reverse geocoding failed", zap.Error(err))
		alert = o.fail(token, MsgRoutingError)
		return
	}

	sender := addressUpdate(depAddr)
	recipient := addressUpdate(arrAddr)

	o.mu.Lock()
	if token != o.generation {
		o.mu.Unlock()
		return
	}
	o.sender = sender
	o.recipient = recipient
	o.mu.Unlock()

	res, err := o.router.Route(ctx, dep, arr)
	if err != nil {
		if errors.Is(err, routing.ErrNoRoute) {
			alert = o.fail(token, MsgNoItinerary)
		} else {
			o.logger.Warn("route computation failed", zap.Error(err))
			alert = o.fail(token, MsgRoutingError)
		}
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if token != o.generation {
		return
	}
	o.markers = []geo.Marker{geo.DepartureMarker(dep), geo.ArrivalMarker(arr)}
	o.path = res.Path
	o.center = geo.Midpoint(dep, arr)
	o.route = o.route.WithRoute(*res, depAddr.Locality(), arrAddr.Locality())
	o.price = o.pricer.TravelPrice(o.route.DistanceKm)
	o.state = StateRouteComputed
	o.mode = ModeNone
}

// fail records a failed computation, leaving markers and any prior route as they were.
// It returns the alert to show, or "" when the computation is stale.
func (o *Orchestrator) fail(token uint64, alert string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if token != o.generation {
		return ""
	}
	o.state = StateError
	o.mode = ModeDeparture
	return alert
}

func addressUpdate(a geo.AddressCandidate) *shipment.AddressUpdate {
	return &shipment.AddressUpdate{
		Address: a.Locality(),
		City:    a.CityName(),
		Region:  a.Address.State,
		LieuDit: a.PlaceName(),
	}
}

func cloneUpdate(u *shipment.AddressUpdate) *shipment.AddressUpdate {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
