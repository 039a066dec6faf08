package application

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/tiibntick/service-expedition/internal/domain/courier"
	"github.com/tiibntick/service-expedition/internal/domain/geo"
	photoDomain "github.com/tiibntick/service-expedition/internal/domain/photo"
	"github.com/tiibntick/service-expedition/internal/domain/shipment"
	"github.com/tiibntick/service-expedition/internal/platform/apperr"
	"github.com/tiibntick/service-expedition/internal/platform/kafka"
)

type memShipmentRepo struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*shipment.Shipment
}

func newMemShipmentRepo() *memShipmentRepo {
	return &memShipmentRepo{byID: make(map[uuid.UUID]*shipment.Shipment)}
}

func (r *memShipmentRepo) FindByID(_ context.Context, id uuid.UUID) (*shipment.Shipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sh, ok := r.byID[id]
	if !ok {
		return nil, apperr.NewNotFoundError("Shipment", id.String())
	}
	return sh, nil
}

func (r *memShipmentRepo) FindByTrackingNumber(_ context.Context, tn string) (*shipment.Shipment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sh := range r.byID {
		if sh.TrackingNumber() == tn {
			return sh, nil
		}
	}
	return nil, apperr.NewNotFoundError("Shipment", tn)
}

func (r *memShipmentRepo) filter(keep func(*shipment.Shipment) bool, page, limit int) ([]*shipment.Shipment, int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*shipment.Shipment
	for _, sh := range r.byID {
		if keep(sh) {
			all = append(all, sh)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt().After(all[j].CreatedAt()) })
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return []*shipment.Shipment{}, total
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total
}

func (r *memShipmentRepo) FindByClientID(_ context.Context, id uuid.UUID, page, limit int) ([]*shipment.Shipment, int64, error) {
	out, total := r.filter(func(sh *shipment.Shipment) bool { return sh.ClientID() == id }, page, limit)
	return out, total, nil
}

func (r *memShipmentRepo) FindByCourierID(_ context.Context, id uuid.UUID, page, limit int) ([]*shipment.Shipment, int64, error) {
	out, total := r.filter(func(sh *shipment.Shipment) bool { return sh.IsAssignedTo(id) }, page, limit)
	return out, total, nil
}

func (r *memShipmentRepo) ListAll(_ context.Context, page, limit int) ([]*shipment.Shipment, int64, error) {
	out, total := r.filter(func(*shipment.Shipment) bool { return true }, page, limit)
	return out, total, nil
}

func (r *memShipmentRepo) CountByStatus(context.Context) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int64)
	for _, sh := range r.byID {
		counts[sh.Status().String()]++
	}
	return counts, nil
}

func (r *memShipmentRepo) Save(_ context.Context, sh *shipment.Shipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[sh.ID()] = sh
	return nil
}

func (r *memShipmentRepo) Update(_ context.Context, sh *shipment.Shipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[sh.ID()]; !ok {
		return apperr.NewNotFoundError("Shipment", sh.ID().String())
	}
	r.byID[sh.ID()] = sh
	return nil
}

type memPhotoRepo struct {
	mu     sync.Mutex
	photos []*photoDomain.ShipmentPhoto
}

func (r *memPhotoRepo) Save(_ context.Context, p *photoDomain.ShipmentPhoto) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.photos = append(r.photos, p)
	return nil
}

func (r *memPhotoRepo) FindByShipmentID(_ context.Context, id uuid.UUID) ([]*photoDomain.ShipmentPhoto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*photoDomain.ShipmentPhoto
	for _, p := range r.photos {
		if p.ShipmentID() == id {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPhotoRepo) FindByID(_ context.Context, id uuid.UUID) (*photoDomain.ShipmentPhoto, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.photos {
		if p.ID() == id {
			return p, nil
		}
	}
	return nil, apperr.NewNotFoundError("ShipmentPhoto", id.String())
}

type memLocationRepo struct {
	mu   sync.Mutex
	locs map[uuid.UUID]*courier.Location
}

func newMemLocationRepo() *memLocationRepo {
	return &memLocationRepo{locs: make(map[uuid.UUID]*courier.Location)}
}

func (r *memLocationRepo) Upsert(_ context.Context, l *courier.Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locs[l.CourierID()] = l
	return nil
}

func (r *memLocationRepo) FindByCourierID(_ context.Context, id uuid.UUID) (*courier.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locs[id]
	if !ok {
		return nil, apperr.NewNotFoundError("CourierLocation", id.String())
	}
	return l, nil
}

type publishedEvent struct {
	topic string
	event kafka.CloudEvent
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic string, event kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{topic: topic, event: event})
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.event.Type
	}
	return out
}

func (p *recordingPublisher) last() publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

type stubGeocoder struct {
	forward map[string]geo.AddressCandidate
	reverse geo.AddressCandidate
}

func (g *stubGeocoder) Forward(_ context.Context, text string) ([]geo.AddressCandidate, error) {
	if c, ok := g.forward[text]; ok {
		return []geo.AddressCandidate{c}, nil
	}
	return nil, nil
}

func (g *stubGeocoder) Reverse(_ context.Context, c geo.Coordinate) (geo.AddressCandidate, error) {
	out := g.reverse
	out.Coordinate = c
	return out, nil
}

type stubRouter struct {
	result *geo.RouteResult
	err    error
}

func (r *stubRouter) Route(_ context.Context, from, to geo.Coordinate) (*geo.RouteResult, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := *r.result
	out.Path = orb.LineString{from.Point(), to.Point()}
	return &out, nil
}

var (
	poste = geo.Coordinate{Lat: 3.8667, Lon: 11.5167}
	mvan  = geo.Coordinate{Lat: 3.8211, Lon: 11.5264}
)

func newStubGeocoder() *stubGeocoder {
	return &stubGeocoder{
		forward: map[string]geo.AddressCandidate{
			"Poste Centrale": {Label: "Poste Centrale, Yaoundé", Coordinate: poste},
			"Mvan":           {Label: "Mvan, Yaoundé", Coordinate: mvan},
		},
		reverse: geo.AddressCandidate{
			Label:   "Rue 1.234, Yaoundé",
			Address: geo.Address{Suburb: "Centre", City: "Yaoundé", State: "Centre", Road: "Rue 1.234"},
		},
	}
}

func newStubRouter() *stubRouter {
	return &stubRouter{result: &geo.RouteResult{DistanceMeters: 5000, DurationSeconds: 600}}
}
