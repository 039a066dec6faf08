package tracker

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/tiibntick/service-expedition/internal/domain/geo"
)

// ReplayGeolocator plays back positions from newline-delimited JSON, one
// {"lat":..,"lon":..,"accuracy":..} object per line. A line {"error":"permission_denied"}
// or {"error":"unavailable"} simulates a device error.
type ReplayGeolocator struct {
	interval time.Duration
	clock    Clock

	mu      sync.Mutex
	scanner *bufio.Scanner
	last    *Position
	done    chan struct{}
	eofOnce sync.Once
}

type replayRecord struct {
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
	Accuracy float64  `json:"accuracy"`
	Error    string   `json:"error"`
}

// NewReplayGeolocator reads from r, emitting one line per interval while watched.
func NewReplayGeolocator(r io.Reader, interval time.Duration, clock Clock) *ReplayGeolocator {
	if clock == nil {
		clock = SystemClock
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &ReplayGeolocator{
		interval: interval,
		clock:    clock,
		scanner:  bufio.NewScanner(r),
		done:     make(chan struct{}),
	}
}

// Done is closed once the input is exhausted.
func (g *ReplayGeolocator) Done() <-chan struct{} { return g.done }

// next returns the next sample; ok is false at end of input.
func (g *ReplayGeolocator) next() (Position, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for g.scanner.Scan() {
		line := g.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec replayRecord
		if jsonErr := json.Unmarshal(line, &rec); jsonErr != nil {
			return Position{}, true, ErrPositionUnavailable
		}
		switch rec.Error {
		case "":
		case "permission_denied":
			return Position{}, true, ErrPermissionDenied
		case "timeout":
			return Position{}, true, ErrPositionTimeout
		default:
			return Position{}, true, ErrPositionUnavailable
		}
		if rec.Lat == nil || rec.Lon == nil {
			return Position{}, true, ErrPositionUnavailable
		}
		p := Position{
			Coordinate: geo.Coordinate{Lat: *rec.Lat, Lon: *rec.Lon},
			Accuracy:   rec.Accuracy,
			Timestamp:  g.clock.Now(),
		}
		g.last = &p
		return p, true, nil
	}
	g.eofOnce.Do(func() { close(g.done) })
	return Position{}, false, nil
}

// CurrentPosition consumes the next sample, or repeats the last one at end of input.
func (g *ReplayGeolocator) CurrentPosition(ctx context.Context, _ PositionOptions) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}
	pos, ok, err := g.next()
	if ok {
		return pos, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.last == nil {
		return Position{}, ErrPositionUnavailable
	}
	return *g.last, nil
}

// Watch emits the remaining samples, one per interval, then closes the positions channel.
func (g *ReplayGeolocator) Watch(ctx context.Context, _ PositionOptions) (Subscription, error) {
	sub := &replaySubscription{
		positions: make(chan Position),
		errors:    make(chan error),
		stop:      make(chan struct{}),
	}
	go g.play(ctx, sub)
	return sub, nil
}

func (g *ReplayGeolocator) play(ctx context.Context, sub *replaySubscription) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.stop:
			return
		case <-ticker.C:
		}

		pos, ok, err := g.next()
		if !ok {
			close(sub.positions)
			return
		}
		if err != nil {
			select {
			case sub.errors <- err:
			case <-ctx.Done():
				return
			case <-sub.stop:
				return
			}
			continue
		}
		select {
		case sub.positions <- pos:
		case <-ctx.Done():
			return
		case <-sub.stop:
			return
		}
	}
}

type replaySubscription struct {
	positions chan Position
	errors    chan error
	stop      chan struct{}
	stopOnce  sync.Once
}

func (s *replaySubscription) Positions() <-chan Position { return s.positions }
func (s *replaySubscription) Errors() <-chan error       { return s.errors }
func (s *replaySubscription) Stop()                      { s.stopOnce.Do(func() { close(s.stop) }) }
