// Package tracker forwards a courier's device position to the expedition API
// while a courier session is active.
package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/tiibntick/service-expedition/internal/domain/geo"
	"github.com/tiibntick/service-expedition/internal/platform/auth"
	"go.uber.org/zap"
)

// MinReportInterval is the minimum spacing between two forwarded samples.
const MinReportInterval = 15 * time.Second

// Sink receives forwarded positions.
type Sink interface {
	Send(ctx context.Context, session auth.Session, c geo.Coordinate) error
}

// Reporter samples the device position while the session is a courier's and
// forwards throttled samples to a Sink.
type Reporter struct {
	geolocator Geolocator
	sink       Sink
	clock      Clock
	logger     *zap.Logger
	interval   time.Duration
	budget     RetryBudget

	mu     sync.Mutex
	active *activation
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option { return func(r *Reporter) { r.clock = c } }

// WithRetryBudget replaces the default single 10s retry.
func WithRetryBudget(b RetryBudget) Option { return func(r *Reporter) { r.budget = b } }

// NewReporter creates an inactive Reporter.
func NewReporter(geolocator Geolocator, sink Sink, logger *zap.Logger, opts ...Option) *Reporter {
	r := &Reporter{
		geolocator: geolocator,
		sink:       sink,
		clock:      SystemClock,
		logger:     logger,
		interval:   MinReportInterval,
		budget:     DefaultRetryBudget(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetSession activates reporting for a courier session and deactivates it for
// anything else. Setting the same identity again only swaps in its token, so a
// session whose permission was denied stays silent until the user or role changes.
func (r *Reporter) SetSession(s *auth.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil && r.active.identity().SameIdentity(s) {
		r.active.setToken(s.Token)
		return
	}
	r.stopLocked()

	if !s.IsCourier() {
		return
	}
	r.active = r.start(*s)
}

// Active reports whether a courier session is being tracked.
func (r *Reporter) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil && !r.active.isReleased()
}

// Close releases every resource. The Reporter can be reactivated with SetSession.
func (r *Reporter) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *Reporter) stopLocked() {
	if r.active == nil {
		return
	}
	r.active.release()
	<-r.active.done
	r.active = nil
}

func (r *Reporter) start(s auth.Session) *activation {
	ctx, cancel := context.WithCancel(context.Background())
	a := &activation{
		r:       r,
		session: s,
		ctx:     ctx,
		cancel:  cancel,
		budget:  NewRetryBudget(r.budget.Attempts, r.budget.Delay),
		done:    make(chan struct{}),
		logger:  r.logger.With(zap.String("courier_id", s.CourierID)),
	}
	go a.run()
	return a
}

// activation is one courier session's tracking. It owns the watch subscription
// and the retry timer and releases both exactly once.
type activation struct {
	r       *Reporter
	session auth.Session
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *zap.Logger
	done    chan struct{}

	releaseOnce sync.Once

	mu       sync.Mutex
	released bool
	sub      Subscription
	timer    Timer
	budget   RetryBudget
	lastSent time.Time
	sentAny  bool
}

func (a *activation) run() {
	defer close(a.done)

	pos, err := a.r.geolocator.CurrentPosition(a.ctx, InitialFixOptions)
	switch {
	case err == nil:
		a.forward(pos)
	case isPermissionDenied(err):
		a.deny()
		return
	case a.ctx.Err() != nil:
		return
	default:
		a.logger.Warn("initial position fix failed", zap.Error(err))
	}

	sub, err := a.r.geolocator.Watch(a.ctx, WatchOptions)
	if err != nil {
		if isPermissionDenied(err) {
			a.deny()
			return
		}
		a.logger.Error("failed to start position watch", zap.Error(err))
		return
	}
	if !a.attach(sub) {
		return
	}

	for {
		select {
		case <-a.ctx.Done():
			return
		case p, ok := <-sub.Positions():
			if !ok {
				a.logger.Info("position watch ended")
				a.release()
				return
			}
			a.mu.Lock()
			a.budget.Reset()
			a.mu.Unlock()
			a.forward(p)
		case err, ok := <-sub.Errors():
			if !ok {
				a.release()
				return
			}
			if isPermissionDenied(err) {
				a.deny()
				return
			}
			a.logger.Warn("position watch error", zap.Error(err))
			a.scheduleRetry()
		}
	}
}

// attach records the subscription, stopping it at once if the activation was released meanwhile.
func (a *activation) attach(sub Subscription) bool {
	a.mu.Lock()
	if a.released {
		a.mu.Unlock()
		sub.Stop()
		return false
	}
	a.sub = sub
	a.mu.Unlock()
	return true
}

func (a *activation) scheduleRetry() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released || !a.budget.Take() {
		return
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = a.r.clock.AfterFunc(a.budget.Delay, a.retry)
}

func (a *activation) retry() {
	if a.ctx.Err() != nil {
		return
	}
	pos, err := a.r.geolocator.CurrentPosition(a.ctx, RetryOptions)
	if err != nil {
		a.logger.Debug("position retry failed", zap.Error(err))
		return
	}
	a.mu.Lock()
	a.budget.Reset()
	a.mu.Unlock()
	a.forward(pos)
}

// forward sends p unless a sample was forwarded less than the interval ago.
func (a *activation) forward(p Position) {
	a.mu.Lock()
	now := a.r.clock.Now()
	if a.released || (a.sentAny && now.Sub(a.lastSent) < a.r.interval) {
		a.mu.Unlock()
		return
	}
	a.lastSent = now
	a.sentAny = true
	session := a.session
	a.mu.Unlock()

	if err := a.r.sink.Send(a.ctx, session, p.Coordinate); err != nil {
		a.logger.Warn("failed to forward position", zap.Error(err))
	}
}

func (a *activation) identity() *auth.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.session
	return &s
}

// setToken replaces the bearer token of a refreshed session.
func (a *activation) setToken(token string) {
	a.mu.Lock()
	a.session.Token = token
	a.mu.Unlock()
}

func (a *activation) deny() {
	a.logger.Warn("geolocation permission denied, tracking stopped for this session")
	a.release()
}

func (a *activation) isReleased() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.released
}

func (a *activation) release() {
	a.releaseOnce.Do(func() {
		a.cancel()

		a.mu.Lock()
		a.released = true
		sub, timer := a.sub, a.timer
		a.sub, a.timer = nil, nil
		a.mu.Unlock()

		if timer != nil {
			timer.Stop()
		}
		if sub != nil {
			sub.Stop()
		}
	})
}
