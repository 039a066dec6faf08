package tracker

import (
	"context"
	"time"

	"github.com/tiibntick/service-expedition/internal/domain/geo"
	"github.com/tiibntick/service-expedition/internal/platform/apperr"
)

// Position is one device fix.
type Position struct {
	Coordinate geo.Coordinate
	Accuracy   float64
	Timestamp  time.Time
}

// PositionOptions tunes a fix request.
type PositionOptions struct {
	HighAccuracy bool
	MaxAge       time.Duration
	Timeout      time.Duration
}

var (
	// InitialFixOptions trades accuracy for a fast first fix.
	InitialFixOptions = PositionOptions{HighAccuracy: false, MaxAge: 60 * time.Second, Timeout: 15 * time.Second}
	WatchOptions      = PositionOptions{HighAccuracy: true, MaxAge: 10 * time.Second, Timeout: 30 * time.Second}
	RetryOptions      = PositionOptions{HighAccuracy: false, MaxAge: 120 * time.Second, Timeout: 30 * time.Second}
)

var (
	ErrPermissionDenied    = apperr.New(apperr.KindPermissionDenied, "geolocation permission denied")
	ErrPositionUnavailable = apperr.New(apperr.KindTransientPosition, "position unavailable")
	ErrPositionTimeout     = apperr.New(apperr.KindTransientPosition, "position request timed out")
)

// Geolocator is the device positioning source.
type Geolocator interface {
	CurrentPosition(ctx context.Context, opts PositionOptions) (Position, error)
	// Watch starts continuous sampling. The subscription must be stopped by the caller.
	Watch(ctx context.Context, opts PositionOptions) (Subscription, error)
}

// Subscription is a running position watch.
type Subscription interface {
	Positions() <-chan Position
	Errors() <-chan error
	Stop()
}

// Timer is a pending callback.
type Timer interface {
	Stop() bool
}

// Clock abstracts time so throttling and retries can be tested.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

func isPermissionDenied(err error) bool {
	return apperr.Is(err, apperr.KindPermissionDenied)
}
