package tracker

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const track = `{"lat":3.848,"lon":11.502,"accuracy":12}

{"error":"timeout"}
{"lat":3.85,"lon":11.51}
`

func TestReplayGeolocator_CurrentPosition(t *testing.T) {
	g := NewReplayGeolocator(strings.NewReader(track), time.Millisecond, nil)
	ctx := context.Background()

	p, err := g.CurrentPosition(ctx, InitialFixOptions)
	require.NoError(t, err)
	assert.Equal(t, 3.848, p.Coordinate.Lat)
	assert.Equal(t, 12.0, p.Accuracy)

	_, err = g.CurrentPosition(ctx, RetryOptions)
	assert.ErrorIs(t, err, ErrPositionTimeout)

	p, err = g.CurrentPosition(ctx, RetryOptions)
	require.NoError(t, err)
	assert.Equal(t, 3.85, p.Coordinate.Lat)

	// exhausted: the last fix is repeated
	p, err = g.CurrentPosition(ctx, RetryOptions)
	require.NoError(t, err)
	assert.Equal(t, 3.85, p.Coordinate.Lat)
	<-g.Done()
}

func TestReplayGeolocator_Watch(t *testing.T) {
	g := NewReplayGeolocator(strings.NewReader(track), time.Millisecond, nil)
	sub, err := g.Watch(context.Background(), WatchOptions)
	require.NoError(t, err)
	defer sub.Stop()

	var lats []float64
	var errs int
	for done := false; !done; {
		select {
		case p, ok := <-sub.Positions():
			if !ok {
				done = true
				break
			}
			lats = append(lats, p.Coordinate.Lat)
		case <-sub.Errors():
			errs++
		case <-time.After(waitFor):
			t.Fatal("replay stalled")
		}
	}
	assert.Equal(t, []float64{3.848, 3.85}, lats)
	assert.Equal(t, 1, errs)
}
