package application

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tiibntick/service-expedition/internal/contracts"
	"github.com/tiibntick/service-expedition/internal/platform/apperr"
	"go.uber.org/zap"
)

func TestCourierLocationService_UpdateLocation(t *testing.T) {
	publisher := &recordingPublisher{}
	svc := NewCourierLocationService(newMemLocationRepo(), publisher, zap.NewNop())
	ctx := context.Background()
	courierID := uuid.New()

	dto, err := svc.UpdateLocation(ctx, courierID, 3.848, 11.502)
	require.NoError(t, err)
	assert.Equal(t, 3.848, dto.Latitude)

	_, err = svc.UpdateLocation(ctx, courierID, 3.857, 11.502)
	require.NoError(t, err)

	last := publisher.last()
	assert.Equal(t, contracts.TopicCourierEvents, last.topic)
	assert.Equal(t, contracts.CourierLocationUpdated, last.event.Type)
	assert.Equal(t, courierID.String(), last.event.Subject)

	var evt contracts.CourierLocationUpdatedEvent
	require.NoError(t, last.event.ParseData(&evt))
	assert.InDelta(t, 1000, evt.MovedMeters, 10)

	got, err := svc.GetLocation(ctx, courierID)
	require.NoError(t, err)
	assert.Equal(t, 3.857, got.Latitude)
}

func TestCourierLocationService_Rejections(t *testing.T) {
	publisher := &recordingPublisher{}
	svc := NewCourierLocationService(newMemLocationRepo(), publisher, zap.NewNop())
	ctx := context.Background()

	_, err := svc.UpdateLocation(ctx, uuid.New(), 120, 0)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Empty(t, publisher.types())

	_, err = svc.GetLocation(ctx, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
