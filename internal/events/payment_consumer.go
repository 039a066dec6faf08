package events

import (
	"context"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/tiibntick/service-expedition/internal/application"
	"github.com/tiibntick/service-expedition/internal/contracts"
	"github.com/tiibntick/service-expedition/internal/platform/apperr"
	"github.com/tiibntick/service-expedition/internal/platform/kafka"
	"go.uber.org/zap"
)

// PaymentRecorder marks shipments as paid.
type PaymentRecorder interface {
	MarkPaid(ctx context.Context, shipmentID uuid.UUID, paymentRef string, amount int64) (*application.ShipmentDTO, error)
}

// PaymentEventConsumer listens to payment events and marks mobile-money shipments as paid.
type PaymentEventConsumer struct {
	consumer *kafka.Consumer
	payments PaymentRecorder
	logger   *zap.Logger
}

// NewPaymentEventConsumer creates a new PaymentEventConsumer.
func NewPaymentEventConsumer(
	brokers []string,
	groupID string,
	payments PaymentRecorder,
	logger *zap.Logger,
) *PaymentEventConsumer {
	return &PaymentEventConsumer{
		consumer: kafka.NewConsumer(brokers, groupID, contracts.TopicPaymentEvents, logger),
		payments: payments,
		logger:   logger,
	}
}

// Start begins consuming payment events. This blocks until the context is cancelled.
func (c *PaymentEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *PaymentEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *PaymentEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from payment topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // malformed, retrying cannot help
	}

	switch cloudEvent.Type {
	case contracts.PaymentConfirmed:
		return c.handlePaymentConfirmed(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled payment event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *PaymentEventConsumer) handlePaymentConfirmed(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt contracts.PaymentConfirmedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse PaymentConfirmedEvent data", zap.Error(err))
		return nil
	}

	log := c.logger.With(
		zap.String("shipment_id", evt.ShipmentID.String()),
		zap.String("payment_id", evt.PaymentID.String()),
	)

	ref := evt.Reference
	if ref == "" {
		ref = evt.PaymentID.String()
	}

	if _, err := c.payments.MarkPaid(ctx, evt.ShipmentID, ref, evt.Amount); err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindNotFound, apperr.KindValidation, apperr.KindInvalidState:
			// the shipment cannot take this payment; redelivery would fail the same way
			log.Warn("payment rejected", zap.Error(err))
			return nil
		default:
			log.Error("failed to mark shipment as paid", zap.Error(err))
			return err
		}
	}

	log.Info("shipment marked as paid")
	return nil
}
