//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/tiibntick/service-expedition/internal/application"
	"github.com/tiibntick/service-expedition/internal/config"
	"github.com/tiibntick/service-expedition/internal/contracts"
	"github.com/tiibntick/service-expedition/internal/domain/shipment"
	shipmentEvents "github.com/tiibntick/service-expedition/internal/events"
	"github.com/tiibntick/service-expedition/internal/platform/database"
	"github.com/tiibntick/service-expedition/internal/platform/kafka"
	"github.com/tiibntick/service-expedition/internal/receipt"
	"github.com/tiibntick/service-expedition/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// shipmentStack holds wired-up shipment service components.
type shipmentStack struct {
	Repo     *repository.GormShipmentRepository
	Service  *application.ShipmentService
	Consumer *shipmentEvents.PaymentEventConsumer
}

// startPostgres runs a PostgreSQL container, applies the SQL migrations and
// returns a connected GORM DB. The container is removed when the test ends.
func startPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()
	const user, password, name = "expedition", "expedition", "expedition_test"

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     user,
				"POSTGRES_PASSWORD": password,
				"POSTGRES_DB":       name,
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "start postgres")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	endpoint, err := container.PortEndpoint(ctx, "5432/tcp", "")
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(endpoint)
	require.NoError(t, err)

	cfg := config.DatabaseConfig{Host: host, Port: port, User: user, Password: password, DBName: name, SSLMode: "disable"}

	// The port opens before initdb finishes its restart.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = database.Connect(cfg.DSN(), zap.NewNop())
		return err == nil
	}, 30*time.Second, time.Second, "postgres never accepted connections")

	require.NoError(t, database.RunMigrations(cfg.URL(), "migrations", zap.NewNop()))
	return db
}

// startKafka runs a single-node KRaft broker with the service topics created.
func startKafka(t *testing.T) []string {
	t.Helper()
	ctx := context.Background()

	container, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "start kafka")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate kafka: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)

	createTopics(t, brokers, contracts.TopicShipmentEvents, contracts.TopicPaymentEvents, contracts.TopicCourierEvents)
	return brokers
}

// setupShipmentStack wires up the shipment service stack. Route sessions are
// not exercised here, so their geocoder and router are left nil.
func setupShipmentStack(t *testing.T, db *gorm.DB, brokers []string) *shipmentStack {
	t.Helper()
	logger := zap.NewNop()

	repo := repository.NewGormShipmentRepository(db)
	pricing := shipment.NewStandardPricingStrategy()
	producer := kafka.NewProducer(brokers, logger)
	sessions := application.NewRouteSessionService(nil, nil, pricing, time.Minute, logger)
	svc := application.NewShipmentService(repo, pricing, sessions, receipt.NewRenderer(logger), "", producer, logger)

	groupID := fmt.Sprintf("test-expedition-%s", uuid.New().String()[:8])
	consumer := shipmentEvents.NewPaymentEventConsumer(brokers, groupID, svc, logger)

	t.Cleanup(func() {
		_ = consumer.Close()
		_ = producer.Close()
	})

	return &shipmentStack{Repo: repo, Service: svc, Consumer: consumer}
}

// seedShipment stores a freshly created shipment.
func seedShipment(t *testing.T, repo *repository.GormShipmentRepository, method shipment.PaymentMethod) *shipment.Shipment {
	t.Helper()
	route := shipment.NewRouteData("Poste Centrale", "Mvan")
	route.DistanceKm = 5
	route.DurationMinutes = 10

	parcel := shipment.Parcel{Designation: "Documents", WeightKg: 2, Logistics: shipment.LogisticsStandard}
	pricing := shipment.NewStandardPricingStrategy()

	sh, err := shipment.NewShipment(shipment.NewShipmentParams{
		ClientID:      uuid.New(),
		Sender:        shipment.Party{Name: "Awa Mbarga", Phone: "677123456"},
		Recipient:     shipment.Party{Name: "Paul Nkodo", Phone: "699000000"},
		Parcel:        parcel,
		Route:         route,
		Pricing:       shipment.NewPricing(pricing.BasePrice(parcel), pricing.TravelPrice(route.DistanceKm), pricing.OperatorFee(method)),
		PaymentMethod: method,
		PayerPhone:    "677123456",
	})
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), sh))
	return sh
}

// publishPaymentConfirmed plays the payment service confirming a shipment payment.
func publishPaymentConfirmed(t *testing.T, brokers []string, events ...contracts.PaymentConfirmedEvent) {
	t.Helper()
	producer := kafka.NewProducer(brokers, zap.NewNop())
	defer func() { _ = producer.Close() }()

	for _, evt := range events {
		ce, err := kafka.NewCloudEvent("service-payment", contracts.PaymentConfirmed, evt)
		require.NoError(t, err)
		require.NoError(t, producer.PublishEvent(context.Background(), contracts.TopicPaymentEvents, ce))
	}
}

// awaitStatus polls the shipments table until the row reaches status.
func awaitStatus(t *testing.T, db *gorm.DB, id uuid.UUID, status shipment.ShipmentStatus, timeout time.Duration) repository.ShipmentModel {
	t.Helper()
	var row repository.ShipmentModel
	require.Eventually(t, func() bool {
		err := db.First(&row, "id = ?", id).Error
		return err == nil && row.Status == string(status)
	}, timeout, 200*time.Millisecond, "shipment %s never reached %s", id, status)
	return row
}

// nextEvent reads topic from the start, partition 0, until an event of eventType shows up.
func nextEvent(t *testing.T, brokers []string, topic, eventType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if ctx.Err() != nil {
			t.Fatalf("no %q event on %s within %s", eventType, topic, timeout)
		}
		if err != nil {
			continue
		}
		if ce, err := kafka.ParseCloudEvent(msg.Value); err == nil && ce.Type == eventType {
			return ce
		}
	}
}

// createTopics creates single-partition topics on the controller and waits until
// the broker lists them.
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	configs := make([]kafkago.TopicConfig, 0, len(topics))
	for _, topic := range topics {
		configs = append(configs, kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1})
	}
	require.NoError(t, ctrl.CreateTopics(configs...))

	require.Eventually(t, func() bool {
		partitions, err := conn.ReadPartitions(topics...)
		return err == nil && len(partitions) == len(topics)
	}, 10*time.Second, 250*time.Millisecond, "topics not visible")
}
