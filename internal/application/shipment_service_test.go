package application

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tiibntick/service-expedition/internal/contracts"
	"github.com/tiibntick/service-expedition/internal/domain/shipment"
	"github.com/tiibntick/service-expedition/internal/platform/apperr"
	"github.com/tiibntick/service-expedition/internal/receipt"
	"go.uber.org/zap"
)

type shipmentFixture struct {
	svc       *ShipmentService
	sessions  *RouteSessionService
	repo      *memShipmentRepo
	publisher *recordingPublisher
	client    uuid.UUID
}

func newShipmentFixture(t *testing.T, receiptDir string) *shipmentFixture {
	t.Helper()
	logger := zap.NewNop()
	repo := newMemShipmentRepo()
	publisher := &recordingPublisher{}
	sessions := newRouteSessions(t)
	svc := NewShipmentService(repo, shipment.NewStandardPricingStrategy(), sessions, receipt.NewRenderer(logger), receiptDir, publisher, logger)
	return &shipmentFixture{svc: svc, sessions: sessions, repo: repo, publisher: publisher, client: uuid.New()}
}

func (f *shipmentFixture) confirmedSession(t *testing.T) string {
	t.Helper()
	dto, err := f.sessions.Start(context.Background(), f.client, StartRouteSessionRequest{DepartureText: "Poste Centrale", ArrivalText: "Mvan"})
	require.NoError(t, err)
	require.True(t, dto.Confirmable)
	return dto.ID
}

func (f *shipmentFixture) request(t *testing.T, method shipment.PaymentMethod) CreateShipmentRequest {
	return CreateShipmentRequest{
		RouteSessionID: f.confirmedSession(t),
		Sender:         shipment.Party{Name: "Awa Mbarga", Phone: "677123456", Address: "typed"},
		Recipient:      shipment.Party{Name: "Paul Nkodo", Phone: "699000000"},
		Parcel: shipment.Parcel{
			Designation: "Documents",
			WeightKg:    2,
			Fragile:     true,
			Logistics:   shipment.LogisticsStandard,
		},
		PaymentMethod: string(method),
		PayerPhone:    "677123456",
	}
}

func (f *shipmentFixture) create(t *testing.T, method shipment.PaymentMethod) *ShipmentDTO {
	t.Helper()
	dto, err := f.svc.CreateShipment(context.Background(), f.client, f.request(t, method))
	require.NoError(t, err)
	return dto
}

func pngDataURL(t *testing.T) string {
	t.Helper()
	png, err := qrcode.Encode("x", qrcode.Low, 64)
	require.NoError(t, err)
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

func TestShipmentService_CreateShipment(t *testing.T) {
	f := newShipmentFixture(t, "")
	req := f.request(t, shipment.PaymentMobile)
	req.Signature = pngDataURL(t)

	dto, err := f.svc.CreateShipment(context.Background(), f.client, req)
	require.NoError(t, err)

	assert.Regexp(t, `^TRK-[A-Z2-9]{8}$`, dto.TrackingNumber)
	assert.Equal(t, "created", dto.Status)
	assert.Equal(t, int64(1), dto.Version)
	assert.True(t, dto.HasSignature)
	assert.Equal(t, shipment.Pricing{
		BasePrice:   3300,
		TravelPrice: 900,
		OperatorFee: 100,
		TotalPrice:  4300,
		Currency:    shipment.Currency,
	}, dto.Pricing)

	// reverse-geocoded fields override what was typed
	assert.Equal(t, "Centre", dto.Sender.Address)
	assert.Equal(t, "Yaoundé", dto.Sender.City)
	assert.Equal(t, "Rue 1.234", dto.Recipient.LieuDit)
	assert.Equal(t, "Awa Mbarga", dto.Sender.Name)

	assert.Equal(t, []string{contracts.ShipmentCreated}, f.publisher.types())
	last := f.publisher.last()
	assert.Equal(t, contracts.TopicShipmentEvents, last.topic)
	assert.Equal(t, dto.ID.String(), last.event.Subject)

	var evt contracts.ShipmentCreatedEvent
	require.NoError(t, last.event.ParseData(&evt))
	assert.Equal(t, int64(4300), evt.TotalPrice)
	assert.Equal(t, 5.0, evt.DistanceKm)

	assert.Zero(t, f.sessions.Len(), "session is discarded once the shipment exists")
}

func TestShipmentService_CreateShipment_RecipientPays(t *testing.T) {
	f := newShipmentFixture(t, "")
	req := f.request(t, shipment.PaymentRecipient)
	req.PayerPhone = ""

	dto, err := f.svc.CreateShipment(context.Background(), f.client, req)
	require.NoError(t, err)
	assert.Equal(t, int64(0), dto.Pricing.OperatorFee)
	assert.Equal(t, int64(4200), dto.Pricing.TotalPrice)
}

func TestShipmentService_CreateShipment_Rejections(t *testing.T) {
	f := newShipmentFixture(t, "")
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateShipmentRequest)
		kind   apperr.Kind
	}{
		{"unknown payment method", func(r *CreateShipmentRequest) { r.PaymentMethod = "cash" }, apperr.KindValidation},
		{"photo not a data URL", func(r *CreateShipmentRequest) { r.Parcel.Photo = "https://cdn/x.png" }, apperr.KindValidation},
		{"gif signature", func(r *CreateShipmentRequest) { r.Signature = "data:image/gif;base64,R0lGOD==" }, apperr.KindValidation},
		{"truncated png photo", func(r *CreateShipmentRequest) { r.Parcel.Photo = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAA" }, apperr.KindValidation},
		{"unknown relay point", func(r *CreateShipmentRequest) { id := "r-99"; r.ArrivalPointID = &id }, apperr.KindValidation},
		{"bad mobile number", func(r *CreateShipmentRequest) { r.PayerPhone = "12345" }, apperr.KindValidation},
		{"missing session", func(r *CreateShipmentRequest) { r.RouteSessionID = "nope" }, apperr.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request(t, shipment.PaymentMobile)
			tt.mutate(&req)
			_, err := f.svc.CreateShipment(ctx, f.client, req)
			assert.True(t, apperr.Is(err, tt.kind), "got %v", err)
		})
	}

	all, total, err := f.svc.ListAll(ctx, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Zero(t, total)
	assert.Empty(t, f.publisher.types())
}

func TestShipmentService_CreateShipment_RouteNotConfirmable(t *testing.T) {
	f := newShipmentFixture(t, "")
	ctx := context.Background()

	dto, err := f.sessions.Start(ctx, f.client, StartRouteSessionRequest{})
	require.NoError(t, err)

	req := f.request(t, shipment.PaymentMobile)
	req.RouteSessionID = dto.ID
	_, err = f.svc.CreateShipment(ctx, f.client, req)
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))
}

func TestShipmentService_CreateShipment_OtherClientsSession(t *testing.T) {
	f := newShipmentFixture(t, "")
	req := f.request(t, shipment.PaymentMobile)

	_, err := f.svc.CreateShipment(context.Background(), uuid.New(), req)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestShipmentService_CreateShipment_RelayPoint(t *testing.T) {
	f := newShipmentFixture(t, "")
	req := f.request(t, shipment.PaymentMobile)
	id := "r-2"
	req.DeparturePointID = &id

	dto, err := f.svc.CreateShipment(context.Background(), f.client, req)
	require.NoError(t, err)
	require.NotNil(t, dto.Route.DeparturePointID)
	assert.Equal(t, "r-2", *dto.Route.DeparturePointID)
	assert.Equal(t, "Relais Est", dto.Route.DeparturePointName)
	assert.Equal(t, shipment.ManualPointID, *dto.Route.ArrivalPointID)
}

func TestShipmentService_CreateShipment_ArchivesReceipt(t *testing.T) {
	dir := t.TempDir()
	f := newShipmentFixture(t, dir)
	dto := f.create(t, shipment.PaymentMobile)

	b, err := os.ReadFile(filepath.Join(dir, "Bordereau_"+dto.TrackingNumber+".pdf"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("%PDF-")))
}

func TestShipmentService_RenderReceipt(t *testing.T) {
	f := newShipmentFixture(t, "")
	dto := f.create(t, shipment.PaymentMobile)

	var buf bytes.Buffer
	name, err := f.svc.RenderReceipt(context.Background(), dto.TrackingNumber, &buf)
	require.NoError(t, err)
	assert.Equal(t, "Bordereau_"+dto.TrackingNumber+".pdf", name)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	_, err = f.svc.RenderReceipt(context.Background(), "TRK-NOPE0000", &buf)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestShipmentService_MobileLifecycle(t *testing.T) {
	f := newShipmentFixture(t, "")
	ctx := context.Background()
	dto := f.create(t, shipment.PaymentMobile)
	courierID := uuid.New()

	_, err := f.svc.PickUp(ctx, dto.TrackingNumber, courierID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidState), "unpaid mobile shipment cannot be collected")

	_, err = f.svc.MarkPaid(ctx, dto.ID, "MOMO-1", 999)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	paid, err := f.svc.MarkPaid(ctx, dto.ID, "MOMO-1", 4300)
	require.NoError(t, err)
	assert.Equal(t, "paid", paid.Status)
	assert.Equal(t, int64(2), paid.Version)

	replay, err := f.svc.MarkPaid(ctx, dto.ID, "MOMO-1", 4300)
	require.NoError(t, err)
	assert.Equal(t, int64(2), replay.Version)

	picked, err := f.svc.PickUp(ctx, dto.TrackingNumber, courierID)
	require.NoError(t, err)
	assert.Equal(t, &courierID, picked.CourierID)

	_, err = f.svc.StartTransit(ctx, dto.TrackingNumber, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = f.svc.StartTransit(ctx, dto.TrackingNumber, courierID)
	require.NoError(t, err)
	delivered, err := f.svc.Deliver(ctx, dto.TrackingNumber, courierID)
	require.NoError(t, err)
	assert.Equal(t, "delivered", delivered.Status)
	assert.NotNil(t, delivered.DeliveredAt)

	assert.Equal(t, []string{
		contracts.ShipmentCreated,
		contracts.ShipmentPaid,
		contracts.ShipmentPickedUp,
		contracts.ShipmentInTransit,
		contracts.ShipmentDelivered,
	}, f.publisher.types())

	mine, err := f.svc.ListForCourier(ctx, courierID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), mine.Total)
}

func TestShipmentService_RecipientPaysSkipsPayment(t *testing.T) {
	f := newShipmentFixture(t, "")
	ctx := context.Background()
	req := f.request(t, shipment.PaymentRecipient)
	dto, err := f.svc.CreateShipment(ctx, f.client, req)
	require.NoError(t, err)

	_, err = f.svc.MarkPaid(ctx, dto.ID, "MOMO-2", 0)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	picked, err := f.svc.PickUp(ctx, dto.TrackingNumber, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, "picked_up", picked.Status)
}

func TestShipmentService_Cancel(t *testing.T) {
	f := newShipmentFixture(t, "")
	ctx := context.Background()
	dto := f.create(t, shipment.PaymentMobile)

	_, err := f.svc.Cancel(ctx, dto.TrackingNumber, uuid.New(), "changed my mind")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	cancelled, err := f.svc.Cancel(ctx, dto.TrackingNumber, f.client, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Status)
	assert.Equal(t, "changed my mind", cancelled.CancelNote)

	var evt contracts.ShipmentStatusChangedEvent
	require.NoError(t, f.publisher.last().event.ParseData(&evt))
	assert.Equal(t, "cancelled", evt.Status)
	assert.Equal(t, "changed my mind", evt.Reason)

	_, err = f.svc.Cancel(ctx, dto.TrackingNumber, f.client, "again")
	assert.True(t, apperr.Is(err, apperr.KindInvalidState))
}

func TestShipmentService_ListingAndStats(t *testing.T) {
	f := newShipmentFixture(t, "")
	ctx := context.Background()
	first := f.create(t, shipment.PaymentMobile)
	f.create(t, shipment.PaymentRecipient)
	_, err := f.svc.Cancel(ctx, first.TrackingNumber, f.client, "")
	require.NoError(t, err)

	page, err := f.svc.ListForClient(ctx, f.client, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Items, 1)

	other, err := f.svc.ListForClient(ctx, uuid.New(), 1, 10)
	require.NoError(t, err)
	assert.Zero(t, other.Total)

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalShipments)
	assert.Equal(t, map[string]int64{"created": 1, "cancelled": 1}, stats.ByStatus)

	got, err := f.svc.GetByTracking(ctx, first.TrackingNumber)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestApplyRelayPoints_ManualIsKept(t *testing.T) {
	route := shipment.NewRouteData("a", "b")
	manual := shipment.ManualPointID
	out, err := applyRelayPoints(route, &manual, nil)
	require.NoError(t, err)
	assert.Equal(t, "a", out.DeparturePointName)
	assert.Equal(t, shipment.ManualPointID, *out.DeparturePointID)
}

func TestShipmentService_EventTimestampsUseClock(t *testing.T) {
	f := newShipmentFixture(t, "")
	fixed := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return fixed }
	f.create(t, shipment.PaymentMobile)

	var evt contracts.ShipmentCreatedEvent
	require.NoError(t, f.publisher.last().event.ParseData(&evt))
	assert.True(t, fixed.Equal(evt.OccurredAt))
}
