package devserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/carside/pkg/api"
	"github.com/example/carside/pkg/config"
	"github.com/example/carside/pkg/models"
	"github.com/example/carside/pkg/realtime"
	"github.com/example/carside/pkg/session"
)

func newTestBackend(t *testing.T) (*httptest.Server, *api.Client) {
	return newTestBackendWithTimes(t, 30*time.Millisecond, 30*time.Millisecond)
}

func newTestBackendWithTimes(t *testing.T, cooking, ready time.Duration) (*httptest.Server, *api.Client) {
	t.Helper()

	cfg := &config.Config{
		DevServer: config.DevServerConfig{
			CookingTime: cooking,
			ReadyTime:   ready,
		},
	}
	srv := NewServer(cfg, zap.NewNop(), NewMemoryStore())
	srv.SetupRoutes()

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	apiCfg := &config.APIConfig{BaseURL: ts.URL + "/api", Timeout: 5 * time.Second}
	client := api.NewClient(apiCfg, session.StaticToken("dev-token"), zap.NewNop())
	return ts, client
}

func placeTestOrder(t *testing.T, client *api.Client) string {
	t.Helper()
	id, err := client.PlaceOrder(context.Background(), models.PlaceOrderRequest{
		VendorID:      "v1",
		CarID:         "car-1",
		PaymentMethod: "CASH",
		Items: []models.PlaceOrderItem{
			{MenuItemID: "m1", Quantity: 2},
			{MenuItemID: "m3", Quantity: 1},
		},
		PickupTime: time.Now(),
	})
	require.NoError(t, err)
	return id
}

func TestPlaceAndFetchOrder(t *testing.T) {
	_, client := newTestBackend(t)
	id := placeTestOrder(t, client)

	order, err := client.FetchOrder(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, order.ID)
	assert.Equal(t, "v1", order.VendorID)
	assert.Equal(t, "Toyota Camry", order.CarModel)
	// 2 x 2.500 + 1 x 3.000 (3.750 at 20% off)
	assert.True(t, order.TotalPrice.Equal(decimal.RequireFromString("8.000")),
		"total = %s", order.TotalPrice)

	// The simulated kitchen advances the order on its own.
	require.Eventually(t, func() bool {
		order, err := client.FetchOrder(context.Background(), id)
		return err == nil && order.Status == models.StatusReady
	}, 3*time.Second, 20*time.Millisecond)
}

func TestOrderHistoryNewestFirst(t *testing.T) {
	_, client := newTestBackend(t)
	first := placeTestOrder(t, client)
	second := placeTestOrder(t, client)

	orders, err := client.MyOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second, orders[0].ID)
	assert.Equal(t, first, orders[1].ID)
}

func TestStatusPushAndArrivalAck(t *testing.T) {
	// Slow kitchen: the channel must be joined well before the first push.
	ts, client := newTestBackendWithTimes(t, 500*time.Millisecond, 200*time.Millisecond)

	rtCfg := &config.RealtimeConfig{
		URL:          "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws",
		ReconnectMin: 10 * time.Millisecond,
		ReconnectMax: 50 * time.Millisecond,
	}
	channel := realtime.NewChannel(rtCfg, zap.NewNop())

	// Only one order exists in this backend, so no id filtering is needed.
	var mu sync.Mutex
	var statuses []models.OrderStatus
	acked := false
	channel.OnStatusUpdate(func(u models.StatusUpdate) {
		mu.Lock()
		statuses = append(statuses, u.Status)
		mu.Unlock()
	})
	channel.OnArrivalAck(func(ack models.ArrivalAck) {
		mu.Lock()
		acked = true
		mu.Unlock()
	})

	channel.Start()
	defer channel.Close()

	require.Eventually(t, func() bool {
		return channel.JoinOrder("warmup") == nil
	}, 2*time.Second, 10*time.Millisecond, "channel never connected")

	id := placeTestOrder(t, client)
	require.NoError(t, channel.JoinOrder(id))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, s := range statuses {
			if s == models.StatusReady {
				return true
			}
		}
		return false
	}, 3*time.Second, 20*time.Millisecond, "never saw READY push")

	require.NoError(t, channel.SignalArrival(models.ArrivalNotice{
		VendorID:  "v1",
		OrderID:   id,
		Location:  models.Location{Latitude: 29.33, Longitude: 48.07},
		Timestamp: time.Now(),
	}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return acked
	}, 3*time.Second, 20*time.Millisecond, "never saw arrival ack")
}

func TestRateOrder_OnlyWhenCompleted(t *testing.T) {
	_, client := newTestBackend(t)
	id := placeTestOrder(t, client)

	err := client.RateOrder(context.Background(), id, 5)
	require.Error(t, err)

	var statusErr *api.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusConflict, statusErr.Code)
}

func TestFetchOrder_NotFound(t *testing.T) {
	_, client := newTestBackend(t)

	_, err := client.FetchOrder(context.Background(), "missing")
	var statusErr *api.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
}

func TestAPIRequiresBearerToken(t *testing.T) {
	ts, _ := newTestBackend(t)

	resp, err := http.Get(ts.URL + "/api/cars")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
