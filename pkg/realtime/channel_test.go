package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/carside/pkg/config"
	"github.com/example/carside/pkg/models"
)

// wsServer is a minimal backend double: it records received envelopes and
// can push events or drop the active connection.
type wsServer struct {
	t        *testing.T
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conn     *websocket.Conn
	received []Envelope
}

func newWSServer(t *testing.T) *wsServer {
	s := &wsServer{t: t}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()
		for {
			var env Envelope
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			s.mu.Lock()
			s.received = append(s.received, env)
			s.mu.Unlock()
		}
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *wsServer) url() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *wsServer) push(event string, data interface{}) {
	payload, err := json.Marshal(data)
	require.NoError(s.t, err)
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotNil(s.t, s.conn)
	require.NoError(s.t, s.conn.WriteJSON(Envelope{Event: event, Data: payload}))
}

func (s *wsServer) dropConn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

func (s *wsServer) receivedEvents(event string) []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Envelope
	for _, env := range s.received {
		if env.Event == event {
			out = append(out, env)
		}
	}
	return out
}

func newTestChannel(t *testing.T, url string) *Channel {
	cfg := &config.RealtimeConfig{
		URL:              url,
		HandshakeTimeout: 2 * time.Second,
		ReconnectMin:     10 * time.Millisecond,
		ReconnectMax:     50 * time.Millisecond,
	}
	ch := NewChannel(cfg, zap.NewNop())
	t.Cleanup(func() { ch.Close() })
	return ch
}

func waitConnected(t *testing.T, ch *Channel) {
	t.Helper()
	require.Eventually(t, func() bool {
		return ch.JoinOrder("probe") == nil
	}, 2*time.Second, 10*time.Millisecond, "channel never connected")
}

func TestChannel_DispatchesStatusUpdates(t *testing.T) {
	server := newWSServer(t)
	ch := newTestChannel(t, server.url())

	var mu sync.Mutex
	var got []models.StatusUpdate
	unsub := ch.OnStatusUpdate(func(u models.StatusUpdate) {
		mu.Lock()
		got = append(got, u)
		mu.Unlock()
	})

	ch.Start()
	waitConnected(t, ch)

	server.push(EventOrderStatusUpdated, models.StatusUpdate{OrderID: "ord-1", Status: models.StatusCooking})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, "ord-1", got[0].OrderID)
	assert.Equal(t, models.StatusCooking, got[0].Status)
	mu.Unlock()

	// After unsubscribing no further updates are delivered.
	unsub()
	server.push(EventOrderStatusUpdated, models.StatusUpdate{OrderID: "ord-1", Status: models.StatusReady})
	server.push(EventArrivalAck, models.ArrivalAck{OrderID: "ord-1"})
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	assert.Len(t, got, 1)
	mu.Unlock()
}

func TestChannel_EmitsJoinAndArrival(t *testing.T) {
	server := newWSServer(t)
	ch := newTestChannel(t, server.url())

	ch.Start()
	waitConnected(t, ch)

	require.NoError(t, ch.JoinOrder("ord-7"))
	require.NoError(t, ch.SignalArrival(models.ArrivalNotice{
		VendorID: "v1",
		OrderID:  "ord-7",
		Location: models.Location{Latitude: 29.37, Longitude: 47.97},
	}))

	require.Eventually(t, func() bool {
		return len(server.receivedEvents(EventIAmHere)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	joins := server.receivedEvents(EventJoinOrder)
	require.NotEmpty(t, joins)
	var orderID string
	require.NoError(t, json.Unmarshal(joins[len(joins)-1].Data, &orderID))
	assert.Equal(t, "ord-7", orderID)

	arrivals := server.receivedEvents(EventIAmHere)
	var notice models.ArrivalNotice
	require.NoError(t, json.Unmarshal(arrivals[0].Data, &notice))
	assert.Equal(t, "ord-7", notice.OrderID)
	assert.Equal(t, 29.37, notice.Location.Latitude)
}

func TestChannel_ReconnectFiresOnConnectAgain(t *testing.T) {
	server := newWSServer(t)
	ch := newTestChannel(t, server.url())

	var mu sync.Mutex
	connects := 0
	ch.OnConnect(func() {
		mu.Lock()
		connects++
		mu.Unlock()
	})

	ch.Start()
	waitConnected(t, ch)

	server.dropConn()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return connects >= 2
	}, 3*time.Second, 10*time.Millisecond, "channel did not reconnect")
}

func TestChannel_EmitWithoutConnection(t *testing.T) {
	cfg := &config.RealtimeConfig{URL: "ws://127.0.0.1:1/ws"}
	ch := NewChannel(cfg, zap.NewNop())

	err := ch.JoinOrder("ord-1")
	require.ErrorIs(t, err, ErrNotConnected)
}
