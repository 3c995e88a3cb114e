// Package realtime maintains the persistent event connection to the
// backend. Events travel as a JSON {event,data} envelope. The channel owns
// reconnection; subscriptions do not survive a transport reconnect, so
// consumers re-issue their room joins from an OnConnect hook.
package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/example/carside/pkg/config"
	"github.com/example/carside/pkg/models"
)

const (
	EventJoinOrder          = "join_order"
	EventOrderStatusUpdated = "order_status_updated"
	EventIAmHere            = "i_am_here"
	EventArrivalAck         = "arrival_ack"
)

var ErrNotConnected = errors.New("realtime: not connected")

// Envelope is the wire frame for every channel event.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type Channel struct {
	url              string
	handshakeTimeout time.Duration
	minBackoff       time.Duration
	maxBackoff       time.Duration
	logger           *zap.Logger

	// writeMu also guards conn; gorilla allows one concurrent writer.
	writeMu sync.Mutex
	conn    *websocket.Conn

	mu              sync.Mutex
	nextID          int
	statusHandlers  map[int]func(models.StatusUpdate)
	ackHandlers     map[int]func(models.ArrivalAck)
	connectHandlers map[int]func()

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewChannel(cfg *config.RealtimeConfig, logger *zap.Logger) *Channel {
	min := cfg.ReconnectMin
	if min <= 0 {
		min = time.Second
	}
	max := cfg.ReconnectMax
	if max < min {
		max = 30 * time.Second
	}
	return &Channel{
		url:              cfg.URL,
		handshakeTimeout: cfg.HandshakeTimeout,
		minBackoff:       min,
		maxBackoff:       max,
		logger:           logger,
		statusHandlers:   make(map[int]func(models.StatusUpdate)),
		ackHandlers:      make(map[int]func(models.ArrivalAck)),
		connectHandlers:  make(map[int]func()),
		done:             make(chan struct{}),
	}
}

// Start begins connecting in the background and keeps the connection alive
// until Close.
func (c *Channel) Start() {
	c.wg.Add(1)
	go c.run()
}

// Close tears the connection down and stops reconnecting.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		if c.conn != nil {
			c.conn.Close()
		}
		c.writeMu.Unlock()
	})
	c.wg.Wait()
	return nil
}

// JoinOrder subscribes this connection to an order's room. The caller must
// re-join after every reconnect.
func (c *Channel) JoinOrder(orderID string) error {
	return c.emit(EventJoinOrder, orderID)
}

// SignalArrival tells the vendor the customer's car is waiting outside.
func (c *Channel) SignalArrival(notice models.ArrivalNotice) error {
	return c.emit(EventIAmHere, notice)
}

// OnStatusUpdate registers a handler for order status pushes. The handler
// sees every update on the shared channel regardless of room; callers
// filter by order id. The returned func unsubscribes.
func (c *Channel) OnStatusUpdate(fn func(models.StatusUpdate)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.statusHandlers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.statusHandlers, id)
	}
}

// OnArrivalAck registers a handler for arrival acknowledgements.
func (c *Channel) OnArrivalAck(fn func(models.ArrivalAck)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.ackHandlers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.ackHandlers, id)
	}
}

// OnConnect registers a hook fired after every successful (re)connect,
// before any events from that connection are dispatched.
func (c *Channel) OnConnect(fn func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.connectHandlers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.connectHandlers, id)
	}
}

func (c *Channel) emit(event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	return c.conn.WriteJSON(Envelope{Event: event, Data: payload})
}

func (c *Channel) run() {
	defer c.wg.Done()

	backoff := c.minBackoff
	for {
		select {
		case <-c.done:
			return
		default:
		}

		dialer := websocket.Dialer{HandshakeTimeout: c.handshakeTimeout}
		conn, _, err := dialer.Dial(c.url, nil)
		if err != nil {
			c.logger.Warn("Realtime dial failed",
				zap.String("url", c.url),
				zap.Duration("retry_in", backoff),
				zap.Error(err))
			select {
			case <-c.done:
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > c.maxBackoff {
				backoff = c.maxBackoff
			}
			continue
		}
		backoff = c.minBackoff

		// Close may have raced the dial; never adopt a connection after
		// shutdown started.
		c.writeMu.Lock()
		select {
		case <-c.done:
			c.writeMu.Unlock()
			conn.Close()
			return
		default:
		}
		c.conn = conn
		c.writeMu.Unlock()

		c.logger.Info("Realtime connected", zap.String("url", c.url))
		c.fireConnect()
		c.readPump(conn)

		c.writeMu.Lock()
		c.conn = nil
		c.writeMu.Unlock()
		conn.Close()

		select {
		case <-c.done:
			return
		default:
			c.logger.Warn("Realtime connection lost, reconnecting")
		}
	}
}

func (c *Channel) readPump(conn *websocket.Conn) {
	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		c.dispatch(env)
	}
}

func (c *Channel) dispatch(env Envelope) {
	switch env.Event {
	case EventOrderStatusUpdated:
		var update models.StatusUpdate
		if err := json.Unmarshal(env.Data, &update); err != nil {
			c.logger.Warn("Bad status update payload", zap.Error(err))
			return
		}
		for _, fn := range c.snapshotStatusHandlers() {
			fn(update)
		}
	case EventArrivalAck:
		var ack models.ArrivalAck
		if err := json.Unmarshal(env.Data, &ack); err != nil {
			c.logger.Warn("Bad arrival ack payload", zap.Error(err))
			return
		}
		for _, fn := range c.snapshotAckHandlers() {
			fn(ack)
		}
	default:
		c.logger.Debug("Ignoring event", zap.String("event", env.Event))
	}
}

func (c *Channel) fireConnect() {
	c.mu.Lock()
	hooks := make([]func(), 0, len(c.connectHandlers))
	for _, fn := range c.connectHandlers {
		hooks = append(hooks, fn)
	}
	c.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

func (c *Channel) snapshotStatusHandlers() []func(models.StatusUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]func(models.StatusUpdate), 0, len(c.statusHandlers))
	for _, fn := range c.statusHandlers {
		out = append(out, fn)
	}
	return out
}

func (c *Channel) snapshotAckHandlers() []func(models.ArrivalAck) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]func(models.ArrivalAck), 0, len(c.ackHandlers))
	for _, fn := range c.ackHandlers {
		out = append(out, fn)
	}
	return out
}
