// Package tracking produces one authoritative view of a single order's
// status by merging two independent update sources: a polling loop and the
// realtime push channel. Both sources funnel through one reducer, so the
// most recently received report always wins, whatever the state-machine
// ordering would suggest. The server is ground truth; the client never
// second-guesses it.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/carside/pkg/config"
	"github.com/example/carside/pkg/location"
	"github.com/example/carside/pkg/models"
)

var ErrNotActive = errors.New("tracking: controller not active")

// CooldownError is the expected rejection when the arrival signal is
// re-sent too soon. It is not an application error; RemainingSeconds is
// meant for display.
type CooldownError struct {
	RemainingSeconds int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("arrival signal on cooldown: retry in %ds", e.RemainingSeconds)
}

// OrderFetcher is the polling boundary; *api.Client satisfies it.
type OrderFetcher interface {
	FetchOrder(ctx context.Context, orderID string) (*models.Order, error)
}

// PushChannel is the slice of the realtime channel the controller needs.
type PushChannel interface {
	JoinOrder(orderID string) error
	SignalArrival(notice models.ArrivalNotice) error
	OnStatusUpdate(fn func(models.StatusUpdate)) func()
	OnArrivalAck(fn func(models.ArrivalAck)) func()
	OnConnect(fn func()) func()
}

// update is a single entry into the reducer, from either source.
type update struct {
	order  *models.Order       // full record from a poll
	status *models.OrderStatus // bare status from a push
	source string
}

type Controller struct {
	fetcher      OrderFetcher
	channel      PushChannel
	geo          location.Geolocator
	clock        Clock
	logger       *zap.Logger
	pollInterval time.Duration
	cooldown     time.Duration

	mu            sync.Mutex
	active        bool
	orderID       string
	current       *models.Order
	lastArrivalAt time.Time
	arrivalAcked  bool

	// per-activation resources, torn down by Deactivate
	stop    chan struct{}
	cancel  context.CancelFunc
	wg      *sync.WaitGroup
	unsubs  []func()
	updates chan update
}

func NewController(fetcher OrderFetcher, channel PushChannel, geo location.Geolocator, cfg *config.TrackingConfig, logger *zap.Logger) *Controller {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	cooldown := cfg.ArrivalCooldown
	if cooldown <= 0 {
		cooldown = 3 * time.Minute
	}
	return &Controller{
		fetcher:      fetcher,
		channel:      channel,
		geo:          geo,
		clock:        systemClock{},
		logger:       logger,
		pollInterval: pollInterval,
		cooldown:     cooldown,
	}
}

// Activate scopes the controller to orderID, polls immediately and then on
// the fixed interval, and subscribes to the push channel. The room join is
// re-issued after every reconnect; joins do not survive a transport
// reconnect.
func (c *Controller) Activate(orderID string) error {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return errors.New("tracking: already active; deactivate first")
	}
	c.active = true
	c.orderID = orderID
	c.current = nil
	c.lastArrivalAt = time.Time{}
	c.arrivalAcked = false

	stop := make(chan struct{})
	updates := make(chan update, 16)
	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	c.stop = stop
	c.cancel = cancel
	c.wg = wg
	c.updates = updates
	c.mu.Unlock()

	join := func() {
		if err := c.channel.JoinOrder(orderID); err != nil {
			// Not connected yet; the OnConnect hook will join once we are.
			c.logger.Debug("Join deferred", zap.String("order_id", orderID), zap.Error(err))
		}
	}

	unsubConnect := c.channel.OnConnect(join)
	unsubStatus := c.channel.OnStatusUpdate(func(u models.StatusUpdate) {
		// The channel is shared; only this controller's order matters.
		if u.OrderID != orderID {
			return
		}
		status := u.Status
		select {
		case updates <- update{status: &status, source: "push"}:
		case <-stop:
		}
	})
	unsubAck := c.channel.OnArrivalAck(func(ack models.ArrivalAck) {
		if ack.OrderID != orderID {
			return
		}
		c.mu.Lock()
		if c.active && c.orderID == orderID {
			c.arrivalAcked = true
		}
		c.mu.Unlock()
	})

	c.mu.Lock()
	c.unsubs = []func(){unsubConnect, unsubStatus, unsubAck}
	c.mu.Unlock()

	join()

	wg.Add(2)
	go c.pollLoop(ctx, stop, updates, orderID, wg)
	go c.reduceLoop(stop, updates, wg)

	c.logger.Info("Tracking activated", zap.String("order_id", orderID))
	return nil
}

// Deactivate removes the push listeners, stops the polling loop and waits
// for both to finish. After it returns, no event for the old order can
// reach this controller's state; a fresh Activate is safe immediately.
func (c *Controller) Deactivate() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.active = false
	unsubs := c.unsubs
	c.unsubs = nil
	stop := c.stop
	cancel := c.cancel
	wg := c.wg
	orderID := c.orderID
	c.mu.Unlock()

	// Listeners first, so no push event can enqueue after stop is closed.
	for _, unsub := range unsubs {
		unsub()
	}
	close(stop)
	cancel()
	wg.Wait()

	c.logger.Info("Tracking deactivated", zap.String("order_id", orderID))
}

// Current returns a copy of the last received order record, or nil before
// the first successful poll.
func (c *Controller) Current() *models.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	order := *c.current
	return &order
}

// Status is a convenience for the timeline view. Before any report has
// arrived it returns StatusPending, matching what the user just did.
func (c *Controller) Status() models.OrderStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return models.StatusPending
	}
	return c.current.Status
}

// ArrivalSignaled reports whether an arrival signal was sent within the
// cooldown window; the flag expires on its own as the window passes.
func (c *Controller) ArrivalSignaled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastArrivalAt.IsZero() {
		return false
	}
	return c.clock.Now().Sub(c.lastArrivalAt) < c.cooldown
}

// ArrivalAcknowledged reports whether the restaurant has acknowledged an
// arrival signal for the active order.
func (c *Controller) ArrivalAcknowledged() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.arrivalAcked
}

// SignalArrival tells the restaurant the car is waiting outside. The call
// is gated by the cooldown; a too-soon retry gets a CooldownError with the
// whole seconds left to wait. Location failures abort without consuming
// the cooldown. Once the cooldown has passed, each call produces a fresh
// signal; the user may need to re-notify staff.
func (c *Controller) SignalArrival(ctx context.Context) error {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return ErrNotActive
	}
	now := c.clock.Now()
	if !c.lastArrivalAt.IsZero() {
		elapsed := now.Sub(c.lastArrivalAt)
		if elapsed < c.cooldown {
			remaining := int(math.Ceil((c.cooldown - elapsed).Seconds()))
			c.mu.Unlock()
			return &CooldownError{RemainingSeconds: remaining}
		}
	}
	orderID := c.orderID
	vendorID := ""
	if c.current != nil {
		vendorID = c.current.VendorID
	}
	c.mu.Unlock()

	loc, err := c.geo.Current(ctx)
	if err != nil {
		return fmt.Errorf("acquire location: %w", err)
	}

	notice := models.ArrivalNotice{
		VendorID:  vendorID,
		OrderID:   orderID,
		Location:  loc,
		Timestamp: c.clock.Now(),
	}
	if err := c.channel.SignalArrival(notice); err != nil {
		return fmt.Errorf("send arrival signal: %w", err)
	}

	c.mu.Lock()
	c.lastArrivalAt = c.clock.Now()
	c.mu.Unlock()

	c.logger.Info("Arrival signaled", zap.String("order_id", orderID))
	return nil
}

func (c *Controller) pollLoop(ctx context.Context, stop chan struct{}, updates chan<- update, orderID string, wg *sync.WaitGroup) {
	defer wg.Done()

	poll := func() {
		order, err := c.fetcher.FetchOrder(ctx, orderID)
		if err != nil {
			// Last-known-good stays; polling continues until Deactivate.
			c.logger.Warn("Order poll failed", zap.String("order_id", orderID), zap.Error(err))
			return
		}
		select {
		case updates <- update{order: order, source: "poll"}:
		case <-stop:
		}
	}

	poll()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			poll()
		}
	}
}

func (c *Controller) reduceLoop(stop chan struct{}, updates <-chan update, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case <-stop:
			return
		case u := <-updates:
			c.apply(u)
		}
	}
}

// apply is the single entry point both sources funnel through; whichever
// report got here last wins.
func (c *Controller) apply(u update) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case u.order != nil:
		order := *u.order
		c.current = &order
	case u.status != nil:
		if c.current == nil {
			c.current = &models.Order{ID: c.orderID}
		}
		c.current.Status = *u.status
	}

	if c.current != nil {
		c.logger.Debug("Order status applied",
			zap.String("order_id", c.orderID),
			zap.String("status", string(c.current.Status)),
			zap.String("source", u.source))
	}
}
