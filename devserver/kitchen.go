package devserver

import (
	"context"
	"sync"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"

	"github.com/example/carside/pkg/models"
)

// handoverTime is how long the simulated staff take to walk the order out
// after the customer signals arrival.
const handoverTime = 5 * time.Second

type advanceStatus struct {
	status models.OrderStatus
}

type customerArrived struct{}

// orderActor drives one order through the simulated kitchen:
// PENDING -> COOKING -> READY, then COMPLETED once the customer has
// arrived. Every transition is persisted and pushed to the order's room.
type orderActor struct {
	logger      *zap.Logger
	store       OrderStore
	hub         *Hub
	orderID     string
	cookingTime time.Duration
	readyTime   time.Duration

	ready   bool
	arrived bool
}

func (a *orderActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		a.logger.Info("Kitchen picked up order", zap.String("order_id", a.orderID))
		a.scheduleAdvance(ctx, a.cookingTime, models.StatusCooking)

	case *advanceStatus:
		a.apply(ctx, msg.status)
		switch msg.status {
		case models.StatusCooking:
			a.scheduleAdvance(ctx, a.readyTime, models.StatusReady)
		case models.StatusReady:
			a.ready = true
			if a.arrived {
				a.scheduleAdvance(ctx, handoverTime, models.StatusCompleted)
			}
		case models.StatusCompleted:
			ctx.Stop(ctx.Self())
		}

	case *customerArrived:
		if a.arrived {
			return
		}
		a.arrived = true
		if a.ready {
			a.scheduleAdvance(ctx, handoverTime, models.StatusCompleted)
		}

	case *actor.Stopped:
		a.logger.Debug("Kitchen done with order", zap.String("order_id", a.orderID))
	}
}

func (a *orderActor) scheduleAdvance(ctx actor.Context, after time.Duration, status models.OrderStatus) {
	system := ctx.ActorSystem()
	self := ctx.Self()
	time.AfterFunc(after, func() {
		system.Root.Send(self, &advanceStatus{status: status})
	})
}

func (a *orderActor) apply(ctx actor.Context, status models.OrderStatus) {
	storeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := a.store.SetStatus(storeCtx, a.orderID, status); err != nil {
		a.logger.Error("Failed to persist status",
			zap.String("order_id", a.orderID),
			zap.String("status", string(status)),
			zap.Error(err))
		return
	}

	a.logger.Info("Order status changed",
		zap.String("order_id", a.orderID),
		zap.String("status", string(status)))
	a.hub.BroadcastStatus(a.orderID, status)
}

// Kitchen owns the actor system and one actor per in-flight order.
type Kitchen struct {
	system      *actor.ActorSystem
	store       OrderStore
	hub         *Hub
	logger      *zap.Logger
	cookingTime time.Duration
	readyTime   time.Duration

	mu   sync.Mutex
	pids map[string]*actor.PID
}

func NewKitchen(store OrderStore, hub *Hub, cookingTime, readyTime time.Duration, logger *zap.Logger) *Kitchen {
	return &Kitchen{
		system:      actor.NewActorSystem(),
		store:       store,
		hub:         hub,
		logger:      logger,
		cookingTime: cookingTime,
		readyTime:   readyTime,
		pids:        make(map[string]*actor.PID),
	}
}

// StartOrder spawns the kitchen actor for a freshly placed order.
func (k *Kitchen) StartOrder(orderID string) {
	props := actor.PropsFromProducer(func() actor.Actor {
		return &orderActor{
			logger:      k.logger.Named("kitchen"),
			store:       k.store,
			hub:         k.hub,
			orderID:     orderID,
			cookingTime: k.cookingTime,
			readyTime:   k.readyTime,
		}
	})

	pid := k.system.Root.Spawn(props)
	k.mu.Lock()
	k.pids[orderID] = pid
	k.mu.Unlock()
}

// CustomerArrived forwards the arrival to the order's actor, if any.
func (k *Kitchen) CustomerArrived(orderID string) {
	k.mu.Lock()
	pid := k.pids[orderID]
	k.mu.Unlock()
	if pid == nil {
		k.logger.Warn("Arrival for unknown order", zap.String("order_id", orderID))
		return
	}
	k.system.Root.Send(pid, &customerArrived{})
}
