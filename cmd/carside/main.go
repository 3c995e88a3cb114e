// Command carside is a terminal walkthrough of the client core: it builds a
// cart against the dev catalog, places the order, tracks it to completion
// and signals arrival when the food is ready. Run cmd/devserver first.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/example/carside/devserver"
	"github.com/example/carside/pkg/api"
	"github.com/example/carside/pkg/cart"
	"github.com/example/carside/pkg/config"
	"github.com/example/carside/pkg/location"
	"github.com/example/carside/pkg/models"
	"github.com/example/carside/pkg/realtime"
	"github.com/example/carside/pkg/session"
	"github.com/example/carside/pkg/tracking"
)

func main() {
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	sess := session.NewStore()
	sess.SetSession("demo-token", &models.User{ID: "u1", Name: "Demo Driver", Phone: "+965-555-0100"})

	client := api.NewClient(&cfg.API, sess, logger.Named("api"))
	channel := realtime.NewChannel(&cfg.Realtime, logger.Named("realtime"))
	channel.Start()
	defer channel.Close()

	ctx := context.Background()

	// Build a cart from the dev catalog, including a cross-vendor add that
	// the user declines.
	store := cart.NewStore()
	vendor := findVendor("v1")
	other := findVendor("v2")
	menu := devserver.Menu(vendor.ID)
	otherMenu := devserver.Menu(other.ID)

	for i := 0; i < 2; i++ {
		store.AddItem(menu[0], vendor)
	}
	store.AddItem(menu[1], vendor)

	if conflict := store.AddItem(otherMenu[0], other); conflict != nil {
		logger.Info("Vendor conflict, keeping current cart",
			zap.String("current_vendor", conflict.CurrentVendor.Name),
			zap.String("new_vendor", conflict.NewVendor.Name))
		conflict.Resolve(cart.KeepCurrent)
	}

	totals := store.Totals()
	logger.Info("Cart ready",
		zap.String("vendor", vendor.Name),
		zap.Int("items", totals.TotalItems),
		zap.String("total", totals.TotalPrice.StringFixed(3)))

	cars, err := client.MyCars(ctx)
	if err != nil || len(cars) == 0 {
		logger.Fatal("Failed to load cars", zap.Error(err))
	}

	orderID, err := client.PlaceOrder(ctx, models.PlaceOrderRequest{
		VendorID:      vendor.ID,
		CarID:         cars[0].ID,
		PaymentMethod: "CASH",
		Items:         store.OrderItems(),
		CustomerNote:  "Blue sedan by the entrance",
		PickupTime:    time.Now(),
	})
	if err != nil {
		// The cart is left intact so the user can retry.
		logger.Fatal("Order failed", zap.Error(err))
	}
	store.Clear()

	geo := location.Static{Position: models.Location{Latitude: 29.3375, Longitude: 48.0758}}
	ctrl := tracking.NewController(client, channel, geo, &cfg.Tracking, logger.Named("tracking"))
	if err := ctrl.Activate(orderID); err != nil {
		logger.Fatal("Failed to activate tracking", zap.Error(err))
	}
	defer ctrl.Deactivate()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	lastSeen := models.OrderStatus("")
	ackSeen := false
	for {
		select {
		case <-sigCh:
			logger.Info("Interrupted, stopping tracking")
			return
		case <-ticker.C:
		}

		status := ctrl.Status()
		if status != lastSeen {
			lastSeen = status
			logger.Info("Order status", zap.String("order_id", orderID), zap.String("status", string(status)))
		}

		if status == models.StatusReady && !ctrl.ArrivalSignaled() {
			err := ctrl.SignalArrival(ctx)
			var cooldownErr *tracking.CooldownError
			switch {
			case errors.As(err, &cooldownErr):
				logger.Info("Arrival signal on cooldown", zap.Int("retry_in_s", cooldownErr.RemainingSeconds))
			case err != nil:
				logger.Warn("Arrival signal failed", zap.Error(err))
			default:
				logger.Info("Arrival signaled, waiting for staff")
			}
		}

		if ctrl.ArrivalAcknowledged() && !ackSeen {
			ackSeen = true
			logger.Info("Staff acknowledged arrival")
		}

		if status.Terminal() {
			logger.Info("Order finished", zap.String("status", string(status)))
			if status == models.StatusCompleted {
				if err := client.RateOrder(ctx, orderID, 5); err != nil {
					logger.Warn("Rating failed", zap.Error(err))
				}
			}
			return
		}
	}
}

func findVendor(id string) models.Vendor {
	for _, v := range devserver.Vendors() {
		if v.ID == id {
			return v
		}
	}
	panic("vendor not in dev catalog: " + id)
}
