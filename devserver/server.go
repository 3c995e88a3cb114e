// Package devserver is a runnable stand-in for the production backend. It
// implements the REST and websocket contracts the client core consumes, with
// a simulated kitchen advancing each order's lifecycle, so the client can be
// exercised end to end without real infrastructure.
package devserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/example/carside/pkg/config"
	"github.com/example/carside/pkg/models"
)

type Server struct {
	config  *config.Config
	logger  *zap.Logger
	router  *gin.Engine
	store   OrderStore
	hub     *Hub
	kitchen *Kitchen
}

func NewServer(cfg *config.Config, logger *zap.Logger, store OrderStore) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))

	hub := NewHub(logger.Named("hub"))
	kitchen := NewKitchen(store, hub, cfg.DevServer.CookingTime, cfg.DevServer.ReadyTime, logger)

	return &Server{
		config:  cfg,
		logger:  logger,
		router:  router,
		store:   store,
		hub:     hub,
		kitchen: kitchen,
	}
}

func (s *Server) SetupRoutes() {
	// Health check
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Realtime channel; like the backend it mimics, the socket itself is
	// unauthenticated and rooms are keyed by order id.
	s.router.GET("/ws", s.hub.ServeWS(s.kitchen))

	api := s.router.Group("/api")
	api.Use(authRequired())
	{
		orders := api.Group("/orders")
		{
			orders.POST("", s.createOrder)
			orders.GET("/my-orders", s.myOrders)
			orders.GET("/:id", s.getOrder)
			orders.POST("/:id/rating", s.rateOrder)
		}

		api.GET("/cars", s.listCars)
		api.GET("/vendors", s.listVendors)
	}
}

// Handler exposes the router for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	addr := s.config.DevServer.Addr()
	s.logger.Info("Dev server starting", zap.String("address", addr))
	return s.router.Run(addr)
}

func (s *Server) createOrder(c *gin.Context) {
	var req models.PlaceOrderRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	vendor, ok := catalogVendors[req.VendorID]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown vendor"})
		return
	}
	if len(req.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order has no items"})
		return
	}

	var car models.Car
	for _, candidate := range catalogCars {
		if candidate.ID == req.CarID {
			car = candidate
		}
	}
	if car.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown car"})
		return
	}

	menu := catalogMenus[req.VendorID]
	total := decimal.Zero
	for _, item := range req.Items {
		entry, ok := menu[item.MenuItemID]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown menu item " + item.MenuItemID})
			return
		}
		unit := entry.Price
		if entry.DiscountPercent > 0 {
			discount := unit.Mul(decimal.NewFromFloat(entry.DiscountPercent)).Div(decimal.NewFromInt(100))
			unit = unit.Sub(discount).Round(3)
		}
		total = total.Add(unit.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	lat := vendor.Latitude
	lng := vendor.Longitude
	order := &models.Order{
		ID:              uuid.New().String(),
		Status:          models.StatusPending,
		VendorID:        vendor.ID,
		VendorName:      vendor.Name,
		VendorPhone:     vendor.Phone,
		VendorAddress:   vendor.Address,
		VendorLatitude:  &lat,
		VendorLongitude: &lng,
		CarModel:        car.Model,
		CarPlate:        car.Plate,
		CustomerNote:    req.CustomerNote,
		TotalPrice:      total,
		CreatedAt:       time.Now(),
	}

	if err := s.store.Put(c.Request.Context(), order); err != nil {
		s.logger.Error("Failed to store order", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create order"})
		return
	}

	s.kitchen.StartOrder(order.ID)

	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("vendor_id", order.VendorID),
		zap.String("total", total.StringFixed(3)))

	c.JSON(http.StatusCreated, gin.H{"id": order.ID})
}

func (s *Server) getOrder(c *gin.Context) {
	order, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, ErrOrderNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load order"})
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) myOrders(c *gin.Context) {
	orders, err := s.store.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list orders"})
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (s *Server) rateOrder(c *gin.Context) {
	var req struct {
		Rating int `json:"rating"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rating must be 1-5"})
		return
	}

	id := c.Param("id")
	order, err := s.store.Get(c.Request.Context(), id)
	if errors.Is(err, ErrOrderNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load order"})
		return
	}
	if order.Status != models.StatusCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "only completed orders can be rated"})
		return
	}

	if err := s.store.SetRating(c.Request.Context(), id, req.Rating); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save rating"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) listCars(c *gin.Context) {
	c.JSON(http.StatusOK, catalogCars)
}

func (s *Server) listVendors(c *gin.Context) {
	c.JSON(http.StatusOK, Vendors())
}

func authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") || len(header) == len("Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		// The stub accepts any non-empty token.
		c.Next()
	}
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
