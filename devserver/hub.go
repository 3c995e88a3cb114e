package devserver

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/example/carside/pkg/models"
	"github.com/example/carside/pkg/realtime"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) send(event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(realtime.Envelope{Event: event, Data: payload})
}

// Hub tracks room membership: which connections are watching which order.
type Hub struct {
	logger *zap.Logger

	mu    sync.Mutex
	rooms map[string]map[*wsClient]struct{}
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger: logger,
		rooms:  make(map[string]map[*wsClient]struct{}),
	}
}

func (h *Hub) join(orderID string, cl *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[orderID] == nil {
		h.rooms[orderID] = make(map[*wsClient]struct{})
	}
	h.rooms[orderID][cl] = struct{}{}
}

func (h *Hub) leave(cl *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for orderID, members := range h.rooms {
		delete(members, cl)
		if len(members) == 0 {
			delete(h.rooms, orderID)
		}
	}
}

func (h *Hub) members(orderID string) []*wsClient {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*wsClient, 0, len(h.rooms[orderID]))
	for cl := range h.rooms[orderID] {
		out = append(out, cl)
	}
	return out
}

// BroadcastStatus pushes an order_status_updated event to the order's room.
func (h *Hub) BroadcastStatus(orderID string, status models.OrderStatus) {
	update := models.StatusUpdate{OrderID: orderID, Status: status}
	for _, cl := range h.members(orderID) {
		if err := cl.send(realtime.EventOrderStatusUpdated, update); err != nil {
			h.logger.Warn("Status push failed", zap.String("order_id", orderID), zap.Error(err))
		}
	}
}

// BroadcastArrivalAck tells the order's room that staff saw the arrival.
func (h *Hub) BroadcastArrivalAck(orderID string) {
	ack := models.ArrivalAck{OrderID: orderID}
	for _, cl := range h.members(orderID) {
		if err := cl.send(realtime.EventArrivalAck, ack); err != nil {
			h.logger.Warn("Arrival ack push failed", zap.String("order_id", orderID), zap.Error(err))
		}
	}
}

// ServeWS upgrades the connection and handles join_order and i_am_here
// until the client goes away.
func (h *Hub) ServeWS(kitchen *Kitchen) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logger.Error("Websocket upgrade failed", zap.Error(err))
			return
		}
		cl := &wsClient{conn: conn}
		h.logger.Info("Websocket client connected", zap.String("remote", conn.RemoteAddr().String()))

		defer func() {
			h.leave(cl)
			conn.Close()
		}()

		for {
			var env realtime.Envelope
			if err := conn.ReadJSON(&env); err != nil {
				h.logger.Info("Websocket client disconnected", zap.Error(err))
				return
			}

			switch env.Event {
			case realtime.EventJoinOrder:
				var orderID string
				if err := json.Unmarshal(env.Data, &orderID); err != nil {
					h.logger.Warn("Bad join_order payload", zap.Error(err))
					continue
				}
				h.join(orderID, cl)
				h.logger.Info("Joined order room", zap.String("order_id", orderID))

			case realtime.EventIAmHere:
				var notice models.ArrivalNotice
				if err := json.Unmarshal(env.Data, &notice); err != nil {
					h.logger.Warn("Bad i_am_here payload", zap.Error(err))
					continue
				}
				h.logger.Info("Customer arrived",
					zap.String("order_id", notice.OrderID),
					zap.String("vendor_id", notice.VendorID),
					zap.Float64("latitude", notice.Location.Latitude),
					zap.Float64("longitude", notice.Location.Longitude),
					zap.Time("timestamp", notice.Timestamp))
				kitchen.CustomerArrived(notice.OrderID)
				h.BroadcastArrivalAck(notice.OrderID)

			default:
				h.logger.Debug("Ignoring event", zap.String("event", env.Event))
			}
		}
	}
}
