package feed

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tradematch/service"
)

// PrivateHub delivers order lifecycle events (acks, rejects, fills,
// cancels) to the sessions of the user they belong to.
type PrivateHub struct {
	log *zap.Logger

	mu       sync.Mutex
	sessions map[string]map[*websocket.Conn]*client
}

func NewPrivateHub(log *zap.Logger) *PrivateHub {
	return &PrivateHub{
		log:      log.Named("private-feed"),
		sessions: make(map[string]map[*websocket.Conn]*client),
	}
}

func (h *PrivateHub) Register(conn *websocket.Conn, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.sessions[userID]
	if !ok {
		set = make(map[*websocket.Conn]*client)
		h.sessions[userID] = set
	}
	set[conn] = newClient(conn)
}

func (h *PrivateHub) Unregister(conn *websocket.Conn, userID string) {
	h.mu.Lock()
	var c *client
	if set, ok := h.sessions[userID]; ok {
		if c = set[conn]; c != nil {
			delete(set, conn)
		}
		if len(set) == 0 {
			delete(h.sessions, userID)
		}
	}
	h.mu.Unlock()
	if c != nil {
		c.stop()
	}
}

// SendAck confirms order acceptance, echoing the client's own order id
// when one was supplied.
func (h *PrivateHub) SendAck(userID string, orderID uint64, clientOrderID string) {
	payload := map[string]any{
		"type":      "ACK",
		"orderId":   orderID,
		"timestamp": timestamp(),
	}
	if clientOrderID != "" {
		payload["clientOrderId"] = clientOrderID
	}
	h.send(userID, payload)
}

func (h *PrivateHub) SendReject(userID string, orderID uint64, clientOrderID, reason string) {
	payload := map[string]any{
		"type":      "REJECT",
		"orderId":   orderID,
		"reason":    reason,
		"timestamp": timestamp(),
	}
	if clientOrderID != "" {
		payload["clientOrderId"] = clientOrderID
	}
	h.send(userID, payload)
}

func (h *PrivateHub) SendFill(f service.Fill) {
	h.send(f.User, map[string]any{
		"type":      "FILL",
		"fillId":    f.FillID,
		"orderId":   f.OrderID,
		"ticker":    f.Instrument,
		"side":      f.Side.String(),
		"price":     f.Price,
		"quantity":  f.Quantity,
		"timestamp": f.Timestamp.Format(time.RFC3339Nano),
	})
}

func (h *PrivateHub) SendCanceled(userID string, orderID uint64) {
	h.send(userID, map[string]any{
		"type":      "CANCELED",
		"orderId":   orderID,
		"timestamp": timestamp(),
	})
}

func (h *PrivateHub) send(userID string, payload map[string]any) {
	msg, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("private event encode failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.sessions[userID]
	if !ok {
		return
	}
	for conn, c := range set {
		if !c.trySend(msg) {
			delete(set, conn)
			c.stop()
			h.log.Warn("dropped slow private feed client", zap.String("user", userID))
		}
	}
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
