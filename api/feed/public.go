package feed

import (
	"encoding/json"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tradematch/service"
)

// PublicHub broadcasts market data to every connected client. New
// clients get a full snapshot; subsequent book updates go out as level
// deltas against the previously broadcast state.
type PublicHub struct {
	log *zap.Logger

	mu       sync.Mutex
	clients  map[*websocket.Conn]*client
	lastBids map[string]int64 // display price -> quantity
	lastAsks map[string]int64
	seeded   bool
}

func NewPublicHub(log *zap.Logger) *PublicHub {
	return &PublicHub{
		log:      log.Named("public-feed"),
		clients:  make(map[*websocket.Conn]*client),
		lastBids: make(map[string]int64),
		lastAsks: make(map[string]int64),
	}
}

type snapshotMsg struct {
	Type   string               `json:"type"`
	Ticker string               `json:"ticker"`
	Bids   []service.PriceLevel `json:"bids"`
	Asks   []service.PriceLevel `json:"asks"`
}

type updateMsg struct {
	Type    string     `json:"type"`
	Ticker  string     `json:"ticker"`
	Changes [][]string `json:"changes"` // [side, price, quantity]
}

type tradesMsg struct {
	Type   string              `json:"type"`
	Ticker string              `json:"ticker"`
	Data   []service.TradeView `json:"data"`
}

// Register adds a connection and sends it the current snapshot.
func (h *PublicHub) Register(conn *websocket.Conn, view service.BookView) {
	msg, err := json.Marshal(snapshotMsg{Type: "SNAPSHOT", Ticker: view.Instrument, Bids: view.Bids, Asks: view.Asks})
	if err != nil {
		h.log.Error("snapshot encode failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	c := newClient(conn)
	h.clients[conn] = c
	h.mu.Unlock()

	c.trySend(msg)
}

func (h *PublicHub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	c, ok := h.clients[conn]
	if ok {
		delete(h.clients, conn)
	}
	h.mu.Unlock()
	if ok {
		c.stop()
	}
}

// BroadcastBook diffs the new depth against the last broadcast state
// and pushes either a full snapshot (first update) or the changed
// levels.
func (h *PublicHub) BroadcastBook(view service.BookView) {
	h.mu.Lock()
	defer h.mu.Unlock()

	currentBids := levelMap(view.Bids)
	currentAsks := levelMap(view.Asks)

	if !h.seeded {
		h.lastBids, h.lastAsks = currentBids, currentAsks
		h.seeded = true
		msg, err := json.Marshal(snapshotMsg{Type: "SNAPSHOT", Ticker: view.Instrument, Bids: view.Bids, Asks: view.Asks})
		if err != nil {
			h.log.Error("snapshot encode failed", zap.Error(err))
			return
		}
		h.sendToAllLocked(msg)
		return
	}

	var changes [][]string
	changes = collectChanges("BUY", h.lastBids, currentBids, changes)
	changes = collectChanges("SELL", h.lastAsks, currentAsks, changes)
	h.lastBids, h.lastAsks = currentBids, currentAsks
	if len(changes) == 0 {
		return
	}

	msg, err := json.Marshal(updateMsg{Type: "LOB_UPDATE", Ticker: view.Instrument, Changes: changes})
	if err != nil {
		h.log.Error("update encode failed", zap.Error(err))
		return
	}
	h.sendToAllLocked(msg)
}

// BroadcastTrades pushes an executed trade batch.
func (h *PublicHub) BroadcastTrades(instrument string, trades []service.TradeView) {
	if len(trades) == 0 {
		return
	}
	msg, err := json.Marshal(tradesMsg{Type: "TRADES", Ticker: instrument, Data: trades})
	if err != nil {
		h.log.Error("trades encode failed", zap.Error(err))
		return
	}
	h.mu.Lock()
	h.sendToAllLocked(msg)
	h.mu.Unlock()
}

func (h *PublicHub) sendToAllLocked(msg []byte) {
	for conn, c := range h.clients {
		if !c.trySend(msg) {
			// Slow consumer; cut it loose rather than buffer unboundedly.
			delete(h.clients, conn)
			c.stop()
			h.log.Warn("dropped slow public feed client")
		}
	}
}

func levelMap(levels []service.PriceLevel) map[string]int64 {
	m := make(map[string]int64, len(levels))
	for _, lvl := range levels {
		m[lvl.Price.String()] = lvl.Quantity
	}
	return m
}

// collectChanges emits [side, price, quantity] for each level whose
// quantity changed, quantity 0 meaning the level disappeared.
func collectChanges(side string, previous, current map[string]int64, out [][]string) [][]string {
	for price, qty := range current {
		if previous[price] != qty {
			out = append(out, []string{side, price, strconv.FormatInt(qty, 10)})
		}
	}
	for price := range previous {
		if _, still := current[price]; !still {
			out = append(out, []string{side, price, "0"})
		}
	}
	return out
}
