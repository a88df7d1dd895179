package book

import (
	"sync"
	"time"
)

// OrderBook is the matching core for one instrument: two price-ordered
// trees of FIFO levels, an order-id index, and a background sweeper that
// expires DAY orders at the daily cutover. Every public operation,
// including reads, runs under one mutex; the book is never observably
// crossed once a call returns.
type OrderBook struct {
	mu     sync.Mutex
	bids   *levelTree
	asks   *levelTree
	orders map[uint64]*Order
	seq    uint64

	cutoverHour   int
	cutoverMinute int

	done        chan struct{}
	sweeperDone chan struct{}
	closeOnce   sync.Once
}

// Option configures an OrderBook at construction.
type Option func(*OrderBook)

// WithDailyCutover sets the local wall-clock time at which DAY orders are
// expired. The default is 16:00.
func WithDailyCutover(hour, minute int) Option {
	return func(b *OrderBook) {
		b.cutoverHour = hour
		b.cutoverMinute = minute
	}
}

func NewOrderBook(opts ...Option) *OrderBook {
	b := &OrderBook{
		bids:          newLevelTree(),
		asks:          newLevelTree(),
		orders:        make(map[uint64]*Order),
		cutoverHour:   16,
		cutoverMinute: 0,
		done:          make(chan struct{}),
		sweeperDone:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	go b.sweepLoop()
	return b
}

// Close stops the expiry sweeper and waits for it to exit. The book
// remains usable afterwards but DAY orders are no longer auto-expired.
func (b *OrderBook) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
	})
	<-b.sweeperDone
}

// AddOrder admits an order and runs the matching loop, returning the
// trades it produced. Silent no-trade outcomes (duplicate id, market
// order with no contra liquidity, infeasible IOC/FOK) leave the book
// untouched and return an empty list; they are not errors.
func (b *OrderBook) AddOrder(o *Order) []Trade {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addOrderLocked(o)
}

func (b *OrderBook) addOrderLocked(o *Order) []Trade {
	if _, exists := b.orders[o.id]; exists {
		return nil
	}

	if o.orderType == Market {
		// Peg to the worst resting price on the opposite side; with no
		// contra liquidity the order is dropped without touching the book.
		var worst *priceLevel
		if o.side == Buy {
			worst = b.asks.max()
		} else {
			worst = b.bids.min()
		}
		if worst == nil {
			return nil
		}
		if err := o.ConvertMarketToLimit(worst.price, GTC); err != nil {
			return nil
		}
	}

	if o.tif == IOC && !b.canMatchLocked(o.side, o.price) {
		return nil
	}
	if o.tif == FOK && !b.canFullyFillLocked(o.side, o.price, o.remaining) {
		return nil
	}

	b.seq++
	o.seq = b.seq

	lvl := b.sideTree(o.side).upsert(o.price)
	lvl.enqueue(o)
	b.orders[o.id] = o

	return b.matchLocked()
}

// CancelOrder removes a resting order. Unknown ids are a silent no-op.
func (b *OrderBook) CancelOrder(orderID uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancelLocked(orderID)
}

// Modify describes a cancel-and-replace of an existing order.
type Modify struct {
	OrderID  uint64
	Side     Side
	Price    int64 // ticks
	Quantity int64
}

// ModifyOrder cancels the target and resubmits a fresh order with the
// same id through the normal AddOrder path, preserving the original type
// and time-in-force. A modify can therefore generate trades and inherits
// every AddOrder policy. Unknown ids yield no trades and no mutation;
// invalid replacement parameters fail before the original is touched.
func (b *OrderBook) ModifyOrder(mod Modify) ([]Trade, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	existing, ok := b.orders[mod.OrderID]
	if !ok {
		return nil, nil
	}

	replacement, err := NewOrder(
		mod.OrderID, existing.user, existing.instrument,
		mod.Side, existing.orderType, existing.tif,
		mod.Quantity, mod.Price, existing.triggerPrice,
		false, mod.Quantity,
	)
	if err != nil {
		return nil, err
	}

	b.cancelLocked(mod.OrderID)
	return b.addOrderLocked(replacement), nil
}

// CanMatch reports whether an order at the given tick price would match
// the best opposite price right now.
func (b *OrderBook) CanMatch(side Side, price int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.canMatchLocked(side, price)
}

func (b *OrderBook) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.orders)
}

// BestBid returns the highest resting bid price, if any.
func (b *OrderBook) BestBid() (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if lvl := b.bids.max(); lvl != nil {
		return lvl.price, true
	}
	return 0, false
}

// BestAsk returns the lowest resting ask price, if any.
func (b *OrderBook) BestAsk() (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if lvl := b.asks.min(); lvl != nil {
		return lvl.price, true
	}
	return 0, false
}

// LevelSnapshot is one price level's aggregate view.
type LevelSnapshot struct {
	Price    int64
	Quantity int64
	Count    int
}

// Levels returns per-side aggregates, bids best-first (descending) and
// asks best-first (ascending).
func (b *OrderBook) Levels() (bids, asks []LevelSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bids.descend(func(lvl *priceLevel) bool {
		bids = append(bids, LevelSnapshot{Price: lvl.price, Quantity: lvl.totalQty, Count: lvl.count})
		return true
	})
	b.asks.ascend(func(lvl *priceLevel) bool {
		asks = append(asks, LevelSnapshot{Price: lvl.price, Quantity: lvl.totalQty, Count: lvl.count})
		return true
	})
	return bids, asks
}

// OrderSnapshot is an immutable view of one resting order.
type OrderSnapshot struct {
	OrderID     uint64
	User        string
	Instrument  string
	Side        Side
	Type        OrderType
	TimeInForce TimeInForce
	Price       int64
	Remaining   int64
}

// Orders lists every resting order, bids best-first then asks best-first,
// FIFO within each level.
func (b *OrderBook) Orders() []OrderSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]OrderSnapshot, 0, len(b.orders))
	collect := func(lvl *priceLevel) bool {
		for o := lvl.head; o != nil; o = o.next {
			out = append(out, snapshotOf(o))
		}
		return true
	}
	b.bids.descend(collect)
	b.asks.ascend(collect)
	return out
}

// Find returns a snapshot of a resting order by id.
func (b *OrderBook) Find(orderID uint64) (OrderSnapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[orderID]
	if !ok {
		return OrderSnapshot{}, false
	}
	return snapshotOf(o), true
}

func snapshotOf(o *Order) OrderSnapshot {
	return OrderSnapshot{
		OrderID:     o.id,
		User:        o.user,
		Instrument:  o.instrument,
		Side:        o.side,
		Type:        o.orderType,
		TimeInForce: o.tif,
		Price:       o.price,
		Remaining:   o.remaining,
	}
}

/******************** matching ********************/

func (b *OrderBook) sideTree(s Side) *levelTree {
	if s == Buy {
		return b.bids
	}
	return b.asks
}

func (b *OrderBook) canMatchLocked(side Side, price int64) bool {
	if side == Buy {
		best := b.asks.min()
		return best != nil && price >= best.price
	}
	best := b.bids.max()
	return best != nil && price <= best.price
}

// canFullyFillLocked walks contra levels from the best price toward the
// order's limit, accumulating available quantity. Used only for FOK
// admission, before any book mutation.
func (b *OrderBook) canFullyFillLocked(side Side, price, quantity int64) bool {
	if !b.canMatchLocked(side, price) {
		return false
	}
	need := quantity
	if side == Buy {
		b.asks.ascend(func(lvl *priceLevel) bool {
			if lvl.price > price {
				return false
			}
			need -= lvl.totalQty
			return need > 0
		})
	} else {
		b.bids.descend(func(lvl *priceLevel) bool {
			if lvl.price < price {
				return false
			}
			need -= lvl.totalQty
			return need > 0
		})
	}
	return need <= 0
}

// matchLocked clears any cross between the best bid and best ask under
// price-time priority, then cancels a residual IOC order left at the top
// of either side.
func (b *OrderBook) matchLocked() []Trade {
	var trades []Trade

	for {
		bestBid := b.bids.max()
		bestAsk := b.asks.min()
		if bestBid == nil || bestAsk == nil || bestBid.price < bestAsk.price {
			break
		}

		bid := bestBid.head
		ask := bestAsk.head

		qty := bid.remaining
		if ask.remaining < qty {
			qty = ask.remaining
		}

		// Executions price at the resting side: whichever order arrived
		// first set the level the other crossed into.
		execPrice := bid.price
		if ask.seq < bid.seq {
			execPrice = ask.price
		}

		// qty is positive and bounded by both remainders, so Fill cannot fail.
		_ = bid.Fill(qty)
		_ = ask.Fill(qty)

		trades = append(trades, Trade{
			Bid: TradeSide{
				OrderID:    bid.id,
				User:       bid.user,
				Instrument: bid.instrument,
				Side:       Buy,
				Price:      execPrice,
				Quantity:   qty,
			},
			Ask: TradeSide{
				OrderID:    ask.id,
				User:       ask.user,
				Instrument: ask.instrument,
				Side:       Sell,
				Price:      execPrice,
				Quantity:   qty,
			},
		})

		b.settleLevel(bestBid, bid, qty, Buy)
		b.settleLevel(bestAsk, ask, qty, Sell)
	}

	// A partially-matched IOC order must never rest, even when it became
	// best-of-book only after the cross was resolved.
	if lvl := b.bids.max(); lvl != nil && lvl.head != nil && lvl.head.tif == IOC {
		b.cancelLocked(lvl.head.id)
	}
	if lvl := b.asks.min(); lvl != nil && lvl.head != nil && lvl.head.tif == IOC {
		b.cancelLocked(lvl.head.id)
	}

	return trades
}

// settleLevel applies one execution's aggregate bookkeeping: full fills
// dequeue the order and drop it from the index, partial fills only reduce
// the level quantity. An emptied level is removed from its tree.
func (b *OrderBook) settleLevel(lvl *priceLevel, o *Order, qty int64, side Side) {
	if o.remaining == 0 {
		// unlink charges remaining (now 0); account for the fill explicitly.
		lvl.unlink(o)
		lvl.reduce(qty)
		delete(b.orders, o.id)
	} else {
		lvl.reduce(qty)
	}
	if lvl.empty() {
		b.sideTree(side).delete(lvl.price)
	}
}

func (b *OrderBook) cancelLocked(orderID uint64) {
	o, ok := b.orders[orderID]
	if !ok {
		return
	}
	delete(b.orders, orderID)

	tree := b.sideTree(o.side)
	lvl := tree.find(o.price)
	if lvl == nil {
		return
	}
	lvl.unlink(o)
	if lvl.empty() {
		tree.delete(lvl.price)
	}
}

/******************** DAY-order expiry ********************/

// sweepLoop wakes at each daily cutover (or on Close) and cancels every
// DAY order through the same locked cancel path as explicit cancellation.
func (b *OrderBook) sweepLoop() {
	defer close(b.sweeperDone)

	for {
		delay := time.Until(nextCutover(time.Now(), b.cutoverHour, b.cutoverMinute))
		// Small grace so the sweep lands strictly after the cutover.
		timer := time.NewTimer(delay + 100*time.Millisecond)

		select {
		case <-b.done:
			timer.Stop()
			return
		case <-timer.C:
		}

		b.expireDayOrders()
	}
}

// nextCutover is the next occurrence of the cutover wall-clock time
// strictly after now.
func nextCutover(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !now.Before(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (b *OrderBook) expireDayOrders() {
	b.mu.Lock()
	defer b.mu.Unlock()

	var expired []uint64
	for id, o := range b.orders {
		if o.tif == Day {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		b.cancelLocked(id)
	}
}
