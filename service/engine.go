// Package service coordinates the order book with accounts: admission
// checks, settlement of executed trades, fill history, and fan-out to
// feed subscribers.
package service

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradematch/domain/account"
	"tradematch/domain/book"
	"tradematch/domain/scale"
)

// PriceLevel is one aggregated book level with a display price.
type PriceLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
	Orders   int             `json:"orders"`
}

// BookView is the public depth snapshot pushed after every
// state-changing operation.
type BookView struct {
	Instrument string       `json:"ticker"`
	Bids       []PriceLevel `json:"bids"`
	Asks       []PriceLevel `json:"asks"`
}

// Engine owns one instrument's book and everything around it. The book
// serializes matching internally; the engine's own mutex covers the
// book pointer (swapped on Reset) and the fill history. Subscriber
// callbacks always run outside both locks.
type Engine struct {
	log        *zap.Logger
	accounts   *account.Manager
	scales     *scale.Registry
	instrument string
	bookOpts   []book.Option

	mu      sync.Mutex
	book    *book.OrderBook
	fillSeq uint64
	fills   map[string][]Fill

	subMu     sync.RWMutex
	fillSubs  []func(Fill)
	tradeSubs []func([]TradeView)
	bookSubs  []func(BookView)
}

func NewEngine(log *zap.Logger, accounts *account.Manager, scales *scale.Registry, instrument string, opts ...book.Option) *Engine {
	return &Engine{
		log:        log.Named("engine"),
		accounts:   accounts,
		scales:     scales,
		instrument: instrument,
		bookOpts:   opts,
		book:       book.NewOrderBook(opts...),
		fills:      make(map[string][]Fill),
	}
}

// Close stops the book's expiry sweeper.
func (e *Engine) Close() {
	e.mu.Lock()
	b := e.book
	e.mu.Unlock()
	b.Close()
}

// OnFill registers a callback invoked once per fill side.
func (e *Engine) OnFill(fn func(Fill)) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.fillSubs = append(e.fillSubs, fn)
}

// OnTrades registers a callback invoked with each non-empty trade batch.
func (e *Engine) OnTrades(fn func([]TradeView)) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.tradeSubs = append(e.tradeSubs, fn)
}

// OnBookUpdate registers a callback invoked with a depth snapshot after
// every state-changing operation.
func (e *Engine) OnBookUpdate(fn func(BookView)) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.bookSubs = append(e.bookSubs, fn)
}

// ProcessOrder admits an order, delegates to the book, settles the
// resulting trades against account balances, and notifies subscribers.
// Silent no-trade outcomes return an empty trade list and no error.
func (e *Engine) ProcessOrder(o *book.Order) ([]book.Trade, error) {
	acct, ok := e.accounts.FindByID(o.User())
	if !ok {
		return nil, ErrUnknownUser
	}

	e.mu.Lock()
	if err := e.admitLocked(acct, o); err != nil {
		e.mu.Unlock()
		return nil, err
	}

	e.log.Info("processing order",
		zap.Uint64("orderId", o.ID()),
		zap.String("user", o.User()),
		zap.Stringer("side", o.Side()),
		zap.Stringer("type", o.Type()),
		zap.Stringer("tif", o.TimeInForce()),
		zap.Int64("quantity", o.Quantity()))

	trades := e.book.AddOrder(o)
	fills := e.settleLocked(trades)
	e.mu.Unlock()

	e.publish(fills, trades)
	return trades, nil
}

// admitLocked applies the account-level gates that the book itself knows
// nothing about.
func (e *Engine) admitLocked(acct *account.Account, o *book.Order) error {
	if o.PostOnly() && o.Type() != book.Market && e.book.CanMatch(o.Side(), o.Price()) {
		return ErrPostOnlyWouldTrade
	}
	switch o.Side() {
	case book.Buy:
		// Market buys have no price to reserve against; they settle at
		// whatever the peg produced.
		if o.Type() != book.Market {
			required := e.displayPrice(o.Instrument(), o.Price()).Mul(decimal.NewFromInt(o.Quantity()))
			if !acct.HasSufficientCash(required) {
				return ErrInsufficientFunds
			}
		}
	case book.Sell:
		if !acct.HasInventory(o.Instrument(), o.Quantity()) {
			return ErrInsufficientInventory
		}
	}
	return nil
}

// ModifyOrder cancel-replaces one of the caller's orders. Absent orders
// and orders owned by someone else both report ORDER_NOT_FOUND.
func (e *Engine) ModifyOrder(userID string, mod book.Modify) ([]book.Trade, error) {
	e.mu.Lock()
	snap, ok := e.book.Find(mod.OrderID)
	if !ok || snap.User != userID {
		e.mu.Unlock()
		return nil, ErrOrderNotFound
	}

	e.log.Info("modifying order",
		zap.Uint64("orderId", mod.OrderID),
		zap.String("user", userID),
		zap.Stringer("side", mod.Side),
		zap.Int64("quantity", mod.Quantity))

	trades, err := e.book.ModifyOrder(mod)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	fills := e.settleLocked(trades)
	e.mu.Unlock()

	e.publish(fills, trades)
	return trades, nil
}

// CancelOrder removes one of the caller's resting orders.
func (e *Engine) CancelOrder(userID string, orderID uint64) error {
	e.mu.Lock()
	snap, ok := e.book.Find(orderID)
	if !ok || snap.User != userID {
		e.mu.Unlock()
		return ErrOrderNotFound
	}

	e.log.Info("canceling order", zap.Uint64("orderId", orderID), zap.String("user", userID))
	e.book.CancelOrder(orderID)
	e.mu.Unlock()

	e.publish(nil, nil)
	return nil
}

// Reset replaces the book with an empty one and clears the fill
// history. Account balances and positions survive.
func (e *Engine) Reset() {
	e.mu.Lock()
	old := e.book
	e.book = book.NewOrderBook(e.bookOpts...)
	e.fills = make(map[string][]Fill)
	e.fillSeq = 0
	e.mu.Unlock()

	e.log.Info("engine reset")
	old.Close()
	e.publish(nil, nil)
}

// settleLocked applies each trade side to its owner's cash and position
// and appends a fill record per side. Unknown owners (script-seeded
// books) settle as history only.
func (e *Engine) settleLocked(trades []book.Trade) []Fill {
	if len(trades) == 0 {
		return nil
	}
	now := time.Now().UTC()
	fills := make([]Fill, 0, len(trades)*2)
	for _, tr := range trades {
		fills = append(fills, e.settleSideLocked(tr.Bid, now), e.settleSideLocked(tr.Ask, now))
	}
	return fills
}

func (e *Engine) settleSideLocked(ts book.TradeSide, now time.Time) Fill {
	price := e.displayPrice(ts.Instrument, ts.Price)
	cash := price.Mul(decimal.NewFromInt(ts.Quantity))

	if acct, ok := e.accounts.FindByID(ts.User); ok {
		if ts.Side == book.Buy {
			acct.AdjustCash(cash.Neg())
			acct.AdjustPosition(ts.Instrument, ts.Quantity)
		} else {
			acct.AdjustCash(cash)
			acct.AdjustPosition(ts.Instrument, -ts.Quantity)
		}
	}

	e.fillSeq++
	f := Fill{
		FillID:     e.fillSeq,
		OrderID:    ts.OrderID,
		User:       ts.User,
		Instrument: ts.Instrument,
		Side:       ts.Side,
		Price:      price,
		Quantity:   ts.Quantity,
		Timestamp:  now,
	}
	e.fills[ts.User] = append(e.fills[ts.User], f)
	return f
}

// publish fans fills, trades and a fresh depth snapshot out to the
// registered subscribers. A panicking subscriber is logged and skipped;
// it never takes the engine down.
func (e *Engine) publish(fills []Fill, trades []book.Trade) {
	e.subMu.RLock()
	fillSubs := e.fillSubs
	tradeSubs := e.tradeSubs
	bookSubs := e.bookSubs
	e.subMu.RUnlock()

	for _, f := range fills {
		for _, fn := range fillSubs {
			e.safeNotify("fill", func() { fn(f) })
		}
	}
	if len(trades) > 0 && len(tradeSubs) > 0 {
		views := e.tradeViews(trades)
		for _, fn := range tradeSubs {
			e.safeNotify("trades", func() { fn(views) })
		}
	}
	if len(bookSubs) > 0 {
		view := e.BookSnapshot()
		for _, fn := range bookSubs {
			e.safeNotify("book", func() { fn(view) })
		}
	}
}

func (e *Engine) safeNotify(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("subscriber panicked", zap.String("subscriber", kind), zap.Any("panic", r))
		}
	}()
	fn()
}

// tradeViews collapses each trade to its single execution price in
// display form.
func (e *Engine) tradeViews(trades []book.Trade) []TradeView {
	now := time.Now().UTC()
	out := make([]TradeView, len(trades))
	for i, tr := range trades {
		out[i] = TradeView{
			Instrument:  tr.Bid.Instrument,
			Price:       e.displayPrice(tr.Bid.Instrument, tr.Bid.Price),
			Quantity:    tr.Bid.Quantity,
			BuyOrderID:  tr.Bid.OrderID,
			SellOrderID: tr.Ask.OrderID,
			Timestamp:   now,
		}
	}
	return out
}

// BookSnapshot returns the current depth with display prices.
func (e *Engine) BookSnapshot() BookView {
	e.mu.Lock()
	bids, asks := e.book.Levels()
	e.mu.Unlock()

	s := e.scales.Get(e.instrument)
	return BookView{
		Instrument: e.instrument,
		Bids:       displayLevels(s, bids),
		Asks:       displayLevels(s, asks),
	}
}

func displayLevels(s scale.PriceScale, in []book.LevelSnapshot) []PriceLevel {
	out := make([]PriceLevel, len(in))
	for i, lvl := range in {
		out[i] = PriceLevel{
			Price:    s.ToDisplayPrice(lvl.Price),
			Quantity: lvl.Quantity,
			Orders:   lvl.Count,
		}
	}
	return out
}

// OpenOrders lists every resting order, best prices first.
func (e *Engine) OpenOrders() []book.OrderSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Orders()
}

// OpenOrdersForUser filters the resting orders down to one owner.
func (e *Engine) OpenOrdersForUser(userID string) []book.OrderSnapshot {
	all := e.OpenOrders()
	out := make([]book.OrderSnapshot, 0, len(all))
	for _, snap := range all {
		if snap.User == userID {
			out = append(out, snap)
		}
	}
	return out
}

// FillsForUser returns a copy of the user's fill history, oldest first.
func (e *Engine) FillsForUser(userID string) []Fill {
	e.mu.Lock()
	defer e.mu.Unlock()
	fills := e.fills[userID]
	out := make([]Fill, len(fills))
	copy(out, fills)
	return out
}

// Instrument is the ticker this engine matches.
func (e *Engine) Instrument() string { return e.instrument }

func (e *Engine) displayPrice(instrument string, ticks int64) decimal.Decimal {
	return e.scales.Get(instrument).ToDisplayPrice(ticks)
}
