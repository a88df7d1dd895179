package book

import (
	"errors"
	"fmt"
)

// ErrValidation wraps all order admission failures caused by malformed
// input (non-positive quantity, missing prices, display quantity range).
var ErrValidation = errors.New("VALIDATION")

type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// MarshalJSON emits the wire name so feeds carry "BUY"/"SELL", not enum
// ordinals.
func (s Side) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

type OrderType uint8

const (
	Market OrderType = iota
	Limit
	StopMarket
	StopLimit
)

func (t OrderType) String() string {
	switch t {
	case Market:
		return "MARKET"
	case Limit:
		return "LIMIT"
	case StopMarket:
		return "STOP_MARKET"
	case StopLimit:
		return "STOP_LIMIT"
	}
	return "UNKNOWN"
}

func (t OrderType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t OrderType) isStop() bool {
	return t == StopMarket || t == StopLimit
}

type TimeInForce uint8

const (
	GTC TimeInForce = iota
	Day
	IOC
	FOK
)

func (tif TimeInForce) String() string {
	switch tif {
	case GTC:
		return "GTC"
	case Day:
		return "DAY"
	case IOC:
		return "IOC"
	case FOK:
		return "FOK"
	}
	return "UNKNOWN"
}

func (tif TimeInForce) MarshalJSON() ([]byte, error) {
	return []byte(`"` + tif.String() + `"`), nil
}

// Order is the mutable execution state of one order. The only mutations
// after construction are Fill and the one-shot market-to-limit conversion
// the book performs when pegging a market order.
type Order struct {
	id           uint64
	user         string
	instrument   string
	side         Side
	orderType    OrderType
	tif          TimeInForce
	quantity     int64
	remaining    int64
	price        int64 // ticks; 0 means "no price" (market orders)
	triggerPrice int64 // ticks; stop orders only
	postOnly     bool
	displayQty   int64

	// arrival sequence and FIFO links, owned by the book
	seq  uint64
	next *Order
	prev *Order
}

// NewOrder validates and constructs an order. Price and trigger price are
// ticks; callers convert decimals through scale.PriceScale first.
func NewOrder(
	id uint64,
	user string,
	instrument string,
	side Side,
	orderType OrderType,
	tif TimeInForce,
	quantity int64,
	price int64,
	triggerPrice int64,
	postOnly bool,
	displayQty int64,
) (*Order, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	if (orderType == Limit || orderType == StopLimit) && price <= 0 {
		return nil, fmt.Errorf("%w: %s orders require a positive price", ErrValidation, orderType)
	}
	if orderType.isStop() && triggerPrice <= 0 {
		return nil, fmt.Errorf("%w: stop orders require a positive trigger price", ErrValidation)
	}
	if displayQty <= 0 || displayQty > quantity {
		return nil, fmt.Errorf("%w: display quantity must be between 1 and the total quantity", ErrValidation)
	}
	return &Order{
		id:           id,
		user:         user,
		instrument:   instrument,
		side:         side,
		orderType:    orderType,
		tif:          tif,
		quantity:     quantity,
		remaining:    quantity,
		price:        price,
		triggerPrice: triggerPrice,
		postOnly:     postOnly,
		displayQty:   displayQty,
	}, nil
}

func (o *Order) ID() uint64                { return o.id }
func (o *Order) User() string              { return o.user }
func (o *Order) Instrument() string        { return o.instrument }
func (o *Order) Side() Side                { return o.side }
func (o *Order) Type() OrderType           { return o.orderType }
func (o *Order) TimeInForce() TimeInForce  { return o.tif }
func (o *Order) Quantity() int64           { return o.quantity }
func (o *Order) Remaining() int64          { return o.remaining }
func (o *Order) FilledQuantity() int64     { return o.quantity - o.remaining }
func (o *Order) Price() int64              { return o.price }
func (o *Order) TriggerPrice() int64       { return o.triggerPrice }
func (o *Order) PostOnly() bool            { return o.postOnly }
func (o *Order) DisplayQuantity() int64    { return o.displayQty }

func (o *Order) IsFilled() bool { return o.remaining == 0 }

// Fill decrements the remaining quantity by an executed amount.
func (o *Order) Fill(qty int64) error {
	if qty <= 0 {
		return fmt.Errorf("executed quantity must be positive, got %d", qty)
	}
	if qty > o.remaining {
		return fmt.Errorf("executed quantity %d exceeds remaining %d", qty, o.remaining)
	}
	o.remaining -= qty
	return nil
}

// ConvertMarketToLimit pegs a market order to a concrete price, turning
// it into a limit order before it is booked. Legal exactly once, while
// the order is still a market order.
func (o *Order) ConvertMarketToLimit(price int64, tif TimeInForce) error {
	if o.orderType != Market {
		return fmt.Errorf("only market orders can be converted, order %d is %s", o.id, o.orderType)
	}
	if price <= 0 {
		return fmt.Errorf("converted price must be positive, got %d", price)
	}
	o.price = price
	o.orderType = Limit
	o.tif = tif
	return nil
}
