package service

import (
	"time"

	"github.com/shopspring/decimal"

	"tradematch/domain/book"
)

// Fill is one side of an execution, recorded per user. Prices are
// display decimals; tick prices never leave the engine.
type Fill struct {
	FillID     uint64          `json:"fillId"`
	OrderID    uint64          `json:"orderId"`
	User       string          `json:"userId"`
	Instrument string          `json:"ticker"`
	Side       book.Side       `json:"side"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int64           `json:"quantity"`
	Timestamp  time.Time       `json:"timestamp"`
}
