package service

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeView is the public form of one execution: a single display price
// and quantity plus the two order ids, with no account details.
type TradeView struct {
	Instrument  string          `json:"ticker"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int64           `json:"quantity"`
	BuyOrderID  uint64          `json:"buyOrderId"`
	SellOrderID uint64          `json:"sellOrderId"`
	Timestamp   time.Time       `json:"timestamp"`
}
