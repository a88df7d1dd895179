package book

// TradeSide is one side's execution record within a trade. Price is the
// tick price both counterparties executed at: the resting (earlier
// arrival) order's price. Decimal conversion happens at the boundary,
// never here.
type TradeSide struct {
	OrderID    uint64
	User       string
	Instrument string
	Side       Side
	Price      int64
	Quantity   int64
}

// Trade pairs the bid-side and ask-side execution records produced by one
// matching step. Trades are produced only by the matching loop and never
// mutated.
type Trade struct {
	Bid TradeSide
	Ask TradeSide
}
