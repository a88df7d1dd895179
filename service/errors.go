package service

import "errors"

// Admission and lookup failures surfaced to callers. Outcomes the book
// absorbs silently (duplicate ids, infeasible IOC/FOK, market orders
// with no contra liquidity) are not errors and never appear here.
var (
	ErrUnknownUser           = errors.New("UNKNOWN_USER")
	ErrInsufficientFunds     = errors.New("INSUFFICIENT_FUNDS")
	ErrInsufficientInventory = errors.New("INSUFFICIENT_INVENTORY")
	ErrPostOnlyWouldTrade    = errors.New("POST_ONLY_WOULD_TRADE")

	// ErrOrderNotFound covers both a missing order and an ownership
	// mismatch so callers cannot probe other users' order ids.
	ErrOrderNotFound = errors.New("ORDER_NOT_FOUND")
)
