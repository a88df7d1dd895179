package service

import "sync/atomic"

// OrderIDGenerator hands out monotonically increasing order ids for
// orders submitted over the API, where clients do not pick their own.
type OrderIDGenerator struct {
	next atomic.Uint64
}

// NewOrderIDGenerator starts issuing at initial. Zero starts at 1.
func NewOrderIDGenerator(initial uint64) *OrderIDGenerator {
	if initial == 0 {
		initial = 1
	}
	g := &OrderIDGenerator{}
	g.next.Store(initial)
	return g
}

func (g *OrderIDGenerator) NextID() uint64 {
	return g.next.Add(1) - 1
}
