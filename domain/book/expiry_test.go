package book

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextCutover(t *testing.T) {
	loc := time.UTC

	before := time.Date(2025, 3, 10, 9, 30, 0, 0, loc)
	next := nextCutover(before, 16, 0)
	assert.Equal(t, time.Date(2025, 3, 10, 16, 0, 0, 0, loc), next)

	exactly := time.Date(2025, 3, 10, 16, 0, 0, 0, loc)
	next = nextCutover(exactly, 16, 0)
	assert.Equal(t, time.Date(2025, 3, 11, 16, 0, 0, 0, loc), next, "at the cutover the sweep rolls to tomorrow")

	after := time.Date(2025, 3, 10, 16, 0, 0, 1, loc)
	next = nextCutover(after, 16, 0)
	assert.Equal(t, time.Date(2025, 3, 11, 16, 0, 0, 0, loc), next)

	// Month boundary.
	eom := time.Date(2025, 3, 31, 23, 0, 0, 0, loc)
	next = nextCutover(eom, 16, 0)
	assert.Equal(t, time.Date(2025, 4, 1, 16, 0, 0, 0, loc), next)
}

func TestExpireDayOrdersCancelsOnlyDayOrders(t *testing.T) {
	b := newTestBook(t)

	gtc, err := NewOrder(1, "alice", "TEST", Buy, Limit, GTC, 5, 9900, 0, false, 5)
	require.NoError(t, err)
	day, err := NewOrder(2, "bob", "TEST", Buy, Limit, Day, 5, 9800, 0, false, 5)
	require.NoError(t, err)
	dayAsk, err := NewOrder(3, "carol", "TEST", Sell, Limit, Day, 5, 10100, 0, false, 5)
	require.NoError(t, err)

	b.AddOrder(gtc)
	b.AddOrder(day)
	b.AddOrder(dayAsk)
	require.Equal(t, 3, b.Size())

	b.expireDayOrders()

	assert.Equal(t, 1, b.Size())
	_, ok := b.Find(1)
	assert.True(t, ok, "GTC order survives the sweep")
	_, ok = b.Find(2)
	assert.False(t, ok)
	_, ok = b.Find(3)
	assert.False(t, ok)

	// Cancelled day orders leave their levels behind too.
	_, hasAsk := b.BestAsk()
	assert.False(t, hasAsk)
	bid, hasBid := b.BestBid()
	require.True(t, hasBid)
	assert.Equal(t, int64(9900), bid)
}

func TestExpireDayOrdersOnEmptyBook(t *testing.T) {
	b := newTestBook(t)
	b.expireDayOrders()
	assert.Equal(t, 0, b.Size())
}

func TestCloseJoinsSweeperAndIsIdempotent(t *testing.T) {
	b := NewOrderBook(WithDailyCutover(23, 59))

	done := make(chan struct{})
	go func() {
		b.Close()
		b.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
}
