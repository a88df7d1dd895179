package account

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterGeneratesUniqueAPIKeys(t *testing.T) {
	m := NewManager()
	a := m.Register("alice", decimal.NewFromInt(1000), nil, false)
	b := m.Register("bob", decimal.NewFromInt(1000), nil, false)

	assert.NotEmpty(t, a.APIKey())
	assert.NotEqual(t, a.APIKey(), b.APIKey())
	assert.NotContains(t, a.APIKey(), "-")
}

func TestFindByToken(t *testing.T) {
	m := NewManager()
	a := m.RegisterWithKey("alice", "alice-token", decimal.NewFromInt(500), nil, true)

	found, ok := m.FindByToken("alice-token")
	require.True(t, ok)
	assert.Same(t, a, found)
	assert.True(t, found.Admin())

	_, ok = m.FindByToken("unknown")
	assert.False(t, ok)
	_, ok = m.FindByToken("  ")
	assert.False(t, ok)
}

func TestReregisterReplacesOldToken(t *testing.T) {
	m := NewManager()
	m.RegisterWithKey("alice", "old-token", decimal.NewFromInt(1), nil, false)
	m.RegisterWithKey("alice", "new-token", decimal.NewFromInt(2), nil, false)

	_, ok := m.FindByToken("old-token")
	assert.False(t, ok, "the replaced account's token must stop resolving")

	a, ok := m.FindByToken("new-token")
	require.True(t, ok)
	assert.True(t, a.Cash().Equal(decimal.NewFromInt(2)))
}

func TestCashAdjustments(t *testing.T) {
	m := NewManager()
	a := m.Register("alice", decimal.NewFromInt(100), nil, false)

	assert.True(t, a.HasSufficientCash(decimal.NewFromInt(100)))
	assert.False(t, a.HasSufficientCash(decimal.NewFromFloat(100.01)))

	a.AdjustCash(decimal.NewFromFloat(-40.5))
	assert.True(t, a.Cash().Equal(decimal.NewFromFloat(59.5)))

	// Balances may go negative; admission checks gate beforehand.
	a.AdjustCash(decimal.NewFromInt(-100))
	assert.True(t, a.Cash().IsNegative())
}

func TestPositionAdjustments(t *testing.T) {
	a := NewManager().Register("alice", decimal.Zero, map[string]int64{"aapl": 10, "MSFT": 0}, false)

	assert.Equal(t, int64(10), a.Position("AAPL"))
	assert.Equal(t, int64(10), a.Position("aapl"), "instrument lookup is case insensitive")
	assert.Equal(t, int64(0), a.Position("MSFT"), "zero seed positions are dropped")

	a.AdjustPosition("aapl", -10)
	snap := a.SnapshotPositions()
	assert.Empty(t, snap, "positions that reach zero are removed")

	a.AdjustPosition("TSLA", -5)
	assert.Equal(t, int64(-5), a.Position("TSLA"))
	assert.False(t, a.HasInventory("TSLA", 1))
	assert.True(t, a.HasInventory("TSLA", -5))
}

func TestSnapshotPositionsIsACopy(t *testing.T) {
	a := NewManager().Register("alice", decimal.Zero, map[string]int64{"AAPL": 3}, false)
	snap := a.SnapshotPositions()
	snap["AAPL"] = 999
	assert.Equal(t, int64(3), a.Position("AAPL"))
}

func TestAll(t *testing.T) {
	m := NewManager()
	m.Register("alice", decimal.Zero, nil, false)
	m.Register("bob", decimal.Zero, nil, false)
	assert.Len(t, m.All(), 2)
}
