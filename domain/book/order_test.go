package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func limitOrder(t *testing.T, id uint64, side Side, price, qty int64) *Order {
	t.Helper()
	o, err := NewOrder(id, "trader", "TEST", side, Limit, GTC, qty, price, 0, false, qty)
	require.NoError(t, err)
	return o
}

func TestNewOrderValidation(t *testing.T) {
	_, err := NewOrder(1, "u", "TEST", Buy, Limit, GTC, 0, 100, 0, false, 1)
	assert.ErrorIs(t, err, ErrValidation, "non-positive quantity")

	_, err = NewOrder(1, "u", "TEST", Buy, Limit, GTC, 10, 0, 0, false, 10)
	assert.ErrorIs(t, err, ErrValidation, "limit without price")

	_, err = NewOrder(1, "u", "TEST", Buy, StopMarket, GTC, 10, 0, 0, false, 10)
	assert.ErrorIs(t, err, ErrValidation, "stop without trigger")

	_, err = NewOrder(1, "u", "TEST", Buy, Limit, GTC, 10, 100, 0, false, 11)
	assert.ErrorIs(t, err, ErrValidation, "display quantity above total")

	_, err = NewOrder(1, "u", "TEST", Buy, Limit, GTC, 10, 100, 0, false, 0)
	assert.ErrorIs(t, err, ErrValidation, "display quantity below 1")

	// Market orders carry no price until pegged.
	_, err = NewOrder(1, "u", "TEST", Buy, Market, IOC, 10, 0, 0, false, 10)
	assert.NoError(t, err)
}

func TestFill(t *testing.T) {
	o := limitOrder(t, 1, Buy, 100, 10)

	require.NoError(t, o.Fill(4))
	assert.Equal(t, int64(6), o.Remaining())
	assert.Equal(t, int64(4), o.FilledQuantity())
	assert.False(t, o.IsFilled())

	assert.Error(t, o.Fill(0), "zero fill")
	assert.Error(t, o.Fill(-1), "negative fill")
	assert.Error(t, o.Fill(7), "overfill")

	require.NoError(t, o.Fill(6))
	assert.True(t, o.IsFilled())
}

func TestConvertMarketToLimit(t *testing.T) {
	o, err := NewOrder(1, "u", "TEST", Buy, Market, IOC, 10, 0, 0, false, 10)
	require.NoError(t, err)

	require.NoError(t, o.ConvertMarketToLimit(10500, GTC))
	assert.Equal(t, Limit, o.Type())
	assert.Equal(t, int64(10500), o.Price())
	assert.Equal(t, GTC, o.TimeInForce())

	// Conversion is one-shot.
	assert.Error(t, o.ConvertMarketToLimit(9000, GTC))

	o2, err := NewOrder(2, "u", "TEST", Buy, Market, IOC, 10, 0, 0, false, 10)
	require.NoError(t, err)
	assert.Error(t, o2.ConvertMarketToLimit(0, GTC), "non-positive converted price")
}
