package scale

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBookPriceExact(t *testing.T) {
	s, err := FromPrecision(3)
	require.NoError(t, err)

	p, err := s.ToBookPrice(decimal.RequireFromString("10.000"))
	require.NoError(t, err)
	assert.Equal(t, int64(10000), p)

	p, err = s.ToBookPrice(decimal.RequireFromString("9.5"))
	require.NoError(t, err)
	assert.Equal(t, int64(9500), p)
}

func TestToBookPriceMisaligned(t *testing.T) {
	s, err := FromPrecision(2)
	require.NoError(t, err)

	_, err = s.ToBookPrice(decimal.RequireFromString("10.005"))
	assert.ErrorIs(t, err, ErrPriceMisaligned)
}

func TestZeroIsNoPrice(t *testing.T) {
	s, err := FromPrecision(3)
	require.NoError(t, err)

	p, err := s.ToBookPrice(decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, int64(0), p)
	assert.True(t, s.ToDisplayPrice(0).IsZero())
}

func TestRoundTrip(t *testing.T) {
	s, err := FromPrecision(4)
	require.NoError(t, err)

	for _, raw := range []string{"0.0001", "1", "123.4567", "99999.99", "0.5"} {
		d := decimal.RequireFromString(raw)
		p, err := s.ToBookPrice(d)
		require.NoError(t, err, raw)
		assert.True(t, s.ToDisplayPrice(p).Equal(d), "round trip of %s", raw)
	}
}

func TestNegativePrecisionRejected(t *testing.T) {
	_, err := FromPrecision(-1)
	assert.Error(t, err)
}

func TestTickSize(t *testing.T) {
	s, err := FromPrecision(3)
	require.NoError(t, err)
	assert.True(t, s.TickSize().Equal(decimal.RequireFromString("0.001")))
}

func TestRegistryLazyDefault(t *testing.T) {
	r, err := NewRegistry(3)
	require.NoError(t, err)

	// First lookup of an unknown instrument registers the default precision.
	s := r.Get("NEWCOIN")
	assert.Equal(t, int32(3), s.Precision())

	// The lazily-created entry sticks: a later explicit Register overrides it,
	// but until then lookups are stable.
	assert.Equal(t, int32(3), r.Get("newcoin ").Precision())

	require.NoError(t, r.Register("NEWCOIN", 5))
	assert.Equal(t, int32(5), r.Get("NEWCOIN").Precision())
}

func TestRegistryNormalizesSymbols(t *testing.T) {
	r, err := NewRegistry(2)
	require.NoError(t, err)
	require.NoError(t, r.Register("test", 4))
	assert.Equal(t, int32(4), r.Get("TEST").Precision())
	assert.Equal(t, int32(4), r.Get("  Test ").Precision())
}
