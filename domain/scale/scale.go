package scale

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrPriceMisaligned is returned when a decimal price does not convert
// exactly at the instrument's configured precision.
var ErrPriceMisaligned = errors.New("PRICE_MISALIGNED")

// PriceScale converts between external decimal prices and the integer
// tick representation the book operates on. A book price of 0 is the
// reserved "no price" value for market orders and round-trips as 0 <-> 0.0.
type PriceScale struct {
	precision int32
}

func FromPrecision(precision int32) (PriceScale, error) {
	if precision < 0 {
		return PriceScale{}, fmt.Errorf("precision must be non-negative, got %d", precision)
	}
	return PriceScale{precision: precision}, nil
}

func (s PriceScale) Precision() int32 { return s.precision }

// TickSize is the display-price increment between adjacent book prices.
func (s PriceScale) TickSize() decimal.Decimal {
	return decimal.New(1, -s.precision)
}

// ToBookPrice converts a decimal display price to ticks. The conversion
// must be exact: a price that would require rounding at this precision is
// rejected rather than silently truncated.
func (s PriceScale) ToBookPrice(display decimal.Decimal) (int64, error) {
	if display.IsZero() {
		return 0, nil
	}
	scaled := display.Shift(s.precision)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("%w: %s does not align with precision %d",
			ErrPriceMisaligned, display.String(), s.precision)
	}
	return scaled.IntPart(), nil
}

// ToDisplayPrice converts ticks back to the decimal display price.
func (s PriceScale) ToDisplayPrice(bookPrice int64) decimal.Decimal {
	if bookPrice == 0 {
		return decimal.Zero
	}
	return decimal.New(bookPrice, -s.precision)
}
