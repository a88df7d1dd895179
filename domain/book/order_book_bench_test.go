package book

import "testing"

func benchOrder(id uint64, side Side, price, qty int64) *Order {
	o, err := NewOrder(id, "bench", "TEST", side, Limit, GTC, qty, price, 0, false, qty)
	if err != nil {
		panic(err)
	}
	return o
}

func BenchmarkAddOrder(b *testing.B) {
	book := NewOrderBook()
	defer book.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// Non-crossing bids spread over a handful of levels.
		book.AddOrder(benchOrder(uint64(i+1), Buy, int64(100+i%16), 10))
	}
}

func BenchmarkCancelOrder(b *testing.B) {
	book := NewOrderBook()
	defer book.Close()

	for i := 0; i < b.N; i++ {
		book.AddOrder(benchOrder(uint64(i+1), Buy, int64(100+i%16), 10))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		book.CancelOrder(uint64(i + 1))
	}
}

func BenchmarkMatchAtTop(b *testing.B) {
	book := NewOrderBook()
	defer book.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := uint64(i)*2 + 1
		book.AddOrder(benchOrder(id, Buy, 100, 10))
		book.AddOrder(benchOrder(id+1, Sell, 100, 10))
	}
}

func BenchmarkLevels(b *testing.B) {
	book := NewOrderBook()
	defer book.Close()

	// Preload a non-crossing book so the walk is stable.
	for i := 0; i < 50000; i++ {
		if i%2 == 0 {
			book.AddOrder(benchOrder(uint64(i+1), Buy, int64(90+i%10), 10))
		} else {
			book.AddOrder(benchOrder(uint64(i+1), Sell, int64(101+i%10), 10))
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = book.Levels()
	}
}
