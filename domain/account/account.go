// Package account holds user accounts with cash balances, per-instrument
// positions and API-key authentication.
package account

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is an authenticated user of the trading engine. Cash and
// positions are guarded by the account's own mutex so settlement can
// run without holding any book lock.
type Account struct {
	mu        sync.Mutex
	userID    string
	apiKey    string
	admin     bool
	cash      decimal.Decimal
	positions map[string]int64
}

func newAccount(userID, apiKey string, startingCash decimal.Decimal, startingPositions map[string]int64, admin bool) *Account {
	a := &Account{
		userID:    userID,
		apiKey:    apiKey,
		admin:     admin,
		cash:      startingCash,
		positions: make(map[string]int64),
	}
	for instrument, qty := range startingPositions {
		if qty != 0 {
			a.positions[normalizeInstrument(instrument)] = qty
		}
	}
	return a
}

func generateAPIKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func normalizeInstrument(instrument string) string {
	return strings.ToUpper(strings.TrimSpace(instrument))
}

func (a *Account) UserID() string { return a.userID }
func (a *Account) APIKey() string { return a.apiKey }
func (a *Account) Admin() bool    { return a.admin }

func (a *Account) Cash() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cash
}

func (a *Account) AdjustCash(delta decimal.Decimal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cash = a.cash.Add(delta)
}

func (a *Account) HasSufficientCash(required decimal.Decimal) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cash.GreaterThanOrEqual(required)
}

// Position returns the held quantity for an instrument, zero when none.
func (a *Account) Position(instrument string) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.positions[normalizeInstrument(instrument)]
}

// AdjustPosition applies a signed delta. Positions that reach zero are
// removed so snapshots only carry live holdings.
func (a *Account) AdjustPosition(instrument string, delta int64) {
	if delta == 0 {
		return
	}
	key := normalizeInstrument(instrument)
	a.mu.Lock()
	defer a.mu.Unlock()
	updated := a.positions[key] + delta
	if updated == 0 {
		delete(a.positions, key)
		return
	}
	a.positions[key] = updated
}

func (a *Account) HasInventory(instrument string, required int64) bool {
	return a.Position(instrument) >= required
}

// SnapshotPositions copies the live holdings map.
func (a *Account) SnapshotPositions() map[string]int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]int64, len(a.positions))
	for instrument, qty := range a.positions {
		out[instrument] = qty
	}
	return out
}
