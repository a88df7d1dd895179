package account

import (
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// Manager is an in-memory account repository with token based lookup.
type Manager struct {
	mu       sync.RWMutex
	byID     map[string]*Account
	byAPIKey map[string]*Account
}

func NewManager() *Manager {
	return &Manager{
		byID:     make(map[string]*Account),
		byAPIKey: make(map[string]*Account),
	}
}

// Register creates an account with a freshly generated API key. An
// existing account with the same user id is replaced.
func (m *Manager) Register(userID string, startingCash decimal.Decimal, startingPositions map[string]int64, admin bool) *Account {
	return m.RegisterWithKey(userID, generateAPIKey(), startingCash, startingPositions, admin)
}

// RegisterWithKey creates an account with a caller-chosen API key, used
// for seeded accounts whose tokens live in configuration.
func (m *Manager) RegisterWithKey(userID, apiKey string, startingCash decimal.Decimal, startingPositions map[string]int64, admin bool) *Account {
	a := newAccount(userID, apiKey, startingCash, startingPositions, admin)

	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.byID[a.userID]; ok {
		delete(m.byAPIKey, prev.apiKey)
	}
	m.byID[a.userID] = a
	m.byAPIKey[a.apiKey] = a
	return a
}

func (m *Manager) FindByID(userID string) (*Account, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.byID[userID]
	return a, ok
}

func (m *Manager) FindByToken(token string) (*Account, bool) {
	if strings.TrimSpace(token) == "" {
		return nil, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.byAPIKey[token]
	return a, ok
}

// All returns the registered accounts in no particular order.
func (m *Manager) All() []*Account {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Account, 0, len(m.byID))
	for _, a := range m.byID {
		out = append(out, a)
	}
	return out
}
