package scale

import (
	"strings"
	"sync"
)

// Registry maps instrument symbols to their PriceScale. Unknown
// instruments are lazily assigned the default precision on first lookup,
// so every caller always gets a usable scale.
type Registry struct {
	mu               sync.Mutex
	scales           map[string]PriceScale
	defaultPrecision int32
}

func NewRegistry(defaultPrecision int32) (*Registry, error) {
	if _, err := FromPrecision(defaultPrecision); err != nil {
		return nil, err
	}
	return &Registry{
		scales:           make(map[string]PriceScale),
		defaultPrecision: defaultPrecision,
	}, nil
}

// Register sets the precision for an instrument, replacing any existing
// or lazily-created entry.
func (r *Registry) Register(instrument string, precision int32) error {
	s, err := FromPrecision(precision)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.scales[normalize(instrument)] = s
	r.mu.Unlock()
	return nil
}

// Get returns the scale for an instrument, registering the default
// precision for instruments seen for the first time.
func (r *Registry) Get(instrument string) PriceScale {
	key := normalize(instrument)
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.scales[key]; ok {
		return s
	}
	s := PriceScale{precision: r.defaultPrecision}
	r.scales[key] = s
	return s
}

func normalize(instrument string) string {
	return strings.ToUpper(strings.TrimSpace(instrument))
}
