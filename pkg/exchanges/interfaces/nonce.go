package interfaces

import (
	"sync"
	"time"
)

// NonceSource generates strictly increasing nonces for request signing.
//
// Values are clock-derived (epoch in the configured unit) but guarded by a
// counter so that two signing operations racing within the same tick still
// observe distinct, increasing values. Scope is a single process; venues only
// require monotonicity per API key.
type NonceSource struct {
	mu     sync.Mutex
	last   int64
	unit   time.Duration
	offset time.Duration
}

// NewNonceSource returns a source emitting epoch values in the given unit
// (time.Millisecond, time.Microsecond, time.Nanosecond).
func NewNonceSource(unit time.Duration) *NonceSource {
	return &NonceSource{unit: unit}
}

// SetOffset adjusts subsequent nonces by a fixed duration to counteract clock
// skew between the client and the venue.
func (n *NonceSource) SetOffset(offset time.Duration) {
	n.mu.Lock()
	n.offset = offset
	n.mu.Unlock()
}

// Next returns the next nonce. The result is the current adjusted clock
// reading, bumped past the previous value if the clock has not advanced.
func (n *NonceSource) Next() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	now := time.Now().Add(n.offset).UnixNano() / int64(n.unit)
	if now <= n.last {
		now = n.last + 1
	}
	n.last = now
	return now
}
