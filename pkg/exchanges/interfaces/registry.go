package interfaces

import (
	"strings"
	"sync"
)

// MarketRegistry holds an adapter's loaded markets and resolves vendor market
// ids to unified markets and symbols. The tables are written once per
// LoadMarkets call and read concurrently by every normalizer, which is why all
// access is guarded.
//
// Resolution prefers, in order: a market the caller already holds, the loaded
// table, and finally a market synthesized from the id's delimiter structure.
// Delegating all symbol formatting here guarantees identical symbols across
// every entity type within one adapter.
type MarketRegistry struct {
	mu       sync.RWMutex
	byID     map[string]*Market
	bySymbol map[string]*Market
	loaded   bool
}

// NewMarketRegistry returns an empty registry.
func NewMarketRegistry() *MarketRegistry {
	return &MarketRegistry{
		byID:     make(map[string]*Market),
		bySymbol: make(map[string]*Market),
	}
}

// Store replaces the registry contents with the given markets and marks the
// registry loaded.
func (r *MarketRegistry) Store(markets []*Market) {
	byID := make(map[string]*Market, len(markets))
	bySymbol := make(map[string]*Market, len(markets))
	for _, m := range markets {
		byID[m.ID] = m
		bySymbol[m.Symbol] = m
	}
	r.mu.Lock()
	r.byID = byID
	r.bySymbol = bySymbol
	r.loaded = true
	r.mu.Unlock()
}

// Loaded reports whether Store has been called.
func (r *MarketRegistry) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// All returns the loaded markets in unspecified order.
func (r *MarketRegistry) All() []*Market {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Market, 0, len(r.bySymbol))
	for _, m := range r.bySymbol {
		out = append(out, m)
	}
	return out
}

// BySymbol resolves a unified symbol to its market, or ErrBadSymbol when the
// symbol is unknown.
func (r *MarketRegistry) BySymbol(exchange, symbol string) (*Market, error) {
	r.mu.RLock()
	m, ok := r.bySymbol[symbol]
	r.mu.RUnlock()
	if !ok {
		return nil, NewAPIError(exchange, ErrBadSymbol, "", "unknown symbol "+symbol, "")
	}
	return m, nil
}

// ByID resolves a vendor market id to its loaded market.
func (r *MarketRegistry) ByID(id string) (*Market, bool) {
	r.mu.RLock()
	m, ok := r.byID[id]
	r.mu.RUnlock()
	return m, ok
}

// SafeMarket resolves or synthesizes a market for a vendor id. A non-nil
// market argument wins; otherwise the loaded table is consulted; otherwise a
// minimal spot market is synthesized by splitting the id on the delimiter
// (empty delimiter means no synthesis). The result is never nil.
func (r *MarketRegistry) SafeMarket(id string, market *Market, delimiter string) *Market {
	if market != nil {
		return market
	}
	if m, ok := r.ByID(id); ok {
		return m
	}
	synthesized := &Market{ID: id, Symbol: id, Type: MarketTypeSpot, Spot: true}
	if delimiter != "" {
		if parts := strings.Split(id, delimiter); len(parts) == 2 {
			base := strings.ToUpper(parts[0])
			quote := strings.ToUpper(parts[1])
			synthesized.Base = base
			synthesized.Quote = quote
			synthesized.BaseID = parts[0]
			synthesized.QuoteID = parts[1]
			synthesized.Symbol = base + "/" + quote
		}
	}
	return synthesized
}

// SafeSymbol resolves or synthesizes the unified symbol for a vendor id.
func (r *MarketRegistry) SafeSymbol(id string, market *Market, delimiter string) string {
	return r.SafeMarket(id, market, delimiter).Symbol
}

// CurrencyRegistry holds an adapter's loaded currencies and maps vendor asset
// ids to unified codes.
type CurrencyRegistry struct {
	mu     sync.RWMutex
	byID   map[string]*Currency
	byCode map[string]*Currency
}

// NewCurrencyRegistry returns an empty registry.
func NewCurrencyRegistry() *CurrencyRegistry {
	return &CurrencyRegistry{
		byID:   make(map[string]*Currency),
		byCode: make(map[string]*Currency),
	}
}

// Store replaces the registry contents.
func (r *CurrencyRegistry) Store(currencies map[string]*Currency) {
	byID := make(map[string]*Currency, len(currencies))
	byCode := make(map[string]*Currency, len(currencies))
	for _, c := range currencies {
		byID[c.ID] = c
		byCode[c.Code] = c
	}
	r.mu.Lock()
	r.byID = byID
	r.byCode = byCode
	r.mu.Unlock()
}

// ByCode resolves a unified currency code.
func (r *CurrencyRegistry) ByCode(code string) (*Currency, bool) {
	r.mu.RLock()
	c, ok := r.byCode[code]
	r.mu.RUnlock()
	return c, ok
}

// Code maps a vendor asset id to its unified code, falling back to the
// uppercased id when the currency table is not loaded.
func (r *CurrencyRegistry) Code(id string) string {
	r.mu.RLock()
	c, ok := r.byID[id]
	r.mu.RUnlock()
	if ok {
		return c.Code
	}
	return strings.ToUpper(id)
}
