package interfaces

import (
	"github.com/shopspring/decimal"
)

// Number is an optional decimal value. A Number with Valid == false means the
// exchange did not report the field at all, which is different from the field
// being zero. Normalizers must never collapse an absent value to zero.
type Number = decimal.NullDecimal

// NumberFrom wraps a concrete decimal into a present Number.
func NumberFrom(d decimal.Decimal) Number {
	return Number{Decimal: d, Valid: true}
}

// NumberFromString parses a decimal string into a Number. Empty or unparsable
// input yields the absent sentinel rather than an error; callers that need to
// distinguish a vendor bug from a missing field should inspect the raw payload.
func NumberFromString(s string) Number {
	if s == "" {
		return Number{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Number{}
	}
	return NumberFrom(d)
}

// Mul multiplies two optional decimals. The result is absent when either
// operand is absent. Used for derived fields such as cost = price * amount.
func Mul(a, b Number) Number {
	if !a.Valid || !b.Valid {
		return Number{}
	}
	return NumberFrom(a.Decimal.Mul(b.Decimal))
}

// Add adds two optional decimals, absent when either operand is absent.
func Add(a, b Number) Number {
	if !a.Valid || !b.Valid {
		return Number{}
	}
	return NumberFrom(a.Decimal.Add(b.Decimal))
}

// Sub subtracts b from a, absent when either operand is absent.
// Used for derived fields such as remaining = amount - filled.
func Sub(a, b Number) Number {
	if !a.Valid || !b.Valid {
		return Number{}
	}
	return NumberFrom(a.Decimal.Sub(b.Decimal))
}

// Market type values used by Market.Type.
const (
	MarketTypeSpot   = "spot"
	MarketTypeSwap   = "swap"
	MarketTypeFuture = "future"
	MarketTypeOption = "option"
)

// Order side values.
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Order type values. Exchange-specific stop variants are collapsed into these
// two plus a trigger price on the order itself.
const (
	OrderTypeLimit  = "limit"
	OrderTypeMarket = "market"
)

// Unified order status values. Adapters map vendor statuses onto these;
// unmapped vendor statuses pass through unchanged.
const (
	OrderStatusOpen      = "open"
	OrderStatusClosed    = "closed"
	OrderStatusCanceled  = "canceled"
	OrderStatusCanceling = "canceling"
	OrderStatusRejected  = "rejected"
	OrderStatusExpired   = "expired"
)

// Taker/maker role values for trades.
const (
	RoleTaker = "taker"
	RoleMaker = "maker"
)

// Unified transaction status values.
const (
	TransactionPending  = "pending"
	TransactionOK       = "ok"
	TransactionCanceled = "canceled"
	TransactionFailed   = "failed"
)

// MinMax bounds an order attribute. Either side may be absent.
type MinMax struct {
	Min Number
	Max Number
}

// MarketPrecision expresses the allowed granularity of amounts and prices.
// Depending on the exchange convention this is either a tick size (e.g. 0.001)
// or a number of decimal places (e.g. 3); each adapter declares which
// convention it normalizes to in its package documentation.
type MarketPrecision struct {
	Amount Number
	Price  Number
}

// MarketLimits bounds orders placed on a market.
type MarketLimits struct {
	Amount   MinMax
	Price    MinMax
	Cost     MinMax
	Leverage MinMax
}

// Market identifies a tradable instrument on an exchange.
//
// Symbol is the unified identifier, deterministically composed as BASE/QUOTE
// for spot markets and BASE/QUOTE:SETTLE for contracts. For spot markets
// Settle, SettleID, ContractSize, Linear and Inverse are all unset.
type Market struct {
	ID       string
	Symbol   string
	Base     string
	Quote    string
	Settle   string
	BaseID   string
	QuoteID  string
	SettleID string

	Type     string
	Spot     bool
	Swap     bool
	Future   bool
	Option   bool
	Contract bool
	Linear   *bool
	Inverse  *bool
	Active   bool

	Taker        Number
	Maker        Number
	ContractSize Number
	Precision    MarketPrecision
	Limits       MarketLimits

	// Info carries the raw vendor record for diagnostics.
	Info map[string]any
}

// CurrencyNetwork describes deposit/withdrawal capabilities of one network
// (chain) for a currency. Deposit and Withdraw are nil when the venue does not
// report the capability.
type CurrencyNetwork struct {
	ID        string
	Network   string
	Deposit   *bool
	Withdraw  *bool
	Active    bool
	Fee       Number
	Precision Number
	Limits    struct {
		Withdrawal MinMax
		Deposit    MinMax
	}
	Info map[string]any
}

// Currency identifies an asset and its per-network capabilities.
// Networks is keyed by unified network codes.
type Currency struct {
	ID        string
	Code      string
	Name      string
	Type      string
	Deposit   *bool
	Withdraw  *bool
	Active    bool
	Fee       Number
	Precision Number
	Limits    struct {
		Withdrawal MinMax
		Deposit    MinMax
	}
	Networks map[string]CurrencyNetwork
	Info     map[string]any
}

// Ticker is a point-in-time market statistics snapshot. Last equals Close by
// convention when both are present.
type Ticker struct {
	Symbol    string
	Timestamp int64
	Datetime  string

	High          Number
	Low           Number
	Bid           Number
	BidVolume     Number
	Ask           Number
	AskVolume     Number
	VWAP          Number
	Open          Number
	Close         Number
	Last          Number
	PreviousClose Number
	Change        Number
	Percentage    Number
	Average       Number
	BaseVolume    Number
	QuoteVolume   Number
	MarkPrice     Number
	IndexPrice    Number

	Info map[string]any
}

// BookLevel is a single price level of an order book side.
type BookLevel struct {
	Price  Number
	Amount Number
}

// OrderBook is a snapshot of the resting orders for a market. Bids are sorted
// by price descending, asks ascending. Empty sides are empty slices, never nil
// semantics callers need to special-case.
type OrderBook struct {
	Symbol    string
	Timestamp int64
	Datetime  string
	Nonce     int64
	Bids      []BookLevel
	Asks      []BookLevel
}

// Fee is a commission attached to a trade, order or transaction.
type Fee struct {
	Currency string
	Cost     Number
	Rate     Number
}

// Trade is one executed transaction on a market.
//
// Side is the calling account's side when known, otherwise the side of the
// taker order. TakerOrMaker is left empty when the account's role cannot be
// derived (for example in self-trades); it is never guessed.
type Trade struct {
	ID        string
	OrderID   string
	Symbol    string
	Timestamp int64
	Datetime  string

	Type         string
	Side         string
	TakerOrMaker string
	Price        Number
	Amount       Number
	Cost         Number
	Fee          *Fee
	Fees         []Fee

	Info map[string]any
}

// OHLCV is one candle. Values are numeric because candle consumers do chart
// math, not money math; precision-sensitive arithmetic never flows through
// this type.
type OHLCV struct {
	Timestamp int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Order is a placed or tracked order.
//
// For market buy orders priced by quote cost, Amount is absent and Cost
// carries the quote quantity instead; this vendor-specific collapsing rule is
// preserved per adapter.
type Order struct {
	ID            string
	ClientOrderID string
	Timestamp     int64
	Datetime      string
	LastTradeTime int64
	Symbol        string

	Type         string
	Side         string
	Price        Number
	TriggerPrice Number
	Amount       Number
	Filled       Number
	Remaining    Number
	Cost         Number
	Average      Number
	Status       string
	TimeInForce  string
	PostOnly     bool
	Fee          *Fee
	Trades       []Trade

	Info map[string]any
}

// Balance is the per-currency funds snapshot. Free is derived as
// Total - Used when the venue reports only the latter two.
type Balance struct {
	Free  Number
	Used  Number
	Total Number
}

// Balances is the whole-account snapshot, overwritten wholesale on each fetch.
type Balances struct {
	Timestamp int64
	Datetime  string
	Assets    map[string]Balance
	Info      map[string]any
}

// Transaction is a deposit or withdrawal.
type Transaction struct {
	ID          string
	TxID        string
	Currency    string
	Network     string
	Amount      Number
	Type        string
	Status      string
	Internal    bool
	Address     string
	AddressFrom string
	AddressTo   string
	Tag         string
	TagFrom     string
	TagTo       string
	Fee         *Fee
	Timestamp   int64
	Datetime    string
	Updated     int64

	Info map[string]any
}

// Transfer is an internal account-to-account movement. FromAccount and
// ToAccount are unified account-type strings (spot, funding, swap, ...).
type Transfer struct {
	ID          string
	Currency    string
	Amount      Number
	FromAccount string
	ToAccount   string
	Status      string
	Timestamp   int64
	Datetime    string

	Info map[string]any
}

// DepositAddress is a deposit destination for a currency on a given network.
type DepositAddress struct {
	Currency string
	Address  string
	Tag      string
	Network  string
	Info     map[string]any
}
