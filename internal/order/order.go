package order

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type ExchangeID string

type InstrumentIndex int

type StrategyID string

type ClientOrderID string

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

type Kind string

const (
	Limit  Kind = "LIMIT"
	Market Kind = "MARKET"
)

type TimeInForce string

const (
	GoodUntilEndOfDay TimeInForce = "GOOD_UNTIL_END_OF_DAY"
	ImmediateOrCancel TimeInForce = "IMMEDIATE_OR_CANCEL"
)

// Key identifies who an order request belongs to. CID is left empty by
// strategies and assigned by the engine before submission.
type Key struct {
	Exchange   ExchangeID
	Instrument InstrumentIndex
	Strategy   StrategyID
	CID        ClientOrderID
}

type RequestOpen struct {
	Key         Key
	Side        Side
	Price       decimal.Decimal
	Quantity    decimal.Decimal
	Kind        Kind
	TimeInForce TimeInForce
}

// Notional is price times quantity.
func (r RequestOpen) Notional() decimal.Decimal {
	return r.Price.Mul(r.Quantity)
}

func (r RequestOpen) String() string {
	return fmt.Sprintf("%s %s %s@%s (%s/%d %s %s)",
		r.Key.Strategy, r.Side, r.Quantity.String(), r.Price.String(),
		r.Key.Exchange, r.Key.Instrument, r.Kind, r.TimeInForce)
}

type RequestCancel struct {
	Key     Key
	OrderID string
}

// NewLimitOpen builds the limit, good-until-end-of-day request every strategy in
// this module emits.
func NewLimitOpen(key Key, side Side, price, quantity decimal.Decimal) RequestOpen {
	return RequestOpen{
		Key:         key,
		Side:        side,
		Price:       price,
		Quantity:    quantity,
		Kind:        Limit,
		TimeInForce: GoodUntilEndOfDay,
	}
}
