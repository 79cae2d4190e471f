package md

import (
	"time"

	"github.com/shopspring/decimal"

	"gridtrader/internal/order"
)

// Instrument is the per-instrument context supplied alongside market events.
// Name doubles as the key strategies index their state by.
type Instrument struct {
	Exchange order.ExchangeID
	Index    order.InstrumentIndex
	Name     string
}

type Trade struct {
	Price  decimal.Decimal
	Amount decimal.Decimal
}

// MarketEvent carries a price observation. Trade is set for public trade
// prints only; those additionally feed volume-weighted indicators.
type MarketEvent struct {
	Instrument   Instrument
	Price        decimal.Decimal
	TimeReceived time.Time
	Trade        *Trade
}

type AccountEventKind string

const (
	AccountTrade   AccountEventKind = "trade"
	AccountBalance AccountEventKind = "balance"
)

type AccountEvent struct {
	Instrument Instrument
	Kind       AccountEventKind
	Strategy   order.StrategyID
	Side       order.Side
	Price      decimal.Decimal
	Quantity   decimal.Decimal
	Time       time.Time
}
