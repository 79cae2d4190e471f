package strategy

import (
	"github.com/shopspring/decimal"

	"gridtrader/internal/order"
	"gridtrader/internal/state"
)

const (
	GridID    order.StrategyID = "grid"
	VWAPRSIID order.StrategyID = "vwap"
)

type Signal int

const (
	None Signal = iota
	Buy
	Sell
)

func (s Signal) String() string {
	switch s {
	case Buy:
		return "Buy"
	case Sell:
		return "Sell"
	default:
		return "None"
	}
}

func (s Signal) side() (order.Side, bool) {
	switch s {
	case Buy:
		return order.Buy, true
	case Sell:
		return order.Sell, true
	default:
		return "", false
	}
}

// Strategy turns a read-only view of every instrument into order requests.
// It is called once per decision cycle.
type Strategy interface {
	GenerateOrders(snapshot state.EngineState) ([]order.RequestCancel, []order.RequestOpen)
}

// Sizer converts a signal price into a quantity.
type Sizer interface {
	CalculateQuantity(price decimal.Decimal) decimal.Decimal
	CalculatePositionValue(price decimal.Decimal) decimal.Decimal
	RiskPercentage() decimal.Decimal
}
