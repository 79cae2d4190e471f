package risk

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"gridtrader/internal/order"
)

var (
	ErrKillSwitch   = errors.New("kill_switch_enabled")
	ErrZeroQuantity = errors.New("invalid_quantity")
	ErrMaxNotional  = errors.New("max_notional_exceeded")
	ErrBadPrice     = errors.New("invalid_price")
)

// Context carries the limits an order is checked against. A zero MaxNotional
// disables the notional check.
type Context struct {
	KillSwitch  bool
	MaxNotional decimal.Decimal
}

type Approved struct {
	Request order.RequestOpen
	Reason  string
}

type Gate struct {
	Logger zerolog.Logger
}

func NewGate(logger zerolog.Logger) Gate {
	return Gate{Logger: logger.With().Str("component", "risk").Logger()}
}

func (g Gate) Evaluate(req order.RequestOpen, ctx Context) (Approved, error) {
	notional := req.Notional()

	g.Logger.Debug().
		Str("strategy", string(req.Key.Strategy)).
		Int("instrument", int(req.Key.Instrument)).
		Str("side", string(req.Side)).
		Str("qty", req.Quantity.String()).
		Str("price", req.Price.String()).
		Str("notional", notional.String()).
		Msg("risk evaluation")

	if ctx.KillSwitch {
		return g.reject(req, ErrKillSwitch)
	}
	if !req.Quantity.IsPositive() {
		return g.reject(req, ErrZeroQuantity)
	}
	if req.Kind == order.Limit && !req.Price.IsPositive() {
		return g.reject(req, ErrBadPrice)
	}
	if ctx.MaxNotional.IsPositive() && notional.GreaterThan(ctx.MaxNotional) {
		return g.reject(req, fmt.Errorf("%w: %s > %s", ErrMaxNotional, notional, ctx.MaxNotional))
	}

	g.Logger.Info().Str("order", req.String()).Msg("risk approved")
	return Approved{Request: req, Reason: "approved"}, nil
}

func (g Gate) reject(req order.RequestOpen, err error) (Approved, error) {
	g.Logger.Info().Str("order", req.String()).Str("reason", err.Error()).Msg("risk rejected")
	return Approved{}, err
}
