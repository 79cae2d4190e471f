package strategy

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"gridtrader/internal/order"
	"gridtrader/internal/risk"
	"gridtrader/internal/state"
)

type VWAPRSIConfig struct {
	ID             order.StrategyID
	WalletSize     decimal.Decimal
	RiskPercentage decimal.Decimal
	// MinDeviation is the distance from VWAP, in percent, price must exceed.
	MinDeviation decimal.Decimal
	Oversold     decimal.Decimal
	Overbought   decimal.Decimal
}

func DefaultVWAPRSIConfig() VWAPRSIConfig {
	return VWAPRSIConfig{
		ID:             VWAPRSIID,
		WalletSize:     decimal.NewFromInt(10000),
		RiskPercentage: risk.DefaultRiskPercentage,
		MinDeviation:   decimal.RequireFromString("0.5"),
		Oversold:       decimal.NewFromInt(30),
		Overbought:     decimal.NewFromInt(70),
	}
}

// VWAPRSI buys when price trades well below VWAP with RSI oversold and sells
// in the mirrored case. It keeps no state between cycles.
type VWAPRSI struct {
	cfg    VWAPRSIConfig
	sizer  Sizer
	logger zerolog.Logger
}

func NewVWAPRSI(cfg VWAPRSIConfig, logger zerolog.Logger) *VWAPRSI {
	if cfg.ID == "" {
		cfg.ID = VWAPRSIID
	}
	return &VWAPRSI{
		cfg:    cfg,
		sizer:  risk.NewPositionSizerWithRisk(cfg.WalletSize, cfg.RiskPercentage),
		logger: logger.With().Str("strategy", string(cfg.ID)).Logger(),
	}
}

func (v *VWAPRSI) GenerateOrders(snapshot state.EngineState) ([]order.RequestCancel, []order.RequestOpen) {
	var opens []order.RequestOpen
	for _, inst := range snapshot.Instruments {
		price, ok := inst.Data.Price()
		if !ok {
			continue
		}
		vwap, ok := inst.Data.VWAP.Value()
		if !ok || vwap.IsZero() {
			continue
		}
		rsi, ok := inst.Data.RSI.Value()
		if !ok {
			continue
		}

		signal := v.classify(price, vwap, rsi)
		deviation := deviationPct(price, vwap)
		v.logger.Debug().
			Str("instrument", inst.Instrument.Name).
			Str("price", price.String()).
			Str("vwap", vwap.StringFixed(3)).
			Str("rsi", rsi.StringFixed(3)).
			Str("deviation_pct", deviation.StringFixed(2)).
			Stringer("signal", signal).
			Msg("vwap check")

		side, ok := signal.side()
		if !ok {
			continue
		}
		quantity := v.sizer.CalculateQuantity(price)
		key := order.Key{
			Exchange:   inst.Instrument.Exchange,
			Instrument: inst.Instrument.Index,
			Strategy:   v.cfg.ID,
		}
		opens = append(opens, order.NewLimitOpen(key, side, price, quantity))
		v.logger.Info().
			Str("side", string(side)).
			Str("instrument", inst.Instrument.Name).
			Str("price", price.String()).
			Str("qty", quantity.String()).
			Str("deviation_pct", deviation.StringFixed(2)).
			Msg("vwap signal")
	}
	return nil, opens
}

func (v *VWAPRSI) classify(price, vwap, rsi decimal.Decimal) Signal {
	if deviationPct(price, vwap).LessThanOrEqual(v.cfg.MinDeviation) {
		return None
	}
	switch {
	case price.LessThan(vwap) && rsi.LessThan(v.cfg.Oversold):
		return Buy
	case price.GreaterThan(vwap) && rsi.GreaterThan(v.cfg.Overbought):
		return Sell
	default:
		return None
	}
}

func deviationPct(price, vwap decimal.Decimal) decimal.Decimal {
	return price.Sub(vwap).Div(vwap).Mul(decimal.NewFromInt(100)).Abs()
}
