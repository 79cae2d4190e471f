package strategy

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"gridtrader/internal/md"
	"gridtrader/internal/order"
	"gridtrader/internal/risk"
	"gridtrader/internal/state"
)

var (
	highVolatility       = decimal.NewFromInt(5)
	lowVolatility        = decimal.NewFromInt(2)
	highVolatilityFactor = decimal.RequireFromString("1.5")
	lowVolatilityFactor  = decimal.RequireFromString("0.7")
)

// GridConfig holds the grid parameters. The TMA period lives on
// state.DataConfig.SMAPeriod since the grid reads the shared SMA.
type GridConfig struct {
	ID                    order.StrategyID
	WalletSize            decimal.Decimal
	RiskPercentage        decimal.Decimal
	BandPercentage        decimal.Decimal
	GridSpacingPercentage decimal.Decimal
	MaxGridLevels         int
	PriceHistoryLength    int
}

func DefaultGridConfig() GridConfig {
	return GridConfig{
		ID:                    GridID,
		WalletSize:            decimal.NewFromInt(10000),
		RiskPercentage:        risk.DefaultRiskPercentage,
		BandPercentage:        decimal.RequireFromString("0.05"),
		GridSpacingPercentage: decimal.RequireFromString("0.01"),
		MaxGridLevels:         15,
		PriceHistoryLength:    50,
	}
}

// Grid places a ladder of buy levels below and sell levels above the price
// seen when an instrument is first evaluated, and signals each level once
// when price crosses it. Band transitions around the SMA act as a fallback.
type Grid struct {
	cfg    GridConfig
	sizer  Sizer
	logger zerolog.Logger

	mu     sync.Mutex
	states map[string]*InstrumentGridState
}

func NewGrid(cfg GridConfig, logger zerolog.Logger) *Grid {
	if cfg.ID == "" {
		cfg.ID = GridID
	}
	return &Grid{
		cfg:    cfg,
		sizer:  risk.NewPositionSizerWithRisk(cfg.WalletSize, cfg.RiskPercentage),
		logger: logger.With().Str("strategy", string(cfg.ID)).Logger(),
		states: map[string]*InstrumentGridState{},
	}
}

func (g *Grid) ID() order.StrategyID { return g.cfg.ID }

type gridSignal struct {
	signal     Signal
	instrument md.Instrument
	price      decimal.Decimal
	tma        decimal.Decimal
	highBand   decimal.Decimal
	lowBand    decimal.Decimal
	volatility decimal.Decimal
	source     string
	level      *decimal.Decimal
}

func (g *Grid) GenerateOrders(snapshot state.EngineState) ([]order.RequestCancel, []order.RequestOpen) {
	var buys, sells []order.RequestOpen
	for _, inst := range snapshot.Instruments {
		for _, sig := range g.evaluate(inst) {
			req, ok := g.buildOrder(sig)
			if !ok {
				continue
			}
			if req.Side == order.Buy {
				buys = append(buys, req)
			} else {
				sells = append(sells, req)
			}
		}
	}
	return nil, append(buys, sells...)
}

// evaluate runs one classification step for an instrument. Instruments
// without a price or a ready SMA are skipped and their grid state is left
// untouched.
func (g *Grid) evaluate(inst state.InstrumentState) []gridSignal {
	price, ok := inst.Data.Price()
	if !ok {
		return nil
	}
	sma, ok := inst.Data.SMA.Value()
	if !ok {
		return nil
	}

	tma := sma
	highBand, lowBand := g.bands(tma)
	vol := volatility(highBand, lowBand, tma)
	zone := zoneOf(price, highBand, lowBand)
	name := inst.Instrument.Name

	g.mu.Lock()
	defer g.mu.Unlock()

	gs, ok := g.states[name]
	if !ok {
		gs = newInstrumentGridState(price, g.spacing(price, vol), g.cfg.PriceHistoryLength)
		g.states[name] = gs
	}

	previousZone := gs.LastZone
	previousPrice := gs.CurrentPrice

	gs.History.Add(price)
	trend := trendOf(price, previousPrice, tma)

	if gs.BuyLevels.Empty() || gs.SellLevels.Empty() {
		gs.BuyLevels, gs.SellLevels = g.levels(price, vol)
		lo, hi, avg := gs.History.Range()
		g.logger.Info().
			Str("instrument", name).
			Str("price", price.String()).
			Str("tma", tma.String()).
			Str("spacing", gs.GridSpacing.String()).
			Int("buy_levels", gs.BuyLevels.Len()).
			Int("sell_levels", gs.SellLevels.Len()).
			Str("range_low", lo.String()).
			Str("range_high", hi.String()).
			Str("range_avg", avg.String()).
			Msg("grid setup")
	}

	base := gridSignal{
		instrument: inst.Instrument,
		tma:        tma,
		highBand:   highBand,
		lowBand:    lowBand,
		volatility: vol,
	}

	var signals []gridSignal
	for _, c := range gs.crossings(previousPrice, price) {
		level := c.level
		sig := base
		sig.signal = c.signal
		sig.price = level
		sig.level = &level
		sig.source = fmt.Sprintf("GRID_LEVEL_%s@%s", c.signal, level.StringFixed(6))
		signals = append(signals, sig)
		gs.Filled.Insert(level)
	}

	if len(signals) == 0 {
		if s := fallbackSignal(previousZone, zone, trend); s != None {
			sig := base
			sig.signal = s
			sig.price = price
			sig.source = fmt.Sprintf("TRADITIONAL_%s->%s", previousZone, zone)
			signals = append(signals, sig)
		}
	}

	gs.CurrentPrice = price
	gs.LastZone = zone
	gs.LastTrend = trend

	return signals
}

func (g *Grid) buildOrder(sig gridSignal) (order.RequestOpen, bool) {
	side, ok := sig.signal.side()
	if !ok {
		return order.RequestOpen{}, false
	}
	quantity := g.sizer.CalculateQuantity(sig.price)
	value := g.sizer.CalculatePositionValue(sig.price)

	level := "Market"
	if sig.level != nil {
		level = "GridLevel@" + sig.level.StringFixed(6)
	}

	g.logger.Info().
		Str("side", string(side)).
		Str("instrument", sig.instrument.Name).
		Str("price", sig.price.String()).
		Str("qty", quantity.String()).
		Str("value", value.StringFixed(2)).
		Str("tma", sig.tma.String()).
		Str("low_band", sig.lowBand.String()).
		Str("high_band", sig.highBand.String()).
		Str("volatility", sig.volatility.StringFixed(2)).
		Str("source", sig.source).
		Str("level", level).
		Str("risk_pct", g.sizer.RiskPercentage().Mul(decimal.NewFromInt(100)).StringFixed(2)).
		Msg("grid signal")

	key := order.Key{
		Exchange:   sig.instrument.Exchange,
		Instrument: sig.instrument.Index,
		Strategy:   g.cfg.ID,
	}
	return order.NewLimitOpen(key, side, sig.price, quantity), true
}

func (g *Grid) bands(tma decimal.Decimal) (high, low decimal.Decimal) {
	offset := tma.Mul(g.cfg.BandPercentage)
	return tma.Add(offset), tma.Sub(offset)
}

func (g *Grid) spacing(price, volatility decimal.Decimal) decimal.Decimal {
	multiplier := decimal.NewFromInt(1)
	switch {
	case volatility.GreaterThan(highVolatility):
		multiplier = highVolatilityFactor
	case volatility.LessThan(lowVolatility):
		multiplier = lowVolatilityFactor
	}
	return price.Mul(g.cfg.GridSpacingPercentage).Mul(multiplier)
}

// levels builds MaxGridLevels steps on each side of price. Non-positive buy
// levels are dropped.
func (g *Grid) levels(price, volatility decimal.Decimal) (buy, sell Levels) {
	spacing := g.spacing(price, volatility)
	for i := 1; i <= g.cfg.MaxGridLevels; i++ {
		step := spacing.Mul(decimal.NewFromInt(int64(i)))
		if level := price.Sub(step); level.IsPositive() {
			buy.Insert(level)
		}
		sell.Insert(price.Add(step))
	}
	return buy, sell
}

func volatility(highBand, lowBand, tma decimal.Decimal) decimal.Decimal {
	if tma.IsZero() {
		return decimal.Zero
	}
	return highBand.Sub(lowBand).Div(tma).Mul(decimal.NewFromInt(100))
}

func zoneOf(price, highBand, lowBand decimal.Decimal) Zone {
	switch {
	case price.GreaterThan(highBand):
		return AboveHighBand
	case price.LessThan(lowBand):
		return BelowLowBand
	default:
		return BetweenBands
	}
}

func trendOf(price, previous, tma decimal.Decimal) Trend {
	above, previousAbove := price.GreaterThan(tma), previous.GreaterThan(tma)
	switch {
	case above && previousAbove:
		return BullishTrend
	case !above && !previousAbove:
		return BearishTrend
	default:
		return Sideways
	}
}

func fallbackSignal(previous, current Zone, trend Trend) Signal {
	switch {
	case previous == BelowLowBand && current == BetweenBands:
		return Buy
	case previous == AboveHighBand && current == BetweenBands:
		return Sell
	case previous == BetweenBands && current == BelowLowBand && trend == BullishTrend:
		return Buy
	case previous == BetweenBands && current == AboveHighBand && trend == BearishTrend:
		return Sell
	default:
		return None
	}
}
