package strategy

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridtrader/internal/md"
	"gridtrader/internal/order"
	"gridtrader/internal/state"
)

var (
	t0  = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	btc = md.Instrument{Exchange: "binance_spot", Index: 0, Name: "btcusdt"}
	eth = md.Instrument{Exchange: "binance_spot", Index: 1, Name: "ethusdt"}
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type feed struct {
	instruments *state.Instruments
	at          time.Time
}

func newFeed(smaPeriod int) *feed {
	cfg := state.DefaultDataConfig()
	cfg.SMAPeriod = smaPeriod
	return &feed{instruments: state.NewInstruments(cfg), at: t0}
}

func (f *feed) push(inst md.Instrument, prices ...string) {
	for _, p := range prices {
		f.instruments.ApplyMarket(md.MarketEvent{Instrument: inst, Price: d(p), TimeReceived: f.at})
		f.at = f.at.Add(time.Second)
	}
}

func newTestGrid() *Grid {
	return NewGrid(DefaultGridConfig(), zerolog.Nop())
}

func TestGridSkipsInstrumentsWithoutReadySMA(t *testing.T) {
	f := newFeed(5)
	f.push(btc, "10", "11", "12")
	grid := newTestGrid()

	cancels, opens := grid.GenerateOrders(f.instruments.Snapshot())

	assert.Empty(t, cancels)
	assert.Empty(t, opens)
	assert.Empty(t, grid.states)
}

func TestGridCrossingEmitsOneBuyAtLevel(t *testing.T) {
	f := newFeed(1)
	f.push(btc, "94")
	grid := newTestGrid()
	grid.states[btc.Name] = &InstrumentGridState{
		CurrentPrice: d("96"),
		History:      md.NewRingBuffer(50),
		BuyLevels:    NewLevels(d("95"), d("90")),
		SellLevels:   NewLevels(d("100")),
		LastZone:     BetweenBands,
	}

	_, opens := grid.GenerateOrders(f.instruments.Snapshot())

	require.Len(t, opens, 1)
	assert.Equal(t, order.Buy, opens[0].Side)
	assert.True(t, opens[0].Price.Equal(d("95")), "price %s", opens[0].Price)
	assert.True(t, grid.states[btc.Name].Filled.Contains(d("95")))
	assert.False(t, grid.states[btc.Name].Filled.Contains(d("90")))

	// back above and down through 95 again
	f.push(btc, "96")
	_, opens = grid.GenerateOrders(f.instruments.Snapshot())
	assert.Empty(t, opens)

	f.push(btc, "94")
	_, opens = grid.GenerateOrders(f.instruments.Snapshot())
	assert.Empty(t, opens)
}

func TestGridSellCrossingIsUpward(t *testing.T) {
	f := newFeed(1)
	f.push(btc, "101")
	grid := newTestGrid()
	grid.states[btc.Name] = &InstrumentGridState{
		CurrentPrice: d("99"),
		History:      md.NewRingBuffer(50),
		BuyLevels:    NewLevels(d("90")),
		SellLevels:   NewLevels(d("100"), d("101"), d("102")),
	}

	_, opens := grid.GenerateOrders(f.instruments.Snapshot())

	require.Len(t, opens, 2)
	assert.Equal(t, order.Sell, opens[0].Side)
	assert.True(t, opens[0].Price.Equal(d("100")))
	assert.True(t, opens[1].Price.Equal(d("101")))
}

func TestFallbackSignal(t *testing.T) {
	tests := []struct {
		previous Zone
		current  Zone
		trend    Trend
		want     Signal
	}{
		{BelowLowBand, BetweenBands, Sideways, Buy},
		{BelowLowBand, BetweenBands, BearishTrend, Buy},
		{AboveHighBand, BetweenBands, BullishTrend, Sell},
		{BetweenBands, BelowLowBand, BullishTrend, Buy},
		{BetweenBands, BelowLowBand, BearishTrend, None},
		{BetweenBands, AboveHighBand, BearishTrend, Sell},
		{BetweenBands, AboveHighBand, Sideways, None},
		{BetweenBands, BetweenBands, BullishTrend, None},
		{AboveHighBand, BelowLowBand, BearishTrend, None},
	}
	for _, tt := range tests {
		got := fallbackSignal(tt.previous, tt.current, tt.trend)
		assert.Equal(t, tt.want, got, "%s -> %s (%s)", tt.previous, tt.current, tt.trend)
	}
}

func TestGridFallbackUsesMarketPrice(t *testing.T) {
	f := newFeed(2)
	// sma of 100 and 100 is 100, so 100 sits between 95 and 105
	f.push(btc, "100", "100")
	grid := newTestGrid()
	grid.states[btc.Name] = &InstrumentGridState{
		CurrentPrice: d("100"),
		History:      md.NewRingBuffer(50),
		BuyLevels:    NewLevels(d("50")),
		SellLevels:   NewLevels(d("150")),
		LastZone:     BelowLowBand,
	}

	_, opens := grid.GenerateOrders(f.instruments.Snapshot())

	require.Len(t, opens, 1)
	assert.Equal(t, order.Buy, opens[0].Side)
	assert.True(t, opens[0].Price.Equal(d("100")))
	assert.Equal(t, BetweenBands, grid.states[btc.Name].LastZone)
}

func TestGridCreatesStateOnFirstSight(t *testing.T) {
	f := newFeed(5)
	f.push(btc, "10", "11", "12", "13", "14", "15")
	grid := newTestGrid()

	_, opens := grid.GenerateOrders(f.instruments.Snapshot())
	assert.Empty(t, opens)

	gs := grid.states[btc.Name]
	require.NotNil(t, gs)
	assert.True(t, gs.CurrentPrice.Equal(d("15")))
	assert.Equal(t, 2, gs.History.Len())
	assert.Equal(t, AboveHighBand, gs.LastZone)
	assert.Equal(t, BullishTrend, gs.LastTrend)
	assert.True(t, gs.GridSpacing.Equal(d("0.225")), "spacing %s", gs.GridSpacing)
	assert.Equal(t, 15, gs.BuyLevels.Len())
	assert.Equal(t, 15, gs.SellLevels.Len())
	assert.True(t, gs.BuyLevels.Values()[14].Equal(d("14.775")))
	assert.True(t, gs.SellLevels.Values()[0].Equal(d("15.225")))
}

func TestGridEndToEnd(t *testing.T) {
	f := newFeed(5)
	f.push(btc, "10", "11", "12", "13", "14")

	data, ok := f.instruments.Get(btc.Name)
	require.True(t, ok)
	sma, ok := data.SMA.Value()
	require.True(t, ok)
	assert.True(t, sma.Equal(d("12")))

	f.push(btc, "15")
	sma, _ = data.SMA.Value()
	assert.True(t, sma.Equal(d("13")))

	cfg := DefaultGridConfig()
	grid := NewGrid(cfg, zerolog.Nop())
	_, opens := grid.GenerateOrders(f.instruments.Snapshot())
	require.Empty(t, opens)

	f.push(btc, "14.7")
	cancels, opens := grid.GenerateOrders(f.instruments.Snapshot())

	assert.Empty(t, cancels)
	require.Len(t, opens, 1)
	level := d("14.775")
	want := cfg.WalletSize.Mul(cfg.RiskPercentage).Div(level).RoundBank(8)

	req := opens[0]
	assert.Equal(t, order.Buy, req.Side)
	assert.True(t, req.Price.Equal(level), "price %s", req.Price)
	assert.True(t, req.Quantity.Equal(want), "qty %s, want %s", req.Quantity, want)
	assert.Equal(t, order.Limit, req.Kind)
	assert.Equal(t, order.GoodUntilEndOfDay, req.TimeInForce)
	assert.Equal(t, order.Key{Exchange: btc.Exchange, Instrument: btc.Index, Strategy: GridID}, req.Key)
}

func TestGridLevelsAreNotRegeneratedOnDrift(t *testing.T) {
	f := newFeed(1)
	f.push(btc, "100")
	grid := newTestGrid()
	grid.GenerateOrders(f.instruments.Snapshot())
	before := grid.states[btc.Name].BuyLevels.Values()

	f.push(btc, "500")
	grid.GenerateOrders(f.instruments.Snapshot())

	assert.Equal(t, before, grid.states[btc.Name].BuyLevels.Values())
}

func TestGridEmitsBuysBeforeSells(t *testing.T) {
	f := newFeed(1)
	f.push(btc, "101")
	f.push(eth, "94")
	grid := newTestGrid()
	grid.states[btc.Name] = &InstrumentGridState{
		CurrentPrice: d("99"),
		History:      md.NewRingBuffer(50),
		BuyLevels:    NewLevels(d("90")),
		SellLevels:   NewLevels(d("100")),
	}
	grid.states[eth.Name] = &InstrumentGridState{
		CurrentPrice: d("96"),
		History:      md.NewRingBuffer(50),
		BuyLevels:    NewLevels(d("95")),
		SellLevels:   NewLevels(d("200")),
	}

	_, opens := grid.GenerateOrders(f.instruments.Snapshot())

	require.Len(t, opens, 2)
	assert.Equal(t, order.Buy, opens[0].Side)
	assert.Equal(t, eth.Index, opens[0].Key.Instrument)
	assert.Equal(t, order.Sell, opens[1].Side)
	assert.Equal(t, btc.Index, opens[1].Key.Instrument)
}

func TestGridDropsNonPositiveBuyLevels(t *testing.T) {
	cfg := DefaultGridConfig()
	cfg.GridSpacingPercentage = d("0.3")
	cfg.MaxGridLevels = 5
	grid := NewGrid(cfg, zerolog.Nop())

	// volatility 3 keeps the multiplier at one, so spacing is 3
	buy, sell := grid.levels(d("10"), d("3"))

	require.Equal(t, 3, buy.Len())
	for i, want := range []string{"1", "4", "7"} {
		assert.True(t, buy.Values()[i].Equal(d(want)), "buy level %d: %s", i, buy.Values()[i])
	}
	assert.Equal(t, 5, sell.Len())
}

func TestVolatilityZeroTMA(t *testing.T) {
	assert.True(t, volatility(d("0"), d("0"), d("0")).IsZero())
	assert.True(t, volatility(d("105"), d("95"), d("100")).Equal(d("10")))
}

func TestTrendOf(t *testing.T) {
	assert.Equal(t, BullishTrend, trendOf(d("101"), d("102"), d("100")))
	assert.Equal(t, BearishTrend, trendOf(d("99"), d("100"), d("100")))
	assert.Equal(t, Sideways, trendOf(d("101"), d("99"), d("100")))
}

func TestLevelsKeepAscendingDistinctValues(t *testing.T) {
	levels := NewLevels(d("3"), d("1"), d("2"), d("1.0"))

	assert.Equal(t, 3, levels.Len())
	values := levels.Values()
	assert.True(t, values[0].Equal(d("1")))
	assert.True(t, values[1].Equal(d("2")))
	assert.True(t, values[2].Equal(d("3")))
	assert.True(t, levels.Contains(d("2.00")))
	assert.False(t, levels.Contains(d("2.5")))
}

func TestGridConcurrentGenerateOrdersKeepsOneStatePerInstrument(t *testing.T) {
	f := newFeed(1)
	f.push(btc, "100")
	f.push(eth, "2000")
	snapshot := f.instruments.Snapshot()
	grid := newTestGrid()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			grid.GenerateOrders(snapshot)
		}()
	}
	wg.Wait()

	grid.mu.Lock()
	defer grid.mu.Unlock()
	assert.Len(t, grid.states, 2)
	assert.Contains(t, grid.states, btc.Name)
	assert.Contains(t, grid.states, eth.Name)
}
