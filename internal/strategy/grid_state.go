package strategy

import (
	"sort"

	"github.com/shopspring/decimal"

	"gridtrader/internal/md"
)

type Zone int

const (
	BetweenBands Zone = iota
	AboveHighBand
	BelowLowBand
)

func (z Zone) String() string {
	switch z {
	case AboveHighBand:
		return "AboveHighBand"
	case BelowLowBand:
		return "BelowLowBand"
	default:
		return "BetweenBands"
	}
}

type Trend int

const (
	Sideways Trend = iota
	BullishTrend
	BearishTrend
)

func (t Trend) String() string {
	switch t {
	case BullishTrend:
		return "BullishTrend"
	case BearishTrend:
		return "BearishTrend"
	default:
		return "Sideways"
	}
}

// Levels is an ascending set of distinct prices.
type Levels struct {
	values []decimal.Decimal
}

func NewLevels(prices ...decimal.Decimal) Levels {
	var l Levels
	for _, p := range prices {
		l.Insert(p)
	}
	return l
}

func (l *Levels) search(price decimal.Decimal) int {
	return sort.Search(len(l.values), func(i int) bool {
		return l.values[i].GreaterThanOrEqual(price)
	})
}

func (l *Levels) Insert(price decimal.Decimal) bool {
	idx := l.search(price)
	if idx < len(l.values) && l.values[idx].Equal(price) {
		return false
	}
	l.values = append(l.values, decimal.Decimal{})
	copy(l.values[idx+1:], l.values[idx:])
	l.values[idx] = price
	return true
}

func (l Levels) Contains(price decimal.Decimal) bool {
	idx := l.search(price)
	return idx < len(l.values) && l.values[idx].Equal(price)
}

func (l Levels) Len() int { return len(l.values) }

func (l Levels) Empty() bool { return len(l.values) == 0 }

// Values returns a copy, lowest first.
func (l Levels) Values() []decimal.Decimal {
	out := make([]decimal.Decimal, len(l.values))
	copy(out, l.values)
	return out
}

// InstrumentGridState is the mutable grid bookkeeping for one instrument.
// Levels are generated once and stay until a set runs empty; filled levels
// never re-trigger.
type InstrumentGridState struct {
	CurrentPrice decimal.Decimal
	History      *md.RingBuffer
	BuyLevels    Levels
	SellLevels   Levels
	Filled       Levels
	GridSpacing  decimal.Decimal
	LastZone     Zone
	LastTrend    Trend
}

func newInstrumentGridState(price, spacing decimal.Decimal, historyLength int) *InstrumentGridState {
	history := md.NewRingBuffer(historyLength)
	history.Add(price)
	return &InstrumentGridState{
		CurrentPrice: price,
		History:      history,
		GridSpacing:  spacing,
		LastZone:     BetweenBands,
		LastTrend:    Sideways,
	}
}

type crossing struct {
	level  decimal.Decimal
	signal Signal
}

// crossings lists unfilled buy levels crossed downward and unfilled sell
// levels crossed upward between previous and current.
func (s *InstrumentGridState) crossings(previous, current decimal.Decimal) []crossing {
	var out []crossing
	for _, level := range s.BuyLevels.values {
		if s.Filled.Contains(level) {
			continue
		}
		if previous.GreaterThan(level) && current.LessThanOrEqual(level) {
			out = append(out, crossing{level: level, signal: Buy})
		}
	}
	for _, level := range s.SellLevels.values {
		if s.Filled.Contains(level) {
			continue
		}
		if previous.LessThan(level) && current.GreaterThanOrEqual(level) {
			out = append(out, crossing{level: level, signal: Sell})
		}
	}
	return out
}
