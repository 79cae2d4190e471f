package state

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"gridtrader/internal/indicator"
	"gridtrader/internal/md"
)

// DataConfig sizes the indicators every instrument carries.
type DataConfig struct {
	SMAPeriod       int
	RSIPeriod       int
	RSIWindow       time.Duration
	VWAPResetPeriod time.Duration
}

func DefaultDataConfig() DataConfig {
	return DataConfig{
		SMAPeriod:       14,
		RSIPeriod:       14,
		RSIWindow:       indicator.DefaultRSIWindow,
		VWAPResetPeriod: 24 * time.Hour,
	}
}

// AlgorithmData is the per-instrument view strategies read: the last observed
// price plus the indicators fed from the same events.
type AlgorithmData struct {
	price      decimal.Decimal
	hasPrice   bool
	lastUpdate time.Time
	trades     int
	fills      int

	SMA  *indicator.SMA
	RSI  *indicator.RSI
	VWAP *indicator.VWAP
}

func NewAlgorithmData(cfg DataConfig) *AlgorithmData {
	rsi := indicator.NewRSI(cfg.RSIPeriod)
	if cfg.RSIWindow > 0 {
		rsi.SetWindow(cfg.RSIWindow)
	}
	vwap := indicator.NewDailyVWAP()
	if cfg.VWAPResetPeriod > 0 {
		vwap.SetResetPeriod(cfg.VWAPResetPeriod)
	}
	return &AlgorithmData{
		SMA:  indicator.NewSMA(cfg.SMAPeriod),
		RSI:  rsi,
		VWAP: vwap,
	}
}

// Update records the event price and feeds every indicator. Only trade
// prints reach VWAP.
func (a *AlgorithmData) Update(event md.MarketEvent) {
	a.price = event.Price
	a.hasPrice = true
	a.lastUpdate = event.TimeReceived

	a.SMA.Update(event.Price)
	a.RSI.Update(event.Price, event.TimeReceived)

	if event.Trade != nil {
		a.trades++
		a.VWAP.Update(event.Trade.Price, event.Trade.Amount, event.TimeReceived)
	}
}

// OnAccountEvent observes fills and balance changes. Indicators never depend
// on them; fills are only counted.
func (a *AlgorithmData) OnAccountEvent(event md.AccountEvent) {
	if event.Kind == md.AccountTrade {
		a.fills++
	}
}

func (a *AlgorithmData) Price() (decimal.Decimal, bool) {
	return a.price, a.hasPrice
}

func (a *AlgorithmData) LastUpdate() time.Time { return a.lastUpdate }

func (a *AlgorithmData) TradeCount() int { return a.trades }

func (a *AlgorithmData) Fills() int { return a.fills }

type InstrumentState struct {
	Instrument md.Instrument
	Data       *AlgorithmData
}

// EngineState is the snapshot handed to strategies once per decision cycle.
// Instruments keep registration order.
type EngineState struct {
	Instruments []InstrumentState
}

// Instruments owns the AlgorithmData of every known instrument, keyed by name.
type Instruments struct {
	mu     sync.RWMutex
	cfg    DataConfig
	order  []InstrumentState
	byName map[string]int
}

func NewInstruments(cfg DataConfig) *Instruments {
	return &Instruments{
		cfg:    cfg,
		byName: map[string]int{},
	}
}

// Register adds an instrument if its name is new and returns its data.
func (s *Instruments) Register(instrument md.Instrument) *AlgorithmData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registerLocked(instrument)
}

func (s *Instruments) registerLocked(instrument md.Instrument) *AlgorithmData {
	if idx, ok := s.byName[instrument.Name]; ok {
		return s.order[idx].Data
	}
	data := NewAlgorithmData(s.cfg)
	s.byName[instrument.Name] = len(s.order)
	s.order = append(s.order, InstrumentState{Instrument: instrument, Data: data})
	return data
}

// ApplyMarket routes a market event to its instrument, registering unseen ones.
func (s *Instruments) ApplyMarket(event md.MarketEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registerLocked(event.Instrument).Update(event)
}

// ApplyAccount forwards an account event to a known instrument. Events for
// unknown instruments are dropped.
func (s *Instruments) ApplyAccount(event md.AccountEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byName[event.Instrument.Name]
	if !ok {
		return false
	}
	s.order[idx].Data.OnAccountEvent(event)
	return true
}

func (s *Instruments) Get(name string) (*AlgorithmData, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return s.order[idx].Data, true
}

func (s *Instruments) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Snapshot copies the instrument list. The AlgorithmData pointers are shared,
// so callers must not run it concurrently with ApplyMarket.
func (s *Instruments) Snapshot() EngineState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make([]InstrumentState, len(s.order))
	copy(copied, s.order)
	return EngineState{Instruments: copied}
}
