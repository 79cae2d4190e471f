package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"gridtrader/internal/broker"
	"gridtrader/internal/config"
	"gridtrader/internal/md"
	"gridtrader/internal/metrics"
	"gridtrader/internal/order"
	"gridtrader/internal/risk"
	"gridtrader/internal/state"
	"gridtrader/internal/strategy"
)

// Broker is the execution venue the engine submits to in paper mode.
type Broker interface {
	Submit(ctx context.Context, symbol string, req order.RequestOpen) (broker.OrderRef, error)
	Cancel(ctx context.Context, req order.RequestCancel) error
	OpenOrders(ctx context.Context) ([]broker.OrderRef, error)
	Position(ctx context.Context, symbol string) (broker.Position, error)
	Account(ctx context.Context) (broker.Account, error)
}

type Engine struct {
	cfg         config.Config
	strategy    strategy.Strategy
	gate        risk.Gate
	broker      Broker
	instruments *state.Instruments
	decisions   *DecisionLogger
	logger      zerolog.Logger
	runID       string
	orderSeqNum uint64

	// mu serializes indicator writes against the decision cycle.
	mu sync.Mutex
}

func New(cfg config.Config, strat strategy.Strategy, gate risk.Gate, brokerClient Broker, instruments *state.Instruments, decisions *DecisionLogger, logger zerolog.Logger) *Engine {
	return &Engine{
		cfg:         cfg,
		strategy:    strat,
		gate:        gate,
		broker:      brokerClient,
		instruments: instruments,
		decisions:   decisions,
		logger:      logger.With().Str("component", "engine").Logger(),
		runID:       decisions.RunID(),
	}
}

func (e *Engine) OnMarketEvent(event md.MarketEvent) {
	e.mu.Lock()
	e.instruments.ApplyMarket(event)
	e.mu.Unlock()
	metrics.MarketEventsTotal.WithLabelValues(event.Instrument.Name).Inc()
}

func (e *Engine) OnAccountEvent(event md.AccountEvent) {
	e.mu.Lock()
	known := e.instruments.ApplyAccount(event)
	e.mu.Unlock()
	if !known {
		e.logger.Debug().Str("instrument", event.Instrument.Name).Msg("account event for unknown instrument")
		return
	}
	e.logger.Info().
		Str("instrument", event.Instrument.Name).
		Str("kind", string(event.Kind)).
		Str("side", string(event.Side)).
		Str("qty", event.Quantity.String()).
		Str("price", event.Price.String()).
		Msg("account event")
}

// RunCycle asks the strategy for orders once and routes every request through
// the risk gate. Stream mode only journals; paper mode submits to the broker.
func (e *Engine) RunCycle(ctx context.Context) []Decision {
	e.mu.Lock()
	snapshot := e.instruments.Snapshot()
	cancels, opens := e.strategy.GenerateOrders(snapshot)
	e.mu.Unlock()
	metrics.CyclesTotal.Inc()

	symbols := make(map[order.InstrumentIndex]string, len(snapshot.Instruments))
	for _, inst := range snapshot.Instruments {
		symbols[inst.Instrument.Index] = inst.Instrument.Name
	}

	for _, cancel := range cancels {
		e.cancel(ctx, cancel)
	}

	decisions := make([]Decision, 0, len(opens))
	for _, req := range opens {
		req.Key.CID = e.nextClientOrderID()
		decision := e.route(ctx, symbols[req.Key.Instrument], req)
		e.decisions.Append(decision)
		metrics.OrdersTotal.WithLabelValues(decision.Instrument, string(req.Side), decision.Result).Inc()
		decisions = append(decisions, decision)
	}

	if len(opens) > 0 {
		e.logger.Info().Int("opens", len(opens)).Int("cancels", len(cancels)).Msg("decision cycle")
	}
	return decisions
}

func (e *Engine) route(ctx context.Context, symbol string, req order.RequestOpen) Decision {
	metrics.SignalsTotal.WithLabelValues(string(req.Key.Strategy), string(req.Side)).Inc()
	decision := newDecision(e.runID, symbol, req)

	approved, err := e.gate.Evaluate(req, risk.Context{
		KillSwitch:  e.cfg.KillSwitch,
		MaxNotional: e.cfg.MaxNotional,
	})
	if err != nil {
		decision.Result = "rejected"
		decision.RejectReason = err.Error()
		return decision
	}
	decision.ApprovalReason = approved.Reason

	if e.cfg.Mode == config.ModeStream || e.broker == nil {
		decision.Result = "dry_run"
		e.logger.Info().Str("order", req.String()).Str("instrument", symbol).Msg("dry run")
		return decision
	}

	ref, err := e.broker.Submit(ctx, symbol, approved.Request)
	if err != nil {
		decision.Result = "order_failed"
		decision.RejectReason = err.Error()
		e.logger.Error().Err(err).Str("order", req.String()).Msg("order failed")
		return decision
	}

	decision.Result = "order_submitted"
	decision.OrderID = ref.ID
	if ref.ClientOrderID != "" {
		decision.ClientOrderID = ref.ClientOrderID
	}
	e.logger.Info().
		Str("instrument", symbol).
		Str("side", string(req.Side)).
		Str("qty", req.Quantity.String()).
		Str("order_id", ref.ID).
		Str("client_order_id", decision.ClientOrderID).
		Msg("order submitted")
	return decision
}

func (e *Engine) cancel(ctx context.Context, req order.RequestCancel) {
	if e.cfg.Mode == config.ModeStream || e.broker == nil {
		e.logger.Info().Str("order_id", req.OrderID).Msg("dry run cancel")
		return
	}
	if err := e.broker.Cancel(ctx, req); err != nil {
		e.logger.Error().Err(err).Str("order_id", req.OrderID).Msg("cancel failed")
	}
}

// RunCycles drives RunCycle on a fixed interval until ctx is done.
func (e *Engine) RunCycles(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.RunCycle(ctx)
		}
	}
}

func (e *Engine) RunID() string { return e.runID }

func (e *Engine) nextClientOrderID() order.ClientOrderID {
	seq := atomic.AddUint64(&e.orderSeqNum, 1)
	return order.ClientOrderID(fmt.Sprintf("%s-%d", e.runID, seq))
}
