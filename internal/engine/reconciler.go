package engine

import (
	"context"
	"errors"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"

	"gridtrader/internal/md"
	"gridtrader/internal/order"
)

// Reconciler polls the broker and turns position changes into fill events.
type Reconciler struct {
	broker    Broker
	engine    *Engine
	positions map[string]decimal.Decimal
	now       func() time.Time
}

func NewReconciler(brokerClient Broker, e *Engine) *Reconciler {
	return &Reconciler{
		broker:    brokerClient,
		engine:    e,
		positions: map[string]decimal.Decimal{},
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func SyncAccountLoop(ctx context.Context, brokerClient Broker, e *Engine, interval time.Duration) {
	r := NewReconciler(brokerClient, e)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.SyncOnce(ctx)
		}
	}
}

func (r *Reconciler) SyncOnce(ctx context.Context) {
	logger := r.engine.logger

	orders, err := r.broker.OpenOrders(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("reconcile open orders failed")
	} else {
		logger.Debug().Int("open_orders", len(orders)).Msg("reconciled open orders")
	}

	for _, inst := range r.engine.instruments.Snapshot().Instruments {
		qty, avgEntry, ok := r.position(ctx, inst.Instrument.Name)
		if !ok {
			continue
		}
		previous, seen := r.positions[inst.Instrument.Name]
		r.positions[inst.Instrument.Name] = qty
		if !seen {
			continue
		}
		delta := qty.Sub(previous)
		if delta.IsZero() {
			continue
		}
		side := order.Buy
		if delta.IsNegative() {
			side = order.Sell
		}
		r.engine.OnAccountEvent(md.AccountEvent{
			Instrument: inst.Instrument,
			Kind:       md.AccountTrade,
			Side:       side,
			Price:      avgEntry,
			Quantity:   delta.Abs(),
			Time:       r.now(),
		})
	}

	account, err := r.broker.Account(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("reconcile account failed")
		return
	}
	logger.Info().
		Str("equity", account.Equity.StringFixed(2)).
		Str("buying_power", account.BuyingPower.StringFixed(2)).
		Str("cash", account.Cash.StringFixed(2)).
		Msg("account")
}

// position treats a 404 from the broker as a flat position.
func (r *Reconciler) position(ctx context.Context, symbol string) (qty, avgEntry decimal.Decimal, ok bool) {
	pos, err := r.broker.Position(ctx, symbol)
	if err != nil {
		var apiErr *alpaca.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
			return decimal.Zero, decimal.Zero, true
		}
		r.engine.logger.Error().Err(err).Str("symbol", symbol).Msg("reconcile position failed")
		return decimal.Zero, decimal.Zero, false
	}
	return pos.Qty, pos.AvgEntry, true
}
