package engine

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"gridtrader/internal/order"
)

// Decision is one journal line per order request a strategy produced.
type Decision struct {
	RunID           string                `json:"run_id"`
	Timestamp       time.Time             `json:"timestamp"`
	Strategy        order.StrategyID      `json:"strategy"`
	Exchange        order.ExchangeID      `json:"exchange"`
	Instrument      string                `json:"instrument"`
	InstrumentIndex order.InstrumentIndex `json:"instrument_index"`
	Side            order.Side            `json:"side"`
	Price           decimal.Decimal       `json:"price"`
	Quantity        decimal.Decimal       `json:"quantity"`
	Kind            order.Kind            `json:"kind"`
	TimeInForce     order.TimeInForce     `json:"time_in_force"`
	Result          string                `json:"result"`
	ApprovalReason  string                `json:"approval_reason,omitempty"`
	RejectReason    string                `json:"reject_reason,omitempty"`
	OrderID         string                `json:"order_id,omitempty"`
	ClientOrderID   string                `json:"client_order_id,omitempty"`
}

func newDecision(runID, symbol string, req order.RequestOpen) Decision {
	return Decision{
		RunID:           runID,
		Timestamp:       time.Now().UTC(),
		Strategy:        req.Key.Strategy,
		Exchange:        req.Key.Exchange,
		Instrument:      symbol,
		InstrumentIndex: req.Key.Instrument,
		Side:            req.Side,
		Price:           req.Price,
		Quantity:        req.Quantity,
		Kind:            req.Kind,
		TimeInForce:     req.TimeInForce,
		ClientOrderID:   string(req.Key.CID),
	}
}

type DecisionLogger struct {
	runID  string
	file   *os.File
	writer *bufio.Writer
	logger zerolog.Logger
	mu     sync.Mutex
}

func NewDecisionLogger(path string, runID string, logger zerolog.Logger) (*DecisionLogger, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &DecisionLogger{
		runID:  runID,
		file:   file,
		writer: bufio.NewWriter(file),
		logger: logger,
	}, nil
}

func (d *DecisionLogger) RunID() string {
	return d.runID
}

func (d *DecisionLogger) Append(decision Decision) {
	d.mu.Lock()
	defer d.mu.Unlock()
	payload, err := json.Marshal(decision)
	if err != nil {
		d.logger.Error().Err(err).Msg("failed to marshal decision")
		return
	}
	if _, err := d.writer.Write(append(payload, '\n')); err != nil {
		d.logger.Error().Err(err).Msg("failed to write decision")
		return
	}
	if err := d.writer.Flush(); err != nil {
		d.logger.Error().Err(err).Msg("failed to flush decision log")
	}
}

func (d *DecisionLogger) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.writer.Flush(); err != nil {
		_ = d.file.Close()
		return err
	}
	return d.file.Close()
}
