package md

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const DefaultBinanceStreamURL = "wss://stream.binance.com:9443/stream"

const binanceReconnectDelay = 2 * time.Second

type binanceCombined struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// Binance keys differ only by case ("e"/"E", "t"/"T"); every key needs an
// exact field or encoding/json folds it onto its neighbour.
type binanceTrade struct {
	EventType    string `json:"e"`
	EventTime    int64  `json:"E"`
	Symbol       string `json:"s"`
	TradeID      int64  `json:"t"`
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	TradeTime    int64  `json:"T"`
	IsBuyerMaker bool   `json:"m"`
	IsBestMatch  bool   `json:"M"`
}

// ParseBinanceTrade decodes a combined-stream trade message. Messages for
// symbols outside instruments, or of another event type, report ok=false.
func ParseBinanceTrade(message []byte, instruments map[string]Instrument) (MarketEvent, bool, error) {
	var envelope binanceCombined
	if err := json.Unmarshal(message, &envelope); err != nil {
		return MarketEvent{}, false, fmt.Errorf("decode envelope: %w", err)
	}
	payload := []byte(envelope.Data)
	if len(payload) == 0 {
		payload = message
	}

	var trade binanceTrade
	if err := json.Unmarshal(payload, &trade); err != nil {
		return MarketEvent{}, false, fmt.Errorf("decode trade: %w", err)
	}
	if trade.EventType != "trade" {
		return MarketEvent{}, false, nil
	}
	inst, ok := instruments[strings.ToUpper(trade.Symbol)]
	if !ok {
		return MarketEvent{}, false, nil
	}

	price, err := decimal.NewFromString(trade.Price)
	if err != nil {
		return MarketEvent{}, false, fmt.Errorf("parse price %q: %w", trade.Price, err)
	}
	qty, err := decimal.NewFromString(trade.Quantity)
	if err != nil {
		return MarketEvent{}, false, fmt.Errorf("parse quantity %q: %w", trade.Quantity, err)
	}

	return MarketEvent{
		Instrument:   inst,
		Price:        price,
		TimeReceived: time.UnixMilli(trade.TradeTime).UTC(),
		Trade:        &Trade{Price: price, Amount: qty},
	}, true, nil
}

// StartBinanceTrades reads the public spot trade stream for every instrument
// over one combined websocket connection, reconnecting after read failures.
func StartBinanceTrades(ctx context.Context, baseURL string, instruments []Instrument, handler EventHandler, logger zerolog.Logger) error {
	if baseURL == "" {
		baseURL = DefaultBinanceStreamURL
	}
	byName := make(map[string]Instrument, len(instruments))
	streams := make([]string, 0, len(instruments))
	for _, inst := range instruments {
		byName[strings.ToUpper(inst.Name)] = inst
		streams = append(streams, strings.ToLower(inst.Name)+"@trade")
	}
	url := baseURL + "?streams=" + strings.Join(streams, "/")

	for {
		if err := readBinance(ctx, url, byName, handler, logger); err != nil {
			logger.Warn().Err(err).Str("url", url).Msg("binance trade stream interrupted")
		}
		if err := WaitForContext(ctx, binanceReconnectDelay); err != nil {
			return err
		}
	}
}

// WaitForContext sleeps for delay unless ctx ends first.
func WaitForContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func readBinance(ctx context.Context, url string, instruments map[string]Instrument, handler EventHandler, logger zerolog.Logger) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	logger.Info().Str("url", url).Msg("binance trade stream connected")
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		event, ok, err := ParseBinanceTrade(message, instruments)
		if err != nil {
			logger.Debug().Err(err).Msg("skipping malformed trade message")
			continue
		}
		if ok {
			handler(event)
		}
	}
}
