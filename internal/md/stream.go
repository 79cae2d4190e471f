package md

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata/stream"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type EventHandler func(MarketEvent)

type StreamConfig struct {
	APIKey    string
	APISecret string
	Feed      string
}

// StartStream subscribes to alpaca trade prints for every instrument and
// forwards each print as a MarketEvent until ctx is done.
func StartStream(ctx context.Context, cfg StreamConfig, instruments []Instrument, handler EventHandler, logger zerolog.Logger) error {
	byName := make(map[string]Instrument, len(instruments))
	symbols := make([]string, 0, len(instruments))
	for _, inst := range instruments {
		byName[inst.Name] = inst
		symbols = append(symbols, inst.Name)
	}

	client := stream.NewStocksClient(
		parseFeed(cfg.Feed),
		stream.WithCredentials(cfg.APIKey, cfg.APISecret),
	)

	// Connect must be called before subscribing in this SDK version
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect market data stream: %w", err)
	}
	logger.Debug().Strs("symbols", symbols).Msg("connected to stream, subscribing to trades")

	if err := client.SubscribeToTrades(func(trade stream.Trade) {
		inst, ok := byName[trade.Symbol]
		if !ok {
			return
		}
		handler(tradeEvent(inst, trade.Price, float64(trade.Size), trade.Timestamp))
	}, symbols...); err != nil {
		return fmt.Errorf("subscribe to trades: %w", err)
	}
	logger.Info().Strs("symbols", symbols).Msg("subscribed to trades")

	<-ctx.Done()
	return ctx.Err()
}

func tradeEvent(inst Instrument, price, size float64, ts time.Time) MarketEvent {
	p := decimal.NewFromFloat(price)
	return MarketEvent{
		Instrument:   inst,
		Price:        p,
		TimeReceived: ts.UTC(),
		Trade: &Trade{
			Price:  p,
			Amount: decimal.NewFromFloat(size),
		},
	}
}

func parseFeed(feed string) marketdata.Feed {
	switch feed {
	case "iex":
		return marketdata.IEX
	case "sip":
		return marketdata.SIP
	default:
		return marketdata.IEX
	}
}
