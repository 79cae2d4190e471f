package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewLimitOpenDefaults(t *testing.T) {
	key := Key{Exchange: "binance_spot", Instrument: 3, Strategy: "grid"}
	req := NewLimitOpen(key, Buy, decimal.RequireFromString("95"), decimal.RequireFromString("0.5"))

	assert.Equal(t, Limit, req.Kind)
	assert.Equal(t, GoodUntilEndOfDay, req.TimeInForce)
	assert.Equal(t, key, req.Key)
	assert.True(t, req.Notional().Equal(decimal.RequireFromString("47.5")), "notional %s", req.Notional())
}

func TestRequestOpenString(t *testing.T) {
	req := NewLimitOpen(Key{Exchange: "alpaca", Instrument: 1, Strategy: "grid"}, Sell, decimal.NewFromInt(101), decimal.NewFromInt(2))
	assert.Equal(t, "grid SELL 2@101 (alpaca/1 LIMIT GOOD_UNTIL_END_OF_DAY)", req.String())
}
