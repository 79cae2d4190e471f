package broker

import (
	"testing"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridtrader/internal/order"
)

func TestPlaceOrderRequestMapsLimitDay(t *testing.T) {
	key := order.Key{Exchange: "alpaca", Instrument: 2, Strategy: "grid", CID: "run-7"}
	req := order.NewLimitOpen(key, order.Buy, decimal.RequireFromString("14.775"), decimal.RequireFromString("3.38409475"))

	mapped, err := placeOrderRequest("AAPL", req)
	require.NoError(t, err)

	assert.Equal(t, "AAPL", mapped.Symbol)
	assert.Equal(t, alpaca.Buy, mapped.Side)
	assert.Equal(t, alpaca.Limit, mapped.Type)
	assert.Equal(t, alpaca.Day, mapped.TimeInForce)
	assert.Equal(t, "run-7", mapped.ClientOrderID)
	require.NotNil(t, mapped.Qty)
	assert.True(t, mapped.Qty.Equal(req.Quantity))
	require.NotNil(t, mapped.LimitPrice)
	assert.True(t, mapped.LimitPrice.Equal(req.Price))
}

func TestPlaceOrderRequestMarketHasNoLimit(t *testing.T) {
	req := order.RequestOpen{
		Side:        order.Sell,
		Price:       decimal.NewFromInt(100),
		Quantity:    decimal.NewFromInt(1),
		Kind:        order.Market,
		TimeInForce: order.ImmediateOrCancel,
	}

	mapped, err := placeOrderRequest("AAPL", req)
	require.NoError(t, err)

	assert.Equal(t, alpaca.Sell, mapped.Side)
	assert.Equal(t, alpaca.IOC, mapped.TimeInForce)
	assert.Nil(t, mapped.LimitPrice)
	_, err = uuid.Parse(mapped.ClientOrderID)
	assert.NoError(t, err, "empty client order ids are replaced with a uuid")
}

func TestPlaceOrderRequestRejectsUnknownValues(t *testing.T) {
	req := order.NewLimitOpen(order.Key{}, "HOLD", decimal.NewFromInt(1), decimal.NewFromInt(1))
	_, err := placeOrderRequest("AAPL", req)
	assert.Error(t, err)

	req = order.NewLimitOpen(order.Key{}, order.Buy, decimal.NewFromInt(1), decimal.NewFromInt(1))
	req.TimeInForce = "GOOD_TILL_CANCELLED"
	_, err = placeOrderRequest("AAPL", req)
	assert.Error(t, err)
}
