package broker

import (
	"context"
	"fmt"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"gridtrader/internal/order"
)

type OrderRef struct {
	ID            string
	ClientOrderID string
	Symbol        string
	Status        string
}

type Position struct {
	Symbol   string
	Qty      decimal.Decimal
	AvgEntry decimal.Decimal
}

type Account struct {
	Equity      decimal.Decimal
	BuyingPower decimal.Decimal
	Cash        decimal.Decimal
}

type Client struct {
	client  *alpaca.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// New builds an alpaca REST client. Calls are throttled to ordersPerSecond;
// zero or less disables throttling.
func New(apiKey, apiSecret, baseURL string, ordersPerSecond float64, logger zerolog.Logger) *Client {
	opts := alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	}
	limit := rate.Inf
	if ordersPerSecond > 0 {
		limit = rate.Limit(ordersPerSecond)
	}
	return &Client{
		client:  alpaca.NewClient(opts),
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With().Str("component", "broker").Logger(),
	}
}

func (c *Client) Submit(ctx context.Context, symbol string, req order.RequestOpen) (OrderRef, error) {
	orderReq, err := placeOrderRequest(symbol, req)
	if err != nil {
		return OrderRef{}, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return OrderRef{}, fmt.Errorf("rate limit wait: %w", err)
	}

	placed, err := c.client.PlaceOrder(orderReq)
	if err != nil {
		c.logger.Error().Err(err).
			Str("side", string(orderReq.Side)).
			Str("symbol", symbol).
			Str("qty", req.Quantity.String()).
			Str("client_order_id", orderReq.ClientOrderID).
			Msg("place order failed")
		return OrderRef{}, fmt.Errorf("place order %s: %w", orderReq.ClientOrderID, err)
	}

	c.logger.Info().
		Str("order_id", placed.ID).
		Str("side", string(orderReq.Side)).
		Str("symbol", symbol).
		Str("qty", req.Quantity.String()).
		Str("limit", req.Price.String()).
		Str("status", string(placed.Status)).
		Msg("place order success")
	return OrderRef{
		ID:            placed.ID,
		ClientOrderID: placed.ClientOrderID,
		Symbol:        symbol,
		Status:        string(placed.Status),
	}, nil
}

func (c *Client) Cancel(ctx context.Context, req order.RequestCancel) error {
	if req.OrderID == "" {
		return fmt.Errorf("cancel %s: missing order id", req.Key.CID)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if err := c.client.CancelOrder(req.OrderID); err != nil {
		c.logger.Error().Err(err).Str("order_id", req.OrderID).Msg("cancel order failed")
		return fmt.Errorf("cancel order %s: %w", req.OrderID, err)
	}
	c.logger.Info().Str("order_id", req.OrderID).Msg("cancel order success")
	return nil
}

func (c *Client) OpenOrders(ctx context.Context) ([]OrderRef, error) {
	orders, err := c.client.GetOrders(alpaca.GetOrdersRequest{Status: "open"})
	if err != nil {
		c.logger.Error().Err(err).Msg("fetch open orders failed")
		return nil, fmt.Errorf("fetch open orders: %w", err)
	}
	c.logger.Debug().Int("count", len(orders)).Msg("open orders fetched")
	refs := make([]OrderRef, 0, len(orders))
	for _, o := range orders {
		refs = append(refs, OrderRef{
			ID:            o.ID,
			ClientOrderID: o.ClientOrderID,
			Symbol:        o.Symbol,
			Status:        string(o.Status),
		})
	}
	return refs, nil
}

func (c *Client) Position(ctx context.Context, symbol string) (Position, error) {
	pos, err := c.client.GetPosition(symbol)
	if err != nil {
		return Position{}, fmt.Errorf("fetch position %s: %w", symbol, err)
	}
	c.logger.Debug().Str("symbol", symbol).Str("qty", pos.Qty.String()).Str("avg_entry", pos.AvgEntryPrice.String()).Msg("position fetched")
	return Position{
		Symbol:   pos.Symbol,
		Qty:      pos.Qty,
		AvgEntry: pos.AvgEntryPrice,
	}, nil
}

func (c *Client) Account(ctx context.Context) (Account, error) {
	acct, err := c.client.GetAccount()
	if err != nil {
		c.logger.Error().Err(err).Msg("fetch account failed")
		return Account{}, fmt.Errorf("fetch account: %w", err)
	}
	return Account{Equity: acct.Equity, BuyingPower: acct.BuyingPower, Cash: acct.Cash}, nil
}

func placeOrderRequest(symbol string, req order.RequestOpen) (alpaca.PlaceOrderRequest, error) {
	side, err := parseSide(req.Side)
	if err != nil {
		return alpaca.PlaceOrderRequest{}, err
	}
	orderType, err := parseOrderType(req.Kind)
	if err != nil {
		return alpaca.PlaceOrderRequest{}, err
	}
	tif, err := parseTimeInForce(req.TimeInForce)
	if err != nil {
		return alpaca.PlaceOrderRequest{}, err
	}

	cid := string(req.Key.CID)
	if cid == "" {
		cid = uuid.NewString()
	}
	qty := req.Quantity
	orderReq := alpaca.PlaceOrderRequest{
		Symbol:        symbol,
		Qty:           &qty,
		Side:          side,
		Type:          orderType,
		TimeInForce:   tif,
		ClientOrderID: cid,
	}
	if orderType == alpaca.Limit {
		limitPrice := req.Price
		orderReq.LimitPrice = &limitPrice
	}
	return orderReq, nil
}

func parseSide(side order.Side) (alpaca.Side, error) {
	switch side {
	case order.Buy:
		return alpaca.Buy, nil
	case order.Sell:
		return alpaca.Sell, nil
	default:
		return "", fmt.Errorf("unsupported side: %s", side)
	}
}

func parseOrderType(kind order.Kind) (alpaca.OrderType, error) {
	switch kind {
	case order.Market:
		return alpaca.Market, nil
	case order.Limit:
		return alpaca.Limit, nil
	default:
		return "", fmt.Errorf("unsupported order type: %s", kind)
	}
}

func parseTimeInForce(tif order.TimeInForce) (alpaca.TimeInForce, error) {
	switch tif {
	case order.GoodUntilEndOfDay:
		return alpaca.Day, nil
	case order.ImmediateOrCancel:
		return alpaca.IOC, nil
	default:
		return "", fmt.Errorf("unsupported time in force: %s", tif)
	}
}
