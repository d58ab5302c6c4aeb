package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradejob/internal/retry"
)

const DefaultMaxRetries = 3

var (
	ErrOrderQueryFailed    = errors.New("order query failed")
	ErrOrderCancelFailed   = errors.New("order cancel failed")
	ErrSubmissionFailed    = errors.New("order submission failed")
	ErrClosePositionFailed = errors.New("close position failed")
)

// TradingAPI is the subset of *alpaca.Client the gateway drives.
type TradingAPI interface {
	GetPosition(symbol string) (*alpaca.Position, error)
	GetOrders(req alpaca.GetOrdersRequest) ([]alpaca.Order, error)
	PlaceOrder(req alpaca.PlaceOrderRequest) (*alpaca.Order, error)
	CancelOrder(orderID string) error
	ClosePosition(symbol string, req alpaca.ClosePositionRequest) (*alpaca.Order, error)
}

// RetryObserver is notified of every re-attempted call.
type RetryObserver interface {
	Retry(op string)
}

type Client struct {
	api      TradingAPI
	policy   retry.Policy
	observer RetryObserver
}

type Option func(*Client)

// WithRetryPolicy sets the policy used for order listing and cancellation.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) {
		c.policy = p
	}
}

func WithRetryObserver(o RetryObserver) Option {
	return func(c *Client) {
		c.observer = o
	}
}

func New(apiKey, apiSecret, baseURL string, opts ...Option) *Client {
	api := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})
	return NewWithAPI(api, opts...)
}

func NewWithAPI(api TradingAPI, opts ...Option) *Client {
	c := &Client{
		api:    api,
		policy: retry.Default(DefaultMaxRetries),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Position returns the open position for symbol, or nil when none is held.
func (c *Client) Position(ctx context.Context, symbol string) (*Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pos, err := c.api.GetPosition(symbol)
	if err != nil {
		if isNotFound(err) {
			slog.Info("no open position", "symbol", symbol)
			return nil, nil
		}
		slog.Error("fetch position failed", "symbol", symbol, "error", err)
		return nil, fmt.Errorf("get position %s: %w", symbol, err)
	}

	position := toPosition(pos)
	slog.Info("position fetched", "symbol", symbol, "qty", position.Qty, "avg_entry", position.AvgEntry, "unrealized_pl", position.UnrealizedPL)
	return &position, nil
}

// ordersPageSize is the brokerage's maximum page size for order queries.
const ordersPageSize = 500

// ListOrders returns the symbol's orders submitted after since, oldest first.
// Pages are requested until one comes back short; each page is retried on
// its own.
func (c *Client) ListOrders(ctx context.Context, symbol string, status StatusFilter, since time.Time) ([]Order, error) {
	var (
		result []Order
		seen   = make(map[string]bool)
		after  = since
		pages  int
	)
	for {
		req := alpaca.GetOrdersRequest{
			Status:    string(status),
			Symbols:   []string{symbol},
			After:     after,
			Limit:     ordersPageSize,
			Direction: "asc",
		}
		page, err := retry.Do(ctx, c.retryPolicy("list_orders"), func(ctx context.Context) ([]alpaca.Order, error) {
			return c.api.GetOrders(req)
		})
		if err != nil {
			slog.Error("fetch orders failed", "symbol", symbol, "status", status, "page", pages, "error", err)
			return nil, fmt.Errorf("%w: %s %s orders: %w", ErrOrderQueryFailed, symbol, status, err)
		}
		pages++

		added := 0
		for i := range page {
			if seen[page[i].ID] {
				continue
			}
			seen[page[i].ID] = true
			result = append(result, toOrder(&page[i]))
			added++
		}
		if len(page) < ordersPageSize || added == 0 {
			break
		}
		// after is exclusive; stepping back keeps orders that share the last
		// timestamp, and seen drops the repeats.
		after = page[len(page)-1].SubmittedAt.Add(-time.Nanosecond)
	}

	slog.Info("orders fetched", "symbol", symbol, "status", status, "count", len(result), "pages", pages)
	return result, nil
}

// Cancel cancels each order independently. The first order that cannot be
// cancelled within the retry policy aborts the batch.
func (c *Client) Cancel(ctx context.Context, orders []Order) error {
	for _, order := range orders {
		id := order.ID
		err := retry.Run(ctx, c.retryPolicy("cancel_order"), func(ctx context.Context) error {
			return c.api.CancelOrder(id)
		})
		if err != nil {
			slog.Error("cancel order failed", "order_id", id, "symbol", order.Symbol, "error", err)
			return fmt.Errorf("%w: order %s: %w", ErrOrderCancelFailed, id, err)
		}
		slog.Info("order cancelled", "order_id", id, "symbol", order.Symbol, "side", order.Side)
	}
	return nil
}

func (c *Client) SubmitBuy(ctx context.Context, symbol string) (Order, error) {
	return c.submit(ctx, symbol, alpaca.Buy)
}

func (c *Client) SubmitSell(ctx context.Context, symbol string) (Order, error) {
	return c.submit(ctx, symbol, alpaca.Sell)
}

// submit places a single-unit day market order. Submissions are never retried.
func (c *Client) submit(ctx context.Context, symbol string, side alpaca.Side) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}
	qty := decimal.NewFromInt(1)
	req := alpaca.PlaceOrderRequest{
		Symbol:        symbol,
		Qty:           &qty,
		Side:          side,
		Type:          alpaca.Market,
		TimeInForce:   alpaca.Day,
		ClientOrderID: uuid.NewString(),
	}

	order, err := c.api.PlaceOrder(req)
	if err != nil {
		slog.Error("place order failed", "side", side, "symbol", symbol, "qty", qty, "error", err)
		return Order{}, fmt.Errorf("%w: %s %s: %w", ErrSubmissionFailed, side, symbol, err)
	}

	slog.Info("place order success", "order_id", order.ID, "client_order_id", order.ClientOrderID, "side", side, "symbol", symbol, "qty", qty, "status", order.Status)
	return toOrder(order), nil
}

// ClosePosition liquidates percentage (0-100] of the symbol's position.
func (c *Client) ClosePosition(ctx context.Context, symbol string, percentage decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	order, err := c.api.ClosePosition(symbol, alpaca.ClosePositionRequest{Percentage: percentage})
	if err != nil {
		slog.Error("close position failed", "symbol", symbol, "percentage", percentage, "error", err)
		return fmt.Errorf("%w: %s %s%%: %w", ErrClosePositionFailed, symbol, percentage, err)
	}
	orderID := ""
	if order != nil {
		orderID = order.ID
	}
	slog.Info("close position submitted", "symbol", symbol, "percentage", percentage, "order_id", orderID)
	return nil
}

func (c *Client) retryPolicy(op string) retry.Policy {
	p := c.policy
	onRetry := p.OnRetry
	p.OnRetry = func(attempt int, err error) {
		slog.Warn("retrying broker call", "op", op, "attempt", attempt, "max_attempts", p.MaxAttempts, "error", err)
		if c.observer != nil {
			c.observer.Retry(op)
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}
	}
	return p
}

func isNotFound(err error) bool {
	var apiErr *alpaca.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
