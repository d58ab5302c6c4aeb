package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"tradejob/internal/broker"
)

var fullPosition = decimal.NewFromInt(100)

// flatten leaves the symbol without pending entries or an open position:
// open buy orders from this job are cancelled, then any position is closed.
func (e *Engine) flatten(ctx context.Context, symbol string, since time.Time) error {
	open, err := e.gateway.ListOrders(ctx, symbol, broker.StatusOpen, since)
	if err != nil {
		return err
	}
	buys := broker.FilterBySide(open, broker.Buy)
	if err := e.gateway.Cancel(ctx, buys); err != nil {
		return err
	}

	position, err := e.gateway.Position(ctx, symbol)
	if err != nil {
		return err
	}
	if position == nil {
		slog.Info("flatten complete", "symbol", symbol, "cancelled", len(buys), "closed", false)
		return nil
	}
	if err := e.gateway.ClosePosition(ctx, symbol, fullPosition); err != nil {
		return err
	}
	e.metrics.OrderSubmitted(string(broker.Sell))
	slog.Info("flatten complete", "symbol", symbol, "cancelled", len(buys), "closed", true, "qty", position.Qty)
	return nil
}

// exit closes the position on a sell signal unless an exit order is already
// working, in which case nothing is submitted.
func (e *Engine) exit(ctx context.Context, symbol string, since time.Time) (string, error) {
	open, err := e.gateway.ListOrders(ctx, symbol, broker.StatusOpen, since)
	if err != nil {
		return "", err
	}
	if sells := broker.FilterBySide(open, broker.Sell); len(sells) > 0 {
		slog.Info("exit already pending", "symbol", symbol, "open_sells", len(sells))
		return resultExitPending, nil
	}
	if err := e.gateway.Cancel(ctx, broker.FilterBySide(open, broker.Buy)); err != nil {
		return "", err
	}
	if err := e.gateway.ClosePosition(ctx, symbol, fullPosition); err != nil {
		return "", err
	}
	e.metrics.OrderSubmitted(string(broker.Sell))
	return resultPositionClosed, nil
}
