package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradejob/internal/broker"
	"tradejob/internal/job"
	"tradejob/internal/md"
	"tradejob/internal/metrics"
	"tradejob/internal/risk"
	"tradejob/internal/strategy"
)

const (
	resultHold           = "hold"
	resultOrderSubmitted = "order_submitted"
	resultPositionClosed = "position_closed"
	resultExitPending    = "exit_pending"
	resultHalted         = "halted"
	resultFailed         = "failed"
)

type MarketData interface {
	FetchWindow(ctx context.Context, symbol string, length, offset time.Duration) (md.PriceWindow, error)
}

// Gateway is the brokerage surface the engine drives; *broker.Client implements it.
type Gateway interface {
	Position(ctx context.Context, symbol string) (*broker.Position, error)
	ListOrders(ctx context.Context, symbol string, status broker.StatusFilter, since time.Time) ([]broker.Order, error)
	Cancel(ctx context.Context, orders []broker.Order) error
	SubmitBuy(ctx context.Context, symbol string) (broker.Order, error)
	SubmitSell(ctx context.Context, symbol string) (broker.Order, error)
	ClosePosition(ctx context.Context, symbol string, percentage decimal.Decimal) error
}

// Sink receives the decision of every invocation.
type Sink interface {
	Append(Decision)
}

type Engine struct {
	market   MarketData
	gateway  Gateway
	strategy strategy.Strategy
	gate     risk.Gate
	sinks    []Sink
	metrics  *metrics.Metrics
	now      func() time.Time
	newRunID func() string
}

type Option func(*Engine)

func WithSinks(sinks ...Sink) Option {
	return func(e *Engine) {
		e.sinks = append(e.sinks, sinks...)
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func New(market MarketData, gateway Gateway, strat strategy.Strategy, gate risk.Gate, opts ...Option) *Engine {
	e := &Engine{
		market:   market,
		gateway:  gateway,
		strategy: strat,
		gate:     gate,
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run performs one invocation of the trade job and reports whether the
// recurring job should stop. Any error aborts the invocation; the caller
// re-invokes on its own schedule.
func (e *Engine) Run(ctx context.Context, event job.Event) (job.Result, error) {
	params := event.JobParameters
	params.ApplyDefaults()
	if err := params.Validate(); err != nil {
		return job.Result{}, err
	}
	since, err := event.StartTime()
	if err != nil {
		return job.Result{}, err
	}

	decision := Decision{
		RunID:     e.newRunID(),
		Timestamp: e.now().UTC(),
		Symbol:    params.Symbol,
		RunCount:  event.RunCount(),
		Intent:    strategy.Hold,
	}

	result, err := e.run(ctx, params, since, event.RunCount(), &decision)
	if err != nil {
		decision.Result = resultFailed
		decision.Error = err.Error()
		e.record(decision)
		slog.Error("trade run failed", "run_id", decision.RunID, "symbol", params.Symbol, "run_count", decision.RunCount, "error", err)
		return job.Result{}, err
	}

	decision.CancelTradeJob = result.CancelTradeJob
	e.record(decision)
	slog.Info("trade run complete", "run_id", decision.RunID, "symbol", params.Symbol, "intent", decision.Intent,
		"result", decision.Result, "run_count", decision.RunCount, "cancel_trade_job", result.CancelTradeJob, "termination", decision.Termination)
	return result, nil
}

func (e *Engine) run(ctx context.Context, params job.Parameters, since time.Time, runCount int, d *Decision) (job.Result, error) {
	symbol := params.Symbol

	orders, err := e.gateway.ListOrders(ctx, symbol, broker.StatusAll, since)
	if err != nil {
		return job.Result{}, err
	}
	position, err := e.gateway.Position(ctx, symbol)
	if err != nil {
		return job.Result{}, err
	}

	pl := risk.ProfitLossContext{
		Symbol:     symbol,
		Realized:   broker.RealizedPnL(broker.FilterClosed(orders)),
		Unrealized: broker.UnrealizedPnL(position),
		TakeProfit: params.TakeProfit,
		StopLoss:   params.StopLoss,
	}
	d.PnL = pl.Total()
	e.metrics.SetPnL(d.PnL.InexactFloat64())

	if verdict := e.gate.ProfitLoss(pl); verdict.Halt {
		if err := e.flatten(ctx, symbol, since); err != nil {
			return job.Result{}, err
		}
		d.Result = resultHalted
		d.Reason = verdict.Reason
		d.Termination = verdict.Reason
		e.metrics.Terminated(verdict.Reason)
		return job.Cancel(), nil
	}

	intent, err := e.evaluate(ctx, params, position, d)
	if err != nil {
		return job.Result{}, err
	}
	d.Intent = intent.Action
	d.Reason = intent.Reason

	switch intent.Action {
	case strategy.Buy:
		order, err := e.gateway.SubmitBuy(ctx, symbol)
		if err != nil {
			return job.Result{}, err
		}
		d.Result = resultOrderSubmitted
		d.OrderID = order.ID
		e.metrics.OrderSubmitted(string(broker.Buy))
	case strategy.Sell:
		outcome, err := e.exit(ctx, symbol, since)
		if err != nil {
			return job.Result{}, err
		}
		d.Result = outcome
	default:
		d.Result = resultHold
	}

	next := runCount + 1
	d.RunCount = next
	e.metrics.SetRunCount(next)

	if verdict := e.gate.RunLimit(next, params.MaxRuns); verdict.Halt {
		if err := e.flatten(ctx, symbol, since); err != nil {
			return job.Result{}, err
		}
		d.Termination = verdict.Reason
		e.metrics.Terminated(verdict.Reason)
		return job.CancelAt(next), nil
	}
	return job.Continue(next), nil
}

// evaluate turns the price window into a trade intent. Windows shorter than
// the job's minimum points hold.
func (e *Engine) evaluate(ctx context.Context, params job.Parameters, position *broker.Position, d *Decision) (strategy.TradeIntent, error) {
	window, err := e.market.FetchWindow(ctx, params.Symbol, params.Window(), params.Offset())
	if err != nil {
		return strategy.TradeIntent{}, err
	}
	d.Bars = window.Len()
	if window.Len() < params.MinPoints() {
		slog.Info("not enough bars to evaluate", "symbol", params.Symbol, "bars", window.Len(), "minimum", params.MinPoints())
		return strategy.TradeIntent{Action: strategy.Hold, Reason: "insufficient_data"}, nil
	}

	signal, err := md.NewTrendSignal(window)
	if err != nil {
		return strategy.TradeIntent{}, err
	}
	d.Average = signal.RollingAverage
	d.Last = signal.LastPrice

	snapshot := strategy.MarketSnapshot{
		Timestamp: window.Bars[window.Len()-1].Timestamp,
		Close:     signal.LastPrice,
		Average:   signal.RollingAverage,
	}
	if position != nil {
		snapshot.HasPosition = true
		snapshot.PositionQty = position.Qty
	}
	intent := e.strategy.Decide(snapshot)
	slog.Info("signal evaluated", "symbol", params.Symbol, "average", signal.RollingAverage, "last", signal.LastPrice,
		"position_qty", snapshot.PositionQty, "intent", intent.Action, "reason", intent.Reason)
	return intent, nil
}

func (e *Engine) record(d Decision) {
	for _, sink := range e.sinks {
		sink.Append(d)
	}
	e.metrics.RunCompleted(d.Result)
}
