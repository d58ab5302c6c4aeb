package risk

import (
	"log/slog"

	"github.com/shopspring/decimal"
)

const (
	ReasonTakeProfit = "take_profit_reached"
	ReasonStopLoss   = "stop_loss_reached"
	ReasonRunLimit   = "run_limit_reached"
)

// ProfitLossReached is true when pnl sits at or beyond either threshold.
func ProfitLossReached(takeProfit, stopLoss, pnl decimal.Decimal) bool {
	return pnl.GreaterThanOrEqual(takeProfit) || pnl.LessThanOrEqual(stopLoss)
}

func RunLimitReached(runCount, maxRuns int) bool {
	return runCount >= maxRuns
}

type ProfitLossContext struct {
	Symbol     string
	Realized   decimal.Decimal
	Unrealized decimal.Decimal
	TakeProfit decimal.Decimal
	StopLoss   decimal.Decimal
}

func (c ProfitLossContext) Total() decimal.Decimal {
	return c.Realized.Add(c.Unrealized)
}

// Verdict tells the caller whether the job must stop, and why.
type Verdict struct {
	Halt   bool
	Reason string
}

type Gate struct{}

func (g Gate) ProfitLoss(ctx ProfitLossContext) Verdict {
	total := ctx.Total()
	slog.Info("risk evaluation", "check", "profit_loss", "symbol", ctx.Symbol, "realized", ctx.Realized, "unrealized", ctx.Unrealized, "total", total, "take_profit", ctx.TakeProfit, "stop_loss", ctx.StopLoss)

	if !ProfitLossReached(ctx.TakeProfit, ctx.StopLoss, total) {
		return Verdict{}
	}
	reason := ReasonStopLoss
	if total.GreaterThanOrEqual(ctx.TakeProfit) {
		reason = ReasonTakeProfit
	}
	slog.Info("risk halt", "reason", reason, "symbol", ctx.Symbol, "total", total)
	return Verdict{Halt: true, Reason: reason}
}

func (g Gate) RunLimit(runCount, maxRuns int) Verdict {
	if !RunLimitReached(runCount, maxRuns) {
		return Verdict{}
	}
	slog.Info("risk halt", "reason", ReasonRunLimit, "run_count", runCount, "max_runs", maxRuns)
	return Verdict{Halt: true, Reason: ReasonRunLimit}
}
