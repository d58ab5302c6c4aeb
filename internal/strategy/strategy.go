package strategy

import (
	"time"

	"github.com/shopspring/decimal"
)

type Action string

const (
	Hold Action = "HOLD"
	Buy  Action = "BUY"
	Sell Action = "SELL"
)

// MarketSnapshot is what a strategy sees. HasPosition is set for any open
// position, including fractional and short ones.
type MarketSnapshot struct {
	Timestamp   time.Time
	Close       float64
	Average     float64
	HasPosition bool
	PositionQty decimal.Decimal
}

type TradeIntent struct {
	Action Action
	Qty    decimal.Decimal
	Reason string
}

type Strategy interface {
	Decide(snapshot MarketSnapshot) TradeIntent
}
