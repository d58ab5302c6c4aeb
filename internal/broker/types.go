package broker

import (
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"
)

// StatusFilter is the order status query understood by the brokerage.
type StatusFilter string

const (
	StatusAll    StatusFilter = "all"
	StatusOpen   StatusFilter = "open"
	StatusClosed StatusFilter = "closed"
)

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

type Order struct {
	ID             string
	ClientOrderID  string
	Symbol         string
	Side           Side
	Status         string
	FilledAvgPrice decimal.Decimal
	FilledQty      decimal.Decimal
	SubmittedAt    time.Time
}

// openStatuses are the brokerage states in which an order can still fill.
var openStatuses = map[string]bool{
	"new":                  true,
	"accepted":             true,
	"pending_new":          true,
	"accepted_for_bidding": true,
	"partially_filled":     true,
	"pending_cancel":       true,
	"pending_replace":      true,
	"held":                 true,
	"calculated":           true,
}

func (o Order) Open() bool {
	return openStatuses[o.Status]
}

type Position struct {
	Symbol       string
	Qty          decimal.Decimal
	AvgEntry     float64
	UnrealizedPL decimal.Decimal
}

func toOrder(o *alpaca.Order) Order {
	order := Order{
		ID:            o.ID,
		ClientOrderID: o.ClientOrderID,
		Symbol:        o.Symbol,
		Side:          Side(o.Side),
		Status:        string(o.Status),
		FilledQty:     o.FilledQty,
		SubmittedAt:   o.SubmittedAt,
	}
	if o.FilledAvgPrice != nil {
		order.FilledAvgPrice = *o.FilledAvgPrice
	}
	return order
}

func toPosition(p *alpaca.Position) Position {
	avgEntry, _ := p.AvgEntryPrice.Float64()
	position := Position{
		Symbol:   p.Symbol,
		Qty:      p.Qty,
		AvgEntry: avgEntry,
	}
	if p.UnrealizedPL != nil {
		position.UnrealizedPL = *p.UnrealizedPL
	}
	return position
}

func FilterBySide(orders []Order, side Side) []Order {
	var result []Order
	for _, o := range orders {
		if o.Side == side {
			result = append(result, o)
		}
	}
	return result
}

func FilterOpen(orders []Order) []Order {
	var result []Order
	for _, o := range orders {
		if o.Open() {
			result = append(result, o)
		}
	}
	return result
}

func FilterClosed(orders []Order) []Order {
	var result []Order
	for _, o := range orders {
		if !o.Open() {
			result = append(result, o)
		}
	}
	return result
}

// RealizedPnL nets filled sells against filled buys.
func RealizedPnL(orders []Order) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		notional := o.FilledAvgPrice.Mul(o.FilledQty)
		switch o.Side {
		case Buy:
			total = total.Sub(notional)
		case Sell:
			total = total.Add(notional)
		}
	}
	return total
}

func UnrealizedPnL(p *Position) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	return p.UnrealizedPL
}
