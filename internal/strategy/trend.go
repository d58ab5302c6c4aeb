package strategy

import "github.com/shopspring/decimal"

// BuyingCondition reports an uptrend: the latest price is above the window average.
func BuyingCondition(average, last float64) bool {
	return average < last
}

// SellingCondition reports a downtrend. Whether a position exists to sell is
// the caller's concern.
func SellingCondition(average, last float64) bool {
	return average > last
}

// Trend buys one share on an uptrend and exits the whole position on a
// downtrend. Buying does not depend on the current position.
type Trend struct{}

func (Trend) Decide(snapshot MarketSnapshot) TradeIntent {
	if BuyingCondition(snapshot.Average, snapshot.Close) {
		return TradeIntent{
			Action: Buy,
			Qty:    decimal.NewFromInt(1),
			Reason: "close_above_average",
		}
	}
	if !SellingCondition(snapshot.Average, snapshot.Close) {
		return TradeIntent{Action: Hold, Reason: "no_signal"}
	}
	if !snapshot.HasPosition {
		return TradeIntent{Action: Hold, Reason: "no_position_to_sell"}
	}
	return TradeIntent{
		Action: Sell,
		Qty:    snapshot.PositionQty,
		Reason: "close_below_average",
	}
}
