package md

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

var (
	// ErrDataUnavailable wraps every failure to query the bar source.
	ErrDataUnavailable = errors.New("market data unavailable")
	ErrEmptyWindow     = errors.New("price window has no bars")
)

type Bar struct {
	Timestamp time.Time
	Close     float64
}

// PriceWindow is the ordered run of minute bars for one symbol between Start and End.
type PriceWindow struct {
	Symbol string
	Start  time.Time
	End    time.Time
	Bars   []Bar
}

func (w PriceWindow) Len() int {
	return len(w.Bars)
}

func (w PriceWindow) Closes() []float64 {
	closes := make([]float64, len(w.Bars))
	for i, bar := range w.Bars {
		closes[i] = bar.Close
	}
	return closes
}

type TrendSignal struct {
	RollingAverage float64
	LastPrice      float64
}

// NewTrendSignal averages the whole window and pairs it with the latest close.
func NewTrendSignal(w PriceWindow) (TrendSignal, error) {
	if w.Len() == 0 {
		return TrendSignal{}, ErrEmptyWindow
	}
	averages, err := RollingAverage(w.Closes(), w.Len())
	if err != nil {
		return TrendSignal{}, err
	}
	return TrendSignal{
		RollingAverage: averages[len(averages)-1],
		LastPrice:      w.Bars[w.Len()-1].Close,
	}, nil
}

// BarSource is satisfied by *marketdata.Client.
type BarSource interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

type Accessor struct {
	source BarSource
	feed   marketdata.Feed
	now    func() time.Time
}

func NewAccessor(source BarSource, feed string) *Accessor {
	return &Accessor{
		source: source,
		feed:   parseFeed(feed),
		now:    time.Now,
	}
}

// NewClient builds the Alpaca historical data client the Accessor reads from.
func NewClient(apiKey, apiSecret, baseURL string) *marketdata.Client {
	return marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})
}

// WithClock replaces the wall clock used to anchor windows.
func (a *Accessor) WithClock(now func() time.Time) *Accessor {
	a.now = now
	return a
}

// FetchWindow returns the one-minute bars in [now-offset-length, now-offset].
func (a *Accessor) FetchWindow(ctx context.Context, symbol string, length, offset time.Duration) (PriceWindow, error) {
	end := a.now().UTC().Add(-offset)
	start := end.Add(-length)
	window := PriceWindow{Symbol: symbol, Start: start, End: end}

	if err := ctx.Err(); err != nil {
		return window, err
	}

	bars, err := a.source.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneMin,
		Start:     start,
		End:       end,
		Feed:      a.feed,
	})
	if err != nil {
		slog.Error("fetch bars failed", "symbol", symbol, "start", start, "end", end, "error", err)
		return window, fmt.Errorf("%w: %s bars %s..%s: %w", ErrDataUnavailable, symbol,
			start.Format(time.RFC3339), end.Format(time.RFC3339), err)
	}

	window.Bars = make([]Bar, 0, len(bars))
	for _, bar := range bars {
		window.Bars = append(window.Bars, Bar{Timestamp: bar.Timestamp, Close: bar.Close})
	}
	slog.Info("bars fetched", "symbol", symbol, "count", len(window.Bars), "start", start, "end", end)
	return window, nil
}

func parseFeed(feed string) marketdata.Feed {
	switch feed {
	case "iex":
		return marketdata.IEX
	case "sip":
		return marketdata.SIP
	default:
		return marketdata.IEX
	}
}
