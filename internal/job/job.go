package job

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultOffsetMinutes = 15
	DefaultWindowMinutes = 20
	DefaultMinimumPoints = 1
)

var ErrInvalidEvent = errors.New("invalid job event")

// Parameters configure one trade job. They do not change between invocations.
type Parameters struct {
	Symbol        string          `json:"symbol"`
	OffsetTime    *int            `json:"offsetTime,omitempty"`
	WindowLength  *int            `json:"windowLength,omitempty"`
	MinimumPoints *int            `json:"minimumPoints,omitempty"`
	TakeProfit    decimal.Decimal `json:"takeProfit"`
	StopLoss      decimal.Decimal `json:"stopLoss"`
	MaxRuns       int             `json:"maxRuns"`
}

func (p Parameters) Offset() time.Duration {
	return time.Duration(intOr(p.OffsetTime, DefaultOffsetMinutes)) * time.Minute
}

func (p Parameters) Window() time.Duration {
	return time.Duration(intOr(p.WindowLength, DefaultWindowMinutes)) * time.Minute
}

func (p Parameters) MinPoints() int {
	return intOr(p.MinimumPoints, DefaultMinimumPoints)
}

// ApplyDefaults fills parameters the caller left out.
func (p *Parameters) ApplyDefaults() {
	if p.OffsetTime == nil {
		p.OffsetTime = intPtr(DefaultOffsetMinutes)
	}
	if p.WindowLength == nil {
		p.WindowLength = intPtr(DefaultWindowMinutes)
	}
	if p.MinimumPoints == nil {
		p.MinimumPoints = intPtr(DefaultMinimumPoints)
	}
}

func (p Parameters) Validate() error {
	if p.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidEvent)
	}
	if intOr(p.OffsetTime, DefaultOffsetMinutes) < 0 {
		return fmt.Errorf("%w: offsetTime must be >= 0", ErrInvalidEvent)
	}
	if intOr(p.WindowLength, DefaultWindowMinutes) <= 0 {
		return fmt.Errorf("%w: windowLength must be > 0", ErrInvalidEvent)
	}
	if p.MinPoints() < 1 {
		return fmt.Errorf("%w: minimumPoints must be >= 1", ErrInvalidEvent)
	}
	if p.MaxRuns <= 0 {
		return fmt.Errorf("%w: maxRuns must be > 0", ErrInvalidEvent)
	}
	if !p.StopLoss.LessThan(p.TakeProfit) {
		return fmt.Errorf("%w: stopLoss must be below takeProfit", ErrInvalidEvent)
	}
	return nil
}

type Info struct {
	StartTime string `json:"startTime"`
}

type Status struct {
	RunCount int `json:"runCount"`
}

type Event struct {
	JobParameters Parameters `json:"jobParameters"`
	JobInfo       Info       `json:"jobInfo"`
	JobStatus     *Status    `json:"jobStatus,omitempty"`
}

// RunCount is the count carried in from the previous invocation, 0 on the first.
func (e Event) RunCount() int {
	if e.JobStatus == nil {
		return 0
	}
	return e.JobStatus.RunCount
}

// StartTime parses the job start timestamp, e.g. 2024-02-09T23:58:00.000Z.
func (e Event) StartTime() (time.Time, error) {
	if e.JobInfo.StartTime == "" {
		return time.Time{}, fmt.Errorf("%w: jobInfo.startTime is required", ErrInvalidEvent)
	}
	t, err := time.Parse(time.RFC3339Nano, e.JobInfo.StartTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: jobInfo.startTime: %w", ErrInvalidEvent, err)
	}
	return t.UTC(), nil
}

// ParseEvent decodes an invocation event. Events without a jobParameters
// object are read as flat parameter maps, the local runner's shape.
func ParseEvent(data []byte) (Event, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}

	var event Event
	if _, ok := raw["jobParameters"]; ok {
		if err := json.Unmarshal(data, &event); err != nil {
			return Event{}, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
	} else {
		var flat struct {
			Parameters
			StartTime string `json:"startTime"`
			RunCount  *int   `json:"runCount"`
		}
		if err := json.Unmarshal(data, &flat); err != nil {
			return Event{}, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
		event.JobParameters = flat.Parameters
		event.JobInfo.StartTime = flat.StartTime
		if flat.RunCount != nil {
			event.JobStatus = &Status{RunCount: *flat.RunCount}
		}
	}

	event.JobParameters.ApplyDefaults()
	if err := event.JobParameters.Validate(); err != nil {
		return Event{}, err
	}
	if event.RunCount() < 0 {
		return Event{}, fmt.Errorf("%w: jobStatus.runCount must be >= 0", ErrInvalidEvent)
	}
	return event, nil
}

// Result is handed back to the recurring-job controller.
type Result struct {
	CancelTradeJob int  `json:"cancelTradeJob"`
	RunCount       *int `json:"runCount,omitempty"`
}

func Continue(runCount int) Result {
	return Result{CancelTradeJob: 0, RunCount: intPtr(runCount)}
}

func Cancel() Result {
	return Result{CancelTradeJob: 1}
}

func CancelAt(runCount int) Result {
	return Result{CancelTradeJob: 1, RunCount: intPtr(runCount)}
}

func (r Result) Cancelled() bool {
	return r.CancelTradeJob == 1
}

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

func intPtr(v int) *int {
	return &v
}
