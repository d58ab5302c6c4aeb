package job

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const stepEvent = `{
  "jobParameters": {
    "symbol": "AAPL",
    "offsetTime": 10,
    "windowLength": 5,
    "takeProfit": 10,
    "stopLoss": -10,
    "maxRuns": 3
  },
  "jobInfo": {"startTime": "2024-02-09T23:58:00.000Z"},
  "jobStatus": {"runCount": 2}
}`

func TestParseEventStepFunctionShape(t *testing.T) {
	event, err := ParseEvent([]byte(stepEvent))
	if err != nil {
		t.Fatalf("parse event: %v", err)
	}

	p := event.JobParameters
	if p.Symbol != "AAPL" || p.MaxRuns != 3 {
		t.Fatalf("unexpected parameters: %+v", p)
	}
	if p.Offset() != 10*time.Minute || p.Window() != 5*time.Minute {
		t.Fatalf("unexpected window: offset=%s window=%s", p.Offset(), p.Window())
	}
	if !p.TakeProfit.Equal(decimal.NewFromInt(10)) || !p.StopLoss.Equal(decimal.NewFromInt(-10)) {
		t.Fatalf("unexpected thresholds: %s %s", p.TakeProfit, p.StopLoss)
	}
	if event.RunCount() != 2 {
		t.Fatalf("expected run count 2, got %d", event.RunCount())
	}

	start, err := event.StartTime()
	if err != nil {
		t.Fatalf("start time: %v", err)
	}
	if !start.Equal(time.Date(2024, 2, 9, 23, 58, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start time %s", start)
	}
}

func TestParseEventAppliesDefaults(t *testing.T) {
	event, err := ParseEvent([]byte(`{"jobParameters":{"symbol":"BGC","takeProfit":5,"stopLoss":-5,"maxRuns":10},"jobInfo":{"startTime":"2024-02-09T23:58:00Z"}}`))
	if err != nil {
		t.Fatalf("parse event: %v", err)
	}
	p := event.JobParameters
	if p.Offset() != DefaultOffsetMinutes*time.Minute {
		t.Fatalf("expected default offset, got %s", p.Offset())
	}
	if p.Window() != DefaultWindowMinutes*time.Minute {
		t.Fatalf("expected default window, got %s", p.Window())
	}
	if p.MinPoints() != DefaultMinimumPoints {
		t.Fatalf("expected default minimum points, got %d", p.MinPoints())
	}
	if event.RunCount() != 0 {
		t.Fatalf("expected run count 0 without jobStatus, got %d", event.RunCount())
	}
}

func TestParseEventFlatShape(t *testing.T) {
	data := `{"minimumPoints": 3, "symbol": "BGC", "offsetTime": 3000, "windowLength": 5,
		"takeProfit": 10, "stopLoss": -10, "maxRuns": 4, "startTime": "2024-02-09T23:58:00.000Z"}`
	event, err := ParseEvent([]byte(data))
	if err != nil {
		t.Fatalf("parse event: %v", err)
	}
	if event.JobParameters.Symbol != "BGC" || event.JobParameters.MinPoints() != 3 {
		t.Fatalf("unexpected parameters: %+v", event.JobParameters)
	}
	if event.JobParameters.Offset() != 3000*time.Minute {
		t.Fatalf("unexpected offset %s", event.JobParameters.Offset())
	}
	if event.JobInfo.StartTime == "" {
		t.Fatalf("expected start time to be carried over")
	}
}

func TestParseEventRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"missing symbol": `{"jobParameters":{"takeProfit":1,"stopLoss":-1,"maxRuns":1}}`,
		"zero max runs":  `{"jobParameters":{"symbol":"AAPL","takeProfit":1,"stopLoss":-1}}`,
		"inverted band":  `{"jobParameters":{"symbol":"AAPL","takeProfit":-1,"stopLoss":1,"maxRuns":1}}`,
		"zero window":    `{"jobParameters":{"symbol":"AAPL","windowLength":0,"takeProfit":1,"stopLoss":-1,"maxRuns":1}}`,
		"negative count": `{"jobParameters":{"symbol":"AAPL","takeProfit":1,"stopLoss":-1,"maxRuns":1},"jobStatus":{"runCount":-1}}`,
		"not json":       `nope`,
	}
	for name, data := range cases {
		if _, err := ParseEvent([]byte(data)); !errors.Is(err, ErrInvalidEvent) {
			t.Fatalf("%s: expected ErrInvalidEvent, got %v", name, err)
		}
	}
}

func TestStartTimeRequired(t *testing.T) {
	if _, err := (Event{}).StartTime(); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestResultEncoding(t *testing.T) {
	cases := []struct {
		result Result
		want   string
	}{
		{Continue(1), `{"cancelTradeJob":0,"runCount":1}`},
		{CancelAt(3), `{"cancelTradeJob":1,"runCount":3}`},
		{Cancel(), `{"cancelTradeJob":1}`},
	}
	for _, tc := range cases {
		got, err := json.Marshal(tc.result)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(got) != tc.want {
			t.Fatalf("expected %s, got %s", tc.want, got)
		}
	}
}
