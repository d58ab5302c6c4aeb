package state

import (
	"path/filepath"
	"testing"
	"time"

	"tradejob/internal/job"
)

func TestStoreCarriesRunCount(t *testing.T) {
	store := NewStore()
	store.Begin("AAPL", "2024-02-09T23:58:00.000Z")

	store.RecordResult(job.Continue(1), time.Now())
	store.RecordResult(job.Continue(2), time.Now())

	event := store.Event(job.Parameters{Symbol: "AAPL"})
	if event.RunCount() != 2 {
		t.Fatalf("expected run count 2, got %d", event.RunCount())
	}
	if event.JobInfo.StartTime != "2024-02-09T23:58:00.000Z" {
		t.Fatalf("unexpected start time %q", event.JobInfo.StartTime)
	}
	if store.Snapshot().Done() {
		t.Fatalf("expected job to continue")
	}
}

func TestStoreNeverDecreasesRunCount(t *testing.T) {
	store := NewStore()
	store.Begin("AAPL", "start")
	store.RecordResult(job.Continue(3), time.Now())
	store.RecordResult(job.Cancel(), time.Now())

	snap := store.Snapshot()
	if snap.Status.RunCount != 3 {
		t.Fatalf("expected run count to stay at 3, got %d", snap.Status.RunCount)
	}
	if !snap.Done() {
		t.Fatalf("expected job to be done")
	}
}

func TestStoreBeginResetsOtherJob(t *testing.T) {
	store := NewStore()
	store.Begin("AAPL", "start-1")
	store.RecordResult(job.Continue(5), time.Now())

	store.Begin("AAPL", "start-1")
	if store.Snapshot().Status.RunCount != 5 {
		t.Fatalf("expected same job to resume")
	}

	store.Begin("AAPL", "start-2")
	if store.Snapshot().Status.RunCount != 0 {
		t.Fatalf("expected new job to start from zero")
	}
}

func TestStoreSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	store := NewStore()
	store.Begin("AAPL", "start")
	store.RecordResult(job.Continue(4), time.Date(2024, 2, 10, 0, 8, 0, 0, time.UTC))
	store.RecordFailure(time.Date(2024, 2, 10, 0, 9, 0, 0, time.UTC))

	if err := store.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded := NewStore()
	if err := loaded.Load(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	snap := loaded.Snapshot()
	if snap.Status.RunCount != 4 || snap.Failures != 1 || snap.Symbol != "AAPL" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.LastResult == nil || snap.LastResult.Cancelled() {
		t.Fatalf("expected last result to continue, got %+v", snap.LastResult)
	}
}

func TestStoreLoadMissingFile(t *testing.T) {
	store := NewStore()
	if err := store.Load(filepath.Join(t.TempDir(), "missing.json")); err != nil {
		t.Fatalf("expected missing checkpoint to be ignored, got %v", err)
	}
}

func TestStoreResumeWithoutStartTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	store := NewStore()
	first := store.Resume("AAPL", "", time.Date(2024, 2, 9, 14, 30, 0, 0, time.UTC))
	store.RecordResult(job.CancelAt(5), time.Now())
	if err := store.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	restarted := NewStore()
	if err := restarted.Load(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	got := restarted.Resume("AAPL", "", time.Date(2024, 2, 9, 16, 0, 0, 0, time.UTC))
	if got != first {
		t.Fatalf("expected start time %q to be kept, got %q", first, got)
	}
	snap := restarted.Snapshot()
	if snap.Status.RunCount != 5 || !snap.Done() {
		t.Fatalf("expected cancelled job at run 5, got runCount=%d done=%v", snap.Status.RunCount, snap.Done())
	}
}

func TestStoreResumeOtherSymbolStartsFresh(t *testing.T) {
	store := NewStore()
	store.Resume("AAPL", "", time.Date(2024, 2, 9, 14, 30, 0, 0, time.UTC))
	store.RecordResult(job.Continue(3), time.Now())

	now := time.Date(2024, 2, 9, 16, 0, 0, 0, time.UTC)
	got := store.Resume("MSFT", "", now)
	if got != now.Format(time.RFC3339Nano) {
		t.Fatalf("expected new start time, got %q", got)
	}
	if store.Snapshot().Status.RunCount != 0 {
		t.Fatalf("expected new job to start from zero")
	}
}
