package state

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"tradejob/internal/job"
)

// Snapshot is what the local scheduler carries between invocations.
type Snapshot struct {
	Symbol     string
	StartTime  string
	Status     job.Status
	LastResult *job.Result
	LastRunAt  time.Time
	Failures   int
}

// Done reports whether the last invocation asked the job to stop.
func (s Snapshot) Done() bool {
	return s.LastResult != nil && s.LastResult.Cancelled()
}

type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copy := s.snapshot
	if s.snapshot.LastResult != nil {
		result := *s.snapshot.LastResult
		copy.LastResult = &result
	}
	return copy
}

// Begin starts tracking a job unless the store already holds one for the same
// symbol and start time.
func (s *Store) Begin(symbol, startTime string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot.Symbol == symbol && s.snapshot.StartTime == startTime {
		return
	}
	s.snapshot = Snapshot{Symbol: symbol, StartTime: startTime}
}

// Resume begins the job for symbol and returns its start time. Without a
// startTime it continues the checkpointed job for the same symbol, or starts
// a new job at now.
func (s *Store) Resume(symbol, startTime string, now time.Time) string {
	if startTime == "" {
		s.mu.RLock()
		if s.snapshot.Symbol == symbol && s.snapshot.StartTime != "" {
			startTime = s.snapshot.StartTime
		}
		s.mu.RUnlock()
	}
	if startTime == "" {
		startTime = now.UTC().Format(time.RFC3339Nano)
	}
	s.Begin(symbol, startTime)
	return startTime
}

// RecordResult stores an invocation result. A result without a run count
// leaves the previous count in place.
func (s *Store) RecordResult(result job.Result, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if result.RunCount != nil && *result.RunCount > s.snapshot.Status.RunCount {
		s.snapshot.Status.RunCount = *result.RunCount
	}
	s.snapshot.LastResult = &result
	s.snapshot.LastRunAt = at
	s.snapshot.Failures = 0
}

func (s *Store) RecordFailure(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.LastRunAt = at
	s.snapshot.Failures++
}

// Event builds the next invocation event from the stored status.
func (s *Store) Event(params job.Parameters) job.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status := s.snapshot.Status
	return job.Event{
		JobParameters: params,
		JobInfo:       job.Info{StartTime: s.snapshot.StartTime},
		JobStatus:     &status,
	}
}

func (s *Store) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := json.MarshalIndent(s.snapshot, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Clean(path))
}

// Load reads a checkpoint. A missing file leaves the store empty.
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot
	return nil
}
