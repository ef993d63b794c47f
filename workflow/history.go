package workflow

import (
	"sync"
	"time"
)

// HistoryStore keeps finalized run records in memory for later inspection.
// Persistence beyond process lifetime belongs to the hosting application;
// this store is the engine-side query surface over completed runs.
type HistoryStore struct {
	records map[string]*ExecutionRecord
	mu      sync.RWMutex
}

// NewHistoryStore creates an empty history store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{records: make(map[string]*ExecutionRecord)}
}

// Save stores a run record, replacing any record with the same ID.
func (s *HistoryStore) Save(record *ExecutionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record
}

// Get retrieves a run record by ID.
func (s *HistoryStore) Get(runID string) (*ExecutionRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[runID]
	return record, ok
}

// ListByWorkflow returns all runs of a workflow.
func (s *HistoryStore) ListByWorkflow(workflowID string) []*ExecutionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*ExecutionRecord
	for _, record := range s.records {
		if record.WorkflowID == workflowID {
			result = append(result, record)
		}
	}
	return result
}

// ListByStatus returns runs with the given terminal status.
func (s *HistoryStore) ListByStatus(status RunStatus) []*ExecutionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*ExecutionRecord
	for _, record := range s.records {
		if record.Status == status {
			result = append(result, record)
		}
	}
	return result
}

// ListByTimeRange returns runs started within [start, end].
func (s *HistoryStore) ListByTimeRange(start, end time.Time) []*ExecutionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*ExecutionRecord
	for _, record := range s.records {
		if !record.StartTime.Before(start) && !record.StartTime.After(end) {
			result = append(result, record)
		}
	}
	return result
}
