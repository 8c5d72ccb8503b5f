package worker

import (
	"fmt"
	"sync"
)

// JobStore keeps scan job records in memory. Scan runs are short and their
// outcome is a single ID, so there is no need for durable job history.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]ScanJob
}

// NewJobStore builds an empty JobStore.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]ScanJob)}
}

// Create registers a new job.
func (s *JobStore) Create(job ScanJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

// Update overwrites an existing job record.
func (s *JobStore) Update(job ScanJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

// Get returns the job by ID.
func (s *JobStore) Get(id string) (ScanJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return ScanJob{}, fmt.Errorf("scan job %q not found", id)
	}
	return job, nil
}
