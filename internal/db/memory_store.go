package db

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"pitstop/internal/types"
)

var _ types.ProjectionStore = (*MemoryProjectionStore)(nil)

// MemoryProjectionStore is an in-process ProjectionStore. It follows the same
// upsert and lookup rules as ProjectionRepository.
type MemoryProjectionStore struct {
	mu        sync.RWMutex
	customers map[string]types.Customer
	jobs      map[string]types.MaintenanceJob
}

// NewMemoryProjectionStore returns an empty store.
func NewMemoryProjectionStore() *MemoryProjectionStore {
	return &MemoryProjectionStore{
		customers: make(map[string]types.Customer),
		jobs:      make(map[string]types.MaintenanceJob),
	}
}

func (s *MemoryProjectionStore) RegisterCustomer(_ context.Context, c types.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.CustomerID] = c
	return nil
}

func (s *MemoryProjectionStore) GetCustomer(_ context.Context, customerID string) (*types.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[customerID]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundCustomer, "customer "+customerID+" not found", nil)
	}
	return &c, nil
}

func (s *MemoryProjectionStore) RegisterMaintenanceJob(_ context.Context, job types.MaintenanceJob) error {
	job.StartTime = types.WallClock(job.StartTime)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.JobID] = job
	return nil
}

func (s *MemoryProjectionStore) GetMaintenanceJobs(_ context.Context, jobIDs []string) ([]types.MaintenanceJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.MaintenanceJob
	for _, id := range jobIDs {
		if j, ok := s.jobs[id]; ok && !containsJob(out, id) {
			out = append(out, j)
		}
	}
	slices.SortFunc(out, byStartTime)
	return out, nil
}

func (s *MemoryProjectionStore) GetMaintenanceJobsDueOn(_ context.Context, day time.Time) ([]types.MaintenanceJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.MaintenanceJob
	for _, j := range s.jobs {
		if j.DueOn(day) {
			out = append(out, j)
		}
	}
	slices.SortFunc(out, func(a, b types.MaintenanceJob) int {
		if c := strings.Compare(a.CustomerID, b.CustomerID); c != 0 {
			return c
		}
		return byStartTime(a, b)
	})
	return out, nil
}

func (s *MemoryProjectionStore) RemoveMaintenanceJobs(_ context.Context, jobIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range jobIDs {
		delete(s.jobs, id)
	}
	return nil
}

// Len reports the number of stored customers and jobs.
func (s *MemoryProjectionStore) Len() (customers, jobs int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.customers), len(s.jobs)
}

func containsJob(jobs []types.MaintenanceJob, id string) bool {
	return slices.ContainsFunc(jobs, func(j types.MaintenanceJob) bool { return j.JobID == id })
}

func byStartTime(a, b types.MaintenanceJob) int {
	if c := a.StartTime.Compare(b.StartTime); c != 0 {
		return c
	}
	return strings.Compare(a.JobID, b.JobID)
}
