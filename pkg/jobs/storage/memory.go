package storage

import (
	"context"
	"sort"
	"sync"

	"mailkeep-hq/mailkeep/pkg/jobs"
	"mailkeep-hq/mailkeep/pkg/policy"
)

// MemoryStore is an in-memory jobs.Store for tests and ephemeral runs.
type MemoryStore struct {
	mu         sync.RWMutex
	jobs       map[string]*jobs.Job
	policies   map[string]*policy.Policy
	executions []*jobs.Execution
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:     make(map[string]*jobs.Job),
		policies: make(map[string]*policy.Policy),
	}
}

// SaveJob inserts or replaces the job.
func (s *MemoryStore) SaveJob(_ context.Context, job *jobs.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *job
	s.jobs[job.ID] = &clone
	return nil
}

// GetJob loads one job.
func (s *MemoryStore) GetJob(_ context.Context, id string) (*jobs.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, &jobs.NotFoundError{JobID: id}
	}
	clone := *job
	return &clone, nil
}

// ListJobs returns jobs matching the filter, newest first.
func (s *MemoryStore) ListJobs(_ context.Context, filter jobs.Filter) ([]*jobs.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*jobs.Job
	for _, job := range s.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.Type != "" && job.Type != filter.Type {
			continue
		}
		clone := *job
		result = append(result, &clone)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// AppendExecution records a completed run.
func (s *MemoryStore) AppendExecution(_ context.Context, exec *jobs.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *exec
	s.executions = append(s.executions, &clone)
	return nil
}

// ListExecutions returns history entries, newest first.
func (s *MemoryStore) ListExecutions(_ context.Context, policyID string, limit int) ([]*jobs.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*jobs.Execution
	for _, exec := range s.executions {
		if policyID != "" && exec.PolicyID != policyID {
			continue
		}
		clone := *exec
		result = append(result, &clone)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CompletedAt.After(result[j].CompletedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// SavePolicy inserts or replaces a policy definition.
func (s *MemoryStore) SavePolicy(_ context.Context, p *policy.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *p
	s.policies[p.ID] = &clone
	return nil
}

// DeletePolicy removes a policy definition.
func (s *MemoryStore) DeletePolicy(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.policies, id)
	return nil
}

// LoadPolicies returns all persisted policy definitions.
func (s *MemoryStore) LoadPolicies(_ context.Context) ([]*policy.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	policies := make([]*policy.Policy, 0, len(s.policies))
	for _, p := range s.policies {
		clone := *p
		policies = append(policies, &clone)
	}
	return policies, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
