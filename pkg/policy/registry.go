package policy

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store persists policy definitions. Implemented by the jobs storage
// backends; a nil store makes the registry memory-only.
type Store interface {
	SavePolicy(ctx context.Context, policy *Policy) error
	DeletePolicy(ctx context.Context, id string) error
	LoadPolicies(ctx context.Context) ([]*Policy, error)
}

// Registry is a thread-safe policy table with optional persistence.
// Reads are served from memory; writes go through the store first.
type Registry struct {
	mu       sync.RWMutex
	policies map[string]*Policy
	store    Store
	now      func() time.Time
	onChange func()
}

// NewRegistry creates a registry. When store is non-nil, existing policies
// are loaded from it.
func NewRegistry(ctx context.Context, store Store) (*Registry, error) {
	r := &Registry{
		policies: make(map[string]*Policy),
		store:    store,
		now:      time.Now,
	}

	if store != nil {
		policies, err := store.LoadPolicies(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load policies: %w", err)
		}
		for _, p := range policies {
			r.policies[p.ID] = p
		}
	}

	return r, nil
}

// SetClock overrides the registry clock. Tests only.
func (r *Registry) SetClock(now func() time.Time) {
	r.now = now
}

// OnChange registers fn to run after every successful Create, Update, or
// Delete. The engine uses it to refresh schedule-derived state. RunStats
// bookkeeping does not fire it.
func (r *Registry) OnChange(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

// notify is called with no locks held so the callback may read the
// registry.
func (r *Registry) notify() {
	r.mu.RLock()
	fn := r.onChange
	r.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// Create validates and stores a new policy, assigning an id when absent.
func (r *Registry) Create(ctx context.Context, p *Policy) (*Policy, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	policyCopy := *p
	if policyCopy.ID == "" {
		policyCopy.ID = uuid.New().String()
	}
	policyCopy.CreatedAt = r.now()
	policyCopy.UpdatedAt = policyCopy.CreatedAt

	if r.store != nil {
		if err := r.store.SavePolicy(ctx, &policyCopy); err != nil {
			return nil, fmt.Errorf("failed to persist policy: %w", err)
		}
	}

	r.mu.Lock()
	r.policies[policyCopy.ID] = &policyCopy
	r.mu.Unlock()

	r.notify()
	return &policyCopy, nil
}

// Update validates and replaces an existing policy.
func (r *Registry) Update(ctx context.Context, p *Policy) (*Policy, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	existing, ok := r.policies[p.ID]
	r.mu.RUnlock()
	if !ok {
		return nil, &NotFoundError{PolicyID: p.ID}
	}

	policyCopy := *p
	policyCopy.CreatedAt = existing.CreatedAt
	policyCopy.UpdatedAt = r.now()

	if r.store != nil {
		if err := r.store.SavePolicy(ctx, &policyCopy); err != nil {
			return nil, fmt.Errorf("failed to persist policy: %w", err)
		}
	}

	r.mu.Lock()
	r.policies[policyCopy.ID] = &policyCopy
	r.mu.Unlock()

	r.notify()
	return &policyCopy, nil
}

// Delete removes a policy.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.RLock()
	_, ok := r.policies[id]
	r.mu.RUnlock()
	if !ok {
		return &NotFoundError{PolicyID: id}
	}

	if r.store != nil {
		if err := r.store.DeletePolicy(ctx, id); err != nil {
			return fmt.Errorf("failed to delete policy: %w", err)
		}
	}

	r.mu.Lock()
	delete(r.policies, id)
	r.mu.Unlock()

	r.notify()
	return nil
}

// Get returns a copy of the policy with the given id.
func (r *Registry) Get(id string) (*Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.policies[id]
	if !ok {
		return nil, &NotFoundError{PolicyID: id}
	}
	policyCopy := *p
	return &policyCopy, nil
}

// List returns copies of all policies, sorted by priority descending.
func (r *Registry) List() []*Policy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	policies := make([]*Policy, 0, len(r.policies))
	for _, p := range r.policies {
		policyCopy := *p
		policies = append(policies, &policyCopy)
	}
	sortByPriority(policies)
	return policies
}

// Active returns copies of all enabled policies, sorted by priority
// descending.
func (r *Registry) Active() []*Policy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var policies []*Policy
	for _, p := range r.policies {
		if p.Enabled {
			policyCopy := *p
			policies = append(policies, &policyCopy)
		}
	}
	sortByPriority(policies)
	return policies
}

// RecordRun updates run statistics for a policy after an execution.
func (r *Registry) RecordRun(ctx context.Context, id string, cleaned int) error {
	r.mu.Lock()
	p, ok := r.policies[id]
	if !ok {
		r.mu.Unlock()
		return &NotFoundError{PolicyID: id}
	}
	p.RunStats.TotalRuns++
	p.RunStats.TotalCleaned += cleaned
	p.RunStats.LastRunAt = r.now()
	policyCopy := *p
	r.mu.Unlock()

	if r.store != nil {
		if err := r.store.SavePolicy(ctx, &policyCopy); err != nil {
			return fmt.Errorf("failed to persist run stats: %w", err)
		}
	}
	return nil
}

// sortByPriority sorts policies by priority descending, name ascending for
// a stable order among equals.
func sortByPriority(policies []*Policy) {
	sort.Slice(policies, func(i, j int) bool {
		if policies[i].Priority != policies[j].Priority {
			return policies[i].Priority > policies[j].Priority
		}
		return policies[i].Name < policies[j].Name
	})
}
