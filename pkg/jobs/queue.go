package jobs

import (
	"context"
	"sync"
)

// Handler processes one job asynchronously. Handlers are bound per job
// type via RegisterHandler.
type Handler func(ctx context.Context, jobID string) error

// Queue is the in-memory job queue. It holds job ids only; everything
// durable lives in the Store. Queue contents do not survive a restart;
// recovery reconciles against the persisted jobs instead.
//
// Jobs are keyed by an owning identity. Jobs with no owner land on the
// shared system list. Retrieval without an owner drains the system list
// first and then scans owner lists round-robin, so owned jobs are never
// starved by an ownerless poller.
type Queue struct {
	mu sync.Mutex

	owners     map[string][]string
	ownerOrder []string
	system     []string
	nextOwner  int

	handlers map[JobType]Handler
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		owners:   make(map[string][]string),
		handlers: make(map[JobType]Handler),
	}
}

// Add appends a job id. ownerID may be empty for system jobs.
func (q *Queue) Add(jobID, ownerID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if ownerID == "" {
		q.system = append(q.system, jobID)
		return
	}
	if _, ok := q.owners[ownerID]; !ok {
		q.ownerOrder = append(q.ownerOrder, ownerID)
	}
	q.owners[ownerID] = append(q.owners[ownerID], jobID)
}

// Retrieve pops the next job id. With an ownerID it pops from that
// owner's list only. Without one it pops the system list first, then
// scans owner lists starting after the last owner served.
func (q *Queue) Retrieve(ownerID string) (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if ownerID != "" {
		return q.popOwner(ownerID)
	}

	if len(q.system) > 0 {
		jobID := q.system[0]
		q.system = q.system[1:]
		return jobID, true
	}

	for i := 0; i < len(q.ownerOrder); i++ {
		idx := (q.nextOwner + i) % len(q.ownerOrder)
		if jobID, ok := q.popOwner(q.ownerOrder[idx]); ok {
			q.nextOwner = (idx + 1) % len(q.ownerOrder)
			return jobID, true
		}
	}
	return "", false
}

func (q *Queue) popOwner(ownerID string) (string, bool) {
	list := q.owners[ownerID]
	if len(list) == 0 {
		return "", false
	}
	jobID := list[0]
	q.owners[ownerID] = list[1:]
	return jobID, true
}

// Len returns the number of queued job ids across all lists.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.system)
	for _, list := range q.owners {
		n += len(list)
	}
	return n
}

// RegisterHandler binds a handler to a job type, replacing any previous
// binding.
func (q *Queue) RegisterHandler(jobType JobType, handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobType] = handler
}

// HandlerFor returns the handler bound to the job type.
func (q *Queue) HandlerFor(jobType JobType) (Handler, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	handler, ok := q.handlers[jobType]
	if !ok {
		return nil, &HandlerNotFoundError{Type: jobType}
	}
	return handler, nil
}
