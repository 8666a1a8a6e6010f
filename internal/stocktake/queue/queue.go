// Package queue is the ordered list of pending writes. Position in the queue
// is replay order; nothing reorders it.
package queue

import (
	"errors"
	"time"

	"github.com/fekuna/omnipos-stock-verifier/internal/model"
	"github.com/google/uuid"
)

var (
	ErrMutationNotFound = errors.New("mutation not found")
	ErrAlreadySyncing   = errors.New("another mutation is syncing")
)

type Queue struct {
	items []model.Mutation
	newID func() string
	now   func() time.Time
}

func New() *Queue {
	return &Queue{
		newID: func() string { return uuid.New().String() },
		now:   time.Now,
	}
}

// NewMutation builds a pending mutation with a fresh id and a separately
// generated idempotency key.
func (q *Queue) NewMutation(p model.Payload) model.Mutation {
	return model.Mutation{
		ID:             q.newID(),
		Payload:        p,
		IdempotencyKey: q.newID(),
		Timestamp:      q.now().UTC(),
		Status:         model.MutationPending,
	}
}

// Enqueue appends p to the tail and returns the stored mutation.
func (q *Queue) Enqueue(p model.Payload) model.Mutation {
	m := q.NewMutation(p)
	q.items = append(q.items, m)
	return m
}

// Restore replaces the queue with a persisted one. A mutation that was
// syncing when the process stopped is assumed not to have completed and goes
// back to pending; its idempotency key makes the retry safe.
func (q *Queue) Restore(ms []model.Mutation) (normalized int) {
	q.items = make([]model.Mutation, 0, len(ms))
	for _, m := range ms {
		if m.Status == model.MutationSyncing {
			m.Status = model.MutationPending
			normalized++
		}
		q.items = append(q.items, m)
	}
	return normalized
}

func (q *Queue) List() []model.Mutation {
	return append([]model.Mutation(nil), q.items...)
}

func (q *Queue) Len() int { return len(q.items) }

func (q *Queue) Clear() { q.items = nil }

// Syncing returns the in-flight mutation, if any.
func (q *Queue) Syncing() (model.Mutation, bool) {
	for _, m := range q.items {
		if m.Status == model.MutationSyncing {
			return m, true
		}
	}
	return model.Mutation{}, false
}

// BeginNext marks the oldest pending mutation syncing and returns it. At most
// one mutation is syncing at any time.
func (q *Queue) BeginNext() (model.Mutation, bool, error) {
	if _, busy := q.Syncing(); busy {
		return model.Mutation{}, false, ErrAlreadySyncing
	}
	for i := range q.items {
		if q.items[i].Status == model.MutationPending {
			q.items[i].Status = model.MutationSyncing
			return q.items[i], true, nil
		}
	}
	return model.Mutation{}, false, nil
}

// Complete removes a synced mutation. Synced mutations are not archived.
func (q *Queue) Complete(id string) error {
	i := q.find(id)
	if i < 0 {
		return ErrMutationNotFound
	}
	q.items = append(q.items[:i], q.items[i+1:]...)
	return nil
}

// Fail records a failed attempt. Blocked failures wait for a human
// resolution; the rest are picked up again by RequeueFailed.
func (q *Queue) Fail(id string, blocked bool, reason string) (model.Mutation, error) {
	i := q.find(id)
	if i < 0 {
		return model.Mutation{}, ErrMutationNotFound
	}
	q.items[i].Status = model.MutationFailed
	q.items[i].RetryCount++
	q.items[i].Blocked = blocked
	q.items[i].LastError = reason
	return q.items[i], nil
}

// RequeueFailed returns retryable failures to the pending pool.
func (q *Queue) RequeueFailed() int {
	n := 0
	for i := range q.items {
		if q.items[i].Status == model.MutationFailed && !q.items[i].Blocked {
			q.items[i].Status = model.MutationPending
			n++
		}
	}
	return n
}

// HasRetryable reports whether a failed, non-blocked mutation is waiting.
func (q *Queue) HasRetryable() bool {
	for _, m := range q.items {
		if m.Status == model.MutationFailed && !m.Blocked {
			return true
		}
	}
	return false
}

func (q *Queue) HasPending() bool {
	for _, m := range q.items {
		if m.Status == model.MutationPending {
			return true
		}
	}
	return false
}

// DropBlocked removes blocked mutations for sku, used once a resolution
// supersedes them.
func (q *Queue) DropBlocked(sku string) int {
	kept := q.items[:0]
	dropped := 0
	for _, m := range q.items {
		if m.Blocked && m.Status == model.MutationFailed && m.Payload != nil && m.Payload.TargetSKU() == sku {
			dropped++
			continue
		}
		kept = append(kept, m)
	}
	q.items = kept
	return dropped
}

// Counts tallies mutations by status.
func (q *Queue) Counts() map[model.MutationStatus]int {
	out := map[model.MutationStatus]int{}
	for _, m := range q.items {
		out[m.Status]++
	}
	return out
}

func (q *Queue) find(id string) int {
	for i, m := range q.items {
		if m.ID == id {
			return i
		}
	}
	return -1
}
