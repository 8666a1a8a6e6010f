package stocktake

import (
	"context"

	"github.com/fekuna/omnipos-stock-verifier/internal/model"
)

// ReplayQueue is the part of the state container the processor drives.
// Every method is a single synchronous step under the container's lock.
type ReplayQueue interface {
	Online() bool
	// Wakeups fires after an enqueue or an online flip.
	Wakeups() <-chan struct{}

	BeginNext() (model.Mutation, bool)
	Complete(m model.Mutation)
	FailTransient(m model.Mutation, cause error)
	FailConflict(m model.Mutation, conflict *VersionConflictError)
	RequeueFailed() int
	HasRetryable() bool
	QueueCounts() map[model.MutationStatus]int
}

// Engine is the state container: user operations, replay hooks and recovery.
type Engine interface {
	UseCase
	ReplayQueue
	Load(ctx context.Context) error
}
