package usecase

import (
	"errors"
	"fmt"

	"github.com/fekuna/omnipos-stock-verifier/internal/auth"
	"github.com/fekuna/omnipos-stock-verifier/internal/model"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake/governance"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake/queue"
	"go.uber.org/zap"
)

// BeginNext hands the oldest pending mutation to the processor, or nothing
// while offline or while another mutation is still in flight.
func (uc *stockTakeUseCase) BeginNext() (model.Mutation, bool) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if !uc.online {
		return model.Mutation{}, false
	}
	m, ok, err := uc.queue.BeginNext()
	if err != nil || !ok {
		return model.Mutation{}, false
	}
	uc.changedLocked(false)
	return m, true
}

func (uc *stockTakeUseCase) Complete(m model.Mutation) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if err := uc.queue.Complete(m.ID); err != nil {
		// The queue was cleared underneath the replay, e.g. by a logout.
		uc.logger.Debug("completed mutation no longer queued", zap.String("mutation_id", m.ID))
		return
	}
	uc.changedLocked(false)
}

func (uc *stockTakeUseCase) FailTransient(m model.Mutation, cause error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.failTransientLocked(m, cause)
}

func (uc *stockTakeUseCase) failTransientLocked(m model.Mutation, cause error) {
	failed, err := uc.queue.Fail(m.ID, false, cause.Error())
	if errors.Is(err, queue.ErrMutationNotFound) {
		return
	}
	sku := m.Payload.TargetSKU()
	uc.logger.Warn("replay failed, will retry",
		zap.String("mutation_id", m.ID),
		zap.String("idempotency_key", m.IdempotencyKey),
		zap.String("type", string(m.Type())),
		zap.String("sku", sku),
		zap.Int("retry_count", failed.RetryCount),
		zap.Error(cause),
	)
	msg := fmt.Sprintf("Sync failed for %s. Will retry.", m.Type())
	if sku != "" {
		msg = fmt.Sprintf("Sync failed for SKU %s. Will retry.", sku)
	}
	uc.alert = &model.Alert{Kind: model.AlertRetry, SKU: sku, Message: msg}
	uc.changedLocked(false)
}

// FailConflict parks the mutation until a human resolves it and records the
// server's side of the disagreement. Kinds that cannot conflict are treated as
// ordinary failures.
func (uc *stockTakeUseCase) FailConflict(m model.Mutation, vc *stocktake.VersionConflictError) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	var item *model.Item
	if it, ok := uc.items.Get(m.Payload.TargetSKU()); ok {
		item = &it
	}
	conflict, ok := governance.DeriveConflict(governance.ConflictInput{
		ID:        uc.newID(),
		Mutation:  m,
		Item:      item,
		LocalUser: auth.DisplayName(uc.user),
		Server:    governance.ServerState{Version: vc.ServerVersion, Qty: vc.ServerQty, User: vc.ServerUser},
		Now:       uc.now().UTC(),
	})
	if !ok {
		uc.failTransientLocked(m, vc)
		return
	}

	failed, err := uc.queue.Fail(m.ID, true, vc.Error())
	if errors.Is(err, queue.ErrMutationNotFound) {
		return
	}
	uc.conflicts = governance.UpsertConflict(uc.conflicts, conflict)
	uc.items.MarkConflicted(conflict.SKU)
	uc.alert = &model.Alert{
		Kind:    model.AlertConflict,
		SKU:     conflict.SKU,
		Message: fmt.Sprintf("Version conflict on SKU %s: server has %v (v%d).", conflict.SKU, vc.ServerQty, conflict.VersionMismatch.Remote),
	}
	uc.logger.Warn("replay rejected with version conflict",
		zap.String("mutation_id", m.ID),
		zap.String("idempotency_key", m.IdempotencyKey),
		zap.String("type", string(m.Type())),
		zap.String("sku", conflict.SKU),
		zap.Int("retry_count", failed.RetryCount),
		zap.Int64("server_version", vc.ServerVersion),
	)
	uc.changedLocked(false)
}

func (uc *stockTakeUseCase) RequeueFailed() int {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	n := uc.queue.RequeueFailed()
	if n > 0 {
		uc.changedLocked(false)
	}
	return n
}

func (uc *stockTakeUseCase) HasRetryable() bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.queue.HasRetryable()
}

func (uc *stockTakeUseCase) QueueCounts() map[model.MutationStatus]int {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.queue.Counts()
}
