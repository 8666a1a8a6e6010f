package usecase

import (
	"context"
	"fmt"

	"github.com/fekuna/omnipos-stock-verifier/internal/auth"
	"github.com/fekuna/omnipos-stock-verifier/internal/model"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake/governance"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake/itemstore"
	"go.uber.org/zap"
)

// ApproveVariance accepts the observed count. An unknown id is treated as
// already approved.
func (uc *stockTakeUseCase) ApproveVariance(ctx context.Context, varianceID string) error {
	uc.mu.Lock()
	if err := auth.RequireGovernance(uc.user); err != nil {
		uc.mu.Unlock()
		return err
	}
	var removed *model.Variance
	uc.variances, removed = governance.RemoveVariance(uc.variances, varianceID)
	if removed == nil {
		uc.mu.Unlock()
		return nil
	}
	uc.items.MarkVerified(removed.SKU)
	uc.changedLocked(false)
	online := uc.online
	uc.mu.Unlock()

	if online {
		if err := uc.remote.ApproveVariance(ctx, varianceID); err != nil {
			uc.logger.Warn("remote variance approval failed",
				zap.String("variance_id", varianceID),
				zap.String("sku", removed.SKU),
				zap.Error(err),
			)
		}
	}
	return nil
}

// AssignRecount notifies the assignee, queues the push and flags the item, all
// in one step.
func (uc *stockTakeUseCase) AssignRecount(ctx context.Context, sku, assignee string) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if err := auth.RequireGovernance(uc.user); err != nil {
		return err
	}
	if uc.session == nil {
		return stocktake.ErrNoActiveSession
	}
	if _, ok := uc.items.Get(sku); !ok {
		return fmt.Errorf("%w: %s", itemstore.ErrItemNotFound, sku)
	}

	n := governance.RecountNotification(uc.newID(), sku, assignee, uc.session.Rack, uc.now().UTC())
	uc.notifications = append([]model.Notification{n}, uc.notifications...)
	uc.enqueueLocked(model.AssignRecountPayload{SessionID: uc.session.ID, SKU: sku, Assignee: assignee})
	uc.items.MarkRecountAssigned(sku)
	uc.changedLocked(true)
	return nil
}

// ResolveConflict removes the conflict at once and queues the decision. The
// item keeps its conflict status until it is counted again.
func (uc *stockTakeUseCase) ResolveConflict(ctx context.Context, conflictID string, resolution model.Resolution) error {
	if !resolution.Valid() {
		return stocktake.ErrInvalidResolution
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	if err := auth.RequireGovernance(uc.user); err != nil {
		return err
	}
	var removed *model.Conflict
	uc.conflicts, removed = governance.RemoveConflict(uc.conflicts, conflictID)
	if removed == nil {
		return fmt.Errorf("%w: %s", stocktake.ErrConflictNotFound, conflictID)
	}

	if n := uc.queue.DropBlocked(removed.SKU); n > 0 {
		uc.logger.Info("dropped superseded mutations", zap.String("sku", removed.SKU), zap.Int("count", n))
	}
	uc.enqueueLocked(model.ResolvePayload{
		SessionID:  uc.sessionIDLocked(),
		ConflictID: conflictID,
		SKU:        removed.SKU,
		Resolution: resolution,
		LocalQty:   removed.LocalCount,
		ServerQty:  removed.ServerCount,
	})
	if uc.alert != nil && uc.alert.Kind == model.AlertConflict && uc.alert.SKU == removed.SKU {
		uc.alert = nil
	}
	uc.changedLocked(true)
	return nil
}

func (uc *stockTakeUseCase) MarkNotificationRead(id string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	var ok bool
	if uc.notifications, ok = governance.MarkRead(uc.notifications, id); ok {
		uc.changedLocked(false)
	}
}

// PriorityTasks lists unread notifications, newest first.
func (uc *stockTakeUseCase) PriorityTasks() []model.Notification {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return governance.Unread(uc.notifications)
}
