package usecase

import (
	"context"
	"fmt"

	"github.com/fekuna/omnipos-stock-verifier/internal/auth"
	"github.com/fekuna/omnipos-stock-verifier/internal/counting"
	"github.com/fekuna/omnipos-stock-verifier/internal/model"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake/dto"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake/governance"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake/itemstore"
	"go.uber.org/zap"
)

// VerifyItem records a count locally, rederives the sku's variance in the
// same step and queues the write. It never waits on the network.
func (uc *stockTakeUseCase) VerifyItem(ctx context.Context, input *dto.VerifyInput) (*model.Item, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.session == nil {
		return nil, stocktake.ErrNoActiveSession
	}
	current, ok := uc.items.Get(input.SKU)
	if !ok {
		return nil, fmt.Errorf("%w: %s", itemstore.ErrItemNotFound, input.SKU)
	}
	observed, err := counting.ResolveObserved(current, input.ObservedQty, input.FromBatches, input.Details)
	if err != nil {
		return nil, err
	}
	details := withBatchCounts(input.Details, observed.BatchCounts)
	expected := input.ExpectedVersion
	if expected == 0 {
		expected = current.Version
	}

	item, err := uc.items.ApplyVerify(input.SKU, observed.Qty, expected, details, auth.DisplayName(uc.user))
	if err != nil {
		return nil, err
	}

	varianceID := uc.newID()
	for _, v := range uc.variances {
		if v.SKU == item.SKU {
			varianceID = v.ID
			break
		}
	}
	uc.variances = governance.UpsertVariance(uc.variances, item.SKU,
		governance.DeriveVariance(varianceID, item, uc.session.Rack))
	uc.notifications = governance.MarkReadForSKU(uc.notifications, item.SKU)

	uc.enqueueLocked(model.VerifyPayload{
		SessionID:               uc.session.ID,
		SKU:                     item.SKU,
		ObservedQty:             observed.Qty,
		ExpectedVersion:         expected,
		SystemQtyAtVerification: item.SystemQty,
		Details:                 details,
	})
	uc.changedLocked(true)
	return &item, nil
}

// AddItem registers a sku that was found on the shelf but is not in the
// session's item list.
func (uc *stockTakeUseCase) AddItem(ctx context.Context, sku string) (*model.Item, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.session == nil {
		return nil, stocktake.ErrNoActiveSession
	}
	item, err := uc.items.ApplyAdd(sku, uc.newID(), auth.DisplayName(uc.user), uc.session.Rack)
	if err != nil {
		return nil, err
	}
	uc.enqueueLocked(model.AddPayload{SessionID: uc.session.ID, SKU: sku})
	uc.changedLocked(true)
	return &item, nil
}

// RefreshSystemQty pulls the live ERP quantity for one sku. Offline it does
// nothing. Failures come back wrapped in ErrJitSyncFailed and leave the item
// as it was.
func (uc *stockTakeUseCase) RefreshSystemQty(ctx context.Context, sku string) error {
	uc.mu.Lock()
	online := uc.online
	_, exists := uc.items.Get(sku)
	uc.mu.Unlock()

	if !online {
		return nil
	}
	if !exists {
		return fmt.Errorf("%w: %s", itemstore.ErrItemNotFound, sku)
	}

	live, err := uc.remote.GetItemLatest(ctx, sku)
	if err != nil {
		uc.logger.Warn("jit refresh failed", zap.String("sku", sku), zap.Error(err))
		return fmt.Errorf("%w: %s: %w", stocktake.ErrJitSyncFailed, sku, err)
	}
	if live == nil || live.SystemQty == nil {
		uc.logger.Warn("jit refresh returned no system quantity", zap.String("sku", sku))
		return fmt.Errorf("%w: %s: no system quantity", stocktake.ErrJitSyncFailed, sku)
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	if _, err := uc.items.SetSystemQty(sku, *live.SystemQty); err != nil {
		return fmt.Errorf("%w: %w", stocktake.ErrJitSyncFailed, err)
	}
	uc.changedLocked(false)
	return nil
}

// withBatchCounts returns d carrying counts, copied so the caller's details
// are left as they were.
func withBatchCounts(d *model.ItemDetails, counts map[string]float64) *model.ItemDetails {
	if counts == nil {
		return d
	}
	var out model.ItemDetails
	if d != nil {
		out = *d
	}
	out.BatchCounts = counts
	return &out
}
