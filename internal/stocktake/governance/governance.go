// Package governance derives variance, conflict and notification records from
// item and queue state. Every function here is pure.
package governance

import (
	"fmt"
	"math"
	"time"

	"github.com/fekuna/omnipos-stock-verifier/internal/model"
)

// HighSeverityThreshold is the absolute variance above which a variance is high.
const HighSeverityThreshold = 5

func Severity(observed, system float64) model.Severity {
	if math.Abs(observed-system) > HighSeverityThreshold {
		return model.SeverityHigh
	}
	return model.SeverityMedium
}

// DeriveVariance returns the variance for an item after a verify, or nil when
// the observed count matches the system quantity.
func DeriveVariance(id string, item model.Item, location string) *model.Variance {
	if item.ObservedQty == item.SystemQty {
		return nil
	}
	return &model.Variance{
		ID:              id,
		Name:            item.Name,
		SKU:             item.SKU,
		Image:           item.Image,
		Severity:        Severity(item.ObservedQty, item.SystemQty),
		SystemCount:     item.SystemQty,
		PhysicalCount:   item.ObservedQty,
		Variance:        item.ObservedQty - item.SystemQty,
		SessionLocation: location,
	}
}

// UpsertVariance applies the result of DeriveVariance for sku: the existing
// entry is replaced by v, or removed when v is nil. At most one variance per
// sku survives.
func UpsertVariance(list []model.Variance, sku string, v *model.Variance) []model.Variance {
	out := make([]model.Variance, 0, len(list)+1)
	for _, existing := range list {
		if existing.SKU != sku {
			out = append(out, existing)
		}
	}
	if v != nil {
		out = append(out, *v)
	}
	return out
}

// RemoveVariance drops the variance with id and reports what was removed.
func RemoveVariance(list []model.Variance, id string) ([]model.Variance, *model.Variance) {
	out := make([]model.Variance, 0, len(list))
	var removed *model.Variance
	for _, v := range list {
		if v.ID == id && removed == nil {
			vv := v
			removed = &vv
			continue
		}
		out = append(out, v)
	}
	return out, removed
}

// ServerState is what the remote reports when it rejects a stale write.
type ServerState struct {
	Version int64
	Qty     float64
	User    string
}

// ConflictInput is everything a conflict record is built from.
type ConflictInput struct {
	ID        string
	Mutation  model.Mutation
	Item      *model.Item
	LocalUser string
	Server    ServerState
	Now       time.Time
}

// DeriveConflict builds a conflict for a rejected VERIFY, ADD or RESOLVE.
// It returns false for any other mutation kind.
func DeriveConflict(in ConflictInput) (model.Conflict, bool) {
	var (
		sku          string
		localCount   float64
		localVersion int64
	)
	switch p := in.Mutation.Payload.(type) {
	case model.VerifyPayload:
		sku, localCount, localVersion = p.SKU, p.ObservedQty, p.ExpectedVersion
	case model.AddPayload:
		sku = p.SKU
		if in.Item != nil {
			localCount, localVersion = in.Item.ObservedQty, in.Item.Version
		}
	case model.ResolvePayload:
		sku, localCount = p.SKU, p.LocalQty
		if in.Item != nil {
			localVersion = in.Item.Version
		}
	default:
		return model.Conflict{}, false
	}

	remote := in.Server.Version
	if remote == 0 {
		remote = localVersion + 1
	}
	source := in.Server.User
	if source == "" {
		source = "System"
	}
	name := "Unknown Item"
	if in.Item != nil && in.Item.Name != "" {
		name = in.Item.Name
	}

	return model.Conflict{
		ID:           in.ID,
		Name:         name,
		SKU:          sku,
		MutationID:   in.Mutation.ID,
		LocalCount:   localCount,
		ServerCount:  in.Server.Qty,
		LocalUser:    in.LocalUser,
		LocalTime:    in.Mutation.Timestamp,
		ServerSource: source,
		ServerTime:   in.Now,
		VersionMismatch: model.VersionMismatch{
			Local:  localVersion,
			Remote: remote,
		},
	}, true
}

// UpsertConflict keeps at most one live conflict per sku; c supersedes any
// earlier one.
func UpsertConflict(list []model.Conflict, c model.Conflict) []model.Conflict {
	out := make([]model.Conflict, 0, len(list)+1)
	for _, existing := range list {
		if existing.SKU != c.SKU {
			out = append(out, existing)
		}
	}
	return append(out, c)
}

func RemoveConflict(list []model.Conflict, id string) ([]model.Conflict, *model.Conflict) {
	out := make([]model.Conflict, 0, len(list))
	var removed *model.Conflict
	for _, c := range list {
		if c.ID == id && removed == nil {
			cc := c
			removed = &cc
			continue
		}
		out = append(out, c)
	}
	return out, removed
}

func RecountNotification(id, sku, assignee, location string, now time.Time) model.Notification {
	return model.Notification{
		ID:        id,
		Type:      model.NotificationRecountRequest,
		Title:     "Recount Task Assigned",
		Message:   fmt.Sprintf("%s, please recount SKU: %s immediately.", assignee, sku),
		SKU:       sku,
		Location:  location,
		Timestamp: now,
		IsRead:    false,
	}
}

// MarkReadForSKU marks every unread notification for sku read, as happens when
// the sku is counted again.
func MarkReadForSKU(list []model.Notification, sku string) []model.Notification {
	out := append([]model.Notification(nil), list...)
	for i := range out {
		if out[i].SKU == sku && !out[i].IsRead {
			out[i].IsRead = true
		}
	}
	return out
}

func MarkRead(list []model.Notification, id string) ([]model.Notification, bool) {
	out := append([]model.Notification(nil), list...)
	for i := range out {
		if out[i].ID == id {
			out[i].IsRead = true
			return out, true
		}
	}
	return out, false
}

// Unread is the priority-task view.
func Unread(list []model.Notification) []model.Notification {
	var out []model.Notification
	for _, n := range list {
		if !n.IsRead {
			out = append(out, n)
		}
	}
	return out
}
