// Package itemstore holds the working set of items for the active counting
// session. It is not safe for concurrent use; the owning state container
// serializes access.
package itemstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-stock-verifier/internal/model"
)

var (
	ErrItemNotFound = errors.New("item not found")
	ErrDuplicateSku = errors.New("duplicate sku in session")
)

type Store struct {
	items []model.Item
	index map[string]int // sku -> position
	now   func() time.Time
}

func New() *Store {
	return &Store{index: map[string]int{}, now: time.Now}
}

// LoadSession replaces the working set. Nothing from a prior session survives.
func (s *Store) LoadSession(items []model.Item) {
	s.items = make([]model.Item, 0, len(items))
	s.index = make(map[string]int, len(items))
	for _, it := range items {
		if _, dup := s.index[it.SKU]; dup {
			continue
		}
		s.index[it.SKU] = len(s.items)
		s.items = append(s.items, it.Clone())
	}
}

func (s *Store) Get(sku string) (model.Item, bool) {
	i, ok := s.index[sku]
	if !ok {
		return model.Item{}, false
	}
	return s.items[i].Clone(), true
}

func (s *Store) List() []model.Item {
	out := make([]model.Item, len(s.items))
	for i, it := range s.items {
		out[i] = it.Clone()
	}
	return out
}

func (s *Store) Len() int { return len(s.items) }

// ApplyVerify records a local count optimistically. The stored version
// becomes expectedVersion+1 whatever it was before.
func (s *Store) ApplyVerify(sku string, observed float64, expectedVersion int64, details *model.ItemDetails, user string) (model.Item, error) {
	i, ok := s.index[sku]
	if !ok {
		return model.Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, sku)
	}
	it := s.items[i]
	details.Apply(&it)
	it.ObservedQty = observed
	it.Version = expectedVersion + 1
	it.LastUser = user
	it.Timestamp = s.now().UTC()
	if observed == it.SystemQty {
		it.Status = model.ItemVerified
	} else {
		it.Status = model.ItemPendingApproval
	}
	s.items[i] = it
	return it.Clone(), nil
}

// ApplyAdd creates an unidentified item at the head of the list. Uniqueness
// is scoped to the current session only.
func (s *Store) ApplyAdd(sku, id, user, location string) (model.Item, error) {
	if _, ok := s.index[sku]; ok {
		return model.Item{}, fmt.Errorf("%w: %s", ErrDuplicateSku, sku)
	}
	it := model.Item{
		ID:             id,
		Name:           "New Scanned Item (Unlisted)",
		SKU:            sku,
		Status:         model.ItemPending,
		Timestamp:      s.now().UTC(),
		Version:        1,
		LastUser:       user,
		LocationRef:    location,
		Category:       "Uncategorized",
		SubCategory:    "General",
		UOM:            "pcs",
		IsUnidentified: true,
		ItemCode:       sku,
		Brand:          "Unknown",
	}
	s.items = append([]model.Item{it}, s.items...)
	s.reindex()
	return it.Clone(), nil
}

// SetSystemQty updates only the ERP figure.
func (s *Store) SetSystemQty(sku string, qty float64) (model.Item, error) {
	i, ok := s.index[sku]
	if !ok {
		return model.Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, sku)
	}
	s.items[i].SystemQty = qty
	return s.items[i].Clone(), nil
}

func (s *Store) MarkConflicted(sku string) bool {
	return s.setStatus(sku, model.ItemConflict)
}

func (s *Store) MarkRecountAssigned(sku string) bool {
	return s.setStatus(sku, model.ItemAssignedRecount)
}

func (s *Store) MarkVerified(sku string) bool {
	return s.setStatus(sku, model.ItemVerified)
}

func (s *Store) setStatus(sku string, st model.ItemStatus) bool {
	i, ok := s.index[sku]
	if !ok {
		return false
	}
	s.items[i].Status = st
	return true
}

func (s *Store) reindex() {
	s.index = make(map[string]int, len(s.items))
	for i, it := range s.items {
		s.index[it.SKU] = i
	}
}
