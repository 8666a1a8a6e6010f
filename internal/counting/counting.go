// Package counting turns the different ways staff count a shelf into one
// observed quantity.
package counting

import (
	"errors"
	"fmt"
	"math"

	"github.com/fekuna/omnipos-stock-verifier/internal/model"
)

var (
	ErrBatchMismatch  = errors.New("batch counts do not add up to the observed quantity")
	ErrUnknownBatch   = errors.New("unknown batch")
	ErrNoBatches      = errors.New("item has no batches")
	ErrInvalidCartons = errors.New("carton count must be positive")
	ErrInvalidTotal   = errors.New("total must be positive")
)

// BatchTotal sums per-batch counts. Every key must name a batch of the item;
// negative counts are clamped to zero.
func BatchTotal(batches []model.BatchEntry, counts map[string]float64) (float64, error) {
	_, total, err := NormalizeBatchCounts(batches, counts)
	return total, err
}

// NormalizeBatchCounts returns a count for every batch: omitted batches count
// as zero and negative counts are clamped. The total is the sum of the
// returned counts.
func NormalizeBatchCounts(batches []model.BatchEntry, counts map[string]float64) (map[string]float64, float64, error) {
	out := make(map[string]float64, len(batches))
	for _, b := range batches {
		out[b.ID] = 0
	}
	var total float64
	for id, v := range counts {
		if _, ok := out[id]; !ok {
			return nil, 0, fmt.Errorf("%w: %s", ErrUnknownBatch, id)
		}
		v = math.Max(v, 0)
		out[id] = v
		total += v
	}
	return out, total, nil
}

// ApportionBatches spreads observed over the batches in order, filling each
// up to its system quantity. The last batch takes the remainder, so the
// counts always sum to observed.
func ApportionBatches(batches []model.BatchEntry, observed float64) map[string]float64 {
	if len(batches) == 0 {
		return nil
	}
	out := make(map[string]float64, len(batches))
	left := observed
	for i, b := range batches {
		if i == len(batches)-1 {
			out[b.ID] = left
			break
		}
		take := math.Min(math.Max(left, 0), math.Max(b.SystemQty, 0))
		out[b.ID] = take
		left -= take
	}
	return out
}

// SplitTotal sums split entries, ignoring non-positive ones.
func SplitTotal(entries []float64) float64 {
	var total float64
	for _, e := range entries {
		if e > 0 {
			total += e
		}
	}
	return total
}

func CartonTotal(cartons, unitsPerCarton, loose float64) float64 {
	return cartons*unitsPerCarton + loose
}

// ReverseCarton splits a known total across cartons: units per carton plus
// loose remainder.
func ReverseCarton(total, cartons int) (unitsPerCarton, loose int, err error) {
	if total <= 0 {
		return 0, 0, ErrInvalidTotal
	}
	if cartons <= 0 {
		return 0, 0, ErrInvalidCartons
	}
	return total / cartons, total % cartons, nil
}

// Observed is the quantity a verify records and, for an item with batches,
// the per-batch counts that make it up.
type Observed struct {
	Qty         float64
	BatchCounts map[string]float64
}

// ResolveObserved works out what a verify records. For an item with batches:
// when fromBatches is set or batch counts are supplied, the quantity is their
// normalized sum, and an explicit observed value (fromBatches unset) must
// agree with it, zero included. A plain count is apportioned over the
// batches instead.
func ResolveObserved(item model.Item, observed float64, fromBatches bool, details *model.ItemDetails) (Observed, error) {
	if len(item.Batches) == 0 {
		if fromBatches {
			return Observed{}, fmt.Errorf("%w: %s", ErrNoBatches, item.SKU)
		}
		return Observed{Qty: observed}, nil
	}

	var supplied map[string]float64
	if details != nil {
		supplied = details.BatchCounts
	}
	if !fromBatches && len(supplied) == 0 {
		return Observed{Qty: observed, BatchCounts: ApportionBatches(item.Batches, observed)}, nil
	}

	counts, total, err := NormalizeBatchCounts(item.Batches, supplied)
	if err != nil {
		return Observed{}, err
	}
	if !fromBatches && observed != total {
		return Observed{}, fmt.Errorf("%w: batches %v, observed %v", ErrBatchMismatch, total, observed)
	}
	return Observed{Qty: total, BatchCounts: counts}, nil
}
