package dto

import "github.com/fekuna/omnipos-stock-verifier/internal/model"

type StartSessionInput struct {
	Location string
	Floor    string
	Rack     string
}

type VerifyInput struct {
	SKU         string
	ObservedQty float64
	// FromBatches takes the count from Details.BatchCounts and ignores
	// ObservedQty. Without it an explicit ObservedQty must match the batches.
	FromBatches     bool
	ExpectedVersion int64
	Details         *model.ItemDetails
}
