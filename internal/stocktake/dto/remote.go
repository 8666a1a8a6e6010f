package dto

import "github.com/fekuna/omnipos-stock-verifier/internal/model"

type LoginRequest struct {
	Username string `json:"username"`
	DeviceID string `json:"device_id"`
}

type LoginResponse struct {
	User  model.User `json:"user"`
	Token string     `json:"token"`
}

type SessionStartRequest struct {
	Location       string `json:"location"`
	Floor          string `json:"floor"`
	Rack           string `json:"rack"`
	IdempotencyKey string `json:"idempotency_key"`
}

type SessionStartResponse struct {
	SessionID    string       `json:"session_id"`
	SnapshotHash string       `json:"snapshot_hash"`
	Items        []model.Item `json:"items"`
}

// VerifyStockRequest embeds the optional governance attributes so they are
// sent flattened alongside the count.
type VerifyStockRequest struct {
	SKU             string  `json:"sku"`
	ObservedQty     float64 `json:"observed_qty"`
	ExpectedVersion int64   `json:"expected_version"`
	IdempotencyKey  string  `json:"idempotency_key"`
	// SystemQtyAtVerification is what the client saw when the count was
	// committed, not the live value at replay time.
	SystemQtyAtVerification float64 `json:"system_qty_at_verification"`
	*model.ItemDetails
}

type AddStockRequest struct {
	SKU            string `json:"sku"`
	IdempotencyKey string `json:"idempotency_key"`
}

type ResolveConflictRequest struct {
	Resolution     model.Resolution `json:"resolution"`
	IdempotencyKey string           `json:"idempotency_key"`
}

type AssignRecountRequest struct {
	SKU            string `json:"sku"`
	Assignee       string `json:"assignee"`
	IdempotencyKey string `json:"idempotency_key"`
}

// LiveItem is the partial item returned by the JIT endpoint.
type LiveItem struct {
	SKU       string   `json:"sku"`
	SystemQty *float64 `json:"systemQty"`
	SalePrice *float64 `json:"salePrice,omitempty"`
	MRP       *float64 `json:"mrp,omitempty"`
}

// ConflictBody is the 409 response body.
type ConflictBody struct {
	ServerVersion int64   `json:"serverVersion"`
	ServerQty     float64 `json:"serverQty"`
	ServerUser    string  `json:"serverUser"`
}
