package model

import (
	"encoding/json"
	"fmt"
	"time"
)

type MutationType string

const (
	MutationVerify        MutationType = "VERIFY"
	MutationAdd           MutationType = "ADD"
	MutationResolve       MutationType = "RESOLVE"
	MutationAssignRecount MutationType = "ASSIGN_RECOUNT"
	MutationSessionStart  MutationType = "SESSION_START"
	MutationSessionEnd    MutationType = "SESSION_END"
)

type MutationStatus string

const (
	MutationPending MutationStatus = "pending"
	MutationSyncing MutationStatus = "syncing"
	MutationFailed  MutationStatus = "failed"
	MutationSynced  MutationStatus = "synced"
)

type Resolution string

const (
	ResolutionLocal  Resolution = "local"
	ResolutionServer Resolution = "server"
)

func (r Resolution) Valid() bool {
	return r == ResolutionLocal || r == ResolutionServer
}

// Payload is the closed set of mutation bodies. Each variant carries only the
// fields its kind needs.
type Payload interface {
	MutationType() MutationType
	// TargetSKU is the item the mutation writes to, empty when none.
	TargetSKU() string
}

type VerifyPayload struct {
	SessionID               string       `json:"sessionId"`
	SKU                     string       `json:"sku"`
	ObservedQty             float64      `json:"observedQty"`
	ExpectedVersion         int64        `json:"expectedVersion"`
	SystemQtyAtVerification float64      `json:"systemQtyAtVerification"`
	Details                 *ItemDetails `json:"details,omitempty"`
}

type AddPayload struct {
	SessionID string `json:"sessionId"`
	SKU       string `json:"sku"`
}

type ResolvePayload struct {
	SessionID  string     `json:"sessionId"`
	ConflictID string     `json:"conflictId"`
	SKU        string     `json:"sku"`
	Resolution Resolution `json:"resolution"`
	LocalQty   float64    `json:"localQty"`
	ServerQty  float64    `json:"serverQty"`
}

type AssignRecountPayload struct {
	SessionID string `json:"sessionId"`
	SKU       string `json:"sku"`
	Assignee  string `json:"assignee"`
}

type SessionStartPayload struct {
	Location string `json:"location"`
	Floor    string `json:"floor"`
	Rack     string `json:"rack"`
}

type SessionEndPayload struct {
	SessionID string `json:"sessionId"`
}

func (VerifyPayload) MutationType() MutationType        { return MutationVerify }
func (AddPayload) MutationType() MutationType           { return MutationAdd }
func (ResolvePayload) MutationType() MutationType       { return MutationResolve }
func (AssignRecountPayload) MutationType() MutationType { return MutationAssignRecount }
func (SessionStartPayload) MutationType() MutationType  { return MutationSessionStart }
func (SessionEndPayload) MutationType() MutationType    { return MutationSessionEnd }

func (p VerifyPayload) TargetSKU() string        { return p.SKU }
func (p AddPayload) TargetSKU() string           { return p.SKU }
func (p ResolvePayload) TargetSKU() string       { return p.SKU }
func (p AssignRecountPayload) TargetSKU() string { return p.SKU }
func (SessionStartPayload) TargetSKU() string    { return "" }
func (SessionEndPayload) TargetSKU() string      { return "" }

// Mutation is one queued write intent. ID is the local queue identity;
// IdempotencyKey is the token the server uses to collapse retries. They are
// generated independently and must never be conflated.
type Mutation struct {
	ID             string
	Payload        Payload
	IdempotencyKey string
	Timestamp      time.Time
	Status         MutationStatus
	RetryCount     int
	// Blocked marks a failed mutation whose failure produced a Conflict. It
	// is not retried automatically.
	Blocked   bool
	LastError string
}

func (m Mutation) Type() MutationType {
	if m.Payload == nil {
		return ""
	}
	return m.Payload.MutationType()
}

type mutationJSON struct {
	ID             string          `json:"id"`
	Type           MutationType    `json:"type"`
	Payload        json.RawMessage `json:"payload"`
	IdempotencyKey string          `json:"idempotencyKey"`
	Timestamp      time.Time       `json:"timestamp"`
	Status         MutationStatus  `json:"status"`
	RetryCount     int             `json:"retryCount"`
	Blocked        bool            `json:"blocked,omitempty"`
	LastError      string          `json:"lastError,omitempty"`
}

func (m Mutation) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(m.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(mutationJSON{
		ID:             m.ID,
		Type:           m.Type(),
		Payload:        raw,
		IdempotencyKey: m.IdempotencyKey,
		Timestamp:      m.Timestamp,
		Status:         m.Status,
		RetryCount:     m.RetryCount,
		Blocked:        m.Blocked,
		LastError:      m.LastError,
	})
}

func (m *Mutation) UnmarshalJSON(data []byte) error {
	var aux mutationJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	payload, err := decodePayload(aux.Type, aux.Payload)
	if err != nil {
		return fmt.Errorf("mutation %s: %w", aux.ID, err)
	}
	*m = Mutation{
		ID:             aux.ID,
		Payload:        payload,
		IdempotencyKey: aux.IdempotencyKey,
		Timestamp:      aux.Timestamp,
		Status:         aux.Status,
		RetryCount:     aux.RetryCount,
		Blocked:        aux.Blocked,
		LastError:      aux.LastError,
	}
	return nil
}

func decodePayload(t MutationType, raw json.RawMessage) (Payload, error) {
	switch t {
	case MutationVerify:
		return decode[VerifyPayload](raw)
	case MutationAdd:
		return decode[AddPayload](raw)
	case MutationResolve:
		return decode[ResolvePayload](raw)
	case MutationAssignRecount:
		return decode[AssignRecountPayload](raw)
	case MutationSessionStart:
		return decode[SessionStartPayload](raw)
	case MutationSessionEnd:
		return decode[SessionEndPayload](raw)
	default:
		return nil, fmt.Errorf("unknown mutation type %q", t)
	}
}

func decode[T Payload](raw json.RawMessage) (Payload, error) {
	var p T
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
	}
	return p, nil
}
