package stocktake

import (
	"context"

	"github.com/fekuna/omnipos-stock-verifier/internal/model"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake/dto"
)

// RemoteService is the inventory service contract the engine replays against.
// Mutating calls carry the idempotency key so retried requests collapse.
type RemoteService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	SetToken(token string)

	StartSession(ctx context.Context, req *dto.SessionStartRequest) (*dto.SessionStartResponse, error)
	EndSession(ctx context.Context, sessionID, idempotencyKey string) error

	VerifyItem(ctx context.Context, sessionID string, req *dto.VerifyStockRequest) (*model.Item, error)
	AddItem(ctx context.Context, sessionID string, req *dto.AddStockRequest) (*model.Item, error)
	GetItemLatest(ctx context.Context, sku string) (*dto.LiveItem, error)

	ApproveVariance(ctx context.Context, varianceID string) error
	ResolveConflict(ctx context.Context, conflictID string, req *dto.ResolveConflictRequest) error
	AssignRecount(ctx context.Context, sessionID string, req *dto.AssignRecountRequest) error
}
