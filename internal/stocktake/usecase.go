package stocktake

import (
	"context"

	"github.com/fekuna/omnipos-stock-verifier/internal/model"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake/dto"
)

type UseCase interface {
	// Auth
	Login(ctx context.Context, username string) (*model.User, error)
	Logout(ctx context.Context) error

	// Session
	StartSession(ctx context.Context, input *dto.StartSessionInput) (*model.Session, error)
	EndSession(ctx context.Context) error

	// Counting
	VerifyItem(ctx context.Context, input *dto.VerifyInput) (*model.Item, error)
	AddItem(ctx context.Context, sku string) (*model.Item, error)
	RefreshSystemQty(ctx context.Context, sku string) error

	// Governance
	ApproveVariance(ctx context.Context, varianceID string) error
	AssignRecount(ctx context.Context, sku, assignee string) error
	ResolveConflict(ctx context.Context, conflictID string, resolution model.Resolution) error
	MarkNotificationRead(id string)
	PriorityTasks() []model.Notification

	// Connectivity and observation
	SetOnline(online bool)
	Online() bool
	Metrics() dto.Metrics
	State() model.State
	ClearAlert()
	Subscribe() (<-chan model.State, func())
}
