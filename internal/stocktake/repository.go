package stocktake

import (
	"context"

	"github.com/fekuna/omnipos-stock-verifier/internal/model"
)

type SnapshotRepository interface {
	// Load returns nil, nil when nothing has been persisted yet.
	Load(ctx context.Context) (*model.State, error)
	Save(ctx context.Context, state *model.State) error

	LoadToken(ctx context.Context) (string, error)
	SaveToken(ctx context.Context, token string) error

	Clear(ctx context.Context) error
}
