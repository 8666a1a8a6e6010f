package usecase

import (
	"context"
	"fmt"

	"github.com/fekuna/omnipos-stock-verifier/internal/auth"
	"github.com/fekuna/omnipos-stock-verifier/internal/model"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake/dto"
	"go.uber.org/zap"
)

func (uc *stockTakeUseCase) Login(ctx context.Context, username string) (*model.User, error) {
	if !uc.Online() {
		return nil, stocktake.ErrOffline
	}

	res, err := uc.remote.Login(ctx, &dto.LoginRequest{Username: username, DeviceID: uc.cfg.DeviceID})
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	uc.remote.SetToken(res.Token)
	if uc.repo != nil {
		if err := uc.repo.SaveToken(ctx, res.Token); err != nil {
			uc.logger.Error("failed to persist token", zap.Error(err))
		}
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	user := res.User
	uc.user = &user
	uc.logger.Info("logged in", zap.String("user", user.Name), zap.String("role", string(user.Role)))
	uc.changedLocked(false)

	out := user
	return &out, nil
}

// Logout forgets everything, including mutations that have not replayed yet.
func (uc *stockTakeUseCase) Logout(ctx context.Context) error {
	uc.mu.Lock()
	dropped := uc.queue.Len()
	uc.user = nil
	uc.session = nil
	uc.items.LoadSession(nil)
	uc.queue.Clear()
	uc.variances = nil
	uc.conflicts = nil
	uc.notifications = nil
	uc.alert = nil
	uc.changedLocked(false)
	uc.mu.Unlock()

	if dropped > 0 {
		uc.logger.Warn("logout discarded unsynced mutations", zap.Int("count", dropped))
	}
	uc.remote.SetToken("")
	if uc.repo != nil {
		if err := uc.repo.Clear(ctx); err != nil {
			return fmt.Errorf("clear snapshot: %w", err)
		}
	}
	return nil
}

// StartSession is a direct remote call, not a queued mutation: the item set
// only exists once the server has produced it.
func (uc *stockTakeUseCase) StartSession(ctx context.Context, input *dto.StartSessionInput) (*model.Session, error) {
	uc.mu.Lock()
	user, online := uc.user, uc.online
	uc.mu.Unlock()
	if user == nil {
		return nil, auth.ErrNotLoggedIn
	}
	if !online {
		return nil, stocktake.ErrOffline
	}

	res, err := uc.remote.StartSession(ctx, &dto.SessionStartRequest{
		Location:       input.Location,
		Floor:          input.Floor,
		Rack:           input.Rack,
		IdempotencyKey: uc.newID(),
	})
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.session = &model.Session{
		ID:           res.SessionID,
		Location:     input.Location,
		Floor:        input.Floor,
		Rack:         input.Rack,
		StartTime:    uc.now().UTC(),
		SnapshotHash: res.SnapshotHash,
	}
	uc.items.LoadSession(res.Items)
	uc.variances = nil
	uc.logger.Info("session started",
		zap.String("session_id", res.SessionID),
		zap.String("rack", input.Rack),
		zap.Int("items", uc.items.Len()),
	)
	uc.changedLocked(false)

	s := *uc.session
	return &s, nil
}

// EndSession queues the end marker behind any outstanding writes and drops
// the local working set.
func (uc *stockTakeUseCase) EndSession(ctx context.Context) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.session == nil {
		return stocktake.ErrNoActiveSession
	}

	uc.enqueueLocked(model.SessionEndPayload{SessionID: uc.session.ID})
	uc.logger.Info("session ended", zap.String("session_id", uc.session.ID))
	uc.session = nil
	uc.items.LoadSession(nil)
	uc.variances = nil
	uc.changedLocked(true)
	return nil
}
