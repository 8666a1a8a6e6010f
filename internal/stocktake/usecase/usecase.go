package usecase

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/fekuna/omnipos-stock-verifier/internal/logger"
	"github.com/fekuna/omnipos-stock-verifier/internal/model"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake/dto"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake/itemstore"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake/queue"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Config struct {
	DeviceID string
	Online   bool
}

// stockTakeUseCase owns all reconciliation state. One mutex serializes every
// step; network calls are always made with it released.
type stockTakeUseCase struct {
	remote stocktake.RemoteService
	repo   stocktake.SnapshotRepository
	logger logger.ZapLogger
	cfg    Config

	newID func() string
	now   func() time.Time

	mu            sync.Mutex
	items         *itemstore.Store
	queue         *queue.Queue
	user          *model.User
	session       *model.Session
	variances     []model.Variance
	conflicts     []model.Conflict
	notifications []model.Notification
	online        bool
	alert         *model.Alert

	wake    chan struct{}
	subs    map[int]chan model.State
	nextSub int
}

// NewStockTakeUseCase builds the engine. repo may be nil, in which case the
// auth token is kept in memory only and Load is a no-op.
func NewStockTakeUseCase(remote stocktake.RemoteService, repo stocktake.SnapshotRepository, log logger.ZapLogger, cfg Config) stocktake.Engine {
	return &stockTakeUseCase{
		remote: remote,
		repo:   repo,
		logger: log,
		cfg:    cfg,
		newID:  func() string { return uuid.New().String() },
		now:    time.Now,
		items:  itemstore.New(),
		queue:  queue.New(),
		online: cfg.Online,
		wake:   make(chan struct{}, 1),
		subs:   map[int]chan model.State{},
	}
}

// Load restores the persisted snapshot and token. In-flight mutations come
// back as pending.
func (uc *stockTakeUseCase) Load(ctx context.Context) error {
	if uc.repo == nil {
		return nil
	}
	state, err := uc.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	token, err := uc.repo.LoadToken(ctx)
	if err != nil {
		return fmt.Errorf("load token: %w", err)
	}
	if token != "" {
		uc.remote.SetToken(token)
	}
	if state == nil {
		return nil
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	uc.user = state.User
	uc.session = state.ActiveSession
	uc.items.LoadSession(state.Items)
	uc.variances = state.Variances
	uc.conflicts = state.Conflicts
	uc.notifications = state.Notifications
	normalized := uc.queue.Restore(state.Queue)

	uc.logger.Info("restored snapshot",
		zap.Int("items", uc.items.Len()),
		zap.Int("queue", uc.queue.Len()),
		zap.Int("normalized", normalized),
	)
	uc.changedLocked(true)
	return nil
}

func (uc *stockTakeUseCase) State() model.State {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.snapshotLocked()
}

func (uc *stockTakeUseCase) snapshotLocked() model.State {
	st := model.State{
		Items:         uc.items.List(),
		Variances:     append([]model.Variance(nil), uc.variances...),
		Conflicts:     append([]model.Conflict(nil), uc.conflicts...),
		Notifications: append([]model.Notification(nil), uc.notifications...),
		Queue:         uc.queue.List(),
		Online:        uc.online,
	}
	if uc.user != nil {
		u := *uc.user
		st.User = &u
	}
	if uc.session != nil {
		s := *uc.session
		st.ActiveSession = &s
	}
	if uc.alert != nil {
		a := *uc.alert
		st.Alert = &a
	}
	return st
}

// Subscribe returns a channel that always holds the latest state. Slow readers
// miss intermediate states, never the most recent one.
func (uc *stockTakeUseCase) Subscribe() (<-chan model.State, func()) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	id := uc.nextSub
	uc.nextSub++
	ch := make(chan model.State, 1)
	ch <- uc.snapshotLocked()
	uc.subs[id] = ch

	return ch, func() {
		uc.mu.Lock()
		defer uc.mu.Unlock()
		if _, ok := uc.subs[id]; ok {
			delete(uc.subs, id)
			close(ch)
		}
	}
}

// changedLocked publishes the new state and, when wake is set, signals the
// processor.
func (uc *stockTakeUseCase) changedLocked(wake bool) {
	st := uc.snapshotLocked()
	for _, ch := range uc.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
		}
	}
	if wake {
		select {
		case uc.wake <- struct{}{}:
		default:
		}
	}
}

func (uc *stockTakeUseCase) Wakeups() <-chan struct{} {
	return uc.wake
}

func (uc *stockTakeUseCase) Online() bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.online
}

// SetOnline flips connectivity. Going offline does not abort a replay that is
// already in flight; it only stops new ones from starting.
func (uc *stockTakeUseCase) SetOnline(online bool) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.online == online {
		return
	}
	uc.online = online
	uc.logger.Info("connectivity changed", zap.Bool("online", online))
	uc.changedLocked(online)
}

func (uc *stockTakeUseCase) ClearAlert() {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.alert == nil {
		return
	}
	uc.alert = nil
	uc.changedLocked(false)
}

func (uc *stockTakeUseCase) Metrics() dto.Metrics {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	total := uc.items.Len()
	if total == 0 {
		return dto.Metrics{}
	}
	verified := 0
	for _, it := range uc.items.List() {
		if it.Status == model.ItemVerified {
			verified++
		}
	}
	return dto.Metrics{
		Scanned:    total,
		Verified:   verified,
		Pending:    total - verified,
		Efficiency: int(math.Round(float64(verified) / float64(total) * 100)),
	}
}

func (uc *stockTakeUseCase) sessionIDLocked() string {
	if uc.session == nil {
		return ""
	}
	return uc.session.ID
}

func (uc *stockTakeUseCase) enqueueLocked(p model.Payload) model.Mutation {
	m := uc.queue.Enqueue(p)
	uc.logger.Debug("mutation enqueued",
		zap.String("mutation_id", m.ID),
		zap.String("idempotency_key", m.IdempotencyKey),
		zap.String("type", string(m.Type())),
		zap.String("sku", p.TargetSKU()),
	)
	return m
}
