package remote

import (
	"context"
	"fmt"
	"sync"

	"github.com/fekuna/omnipos-stock-verifier/internal/model"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake/dto"
)

const (
	OpLogin         = "login"
	OpStartSession  = "start_session"
	OpEndSession    = "end_session"
	OpVerify        = "verify"
	OpAdd           = "add"
	OpLive          = "live"
	OpApprove       = "approve"
	OpResolve       = "resolve"
	OpAssignRecount = "assign_recount"
)

// Call is one request observed by Fake. Target is the sku for item calls and
// the id in the path for everything else.
type Call struct {
	Op             string
	Target         string
	SessionID      string
	IdempotencyKey string
	Token          string
	Verify         *dto.VerifyStockRequest
	Resolution     model.Resolution
}

// Fake is an in-memory RemoteService for tests. Results are
// scripted per op and target with FailNext; everything else succeeds.
type Fake struct {
	mu       sync.Mutex
	token    string
	calls    []Call
	failures map[string][]error

	User      model.User
	SessionID string
	Items     []model.Item
	Live      map[string]float64

	// OnCall runs before the scripted result is chosen, without the fake's
	// lock held.
	OnCall func(Call)
}

// NewFakeForTests returns a Fake that serves a supervisor login and
// "session-1". It is never wired into the running agent.
func NewFakeForTests() *Fake {
	return &Fake{
		failures:  map[string][]error{},
		User:      model.User{ID: "u1", Name: "Sarah Supervisor", Role: model.RoleSupervisor},
		SessionID: "session-1",
		Live:      map[string]float64{},
	}
}

var _ stocktake.RemoteService = (*Fake)(nil)

// FailNext queues errors returned by the next calls of op against target, in
// order.
func (f *Fake) FailNext(op, target string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := op + "/" + target
	f.failures[key] = append(f.failures[key], errs...)
}

func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

func (f *Fake) CallsFor(op string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *Fake) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *Fake) record(c Call) error {
	f.mu.Lock()
	c.Token = f.token
	f.calls = append(f.calls, c)
	hook := f.OnCall
	f.mu.Unlock()

	if hook != nil {
		hook(c)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	key := c.Op + "/" + c.Target
	errs := f.failures[key]
	if len(errs) == 0 {
		return nil
	}
	f.failures[key] = errs[1:]
	return errs[0]
}

func (f *Fake) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

func (f *Fake) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	if err := f.record(Call{Op: OpLogin, Target: req.Username}); err != nil {
		return nil, err
	}
	u := f.User
	if req.Username != "" {
		u.Name = req.Username
	}
	return &dto.LoginResponse{User: u, Token: "token-" + req.Username}, nil
}

func (f *Fake) StartSession(ctx context.Context, req *dto.SessionStartRequest) (*dto.SessionStartResponse, error) {
	if err := f.record(Call{Op: OpStartSession, IdempotencyKey: req.IdempotencyKey}); err != nil {
		return nil, err
	}
	items := make([]model.Item, len(f.Items))
	for i, it := range f.Items {
		items[i] = it.Clone()
	}
	return &dto.SessionStartResponse{SessionID: f.SessionID, SnapshotHash: "hash-" + f.SessionID, Items: items}, nil
}

func (f *Fake) EndSession(ctx context.Context, sessionID, idempotencyKey string) error {
	return f.record(Call{Op: OpEndSession, Target: sessionID, SessionID: sessionID, IdempotencyKey: idempotencyKey})
}

func (f *Fake) VerifyItem(ctx context.Context, sessionID string, req *dto.VerifyStockRequest) (*model.Item, error) {
	r := *req
	if err := f.record(Call{Op: OpVerify, Target: req.SKU, SessionID: sessionID, IdempotencyKey: req.IdempotencyKey, Verify: &r}); err != nil {
		return nil, err
	}
	return &model.Item{SKU: req.SKU, ObservedQty: req.ObservedQty, Version: req.ExpectedVersion + 1}, nil
}

func (f *Fake) AddItem(ctx context.Context, sessionID string, req *dto.AddStockRequest) (*model.Item, error) {
	if err := f.record(Call{Op: OpAdd, Target: req.SKU, SessionID: sessionID, IdempotencyKey: req.IdempotencyKey}); err != nil {
		return nil, err
	}
	return &model.Item{SKU: req.SKU, Version: 1, IsUnidentified: true}, nil
}

func (f *Fake) GetItemLatest(ctx context.Context, sku string) (*dto.LiveItem, error) {
	if err := f.record(Call{Op: OpLive, Target: sku}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	qty, ok := f.Live[sku]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sku)
	}
	return &dto.LiveItem{SKU: sku, SystemQty: &qty}, nil
}

func (f *Fake) ApproveVariance(ctx context.Context, varianceID string) error {
	return f.record(Call{Op: OpApprove, Target: varianceID})
}

func (f *Fake) ResolveConflict(ctx context.Context, conflictID string, req *dto.ResolveConflictRequest) error {
	return f.record(Call{Op: OpResolve, Target: conflictID, IdempotencyKey: req.IdempotencyKey, Resolution: req.Resolution})
}

func (f *Fake) AssignRecount(ctx context.Context, sessionID string, req *dto.AssignRecountRequest) error {
	return f.record(Call{Op: OpAssignRecount, Target: req.SKU, SessionID: sessionID, IdempotencyKey: req.IdempotencyKey})
}
