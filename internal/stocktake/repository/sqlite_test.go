package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fekuna/omnipos-stock-verifier/internal/logger"
	"github.com/fekuna/omnipos-stock-verifier/internal/model"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake/remote"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "agent.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLiteRepository(db)
}

func sampleState() *model.State {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return &model.State{
		User:          &model.User{ID: "u1", Name: "Sarah", Role: model.RoleSupervisor},
		ActiveSession: &model.Session{ID: "s1", Location: "Main Store", Floor: "1st Floor", Rack: "A-102", StartTime: ts},
		Items: []model.Item{
			{ID: "i1", SKU: "SKU-1", SystemQty: 10, ObservedQty: 8, Version: 2, Status: model.ItemPendingApproval, Timestamp: ts},
		},
		Variances: []model.Variance{{ID: "v1", SKU: "SKU-1", Severity: model.SeverityMedium, SystemCount: 10, PhysicalCount: 8, Variance: -2}},
		Conflicts: []model.Conflict{{ID: "c1", SKU: "SKU-2", LocalTime: ts, ServerTime: ts, VersionMismatch: model.VersionMismatch{Local: 1, Remote: 3}}},
		Notifications: []model.Notification{
			{ID: "n1", Type: model.NotificationRecountRequest, SKU: "SKU-3", Timestamp: ts},
		},
		Queue: []model.Mutation{
			{ID: "m1", Payload: model.VerifyPayload{SessionID: "s1", SKU: "SKU-1", ObservedQty: 8, ExpectedVersion: 1, SystemQtyAtVerification: 10},
				IdempotencyKey: "k1", Timestamp: ts, Status: model.MutationSyncing, RetryCount: 3, LastError: "timeout"},
			{ID: "m2", Payload: model.AddPayload{SessionID: "s1", SKU: "SKU-9"},
				IdempotencyKey: "k2", Timestamp: ts, Status: model.MutationFailed, Blocked: true},
		},
	}
}

func TestLoad_EmptyDatabase(t *testing.T) {
	repo := newRepo(t)
	st, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, st)

	token, err := repo.LoadToken(context.Background())
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestSaveLoad_RoundTripsSnapshot(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	in := sampleState()
	require.NoError(t, repo.Save(ctx, in))

	out, err := repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.Equal(t, in.User, out.User)
	assert.Equal(t, in.ActiveSession, out.ActiveSession)
	assert.Equal(t, in.Items, out.Items)
	assert.Equal(t, in.Variances, out.Variances)
	assert.Equal(t, in.Conflicts, out.Conflicts)
	assert.Equal(t, in.Notifications, out.Notifications)
	assert.Equal(t, in.Queue, out.Queue, "statuses are stored as saved")
}

func TestEngineLoad_RecoversSyncingAsPending(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	in := sampleState()
	require.NoError(t, repo.Save(ctx, in))

	core, logs := observer.New(zapcore.InfoLevel)
	engine := usecase.NewStockTakeUseCase(remote.NewFakeForTests(), repo, logger.FromZap(zap.New(core)), usecase.Config{})
	require.NoError(t, engine.Load(ctx))

	queue := engine.State().Queue
	require.Len(t, queue, 2)
	want := in.Queue[0]
	want.Status = model.MutationPending
	assert.Equal(t, want, queue[0], "only the status changes")
	assert.Equal(t, in.Queue[1], queue[1])

	restored := logs.FilterMessage("restored snapshot").All()
	require.Len(t, restored, 1)
	assert.Equal(t, int64(1), restored[0].ContextMap()["normalized"])
}

func TestSave_OverwritesPreviousSnapshot(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, sampleState()))
	require.NoError(t, repo.Save(ctx, &model.State{User: &model.User{Name: "Rahul", Role: model.RoleStaff}}))

	out, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Rahul", out.User.Name)
	assert.Nil(t, out.ActiveSession)
	assert.Empty(t, out.Items)
	assert.Empty(t, out.Queue)
}

func TestToken(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveToken(ctx, "jwt-1"))
	require.NoError(t, repo.SaveToken(ctx, "jwt-2"))
	token, err := repo.LoadToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "jwt-2", token)

	st, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, st, "the token alone is not a snapshot")

	require.NoError(t, repo.Save(ctx, sampleState()))
	require.NoError(t, repo.Clear(ctx))
	token, err = repo.LoadToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
	st, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestReopen_PersistsAcrossConnections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.db")
	ctx := context.Background()

	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, NewSQLiteRepository(db).Save(ctx, sampleState()))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	out, err := NewSQLiteRepository(db).Load(ctx)
	require.NoError(t, err)
	require.Len(t, out.Queue, 2)
	assert.Equal(t, model.MutationSyncing, out.Queue[0].Status)
}

type chanSource struct {
	ch chan model.State
}

func (s *chanSource) Subscribe() (<-chan model.State, func()) {
	return s.ch, func() {}
}

func TestWriter_PersistsObservedStates(t *testing.T) {
	repo := newRepo(t)
	src := &chanSource{ch: make(chan model.State, 1)}
	w := NewWriter(repo, src, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	src.ch <- *sampleState()
	require.Eventually(t, func() bool {
		st, err := repo.Load(context.Background())
		return err == nil && st != nil && len(st.Queue) == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestOpen_ExistingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data", "agent")
	for _, name := range []string{"a.db", "b.db"} {
		db, err := Open(filepath.Join(dir, name))
		require.NoError(t, err, name)
		require.NoError(t, db.Close())
	}
}
