package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/fekuna/omnipos-stock-verifier/config"
	"github.com/fekuna/omnipos-stock-verifier/internal/logger"
	"github.com/fekuna/omnipos-stock-verifier/internal/model"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake/remote"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOptions(t *testing.T) (*RootOptions, *remote.Fake) {
	t.Helper()
	color.NoColor = true

	fake := remote.NewFakeForTests()
	fake.Items = []model.Item{
		{ID: "i1", Name: "Cotton Shirt", SKU: "SKU-1", SystemQty: 10, Version: 1},
		{ID: "i2", Name: "Denim Jeans", SKU: "SKU-2", SystemQty: 6, Version: 3,
			Batches: []model.BatchEntry{{ID: "b1", SystemQty: 4}, {ID: "b2", SystemQty: 2}}},
	}
	return &RootOptions{
		Remote: fake,
		Config: &config.Config{
			Logger:  config.LoggerConfig{Level: "error", Encoding: "json", DisableStacktrace: true},
			Remote:  config.RemoteConfig{DeviceID: "dev-1"},
			Storage: config.StorageConfig{Path: filepath.Join(t.TempDir(), "agent.db")},
		},
	}, fake
}

func execute(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustExecute(t *testing.T, opts *RootOptions, args ...string) string {
	t.Helper()
	out, err := execute(t, opts, args...)
	require.NoError(t, err, strings.Join(args, " "))
	return out
}

func statusOf(t *testing.T, opts *RootOptions) statusView {
	t.Helper()
	var view statusView
	require.NoError(t, json.Unmarshal([]byte(mustExecute(t, opts, "status", "--format", "json")), &view))
	return view
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand(nil)

	assert.Equal(t, "stockagent", cmd.Use)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("offline"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("format"))

	for _, name := range []string{
		"serve", "sync", "status", "login", "logout", "session", "verify",
		"add", "refresh", "approve", "recount", "resolve", "notifications",
	} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}

	start, _, err := cmd.Find([]string{"session", "start"})
	require.NoError(t, err)
	assert.NotNil(t, start.Flags().Lookup("location"))
	assert.NotNil(t, start.Flags().Lookup("rack"))
}

func TestRootCommand_RejectsUnknownFormat(t *testing.T) {
	opts, _ := newTestOptions(t)
	_, err := execute(t, opts, "status", "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestCountingFlow_PersistsAcrossInvocations(t *testing.T) {
	opts, fake := newTestOptions(t)

	out := mustExecute(t, opts, "login", "sarah")
	assert.Contains(t, out, "logged in as sarah (supervisor)")

	out = mustExecute(t, opts, "session", "start", "--location", "Main Store", "--rack", "A-102")
	assert.Contains(t, out, "session session-1 started with 2 item(s)")

	out = mustExecute(t, opts, "verify", "SKU-1", "8")
	assert.Contains(t, out, "pending_approval")

	mustExecute(t, opts, "add", "SKU-NEW", "--offline")

	view := statusOf(t, opts)
	require.NotNil(t, view.User)
	assert.Equal(t, "sarah", view.User.Name)
	require.NotNil(t, view.Session)
	assert.Equal(t, "session-1", view.Session.ID)
	require.Len(t, view.Items, 3)
	assert.Equal(t, "SKU-NEW", view.Items[0].SKU)
	require.Len(t, view.Variances, 1)
	assert.Equal(t, float64(-2), view.Variances[0].Variance)
	assert.Equal(t, 2, view.Queue[model.MutationPending])
	assert.Empty(t, fake.CallsFor(remote.OpVerify), "counts are queued, not sent")

	out = mustExecute(t, opts, "sync")
	assert.Contains(t, out, "attempted 2, remaining 0, blocked 0")

	verifies := fake.CallsFor(remote.OpVerify)
	require.Len(t, verifies, 1)
	assert.Equal(t, "token-sarah", verifies[0].Token, "token restored from storage")
	assert.Equal(t, int64(1), verifies[0].Verify.ExpectedVersion)
	require.Len(t, fake.CallsFor(remote.OpAdd), 1)

	assert.Zero(t, statusOf(t, opts).Queue[model.MutationPending])
}

func TestSync_Offline(t *testing.T) {
	opts, _ := newTestOptions(t)
	mustExecute(t, opts, "login", "sarah")

	_, err := execute(t, opts, "sync", "--offline")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offline")
}

func TestSync_ConflictIsReportedAndResolvable(t *testing.T) {
	opts, fake := newTestOptions(t)
	mustExecute(t, opts, "login", "sarah")
	mustExecute(t, opts, "session", "start", "--location", "Main Store", "--rack", "A-102")
	mustExecute(t, opts, "verify", "SKU-2", "6")

	fake.FailNext(remote.OpVerify, "SKU-2", &stocktake.VersionConflictError{ServerVersion: 5, ServerQty: 9, ServerUser: "erp"})
	out := mustExecute(t, opts, "sync")
	assert.Contains(t, out, "attempted 1, remaining 0, blocked 1")
	assert.Contains(t, out, "SKU-2")

	view := statusOf(t, opts)
	require.Len(t, view.Conflicts, 1)
	conflict := view.Conflicts[0]
	assert.Equal(t, float64(9), conflict.ServerCount)
	assert.Equal(t, int64(5), conflict.VersionMismatch.Remote)

	_, err := execute(t, opts, "resolve", conflict.ID, "both")
	assert.ErrorIs(t, err, stocktake.ErrInvalidResolution)

	mustExecute(t, opts, "resolve", conflict.ID, "server")
	mustExecute(t, opts, "sync")

	resolves := fake.CallsFor(remote.OpResolve)
	require.Len(t, resolves, 1)
	assert.Equal(t, conflict.ID, resolves[0].Target)
	assert.Equal(t, model.ResolutionServer, resolves[0].Resolution)
	assert.Len(t, fake.CallsFor(remote.OpVerify), 1, "blocked verify is dropped once resolved")
}

func TestVerify_CountingModes(t *testing.T) {
	opts, _ := newTestOptions(t)
	mustExecute(t, opts, "login", "sarah")
	mustExecute(t, opts, "session", "start", "--location", "Main Store", "--rack", "A-102")

	mustExecute(t, opts, "verify", "SKU-1", "--cartons", "2", "--units-per-carton", "4", "--loose", "2", "--mrp", "499")
	mustExecute(t, opts, "verify", "SKU-2", "--batch", "b1=4,b2=1", "--format", "json")

	items := map[string]model.Item{}
	for _, it := range statusOf(t, opts).Items {
		items[it.SKU] = it
	}

	shirt := items["SKU-1"]
	assert.Equal(t, float64(10), shirt.ObservedQty)
	assert.Equal(t, model.ItemVerified, shirt.Status)
	require.NotNil(t, shirt.CartonConfig)
	assert.Equal(t, float64(4), shirt.CartonConfig.UnitsPerCarton)
	assert.Equal(t, float64(499), shirt.MRP)
	assert.True(t, shirt.MRPVerified)

	jeans := items["SKU-2"]
	assert.Equal(t, float64(5), jeans.ObservedQty)
	assert.Equal(t, model.ItemPendingApproval, jeans.Status)

	_, err := execute(t, opts, "verify", "SKU-1", "--splits", "1,2", "--cartons", "1")
	require.Error(t, err)

	_, err = execute(t, opts, "verify", "SKU-1", "many")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid quantity")
}

func TestVerify_ReverseCartons(t *testing.T) {
	opts, _ := newTestOptions(t)
	mustExecute(t, opts, "login", "sarah")
	mustExecute(t, opts, "session", "start", "--location", "Main Store", "--rack", "A-102")
	mustExecute(t, opts, "verify", "SKU-1", "10", "--reverse-cartons", "3")

	for _, it := range statusOf(t, opts).Items {
		if it.SKU != "SKU-1" {
			continue
		}
		require.NotNil(t, it.CartonConfig)
		assert.Equal(t, float64(3), it.CartonConfig.CartonCount)
		assert.Equal(t, float64(3), it.CartonConfig.UnitsPerCarton)
	}
}

func TestGovernanceCommands(t *testing.T) {
	opts, fake := newTestOptions(t)
	mustExecute(t, opts, "login", "sarah")
	mustExecute(t, opts, "session", "start", "--location", "Main Store", "--rack", "A-102")
	mustExecute(t, opts, "verify", "SKU-1", "8")

	view := statusOf(t, opts)
	require.Len(t, view.Variances, 1)
	out := mustExecute(t, opts, "approve", view.Variances[0].ID)
	assert.Contains(t, out, "approved")
	assert.Len(t, fake.CallsFor(remote.OpApprove), 1)
	assert.Empty(t, statusOf(t, opts).Variances)

	out = mustExecute(t, opts, "recount", "SKU-2", "Rahul")
	assert.Contains(t, out, "recount of SKU-2 assigned to Rahul")

	out = mustExecute(t, opts, "notifications")
	assert.Contains(t, out, "SKU-2")

	tasks := statusOf(t, opts).Notifications
	require.Len(t, tasks, 1)
	out = mustExecute(t, opts, "notifications", "--read", tasks[0].ID)
	assert.Contains(t, out, "no priority tasks")
}

func TestRefresh(t *testing.T) {
	opts, fake := newTestOptions(t)
	mustExecute(t, opts, "login", "sarah")
	mustExecute(t, opts, "session", "start", "--location", "Main Store", "--rack", "A-102")

	fake.Live["SKU-1"] = 14
	out := mustExecute(t, opts, "refresh", "SKU-1")
	assert.Contains(t, out, "system=14")

	fake.FailNext(remote.OpLive, "SKU-1", errors.New("erp down"))
	_, err := execute(t, opts, "refresh", "SKU-1")
	assert.ErrorIs(t, err, stocktake.ErrJitSyncFailed)
}

func TestLogout_ClearsStorage(t *testing.T) {
	opts, _ := newTestOptions(t)
	mustExecute(t, opts, "login", "sarah")
	mustExecute(t, opts, "session", "start", "--location", "Main Store", "--rack", "A-102")
	mustExecute(t, opts, "verify", "SKU-1", "8")

	mustExecute(t, opts, "logout")

	view := statusOf(t, opts)
	assert.Nil(t, view.User)
	assert.Nil(t, view.Session)
	assert.Empty(t, view.Items)
	assert.Zero(t, view.Queue[model.MutationPending])

	out := mustExecute(t, opts, "status")
	assert.Contains(t, out, "not logged in")
	assert.Contains(t, out, "no active session")
}

func TestConnectivityHandler(t *testing.T) {
	fake := remote.NewFakeForTests()
	engine := usecase.NewStockTakeUseCase(fake, nil, logger.NewNop(), usecase.Config{Online: true})
	h := connectivityHandler(engine)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/connectivity?online=false", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"online":false}`, rec.Body.String())
	assert.False(t, engine.Online())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/connectivity?online=maybe", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/connectivity", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/connectivity", nil))
	assert.JSONEq(t, `{"online":false}`, rec.Body.String())
}
