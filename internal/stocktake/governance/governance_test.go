package governance

import (
	"testing"
	"time"

	"github.com/fekuna/omnipos-stock-verifier/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverity(t *testing.T) {
	tests := []struct {
		name     string
		observed float64
		system   float64
		want     model.Severity
	}{
		{"over threshold", 16, 10, model.SeverityHigh},
		{"at threshold", 15, 10, model.SeverityMedium},
		{"negative over threshold", 4, 10, model.SeverityHigh},
		{"small shortfall", 8, 10, model.SeverityMedium},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Severity(tt.observed, tt.system))
		})
	}
}

func TestDeriveVariance(t *testing.T) {
	item := model.Item{SKU: "SKU-1000", Name: "Shirt", SystemQty: 10, ObservedQty: 8}

	v := DeriveVariance("v1", item, "R-12")
	require.NotNil(t, v)
	assert.Equal(t, -2.0, v.Variance)
	assert.Equal(t, model.SeverityMedium, v.Severity)
	assert.Equal(t, 10.0, v.SystemCount)
	assert.Equal(t, 8.0, v.PhysicalCount)
	assert.Equal(t, "R-12", v.SessionLocation)

	item.ObservedQty = 10
	assert.Nil(t, DeriveVariance("v2", item, "R-12"))
}

func TestUpsertVariance_OnePerSku(t *testing.T) {
	list := []model.Variance{{ID: "v1", SKU: "A"}, {ID: "v2", SKU: "B"}}

	list = UpsertVariance(list, "A", &model.Variance{ID: "v3", SKU: "A"})
	require.Len(t, list, 2)
	assert.Equal(t, "v2", list[0].ID)
	assert.Equal(t, "v3", list[1].ID)

	list = UpsertVariance(list, "A", nil)
	require.Len(t, list, 1)
	assert.Equal(t, "B", list[0].SKU)
}

func TestRemoveVariance(t *testing.T) {
	list := []model.Variance{{ID: "v1", SKU: "A"}}

	out, removed := RemoveVariance(list, "v1")
	require.NotNil(t, removed)
	assert.Equal(t, "A", removed.SKU)
	assert.Empty(t, out)

	out, removed = RemoveVariance(out, "v1")
	assert.Nil(t, removed)
	assert.Empty(t, out)
}

func TestDeriveConflict_Verify(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	now := ts.Add(time.Minute)
	m := model.Mutation{
		ID:        "m1",
		Timestamp: ts,
		Payload:   model.VerifyPayload{SKU: "SKU-1009", ObservedQty: 7, ExpectedVersion: 3},
	}

	c, ok := DeriveConflict(ConflictInput{
		ID:        "c1",
		Mutation:  m,
		Item:      &model.Item{Name: "Jeans"},
		LocalUser: "Rahul",
		Server:    ServerState{Version: 5, Qty: 12, User: "Supervisor Sarah"},
		Now:       now,
	})
	require.True(t, ok)
	assert.Equal(t, "SKU-1009", c.SKU)
	assert.Equal(t, "Jeans", c.Name)
	assert.Equal(t, 7.0, c.LocalCount)
	assert.Equal(t, 12.0, c.ServerCount)
	assert.Equal(t, model.VersionMismatch{Local: 3, Remote: 5}, c.VersionMismatch)
	assert.Equal(t, "Supervisor Sarah", c.ServerSource)
	assert.Equal(t, ts, c.LocalTime)
	assert.Equal(t, now, c.ServerTime)
	assert.Equal(t, "m1", c.MutationID)
}

func TestDeriveConflict_Defaults(t *testing.T) {
	m := model.Mutation{Payload: model.VerifyPayload{SKU: "X", ExpectedVersion: 2}}

	c, ok := DeriveConflict(ConflictInput{ID: "c", Mutation: m})
	require.True(t, ok)
	assert.Equal(t, int64(3), c.VersionMismatch.Remote)
	assert.Equal(t, "System", c.ServerSource)
	assert.Equal(t, "Unknown Item", c.Name)
}

func TestDeriveConflict_NotForRecount(t *testing.T) {
	_, ok := DeriveConflict(ConflictInput{Mutation: model.Mutation{Payload: model.AssignRecountPayload{SKU: "X"}}})
	assert.False(t, ok)
	_, ok = DeriveConflict(ConflictInput{Mutation: model.Mutation{Payload: model.SessionEndPayload{SessionID: "s"}}})
	assert.False(t, ok)
}

func TestUpsertConflict_Supersedes(t *testing.T) {
	list := UpsertConflict(nil, model.Conflict{ID: "c1", SKU: "A"})
	list = UpsertConflict(list, model.Conflict{ID: "c2", SKU: "B"})
	list = UpsertConflict(list, model.Conflict{ID: "c3", SKU: "A"})

	require.Len(t, list, 2)
	assert.Equal(t, "c2", list[0].ID)
	assert.Equal(t, "c3", list[1].ID)

	list, removed := RemoveConflict(list, "c3")
	require.NotNil(t, removed)
	assert.Len(t, list, 1)
}

func TestNotifications(t *testing.T) {
	now := time.Now()
	n1 := RecountNotification("n1", "A", "Rahul", "R-1", now)
	n2 := RecountNotification("n2", "B", "Rahul", "R-1", now)
	assert.Equal(t, model.NotificationRecountRequest, n1.Type)
	assert.Contains(t, n1.Message, "Rahul")
	assert.Contains(t, n1.Message, "A")

	list := []model.Notification{n1, n2}
	list = MarkReadForSKU(list, "A")
	assert.True(t, list[0].IsRead)
	assert.False(t, list[1].IsRead)
	assert.Len(t, list, 2)

	unread := Unread(list)
	require.Len(t, unread, 1)
	assert.Equal(t, "n2", unread[0].ID)

	list, ok := MarkRead(list, "n2")
	assert.True(t, ok)
	assert.Empty(t, Unread(list))
	assert.Len(t, list, 2)

	_, ok = MarkRead(list, "missing")
	assert.False(t, ok)
}
