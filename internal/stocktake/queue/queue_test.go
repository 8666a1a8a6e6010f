package queue

import (
	"testing"

	"github.com/fekuna/omnipos-stock-verifier/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func verify(sku string) model.VerifyPayload {
	return model.VerifyPayload{SessionID: "s1", SKU: sku, ObservedQty: 4, ExpectedVersion: 1}
}

func TestEnqueue_IdempotencyKeysAreUnique(t *testing.T) {
	q := New()
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		m := q.Enqueue(verify("SKU-1"))
		assert.NotEqual(t, m.ID, m.IdempotencyKey)
		assert.False(t, seen[m.IdempotencyKey], "duplicate idempotency key")
		seen[m.IdempotencyKey] = true
		assert.Equal(t, model.MutationPending, m.Status)
		assert.Zero(t, m.RetryCount)
	}
}

func TestBeginNext_FIFOAndSingleInFlight(t *testing.T) {
	q := New()
	m1 := q.Enqueue(verify("A"))
	m2 := q.Enqueue(verify("B"))

	got, ok, err := q.BeginNext()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, m1.ID, got.ID)

	_, _, err = q.BeginNext()
	assert.ErrorIs(t, err, ErrAlreadySyncing)

	require.NoError(t, q.Complete(m1.ID))
	got, ok, err = q.BeginNext()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, m2.ID, got.ID)
}

func TestFail_RetryableVersusBlocked(t *testing.T) {
	q := New()
	m1 := q.Enqueue(verify("A"))
	m2 := q.Enqueue(verify("B"))

	_, _, _ = q.BeginNext()
	failed, err := q.Fail(m1.ID, false, "timeout")
	require.NoError(t, err)
	assert.Equal(t, 1, failed.RetryCount)
	assert.Equal(t, model.MutationFailed, failed.Status)

	_, _, _ = q.BeginNext()
	_, err = q.Fail(m2.ID, true, "version conflict")
	require.NoError(t, err)

	assert.True(t, q.HasRetryable())
	assert.Equal(t, 1, q.RequeueFailed())
	assert.False(t, q.HasRetryable())

	list := q.List()
	assert.Equal(t, model.MutationPending, list[0].Status)
	assert.Equal(t, model.MutationFailed, list[1].Status)
	assert.True(t, list[1].Blocked)

	// retried mutation keeps its place at the head
	got, ok, err := q.BeginNext()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, m1.ID, got.ID)
	assert.Equal(t, m1.IdempotencyKey, got.IdempotencyKey)
}

func TestRestore_NormalizesSyncing(t *testing.T) {
	src := New()
	m := src.Enqueue(verify("A"))
	m.Status = model.MutationSyncing
	m.RetryCount = 3
	other := src.Enqueue(verify("B"))
	other.Status = model.MutationFailed

	q := New()
	n := q.Restore([]model.Mutation{m, other})
	assert.Equal(t, 1, n)

	list := q.List()
	require.Len(t, list, 2)
	assert.Equal(t, model.MutationPending, list[0].Status)
	assert.Equal(t, m.ID, list[0].ID)
	assert.Equal(t, m.IdempotencyKey, list[0].IdempotencyKey)
	assert.Equal(t, 3, list[0].RetryCount)
	assert.Equal(t, m.Payload, list[0].Payload)
	assert.Equal(t, model.MutationFailed, list[1].Status)
}

func TestDropBlocked(t *testing.T) {
	q := New()
	a := q.Enqueue(verify("A"))
	q.Enqueue(verify("B"))
	_, _, _ = q.BeginNext()
	_, _ = q.Fail(a.ID, true, "conflict")

	assert.Equal(t, 0, q.DropBlocked("B"))
	assert.Equal(t, 1, q.DropBlocked("A"))
	assert.Equal(t, 1, q.Len())
	assert.Equal(t, "B", q.List()[0].Payload.TargetSKU())
}

func TestCompleteUnknown(t *testing.T) {
	q := New()
	assert.ErrorIs(t, q.Complete("nope"), ErrMutationNotFound)
	_, err := q.Fail("nope", false, "")
	assert.ErrorIs(t, err, ErrMutationNotFound)
}
