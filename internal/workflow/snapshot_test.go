package workflow

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestDraftResumeRestoresExactState(t *testing.T) {
	w := toAllocation(t)
	require.NoError(t, w.SetFarmerQuantity(dapKey, 10))
	_, err := w.AddRetailerRow(dapKey, RetailerAllocation{RetailerID: "ret-1", RetailerName: "ABC Traders", Quantity: 20})
	require.NoError(t, err)
	require.NoError(t, w.Next())
	require.NoError(t, w.CaptureSignature("data:image/png;base64,AAA", Operator{ID: "u-1", Name: "Ravi"}, nil, time.Now()))
	w.Proofs = []Proof{{ID: "p-1", URL: "https://cdn.example/p1.jpg"}}

	loc := mustLocation(t, "Asia/Kolkata")
	savedAt := time.Date(2026, 10, 16, 10, 0, 0, 0, loc)
	draft := w.Snapshot(savedAt)

	raw, err := json.Marshal(draft)
	require.NoError(t, err)
	var decoded Draft
	require.NoError(t, json.Unmarshal(raw, &decoded))

	now := time.Date(2026, 10, 16, 21, 30, 0, 0, loc)
	require.True(t, decoded.Resumable(now, loc))

	restored := Restore(decoded, testSKUs())
	assert.Equal(t, StageAttestation, restored.Stage)
	assert.Equal(t, w.Items[0].SKU.Key(), restored.Items[0].SKU.Key())
	assert.Equal(t, w.Items[0].NewStock, restored.Items[0].NewStock)
	assert.Equal(t, w.Allocations[dapKey].FarmerQuantity, restored.Allocations[dapKey].FarmerQuantity)
	assert.Equal(t, w.Allocations[dapKey].Retailers, restored.Allocations[dapKey].Retailers)
	assert.Equal(t, "data:image/png;base64,AAA", restored.Attestation.Signature)
	assert.Equal(t, w.Proofs[0].URL, restored.Proofs[0].URL)
	assert.Equal(t, 70, restored.Inputs[dapKey])

	restored.Allocations[dapKey].Retailers[0].Quantity = 1
	assert.Equal(t, 20, w.Allocations[dapKey].Retailers[0].Quantity)
}

func TestDraftFromYesterdayIsStale(t *testing.T) {
	loc := mustLocation(t, "Asia/Kolkata")
	w := toAllocation(t)
	draft := w.Snapshot(time.Date(2026, 10, 15, 23, 50, 0, 0, loc))

	now := time.Date(2026, 10, 16, 0, 5, 0, 0, loc)
	assert.False(t, draft.ValidOn(now, loc))
	assert.False(t, draft.Resumable(now, loc))
}

func TestDraftDayBoundaryFollowsConfiguredZone(t *testing.T) {
	loc := mustLocation(t, "Asia/Kolkata")
	w := toAllocation(t)
	// 20:00 UTC on the 15th is already the 16th in Kolkata
	draft := w.Snapshot(time.Date(2026, 10, 15, 20, 0, 0, 0, time.UTC))
	now := time.Date(2026, 10, 16, 8, 0, 0, 0, loc)
	assert.True(t, draft.ValidOn(now, loc))
	assert.False(t, draft.ValidOn(now, time.UTC))
}

func TestDraftAtStockInputIsNotResumable(t *testing.T) {
	w := toAllocation(t)
	require.NoError(t, w.Back())
	now := time.Now()
	draft := w.Snapshot(now)
	assert.True(t, draft.ValidOn(now, time.UTC))
	assert.False(t, draft.Resumable(now, time.UTC))
}

func TestRestoreWithoutSKUsUsesItemSnapshot(t *testing.T) {
	w := toAllocation(t)
	restored := Restore(w.Snapshot(time.Now()), nil)
	require.Len(t, restored.SKUs, 1)
	assert.Equal(t, dapKey, restored.SKUs[0].Key())
}

func TestEndOfDay(t *testing.T) {
	loc := mustLocation(t, "Asia/Kolkata")
	now := time.Date(2026, 10, 16, 13, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2026, 10, 17, 0, 0, 0, 0, loc), EndOfDay(now, loc))
}
