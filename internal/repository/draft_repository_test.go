package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/liquidation-verify-api/internal/workflow"
)

func sampleDraft(distributorID string, savedAt time.Time) workflow.Draft {
	return workflow.Draft{
		Distributor: workflow.Distributor{ID: distributorID, Code: "D-01", Name: "Sri Ram Agro"},
		Stage:       workflow.StageAllocation,
		Inputs:      map[string]int{"P1-S1": 70},
		Items: []workflow.Item{{
			SKU:      workflow.SKU{ProductCode: "P1", SKUCode: "S1", ProductName: "DAP", SKUName: "50kg", CurrentStock: 100},
			NewStock: 70,
		}},
		Allocations: map[string]workflow.Allocation{"P1-S1": {FarmerQuantity: 30}},
		SavedAt:     savedAt,
	}
}

func TestDraftRepositorySaveGetDelete(t *testing.T) {
	stub := newStubRedis()
	repo := &DraftRepository{client: stub}
	ctx := context.Background()

	draft := sampleDraft("dist-1", time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Save(ctx, draft, 2*time.Hour))
	assert.Equal(t, 2*time.Hour, stub.ttls["verification:draft:dist-1"])

	loaded, err := repo.Get(ctx, "dist-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StageAllocation, loaded.Stage)
	assert.Equal(t, 30, loaded.Allocations["P1-S1"].FarmerQuantity)
	assert.Equal(t, 70, loaded.Items[0].NewStock)

	require.NoError(t, repo.Delete(ctx, "dist-1"))
	_, err = repo.Get(ctx, "dist-1")
	assert.ErrorIs(t, err, ErrDraftNotFound)
}

func TestDraftRepositoryGetPropagatesRedisErrors(t *testing.T) {
	stub := newStubRedis()
	stub.getErr = errors.New("connection refused")
	repo := &DraftRepository{client: stub}

	_, err := repo.Get(context.Background(), "dist-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDraftNotFound)
}

func TestDraftRepositoryPurgeStale(t *testing.T) {
	stub := newStubRedis()
	repo := &DraftRepository{client: stub}
	ctx := context.Background()
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, sampleDraft("today", now.Add(-time.Hour)), time.Hour))
	require.NoError(t, repo.Save(ctx, sampleDraft("yesterday", now.Add(-24*time.Hour)), time.Hour))
	stub.values["verification:draft:broken"] = "{not json"
	stub.values["verification:session:u1:today"] = "{}"

	removed, err := repo.PurgeStale(ctx, now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Contains(t, stub.values, "verification:draft:today")
	assert.NotContains(t, stub.values, "verification:draft:yesterday")
	assert.NotContains(t, stub.values, "verification:draft:broken")
	assert.Contains(t, stub.values, "verification:session:u1:today")
}
