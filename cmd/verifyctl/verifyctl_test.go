package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/liquidation-verify-api/internal/models"
	"github.com/noah-isme/liquidation-verify-api/internal/service"
)

type entryGetterStub struct {
	entry *models.LiquidationEntry
}

func (s entryGetterStub) GetByID(ctx context.Context, id string) (*models.LiquidationEntry, error) {
	if s.entry == nil || s.entry.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.entry, nil
}

type purgerStub struct {
	removed int
	err     error
	loc     *time.Location
}

func (p *purgerStub) PurgeStale(ctx context.Context, now time.Time, loc *time.Location) (int, error) {
	p.loc = loc
	return p.removed, p.err
}

func TestExportEntryWritesCSV(t *testing.T) {
	entry := &models.LiquidationEntry{
		ID:              "entry-1",
		DistributorCode: "D001",
		DistributorName: "Green Agro",
		Items:           []models.LiquidationItem{{ProductCode: "DAP", SKUCode: "50KG", PreviousStock: 100, CurrentStock: 70, FarmerQuantity: 30}},
	}
	buf := &bytes.Buffer{}
	doc, err := exportEntry(context.Background(), entryGetterStub{entry: entry}, service.NewExportService(time.UTC, nil, nil, nil, nil), "entry-1", "csv", buf)
	require.NoError(t, err)
	assert.Equal(t, "liquidation_entry-1.csv", doc.Filename)
	assert.Contains(t, buf.String(), "DAP,50KG,100,70,-30,Outward,30,-")
}

func TestExportEntryMissing(t *testing.T) {
	_, err := exportEntry(context.Background(), entryGetterStub{}, service.NewExportService(nil, nil, nil, nil, nil), "nope", "csv", &bytes.Buffer{})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestPurgeDrafts(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	purger := &purgerStub{removed: 3}
	removed, err := purgeDrafts(context.Background(), purger, time.Now(), loc)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.Equal(t, loc, purger.loc)

	_, err = purgeDrafts(context.Background(), &purgerStub{err: errors.New("scan failed")}, time.Now(), loc)
	assert.ErrorContains(t, err, "purge drafts")
}

func TestCommandTree(t *testing.T) {
	rootCmd.AddCommand(draftsCmd, liquidationsCmd)
	cmd, _, err := rootCmd.Find([]string{"liquidations", "export"})
	require.NoError(t, err)
	assert.Equal(t, "export", cmd.Name())
	assert.NotNil(t, cmd.Flags().Lookup("format"))
}
