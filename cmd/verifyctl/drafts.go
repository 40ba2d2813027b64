package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/liquidation-verify-api/internal/repository"
	"github.com/noah-isme/liquidation-verify-api/pkg/cache"
)

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "Manage saved verification drafts",
}

var draftsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete drafts that were not saved today",
	Args:  cobra.NoArgs,
	RunE:  runDraftsPurge,
}

func init() {
	draftsCmd.AddCommand(draftsPurgeCmd)
}

type draftPurger interface {
	PurgeStale(ctx context.Context, now time.Time, loc *time.Location) (int, error)
}

func runDraftsPurge(cmd *cobra.Command, _ []string) error {
	cfg, logr, err := bootstrap()
	if err != nil {
		return err
	}
	defer logr.Sync() //nolint:errcheck

	rdb, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer rdb.Close() //nolint:errcheck

	loc, err := time.LoadLocation(cfg.Verification.Timezone)
	if err != nil {
		loc = time.UTC
	}

	removed, err := purgeDrafts(cmd.Context(), repository.NewDraftRepository(rdb), time.Now(), loc)
	if err != nil {
		return err
	}
	logr.Info("stale drafts purged", zap.Int("removed", removed), zap.String("timezone", loc.String()))
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d stale draft(s)\n", removed)
	return nil
}

func purgeDrafts(ctx context.Context, drafts draftPurger, now time.Time, loc *time.Location) (int, error) {
	removed, err := drafts.PurgeStale(ctx, now, loc)
	if err != nil {
		return removed, fmt.Errorf("purge drafts: %w", err)
	}
	return removed, nil
}
