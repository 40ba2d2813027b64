package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/liquidation-verify-api/internal/models"
	"github.com/noah-isme/liquidation-verify-api/internal/repository"
	"github.com/noah-isme/liquidation-verify-api/internal/service"
	"github.com/noah-isme/liquidation-verify-api/pkg/database"
)

var liquidationsCmd = &cobra.Command{
	Use:   "liquidations",
	Short: "Inspect submitted liquidation entries",
}

var exportOpts struct {
	id     string
	format string
	out    string
}

var liquidationsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render a submitted entry as a verification letter",
	Args:  cobra.NoArgs,
	RunE:  runLiquidationsExport,
}

func init() {
	liquidationsExportCmd.Flags().StringVar(&exportOpts.id, "id", "", "liquidation entry id")
	liquidationsExportCmd.Flags().StringVar(&exportOpts.format, "format", service.FormatXLSX, "xlsx, csv or pdf")
	liquidationsExportCmd.Flags().StringVar(&exportOpts.out, "out", "", "output file (defaults to stdout)")
	_ = liquidationsExportCmd.MarkFlagRequired("id")
	liquidationsCmd.AddCommand(liquidationsExportCmd)
}

type entryGetter interface {
	GetByID(ctx context.Context, id string) (*models.LiquidationEntry, error)
}

type entryRenderer interface {
	EntryLetter(entry *models.LiquidationEntry, format string) (*service.ExportDocument, error)
}

func runLiquidationsExport(cmd *cobra.Command, _ []string) error {
	cfg, logr, err := bootstrap()
	if err != nil {
		return err
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close() //nolint:errcheck

	var out io.Writer = cmd.OutOrStdout()
	if exportOpts.out != "" {
		file, err := os.Create(exportOpts.out)
		if err != nil {
			return fmt.Errorf("create %s: %w", exportOpts.out, err)
		}
		defer file.Close() //nolint:errcheck
		out = file
	}

	exporter := service.NewExportService(nil, logr, nil, nil, nil)
	doc, err := exportEntry(cmd.Context(), repository.NewLiquidationRepository(db), exporter, exportOpts.id, exportOpts.format, out)
	if err != nil {
		return err
	}
	logr.Info("liquidation entry exported", zap.String("entry_id", exportOpts.id), zap.String("file", doc.Filename), zap.Int("bytes", len(doc.Data)))
	return nil
}

func exportEntry(ctx context.Context, entries entryGetter, renderer entryRenderer, id, format string, out io.Writer) (*service.ExportDocument, error) {
	entry, err := entries.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load entry %s: %w", id, err)
	}
	doc, err := renderer.EntryLetter(entry, format)
	if err != nil {
		return nil, err
	}
	if _, err := out.Write(doc.Data); err != nil {
		return nil, fmt.Errorf("write export: %w", err)
	}
	return doc, nil
}
