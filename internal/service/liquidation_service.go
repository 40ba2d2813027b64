package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/liquidation-verify-api/internal/models"
	appErrors "github.com/noah-isme/liquidation-verify-api/pkg/errors"
)

type inventoryReader interface {
	ListByDistributor(ctx context.Context, distributorID string) ([]models.SKURecord, error)
	ListAll(ctx context.Context) ([]models.SKURecord, error)
}

type liquidationReader interface {
	GetByID(ctx context.Context, id string) (*models.LiquidationEntry, error)
	List(ctx context.Context, filter models.LiquidationFilter) ([]models.LiquidationEntry, error)
}

// LiquidationService serves liquidation metrics and submitted entries.
type LiquidationService struct {
	inventory inventoryReader
	entries   liquidationReader
	cache     *CacheService
	logger    *zap.Logger
	now       func() time.Time
}

// NewLiquidationService constructs the service. cache may be nil.
func NewLiquidationService(inventory inventoryReader, entries liquidationReader, cache *CacheService, logger *zap.Logger) *LiquidationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiquidationService{inventory: inventory, entries: entries, cache: cache, logger: logger, now: time.Now}
}

// DistributorMetrics aggregates the inventory of one distributor. The flag reports a cache hit.
func (s *LiquidationService) DistributorMetrics(ctx context.Context, distributorID string) (*models.LiquidationMetrics, bool, error) {
	metrics, hit, err := cached(ctx, s.cache, DistributorMetricsKey(distributorID), func(ctx context.Context) (models.LiquidationMetrics, error) {
		rows, err := s.inventory.ListByDistributor(ctx, distributorID)
		if err != nil {
			return models.LiquidationMetrics{}, err
		}
		m := aggregateMetrics(rows, s.now())
		m.DistributorID = distributorID
		m.DistributorCount = 1
		return m, nil
	})
	if err != nil {
		s.logger.Error("failed to load distributor metrics", zap.String("distributor_id", distributorID), zap.Error(err))
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load liquidation metrics")
	}
	return &metrics, hit, nil
}

// Overview aggregates the inventory of every distributor. The flag reports a cache hit.
func (s *LiquidationService) Overview(ctx context.Context) (*models.LiquidationMetrics, bool, error) {
	metrics, hit, err := cached(ctx, s.cache, overviewCacheKey, func(ctx context.Context) (models.LiquidationMetrics, error) {
		rows, err := s.inventory.ListAll(ctx)
		if err != nil {
			return models.LiquidationMetrics{}, err
		}
		m := aggregateMetrics(rows, s.now())
		distributors := make(map[string]struct{})
		for _, r := range rows {
			distributors[r.DistributorID] = struct{}{}
		}
		m.DistributorCount = len(distributors)
		return m, nil
	})
	if err != nil {
		s.logger.Error("failed to load liquidation overview", zap.Error(err))
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load liquidation overview")
	}
	return &metrics, hit, nil
}

// GetEntry returns one submitted entry.
func (s *LiquidationService) GetEntry(ctx context.Context, id string) (*models.LiquidationEntry, error) {
	entry, err := s.entries.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "liquidation entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load liquidation entry")
	}
	return entry, nil
}

// ListEntries lists submitted entries, newest first.
func (s *LiquidationService) ListEntries(ctx context.Context, filter models.LiquidationFilter) ([]models.LiquidationEntry, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	entries, err := s.entries.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list liquidation entries")
	}
	return entries, nil
}

func aggregateMetrics(rows []models.SKURecord, now time.Time) models.LiquidationMetrics {
	var m models.LiquidationMetrics
	for _, r := range rows {
		addMeasure(&m.OpeningStock, r.OpeningStock, r.UnitPrice)
		addMeasure(&m.YTDNetSales, r.YTDSales, r.UnitPrice)
		addMeasure(&m.Liquidation, r.YTDLiquidation, r.UnitPrice)
		addMeasure(&m.BalanceStock, r.BalanceStock, r.UnitPrice)
	}
	m.LiquidationPercentage = liquidationPercentage(m.Liquidation.Volume, m.OpeningStock.Volume+m.YTDNetSales.Volume)
	m.GeneratedAt = now.UTC()
	return m
}

func addMeasure(measure *models.StockMeasure, units int, price decimal.Decimal) {
	measure.Volume += int64(units)
	measure.Value = measure.Value.Add(price.Mul(decimal.NewFromInt(int64(units))))
}

// liquidationPercentage is zero when nothing was available to liquidate.
func liquidationPercentage(liquidated, available int64) int64 {
	if available <= 0 {
		return 0
	}
	return int64(math.Round(float64(liquidated) / float64(available) * 100))
}
