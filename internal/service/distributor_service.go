package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/liquidation-verify-api/internal/models"
	appErrors "github.com/noah-isme/liquidation-verify-api/pkg/errors"
)

type distributorLister interface {
	GetByID(ctx context.Context, id string) (*models.Distributor, error)
	List(ctx context.Context, search string) ([]models.Distributor, error)
}

// DistributorService exposes distributors and their inventory snapshots.
type DistributorService struct {
	distributors distributorLister
	inventory    inventoryReader
	logger       *zap.Logger
}

// NewDistributorService constructs the service.
func NewDistributorService(distributors distributorLister, inventory inventoryReader, logger *zap.Logger) *DistributorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DistributorService{distributors: distributors, inventory: inventory, logger: logger}
}

// List searches distributors by name or code.
func (s *DistributorService) List(ctx context.Context, search string) ([]models.Distributor, error) {
	items, err := s.distributors.List(ctx, strings.TrimSpace(search))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list distributors")
	}
	return items, nil
}

// SKUs returns the current inventory rows of a distributor.
func (s *DistributorService) SKUs(ctx context.Context, distributorID string) ([]models.SKURecord, error) {
	if _, err := s.distributors.GetByID(ctx, distributorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "distributor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load distributor")
	}
	rows, err := s.inventory.ListByDistributor(ctx, distributorID)
	if err != nil {
		s.logger.Error("failed to load inventory", zap.String("distributor_id", distributorID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load inventory")
	}
	return rows, nil
}
