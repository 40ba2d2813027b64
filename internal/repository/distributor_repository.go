package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/liquidation-verify-api/internal/models"
)

const distributorColumns = `id, code, name, territory, region, latitude, longitude, created_at, updated_at`

// DistributorRepository reads distributor master data.
type DistributorRepository struct {
	db *sqlx.DB
}

// NewDistributorRepository constructs the repository.
func NewDistributorRepository(db *sqlx.DB) *DistributorRepository {
	return &DistributorRepository{db: db}
}

// GetByID fetches a distributor by identifier.
func (r *DistributorRepository) GetByID(ctx context.Context, id string) (*models.Distributor, error) {
	query := `SELECT ` + distributorColumns + ` FROM distributors WHERE id = $1`
	var distributor models.Distributor
	if err := r.db.GetContext(ctx, &distributor, query, id); err != nil {
		return nil, err
	}
	return &distributor, nil
}

// List returns distributors whose code or name contains search.
func (r *DistributorRepository) List(ctx context.Context, search string) ([]models.Distributor, error) {
	query := `SELECT ` + distributorColumns + ` FROM distributors`
	args := []interface{}{}
	if s := strings.TrimSpace(search); s != "" {
		query += ` WHERE LOWER(name) LIKE $1 OR LOWER(code) LIKE $1`
		args = append(args, "%"+strings.ToLower(s)+"%")
	}
	query += ` ORDER BY name`
	var distributors []models.Distributor
	if err := r.db.SelectContext(ctx, &distributors, query, args...); err != nil {
		return nil, fmt.Errorf("list distributors: %w", err)
	}
	return distributors, nil
}
