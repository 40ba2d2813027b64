package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/liquidation-verify-api/internal/models"
)

const inventoryColumns = `distributor_id, product_code, product_name, sku_code, sku_name, unit, opening_stock, ytd_sales, ytd_liquidation, balance_stock, unit_price, updated_at`

// ProductRepository reads the per-distributor SKU inventory.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository constructs the repository.
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// ListByDistributor returns the distributor's SKU snapshot ordered by product then SKU.
func (r *ProductRepository) ListByDistributor(ctx context.Context, distributorID string) ([]models.SKURecord, error) {
	query := `SELECT ` + inventoryColumns + ` FROM distributor_inventory WHERE distributor_id = $1 ORDER BY product_name, sku_name`
	var rows []models.SKURecord
	if err := r.db.SelectContext(ctx, &rows, query, distributorID); err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	return rows, nil
}

// ListAll returns every inventory row across distributors.
func (r *ProductRepository) ListAll(ctx context.Context) ([]models.SKURecord, error) {
	query := `SELECT ` + inventoryColumns + ` FROM distributor_inventory ORDER BY distributor_id, product_name, sku_name`
	var rows []models.SKURecord
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list all inventory: %w", err)
	}
	return rows, nil
}

// GetSKU returns one inventory row.
func (r *ProductRepository) GetSKU(ctx context.Context, distributorID, productCode, skuCode string) (*models.SKURecord, error) {
	query := `SELECT ` + inventoryColumns + ` FROM distributor_inventory WHERE distributor_id = $1 AND product_code = $2 AND sku_code = $3`
	var row models.SKURecord
	if err := r.db.GetContext(ctx, &row, query, distributorID, productCode, skuCode); err != nil {
		return nil, err
	}
	return &row, nil
}
