package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/liquidation-verify-api/internal/models"
)

const retailerColumns = `id, code, name, outlet_name, phone, address, pincode, market, territory, zone, state, region, created_by, created_at`

// RetailerFilter narrows the retailer directory.
type RetailerFilter struct {
	Territory string
	Limit     int
}

// RetailerRepository persists the retailer directory.
type RetailerRepository struct {
	db *sqlx.DB
}

// NewRetailerRepository constructs the repository.
func NewRetailerRepository(db *sqlx.DB) *RetailerRepository {
	return &RetailerRepository{db: db}
}

// List returns retailers ordered by name.
func (r *RetailerRepository) List(ctx context.Context, filter RetailerFilter) ([]models.Retailer, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 1)
	builder.WriteString(`SELECT ` + retailerColumns + ` FROM retailers`)
	if filter.Territory != "" {
		args = append(args, filter.Territory)
		builder.WriteString(fmt.Sprintf(" WHERE territory = $%d", len(args)))
	}
	builder.WriteString(" ORDER BY name")
	limit := filter.Limit
	if limit <= 0 || limit > 5000 {
		limit = 5000
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d", limit))

	var retailers []models.Retailer
	if err := r.db.SelectContext(ctx, &retailers, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list retailers: %w", err)
	}
	return retailers, nil
}

// GetByID fetches a retailer by identifier.
func (r *RetailerRepository) GetByID(ctx context.Context, id string) (*models.Retailer, error) {
	query := `SELECT ` + retailerColumns + ` FROM retailers WHERE id = $1`
	var retailer models.Retailer
	if err := r.db.GetContext(ctx, &retailer, query, id); err != nil {
		return nil, err
	}
	return &retailer, nil
}

// Create inserts a retailer, generating id and code when absent.
func (r *RetailerRepository) Create(ctx context.Context, retailer *models.Retailer) error {
	if retailer.ID == "" {
		retailer.ID = uuid.NewString()
	}
	if retailer.Code == "" {
		retailer.Code = "RET-" + strings.ToUpper(retailer.ID[:8])
	}
	if retailer.CreatedAt.IsZero() {
		retailer.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO retailers
	(id, code, name, outlet_name, phone, address, pincode, market, territory, zone, state, region, created_by, created_at)
	VALUES (:id, :code, :name, :outlet_name, :phone, :address, :pincode, :market, :territory, :zone, :state, :region, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, retailer); err != nil {
		return fmt.Errorf("create retailer: %w", err)
	}
	return nil
}
