package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/liquidation-verify-api/internal/models"
)

const rectificationColumns = `id, distributor_id, product_code, sku_code, type, units, reason, source_destination, notes,
       current_units, current_value, unit_value, adjustment_value, new_balance_units, new_balance_value,
       status, requested_by, reviewed_by, requested_at, reviewed_at, review_note`

// RectificationRepository persists stock adjustment requests.
type RectificationRepository struct {
	db *sqlx.DB
}

// NewRectificationRepository constructs the repository.
func NewRectificationRepository(db *sqlx.DB) *RectificationRepository {
	return &RectificationRepository{db: db}
}

// Create inserts a new rectification row.
func (r *RectificationRepository) Create(ctx context.Context, rec *models.Rectification) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = models.RectificationStatusPending
	}
	if rec.RequestedAt.IsZero() {
		rec.RequestedAt = time.Now().UTC()
	}
	const query = `INSERT INTO stock_rectifications
	(id, distributor_id, product_code, sku_code, type, units, reason, source_destination, notes,
	 current_units, current_value, unit_value, adjustment_value, new_balance_units, new_balance_value,
	 status, requested_by, reviewed_by, requested_at, reviewed_at, review_note)
	VALUES (:id, :distributor_id, :product_code, :sku_code, :type, :units, :reason, :source_destination, :notes,
	 :current_units, :current_value, :unit_value, :adjustment_value, :new_balance_units, :new_balance_value,
	 :status, :requested_by, :reviewed_by, :requested_at, :reviewed_at, :review_note)`
	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("create rectification: %w", err)
	}
	return nil
}

// GetByID fetches a rectification by identifier.
func (r *RectificationRepository) GetByID(ctx context.Context, id string) (*models.Rectification, error) {
	query := `SELECT ` + rectificationColumns + ` FROM stock_rectifications WHERE id = $1`
	var rec models.Rectification
	if err := r.db.GetContext(ctx, &rec, query, id); err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns rectifications matching the filter (latest first).
func (r *RectificationRepository) List(ctx context.Context, filter models.RectificationFilter) ([]models.Rectification, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(`SELECT ` + rectificationColumns + ` FROM stock_rectifications`)

	conditions := make([]string, 0, 3)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.DistributorID != "" {
		args = append(args, filter.DistributorID)
		conditions = append(conditions, fmt.Sprintf("distributor_id = $%d", len(args)))
	}
	if filter.RequestedBy != "" {
		args = append(args, filter.RequestedBy)
		conditions = append(conditions, fmt.Sprintf("requested_by = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY requested_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var recs []models.Rectification
	if err := r.db.SelectContext(ctx, &recs, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list rectifications: %w", err)
	}
	return recs, nil
}

// ReviewParams groups the columns written by a review.
type ReviewParams struct {
	ID         string
	Status     models.RectificationStatus
	ReviewedBy string
	ReviewedAt time.Time
	Note       *string
}

// UpdateReview persists the review outcome of a still pending request.
func (r *RectificationRepository) UpdateReview(ctx context.Context, params ReviewParams) error {
	query := fmt.Sprintf(`UPDATE stock_rectifications
	SET status = :status, reviewed_by = :reviewed_by, reviewed_at = :reviewed_at, review_note = :review_note
	WHERE id = :id AND status = '%s'`, models.RectificationStatusPending)
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":          params.ID,
		"status":      params.Status,
		"reviewed_by": params.ReviewedBy,
		"reviewed_at": params.ReviewedAt,
		"review_note": params.Note,
	})
	if err != nil {
		return fmt.Errorf("update rectification review: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rectification update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
