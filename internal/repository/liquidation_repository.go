package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/liquidation-verify-api/internal/models"
)

const entryColumns = `id, distributor_id, distributor_code, distributor_name, signature_url, verified_by, verifier_name, verifier_role, latitude, longitude, address, verified_at, submitted_at`

// LiquidationRepository stores submitted verifications.
type LiquidationRepository struct {
	db *sqlx.DB
}

// NewLiquidationRepository constructs the repository.
func NewLiquidationRepository(db *sqlx.DB) *LiquidationRepository {
	return &LiquidationRepository{db: db}
}

// Create writes the entry with its items, retailer allocations and proofs in one transaction
// and moves each SKU's balance stock to the verified figure.
func (r *LiquidationRepository) Create(ctx context.Context, entry *models.LiquidationEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.SubmittedAt.IsZero() {
		entry.SubmittedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin liquidation tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const entryInsert = `INSERT INTO liquidation_entries
	(id, distributor_id, distributor_code, distributor_name, signature_url, verified_by, verifier_name, verifier_role, latitude, longitude, address, verified_at, submitted_at)
	VALUES (:id, :distributor_id, :distributor_code, :distributor_name, :signature_url, :verified_by, :verifier_name, :verifier_role, :latitude, :longitude, :address, :verified_at, :submitted_at)`
	if _, err = tx.NamedExecContext(ctx, entryInsert, entry); err != nil {
		return fmt.Errorf("insert liquidation entry: %w", err)
	}

	const itemInsert = `INSERT INTO liquidation_entry_items
	(id, entry_id, product_code, sku_code, previous_stock, current_stock, farmer_quantity)
	VALUES (:id, :entry_id, :product_code, :sku_code, :previous_stock, :current_stock, :farmer_quantity)`
	const allocationInsert = `INSERT INTO liquidation_retailer_allocations (id, item_id, retailer_id, quantity)
	VALUES (:id, :item_id, :retailer_id, :quantity)`
	const stockUpdate = `UPDATE distributor_inventory
	SET balance_stock = $4, ytd_liquidation = ytd_liquidation + GREATEST($5, 0), updated_at = $6
	WHERE distributor_id = $1 AND product_code = $2 AND sku_code = $3`

	for i := range entry.Items {
		item := &entry.Items[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.EntryID = entry.ID
		if _, err = tx.NamedExecContext(ctx, itemInsert, item); err != nil {
			return fmt.Errorf("insert liquidation item: %w", err)
		}
		for j := range item.Retailers {
			alloc := &item.Retailers[j]
			if alloc.ID == "" {
				alloc.ID = uuid.NewString()
			}
			alloc.ItemID = item.ID
			if _, err = tx.NamedExecContext(ctx, allocationInsert, alloc); err != nil {
				return fmt.Errorf("insert retailer allocation: %w", err)
			}
		}
		if _, err = tx.ExecContext(ctx, stockUpdate, entry.DistributorID, item.ProductCode, item.SKUCode,
			item.CurrentStock, item.PreviousStock-item.CurrentStock, entry.SubmittedAt); err != nil {
			return fmt.Errorf("update inventory balance: %w", err)
		}
	}

	const proofInsert = `INSERT INTO liquidation_proofs (id, entry_id, url, position) VALUES (:id, :entry_id, :url, :position)`
	for i := range entry.Proofs {
		proof := &entry.Proofs[i]
		if proof.ID == "" {
			proof.ID = uuid.NewString()
		}
		proof.EntryID = entry.ID
		proof.Position = i
		if _, err = tx.NamedExecContext(ctx, proofInsert, proof); err != nil {
			return fmt.Errorf("insert liquidation proof: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit liquidation tx: %w", err)
	}
	return nil
}

// GetByID loads an entry with its items, allocations and proofs.
func (r *LiquidationRepository) GetByID(ctx context.Context, id string) (*models.LiquidationEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM liquidation_entries WHERE id = $1`
	var entry models.LiquidationEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}

	const itemsQuery = `SELECT id, entry_id, product_code, sku_code, previous_stock, current_stock, farmer_quantity
	FROM liquidation_entry_items WHERE entry_id = $1 ORDER BY product_code, sku_code`
	if err := r.db.SelectContext(ctx, &entry.Items, itemsQuery, id); err != nil {
		return nil, fmt.Errorf("list liquidation items: %w", err)
	}

	const allocQuery = `SELECT a.id, a.item_id, a.retailer_id, a.quantity
	FROM liquidation_retailer_allocations a JOIN liquidation_entry_items i ON i.id = a.item_id
	WHERE i.entry_id = $1`
	var allocations []models.LiquidationRetailerAllocation
	if err := r.db.SelectContext(ctx, &allocations, allocQuery, id); err != nil {
		return nil, fmt.Errorf("list retailer allocations: %w", err)
	}
	byItem := make(map[string][]models.LiquidationRetailerAllocation, len(entry.Items))
	for _, a := range allocations {
		byItem[a.ItemID] = append(byItem[a.ItemID], a)
	}
	for i := range entry.Items {
		entry.Items[i].Retailers = byItem[entry.Items[i].ID]
	}

	const proofsQuery = `SELECT id, entry_id, url, position FROM liquidation_proofs WHERE entry_id = $1 ORDER BY position`
	if err := r.db.SelectContext(ctx, &entry.Proofs, proofsQuery, id); err != nil {
		return nil, fmt.Errorf("list liquidation proofs: %w", err)
	}
	return &entry, nil
}

// List returns entry headers, newest first.
func (r *LiquidationRepository) List(ctx context.Context, filter models.LiquidationFilter) ([]models.LiquidationEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM liquidation_entries`
	args := []interface{}{}
	if filter.DistributorID != "" {
		args = append(args, filter.DistributorID)
		query += ` WHERE distributor_id = $1`
	}
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" ORDER BY submitted_at DESC LIMIT %d OFFSET %d", limit, offset)

	var entries []models.LiquidationEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list liquidation entries: %w", err)
	}
	return entries, nil
}
