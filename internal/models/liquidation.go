package models

import "time"

// LiquidationEntry is a submitted stock verification.
type LiquidationEntry struct {
	ID              string    `db:"id" json:"id"`
	DistributorID   string    `db:"distributor_id" json:"distributor_id"`
	DistributorCode string    `db:"distributor_code" json:"distributor_code"`
	DistributorName string    `db:"distributor_name" json:"distributor_name"`
	SignatureURL    string    `db:"signature_url" json:"signature_url"`
	VerifiedBy      string    `db:"verified_by" json:"verified_by"`
	VerifierName    string    `db:"verifier_name" json:"verifier_name"`
	VerifierRole    string    `db:"verifier_role" json:"verifier_role"`
	Latitude        *float64  `db:"latitude" json:"latitude,omitempty"`
	Longitude       *float64  `db:"longitude" json:"longitude,omitempty"`
	Address         *string   `db:"address" json:"address,omitempty"`
	VerifiedAt      time.Time `db:"verified_at" json:"verified_at"`
	SubmittedAt     time.Time `db:"submitted_at" json:"submitted_at"`

	Items  []LiquidationItem  `db:"-" json:"items"`
	Proofs []LiquidationProof `db:"-" json:"proofs"`
}

// LiquidationItem is one verified SKU within an entry.
type LiquidationItem struct {
	ID             string `db:"id" json:"id"`
	EntryID        string `db:"entry_id" json:"entry_id"`
	ProductCode    string `db:"product_code" json:"product_code"`
	SKUCode        string `db:"sku_code" json:"sku_code"`
	PreviousStock  int    `db:"previous_stock" json:"previous_stock"`
	CurrentStock   int    `db:"current_stock" json:"current_stock"`
	FarmerQuantity int    `db:"farmer_quantity" json:"farmer_quantity"`

	Retailers []LiquidationRetailerAllocation `db:"-" json:"retailer_allocations"`
}

// Difference is the signed change between previous and current stock.
func (i LiquidationItem) Difference() int {
	return i.CurrentStock - i.PreviousStock
}

// LiquidationRetailerAllocation records quantity moved to a retailer for one item.
type LiquidationRetailerAllocation struct {
	ID         string `db:"id" json:"id"`
	ItemID     string `db:"item_id" json:"item_id"`
	RetailerID string `db:"retailer_id" json:"retailer_id"`
	Quantity   int    `db:"quantity" json:"quantity"`
}

// LiquidationProof is an uploaded proof URL attached to an entry.
type LiquidationProof struct {
	ID       string `db:"id" json:"id"`
	EntryID  string `db:"entry_id" json:"entry_id"`
	URL      string `db:"url" json:"url"`
	Position int    `db:"position" json:"position"`
}

// LiquidationFilter constrains listing queries.
type LiquidationFilter struct {
	DistributorID string
	Limit         int
	Offset        int
}
