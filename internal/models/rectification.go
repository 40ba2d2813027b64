package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RectificationType is the direction of a stock adjustment.
type RectificationType string

const (
	RectificationIncrease RectificationType = "INCREASE"
	RectificationDecrease RectificationType = "DECREASE"
)

// RectificationStatus captures review states for adjustment requests.
type RectificationStatus string

const (
	RectificationStatusPending  RectificationStatus = "PENDING"
	RectificationStatusApproved RectificationStatus = "APPROVED"
	RectificationStatusRejected RectificationStatus = "REJECTED"
)

// RectificationReasons lists accepted reasons per adjustment type.
var RectificationReasons = map[RectificationType][]string{
	RectificationIncrease: {
		"Received from warehouse",
		"Received from another distributor",
		"Opening stock correction",
		"Return from retailer",
		"Inventory count adjustment",
		"Other",
	},
	RectificationDecrease: {
		"Sold to farmer",
		"Sold to retailer",
		"Transferred to another distributor",
		"Damaged/Expired stock",
		"Inventory count adjustment",
		"Other",
	},
}

// ValidReason reports whether reason is accepted for the adjustment type.
func (t RectificationType) ValidReason(reason string) bool {
	for _, r := range RectificationReasons[t] {
		if r == reason {
			return true
		}
	}
	return false
}

// Rectification is a single-SKU stock adjustment awaiting review.
type Rectification struct {
	ID                string              `db:"id" json:"id"`
	DistributorID     string              `db:"distributor_id" json:"distributorId"`
	ProductCode       string              `db:"product_code" json:"productCode"`
	SKUCode           string              `db:"sku_code" json:"skuCode"`
	Type              RectificationType   `db:"type" json:"type"`
	Units             decimal.Decimal     `db:"units" json:"units"`
	Reason            string              `db:"reason" json:"reason"`
	SourceDestination string              `db:"source_destination" json:"sourceDestination"`
	Notes             string              `db:"notes" json:"notes"`
	CurrentUnits      decimal.Decimal     `db:"current_units" json:"currentUnits"`
	CurrentValue      decimal.Decimal     `db:"current_value" json:"currentValue"`
	UnitValue         decimal.Decimal     `db:"unit_value" json:"unitValue"`
	AdjustmentValue   decimal.Decimal     `db:"adjustment_value" json:"adjustmentValue"`
	NewBalanceUnits   decimal.Decimal     `db:"new_balance_units" json:"newBalanceUnits"`
	NewBalanceValue   decimal.Decimal     `db:"new_balance_value" json:"newBalanceValue"`
	Status            RectificationStatus `db:"status" json:"status"`
	RequestedBy       string              `db:"requested_by" json:"requestedBy"`
	ReviewedBy        *string             `db:"reviewed_by" json:"reviewedBy,omitempty"`
	RequestedAt       time.Time           `db:"requested_at" json:"requestedAt"`
	ReviewedAt        *time.Time          `db:"reviewed_at" json:"reviewedAt,omitempty"`
	ReviewNote        *string             `db:"review_note" json:"reviewNote,omitempty"`
}

// RectificationFilter constrains listing queries.
type RectificationFilter struct {
	Status        []RectificationStatus
	DistributorID string
	RequestedBy   string
	Limit         int
	Offset        int
}
