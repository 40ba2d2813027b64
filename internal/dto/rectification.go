package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/liquidation-verify-api/internal/models"
)

// CreateRectificationRequest asks for a single-SKU stock adjustment.
type CreateRectificationRequest struct {
	DistributorID     string                   `json:"distributorId" validate:"required"`
	ProductCode       string                   `json:"productCode" validate:"required"`
	SKUCode           string                   `json:"skuCode" validate:"required"`
	Type              models.RectificationType `json:"type" validate:"required,oneof=INCREASE DECREASE"`
	Units             decimal.Decimal          `json:"units"`
	Reason            string                   `json:"reason" validate:"required"`
	SourceDestination string                   `json:"sourceDestination" validate:"required"`
	Notes             string                   `json:"notes"`
}

// ReviewRectificationRequest captures the reviewer decision and an optional note.
type ReviewRectificationRequest struct {
	Status models.RectificationStatus `json:"status" validate:"required,oneof=APPROVED REJECTED"`
	Note   string                     `json:"note"`
}

// RectificationQuery mirrors supported listing filters.
type RectificationQuery struct {
	Status        []models.RectificationStatus
	DistributorID string
	Limit         int
	Offset        int
}
