package dto

import "github.com/noah-isme/liquidation-verify-api/internal/models"

// CreateRetailerRequest registers a new retailer. Override skips exact and phone duplicate
// blocks; ConfirmSimilar skips the similar-name block.
type CreateRetailerRequest struct {
	Name           string `json:"name" validate:"required"`
	OutletName     string `json:"outletName" validate:"required"`
	Phone          string `json:"phone" validate:"required"`
	Address        string `json:"address" validate:"required"`
	Pincode        string `json:"pincode" validate:"required,numeric,len=6"`
	Market         string `json:"market" validate:"required"`
	Territory      string `json:"territory"`
	Zone           string `json:"zone"`
	State          string `json:"state"`
	Region         string `json:"region"`
	Override       bool   `json:"override"`
	ConfirmSimilar bool   `json:"confirmSimilar"`
}

// CreateRetailerForSKURequest registers a retailer and allocates quantity on a verification SKU.
type CreateRetailerForSKURequest struct {
	CreateRetailerRequest
	Quantity int `json:"quantity" validate:"min=0"`
}

// DuplicateCheckRequest runs duplicate detection without saving.
type DuplicateCheckRequest struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone"`
}

// RetailerSearchResult is a retailer scored against the search text.
type RetailerSearchResult struct {
	models.Retailer
	Score float64 `json:"score"`
}

// CreateRetailerResponse returns the stored retailer and, for in-verification creation,
// the index of the allocation row created for it.
type CreateRetailerResponse struct {
	Retailer     models.Retailer   `json:"retailer"`
	RowIndex     *int              `json:"rowIndex,omitempty"`
	Verification *VerificationView `json:"verification,omitempty"`
}
