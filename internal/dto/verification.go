package dto

import (
	"time"

	"github.com/noah-isme/liquidation-verify-api/internal/workflow"
)

// OpenVerificationRequest optionally carries the operator's current device position.
type OpenVerificationRequest struct {
	Location *workflow.Location `json:"location"`
}

// ResumeOffer tells the client a same-day draft can be continued.
type ResumeOffer struct {
	ResumeAvailable bool           `json:"resumeAvailable"`
	DraftStage      workflow.Stage `json:"draftStage"`
	StageName       string         `json:"stageName"`
	SavedAt         time.Time      `json:"savedAt"`
	DistributorName string         `json:"distributorName"`
}

// OpenVerificationResponse returns the live workflow and an optional resume offer.
type OpenVerificationResponse struct {
	Verification VerificationView `json:"verification"`
	Resume       *ResumeOffer     `json:"resume,omitempty"`
}

// StockInputRequest carries raw operator entries keyed by SKU key.
type StockInputRequest struct {
	Stocks map[string]string `json:"stocks" validate:"required"`
}

// AllocationUpdateRequest updates the farmer quantity and the pending retailer placeholder.
type AllocationUpdateRequest struct {
	FarmerQuantity       *int `json:"farmerQuantity" validate:"omitempty,min=0"`
	PendingRetailerTotal *int `json:"pendingRetailerTotal" validate:"omitempty,min=0"`
	ClearPending         bool `json:"clearPending"`
}

// RetailerRowRequest adds or edits one retailer allocation row.
type RetailerRowRequest struct {
	RetailerID   string `json:"retailerId"`
	RetailerName string `json:"retailerName"`
	RetailerCode string `json:"retailerCode"`
	Quantity     *int   `json:"quantity" validate:"omitempty,min=0"`
}

// SignatureRequest captures the e-signature image.
type SignatureRequest struct {
	Image    string             `json:"image" validate:"required"`
	Location *workflow.Location `json:"location"`
}

// SubmitResponse confirms a stored liquidation entry.
type SubmitResponse struct {
	EntryID      string           `json:"entryId"`
	SubmittedAt  time.Time        `json:"submittedAt"`
	Verification VerificationView `json:"verification"`
}

// ItemView is a verification item with its allocation progress.
type ItemView struct {
	Key            string              `json:"key"`
	SKU            workflow.SKU        `json:"sku"`
	NewStock       int                 `json:"newStock"`
	Delta          int                 `json:"delta"`
	Direction      string              `json:"direction"`
	Allocation     workflow.Allocation `json:"allocation"`
	Allocated      int                 `json:"allocated"`
	Remaining      int                 `json:"remaining"`
	FullyAllocated bool                `json:"fullyAllocated"`
}

// VerificationView is the client-facing projection of the workflow.
type VerificationView struct {
	Distributor      workflow.Distributor  `json:"distributor"`
	Stage            workflow.Stage        `json:"stage"`
	StageName        string                `json:"stageName"`
	SKUs             []workflow.SKU        `json:"skus"`
	Inputs           map[string]int        `json:"inputs"`
	Items            []ItemView            `json:"items"`
	Attestation      *workflow.Attestation `json:"attestation,omitempty"`
	Proofs           []workflow.Proof      `json:"proofs"`
	RetailerTotal    int                   `json:"retailerTotal"`
	ProofRequired    bool                  `json:"proofRequired"`
	SubmittedEntryID string                `json:"submittedEntryId,omitempty"`
	UpdatedAt        time.Time             `json:"updatedAt"`
}

// NewVerificationView projects a workflow for responses.
func NewVerificationView(w *workflow.Workflow) VerificationView {
	items := make([]ItemView, 0, len(w.Items))
	for _, item := range w.Items {
		key := item.SKU.Key()
		alloc := w.Allocation(key)
		delta := item.Delta()
		items = append(items, ItemView{
			Key:            key,
			SKU:            item.SKU,
			NewStock:       item.NewStock,
			Delta:          delta,
			Direction:      item.Direction(),
			Allocation:     alloc,
			Allocated:      alloc.Allocated(),
			Remaining:      alloc.Remaining(delta),
			FullyAllocated: alloc.FullyAllocated(delta),
		})
	}
	proofs := w.Proofs
	if proofs == nil {
		proofs = []workflow.Proof{}
	}
	return VerificationView{
		Distributor:      w.Distributor,
		Stage:            w.Stage,
		StageName:        w.Stage.String(),
		SKUs:             w.SKUs,
		Inputs:           w.Inputs,
		Items:            items,
		Attestation:      w.Attestation,
		Proofs:           proofs,
		RetailerTotal:    w.RetailerTotal(),
		ProofRequired:    w.ProofRequired(),
		SubmittedEntryID: w.SubmittedEntryID,
		UpdatedAt:        w.UpdatedAt,
	}
}
