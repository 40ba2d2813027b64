package workflow

import (
	"time"

	appErrors "github.com/noah-isme/liquidation-verify-api/pkg/errors"
)

// PayloadRetailer is a retailer allocation as sent to the submission collaborator.
type PayloadRetailer struct {
	RetailerID string `json:"retailerId"`
	Quantity   int    `json:"quantity"`
}

// ProductEntry carries one verified SKU.
type ProductEntry struct {
	ProductCode         string            `json:"productCode"`
	SKUCode             string            `json:"skuCode"`
	PreviousStock       int               `json:"previousStock"`
	CurrentStock        int               `json:"currentStock"`
	FarmerQuantity      int               `json:"farmerQuantity"`
	RetailerAllocations []PayloadRetailer `json:"retailerAllocations"`
}

// Payload is the finished verification handed to the submitter.
type Payload struct {
	DistributorID   string         `json:"distributorId"`
	DistributorCode string         `json:"distributorCode"`
	DistributorName string         `json:"distributorName"`
	ProductEntries  []ProductEntry `json:"productEntries"`
	SignatureURL    string         `json:"signatureUrl"`
	ProofURLs       []string       `json:"proofUrls"`
	VerifiedBy      Operator       `json:"verifiedBy"`
	VerifiedAt      time.Time      `json:"verifiedAt"`
	Location        *Location      `json:"location,omitempty"`
}

// BuildPayload assembles the submission. Retailer rows without a retailer or with a
// non-positive quantity are dropped; the pending retailer total is never included.
// The signature must already be an uploaded URL.
func (w *Workflow) BuildPayload() (Payload, error) {
	if err := w.ValidateSubmission(); err != nil {
		return Payload{}, err
	}
	if w.Attestation.RawSignature() {
		return Payload{}, appErrors.Clone(appErrors.ErrPreconditionFailed, "signature must be uploaded before submission")
	}

	entries := make([]ProductEntry, 0, len(w.Items))
	for _, item := range w.Items {
		alloc := w.Allocations[item.SKU.Key()]
		entries = append(entries, ProductEntry{
			ProductCode:         item.SKU.ProductCode,
			SKUCode:             item.SKU.SKUCode,
			PreviousStock:       item.SKU.CurrentStock,
			CurrentStock:        item.NewStock,
			FarmerQuantity:      alloc.FarmerQuantity,
			RetailerAllocations: submittableRows(alloc),
		})
	}

	var location *Location
	if w.Attestation.Location != nil {
		l := *w.Attestation.Location
		location = &l
	}

	return Payload{
		DistributorID:   w.Distributor.ID,
		DistributorCode: w.Distributor.Code,
		DistributorName: w.Distributor.Name,
		ProductEntries:  entries,
		SignatureURL:    w.Attestation.Signature,
		ProofURLs:       w.proofURLs(),
		VerifiedBy:      w.Attestation.CapturedBy,
		VerifiedAt:      w.Attestation.CapturedAt,
		Location:        location,
	}, nil
}

// submittableRows keeps rows that name a retailer and carry a positive quantity.
func submittableRows(a Allocation) []PayloadRetailer {
	rows := make([]PayloadRetailer, 0, len(a.Retailers))
	for _, r := range a.Retailers {
		if !r.Selected() || r.Quantity <= 0 {
			continue
		}
		rows = append(rows, PayloadRetailer{RetailerID: r.RetailerID, Quantity: r.Quantity})
	}
	return rows
}
