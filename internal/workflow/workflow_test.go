package workflow

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/liquidation-verify-api/pkg/errors"
)

func testSKUs() []SKU {
	return []SKU{
		{ProductCode: "FGCMGM0092", ProductName: "DAP", SKUCode: "DAP-25KG", SKUName: "DAP 25 Kg", Unit: "Kg", CurrentStock: 100, UnitPrice: decimal.NewFromInt(1350)},
		{ProductCode: "FGCMGM0093", ProductName: "Urea", SKUCode: "UREA-50KG", SKUName: "Urea 50 Kg", Unit: "Kg", CurrentStock: 40, UnitPrice: decimal.NewFromInt(270)},
		{ProductCode: "FGCMGM0094", ProductName: "Potash", SKUCode: "MOP-50KG", SKUName: "MOP 50 Kg", Unit: "Kg", CurrentStock: 0},
	}
}

func newTestWorkflow() *Workflow {
	return New(Distributor{ID: "dist-1", Code: "D-001", Name: "Green Agro"}, testSKUs())
}

const (
	dapKey  = "FGCMGM0092-DAP-25KG"
	ureaKey = "FGCMGM0093-UREA-50KG"
	mopKey  = "FGCMGM0094-MOP-50KG"
)

func appErr(t *testing.T, err error) *appErrors.Error {
	t.Helper()
	require.Error(t, err)
	var e *appErrors.Error
	require.True(t, errors.As(err, &e))
	return e
}

// toAllocation moves a fresh workflow to stage 2 with DAP 100 -> 70 and Urea unchanged.
func toAllocation(t *testing.T) *Workflow {
	t.Helper()
	w := newTestWorkflow()
	require.NoError(t, w.SetStockInputs(map[string]string{dapKey: "70", ureaKey: "40"}))
	require.NoError(t, w.Next())
	require.Equal(t, StageAllocation, w.Stage)
	return w
}

func TestParseQuantity(t *testing.T) {
	cases := map[string]struct {
		raw     string
		want    int
		wantErr bool
	}{
		"plain":      {raw: "70", want: 70},
		"padded":     {raw: "  12 ", want: 12},
		"zero":       {raw: "0", want: 0},
		"empty":      {raw: "   ", wantErr: true},
		"negative":   {raw: "-5", wantErr: true},
		"fractional": {raw: "2.5", wantErr: true},
		"letters":    {raw: "ten", wantErr: true},
		"sign trick": {raw: "+-5", wantErr: true},
		"huge":       {raw: "99999999999", wantErr: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := ParseQuantity(tc.raw)
			if tc.wantErr {
				e := appErr(t, err)
				assert.Equal(t, appErrors.ErrValidation.Code, e.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestStockInputRequiresEveryActiveSKU(t *testing.T) {
	w := newTestWorkflow()
	err := w.Next()
	e := appErr(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, e.Code)
	assert.True(t, strings.HasPrefix(e.Message, "Please update stock for ALL products before proceeding:"))
	assert.Contains(t, e.Message, "1. DAP - DAP 25 Kg (DAP-25KG)")
	assert.Contains(t, e.Message, "2. Urea - Urea 50 Kg (UREA-50KG)")
	assert.NotContains(t, e.Message, "MOP-50KG")

	details, ok := e.Details.(ValidationDetails)
	require.True(t, ok)
	assert.Equal(t, dapKey, details.FirstInvalidKey)
	assert.Len(t, details.Issues, 2)
	assert.Equal(t, StageStockInput, w.Stage)
}

func TestStockInputNoChangesIsWarning(t *testing.T) {
	w := newTestWorkflow()
	require.NoError(t, w.SetStockInputs(map[string]string{dapKey: "100", ureaKey: "40"}))
	err := w.Next()
	assert.True(t, errors.Is(err, appErrors.ErrNoChanges))
	assert.Equal(t, StageStockInput, w.Stage)
	assert.Empty(t, w.Items)
}

func TestStockInputBuildsItemsOnlyForChangedSKUs(t *testing.T) {
	w := newTestWorkflow()
	require.NoError(t, w.SetStockInputs(map[string]string{dapKey: "70", ureaKey: "40", mopKey: "5"}))
	require.NoError(t, w.Next())

	require.Len(t, w.Items, 2)
	assert.Equal(t, dapKey, w.Items[0].SKU.Key())
	assert.Equal(t, 30, w.Items[0].Delta())
	assert.Equal(t, "Outward", w.Items[0].Direction())
	assert.Equal(t, mopKey, w.Items[1].SKU.Key())
	assert.Equal(t, 5, w.Items[1].Delta())
	assert.Equal(t, "Return", w.Items[1].Direction())
	assert.Contains(t, w.Allocations, dapKey)
	assert.NotContains(t, w.Allocations, ureaKey)
}

func TestSetStockInputsIsAllOrNothing(t *testing.T) {
	w := newTestWorkflow()
	require.NoError(t, w.SetStockInputs(map[string]string{dapKey: "70"}))

	err := w.SetStockInputs(map[string]string{ureaKey: "35", dapKey: "abc"})
	require.Error(t, err)
	assert.Equal(t, map[string]int{dapKey: 70}, w.Inputs)

	err = w.SetStockInputs(map[string]string{"unknown-sku": "1"})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr(t, err).Code)

	require.NoError(t, w.SetStockInputs(map[string]string{dapKey: " "}))
	assert.Empty(t, w.Inputs)
}

func TestAllocationExactMatchAdvances(t *testing.T) {
	w := toAllocation(t)
	require.NoError(t, w.SetFarmerQuantity(dapKey, 10))
	idx, err := w.AddRetailerRow(dapKey, RetailerAllocation{RetailerID: "ret-1", RetailerName: "ABC Traders", Quantity: 20})
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	alloc := w.Allocation(dapKey)
	assert.Equal(t, 30, alloc.Allocated())
	assert.Equal(t, 0, alloc.Remaining(30))
	assert.True(t, alloc.FullyAllocated(30))

	require.NoError(t, w.Next())
	assert.Equal(t, StageAttestation, w.Stage)
}

func TestAllocationOffByOneBlocks(t *testing.T) {
	for _, retailerQty := range []int{19, 21} {
		w := toAllocation(t)
		require.NoError(t, w.SetFarmerQuantity(dapKey, 10))
		_, err := w.AddRetailerRow(dapKey, RetailerAllocation{RetailerID: "ret-1", RetailerName: "ABC Traders", Quantity: retailerQty})
		require.NoError(t, err)

		err = w.Next()
		e := appErr(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, e.Code)
		assert.Equal(t, StageAllocation, w.Stage)
		if retailerQty == 19 {
			assert.Contains(t, e.Message, "DAP (DAP-25KG): Need 1 Kg more")
		} else {
			assert.Contains(t, e.Message, "DAP (DAP-25KG): Over-allocated by 1 Kg")
		}
	}
}

func TestAllocationRemainingMessageCitesOutstandingUnits(t *testing.T) {
	w := toAllocation(t)
	require.NoError(t, w.SetFarmerQuantity(dapKey, 10))
	_, err := w.AddRetailerRow(dapKey, RetailerAllocation{RetailerID: "ret-1", Quantity: 15})
	require.NoError(t, err)

	assert.Equal(t, 25, w.Allocation(dapKey).Allocated())
	assert.Equal(t, 5, w.Allocation(dapKey).Remaining(30))

	e := appErr(t, w.Next())
	assert.True(t, strings.HasPrefix(e.Message, "1 SKU needs attention:"))
	assert.Contains(t, e.Message, "Need 5 Kg more")
	assert.Contains(t, e.Message, "Note: Total allocated quantity must match the stock difference for each SKU.")
}

func TestAllocationCollectsRowIssuesAcrossSKUs(t *testing.T) {
	w := newTestWorkflow()
	require.NoError(t, w.SetStockInputs(map[string]string{dapKey: "70", ureaKey: "45"}))
	require.NoError(t, w.Next())

	require.NoError(t, w.SetFarmerQuantity(dapKey, 30))
	_, err := w.AddRetailerRow(ureaKey, RetailerAllocation{})
	require.NoError(t, err)
	_, err = w.AddRetailerRow(ureaKey, RetailerAllocation{RetailerID: "ret-2", RetailerName: "Kisan Store"})
	require.NoError(t, err)

	e := appErr(t, w.Next())
	details := e.Details.(ValidationDetails)
	assert.Equal(t, ureaKey, details.FirstInvalidKey)
	require.Len(t, details.Issues, 3)
	assert.Equal(t, "Urea (UREA-50KG): Need 5 Kg more", details.Issues[0].Message)
	assert.Equal(t, "Urea (UREA-50KG): Please select a retailer", details.Issues[1].Message)
	require.NotNil(t, details.Issues[1].Row)
	assert.Equal(t, 0, *details.Issues[1].Row)
	assert.Equal(t, `Urea (UREA-50KG): Retailer "Kisan Store" needs a quantity`, details.Issues[2].Message)
	assert.True(t, strings.HasPrefix(e.Message, "1 SKU needs attention:"))
}

func TestPendingRetailerTotalNeverCounts(t *testing.T) {
	w := toAllocation(t)
	pending := 30
	require.NoError(t, w.SetPendingRetailerTotal(dapKey, &pending))
	assert.Equal(t, 0, w.Allocation(dapKey).Allocated())
	require.Error(t, w.Next())

	require.NoError(t, w.SetFarmerQuantity(dapKey, 30))
	require.NoError(t, w.Next())
	assert.False(t, w.ProofRequired())

	require.NoError(t, w.Back())
	require.NoError(t, w.SetPendingRetailerTotal(dapKey, nil))
	assert.Nil(t, w.Allocation(dapKey).PendingRetailerTotal)
}

func TestAllocationUpdatesAreCopyOnWrite(t *testing.T) {
	w := toAllocation(t)
	_, err := w.AddRetailerRow(dapKey, RetailerAllocation{RetailerID: "ret-1", Quantity: 5})
	require.NoError(t, err)

	before := w.Allocations
	held := w.Allocation(dapKey)
	require.NoError(t, w.SetRetailerQuantity(dapKey, 0, 25))

	assert.Equal(t, 5, before[dapKey].Retailers[0].Quantity)
	assert.Equal(t, 5, held.Retailers[0].Quantity)
	assert.Equal(t, 25, w.Allocations[dapKey].Retailers[0].Quantity)

	held.Retailers[0].Quantity = 99
	assert.Equal(t, 25, w.Allocations[dapKey].Retailers[0].Quantity)
}

func TestRetailerRowOperations(t *testing.T) {
	w := toAllocation(t)
	_, err := w.AddRetailerRow(dapKey, RetailerAllocation{})
	require.NoError(t, err)
	_, err = w.AddRetailerRow(dapKey, RetailerAllocation{RetailerID: "ret-2", RetailerName: "Kisan Store", Quantity: 4})
	require.NoError(t, err)

	require.NoError(t, w.SelectRetailer(dapKey, 0, "ret-1", "ABC Traders", "R-001"))
	err = w.SelectRetailer(dapKey, 0, "ret-2", "Kisan Store", "R-002")
	assert.Equal(t, appErrors.ErrValidation.Code, appErr(t, err).Code)

	_, err = w.AddRetailerRow(dapKey, RetailerAllocation{RetailerID: "ret-1"})
	require.Error(t, err)

	err = w.SetRetailerQuantity(dapKey, 5, 1)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr(t, err).Code)
	require.Error(t, w.SetRetailerQuantity(dapKey, 0, -1))

	require.NoError(t, w.RemoveRetailerRow(dapKey, 0))
	alloc := w.Allocation(dapKey)
	require.Len(t, alloc.Retailers, 1)
	assert.Equal(t, "ret-2", alloc.Retailers[0].RetailerID)

	err = w.SetFarmerQuantity(ureaKey, 1)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr(t, err).Code)
}

func TestAllocationEditsRequireAllocationStage(t *testing.T) {
	w := newTestWorkflow()
	err := w.SetFarmerQuantity(dapKey, 1)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr(t, err).Code)
}

func TestBackKeepsStateAndNeverGoesBelowStockInput(t *testing.T) {
	w := toAllocation(t)
	require.NoError(t, w.SetFarmerQuantity(dapKey, 7))
	require.NoError(t, w.Back())
	assert.Equal(t, StageStockInput, w.Stage)
	require.NoError(t, w.Back())
	assert.Equal(t, StageStockInput, w.Stage)

	require.NoError(t, w.Next())
	assert.Equal(t, 7, w.Allocation(dapKey).FarmerQuantity)
}

func TestAttestationStampsOnce(t *testing.T) {
	w := toAllocation(t)
	require.NoError(t, w.SetFarmerQuantity(dapKey, 30))
	require.NoError(t, w.Next())

	e := appErr(t, w.Next())
	assert.Equal(t, "E-signature is required to proceed.", e.Message)

	first := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	op := Operator{ID: "u-1", Name: "Ravi", Role: "SALES_REP"}
	require.NoError(t, w.CaptureSignature("data:image/png;base64,AAA", op, &Location{Latitude: 17.4, Longitude: 78.5}, first))
	require.NoError(t, w.CaptureSignature("data:image/png;base64,BBB", Operator{ID: "u-2"}, nil, first.Add(time.Hour)))

	assert.Equal(t, "data:image/png;base64,BBB", w.Attestation.Signature)
	assert.Equal(t, first, w.Attestation.CapturedAt)
	assert.Equal(t, "u-1", w.Attestation.CapturedBy.ID)
	require.NotNil(t, w.Attestation.Location)

	require.NoError(t, w.ClearSignature())
	assert.False(t, w.Attestation.HasSignature())
	assert.Equal(t, first, w.Attestation.CapturedAt)
	require.Error(t, w.Next())

	require.Error(t, w.CaptureSignature("  ", op, nil, first))
	require.NoError(t, w.CaptureSignature("data:image/png;base64,CCC", op, nil, first))
	require.NoError(t, w.Next())
	assert.Equal(t, StageProof, w.Stage)
}

// toProof builds a workflow at stage 4 with the given retailer quantity on DAP.
func toProof(t *testing.T, retailerQty int) *Workflow {
	t.Helper()
	w := toAllocation(t)
	require.NoError(t, w.SetFarmerQuantity(dapKey, 30-retailerQty))
	if retailerQty > 0 {
		_, err := w.AddRetailerRow(dapKey, RetailerAllocation{RetailerID: "ret-1", RetailerName: "ABC Traders", Quantity: retailerQty})
		require.NoError(t, err)
	}
	require.NoError(t, w.Next())
	require.NoError(t, w.CaptureSignature("https://cdn.example/sig.png", Operator{ID: "u-1", Name: "Ravi"}, nil, time.Now()))
	require.NoError(t, w.Next())
	require.Equal(t, StageProof, w.Stage)
	return w
}

func TestProofRequirement(t *testing.T) {
	w := toProof(t, 0)
	assert.False(t, w.ProofRequired())
	require.NoError(t, w.ValidateSubmission())

	w = toProof(t, 5)
	assert.True(t, w.ProofRequired())
	e := appErr(t, w.ValidateSubmission())
	assert.Equal(t, "At least one proof document/photo is required when allocating stock to retailers.", e.Message)

	require.NoError(t, w.AddProof(Proof{ID: "p-1", URL: "https://cdn.example/p1.jpg"}))
	require.NoError(t, w.ValidateSubmission())

	require.NoError(t, w.RemoveProof("p-1"))
	require.Error(t, w.ValidateSubmission())
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr(t, w.RemoveProof("p-1")).Code)
	require.Error(t, w.AddProof(Proof{ID: "p-2"}))

	e = appErr(t, w.Next())
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, e.Code)
}

func TestBuildPayloadFiltersRows(t *testing.T) {
	w := toAllocation(t)
	require.NoError(t, w.SetFarmerQuantity(dapKey, 10))
	pending := 50
	require.NoError(t, w.SetPendingRetailerTotal(dapKey, &pending))
	_, err := w.AddRetailerRow(dapKey, RetailerAllocation{RetailerID: "ret-1", Quantity: 20})
	require.NoError(t, err)
	require.NoError(t, w.Next())
	require.NoError(t, w.CaptureSignature("data:image/png;base64,AAA", Operator{ID: "u-1"}, nil, time.Now()))
	require.NoError(t, w.Next())
	require.NoError(t, w.AddProof(Proof{ID: "p-1", URL: "https://cdn.example/p1.jpg"}))

	_, err = w.BuildPayload()
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr(t, err).Code)

	require.NoError(t, w.SetSignatureURL("https://cdn.example/sig.png"))
	payload, err := w.BuildPayload()
	require.NoError(t, err)

	assert.Equal(t, "D-001", payload.DistributorCode)
	assert.Equal(t, "Green Agro", payload.DistributorName)
	assert.Equal(t, "https://cdn.example/sig.png", payload.SignatureURL)
	assert.Equal(t, []string{"https://cdn.example/p1.jpg"}, payload.ProofURLs)
	require.Len(t, payload.ProductEntries, 1)
	entry := payload.ProductEntries[0]
	assert.Equal(t, "FGCMGM0092", entry.ProductCode)
	assert.Equal(t, 70, entry.CurrentStock)
	assert.Equal(t, 100, entry.PreviousStock)
	assert.Equal(t, 10, entry.FarmerQuantity)
	assert.Equal(t, []PayloadRetailer{{RetailerID: "ret-1", Quantity: 20}}, entry.RetailerAllocations)
}

func TestSubmittableRowsDropsEmptyAndZeroRows(t *testing.T) {
	pending := 12
	rows := submittableRows(Allocation{
		FarmerQuantity: 3,
		Retailers: []RetailerAllocation{
			{RetailerID: "", Quantity: 4},
			{RetailerID: "  ", Quantity: 4},
			{RetailerID: "ret-9", Quantity: 0},
			{RetailerID: "ret-1", Quantity: 7},
		},
		PendingRetailerTotal: &pending,
	})
	assert.Equal(t, []PayloadRetailer{{RetailerID: "ret-1", Quantity: 7}}, rows)
}

func TestMarkSubmittedResetsState(t *testing.T) {
	w := toProof(t, 0)
	w.MarkSubmitted("entry-1")

	assert.True(t, w.Completed())
	assert.Equal(t, "entry-1", w.SubmittedEntryID)
	assert.Empty(t, w.Items)
	assert.Empty(t, w.Allocations)
	assert.Nil(t, w.Attestation)
	assert.Empty(t, w.Proofs)
	sku, ok := w.SKU(dapKey)
	require.True(t, ok)
	assert.Equal(t, 70, sku.CurrentStock)

	require.Error(t, w.Next())
	require.Error(t, w.Back())

	w.Cancel()
	assert.Equal(t, StageStockInput, w.Stage)
	assert.Empty(t, w.SubmittedEntryID)
}

func TestCancelReturnsToFreshStockInput(t *testing.T) {
	w := toProof(t, 5)
	w.Cancel()
	assert.Equal(t, StageStockInput, w.Stage)
	assert.Empty(t, w.Inputs)
	assert.Empty(t, w.Items)
	assert.Empty(t, w.Allocations)
	assert.Nil(t, w.Attestation)
	assert.Len(t, w.SKUs, 3)
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "ATTESTATION", StageAttestation.String())
	assert.Equal(t, "UNKNOWN", Stage(9).String())
	assert.False(t, Stage(0).Valid())
}

func TestSKUKeyKeepsHyphenatedCodesApart(t *testing.T) {
	assert.Equal(t, "FGCMGM0092-DAP-25KG", SKUKey("FGCMGM0092", "DAP-25KG"))
	assert.NotEqual(t, SKUKey("A-B", "C"), SKUKey("A", "B-C"))
	assert.NotEqual(t, SKUKey("A~", "-B"), SKUKey("A~-", "B"))

	w := New(Distributor{ID: "dist-1"}, []SKU{
		{ProductCode: "A-B", SKUCode: "C", CurrentStock: 10},
		{ProductCode: "A", SKUCode: "B-C", CurrentStock: 20},
	})
	first, second := w.SKUs[0].Key(), w.SKUs[1].Key()
	require.NoError(t, w.SetStockInputs(map[string]string{first: "5", second: "20"}))
	assert.Equal(t, 5, w.Inputs[first])
	assert.Equal(t, 20, w.Inputs[second])

	require.NoError(t, w.Next())
	require.Len(t, w.Items, 1)
	assert.Equal(t, "A-B", w.Items[0].SKU.ProductCode)
}
