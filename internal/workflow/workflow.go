package workflow

import (
	"fmt"
	"strings"
	"time"

	appErrors "github.com/noah-isme/liquidation-verify-api/pkg/errors"
)

const (
	missingStockHeader = "Please update stock for ALL products before proceeding:"
	allocationNote     = "Note: Total allocated quantity must match the stock difference for each SKU."
	signatureRequired  = "E-signature is required to proceed."
	proofRequired      = "At least one proof document/photo is required when allocating stock to retailers."
)

// Issue is one validation problem located on a SKU and optionally a retailer row.
type Issue struct {
	SKUKey  string `json:"skuKey"`
	Row     *int   `json:"row,omitempty"`
	Message string `json:"message"`
}

// ValidationDetails travels in the error envelope so clients can highlight the offending SKU.
type ValidationDetails struct {
	Issues          []Issue `json:"issues"`
	FirstInvalidKey string  `json:"firstInvalidKey,omitempty"`
}

// Workflow is the verification state for one distributor.
type Workflow struct {
	Distributor      Distributor           `json:"distributor"`
	Stage            Stage                 `json:"stage"`
	SKUs             []SKU                 `json:"skus"`
	Inputs           map[string]int        `json:"inputs"`
	Items            []Item                `json:"items"`
	Allocations      map[string]Allocation `json:"allocations"`
	Attestation      *Attestation          `json:"attestation,omitempty"`
	Proofs           []Proof               `json:"proofs"`
	SubmittedEntryID string                `json:"submittedEntryId,omitempty"`
	UpdatedAt        time.Time             `json:"updatedAt"`
}

// New starts a workflow at stock input over the given SKU snapshot.
func New(distributor Distributor, skus []SKU) *Workflow {
	snapshot := make([]SKU, len(skus))
	copy(snapshot, skus)
	return &Workflow{
		Distributor: distributor,
		Stage:       StageStockInput,
		SKUs:        snapshot,
		Inputs:      map[string]int{},
		Allocations: map[string]Allocation{},
	}
}

// Completed reports whether the workflow reached the terminal stage.
func (w *Workflow) Completed() bool {
	return w.Stage == StageSubmitted
}

// SKU looks up a snapshot row by key.
func (w *Workflow) SKU(key string) (SKU, bool) {
	for _, sku := range w.SKUs {
		if sku.Key() == key {
			return sku, true
		}
	}
	return SKU{}, false
}

// Item looks up a verification item by SKU key.
func (w *Workflow) Item(key string) (Item, bool) {
	for _, item := range w.Items {
		if item.SKU.Key() == key {
			return item, true
		}
	}
	return Item{}, false
}

// Allocation returns a copy of the allocation for key.
func (w *Workflow) Allocation(key string) Allocation {
	return w.Allocations[key].clone()
}

// SetStockInputs applies operator text per SKU key. Blank text clears an input.
// All values are parsed before any is applied.
func (w *Workflow) SetStockInputs(raw map[string]string) error {
	if err := w.requireStage(StageStockInput); err != nil {
		return err
	}
	parsed := make(map[string]*int, len(raw))
	for key, text := range raw {
		if _, ok := w.SKU(key); !ok {
			return unknownSKU(key)
		}
		if strings.TrimSpace(text) == "" {
			parsed[key] = nil
			continue
		}
		qty, err := ParseQuantity(text)
		if err != nil {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s: %s", key, appErrors.FromError(err).Message))
		}
		parsed[key] = &qty
	}

	inputs := make(map[string]int, len(w.Inputs)+len(parsed))
	for k, v := range w.Inputs {
		inputs[k] = v
	}
	for k, v := range parsed {
		if v == nil {
			delete(inputs, k)
			continue
		}
		inputs[k] = *v
	}
	w.Inputs = inputs
	return nil
}

// Next validates the current stage and advances one step.
func (w *Workflow) Next() error {
	switch w.Stage {
	case StageStockInput:
		return w.leaveStockInput()
	case StageAllocation:
		if err := w.ValidateAllocations(); err != nil {
			return err
		}
		w.Stage = StageAttestation
		return nil
	case StageAttestation:
		if !w.Attestation.HasSignature() {
			return appErrors.Clone(appErrors.ErrValidation, signatureRequired)
		}
		w.Stage = StageProof
		return nil
	case StageProof:
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "proof stage is completed by submitting the verification")
	default:
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "verification already submitted")
	}
}

// Back steps one stage backwards without re-validating. Stock input is the floor.
func (w *Workflow) Back() error {
	if w.Stage == StageSubmitted {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "verification already submitted")
	}
	if w.Stage > StageStockInput {
		w.Stage--
	}
	return nil
}

// Cancel discards all entered state and returns to a fresh stock input stage.
func (w *Workflow) Cancel() {
	w.Stage = StageStockInput
	w.Inputs = map[string]int{}
	w.Items = nil
	w.Allocations = map[string]Allocation{}
	w.Attestation = nil
	w.Proofs = nil
	w.SubmittedEntryID = ""
}

func (w *Workflow) leaveStockInput() error {
	missing := make([]string, 0)
	issues := make([]Issue, 0)
	for _, sku := range w.SKUs {
		if sku.CurrentStock <= 0 {
			continue
		}
		if _, ok := w.Inputs[sku.Key()]; !ok {
			missing = append(missing, sku.Label())
			issues = append(issues, Issue{SKUKey: sku.Key(), Message: sku.Label()})
		}
	}
	if len(missing) > 0 {
		lines := make([]string, len(missing))
		for i, label := range missing {
			lines[i] = fmt.Sprintf("%d. %s", i+1, label)
		}
		msg := missingStockHeader + "\n\n" + strings.Join(lines, "\n")
		return appErrors.Clone(appErrors.ErrValidation, msg).
			WithDetails(ValidationDetails{Issues: issues, FirstInvalidKey: issues[0].SKUKey})
	}

	items := make([]Item, 0)
	for _, sku := range w.SKUs {
		newStock, ok := w.Inputs[sku.Key()]
		if ok && newStock != sku.CurrentStock {
			items = append(items, Item{SKU: sku, NewStock: newStock})
		}
	}
	if len(items) == 0 {
		return appErrors.Clone(appErrors.ErrNoChanges, "")
	}

	allocations := make(map[string]Allocation, len(items))
	for _, item := range items {
		key := item.SKU.Key()
		if existing, ok := w.Allocations[key]; ok {
			allocations[key] = existing.clone()
			continue
		}
		allocations[key] = Allocation{Retailers: []RetailerAllocation{}}
	}
	w.Items = items
	w.Allocations = allocations
	w.Stage = StageAllocation
	return nil
}

// ValidateAllocations checks every item for exact allocation and complete retailer rows.
// All issues are collected; the first offending SKU key is reported for highlighting.
func (w *Workflow) ValidateAllocations() error {
	issues := make([]Issue, 0)
	offending := map[string]struct{}{}
	for _, item := range w.Items {
		key := item.SKU.Key()
		alloc := w.Allocations[key]
		prefix := fmt.Sprintf("%s (%s)", item.SKU.ProductName, item.SKU.SKUCode)

		if remaining := alloc.Remaining(item.Delta()); remaining != 0 {
			msg := fmt.Sprintf("%s: Need %d%s more", prefix, remaining, unitSuffix(item.SKU.Unit))
			if remaining < 0 {
				msg = fmt.Sprintf("%s: Over-allocated by %d%s", prefix, -remaining, unitSuffix(item.SKU.Unit))
			}
			issues = append(issues, Issue{SKUKey: key, Message: msg})
			offending[key] = struct{}{}
		}

		for idx, row := range alloc.Retailers {
			i := idx
			switch {
			case !row.Selected():
				issues = append(issues, Issue{SKUKey: key, Row: &i, Message: prefix + ": Please select a retailer"})
				offending[key] = struct{}{}
			case row.Quantity <= 0:
				issues = append(issues, Issue{SKUKey: key, Row: &i, Message: fmt.Sprintf("%s: Retailer %q needs a quantity", prefix, row.displayName())})
				offending[key] = struct{}{}
			}
		}
	}
	if len(issues) == 0 {
		return nil
	}

	count := len(offending)
	noun, verb := "SKU", "needs"
	if count > 1 {
		noun, verb = "SKUs", "need"
	}
	lines := make([]string, len(issues))
	for i, issue := range issues {
		lines[i] = fmt.Sprintf("%d. %s", i+1, issue.Message)
	}
	msg := fmt.Sprintf("%d %s %s attention:\n\n%s\n\n%s", count, noun, verb, strings.Join(lines, "\n\n"), allocationNote)
	return appErrors.Clone(appErrors.ErrValidation, msg).
		WithDetails(ValidationDetails{Issues: issues, FirstInvalidKey: issues[0].SKUKey})
}

func (r RetailerAllocation) displayName() string {
	if r.RetailerName != "" {
		return r.RetailerName
	}
	return r.RetailerID
}

func unitSuffix(unit string) string {
	if strings.TrimSpace(unit) == "" {
		return ""
	}
	return " " + unit
}

// SetFarmerQuantity replaces the farmer share for an item.
func (w *Workflow) SetFarmerQuantity(key string, qty int) error {
	if err := validateQuantity(qty); err != nil {
		return err
	}
	return w.updateAllocation(key, func(a *Allocation) error {
		a.FarmerQuantity = qty
		return nil
	})
}

// SetPendingRetailerTotal records or clears the typed retailer total placeholder.
func (w *Workflow) SetPendingRetailerTotal(key string, total *int) error {
	if total != nil {
		if err := validateQuantity(*total); err != nil {
			return err
		}
	}
	return w.updateAllocation(key, func(a *Allocation) error {
		if total == nil {
			a.PendingRetailerTotal = nil
			return nil
		}
		v := *total
		a.PendingRetailerTotal = &v
		return nil
	})
}

// AddRetailerRow appends a row and returns its index. The row may be unselected.
func (w *Workflow) AddRetailerRow(key string, row RetailerAllocation) (int, error) {
	if err := validateQuantity(row.Quantity); err != nil {
		return 0, err
	}
	index := 0
	err := w.updateAllocation(key, func(a *Allocation) error {
		if row.Selected() && a.HasRetailer(row.RetailerID) {
			return duplicateRow(row)
		}
		a.Retailers = append(a.Retailers, row)
		index = len(a.Retailers) - 1
		return nil
	})
	return index, err
}

// SelectRetailer points an existing row at a retailer.
func (w *Workflow) SelectRetailer(key string, index int, retailerID, name, code string) error {
	if strings.TrimSpace(retailerID) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "retailer id is required")
	}
	return w.updateAllocation(key, func(a *Allocation) error {
		if err := checkRow(a, index); err != nil {
			return err
		}
		for i, r := range a.Retailers {
			if i != index && r.RetailerID == retailerID {
				return duplicateRow(RetailerAllocation{RetailerID: retailerID, RetailerName: name})
			}
		}
		a.Retailers[index].RetailerID = retailerID
		a.Retailers[index].RetailerName = name
		a.Retailers[index].RetailerCode = code
		return nil
	})
}

// SetRetailerQuantity changes the quantity on one row.
func (w *Workflow) SetRetailerQuantity(key string, index, qty int) error {
	if err := validateQuantity(qty); err != nil {
		return err
	}
	return w.updateAllocation(key, func(a *Allocation) error {
		if err := checkRow(a, index); err != nil {
			return err
		}
		a.Retailers[index].Quantity = qty
		return nil
	})
}

// RemoveRetailerRow deletes one row, shifting later rows down.
func (w *Workflow) RemoveRetailerRow(key string, index int) error {
	return w.updateAllocation(key, func(a *Allocation) error {
		if err := checkRow(a, index); err != nil {
			return err
		}
		rows := make([]RetailerAllocation, 0, len(a.Retailers)-1)
		rows = append(rows, a.Retailers[:index]...)
		rows = append(rows, a.Retailers[index+1:]...)
		a.Retailers = rows
		return nil
	})
}

// updateAllocation applies fn to a clone and stores it back only on success.
func (w *Workflow) updateAllocation(key string, fn func(a *Allocation) error) error {
	if err := w.requireStage(StageAllocation); err != nil {
		return err
	}
	if _, ok := w.Item(key); !ok {
		return unknownSKU(key)
	}
	next := w.Allocations[key].clone()
	if err := fn(&next); err != nil {
		return err
	}
	allocations := cloneAllocations(w.Allocations)
	allocations[key] = next
	w.Allocations = allocations
	return nil
}

func checkRow(a *Allocation, index int) error {
	if index < 0 || index >= len(a.Retailers) {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("retailer row %d not found", index))
	}
	return nil
}

func duplicateRow(row RetailerAllocation) error {
	return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("retailer %q is already allocated on this SKU", row.displayName()))
}

// CaptureSignature stores a signature image. The first capture stamps operator, time and location;
// later captures only replace the image.
func (w *Workflow) CaptureSignature(image string, operator Operator, location *Location, now time.Time) error {
	if err := w.requireStage(StageAttestation); err != nil {
		return err
	}
	if strings.TrimSpace(image) == "" {
		return appErrors.Clone(appErrors.ErrValidation, signatureRequired)
	}
	if w.Attestation != nil && !w.Attestation.CapturedAt.IsZero() {
		next := *w.Attestation
		next.Signature = image
		w.Attestation = &next
		return nil
	}
	var loc *Location
	if location != nil {
		l := *location
		loc = &l
	}
	w.Attestation = &Attestation{
		Signature:  image,
		CapturedAt: now.UTC(),
		CapturedBy: operator,
		Location:   loc,
	}
	return nil
}

// ClearSignature drops the image but keeps the capture stamp.
func (w *Workflow) ClearSignature() error {
	if err := w.requireStage(StageAttestation); err != nil {
		return err
	}
	if w.Attestation == nil {
		return nil
	}
	next := *w.Attestation
	next.Signature = ""
	w.Attestation = &next
	return nil
}

// SetSignatureURL swaps a raw signature image for its uploaded URL.
func (w *Workflow) SetSignatureURL(url string) error {
	if !w.Attestation.HasSignature() {
		return appErrors.Clone(appErrors.ErrValidation, signatureRequired)
	}
	next := *w.Attestation
	next.Signature = url
	w.Attestation = &next
	return nil
}

// AddProof appends an uploaded proof.
func (w *Workflow) AddProof(p Proof) error {
	if err := w.requireStage(StageProof); err != nil {
		return err
	}
	if strings.TrimSpace(p.URL) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "proof url is required")
	}
	proofs := make([]Proof, len(w.Proofs), len(w.Proofs)+1)
	copy(proofs, w.Proofs)
	w.Proofs = append(proofs, p)
	return nil
}

// RemoveProof drops a proof by id.
func (w *Workflow) RemoveProof(id string) error {
	if err := w.requireStage(StageProof); err != nil {
		return err
	}
	proofs := make([]Proof, 0, len(w.Proofs))
	found := false
	for _, p := range w.Proofs {
		if p.ID == id {
			found = true
			continue
		}
		proofs = append(proofs, p)
	}
	if !found {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("proof %s not found", id))
	}
	w.Proofs = proofs
	return nil
}

// RetailerTotal is the cumulative quantity allocated to real retailers across all items.
func (w *Workflow) RetailerTotal() int {
	total := 0
	for _, item := range w.Items {
		total += w.Allocations[item.SKU.Key()].RetailerTotal()
	}
	return total
}

// ProofRequired is true whenever any stock went to a retailer.
func (w *Workflow) ProofRequired() bool {
	return w.RetailerTotal() > 0
}

// ValidateSubmission re-checks every stage gate before dispatch.
func (w *Workflow) ValidateSubmission() error {
	if err := w.requireStage(StageProof); err != nil {
		return err
	}
	if len(w.Items) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "no verification items to submit")
	}
	if err := w.ValidateAllocations(); err != nil {
		return err
	}
	if !w.Attestation.HasSignature() {
		return appErrors.Clone(appErrors.ErrValidation, signatureRequired)
	}
	if w.ProofRequired() && len(w.proofURLs()) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, proofRequired)
	}
	return nil
}

// MarkSubmitted folds the new stock into the SKU snapshot, resets stage state and
// records the completion marker.
func (w *Workflow) MarkSubmitted(entryID string) {
	newStock := make(map[string]int, len(w.Items))
	for _, item := range w.Items {
		newStock[item.SKU.Key()] = item.NewStock
	}
	skus := make([]SKU, len(w.SKUs))
	for i, sku := range w.SKUs {
		if v, ok := newStock[sku.Key()]; ok {
			sku.CurrentStock = v
		}
		skus[i] = sku
	}
	w.SKUs = skus
	w.Inputs = map[string]int{}
	w.Items = nil
	w.Allocations = map[string]Allocation{}
	w.Attestation = nil
	w.Proofs = nil
	w.Stage = StageSubmitted
	w.SubmittedEntryID = entryID
}

// ItemKeys returns item keys in snapshot order.
func (w *Workflow) ItemKeys() []string {
	keys := make([]string, len(w.Items))
	for i, item := range w.Items {
		keys[i] = item.SKU.Key()
	}
	return keys
}

func (w *Workflow) proofURLs() []string {
	urls := make([]string, 0, len(w.Proofs))
	for _, p := range w.Proofs {
		if strings.TrimSpace(p.URL) != "" {
			urls = append(urls, p.URL)
		}
	}
	return urls
}

func (w *Workflow) requireStage(stage Stage) error {
	if w.Stage != stage {
		return appErrors.Clone(appErrors.ErrPreconditionFailed,
			fmt.Sprintf("operation requires stage %s, verification is at %s", stage, w.Stage))
	}
	return nil
}

func unknownSKU(key string) error {
	return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("sku %s is not part of this verification", key))
}
