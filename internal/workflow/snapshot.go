package workflow

import "time"

// Draft is the persisted in-progress snapshot of a workflow.
type Draft struct {
	Distributor Distributor           `json:"distributor"`
	Stage       Stage                 `json:"stage"`
	Inputs      map[string]int        `json:"inputs"`
	Items       []Item                `json:"items"`
	Allocations map[string]Allocation `json:"allocations"`
	Attestation *Attestation          `json:"attestation,omitempty"`
	Proofs      []Proof               `json:"proofs"`
	SavedAt     time.Time             `json:"savedAt"`
}

// Snapshot deep-copies the resumable parts of the workflow.
func (w *Workflow) Snapshot(now time.Time) Draft {
	inputs := make(map[string]int, len(w.Inputs))
	for k, v := range w.Inputs {
		inputs[k] = v
	}
	items := make([]Item, len(w.Items))
	copy(items, w.Items)
	proofs := make([]Proof, len(w.Proofs))
	copy(proofs, w.Proofs)

	var attestation *Attestation
	if w.Attestation != nil {
		a := *w.Attestation
		attestation = &a
	}

	return Draft{
		Distributor: w.Distributor,
		Stage:       w.Stage,
		Inputs:      inputs,
		Items:       items,
		Allocations: cloneAllocations(w.Allocations),
		Attestation: attestation,
		Proofs:      proofs,
		SavedAt:     now.UTC(),
	}
}

// ValidOn reports whether the draft was saved on the same calendar day as now in loc.
func (d Draft) ValidOn(now time.Time, loc *time.Location) bool {
	if d.SavedAt.IsZero() {
		return false
	}
	if loc == nil {
		loc = time.UTC
	}
	sy, sm, sd := d.SavedAt.In(loc).Date()
	ny, nm, nd := now.In(loc).Date()
	return sy == ny && sm == nm && sd == nd
}

// Resumable reports whether reopening should offer to continue from this draft.
func (d Draft) Resumable(now time.Time, loc *time.Location) bool {
	return d.ValidOn(now, loc) && d.Stage > StageStockInput && d.Stage < StageSubmitted && len(d.Items) > 0
}

// Restore rebuilds a workflow from a draft over the given SKU snapshot.
// When skus is empty the SKU rows carried by the draft items are used.
func Restore(d Draft, skus []SKU) *Workflow {
	if len(skus) == 0 {
		skus = make([]SKU, 0, len(d.Items))
		for _, item := range d.Items {
			skus = append(skus, item.SKU)
		}
	}
	w := New(d.Distributor, skus)
	w.Stage = d.Stage
	if !w.Stage.Valid() || w.Stage == StageSubmitted {
		w.Stage = StageStockInput
	}

	for k, v := range d.Inputs {
		w.Inputs[k] = v
	}
	w.Items = make([]Item, len(d.Items))
	copy(w.Items, d.Items)
	for _, item := range w.Items {
		if _, ok := w.Inputs[item.SKU.Key()]; !ok {
			w.Inputs[item.SKU.Key()] = item.NewStock
		}
	}
	w.Allocations = cloneAllocations(d.Allocations)
	if d.Attestation != nil {
		a := *d.Attestation
		w.Attestation = &a
	}
	if len(d.Proofs) > 0 {
		w.Proofs = make([]Proof, len(d.Proofs))
		copy(w.Proofs, d.Proofs)
	}
	return w
}

// EndOfDay returns midnight after now in loc, used for draft expiry.
func EndOfDay(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}
