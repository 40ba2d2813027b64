package workflow

import "strings"

// RetailerAllocation is one retailer row of an allocation. An empty RetailerID means
// the operator has added a row but not yet picked a retailer.
type RetailerAllocation struct {
	RetailerID   string `json:"retailerId"`
	RetailerName string `json:"retailerName,omitempty"`
	RetailerCode string `json:"retailerCode,omitempty"`
	Quantity     int    `json:"quantity"`
}

// Selected reports whether the row references a real retailer.
func (r RetailerAllocation) Selected() bool {
	return strings.TrimSpace(r.RetailerID) != ""
}

// Allocation splits an item's delta between farmers and retailers.
// PendingRetailerTotal is an operator-typed retailer total awaiting concrete rows;
// it is never counted and never submitted.
type Allocation struct {
	FarmerQuantity       int                  `json:"farmerQuantity"`
	Retailers            []RetailerAllocation `json:"retailers"`
	PendingRetailerTotal *int                 `json:"pendingRetailerTotal,omitempty"`
}

// Allocated is farmer quantity plus every retailer row quantity.
func (a Allocation) Allocated() int {
	total := a.FarmerQuantity
	for _, r := range a.Retailers {
		total += r.Quantity
	}
	return total
}

// RetailerTotal sums quantities on rows that reference a real retailer.
func (a Allocation) RetailerTotal() int {
	total := 0
	for _, r := range a.Retailers {
		if r.Selected() {
			total += r.Quantity
		}
	}
	return total
}

// Remaining is how much of delta is still unallocated; negative when over-allocated.
func (a Allocation) Remaining(delta int) int {
	return delta - a.Allocated()
}

// FullyAllocated is true only on exact equality.
func (a Allocation) FullyAllocated(delta int) bool {
	return a.Allocated() == delta
}

// HasRetailer reports whether retailerID is already on a row.
func (a Allocation) HasRetailer(retailerID string) bool {
	for _, r := range a.Retailers {
		if r.RetailerID == retailerID {
			return true
		}
	}
	return false
}

// clone returns a deep copy so updates never alias a stored allocation.
func (a Allocation) clone() Allocation {
	out := Allocation{FarmerQuantity: a.FarmerQuantity}
	if a.Retailers != nil {
		out.Retailers = make([]RetailerAllocation, len(a.Retailers))
		copy(out.Retailers, a.Retailers)
	}
	if a.PendingRetailerTotal != nil {
		v := *a.PendingRetailerTotal
		out.PendingRetailerTotal = &v
	}
	return out
}

func cloneAllocations(in map[string]Allocation) map[string]Allocation {
	out := make(map[string]Allocation, len(in))
	for k, v := range in {
		out[k] = v.clone()
	}
	return out
}
