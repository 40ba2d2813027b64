package models

import "time"

// Retailer is an outlet stock can be allocated to.
type Retailer struct {
	ID         string    `db:"id" json:"id"`
	Code       string    `db:"code" json:"code"`
	Name       string    `db:"name" json:"name"`
	OutletName string    `db:"outlet_name" json:"outlet_name"`
	Phone      string    `db:"phone" json:"phone"`
	Address    string    `db:"address" json:"address"`
	Pincode    string    `db:"pincode" json:"pincode"`
	Market     string    `db:"market" json:"market"`
	Territory  string    `db:"territory" json:"territory"`
	Zone       string    `db:"zone" json:"zone"`
	State      string    `db:"state" json:"state"`
	Region     string    `db:"region" json:"region"`
	CreatedBy  *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// DuplicateKind classifies how a candidate retailer collides with an existing one.
type DuplicateKind string

const (
	DuplicateNone    DuplicateKind = ""
	DuplicateExact   DuplicateKind = "exact"
	DuplicatePhone   DuplicateKind = "phone"
	DuplicateSimilar DuplicateKind = "similar"
)

// DuplicateMatch is an existing retailer that collides with a candidate.
type DuplicateMatch struct {
	Kind       DuplicateKind `json:"kind"`
	Similarity float64       `json:"similarity"`
	Retailer   Retailer      `json:"retailer"`
}

// DuplicateReport is the outcome of a duplicate check.
type DuplicateReport struct {
	Kind    DuplicateKind    `json:"kind,omitempty"`
	Warning string           `json:"warning,omitempty"`
	Matches []DuplicateMatch `json:"matches"`
}

// Blocking reports whether the candidate must not be saved without confirmation.
func (r DuplicateReport) Blocking() bool {
	return r.Kind != DuplicateNone
}
