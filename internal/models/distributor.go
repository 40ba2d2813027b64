package models

import "time"

// Distributor is a stock-holding partner whose inventory gets verified.
type Distributor struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	Territory string    `db:"territory" json:"territory"`
	Region    string    `db:"region" json:"region"`
	Latitude  *float64  `db:"latitude" json:"latitude,omitempty"`
	Longitude *float64  `db:"longitude" json:"longitude,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// HasLocation reports whether the distributor has coordinates on file.
func (d Distributor) HasLocation() bool {
	return d.Latitude != nil && d.Longitude != nil
}
