package domain

import "github.com/shopspring/decimal"

type Medicine struct {
	ID          int64           `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	GenericName *string         `db:"generic_name" json:"generic_name,omitempty"`
	Dosage      *string         `db:"dosage" json:"dosage,omitempty"`
	Price       decimal.Decimal `db:"price" json:"price"`
}

// MedicineStock is a catalog row joined with its live batch totals.
type MedicineStock struct {
	Medicine
	BatchCount     int64   `db:"batch_count" json:"batch_count"`
	TotalStock     int64   `db:"total_stock" json:"total_stock"`
	EarliestExpiry *string `db:"earliest_expiry" json:"earliest_expiry,omitempty"`
}
