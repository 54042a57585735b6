package domain

import "github.com/shopspring/decimal"

// Sale is immutable once written; there are no edit or delete paths.
type Sale struct {
	ID            int64           `db:"id" json:"id"`
	InvoiceNumber string          `db:"invoice_number" json:"invoice_number"`
	CustomerName  *string         `db:"customer_name" json:"customer_name,omitempty"`
	Total         decimal.Decimal `db:"total" json:"total"`
	SoldAt        string          `db:"sold_at" json:"sold_at"`
}

// SaleItem snapshots the unit price at the time of sale; later catalog
// price edits never touch it.
type SaleItem struct {
	ID         int64           `db:"id" json:"id"`
	SaleID     int64           `db:"sale_id" json:"sale_id"`
	BatchID    int64           `db:"batch_id" json:"batch_id"`
	MedicineID int64           `db:"medicine_id" json:"medicine_id"`
	Quantity   int64           `db:"quantity" json:"quantity"`
	UnitPrice  decimal.Decimal `db:"unit_price" json:"unit_price"`
}
