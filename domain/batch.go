package domain

import "github.com/shopspring/decimal"

// Batch is a received lot of a medicine. Remaining stock only ever
// decreases after creation; rows with zero stock or a past expiry are
// kept for history but excluded from sale.
type Batch struct {
	ID             int64           `db:"id" json:"id"`
	MedicineID     int64           `db:"medicine_id" json:"medicine_id"`
	BatchNumber    string          `db:"batch_number" json:"batch_number"`
	ExpiryDate     string          `db:"expiry_date" json:"expiry_date"`
	Quantity       int64           `db:"quantity" json:"quantity"`
	PurchasePrice  decimal.Decimal `db:"purchase_price" json:"purchase_price"`
	RemainingStock int64           `db:"remaining_stock" json:"remaining_stock"`
	CreatedAt      string          `db:"created_at" json:"created_at"`
}

// SellableBatch is a search hit from the stock manager: a batch joined
// with the medicine it belongs to, carrying the current selling price.
type SellableBatch struct {
	BatchID        int64           `db:"batch_id" json:"batch_id"`
	MedicineID     int64           `db:"medicine_id" json:"medicine_id"`
	MedicineName   string          `db:"medicine_name" json:"medicine_name"`
	GenericName    *string         `db:"generic_name" json:"generic_name,omitempty"`
	Dosage         *string         `db:"dosage" json:"dosage,omitempty"`
	BatchNumber    string          `db:"batch_number" json:"batch_number"`
	ExpiryDate     string          `db:"expiry_date" json:"expiry_date"`
	RemainingStock int64           `db:"remaining_stock" json:"remaining_stock"`
	UnitPrice      decimal.Decimal `db:"unit_price" json:"unit_price"`
}
