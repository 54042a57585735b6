package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CartLine is one (batch, quantity) selection. UnitPrice is captured
// when the line is added and is what the sale will charge; finalize
// does not re-price from the catalog.
type CartLine struct {
	BatchID      int64           `json:"batch_id"`
	MedicineID   int64           `json:"medicine_id"`
	MedicineName string          `json:"medicine_name"`
	BatchNumber  string          `json:"batch_number"`
	ExpiryDate   string          `json:"expiry_date"`
	Quantity     int64           `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Total        decimal.Decimal `json:"total"`
}

// Cart is the transient per-session selection. It has no identity
// after a successful finalize.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

// AddLine merges into an existing line for the same batch instead of
// duplicating it: quantities sum and the line total is recomputed from
// the unit price captured by the first add.
func (c *Cart) AddLine(line CartLine) error {
	if line.Quantity <= 0 {
		return &ValidationError{Field: "quantity", Reason: "must be greater than zero"}
	}
	for i := range c.Lines {
		if c.Lines[i].BatchID == line.BatchID {
			c.Lines[i].Quantity += line.Quantity
			c.Lines[i].Total = c.Lines[i].UnitPrice.Mul(decimal.NewFromInt(c.Lines[i].Quantity))
			return nil
		}
	}
	line.Total = line.UnitPrice.Mul(decimal.NewFromInt(line.Quantity))
	c.Lines = append(c.Lines, line)
	return nil
}

// RemoveLine deletes one line and keeps the remaining lines in order.
func (c *Cart) RemoveLine(index int) error {
	if index < 0 || index >= len(c.Lines) {
		return &ValidationError{Field: "index", Reason: fmt.Sprintf("no cart line at position %d", index)}
	}
	c.Lines = append(c.Lines[:index], c.Lines[index+1:]...)
	return nil
}

// Clear empties the cart unconditionally.
func (c *Cart) Clear() {
	c.Lines = nil
}

func (c *Cart) Empty() bool {
	return len(c.Lines) == 0
}

// Total is the exact sum of line totals.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.Total)
	}
	return total
}
