package sales

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"pharmasys/m/domain"
	"pharmasys/m/internal/inventory"
)

// Coordinator turns a cart into a committed sale with all-or-nothing
// semantics: every line's stock is reserved and every row is written
// inside one transaction, or nothing is.
type Coordinator struct {
	db    *sqlx.DB
	stock *inventory.StockManager
}

func NewCoordinator(db *sqlx.DB, stock *inventory.StockManager) *Coordinator {
	return &Coordinator{db: db, stock: stock}
}

// Confirmation is what finalize hands back for receipt rendering.
type Confirmation struct {
	SaleID        int64           `json:"sale_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Total         decimal.Decimal `json:"total"`
	SoldAt        string          `json:"sold_at"`
}

// FinalizeSale validates and commits the cart. Each line's stock and
// expiry are re-checked at reservation time, not trusted from when the
// line was added; the first failing line aborts the whole unit of work
// and the caller keeps the cart so the user can adjust and retry.
func (c *Coordinator) FinalizeSale(ctx context.Context, cart *domain.Cart, customerName string) (*Confirmation, error) {
	if cart == nil || cart.Empty() {
		return nil, domain.ErrEmptyCart
	}

	var name *string
	if trimmed := strings.TrimSpace(customerName); trimmed != "" {
		name = &trimmed
	}

	var conf Confirmation
	err := withTransaction(c.db, func(tx *sqlx.Tx) error {
		for i, line := range cart.Lines {
			if err := c.stock.ReserveStock(ctx, tx, line.BatchID, line.Quantity); err != nil {
				return &domain.SaleError{FailingLine: i, BatchID: line.BatchID, Err: err}
			}
		}

		total := cart.Total()
		invoice := "INV-" + strings.ToUpper(uuid.NewString()[:8])
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO sales (invoice_number, customer_name, total)
			VALUES ($1, $2, $3) RETURNING id, sold_at`,
			invoice, name, total,
		).Scan(&conf.SaleID, &conf.SoldAt)
		if err != nil {
			return &domain.PersistenceError{Op: "insert sale", Err: err}
		}
		conf.InvoiceNumber = invoice
		conf.Total = total

		for i, line := range cart.Lines {
			// Resolve the medicine from the batch inside the same
			// transaction; the id carried by the cart line came from
			// the client and is not trusted.
			var medicineID int64
			if err := tx.GetContext(ctx, &medicineID, `SELECT medicine_id FROM batches WHERE id = $1`, line.BatchID); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return &domain.SaleError{FailingLine: i, BatchID: line.BatchID, Err: domain.ErrNotFound}
				}
				return &domain.PersistenceError{Op: "resolve batch medicine", Err: err}
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO sale_items (sale_id, batch_id, medicine_id, quantity, unit_price)
				VALUES ($1, $2, $3, $4, $5)`,
				conf.SaleID, line.BatchID, medicineID, line.Quantity, line.UnitPrice); err != nil {
				return &domain.PersistenceError{Op: "insert sale item", Err: err}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &conf, nil
}

// ReceiptItem is one line of a rendered receipt.
type ReceiptItem struct {
	MedicineName string          `db:"medicine_name" json:"medicine_name"`
	BatchNumber  string          `db:"batch_number" json:"batch_number"`
	Quantity     int64           `db:"quantity" json:"quantity"`
	UnitPrice    decimal.Decimal `db:"unit_price" json:"unit_price"`
	Total        decimal.Decimal `db:"-" json:"total"`
}

// Receipt bundles a sale with its resolved items.
type Receipt struct {
	domain.Sale
	Items []ReceiptItem `json:"items"`
}

// GetReceipt loads a committed sale and its items by id.
func (c *Coordinator) GetReceipt(ctx context.Context, saleID int64) (*Receipt, error) {
	var receipt Receipt
	err := c.db.GetContext(ctx, &receipt.Sale, `
		SELECT id, invoice_number, customer_name, total, sold_at FROM sales WHERE id = $1`, saleID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, &domain.PersistenceError{Op: "load sale", Err: err}
	}

	receipt.Items = []ReceiptItem{}
	err = c.db.SelectContext(ctx, &receipt.Items, `
		SELECT m.name AS medicine_name, b.batch_number, si.quantity, si.unit_price
		FROM sale_items si
		JOIN medicines m ON m.id = si.medicine_id
		JOIN batches b ON b.id = si.batch_id
		WHERE si.sale_id = $1
		ORDER BY si.id`, saleID)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "load sale items", Err: err}
	}
	// Line totals stay in decimal arithmetic; SQLite would multiply
	// these as floats.
	for i := range receipt.Items {
		item := &receipt.Items[i]
		item.Total = item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity))
	}
	return &receipt, nil
}

// SaleSummary is one sales-history row.
type SaleSummary struct {
	domain.Sale
	ItemCount int64 `db:"item_count" json:"item_count"`
}

// ListSales returns sale history, newest first, optionally bounded by
// YYYY-MM-DD dates (inclusive).
func (c *Coordinator) ListSales(ctx context.Context, startDate, endDate string) ([]SaleSummary, error) {
	query := `
		SELECT s.id, s.invoice_number, s.customer_name, s.total, s.sold_at,
		       COUNT(si.id) AS item_count
		FROM sales s
		LEFT JOIN sale_items si ON si.sale_id = s.id`
	var (
		clauses []string
		args    []any
	)
	if startDate != "" {
		args = append(args, startDate)
		clauses = append(clauses, "DATE(s.sold_at) >= ?")
	}
	if endDate != "" {
		args = append(args, endDate)
		clauses = append(clauses, "DATE(s.sold_at) <= ?")
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " GROUP BY s.id ORDER BY s.sold_at DESC"

	sales := []SaleSummary{}
	if err := c.db.SelectContext(ctx, &sales, query, args...); err != nil {
		return nil, &domain.PersistenceError{Op: "list sales", Err: err}
	}
	return sales, nil
}

// RevenueSince sums committed sale totals on or after the given
// YYYY-MM-DD date. sold_at is stored in UTC, so callers pass a UTC date.
func (c *Coordinator) RevenueSince(ctx context.Context, date string) (decimal.Decimal, int64, error) {
	var row struct {
		Revenue decimal.Decimal `db:"revenue"`
		Count   int64           `db:"count"`
	}
	err := c.db.GetContext(ctx, &row, `
		SELECT COALESCE(SUM(total), 0) AS revenue, COUNT(*) AS count
		FROM sales WHERE DATE(sold_at) >= $1`, date)
	if err != nil {
		return decimal.Zero, 0, &domain.PersistenceError{Op: "sum revenue", Err: err}
	}
	return row.Revenue, row.Count, nil
}
