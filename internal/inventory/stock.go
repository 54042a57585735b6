package inventory

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"pharmasys/m/domain"
)

const (
	// SearchLimit caps sellable-batch search results.
	SearchLimit = 15

	// LowStockThreshold marks a batch as running low.
	LowStockThreshold = 10

	// ExpiryWindowDays is the default horizon for expiry reports.
	ExpiryWindowDays = 30
)

const dateLayout = "2006-01-02"

// StockManager is the authoritative source for how much of which
// medicine, in which batch, is sellable right now.
type StockManager struct {
	db *sqlx.DB
}

func NewStockManager(db *sqlx.DB) *StockManager {
	return &StockManager{db: db}
}

func today() string {
	return time.Now().Format(dateLayout)
}

// FindSellableBatches returns in-stock, unexpired batches matching the
// query against medicine name, generic name or batch number. Batches
// closest to expiry come first so near-expiry stock is dispensed before
// it is wasted; remaining stock breaks ties.
func (s *StockManager) FindSellableBatches(ctx context.Context, query string, limit int) ([]domain.SellableBatch, error) {
	if limit <= 0 || limit > SearchLimit {
		limit = SearchLimit
	}
	like := "%" + strings.TrimSpace(query) + "%"
	batches := []domain.SellableBatch{}
	err := s.db.SelectContext(ctx, &batches, `
		SELECT b.id AS batch_id, b.medicine_id, m.name AS medicine_name, m.generic_name, m.dosage,
		       b.batch_number, b.expiry_date, b.remaining_stock, m.price AS unit_price
		FROM batches b
		JOIN medicines m ON m.id = b.medicine_id
		WHERE b.remaining_stock > 0
		  AND b.expiry_date >= $1
		  AND (m.name LIKE $2 OR m.generic_name LIKE $2 OR b.batch_number LIKE $2)
		ORDER BY b.expiry_date ASC, b.remaining_stock DESC
		LIMIT $3`, today(), like, limit)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "search sellable batches", Err: err}
	}
	return batches, nil
}

// SellableBatch loads one batch joined with its medicine, requiring it
// to be unexpired and to hold at least quantity units. Used for the
// advisory availability check when a line is added to a cart.
func (s *StockManager) SellableBatch(ctx context.Context, batchID, quantity int64) (*domain.SellableBatch, error) {
	if quantity <= 0 {
		return nil, &domain.ValidationError{Field: "quantity", Reason: "must be greater than zero"}
	}
	var batch domain.SellableBatch
	err := s.db.GetContext(ctx, &batch, `
		SELECT b.id AS batch_id, b.medicine_id, m.name AS medicine_name, m.generic_name, m.dosage,
		       b.batch_number, b.expiry_date, b.remaining_stock, m.price AS unit_price
		FROM batches b
		JOIN medicines m ON m.id = b.medicine_id
		WHERE b.id = $1`, batchID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, &domain.PersistenceError{Op: "load batch", Err: err}
	}
	if batch.RemainingStock < quantity || batch.ExpiryDate < today() {
		return nil, domain.ErrInsufficientStock
	}
	return &batch, nil
}

// ReserveStock decrements remaining stock by quantity in one conditional
// statement: the stock check, the expiry check and the decrement are a
// single UPDATE, so two concurrent sales cannot both win the same units.
// It runs on whatever handle the caller passes; finalize passes its
// open transaction.
func (s *StockManager) ReserveStock(ctx context.Context, ext sqlx.ExtContext, batchID, quantity int64) error {
	if quantity <= 0 {
		return &domain.ValidationError{Field: "quantity", Reason: "must be greater than zero"}
	}
	res, err := ext.ExecContext(ctx, `
		UPDATE batches
		SET remaining_stock = remaining_stock - $1
		WHERE id = $2 AND remaining_stock >= $1 AND expiry_date >= $3`,
		quantity, batchID, today())
	if err != nil {
		return &domain.PersistenceError{Op: "reserve stock", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return &domain.PersistenceError{Op: "reserve stock", Err: err}
	}
	if affected == 1 {
		return nil
	}

	// The conditional update matched nothing: missing batch, expired
	// batch, or not enough stock. Tell them apart for the caller.
	var exists bool
	if err := sqlx.GetContext(ctx, ext, &exists, `SELECT EXISTS(SELECT 1 FROM batches WHERE id = $1)`, batchID); err != nil {
		return &domain.PersistenceError{Op: "reserve stock", Err: err}
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrInsufficientStock
}

// ReceiveStock records a stock-in event: a new batch whose remaining
// stock starts equal to the received quantity.
func (s *StockManager) ReceiveStock(ctx context.Context, medicineID int64, batchNumber, expiryDate string, quantity int64, purchasePrice decimal.Decimal) (*domain.Batch, error) {
	batchNumber = strings.TrimSpace(batchNumber)
	if batchNumber == "" {
		return nil, &domain.ValidationError{Field: "batch_number", Reason: "is required"}
	}
	if quantity <= 0 {
		return nil, &domain.ValidationError{Field: "quantity", Reason: "must be greater than zero"}
	}
	if purchasePrice.IsNegative() {
		return nil, &domain.ValidationError{Field: "purchase_price", Reason: "must not be negative"}
	}
	expiry, err := time.Parse(dateLayout, strings.TrimSpace(expiryDate))
	if err != nil {
		return nil, &domain.ValidationError{Field: "expiry_date", Reason: "must be a valid YYYY-MM-DD date"}
	}

	var exists bool
	if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM medicines WHERE id = $1)`, medicineID); err != nil {
		return nil, &domain.PersistenceError{Op: "check medicine", Err: err}
	}
	if !exists {
		return nil, domain.ErrNotFound
	}

	batch := &domain.Batch{
		MedicineID:     medicineID,
		BatchNumber:    batchNumber,
		ExpiryDate:     expiry.Format(dateLayout),
		Quantity:       quantity,
		PurchasePrice:  purchasePrice,
		RemainingStock: quantity,
	}
	err = s.db.QueryRowxContext(ctx, `
		INSERT INTO batches (medicine_id, batch_number, expiry_date, quantity, purchase_price, remaining_stock)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`,
		batch.MedicineID, batch.BatchNumber, batch.ExpiryDate, batch.Quantity, batch.PurchasePrice, batch.RemainingStock,
	).Scan(&batch.ID, &batch.CreatedAt)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "insert batch", Err: err}
	}
	return batch, nil
}

// LowStockRow is a batch close to running out, for the dashboard.
type LowStockRow struct {
	MedicineName   string `db:"medicine_name" json:"medicine_name"`
	BatchNumber    string `db:"batch_number" json:"batch_number"`
	RemainingStock int64  `db:"remaining_stock" json:"remaining_stock"`
}

// LowStockBatches lists in-stock batches at or below the threshold,
// lowest stock first.
func (s *StockManager) LowStockBatches(ctx context.Context, threshold int64, limit int) ([]LowStockRow, error) {
	if threshold <= 0 {
		threshold = LowStockThreshold
	}
	if limit <= 0 {
		limit = 5
	}
	rows := []LowStockRow{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT m.name AS medicine_name, b.batch_number, b.remaining_stock
		FROM batches b
		JOIN medicines m ON m.id = b.medicine_id
		WHERE b.remaining_stock > 0 AND b.remaining_stock <= $1
		ORDER BY b.remaining_stock ASC
		LIMIT $2`, threshold, limit)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list low stock", Err: err}
	}
	return rows, nil
}

// ExpiringBatch is an expiry-report row.
type ExpiringBatch struct {
	BatchID        int64           `db:"batch_id" json:"batch_id"`
	MedicineName   string          `db:"medicine_name" json:"medicine_name"`
	Dosage         *string         `db:"dosage" json:"dosage,omitempty"`
	BatchNumber    string          `db:"batch_number" json:"batch_number"`
	ExpiryDate     string          `db:"expiry_date" json:"expiry_date"`
	RemainingStock int64           `db:"remaining_stock" json:"remaining_stock"`
	PurchasePrice  decimal.Decimal `db:"purchase_price" json:"purchase_price"`
	DaysLeft       int64           `db:"days_left" json:"days_left"`
}

// ExpiringBatches lists in-stock batches expiring within the window,
// soonest first.
func (s *StockManager) ExpiringBatches(ctx context.Context, days int) ([]ExpiringBatch, error) {
	if days <= 0 {
		days = ExpiryWindowDays
	}
	now := time.Now()
	rows := []ExpiringBatch{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT b.id AS batch_id, m.name AS medicine_name, m.dosage, b.batch_number,
		       b.expiry_date, b.remaining_stock, b.purchase_price,
		       CAST(julianday(b.expiry_date) - julianday($1) AS INTEGER) AS days_left
		FROM batches b
		JOIN medicines m ON m.id = b.medicine_id
		WHERE b.remaining_stock > 0
		  AND b.expiry_date >= $1 AND b.expiry_date <= $2
		ORDER BY b.expiry_date ASC, b.remaining_stock DESC`,
		now.Format(dateLayout), now.AddDate(0, 0, days).Format(dateLayout))
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list expiring batches", Err: err}
	}
	return rows, nil
}
