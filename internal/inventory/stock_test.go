package inventory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"pharmasys/m/domain"
	"pharmasys/m/internal/migrations"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Connect("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	migrations.Run(db)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func insertMedicine(t *testing.T, db *sqlx.DB, name, generic, price string) int64 {
	t.Helper()
	var id int64
	err := db.QueryRowx(`INSERT INTO medicines (name, generic_name, price) VALUES ($1, $2, $3) RETURNING id`,
		name, generic, price).Scan(&id)
	require.NoError(t, err)
	return id
}

func insertBatch(t *testing.T, db *sqlx.DB, medicineID int64, batchNumber, expiry string, quantity, remaining int64) int64 {
	t.Helper()
	var id int64
	err := db.QueryRowx(`INSERT INTO batches (medicine_id, batch_number, expiry_date, quantity, purchase_price, remaining_stock)
		VALUES ($1, $2, $3, $4, 0, $5) RETURNING id`,
		medicineID, batchNumber, expiry, quantity, remaining).Scan(&id)
	require.NoError(t, err)
	return id
}

func futureDate(days int) string {
	return time.Now().AddDate(0, 0, days).Format(dateLayout)
}

func pastDate(days int) string {
	return time.Now().AddDate(0, 0, -days).Format(dateLayout)
}

func remainingStock(t *testing.T, db *sqlx.DB, batchID int64) int64 {
	t.Helper()
	var remaining int64
	require.NoError(t, db.Get(&remaining, `SELECT remaining_stock FROM batches WHERE id = $1`, batchID))
	return remaining
}

func TestReceiveStock(t *testing.T) {
	db := newTestDB(t)
	stock := NewStockManager(db)
	ctx := context.Background()
	medID := insertMedicine(t, db, "Napa", "Paracetamol", "2.50")

	batch, err := stock.ReceiveStock(ctx, medID, "B-1001", futureDate(180), 100, decimal.RequireFromString("1.80"))
	require.NoError(t, err)
	assert.NotZero(t, batch.ID)
	assert.Equal(t, int64(100), batch.Quantity)
	assert.Equal(t, int64(100), batch.RemainingStock, "a fresh batch is fully sellable")
	assert.NotEmpty(t, batch.CreatedAt)
}

func TestReceiveStockValidation(t *testing.T) {
	db := newTestDB(t)
	stock := NewStockManager(db)
	ctx := context.Background()
	medID := insertMedicine(t, db, "Napa", "Paracetamol", "2.50")
	cost := decimal.RequireFromString("1.80")

	var vErr *domain.ValidationError

	_, err := stock.ReceiveStock(ctx, medID, "  ", futureDate(30), 10, cost)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "batch_number", vErr.Field)

	_, err = stock.ReceiveStock(ctx, medID, "B-1", futureDate(30), 0, cost)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "quantity", vErr.Field)

	_, err = stock.ReceiveStock(ctx, medID, "B-1", futureDate(30), 10, decimal.RequireFromString("-1"))
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "purchase_price", vErr.Field)

	_, err = stock.ReceiveStock(ctx, medID, "B-1", "31-12-2026", 10, cost)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "expiry_date", vErr.Field)

	_, err = stock.ReceiveStock(ctx, medID+999, "B-1", futureDate(30), 10, cost)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFindSellableBatchesFiltersAndOrders(t *testing.T) {
	db := newTestDB(t)
	stock := NewStockManager(db)
	ctx := context.Background()

	napa := insertMedicine(t, db, "Napa Extra", "Paracetamol", "3.00")
	seclo := insertMedicine(t, db, "Seclo", "Omeprazole", "7.00")

	later := insertBatch(t, db, napa, "NAPA-A", futureDate(60), 50, 50)
	sooner := insertBatch(t, db, napa, "NAPA-B", futureDate(30), 40, 40)
	insertBatch(t, db, napa, "NAPA-EMPTY", futureDate(60), 20, 0)
	insertBatch(t, db, napa, "NAPA-OLD", pastDate(1), 30, 30)
	insertBatch(t, db, seclo, "SEC-1", futureDate(90), 25, 25)

	got, err := stock.FindSellableBatches(ctx, "napa", 0)
	require.NoError(t, err)
	require.Len(t, got, 2, "depleted and expired batches are never offered")
	assert.Equal(t, sooner, got[0].BatchID, "closest expiry sells first")
	assert.Equal(t, later, got[1].BatchID)
	assert.True(t, got[0].UnitPrice.Equal(decimal.RequireFromString("3.00")))

	// Generic name and batch number are searchable too.
	got, err = stock.FindSellableBatches(ctx, "omepra", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "SEC-1", got[0].BatchNumber)

	got, err = stock.FindSellableBatches(ctx, "SEC-1", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = stock.FindSellableBatches(ctx, "nothing-matches", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindSellableBatchesTieBreaksOnStock(t *testing.T) {
	db := newTestDB(t)
	stock := NewStockManager(db)
	ctx := context.Background()

	medID := insertMedicine(t, db, "Napa", "Paracetamol", "2.50")
	expiry := futureDate(45)
	small := insertBatch(t, db, medID, "SMALL", expiry, 10, 10)
	big := insertBatch(t, db, medID, "BIG", expiry, 80, 80)

	got, err := stock.FindSellableBatches(ctx, "napa", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, big, got[0].BatchID, "same expiry: larger stock first")
	assert.Equal(t, small, got[1].BatchID)
}

func TestFindSellableBatchesLimit(t *testing.T) {
	db := newTestDB(t)
	stock := NewStockManager(db)
	ctx := context.Background()

	medID := insertMedicine(t, db, "Napa", "Paracetamol", "2.50")
	for i := 0; i < SearchLimit+5; i++ {
		insertBatch(t, db, medID, "B", futureDate(30+i), 10, 10)
	}

	got, err := stock.FindSellableBatches(ctx, "napa", 0)
	require.NoError(t, err)
	assert.Len(t, got, SearchLimit)

	got, err = stock.FindSellableBatches(ctx, "napa", 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = stock.FindSellableBatches(ctx, "napa", SearchLimit*10)
	require.NoError(t, err)
	assert.Len(t, got, SearchLimit, "callers cannot raise the cap")
}

func TestSellableBatch(t *testing.T) {
	db := newTestDB(t)
	stock := NewStockManager(db)
	ctx := context.Background()

	medID := insertMedicine(t, db, "Napa", "Paracetamol", "2.50")
	batchID := insertBatch(t, db, medID, "B-1", futureDate(30), 20, 20)
	expiredID := insertBatch(t, db, medID, "B-OLD", pastDate(2), 20, 20)

	batch, err := stock.SellableBatch(ctx, batchID, 20)
	require.NoError(t, err)
	assert.Equal(t, "Napa", batch.MedicineName)

	_, err = stock.SellableBatch(ctx, batchID, 21)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, err = stock.SellableBatch(ctx, expiredID, 1)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, err = stock.SellableBatch(ctx, batchID+999, 1)
	require.ErrorIs(t, err, domain.ErrNotFound)

	var vErr *domain.ValidationError
	_, err = stock.SellableBatch(ctx, batchID, 0)
	require.ErrorAs(t, err, &vErr)
}

func TestReserveStock(t *testing.T) {
	db := newTestDB(t)
	stock := NewStockManager(db)
	ctx := context.Background()

	medID := insertMedicine(t, db, "Napa", "Paracetamol", "2.50")
	batchID := insertBatch(t, db, medID, "B-1", futureDate(30), 10, 10)

	require.NoError(t, stock.ReserveStock(ctx, db, batchID, 4))
	assert.Equal(t, int64(6), remainingStock(t, db, batchID))

	err := stock.ReserveStock(ctx, db, batchID, 7)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(6), remainingStock(t, db, batchID), "a failed reservation takes nothing")

	require.NoError(t, stock.ReserveStock(ctx, db, batchID, 6))
	assert.Equal(t, int64(0), remainingStock(t, db, batchID))

	err = stock.ReserveStock(ctx, db, batchID, 1)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	err = stock.ReserveStock(ctx, db, batchID+999, 1)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReserveStockRejectsExpiredBatch(t *testing.T) {
	db := newTestDB(t)
	stock := NewStockManager(db)
	ctx := context.Background()

	medID := insertMedicine(t, db, "Napa", "Paracetamol", "2.50")
	expiredID := insertBatch(t, db, medID, "B-OLD", pastDate(1), 10, 10)

	err := stock.ReserveStock(ctx, db, expiredID, 1)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(10), remainingStock(t, db, expiredID))
}

func TestReserveStockConcurrent(t *testing.T) {
	db := newTestDB(t)
	stock := NewStockManager(db)
	ctx := context.Background()

	medID := insertMedicine(t, db, "Napa", "Paracetamol", "2.50")
	batchID := insertBatch(t, db, medID, "B-1", futureDate(30), 10, 10)

	// Two clerks race for 8 of the 10 units. Exactly one wins.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = stock.ReserveStock(ctx, db, batchID, 8)
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		default:
			require.ErrorIs(t, err, domain.ErrInsufficientStock)
			lost++
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, lost)
	assert.Equal(t, int64(2), remainingStock(t, db, batchID))
}

func TestLowStockBatches(t *testing.T) {
	db := newTestDB(t)
	stock := NewStockManager(db)
	ctx := context.Background()

	medID := insertMedicine(t, db, "Napa", "Paracetamol", "2.50")
	insertBatch(t, db, medID, "LOW-3", futureDate(30), 50, 3)
	insertBatch(t, db, medID, "LOW-9", futureDate(30), 50, 9)
	insertBatch(t, db, medID, "FULL", futureDate(30), 50, 50)
	insertBatch(t, db, medID, "EMPTY", futureDate(30), 50, 0)

	rows, err := stock.LowStockBatches(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2, "empty batches are not low, they are gone")
	assert.Equal(t, "LOW-3", rows[0].BatchNumber)
	assert.Equal(t, "LOW-9", rows[1].BatchNumber)
}

func TestExpiringBatches(t *testing.T) {
	db := newTestDB(t)
	stock := NewStockManager(db)
	ctx := context.Background()

	medID := insertMedicine(t, db, "Napa", "Paracetamol", "2.50")
	soon := insertBatch(t, db, medID, "SOON", futureDate(5), 20, 20)
	edge := insertBatch(t, db, medID, "EDGE", futureDate(29), 20, 20)
	insertBatch(t, db, medID, "FAR", futureDate(120), 20, 20)
	insertBatch(t, db, medID, "GONE", pastDate(1), 20, 20)
	insertBatch(t, db, medID, "SOON-EMPTY", futureDate(5), 20, 0)

	rows, err := stock.ExpiringBatches(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, soon, rows[0].BatchID)
	assert.Equal(t, edge, rows[1].BatchID)
	assert.InDelta(t, 5, rows[0].DaysLeft, 1)
}
