package api

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"pharmasys/m/domain"
	"pharmasys/m/internal/inventory"
	"pharmasys/m/internal/sales"
)

type ctxKey string

const (
	ctxUserID ctxKey = "userID"
	ctxRole   ctxKey = "role"
)

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	db       *sqlx.DB
	secret   string
	stock    *inventory.StockManager
	sales    *sales.Coordinator
	carts    *sales.CartStore
	validate *validator.Validate
}

// New constructs a Handler.
func New(db *sqlx.DB, secret string) *Handler {
	stock := inventory.NewStockManager(db)
	return &Handler{
		db:       db,
		secret:   secret,
		stock:    stock,
		sales:    sales.NewCoordinator(db, stock),
		carts:    sales.NewCartStore(),
		validate: validator.New(),
	}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Group(func(protected chi.Router) {
			protected.Use(h.authMiddleware)
			protected.Post("/reset-password", h.resetPassword)
		})
	})

	r.Group(func(pr chi.Router) {
		pr.Use(h.authMiddleware)

		pr.Route("/medicines", func(r chi.Router) {
			r.Get("/", h.listMedicines)
			r.Post("/", h.createMedicine)
			r.Get("/{id}", h.getMedicine)
			r.Put("/{id}", h.updateMedicine)
			r.Delete("/{id}", h.deleteMedicine)
		})

		pr.Route("/inventory", func(r chi.Router) {
			r.Post("/stock-in", h.stockIn)
			r.Get("/search", h.searchSellableBatches)
			r.Get("/expiry-report", h.expiryReport)
			r.Get("/low-stock", h.lowStock)
		})

		pr.Route("/pos", func(r chi.Router) {
			r.Get("/cart", h.getCart)
			r.Post("/cart/items", h.addToCart)
			r.Delete("/cart/items/{index}", h.removeFromCart)
			r.Delete("/cart", h.clearCart)
			r.Post("/checkout", h.checkout)
		})

		pr.Route("/reports", func(r chi.Router) {
			r.Get("/dashboard", h.dashboard)
			r.Get("/sales", h.salesReport)
			r.Get("/sales/{id}/receipt", h.receipt)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Authentication helpers

type authClaims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (h *Handler) generateToken(userID int64, role string) (string, error) {
	claims := authClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.secret))
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		tokenString := strings.TrimSpace(header[len("Bearer "):])
		token, err := jwt.ParseWithClaims(tokenString, &authClaims{}, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(h.secret), nil
		})
		if err != nil || !token.Valid {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		claims, ok := token.Claims.(*authClaims)
		if !ok {
			respondError(w, http.StatusUnauthorized, "invalid token claims")
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
		ctx = context.WithValue(ctx, ctxRole, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) requireRole(w http.ResponseWriter, r *http.Request, allowed ...string) bool {
	role := r.Context().Value(ctxRole)
	if role == nil {
		respondError(w, http.StatusUnauthorized, "missing role")
		return false
	}
	current := role.(string)
	for _, allowedRole := range allowed {
		if current == allowedRole {
			return true
		}
	}
	respondError(w, http.StatusForbidden, "insufficient permissions")
	return false
}

func userIDFromContext(r *http.Request) int64 {
	if val := r.Context().Value(ctxUserID); val != nil {
		if id, ok := val.(int64); ok {
			return id
		}
	}
	return 0
}

func cartKey(r *http.Request) string {
	return strconv.FormatInt(userIDFromContext(r), 10)
}

// Auth Handlers

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=admin staff"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to secure password")
		return
	}

	var userID int64
	err = h.db.QueryRowx(`INSERT INTO users (username, email, password, role) VALUES ($1, $2, $3, $4) RETURNING id`,
		req.Username, strings.ToLower(req.Email), hashed, req.Role).Scan(&userID)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") || strings.Contains(err.Error(), "unique constraint") {
			respondError(w, http.StatusConflict, "email already exists")
		} else {
			respondError(w, http.StatusInternalServerError, "unable to create user")
		}
		return
	}

	token, err := h.generateToken(userID, req.Role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}

	respondJSON(w, http.StatusCreated, authResponse{Token: token, User: domain.User{ID: userID, Username: req.Username, Email: strings.ToLower(req.Email), Role: req.Role}})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var user domain.User
	err := h.db.Get(&user, `SELECT id, username, email, password, role FROM users WHERE email = $1`, strings.ToLower(req.Email))
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.generateToken(user.ID, user.Role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}

	user.Password = ""
	respondJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		NewPassword string `json:"new_password" validate:"required,min=6"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	uid := userIDFromContext(r)
	hashed, err := bcrypt.GenerateFromPassword([]byte(payload.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to secure password")
		return
	}
	if _, err := h.db.Exec(`UPDATE users SET password = $1 WHERE id = $2`, hashed, uid); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update password")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

// Medicine catalog handlers

type medicineRequest struct {
	Name        string          `json:"name" validate:"required"`
	GenericName string          `json:"generic_name"`
	Dosage      string          `json:"dosage"`
	Price       decimal.Decimal `json:"price"`
}

func (h *Handler) listMedicines(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("search"))
	lowStockOnly := r.URL.Query().Get("low_stock") != ""

	query := `
		SELECT m.id, m.name, m.generic_name, m.dosage, m.price,
		       COUNT(b.id) AS batch_count,
		       COALESCE(SUM(b.remaining_stock), 0) AS total_stock,
		       MIN(b.expiry_date) AS earliest_expiry
		FROM medicines m
		LEFT JOIN batches b ON b.medicine_id = m.id AND b.remaining_stock > 0`
	var args []any
	if search != "" {
		like := "%" + search + "%"
		args = append(args, like)
		query += ` WHERE (m.name LIKE $1 OR m.generic_name LIKE $1 OR m.dosage LIKE $1)`
	}
	query += ` GROUP BY m.id`
	if lowStockOnly {
		query += fmt.Sprintf(` HAVING COALESCE(SUM(b.remaining_stock), 0) <= %d`, inventory.LowStockThreshold)
	}
	query += ` ORDER BY m.name`

	medicines := []domain.MedicineStock{}
	if err := h.db.Select(&medicines, query, args...); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list medicines")
		return
	}
	respondJSON(w, http.StatusOK, medicines)
}

func (h *Handler) createMedicine(w http.ResponseWriter, r *http.Request) {
	var req medicineRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Price.IsNegative() {
		respondError(w, http.StatusBadRequest, "price must not be negative")
		return
	}

	var id int64
	err := h.db.QueryRowx(`INSERT INTO medicines (name, generic_name, dosage, price) VALUES ($1, $2, $3, $4) RETURNING id`,
		strings.TrimSpace(req.Name), nullIfEmpty(req.GenericName), nullIfEmpty(req.Dosage), req.Price).Scan(&id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to create medicine")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"id": id, "name": req.Name})
}

func (h *Handler) getMedicine(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid medicine id")
		return
	}
	var medicine domain.Medicine
	err = h.db.Get(&medicine, `SELECT id, name, generic_name, dosage, price FROM medicines WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "medicine not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load medicine")
		return
	}
	respondJSON(w, http.StatusOK, medicine)
}

func (h *Handler) updateMedicine(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid medicine id")
		return
	}
	var req medicineRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Price.IsNegative() {
		respondError(w, http.StatusBadRequest, "price must not be negative")
		return
	}

	res, err := h.db.Exec(`UPDATE medicines SET name = $1, generic_name = $2, dosage = $3, price = $4 WHERE id = $5`,
		strings.TrimSpace(req.Name), nullIfEmpty(req.GenericName), nullIfEmpty(req.Dosage), req.Price, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update medicine")
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		respondError(w, http.StatusNotFound, "medicine not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// deleteMedicine blocks deletion while any batch references the
// medicine, so sale history and stock records stay resolvable.
func (h *Handler) deleteMedicine(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid medicine id")
		return
	}

	var refs int64
	if err := h.db.Get(&refs, `SELECT COUNT(*) FROM batches WHERE medicine_id = $1`, id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to check batches")
		return
	}
	if refs > 0 {
		respondError(w, http.StatusConflict, "medicine has recorded batches and cannot be deleted")
		return
	}

	res, err := h.db.Exec(`DELETE FROM medicines WHERE id = $1`, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to delete medicine")
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		respondError(w, http.StatusNotFound, "medicine not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Inventory handlers

type stockInRequest struct {
	MedicineID    int64           `json:"medicine_id" validate:"required,gt=0"`
	BatchNumber   string          `json:"batch_number" validate:"required"`
	ExpiryDate    string          `json:"expiry_date" validate:"required"`
	Quantity      int64           `json:"quantity" validate:"required,gt=0"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
}

func (h *Handler) stockIn(w http.ResponseWriter, r *http.Request) {
	var req stockInRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	batch, err := h.stock.ReceiveStock(r.Context(), req.MedicineID, req.BatchNumber, req.ExpiryDate, req.Quantity, req.PurchasePrice)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, batch)
}

func (h *Handler) searchSellableBatches(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	batches, err := h.stock.FindSellableBatches(r.Context(), query, limit)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, batches)
}

func (h *Handler) expiryReport(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	rows, err := h.stock.ExpiringBatches(r.Context(), days)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="expiry_report_%s.csv"`, time.Now().Format("2006-01-02")))
		cw := csv.NewWriter(w)
		_ = cw.Write([]string{"Medicine", "Batch", "Expiry Date", "Days Left", "Stock", "Purchase Value"})
		for _, row := range rows {
			value := row.PurchasePrice.Mul(decimal.NewFromInt(row.RemainingStock))
			_ = cw.Write([]string{
				row.MedicineName,
				row.BatchNumber,
				row.ExpiryDate,
				strconv.FormatInt(row.DaysLeft, 10),
				strconv.FormatInt(row.RemainingStock, 10),
				value.StringFixed(2),
			})
		}
		cw.Flush()
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	threshold, _ := strconv.ParseInt(r.URL.Query().Get("threshold"), 10, 64)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 25
	}
	rows, err := h.stock.LowStockBatches(r.Context(), threshold, limit)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// POS cart handlers

type cartResponse struct {
	Lines []domain.CartLine `json:"lines"`
	Total decimal.Decimal   `json:"total"`
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	cart := h.carts.Get(cartKey(r))
	respondJSON(w, http.StatusOK, cartResponse{Lines: cart.Lines, Total: cart.Total()})
}

type addToCartRequest struct {
	BatchID  int64 `json:"batch_id" validate:"required,gt=0"`
	Quantity int64 `json:"quantity" validate:"required,gt=0"`
}

func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Advisory availability check; checkout re-validates inside the
	// finalize transaction.
	batch, err := h.stock.SellableBatch(r.Context(), req.BatchID, req.Quantity)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	key := cartKey(r)
	cart := h.carts.Get(key)
	if err := cart.AddLine(domain.CartLine{
		BatchID:      batch.BatchID,
		MedicineID:   batch.MedicineID,
		MedicineName: batch.MedicineName,
		BatchNumber:  batch.BatchNumber,
		ExpiryDate:   batch.ExpiryDate,
		Quantity:     req.Quantity,
		UnitPrice:    batch.UnitPrice,
	}); err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.carts.Put(key, cart)
	respondJSON(w, http.StatusOK, cartResponse{Lines: cart.Lines, Total: cart.Total()})
}

func (h *Handler) removeFromCart(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid cart line index")
		return
	}
	key := cartKey(r)
	cart := h.carts.Get(key)
	if err := cart.RemoveLine(index); err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.carts.Put(key, cart)
	respondJSON(w, http.StatusOK, cartResponse{Lines: cart.Lines, Total: cart.Total()})
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	h.carts.Delete(cartKey(r))
	respondJSON(w, http.StatusOK, map[string]string{"status": "cart cleared"})
}

type checkoutRequest struct {
	CustomerName string `json:"customer_name"`
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := cartKey(r)
	cart := h.carts.Get(key)
	conf, err := h.sales.FinalizeSale(r.Context(), cart, req.CustomerName)
	if err != nil {
		// The stored cart is untouched so the user can adjust and retry.
		h.respondDomainError(w, err)
		return
	}
	// Clear only after the confirmed commit.
	h.carts.Delete(key)
	respondJSON(w, http.StatusCreated, conf)
}

// Reports

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	var medicineCount, batchCount, lowStockCount, expiringCount int64
	// sold_at is stored in UTC, so the today bucket is the UTC date
	// regardless of the server's local zone.
	now := time.Now().UTC()
	today := now.Format("2006-01-02")
	horizon := now.AddDate(0, 0, inventory.ExpiryWindowDays).Format("2006-01-02")

	if err := h.db.Get(&medicineCount, `SELECT COUNT(*) FROM medicines`); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load dashboard stats")
		return
	}
	if err := h.db.Get(&batchCount, `SELECT COUNT(*) FROM batches WHERE remaining_stock > 0`); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load dashboard stats")
		return
	}
	if err := h.db.Get(&lowStockCount, `SELECT COUNT(*) FROM batches WHERE remaining_stock > 0 AND remaining_stock <= $1`, inventory.LowStockThreshold); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load dashboard stats")
		return
	}
	if err := h.db.Get(&expiringCount, `SELECT COUNT(*) FROM batches WHERE remaining_stock > 0 AND expiry_date >= $1 AND expiry_date <= $2`, today, horizon); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load dashboard stats")
		return
	}

	revenue, salesCount, err := h.sales.RevenueSince(r.Context(), today)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	lowStockItems, err := h.stock.LowStockBatches(r.Context(), 0, 5)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	recent, err := h.sales.ListSales(r.Context(), "", "")
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	if len(recent) > 5 {
		recent = recent[:5]
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"total_medicines":   medicineCount,
		"in_stock_batches":  batchCount,
		"low_stock_count":   lowStockCount,
		"expiring_count":    expiringCount,
		"today_revenue":     revenue,
		"today_sales_count": salesCount,
		"low_stock_items":   lowStockItems,
		"recent_sales":      recent,
	})
}

func (h *Handler) salesReport(w http.ResponseWriter, r *http.Request) {
	startDate := strings.TrimSpace(r.URL.Query().Get("start_date"))
	if startDate != "" {
		if _, err := time.Parse("2006-01-02", startDate); err != nil {
			respondError(w, http.StatusBadRequest, "start_date must be in YYYY-MM-DD format")
			return
		}
	}
	endDate := strings.TrimSpace(r.URL.Query().Get("end_date"))
	if endDate != "" {
		if _, err := time.Parse("2006-01-02", endDate); err != nil {
			respondError(w, http.StatusBadRequest, "end_date must be in YYYY-MM-DD format")
			return
		}
	}

	report, err := h.sales.ListSales(r.Context(), startDate, endDate)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (h *Handler) receipt(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid sale id")
		return
	}
	receipt, err := h.sales.GetReceipt(r.Context(), id)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, receipt)
}

// Helpers

// respondDomainError maps the domain error taxonomy onto HTTP statuses.
func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		respondError(w, http.StatusBadRequest, vErr.Error())
	case errors.Is(err, domain.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientStock):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		// Storage and driver detail stays in the server log.
		log.Printf("internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func nullIfEmpty(val string) *string {
	trimmed := strings.TrimSpace(val)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
