package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_cart/bakery-pos/internal/catalog"
	"github.com/fjod/go_cart/bakery-pos/internal/domain"
	"github.com/fjod/go_cart/bakery-pos/internal/ledger"
	"github.com/fjod/go_cart/bakery-pos/internal/service"
	"github.com/fjod/go_cart/bakery-pos/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 5, 0, time.Local)

type failingStore struct{}

func (failingStore) Append(context.Context, []domain.SaleLine) ([]domain.SaleLine, error) {
	return nil, errors.New("database is locked")
}

func (failingStore) ListAll(context.Context) iter.Seq2[domain.SaleLine, error] {
	return func(yield func(domain.SaleLine, error) bool) {
		yield(domain.SaleLine{}, errors.New("database is locked"))
	}
}

func (failingStore) List(context.Context, int) ([]domain.SaleLine, error) {
	return nil, errors.New("database is locked")
}

// flakySessionStore fails the failOn-th Save call
type flakySessionStore struct {
	session.Store
	mu        sync.Mutex
	saves     int
	failOn    int
	deleteErr error
}

func (f *flakySessionStore) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.Store.Delete(ctx, id)
}

func (f *flakySessionStore) Save(ctx context.Context, id string, state domain.CartState) error {
	f.mu.Lock()
	f.saves++
	fail := f.saves == f.failOn
	f.mu.Unlock()
	if fail {
		return errors.New("session backend unavailable")
	}
	return f.Store.Save(ctx, id, state)
}

func setupRouter(t *testing.T, store service.SaleStore) http.Handler {
	sessionStore := session.NewMemoryStore(time.Hour)
	t.Cleanup(func() { sessionStore.Close() })
	return setupRouterWithSessions(t, store, sessionStore)
}

func setupRouterWithSessions(t *testing.T, store service.SaleStore, sessionStore session.Store) http.Handler {
	cat, err := catalog.Load("")
	require.NoError(t, err)

	if store == nil {
		repo, err := ledger.NewSQLiteRepository(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { repo.Close() })
		require.NoError(t, repo.RunMigrations("../ledger/migrations/sqlite"))
		store = repo
	}

	return NewRouter(RouterConfig{
		Catalog:  cat,
		Sessions: service.NewSessions(sessionStore, cat, nil),
		Checkout: service.NewCheckoutService(store, service.WithClock(func() time.Time { return fixedNow })),
	})
}

func do(t *testing.T, h http.Handler, method, path, sessionID string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func setQty(name string, qty int) SetQuantityRequestDTO {
	return SetQuantityRequestDTO{ProductName: name, Quantity: &qty}
}

func received(amount int64) SetReceivedRequestDTO {
	return SetReceivedRequestDTO{Amount: &amount}
}

func TestHealth(t *testing.T) {
	h := setupRouter(t, nil)

	rec := do(t, h, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGetCatalog(t *testing.T) {
	h := setupRouter(t, nil)

	rec := do(t, h, http.MethodGet, "/api/v1/catalog", "till-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[CatalogResponseDTO](t, rec)
	require.Len(t, resp.Products, 8)
	assert.Equal(t, "Baguette", resp.Products[0].Name)
	assert.Equal(t, domain.Amount(100), resp.Products[0].UnitPrice)
}

func TestCart_FullSale(t *testing.T) {
	h := setupRouter(t, nil)

	rec := do(t, h, http.MethodPut, "/api/v1/cart/items", "till-1", setQty("Baguette", 2))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodPut, "/api/v1/cart/items", "till-1", setQty("Croissant", 1))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodPut, "/api/v1/cart/received", "till-1", received(600))
	require.Equal(t, http.StatusOK, rec.Code)

	cartResp := decode[CartResponseDTO](t, rec)
	assert.Equal(t, domain.Amount(500), cartResp.Total)
	assert.Equal(t, domain.Amount(100), cartResp.Change)
	assert.True(t, cartResp.Sufficient)
	require.Len(t, cartResp.Lines, 2)
	assert.Equal(t, domain.Amount(200), cartResp.Lines[0].Subtotal)

	rec = do(t, h, http.MethodPost, "/api/v1/cart/checkout", "till-1", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	checkout := decode[CheckoutResponseDTO](t, rec)
	require.Len(t, checkout.Lines, 2)
	assert.Equal(t, domain.Amount(100), checkout.Change)
	assert.Equal(t, "2026-03-14 09:30:05", checkout.Lines[0].Timestamp)

	rec = do(t, h, http.MethodGet, "/api/v1/cart", "till-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[CartResponseDTO](t, rec).Lines)

	rec = do(t, h, http.MethodGet, "/api/v1/sales", "till-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sales := decode[SalesResponseDTO](t, rec).Sales
	require.Len(t, sales, 2)
	assert.Equal(t, "Croissant", sales[0].ProductName)
	assert.Equal(t, "Baguette", sales[1].ProductName)

	rec = do(t, h, http.MethodGet, "/api/v1/sales?limit=1", "till-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[SalesResponseDTO](t, rec).Sales, 1)
}

func TestCart_SessionsAreIsolated(t *testing.T) {
	h := setupRouter(t, nil)

	rec := do(t, h, http.MethodPut, "/api/v1/cart/items", "till-1", setQty("Brioche", 4))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/cart", "till-2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[CartResponseDTO](t, rec).Lines)
}

func TestCart_SessionCookieIssued(t *testing.T) {
	h := setupRouter(t, nil)

	rec := do(t, h, http.MethodPut, "/api/v1/cart/items", "", setQty("Baguette", 1))
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.Equal(t, cookies[0].Value, rec.Header().Get(SessionHeader))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[CartResponseDTO](t, rec).Lines, 1)
}

func TestCart_Errors(t *testing.T) {
	h := setupRouter(t, nil)

	tests := []struct {
		name       string
		method     string
		path       string
		body       interface{}
		wantStatus int
		wantCode   string
	}{
		{"unknown product", http.MethodPut, "/api/v1/cart/items", setQty("Éclair", 1), http.StatusNotFound, "unknown_product"},
		{"quantity too large", http.MethodPut, "/api/v1/cart/items", setQty("Baguette", 101), http.StatusBadRequest, "invalid_quantity"},
		{"negative quantity", http.MethodPut, "/api/v1/cart/items", setQty("Baguette", -1), http.StatusBadRequest, "invalid_quantity"},
		{"missing quantity", http.MethodPut, "/api/v1/cart/items", map[string]string{"product_name": "Baguette"}, http.StatusBadRequest, "invalid_request"},
		{"negative received", http.MethodPut, "/api/v1/cart/received", received(-5), http.StatusBadRequest, "invalid_amount"},
		{"empty checkout", http.MethodPost, "/api/v1/cart/checkout", nil, http.StatusUnprocessableEntity, "empty_cart"},
		{"bad limit", http.MethodGet, "/api/v1/sales?limit=abc", nil, http.StatusBadRequest, "invalid_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, "errors", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestCart_InvalidJSON(t *testing.T) {
	h := setupRouter(t, nil)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/cart/items", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckout_InsufficientPayment(t *testing.T) {
	h := setupRouter(t, nil)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/api/v1/cart/items", "till-1", setQty("Croissant", 2)).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/api/v1/cart/received", "till-1", received(500)).Code)

	rec := do(t, h, http.MethodPost, "/api/v1/cart/checkout", "till-1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "insufficient_payment", decode[ErrorResponse](t, rec).Code)

	rec = do(t, h, http.MethodGet, "/api/v1/cart", "till-1", nil)
	cartResp := decode[CartResponseDTO](t, rec)
	assert.Len(t, cartResp.Lines, 1)
	assert.Equal(t, domain.Amount(-100), cartResp.Change)
	assert.False(t, cartResp.Sufficient)
}

func TestCheckout_PersistenceFailureKeepsCart(t *testing.T) {
	h := setupRouter(t, failingStore{})

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/api/v1/cart/items", "till-1", setQty("Baguette", 1)).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/api/v1/cart/received", "till-1", received(100)).Code)

	rec := do(t, h, http.MethodPost, "/api/v1/cart/checkout", "till-1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "persistence_error", decode[ErrorResponse](t, rec).Code)

	rec = do(t, h, http.MethodGet, "/api/v1/cart", "till-1", nil)
	assert.Len(t, decode[CartResponseDTO](t, rec).Lines, 1)
}

func TestCheckout_SessionSaveFailureDoesNotDoubleRecord(t *testing.T) {
	memory := session.NewMemoryStore(time.Hour)
	t.Cleanup(func() { memory.Close() })
	// saves 1 and 2 fill the cart, save 3 follows the recorded sale
	h := setupRouterWithSessions(t, nil, &flakySessionStore{Store: memory, failOn: 3})

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/api/v1/cart/items", "till-1", setQty("Croissant", 2)).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/api/v1/cart/received", "till-1", received(1000)).Code)

	rec := do(t, h, http.MethodPost, "/api/v1/cart/checkout", "till-1", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	checkout := decode[CheckoutResponseDTO](t, rec)
	require.Len(t, checkout.Lines, 1)
	assert.True(t, checkout.SessionCleared)

	// the operator retries anyway
	rec = do(t, h, http.MethodPost, "/api/v1/cart/checkout", "till-1", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "empty_cart", decode[ErrorResponse](t, rec).Code)

	rec = do(t, h, http.MethodGet, "/api/v1/sales", "till-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sales := decode[SalesResponseDTO](t, rec).Sales
	require.Len(t, sales, 1)
	assert.Equal(t, "Croissant", sales[0].ProductName)
	assert.Equal(t, 2, sales[0].Quantity)
}

func TestCheckout_UnclearedSessionStillReportsSale(t *testing.T) {
	memory := session.NewMemoryStore(time.Hour)
	t.Cleanup(func() { memory.Close() })
	h := setupRouterWithSessions(t, nil, &flakySessionStore{
		Store:     memory,
		failOn:    3,
		deleteErr: errors.New("session backend unavailable"),
	})

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/api/v1/cart/items", "till-1", setQty("Baguette", 1)).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/api/v1/cart/received", "till-1", received(100)).Code)

	rec := do(t, h, http.MethodPost, "/api/v1/cart/checkout", "till-1", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	checkout := decode[CheckoutResponseDTO](t, rec)
	assert.Len(t, checkout.Lines, 1)
	assert.False(t, checkout.SessionCleared)
}

func TestReset(t *testing.T) {
	h := setupRouter(t, nil)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/api/v1/cart/items", "till-1", setQty("Baguette", 3)).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/api/v1/cart/received", "till-1", received(500)).Code)

	rec := do(t, h, http.MethodPost, "/api/v1/cart/reset", "till-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	cartResp := decode[CartResponseDTO](t, rec)
	assert.Empty(t, cartResp.Lines)
	assert.Equal(t, domain.Amount(0), cartResp.Received)
	assert.Equal(t, domain.Amount(0), cartResp.Total)
}

func TestExport(t *testing.T) {
	h := setupRouter(t, nil)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/api/v1/cart/items", "till-1", setQty("Baguette", 2)).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/api/v1/cart/received", "till-1", received(200)).Code)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/v1/cart/checkout", "till-1", nil).Code)

	rec := do(t, h, http.MethodGet, "/api/v1/sales/export", "till-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Ventes")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Baguette", rows[1][1])
}

func TestSales_StoreFailure(t *testing.T) {
	h := setupRouter(t, failingStore{})

	rec := do(t, h, http.MethodGet, "/api/v1/sales", "till-1", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/sales/export", "till-1", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := setupRouter(t, nil)
	do(t, h, http.MethodGet, "/health", "", nil)

	rec := do(t, h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pos_http_requests_total")
}
