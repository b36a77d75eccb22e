package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/backoffice/internal/domain/auth"
	"github.com/xenking/backoffice/internal/domain/client"
	"github.com/xenking/backoffice/internal/domain/inventory"
	"github.com/xenking/backoffice/internal/domain/order"
	"github.com/xenking/backoffice/internal/domain/product"
	"github.com/xenking/backoffice/internal/domain/report"
)

// --- In-memory repositories backing the full handler stack ---

type memClients struct {
	mu   sync.Mutex
	byID map[string]*client.Client
}

func newMemClients() *memClients { return &memClients{byID: make(map[string]*client.Client)} }

func (m *memClients) Create(_ context.Context, c *client.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *memClients) GetByID(_ context.Context, id string) (*client.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, client.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memClients) List(_ context.Context, limit, offset int) ([]client.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.byID))
	for id := range m.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []client.Client
	for i := offset; i < len(ids) && len(out) < limit; i++ {
		out = append(out, *m.byID[ids[i]])
	}
	return out, nil
}

func (m *memClients) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID), nil
}

func (m *memClients) Update(_ context.Context, c *client.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[c.ID]; !ok {
		return client.ErrNotFound
	}
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *memClients) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return client.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type memProducts struct {
	mu   sync.Mutex
	byID map[string]*product.Product
}

func newMemProducts() *memProducts { return &memProducts{byID: make(map[string]*product.Product)} }

func (m *memProducts) Create(_ context.Context, p *product.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *memProducts) GetByID(_ context.Context, id string) (*product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProducts) List(_ context.Context, limit, offset int) ([]product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.byID))
	for id := range m.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []product.Product
	for i := offset; i < len(ids) && len(out) < limit; i++ {
		out = append(out, *m.byID[ids[i]])
	}
	return out, nil
}

func (m *memProducts) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID), nil
}

func (m *memProducts) Update(_ context.Context, p *product.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[p.ID]; !ok {
		return product.ErrNotFound
	}
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *memProducts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return product.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memProducts) UpdateStock(_ context.Context, id string, stock int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return product.ErrNotFound
	}
	p.Stock = stock
	return nil
}

type memOrders struct {
	mu   sync.Mutex
	byID map[string]*order.Order
	ids  []string
}

func newMemOrders() *memOrders { return &memOrders{byID: make(map[string]*order.Order)} }

func (m *memOrders) Create(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.byID[o.ID] = &cp
	m.ids = append(m.ids, o.ID)
	return nil
}

func (m *memOrders) GetByID(_ context.Context, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) Update(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[o.ID]; !ok {
		return order.ErrNotFound
	}
	cp := *o
	m.byID[o.ID] = &cp
	return nil
}

func (m *memOrders) List(_ context.Context, limit, offset int) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []order.Order
	for i := offset; i < len(m.ids) && len(out) < limit; i++ {
		out = append(out, *m.byID[m.ids[i]])
	}
	return out, nil
}

func (m *memOrders) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ids), nil
}

func (m *memOrders) ListByPlacedRange(_ context.Context, from, to time.Time, _ order.RangeFilter) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []order.Order
	for _, id := range m.ids {
		o := m.byID[id]
		if !o.PlacedAt.Before(from) && o.PlacedAt.Before(to) {
			out = append(out, *o)
		}
	}
	return out, nil
}

// --- Test server ---

type fixture struct {
	srv      *httptest.Server
	clients  *memClients
	products *memProducts
}

func passthrough(next http.Handler) http.Handler { return next }

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clients := newMemClients()
	products := newMemProducts()
	orders := newMemOrders()

	ledger := inventory.NewLedger(products)
	orderSvc := order.NewService(clients, ledger, orders)
	reportSvc := report.NewService(orders, clients, products)

	h := NewHandler(clients, products, orderSvc, reportSvc)
	srv := httptest.NewServer(h.Routes(passthrough))
	t.Cleanup(srv.Close)

	return &fixture{srv: srv, clients: clients, products: products}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.srv.URL+path, &buf)
	require.NoError(t, err)

	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (f *fixture) seedClient(t *testing.T, name string) string {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/clients", clientRequest{Name: name})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[clientResponse](t, resp).ID
}

func (f *fixture) seedProduct(t *testing.T, name, price string, stock int) string {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/products", productRequest{
		Name:  name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[productResponse](t, resp).ID
}

func (f *fixture) productStock(t *testing.T, id string) int {
	t.Helper()
	resp := f.do(t, http.MethodGet, "/products/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decode[productResponse](t, resp).Stock
}

// --- Clients ---

func TestClientCRUD(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/clients", clientRequest{
		Name:  "Ada Lovelace",
		Email: "ada@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[clientResponse](t, resp)
	require.NotEmpty(t, created.ID)

	resp = f.do(t, http.MethodGet, "/clients/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[clientResponse](t, resp)
	assert.Equal(t, "Ada Lovelace", got.Name)
	assert.Equal(t, "ada@example.com", got.Email)

	resp = f.do(t, http.MethodPut, "/clients/"+created.ID, clientRequest{Name: "Ada King"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ada King", decode[clientResponse](t, resp).Name)

	resp = f.do(t, http.MethodGet, "/clients", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[clientPageResponse](t, resp)
	assert.Equal(t, 1, page.TotalCount)

	resp = f.do(t, http.MethodDelete, "/clients/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/clients/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateClient_NameRequired(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/clients", clientRequest{Email: "x@example.com"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

// --- Products ---

func TestProductCRUD(t *testing.T) {
	f := newFixture(t)

	id := f.seedProduct(t, "Widget", "9.99", 25)

	resp := f.do(t, http.MethodGet, "/products/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[productResponse](t, resp)
	assert.Equal(t, "Widget", got.Name)
	assert.Equal(t, 25, got.Stock)
	assert.True(t, decimal.RequireFromString("9.99").Equal(got.Price))

	resp = f.do(t, http.MethodPut, "/products/"+id, productRequest{
		Name:  "Widget v2",
		Price: decimal.RequireFromString("12.50"),
		Stock: 30,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 30, decode[productResponse](t, resp).Stock)

	resp = f.do(t, http.MethodDelete, "/products/"+id, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodDelete, "/products/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateProduct_Validation(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/products", productRequest{
		Name:  "Widget",
		Price: decimal.RequireFromString("-1"),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/products", productRequest{
		Name:  "Widget",
		Stock: -5,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

// --- Orders ---

func TestCreateOrder(t *testing.T) {
	f := newFixture(t)
	clientID := f.seedClient(t, "Ada")
	productID := f.seedProduct(t, "Widget", "10.00", 10)

	resp := f.do(t, http.MethodPost, "/orders", orderRequest{
		ClientID: clientID,
		Lines:    []orderLineRequest{{ProductID: productID, Quantity: 5}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	o := decode[orderResponse](t, resp)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.True(t, decimal.RequireFromString("50.00").Equal(o.Total))
	assert.Equal(t, 5, f.productStock(t, productID))
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	f := newFixture(t)
	clientID := f.seedClient(t, "Ada")
	productID := f.seedProduct(t, "Widget", "10.00", 3)

	resp := f.do(t, http.MethodPost, "/orders", orderRequest{
		ClientID: clientID,
		Lines:    []orderLineRequest{{ProductID: productID, Quantity: 4}},
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, 3, f.productStock(t, productID))
}

func TestCreateOrder_InvalidQuantity(t *testing.T) {
	f := newFixture(t)
	clientID := f.seedClient(t, "Ada")
	productID := f.seedProduct(t, "Widget", "10.00", 3)

	resp := f.do(t, http.MethodPost, "/orders", orderRequest{
		ClientID: clientID,
		Lines:    []orderLineRequest{{ProductID: productID, Quantity: -1}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestCreateOrder_UnknownClient(t *testing.T) {
	f := newFixture(t)
	productID := f.seedProduct(t, "Widget", "10.00", 3)

	resp := f.do(t, http.MethodPost, "/orders", orderRequest{
		ClientID: "ghost",
		Lines:    []orderLineRequest{{ProductID: productID, Quantity: 1}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	f := newFixture(t)
	clientID := f.seedClient(t, "Ada")

	resp := f.do(t, http.MethodPost, "/orders", orderRequest{
		ClientID: clientID,
		Lines:    []orderLineRequest{{ProductID: "ghost", Quantity: 1}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestCreateOrder_BadBody(t *testing.T) {
	f := newFixture(t)

	req, err := http.NewRequest(http.MethodPost, f.srv.URL+"/orders", strings.NewReader("{"))
	require.NoError(t, err)
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReviseOrder(t *testing.T) {
	f := newFixture(t)
	clientID := f.seedClient(t, "Ada")
	productID := f.seedProduct(t, "Widget", "10.00", 10)

	resp := f.do(t, http.MethodPost, "/orders", orderRequest{
		ClientID: clientID,
		Lines:    []orderLineRequest{{ProductID: productID, Quantity: 5}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[orderResponse](t, resp)

	resp = f.do(t, http.MethodPut, "/orders/"+created.ID, orderRequest{
		ClientID: clientID,
		Lines:    []orderLineRequest{{ProductID: productID, Quantity: 2}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	revised := decode[orderResponse](t, resp)
	assert.True(t, decimal.RequireFromString("20.00").Equal(revised.Total))
	assert.Equal(t, 8, f.productStock(t, productID))
}

func TestCancelOrder(t *testing.T) {
	f := newFixture(t)
	clientID := f.seedClient(t, "Ada")
	productID := f.seedProduct(t, "Widget", "10.00", 10)

	resp := f.do(t, http.MethodPost, "/orders", orderRequest{
		ClientID: clientID,
		Lines:    []orderLineRequest{{ProductID: productID, Quantity: 4}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[orderResponse](t, resp)

	resp = f.do(t, http.MethodPost, "/orders/"+created.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	canceled := decode[orderResponse](t, resp)
	assert.Equal(t, order.StatusCanceled, canceled.Status)
	assert.True(t, created.Total.Equal(canceled.Total))
	assert.Equal(t, 10, f.productStock(t, productID))

	resp = f.do(t, http.MethodPost, "/orders/"+created.ID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestGetOrder_NotFound(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/orders/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListOrders(t *testing.T) {
	f := newFixture(t)
	clientID := f.seedClient(t, "Ada")
	productID := f.seedProduct(t, "Widget", "10.00", 100)

	for range 3 {
		resp := f.do(t, http.MethodPost, "/orders", orderRequest{
			ClientID: clientID,
			Lines:    []orderLineRequest{{ProductID: productID, Quantity: 1}},
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := f.do(t, http.MethodGet, "/orders?page=1&pageSize=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[orderPageResponse](t, resp)
	assert.Len(t, page.Orders, 2)
	assert.Equal(t, 3, page.TotalCount)
}

// --- Reports ---

func TestSalesReport(t *testing.T) {
	f := newFixture(t)
	clientID := f.seedClient(t, "Ada")
	productID := f.seedProduct(t, "Widget", "10.00", 10)

	resp := f.do(t, http.MethodPost, "/orders", orderRequest{
		ClientID: clientID,
		Lines:    []orderLineRequest{{ProductID: productID, Quantity: 2}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	start := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	end := time.Now().UTC().Add(time.Hour).Format(time.RFC3339)

	resp = f.do(t, http.MethodGet, "/reports/sales?start="+start+"&end="+end, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rows := decode[[]reportRowResponse](t, resp)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ada", rows[0].ClientName)
	require.Len(t, rows[0].Lines, 1)
	assert.Equal(t, "Widget", rows[0].Lines[0].ProductName)
}

func TestSalesReport_ConflictingFilters(t *testing.T) {
	f := newFixture(t)

	start := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	end := time.Now().UTC().Add(time.Hour).Format(time.RFC3339)

	resp := f.do(t, http.MethodGet,
		"/reports/sales?start="+start+"&end="+end+"&clientId=c1&clientName=Ada", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSalesReport_BadRange(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/reports/sales?start=not-a-date&end=also-not", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	start := time.Now().UTC().Format(time.RFC3339)
	resp = f.do(t, http.MethodGet, "/reports/sales?start="+start+"&end="+start, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "empty range rejected")
}

func TestFinancialReport(t *testing.T) {
	f := newFixture(t)
	clientID := f.seedClient(t, "Ada")
	productID := f.seedProduct(t, "Widget", "10.00", 10)

	resp := f.do(t, http.MethodPost, "/orders", orderRequest{
		ClientID: clientID,
		Lines:    []orderLineRequest{{ProductID: productID, Quantity: 3}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	start := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	end := time.Now().UTC().Add(time.Hour).Format(time.RFC3339)

	resp = f.do(t, http.MethodGet, "/reports/financial?start="+start+"&end="+end, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sum := decode[financialResponse](t, resp)
	assert.True(t, decimal.RequireFromString("30.00").Equal(sum.TotalRevenue))
	assert.True(t, sum.TotalExpenses.IsZero())
	assert.True(t, sum.TotalRevenue.Equal(sum.NetProfit))
}

// --- Auth ---

type stubAPIKeys struct {
	byHash map[string]*auth.APIKeyInfo
}

func (s *stubAPIKeys) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	info, ok := s.byHash[hash]
	if !ok {
		return nil, client.ErrNotFound
	}
	return info, nil
}

func TestAPIKeyAuth(t *testing.T) {
	pepper := []byte("test-pepper")
	const rawKey = "backoffice-test-key"

	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(rawKey))
	hash := hex.EncodeToString(mac.Sum(nil))

	keys := &stubAPIKeys{byHash: map[string]*auth.APIKeyInfo{
		hash: {ID: "k1", KeyHash: hash, Name: "test"},
	}}

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := APIKeyAuth(keys, pepper)(next)

	t.Run("valid key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(APIKeyHeader, rawKey)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("missing key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(APIKeyHeader, "wrong-key")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
