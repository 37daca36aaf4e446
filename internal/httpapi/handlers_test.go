package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"novapos/internal/domain"
	"novapos/internal/service"
	"novapos/internal/store/memory"
)

const (
	testEmail    = "owner@shop.test"
	testPassword = "s3cret-pass"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	svc := service.New(memory.New(), nil, service.Options{Location: time.UTC})
	auth, err := NewAuthManager("test-secret-key", time.Hour, testEmail, mustHashPassword(t, testPassword))
	require.NoError(t, err)

	return New(svc, auth, "*", nil)
}

// mustHashPassword generates a bcrypt hash of the given password or fails the test.
func mustHashPassword(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hash)
}

type client struct {
	t       *testing.T
	handler http.Handler
	token   string
}

func newClient(t *testing.T) *client {
	t.Helper()
	c := &client{t: t, handler: newTestAPI(t).Handler()}

	var login domain.LoginResponse
	res := c.do(http.MethodPost, "/api/v1/auth/login", domain.LoginRequest{Email: testEmail, Password: testPassword}, &login)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	c.token = login.AccessToken
	return c
}

func (c *client) do(method, path string, body any, out any) *httptest.ResponseRecorder {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec
}

func (c *client) addProduct(name string, cost, price string, stock int) domain.Product {
	c.t.Helper()
	var resp struct {
		Product domain.Product `json:"product"`
	}
	res := c.do(http.MethodPost, "/api/v1/products", map[string]any{
		"name":  name,
		"cost":  json.Number(cost),
		"price": json.Number(price),
		"stock": stock,
	}, &resp)
	require.Equal(c.t, http.StatusCreated, res.Code, res.Body.String())
	return resp.Product
}

type cartResponse struct {
	Cart domain.CartView `json:"cart"`
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLoginWrongPassword(t *testing.T) {
	c := &client{t: t, handler: newTestAPI(t).Handler()}
	res := c.do(http.MethodPost, "/api/v1/auth/login", domain.LoginRequest{Email: testEmail, Password: "nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestProductCRUD(t *testing.T) {
	c := newClient(t)
	p := c.addProduct("Espresso", "0.90", "2.50", 12)
	assert.NotEmpty(t, p.ID)

	res := c.do(http.MethodPost, "/api/v1/products", map[string]any{"name": "", "cost": 1, "price": 1, "stock": 1}, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = c.do(http.MethodPost, "/api/v1/products", map[string]any{"name": "X", "sku": "nope"}, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code, "unknown fields are rejected")

	var updated struct {
		Product domain.Product `json:"product"`
	}
	res = c.do(http.MethodPut, "/api/v1/products/"+p.ID, map[string]any{
		"name": "Double Espresso", "cost": 1.5, "price": 3.75, "stock": 8, "category": "Coffee",
	}, &updated)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	assert.Equal(t, "Double Espresso", updated.Product.Name)
	assert.True(t, updated.Product.Price.Equal(decimal.RequireFromString("3.75")))

	res = c.do(http.MethodPut, "/api/v1/products/missing", map[string]any{"name": "X", "cost": 1, "price": 1, "stock": 1}, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)

	var list struct {
		Products []domain.Product `json:"products"`
	}
	res = c.do(http.MethodGet, "/api/v1/products?q=double", nil, &list)
	require.Equal(t, http.StatusOK, res.Code)
	require.Len(t, list.Products, 1)
	assert.Equal(t, "Coffee", list.Products[0].Category)

	res = c.do(http.MethodGet, "/api/v1/products?in_stock=true", nil, &list)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Len(t, list.Products, 1)
	res = c.do(http.MethodGet, "/api/v1/products?in_stock=yes", nil, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "in_stock")

	res = c.do(http.MethodPost, "/api/v1/products", map[string]any{"name": "Mint", "cost": 0.1, "price": 0.125, "stock": 1}, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code, "prices carry at most two decimal places")

	res = c.do(http.MethodDelete, "/api/v1/products/"+p.ID, nil, nil)
	assert.Equal(t, http.StatusNoContent, res.Code)
	res = c.do(http.MethodDelete, "/api/v1/products/"+p.ID, nil, nil)
	assert.Equal(t, http.StatusNoContent, res.Code, "delete is idempotent")
	res = c.do(http.MethodGet, "/api/v1/products/"+p.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestCartCheckoutFlow(t *testing.T) {
	c := newClient(t)
	coffee := c.addProduct("Coffee", "1.20", "3.50", 2)
	muffin := c.addProduct("Muffin", "0.75", "2.00", 0)

	var opened cartResponse
	res := c.do(http.MethodPost, "/api/v1/carts", nil, &opened)
	require.Equal(t, http.StatusCreated, res.Code)
	cartPath := "/api/v1/carts/" + opened.Cart.ID

	res = c.do(http.MethodPost, cartPath+"/checkout", nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code, "empty cart")

	res = c.do(http.MethodPost, cartPath+"/items", domain.AddCartItemRequest{ProductID: muffin.ID}, nil)
	assert.Equal(t, http.StatusConflict, res.Code, "out of stock")

	res = c.do(http.MethodPost, cartPath+"/items", domain.AddCartItemRequest{ProductID: "ghost"}, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)

	var cart cartResponse
	res = c.do(http.MethodPost, cartPath+"/items", domain.AddCartItemRequest{ProductID: coffee.ID}, &cart)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	res = c.do(http.MethodPatch, cartPath+"/items/"+coffee.ID, domain.UpdateCartItemRequest{Delta: 5}, nil)
	assert.Equal(t, http.StatusConflict, res.Code)
	res = c.do(http.MethodPatch, cartPath+"/items/"+coffee.ID, domain.UpdateCartItemRequest{Delta: -1}, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = c.do(http.MethodPatch, cartPath+"/items/"+coffee.ID, domain.UpdateCartItemRequest{Delta: 1}, &cart)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, 2, cart.Cart.Items[0].Quantity)
	assert.True(t, cart.Cart.Totals.TotalSales.Equal(decimal.NewFromInt(7)))

	var checkout struct {
		Sale domain.Sale `json:"sale"`
	}
	res = c.do(http.MethodPost, cartPath+"/checkout", nil, &checkout)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	assert.True(t, checkout.Sale.TotalProfit.Equal(decimal.RequireFromString("4.6")))

	var sales struct {
		Sales []domain.Sale `json:"sales"`
	}
	res = c.do(http.MethodGet, "/api/v1/sales?order=desc", nil, &sales)
	require.Equal(t, http.StatusOK, res.Code)
	require.Len(t, sales.Sales, 1)
	assert.Equal(t, checkout.Sale.ID, sales.Sales[0].ID)

	res = c.do(http.MethodGet, "/api/v1/sales?order=sideways", nil, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = c.do(http.MethodDelete, cartPath, nil, nil)
	assert.Equal(t, http.StatusNoContent, res.Code)
	res = c.do(http.MethodGet, cartPath, nil, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestAnalyticsEndpoints(t *testing.T) {
	c := newClient(t)
	tea := c.addProduct("Tea", "1", "4", 3)

	var opened cartResponse
	c.do(http.MethodPost, "/api/v1/carts", nil, &opened)
	cartPath := "/api/v1/carts/" + opened.Cart.ID
	c.do(http.MethodPost, cartPath+"/items", domain.AddCartItemRequest{ProductID: tea.ID}, nil)
	res := c.do(http.MethodPost, cartPath+"/checkout", nil, nil)
	require.Equal(t, http.StatusCreated, res.Code)

	var summary struct {
		Summary domain.Summary `json:"summary"`
	}
	res = c.do(http.MethodGet, "/api/v1/analytics/summary", nil, &summary)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, 1, summary.Summary.SaleCount)
	assert.True(t, summary.Summary.MarginPct.Equal(decimal.NewFromInt(75)))

	var daily struct {
		Days []domain.DailyPoint `json:"days"`
	}
	res = c.do(http.MethodGet, "/api/v1/analytics/daily?days=3", nil, &daily)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Len(t, daily.Days, 3)
	assert.True(t, daily.Days[2].Sales.Equal(decimal.NewFromInt(4)))

	var rawDaily struct {
		Days []map[string]any `json:"days"`
	}
	c.do(http.MethodGet, "/api/v1/analytics/daily?days=1", nil, &rawDaily)
	require.Len(t, rawDaily.Days, 1)
	assert.Contains(t, rawDaily.Days[0], "sales")
	assert.Contains(t, rawDaily.Days[0], "profit")
	assert.NotContains(t, rawDaily.Days[0], "revenue")

	res = c.do(http.MethodGet, "/api/v1/analytics/daily?days=abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	var top struct {
		Products []domain.TopProduct `json:"products"`
	}
	res = c.do(http.MethodGet, "/api/v1/analytics/top-products", nil, &top)
	require.Equal(t, http.StatusOK, res.Code)
	require.Len(t, top.Products, 1)
	assert.Equal(t, "Tea", top.Products[0].Name)

	var low struct {
		Products []domain.LowStockItem `json:"products"`
	}
	res = c.do(http.MethodGet, "/api/v1/analytics/low-stock", nil, &low)
	require.Equal(t, http.StatusOK, res.Code)
	require.Len(t, low.Products, 1)
	assert.Equal(t, domain.DefaultCategory, low.Products[0].Category)

	var adv struct {
		Advice domain.Advice `json:"advice"`
	}
	res = c.do(http.MethodGet, "/api/v1/analytics/advice", nil, &adv)
	require.Equal(t, http.StatusOK, res.Code)
	assert.NotEmpty(t, adv.Advice.Text)

	res = c.do(http.MethodGet, "/api/v1/reports/sales.xlsx", nil, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, xlsxContentType, res.Header().Get("Content-Type"))
	assert.Contains(t, res.Header().Get("Content-Disposition"), "novapos-sales-")
	assert.Positive(t, res.Body.Len())
}

func TestUnknownRouteAndMethod(t *testing.T) {
	c := newClient(t)
	res := c.do(http.MethodGet, "/api/v1/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
	res = c.do(http.MethodPatch, "/api/v1/sales", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, res.Code)
}
