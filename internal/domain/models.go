package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCategory is shown for products saved without a category.
const DefaultCategory = "General"

func init() {
	// Persisted records carry money as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Cost     decimal.Decimal `json:"cost"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	Category string          `json:"category,omitempty"`
}

func (p Product) DisplayCategory() string {
	if p.Category == "" {
		return DefaultCategory
	}
	return p.Category
}

// UnitMargin is price minus cost for a single unit.
func (p Product) UnitMargin() decimal.Decimal {
	return p.Price.Sub(p.Cost)
}

type ProductInput struct {
	Name     string          `json:"name"`
	Cost     decimal.Decimal `json:"cost"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	Category string          `json:"category,omitempty"`
}

func (in ProductInput) WithID(id string) Product {
	return Product{
		ID:       id,
		Name:     in.Name,
		Cost:     in.Cost,
		Price:    in.Price,
		Stock:    in.Stock,
		Category: in.Category,
	}
}

type SaleItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Cost      decimal.Decimal `json:"cost"`
}

func (i SaleItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i SaleItem) LineCost() decimal.Decimal {
	return i.Cost.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Sale struct {
	ID          string          `json:"id"`
	Timestamp   int64           `json:"timestamp"`
	Items       []SaleItem      `json:"items"`
	TotalSales  decimal.Decimal `json:"totalSales"`
	TotalCost   decimal.Decimal `json:"totalCost"`
	TotalProfit decimal.Decimal `json:"totalProfit"`
}

// Time converts the millisecond timestamp.
func (s Sale) Time() time.Time {
	return time.UnixMilli(s.Timestamp)
}

func (s Sale) ItemCount() int {
	n := 0
	for _, item := range s.Items {
		n += item.Quantity
	}
	return n
}

type Totals struct {
	TotalSales  decimal.Decimal `json:"totalSales"`
	TotalCost   decimal.Decimal `json:"totalCost"`
	TotalProfit decimal.Decimal `json:"totalProfit"`
}

type Summary struct {
	Revenue        decimal.Decimal `json:"revenue"`
	Cost           decimal.Decimal `json:"cost"`
	Profit         decimal.Decimal `json:"profit"`
	MarginPct      decimal.Decimal `json:"marginPct"`
	SaleCount      int             `json:"saleCount"`
	InventoryValue decimal.Decimal `json:"inventoryValue"`
}

// BusinessSummary is the payload handed to the advisory text client.
type BusinessSummary struct {
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
	TotalCost       decimal.Decimal `json:"totalCost"`
	TotalProfit     decimal.Decimal `json:"totalProfit"`
	TotalSalesCount int             `json:"totalSalesCount"`
	ProfitMargin    decimal.Decimal `json:"profitMargin"`
}

type DailyPoint struct {
	Date   string          `json:"date"`
	Label  string          `json:"label"`
	Sales  decimal.Decimal `json:"sales"`
	Profit decimal.Decimal `json:"profit"`
}

type TopProduct struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

type LowStockItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Stock     int    `json:"stock"`
}

type Advice struct {
	Text        string    `json:"text"`
	GeneratedAt time.Time `json:"generatedAt"`
	Cached      bool      `json:"cached"`
}

type CartView struct {
	ID     string     `json:"id"`
	Items  []SaleItem `json:"items"`
	Totals Totals     `json:"totals"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Email       string    `json:"email"`
}

type AddCartItemRequest struct {
	ProductID string `json:"productId"`
}

type UpdateCartItemRequest struct {
	Delta int `json:"delta"`
}
