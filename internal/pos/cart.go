// Package pos turns a transient cart into a committed sale.
package pos

import (
	"errors"
	"slices"

	"github.com/shopspring/decimal"

	"novapos/internal/domain"
	"novapos/internal/store"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrOutOfStock      = errors.New("product is out of stock")
	ErrStockExceeded   = errors.New("quantity exceeds available stock")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrNotInCart       = errors.New("product is not in the cart")
)

// Snapshot is the catalog view a quantity change is checked against.
type Snapshot map[string]domain.Product

func SnapshotOf(products []domain.Product) Snapshot {
	snap := make(Snapshot, len(products))
	for _, p := range products {
		snap[p.ID] = p
	}
	return snap
}

// Cart holds at most one line per product, in the order products were first
// added. Every rejected change leaves the cart untouched. A Cart is not safe
// for concurrent use.
type Cart struct {
	items []domain.SaleItem
}

func NewCart() *Cart {
	return &Cart{}
}

func (c *Cart) find(productID string) int {
	return slices.IndexFunc(c.items, func(item domain.SaleItem) bool {
		return item.ProductID == productID
	})
}

// Add puts one unit of p in the cart. Name, price and cost are copied the
// first time the product is added and are not refreshed afterwards.
func (c *Cart) Add(p domain.Product) error {
	if i := c.find(p.ID); i >= 0 {
		if c.items[i].Quantity+1 > p.Stock {
			return ErrStockExceeded
		}
		c.items[i].Quantity++
		return nil
	}
	if p.Stock <= 0 {
		return ErrOutOfStock
	}
	c.items = append(c.items, domain.SaleItem{
		ProductID: p.ID,
		Name:      p.Name,
		Quantity:  1,
		Price:     p.Price,
		Cost:      p.Cost,
	})
	return nil
}

// UpdateQuantity adjusts a line by delta. The result must stay between 1 and
// the product's current stock; a line is never removed by reaching zero.
func (c *Cart) UpdateQuantity(productID string, delta int, snap Snapshot) error {
	i := c.find(productID)
	if i < 0 {
		return ErrNotInCart
	}
	p, ok := snap[productID]
	if !ok {
		return store.ErrNotFound
	}
	next := c.items[i].Quantity + delta
	if next <= 0 {
		return ErrInvalidQuantity
	}
	if next > p.Stock {
		return ErrStockExceeded
	}
	c.items[i].Quantity = next
	return nil
}

// Remove drops the line for productID. Unknown ids are ignored.
func (c *Cart) Remove(productID string) {
	if i := c.find(productID); i >= 0 {
		c.items = slices.Delete(c.items, i, i+1)
	}
}

func (c *Cart) Lines() []domain.SaleItem {
	return slices.Clone(c.items)
}

func (c *Cart) Len() int {
	return len(c.items)
}

func (c *Cart) Totals() domain.Totals {
	return ComputeTotals(c.items)
}

func (c *Cart) Reset() {
	c.items = nil
}

func ComputeTotals(items []domain.SaleItem) domain.Totals {
	sales := decimal.Zero
	cost := decimal.Zero
	for _, item := range items {
		sales = sales.Add(item.LineTotal())
		cost = cost.Add(item.LineCost())
	}
	return domain.Totals{
		TotalSales:  sales,
		TotalCost:   cost,
		TotalProfit: sales.Sub(cost),
	}
}
