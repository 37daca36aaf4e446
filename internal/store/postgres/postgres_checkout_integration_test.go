package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"novapos/internal/domain"
	"novapos/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	databaseURL := os.Getenv("NOVAPOS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set NOVAPOS_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestCheckoutDecrementsStockAndKeepsSnapshot(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	stamp := time.Now().UnixNano()
	productID := fmt.Sprintf("prod-it-%d", stamp)
	saleID := fmt.Sprintf("sale-it-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, saleID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
	})

	product := domain.Product{
		ID:    productID,
		Name:  "Cafe Americano",
		Cost:  decimal.RequireFromString("12.50"),
		Price: decimal.RequireFromString("35.00"),
		Stock: 4,
	}
	if _, err := s.CreateProduct(ctx, product); err != nil {
		t.Fatalf("create product: %v", err)
	}

	item := domain.SaleItem{ProductID: productID, Name: product.Name, Quantity: 3, Price: product.Price, Cost: product.Cost}
	sale := domain.Sale{
		ID:          saleID,
		Timestamp:   time.Now().UnixMilli(),
		Items:       []domain.SaleItem{item},
		TotalSales:  item.LineTotal(),
		TotalCost:   item.LineCost(),
		TotalProfit: item.LineTotal().Sub(item.LineCost()),
	}
	if _, err := s.CreateCheckout(ctx, sale); err != nil {
		t.Fatalf("checkout: %v", err)
	}

	got, err := s.GetProduct(ctx, productID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.Stock != 1 {
		t.Fatalf("expected stock 1 after checkout, got %d", got.Stock)
	}

	again := sale
	again.ID = saleID + "-again"
	if _, err := s.CreateCheckout(ctx, again); !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	if err := s.DeleteProduct(ctx, productID); err != nil {
		t.Fatalf("delete product: %v", err)
	}

	sales, err := s.ListSales(ctx)
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	var found *domain.Sale
	for i := range sales {
		if sales[i].ID == saleID {
			found = &sales[i]
		}
	}
	if found == nil {
		t.Fatalf("sale %s not found in ledger", saleID)
	}
	if len(found.Items) != 1 || found.Items[0].Name != "Cafe Americano" || found.Items[0].Quantity != 3 {
		t.Fatalf("unexpected sale items %+v", found.Items)
	}
	if !found.TotalSales.Equal(decimal.RequireFromString("105")) {
		t.Fatalf("unexpected total %s", found.TotalSales)
	}
}

func TestUpdateUnknownProduct(t *testing.T) {
	s := openTestStore(t)
	_, err := s.UpdateProduct(context.Background(), domain.Product{
		ID:   fmt.Sprintf("missing-%d", time.Now().UnixNano()),
		Name: "Ghost",
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
