package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"novapos/internal/domain"
)

// MoneyPlaces is the number of decimal places a price or cost may carry.
// PostgreSQL stores money as NUMERIC(14,2).
const MoneyPlaces = 2

var maxMoney = decimal.New(1, 12)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidInput      = errors.New("invalid input")
)

// ValidationError reports a rejected field. It matches ErrInvalidInput.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Repository owns the catalog and the sales ledger.
//
// CreateCheckout is the only ledger mutator: it appends the sale and
// decrements stock for every line as one unit, re-checking stock first.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	ListSales(ctx context.Context) ([]domain.Sale, error)
	CreateCheckout(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
}

// ValidateProduct checks the catalog field rules shared by every backend.
func ValidateProduct(p domain.Product) error {
	switch {
	case p.ID == "":
		return &ValidationError{Field: "id", Reason: "is required"}
	case p.Name == "":
		return &ValidationError{Field: "name", Reason: "is required"}
	case p.Stock < 0:
		return &ValidationError{Field: "stock", Reason: "must not be negative"}
	}
	if err := validateMoney("cost", p.Cost); err != nil {
		return err
	}
	return validateMoney("price", p.Price)
}

func validateMoney(field string, d decimal.Decimal) error {
	switch {
	case d.IsNegative():
		return &ValidationError{Field: field, Reason: "must not be negative"}
	case !d.Equal(d.Round(MoneyPlaces)):
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must have at most %d decimal places", MoneyPlaces)}
	case d.GreaterThanOrEqual(maxMoney):
		return &ValidationError{Field: field, Reason: "is too large"}
	}
	return nil
}

// ValidateSale rejects sales that could never be committed.
func ValidateSale(s domain.Sale) error {
	if s.ID == "" {
		return &ValidationError{Field: "id", Reason: "is required"}
	}
	if len(s.Items) == 0 {
		return &ValidationError{Field: "items", Reason: "must not be empty"}
	}
	for _, item := range s.Items {
		if item.ProductID == "" {
			return &ValidationError{Field: "items.productId", Reason: "is required"}
		}
		if item.Quantity < 1 {
			return &ValidationError{Field: "items.quantity", Reason: "must be at least 1"}
		}
		if err := validateMoney("items.price", item.Price); err != nil {
			return err
		}
		if err := validateMoney("items.cost", item.Cost); err != nil {
			return err
		}
	}
	return nil
}

// DemandByProduct sums line quantities per product id.
func DemandByProduct(items []domain.SaleItem) map[string]int {
	out := make(map[string]int, len(items))
	for _, item := range items {
		out[item.ProductID] += item.Quantity
	}
	return out
}
