// Package memory implements store.Repository over the products and sales
// records of a kv.Store. Nothing is cached between calls: every read decodes
// the current records and every mutation reloads them inside kv.Store.Update,
// so several processes can share one backend without losing writes.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"novapos/internal/domain"
	"novapos/internal/kv"
	"novapos/internal/store"
)

type Store struct {
	backend kv.Store
	logger  *zap.Logger
}

// New returns an empty store backed by process memory only.
func New() *Store {
	return &Store{backend: kv.NewMemStore(), logger: zap.NewNop()}
}

// Open checks that the records in backend decode. Missing records start
// empty.
func Open(ctx context.Context, backend kv.Store, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	products, err := loadProducts(ctx, backend)
	if err != nil {
		return nil, err
	}
	sales, err := loadRecord[domain.Sale](ctx, backend, kv.Sales)
	if err != nil {
		return nil, err
	}

	logger.Info("opened records",
		zap.Int("products", len(products)),
		zap.Int("sales", len(sales)),
	)
	return &Store{backend: backend, logger: logger}, nil
}

type reader interface {
	Get(ctx context.Context, name string) ([]byte, error)
}

func loadRecord[T any](ctx context.Context, r reader, name string) ([]T, error) {
	data, err := r.Get(ctx, name)
	if errors.Is(err, kv.ErrNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("memory: load %s: %w", name, err)
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("memory: decode %s: %w", name, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func loadProducts(ctx context.Context, r reader) ([]domain.Product, error) {
	products, err := loadRecord[domain.Product](ctx, r, kv.Products)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(products))
	for _, p := range products {
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("memory: %s record has duplicate id %q", kv.Products, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return products, nil
}

func put(tx kv.Tx, name string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("memory: encode %s: %w", name, err)
	}
	tx.Set(name, payload)
	return nil
}

func indexOf(products []domain.Product, id string) int {
	return slices.IndexFunc(products, func(p domain.Product) bool { return p.ID == id })
}

func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return loadProducts(ctx, s.backend)
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	products, err := loadProducts(ctx, s.backend)
	if err != nil {
		return nil, err
	}
	i := indexOf(products, id)
	if i < 0 {
		return nil, store.ErrNotFound
	}
	return &products[i], nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	products, err := loadProducts(ctx, s.backend)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if i := indexOf(products, id); i >= 0 {
			out[id] = products[i]
		}
	}
	return out, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if err := store.ValidateProduct(product); err != nil {
		return nil, err
	}

	err := s.backend.Update(ctx, []string{kv.Products}, func(tx kv.Tx) error {
		products, err := loadProducts(ctx, tx)
		if err != nil {
			return err
		}
		if indexOf(products, product.ID) >= 0 {
			return &store.ValidationError{Field: "id", Reason: "already exists"}
		}
		return put(tx, kv.Products, append(products, product))
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if err := store.ValidateProduct(product); err != nil {
		return nil, err
	}

	err := s.backend.Update(ctx, []string{kv.Products}, func(tx kv.Tx) error {
		products, err := loadProducts(ctx, tx)
		if err != nil {
			return err
		}
		i := indexOf(products, product.ID)
		if i < 0 {
			return store.ErrNotFound
		}
		products[i] = product
		return put(tx, kv.Products, products)
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// DeleteProduct is idempotent. Sales that reference the product keep their
// snapshotted lines.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	return s.backend.Update(ctx, []string{kv.Products}, func(tx kv.Tx) error {
		products, err := loadProducts(ctx, tx)
		if err != nil {
			return err
		}
		i := indexOf(products, id)
		if i < 0 {
			return nil
		}
		return put(tx, kv.Products, slices.Delete(products, i, i+1))
	})
}

func (s *Store) ListSales(ctx context.Context) ([]domain.Sale, error) {
	return loadRecord[domain.Sale](ctx, s.backend, kv.Sales)
}

// CreateCheckout re-checks stock against the current products record and
// writes both records in one update.
func (s *Store) CreateCheckout(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if err := store.ValidateSale(sale); err != nil {
		return nil, err
	}
	committed := cloneSale(sale)

	err := s.backend.Update(ctx, []string{kv.Products, kv.Sales}, func(tx kv.Tx) error {
		products, err := loadProducts(ctx, tx)
		if err != nil {
			return err
		}
		for productID, qty := range store.DemandByProduct(sale.Items) {
			i := indexOf(products, productID)
			if i < 0 {
				return fmt.Errorf("product %s: %w", productID, store.ErrNotFound)
			}
			remaining := products[i].Stock - qty
			if remaining < 0 {
				return fmt.Errorf("product %s: %w", productID, store.ErrInsufficientStock)
			}
			products[i].Stock = remaining
		}

		sales, err := loadRecord[domain.Sale](ctx, tx, kv.Sales)
		if err != nil {
			return err
		}
		if slices.ContainsFunc(sales, func(s domain.Sale) bool { return s.ID == sale.ID }) {
			return &store.ValidationError{Field: "id", Reason: "already exists"}
		}

		if err := put(tx, kv.Products, products); err != nil {
			return err
		}
		return put(tx, kv.Sales, append(sales, committed))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("sale appended", zap.String("sale_id", sale.ID), zap.Int("lines", len(sale.Items)))
	out := cloneSale(committed)
	return &out, nil
}

func cloneSale(src domain.Sale) domain.Sale {
	dup := src
	dup.Items = slices.Clone(src.Items)
	return dup
}
