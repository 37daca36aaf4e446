package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"novapos/internal/domain"
	"novapos/internal/store"
)

//go:embed schema.sql
var schema string

const checkoutAttempts = 3

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Migrate creates the tables when they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Cost, &p.Price, &p.Stock, &p.Category)
	return p, err
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, cost, price, stock, category
		FROM products
		ORDER BY seq
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `
		SELECT id, name, cost, price, stock, category
		FROM products
		WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	out := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, cost, price, stock, category
		FROM products
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if err := store.ValidateProduct(product); err != nil {
		return nil, err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, cost, price, stock, category, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
	`, product.ID, product.Name, product.Cost, product.Price, product.Stock, product.Category)
	if isUniqueViolation(err) {
		return nil, &store.ValidationError{Field: "id", Reason: "already exists"}
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if err := store.ValidateProduct(product); err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, cost = $3, price = $4, stock = $5, category = $6, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Name, product.Cost, product.Price, product.Stock, product.Category)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return &product, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	return err
}

func (s *Store) ListSales(ctx context.Context) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, total_sales, total_cost, total_profit
		FROM sales
		ORDER BY seq
	`)
	if err != nil {
		return nil, err
	}

	sales := make([]domain.Sale, 0, 128)
	byID := make(map[string]int)
	for rows.Next() {
		var sale domain.Sale
		if err := rows.Scan(&sale.ID, &sale.Timestamp, &sale.TotalSales, &sale.TotalCost, &sale.TotalProfit); err != nil {
			_ = rows.Close()
			return nil, err
		}
		sale.Items = []domain.SaleItem{}
		byID[sale.ID] = len(sales)
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT sale_id, product_id, name, quantity, price, cost
		FROM sale_items
		ORDER BY sale_id, position
	`)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var saleID string
		var item domain.SaleItem
		if err := itemRows.Scan(&saleID, &item.ProductID, &item.Name, &item.Quantity, &item.Price, &item.Cost); err != nil {
			return nil, err
		}
		if i, ok := byID[saleID]; ok {
			sales[i].Items = append(sales[i].Items, item)
		}
	}
	return sales, itemRows.Err()
}

// CreateCheckout locks the affected product rows, re-checks stock, then
// inserts the sale and decrements stock in one serializable transaction.
// Serialization conflicts are retried.
func (s *Store) CreateCheckout(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if err := store.ValidateSale(sale); err != nil {
		return nil, err
	}

	var err error
	for range checkoutAttempts {
		err = s.createCheckout(ctx, sale)
		if !isSerializationFailure(err) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (s *Store) createCheckout(ctx context.Context, sale domain.Sale) error {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = pgTx.Rollback() }()

	demand := store.DemandByProduct(sale.Items)
	ids := make([]string, 0, len(demand))
	for id := range demand {
		ids = append(ids, id)
	}

	rows, err := pgTx.QueryContext(ctx, `
		SELECT id, stock
		FROM products
		WHERE id = ANY($1)
		FOR UPDATE
	`, ids)
	if err != nil {
		return err
	}
	stockMap := make(map[string]int, len(ids))
	for rows.Next() {
		var id string
		var stock int
		if err := rows.Scan(&id, &stock); err != nil {
			_ = rows.Close()
			return err
		}
		stockMap[id] = stock
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	_ = rows.Close()

	for id, qty := range demand {
		stock, ok := stockMap[id]
		if !ok {
			return fmt.Errorf("product %s: %w", id, store.ErrNotFound)
		}
		if stock < qty {
			return fmt.Errorf("product %s: %w", id, store.ErrInsufficientStock)
		}
	}

	for id, qty := range demand {
		if _, err := pgTx.ExecContext(ctx, `
			UPDATE products SET stock = stock - $2, updated_at = now() WHERE id = $1
		`, id, qty); err != nil {
			return err
		}
	}

	if _, err := pgTx.ExecContext(ctx, `
		INSERT INTO sales (id, ts, total_sales, total_cost, total_profit)
		VALUES ($1, $2, $3, $4, $5)
	`, sale.ID, sale.Timestamp, sale.TotalSales, sale.TotalCost, sale.TotalProfit); err != nil {
		if isUniqueViolation(err) {
			return &store.ValidationError{Field: "id", Reason: "already exists"}
		}
		return err
	}

	for i, item := range sale.Items {
		if _, err := pgTx.ExecContext(ctx, `
			INSERT INTO sale_items (sale_id, position, product_id, name, quantity, price, cost)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, sale.ID, i, item.ProductID, item.Name, item.Quantity, item.Price, item.Cost); err != nil {
			return err
		}
	}

	return pgTx.Commit()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001"
	}
	return false
}
