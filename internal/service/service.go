package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"novapos/internal/advice"
	"novapos/internal/analytics"
	"novapos/internal/domain"
	"novapos/internal/report"
	"novapos/internal/store"
	"novapos/internal/xid"
)

const (
	maxWindowDays = 366
	maxTopN       = 100
)

type Options struct {
	Location          *time.Location
	LowStockThreshold int
	CartIdleTTL       time.Duration
	Logger            *zap.Logger
	Now               func() time.Time
}

type Service struct {
	repo     store.Repository
	advisor  *advice.Engine
	loc      *time.Location
	lowStock int
	logger   *zap.Logger
	now      func() time.Time
	carts    *cartRegistry
}

func New(repo store.Repository, advisor *advice.Engine, opts Options) *Service {
	if advisor == nil {
		advisor = advice.NewEngine(nil, nil, advice.Options{Logger: opts.Logger})
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.LowStockThreshold <= 0 {
		opts.LowStockThreshold = analytics.DefaultLowStock
	}
	if opts.CartIdleTTL <= 0 {
		opts.CartIdleTTL = 12 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		repo:     repo,
		advisor:  advisor,
		loc:      opts.Location,
		lowStock: opts.LowStockThreshold,
		logger:   opts.Logger,
		now:      opts.Now,
		carts:    newCartRegistry(opts.CartIdleTTL, opts.Now),
	}
}

type ProductFilter struct {
	Query       string
	InStockOnly bool
}

// ListProducts returns the catalog in insertion order. Query matches names
// case-insensitively.
func (s *Service) ListProducts(ctx context.Context, filter ProductFilter) ([]domain.Product, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if query != "" && !strings.Contains(strings.ToLower(p.Name), query) {
			continue
		}
		if filter.InStockOnly && p.Stock <= 0 {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *p, nil
}

func normalizeInput(in domain.ProductInput) domain.ProductInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	return in
}

func (s *Service) AddProduct(ctx context.Context, in domain.ProductInput) (domain.Product, error) {
	product := normalizeInput(in).WithID(xid.New())
	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	s.logger.Info("product added",
		zap.String("product_id", created.ID),
		zap.String("name", created.Name),
		zap.Int("stock", created.Stock),
	)
	return *created, nil
}

// UpdateProduct replaces every field of an existing product.
func (s *Service) UpdateProduct(ctx context.Context, id string, in domain.ProductInput) (domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Product{}, &store.ValidationError{Field: "id", Reason: "is required"}
	}
	updated, err := s.repo.UpdateProduct(ctx, normalizeInput(in).WithID(id))
	if err != nil {
		return domain.Product{}, err
	}
	s.logger.Info("product updated", zap.String("product_id", updated.ID))
	return *updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.DeleteProduct(ctx, strings.TrimSpace(id)); err != nil {
		return err
	}
	s.logger.Info("product deleted", zap.String("product_id", id))
	return nil
}

// ListSales returns the ledger oldest first, or newest first when asked.
func (s *Service) ListSales(ctx context.Context, newestFirst bool) ([]domain.Sale, error) {
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	if newestFirst {
		return report.NewestFirst(sales), nil
	}
	return sales, nil
}

func (s *Service) snapshot(ctx context.Context) ([]domain.Product, []domain.Sale, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, nil, err
	}
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, nil, err
	}
	return products, sales, nil
}

func (s *Service) Summary(ctx context.Context) (domain.Summary, error) {
	products, sales, err := s.snapshot(ctx)
	if err != nil {
		return domain.Summary{}, err
	}
	return analytics.Summarize(products, sales), nil
}

func (s *Service) DailySeries(ctx context.Context, days int) ([]domain.DailyPoint, error) {
	if days == 0 {
		days = analytics.DefaultWindowDays
	}
	if days < 1 || days > maxWindowDays {
		return nil, &store.ValidationError{Field: "days", Reason: fmt.Sprintf("must be between 1 and %d", maxWindowDays)}
	}
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.DailySeries(sales, days, s.now(), s.loc), nil
}

func (s *Service) TopProducts(ctx context.Context, n int) ([]domain.TopProduct, error) {
	if n == 0 {
		n = analytics.DefaultTopN
	}
	if n < 1 || n > maxTopN {
		return nil, &store.ValidationError{Field: "limit", Reason: fmt.Sprintf("must be between 1 and %d", maxTopN)}
	}
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.TopProducts(sales, n), nil
}

func (s *Service) LowStock(ctx context.Context, threshold int) ([]domain.LowStockItem, error) {
	if threshold == 0 {
		threshold = s.lowStock
	}
	if threshold < 1 {
		return nil, &store.ValidationError{Field: "threshold", Reason: "must be positive"}
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.LowStock(products, threshold), nil
}

// Advice asks the advisory engine for strategy notes. It reads the catalog
// and ledger but never changes them.
func (s *Service) Advice(ctx context.Context) (domain.Advice, error) {
	products, sales, err := s.snapshot(ctx)
	if err != nil {
		return domain.Advice{}, err
	}
	summary := analytics.Summarize(products, sales)
	return s.advisor.Advise(ctx, advice.Input{
		Summary:  analytics.Business(summary),
		Products: products,
		Sales:    sales,
	}), nil
}

func (s *Service) ExportSales(ctx context.Context, w io.Writer) error {
	products, sales, err := s.snapshot(ctx)
	if err != nil {
		return err
	}
	return report.WriteSales(w, sales, analytics.Summarize(products, sales), s.loc)
}
