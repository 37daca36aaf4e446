package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"novapos/internal/domain"
	"novapos/internal/pos"
	"novapos/internal/store"
	"novapos/internal/xid"
)

var ErrCartNotFound = fmt.Errorf("cart %w", store.ErrNotFound)

type cartSession struct {
	mu      sync.Mutex
	cart    *pos.Cart
	touched time.Time
}

// cartRegistry holds open carts in memory only. Carts idle longer than ttl
// are dropped the next time a cart is opened.
type cartRegistry struct {
	mu       sync.Mutex
	sessions map[string]*cartSession
	ttl      time.Duration
	now      func() time.Time
}

func newCartRegistry(ttl time.Duration, now func() time.Time) *cartRegistry {
	return &cartRegistry{
		sessions: make(map[string]*cartSession),
		ttl:      ttl,
		now:      now,
	}
}

func (r *cartRegistry) open() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.ttl)
	for id, sess := range r.sessions {
		if sess.mu.TryLock() {
			stale := sess.touched.Before(cutoff)
			sess.mu.Unlock()
			if stale {
				delete(r.sessions, id)
			}
		}
	}

	id := xid.New()
	r.sessions[id] = &cartSession{cart: pos.NewCart(), touched: r.now()}
	return id
}

func (r *cartRegistry) get(id string) (*cartSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return nil, ErrCartNotFound
	}
	return sess, nil
}

func (r *cartRegistry) drop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// withCart runs fn with the cart locked and returns the resulting view.
func (s *Service) withCart(id string, fn func(*pos.Cart) error) (domain.CartView, error) {
	sess, err := s.carts.get(id)
	if err != nil {
		return domain.CartView{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := fn(sess.cart); err != nil {
		return domain.CartView{}, err
	}
	sess.touched = s.now()
	return viewOf(id, sess.cart), nil
}

func viewOf(id string, cart *pos.Cart) domain.CartView {
	items := cart.Lines()
	if items == nil {
		items = []domain.SaleItem{}
	}
	return domain.CartView{ID: id, Items: items, Totals: cart.Totals()}
}

func (s *Service) OpenCart() domain.CartView {
	id := s.carts.open()
	return domain.CartView{ID: id, Items: []domain.SaleItem{}, Totals: pos.ComputeTotals(nil)}
}

func (s *Service) Cart(id string) (domain.CartView, error) {
	return s.withCart(id, func(*pos.Cart) error { return nil })
}

func (s *Service) AddToCart(ctx context.Context, cartID string, productID string) (domain.CartView, error) {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return domain.CartView{}, err
	}
	return s.withCart(cartID, func(c *pos.Cart) error {
		return c.Add(*product)
	})
}

func (s *Service) UpdateCartQuantity(ctx context.Context, cartID string, productID string, delta int) (domain.CartView, error) {
	products, err := s.repo.GetProductsByIDs(ctx, []string{productID})
	if err != nil {
		return domain.CartView{}, err
	}
	return s.withCart(cartID, func(c *pos.Cart) error {
		return c.UpdateQuantity(productID, delta, pos.Snapshot(products))
	})
}

func (s *Service) RemoveFromCart(cartID string, productID string) (domain.CartView, error) {
	return s.withCart(cartID, func(c *pos.Cart) error {
		c.Remove(productID)
		return nil
	})
}

func (s *Service) DiscardCart(cartID string) {
	s.carts.drop(cartID)
}

// Checkout commits the cart. On success the cart stays open and empty; on
// failure its lines are untouched.
func (s *Service) Checkout(ctx context.Context, cartID string) (domain.Sale, error) {
	sess, err := s.carts.get(cartID)
	if err != nil {
		return domain.Sale{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sale, err := pos.Checkout(ctx, sess.cart, s.repo, s.now())
	if err != nil {
		s.logger.Warn("checkout rejected", zap.String("cart_id", cartID), zap.Error(err))
		return domain.Sale{}, err
	}
	sess.touched = s.now()

	s.logger.Info("sale recorded",
		zap.String("sale_id", sale.ID),
		zap.Int("lines", len(sale.Items)),
		zap.String("total_sales", sale.TotalSales.StringFixed(2)),
	)
	return *sale, nil
}
