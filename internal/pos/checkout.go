package pos

import (
	"context"
	"time"

	"novapos/internal/domain"
	"novapos/internal/xid"
)

// Committer appends a sale to the ledger and decrements stock for each of
// its lines as one unit. store.Repository satisfies it.
type Committer interface {
	CreateCheckout(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
}

// Checkout commits the cart as a new sale and empties it. When the commit
// fails the cart is left as it was so the operator can adjust and retry.
func Checkout(ctx context.Context, cart *Cart, committer Committer, now time.Time) (*domain.Sale, error) {
	if cart.Len() == 0 {
		return nil, ErrEmptyCart
	}

	items := cart.Lines()
	totals := ComputeTotals(items)
	sale := domain.Sale{
		ID:          xid.New(),
		Timestamp:   now.UnixMilli(),
		Items:       items,
		TotalSales:  totals.TotalSales,
		TotalCost:   totals.TotalCost,
		TotalProfit: totals.TotalProfit,
	}

	committed, err := committer.CreateCheckout(ctx, sale)
	if err != nil {
		return nil, err
	}
	cart.Reset()
	return committed, nil
}
