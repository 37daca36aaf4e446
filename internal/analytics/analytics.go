// Package analytics derives business figures from catalog and ledger
// snapshots. Every function is pure; callers pass the data in.
package analytics

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"novapos/internal/domain"
)

const (
	DefaultWindowDays = 7
	DefaultTopN       = 5
	DefaultLowStock   = 5
)

var hundred = decimal.NewFromInt(100)

func Summarize(products []domain.Product, sales []domain.Sale) domain.Summary {
	out := domain.Summary{
		Revenue:        decimal.Zero,
		Cost:           decimal.Zero,
		Profit:         decimal.Zero,
		MarginPct:      decimal.Zero,
		SaleCount:      len(sales),
		InventoryValue: decimal.Zero,
	}
	for _, s := range sales {
		out.Revenue = out.Revenue.Add(s.TotalSales)
		out.Cost = out.Cost.Add(s.TotalCost)
		out.Profit = out.Profit.Add(s.TotalProfit)
	}
	if !out.Revenue.IsZero() {
		out.MarginPct = out.Profit.Div(out.Revenue).Mul(hundred).Round(2)
	}
	for _, p := range products {
		out.InventoryValue = out.InventoryValue.Add(p.Cost.Mul(decimal.NewFromInt(int64(p.Stock))))
	}
	return out
}

func Business(s domain.Summary) domain.BusinessSummary {
	return domain.BusinessSummary{
		TotalRevenue:    s.Revenue,
		TotalCost:       s.Cost,
		TotalProfit:     s.Profit,
		TotalSalesCount: s.SaleCount,
		ProfitMargin:    s.MarginPct,
	}
}

// DailySeries buckets sales into the trailing days calendar days of loc,
// ending with the day containing now. Days without sales are zero.
func DailySeries(sales []domain.Sale, days int, now time.Time, loc *time.Location) []domain.DailyPoint {
	if days <= 0 {
		days = DefaultWindowDays
	}
	if loc == nil {
		loc = time.Local
	}

	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	points := make([]domain.DailyPoint, days)
	slot := make(map[string]int, days)
	for i := range days {
		day := today.AddDate(0, 0, i-(days-1))
		key := day.Format(time.DateOnly)
		points[i] = domain.DailyPoint{
			Date:   key,
			Label:  day.Format("Mon"),
			Sales:  decimal.Zero,
			Profit: decimal.Zero,
		}
		slot[key] = i
	}

	for _, s := range sales {
		key := s.Time().In(loc).Format(time.DateOnly)
		i, ok := slot[key]
		if !ok {
			continue
		}
		points[i].Sales = points[i].Sales.Add(s.TotalSales)
		points[i].Profit = points[i].Profit.Add(s.TotalProfit)
	}
	return points
}

// TopProducts ranks products by units sold. Names come from the sale lines,
// so deleted or renamed products still rank under the name they sold as.
// Equal quantities keep the order in which the products first sold.
func TopProducts(sales []domain.Sale, n int) []domain.TopProduct {
	if n <= 0 {
		n = DefaultTopN
	}

	var ranked []domain.TopProduct
	pos := map[string]int{}
	for _, s := range sales {
		for _, item := range s.Items {
			i, ok := pos[item.ProductID]
			if !ok {
				i = len(ranked)
				pos[item.ProductID] = i
				ranked = append(ranked, domain.TopProduct{ProductID: item.ProductID, Name: item.Name})
			}
			ranked[i].Quantity += item.Quantity
		}
	}

	slices.SortStableFunc(ranked, func(a, b domain.TopProduct) int {
		return b.Quantity - a.Quantity
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	if ranked == nil {
		ranked = []domain.TopProduct{}
	}
	return ranked
}

// LowStock lists products with stock below threshold, lowest stock first.
func LowStock(products []domain.Product, threshold int) []domain.LowStockItem {
	if threshold <= 0 {
		threshold = DefaultLowStock
	}
	out := []domain.LowStockItem{}
	for _, p := range products {
		if p.Stock < threshold {
			out = append(out, domain.LowStockItem{
				ProductID: p.ID,
				Name:      p.Name,
				Category:  p.DisplayCategory(),
				Stock:     p.Stock,
			})
		}
	}
	slices.SortStableFunc(out, func(a, b domain.LowStockItem) int {
		return a.Stock - b.Stock
	})
	return out
}
