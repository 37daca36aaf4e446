package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"novapos/internal/app"
	"novapos/internal/domain"
	"novapos/internal/report"
	"novapos/internal/service"
)

type opener func(ctx context.Context) (*app.Runtime, error)

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "posctl",
		Short:         "Inspect and manage NovaPOS catalog, sales and reports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		productsCmd(open),
		addProductCmd(open),
		salesCmd(open),
		summaryCmd(open),
		dailyCmd(open),
		topCmd(open),
		lowStockCmd(open),
		exportCmd(open),
	)
	return root
}

// withService opens the runtime for the duration of fn.
func withService(cmd *cobra.Command, open opener, fn func(ctx context.Context, svc *service.Service) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := open(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(ctx, rt.Service)
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func rightAligned(cols ...int) []table.ColumnConfig {
	out := make([]table.ColumnConfig, 0, len(cols))
	for _, n := range cols {
		out = append(out, table.ColumnConfig{Number: n, Align: text.AlignRight})
	}
	return out
}

func productsCmd(open opener) *cobra.Command {
	var query string
	var inStock bool
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, open, func(ctx context.Context, svc *service.Service) error {
				products, err := svc.ListProducts(ctx, service.ProductFilter{Query: query, InStockOnly: inStock})
				if err != nil {
					return err
				}
				t := newTable(cmd.OutOrStdout())
				t.AppendHeader(table.Row{"ID", "Name", "Category", "Cost", "Price", "Stock"})
				for _, p := range products {
					t.AppendRow(table.Row{p.ID, p.Name, p.DisplayCategory(), money(p.Cost), money(p.Price), p.Stock})
				}
				t.SetColumnConfigs(rightAligned(4, 5, 6))
				t.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "filter by name")
	cmd.Flags().BoolVar(&inStock, "in-stock", false, "only products with stock")
	return cmd
}

func addProductCmd(open opener) *cobra.Command {
	var in domain.ProductInput
	var cost, price string
	cmd := &cobra.Command{
		Use:   "add-product",
		Short: "Add a product to the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if in.Cost, err = decimal.NewFromString(cost); err != nil {
				return fmt.Errorf("invalid --cost: %w", err)
			}
			if in.Price, err = decimal.NewFromString(price); err != nil {
				return fmt.Errorf("invalid --price: %w", err)
			}
			return withService(cmd, open, func(ctx context.Context, svc *service.Service) error {
				p, err := svc.AddProduct(ctx, in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", p.Name, p.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "product name")
	cmd.Flags().StringVar(&cost, "cost", "0", "unit cost")
	cmd.Flags().StringVar(&price, "price", "0", "unit price")
	cmd.Flags().IntVar(&in.Stock, "stock", 0, "units in stock")
	cmd.Flags().StringVar(&in.Category, "category", "", "category")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func salesCmd(open opener) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "sales",
		Short: "List recorded sales, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, open, func(ctx context.Context, svc *service.Service) error {
				sales, err := svc.ListSales(ctx, true)
				if err != nil {
					return err
				}
				if limit > 0 && len(sales) > limit {
					sales = sales[:limit]
				}
				t := newTable(cmd.OutOrStdout())
				t.AppendHeader(table.Row{"When", "Items", "Total", "Cost", "Profit"})
				for _, s := range sales {
					t.AppendRow(table.Row{
						s.Time().Format(time.DateTime),
						report.ItemsDetail(s.Items),
						money(s.TotalSales),
						money(s.TotalCost),
						money(s.TotalProfit),
					})
				}
				t.SetColumnConfigs(rightAligned(3, 4, 5))
				t.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum rows (0 for all)")
	return cmd
}

func summaryCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show revenue, cost, profit and margin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, open, func(ctx context.Context, svc *service.Service) error {
				s, err := svc.Summary(ctx)
				if err != nil {
					return err
				}
				t := newTable(cmd.OutOrStdout())
				t.AppendHeader(table.Row{"Metric", "Value"})
				t.AppendRows([]table.Row{
					{"Revenue", money(s.Revenue)},
					{"Cost", money(s.Cost)},
					{"Profit", money(s.Profit)},
					{"Margin", s.MarginPct.StringFixed(2) + "%"},
					{"Sales", s.SaleCount},
					{"Inventory value", money(s.InventoryValue)},
				})
				t.SetColumnConfigs(rightAligned(2))
				t.Render()
				return nil
			})
		},
	}
}

func dailyCmd(open opener) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "daily",
		Short: "Show revenue and profit per day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, open, func(ctx context.Context, svc *service.Service) error {
				points, err := svc.DailySeries(ctx, days)
				if err != nil {
					return err
				}
				t := newTable(cmd.OutOrStdout())
				t.AppendHeader(table.Row{"Date", "Day", "Revenue", "Profit"})
				for _, p := range points {
					t.AppendRow(table.Row{p.Date, p.Label, money(p.Sales), money(p.Profit)})
				}
				t.SetColumnConfigs(rightAligned(3, 4))
				t.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "window size in days")
	return cmd
}

func topCmd(open opener) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show best selling products by units",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, open, func(ctx context.Context, svc *service.Service) error {
				top, err := svc.TopProducts(ctx, limit)
				if err != nil {
					return err
				}
				t := newTable(cmd.OutOrStdout())
				t.AppendHeader(table.Row{"#", "Product", "Units"})
				for i, p := range top {
					t.AppendRow(table.Row{i + 1, p.Name, p.Quantity})
				}
				t.SetColumnConfigs(rightAligned(3))
				t.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "number of products")
	return cmd
}

func lowStockCmd(open opener) *cobra.Command {
	var threshold int
	cmd := &cobra.Command{
		Use:   "low-stock",
		Short: "List products running out of stock",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, open, func(ctx context.Context, svc *service.Service) error {
				items, err := svc.LowStock(ctx, threshold)
				if err != nil {
					return err
				}
				t := newTable(cmd.OutOrStdout())
				t.AppendHeader(table.Row{"Product", "Category", "Stock"})
				for _, item := range items {
					t.AppendRow(table.Row{item.Name, item.Category, item.Stock})
				}
				t.SetColumnConfigs(rightAligned(3))
				t.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&threshold, "threshold", 0, "stock below this value is low (default from LOW_STOCK_THRESHOLD)")
	return cmd
}

func exportCmd(open opener) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the sales ledger to an XLSX workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, open, func(ctx context.Context, svc *service.Service) error {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				if err := svc.ExportSales(ctx, f); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "novapos-sales.xlsx", "output file")
	return cmd
}
