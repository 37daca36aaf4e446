// Package report renders the sales ledger as an XLSX workbook.
package report

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"novapos/internal/domain"
)

const (
	SalesSheet   = "Sales"
	SummarySheet = "Summary"
)

var salesHeader = []any{"Sale ID", "Date", "Time", "Items", "Detail", "Total Sales", "Total Cost", "Profit"}

// ItemsDetail renders lines as "2x Coffee, 1x Bagel".
func ItemsDetail(items []domain.SaleItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%dx %s", item.Quantity, item.Name))
	}
	return strings.Join(parts, ", ")
}

// NewestFirst returns the sales in reverse ledger order.
func NewestFirst(sales []domain.Sale) []domain.Sale {
	out := slices.Clone(sales)
	slices.Reverse(out)
	return out
}

// WriteSales writes a workbook with one row per sale, newest first, and a
// summary sheet.
func WriteSales(w io.Writer, sales []domain.Sale, summary domain.Summary, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SalesSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(SalesSheet, "A1", &salesHeader); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(SalesSheet, 1, 1, bold); err != nil {
		return err
	}
	moneyFmt := "#,##0.00"
	money, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFmt})
	if err != nil {
		return err
	}

	for i, s := range NewestFirst(sales) {
		at := s.Time().In(loc)
		row := []any{
			s.ID,
			at.Format(time.DateOnly),
			at.Format(time.TimeOnly),
			s.ItemCount(),
			ItemsDetail(s.Items),
			s.TotalSales.InexactFloat64(),
			s.TotalCost.InexactFloat64(),
			s.TotalProfit.InexactFloat64(),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SalesSheet, cell, &row); err != nil {
			return err
		}
	}
	if last := len(sales) + 1; last > 1 {
		if err := f.SetCellStyle(SalesSheet, "F2", fmt.Sprintf("H%d", last), money); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(SalesSheet, "A", "A", 38); err != nil {
		return err
	}
	if err := f.SetColWidth(SalesSheet, "E", "E", 48); err != nil {
		return err
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return err
	}
	rows := [][]any{
		{"Metric", "Value"},
		{"Revenue", summary.Revenue.InexactFloat64()},
		{"Cost", summary.Cost.InexactFloat64()},
		{"Profit", summary.Profit.InexactFloat64()},
		{"Margin %", summary.MarginPct.InexactFloat64()},
		{"Sales", summary.SaleCount},
		{"Inventory value", summary.InventoryValue.InexactFloat64()},
	}
	for i, row := range rows {
		if err := f.SetSheetRow(SummarySheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return err
		}
	}
	if err := f.SetRowStyle(SummarySheet, 1, 1, bold); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}
