// Package advice produces short strategy notes from the business summary by
// asking an external text-generation service.
package advice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"novapos/internal/domain"
)

// Placeholder texts returned instead of errors.
const (
	EmptyText       = "Could not generate advice right now."
	UnavailableText = "Could not reach the advisory service. Check the API key."
)

var ErrNotConfigured = errors.New("advice: no API key configured")

// Input is what the core hands to the advisor: the business summary plus
// the catalog and ledger it was computed from. The advisor only reads them.
type Input struct {
	Summary  domain.BusinessSummary
	Products []domain.Product
	Sales    []domain.Sale
}

type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// StaticClient stands in when no API key is configured.
type StaticClient struct{}

func (StaticClient) Generate(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}

// BuildPrompt renders the metrics into the instruction sent to the model.
func BuildPrompt(in Input, language string) string {
	if language == "" {
		language = "English"
	}
	s := in.Summary

	var b strings.Builder
	b.WriteString("Act as an expert business consultant. Review the following point-of-sale data ")
	b.WriteString("and give me 3 strategic tips to grow.\n\n")
	b.WriteString("METRICS:\n")
	fmt.Fprintf(&b, "- Total sales: $%s\n", s.TotalRevenue.StringFixed(2))
	fmt.Fprintf(&b, "- Cost of sales: $%s\n", s.TotalCost.StringFixed(2))
	fmt.Fprintf(&b, "- Net profit: $%s\n", s.TotalProfit.StringFixed(2))
	fmt.Fprintf(&b, "- Margin: %s%%\n\n", s.ProfitMargin.StringFixed(2))
	fmt.Fprintf(&b, "PRODUCTS: %d registered products.\n", len(in.Products))
	fmt.Fprintf(&b, "SALES: %d completed transactions.\n\n", len(in.Sales))
	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("1. Keep the tips short, actionable and professional.\n")
	fmt.Fprintf(&b, "2. Answer in %s.\n", language)
	b.WriteString("3. Plain text with bullet points only, no complex Markdown.\n")
	return b.String()
}
