package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novapos/internal/app"
	"novapos/internal/service"
	"novapos/internal/store/memory"
)

func testOpener() opener {
	repo := memory.New()
	svc := service.New(repo, nil, service.Options{Location: time.UTC})
	return func(context.Context) (*app.Runtime, error) {
		return &app.Runtime{Repo: repo, Service: svc}, nil
	}
}

func run(t *testing.T, open opener, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(open)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	return out.String()
}

func TestAddAndListProducts(t *testing.T) {
	open := testOpener()
	out := run(t, open, "add-product", "--name", "Espresso", "--cost", "0.90", "--price", "2.50", "--stock", "3", "--category", "Drinks")
	assert.Contains(t, out, "added Espresso")

	run(t, open, "add-product", "--name", "Muffin", "--cost", "1", "--price", "2", "--stock", "0")

	out = run(t, open, "products")
	assert.Contains(t, out, "Espresso")
	assert.Contains(t, out, "$2.50")
	assert.Contains(t, out, "General")

	out = run(t, open, "products", "--in-stock")
	assert.NotContains(t, out, "Muffin")
}

func TestAddProductRejectsBadPrice(t *testing.T) {
	cmd := newRootCmd(testOpener())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"add-product", "--name", "Tea", "--price", "cheap"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--price")
}

func TestReportsOnEmptyLedger(t *testing.T) {
	open := testOpener()

	out := run(t, open, "summary")
	assert.Contains(t, out, "Revenue")
	assert.Contains(t, out, "0.00%")

	out = run(t, open, "daily", "--days", "3")
	assert.Equal(t, 3, strings.Count(out, "$0.00")/2)

	out = run(t, open, "top")
	assert.Contains(t, strings.ToUpper(out), "UNITS")
}

func TestLowStockAndExport(t *testing.T) {
	open := testOpener()
	run(t, open, "add-product", "--name", "Bagel", "--cost", "0.5", "--price", "1.5", "--stock", "2")

	out := run(t, open, "low-stock", "--threshold", "5")
	assert.Contains(t, out, "Bagel")

	path := filepath.Join(t.TempDir(), "sales.xlsx")
	out = run(t, open, "export", "--out", path)
	assert.Contains(t, out, "wrote "+path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
