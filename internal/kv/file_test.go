package kv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Get(ctx, Products)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, Products, []byte(`[{"id":"a"}]`)))
	require.NoError(t, s.Set(ctx, Products, []byte(`[]`)))

	got, err := s.Get(ctx, Products)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"novapos_products.json", lockFile}, names, "temp files must not be left behind")
}

func TestNewFileStoreRequiresDir(t *testing.T) {
	_, err := NewFileStore("  ")
	assert.Error(t, err)
}

func TestMemStoreCopiesValues(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	buf := []byte("abc")
	require.NoError(t, s.Set(ctx, Sales, buf))
	buf[0] = 'x'

	got, err := s.Get(ctx, Sales)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestUpdateSeesQueuedWritesAndDiscardsOnError(t *testing.T) {
	stores := map[string]Store{"mem": NewMemStore()}
	files, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	stores["file"] = files

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Set(ctx, Sales, []byte("old")))

			err := s.Update(ctx, []string{Sales}, func(tx Tx) error {
				tx.Set(Sales, []byte("new"))
				got, err := tx.Get(ctx, Sales)
				require.NoError(t, err)
				assert.Equal(t, "new", string(got))
				return errors.New("abort")
			})
			assert.EqualError(t, err, "abort")

			got, err := s.Get(ctx, Sales)
			require.NoError(t, err)
			assert.Equal(t, "old", string(got))
		})
	}
}

func TestFileStoreRestoresRecordsWhenLaterWriteFails(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, Products, []byte("p0")))

	boom := errors.New("disk full")
	s.write = func(path string, data []byte) error {
		if filepath.Base(path) == KeyPrefix+Sales+".json" {
			return boom
		}
		return writeFile(path, data)
	}

	err = s.Update(ctx, []string{Products, Sales}, func(tx Tx) error {
		tx.Set(Products, []byte("p1"))
		tx.Set(Sales, []byte("s1"))
		return nil
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Get(ctx, Products)
	require.NoError(t, err)
	assert.Equal(t, "p0", string(got))
	_, err = s.Get(ctx, Sales)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoresSharingDirSerializeUpdates(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	var stores []*FileStore
	for range 2 {
		s, err := NewFileStore(dir)
		require.NoError(t, err)
		stores = append(stores, s)
	}

	const perStore = 25
	var wg sync.WaitGroup
	for _, s := range stores {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perStore {
				err := s.Update(ctx, []string{Sales}, func(tx Tx) error {
					n := 0
					raw, err := tx.Get(ctx, Sales)
					if err == nil {
						n, _ = strconv.Atoi(string(raw))
					} else if !errors.Is(err, ErrNotFound) {
						return err
					}
					tx.Set(Sales, []byte(strconv.Itoa(n+1)))
					return nil
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	raw, err := stores[0].Get(ctx, Sales)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(2*perStore), string(raw))
}
