package kv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"
)

const (
	lockFile      = ".novapos.lock"
	lockRetryWait = 10 * time.Millisecond
)

// FileStore keeps one JSON file per record inside a directory. Writers
// serialize on a lock file in that directory, so a server and posctl may
// share it.
type FileStore struct {
	dir   string
	mu    sync.Mutex
	lock  *flock.Flock
	write func(path string, data []byte) error
}

func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("kv: data dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("kv: create data dir: %w", err)
	}
	return &FileStore{
		dir:   dir,
		lock:  flock.New(filepath.Join(dir, lockFile)),
		write: writeFile,
	}, nil
}

// writeFile replaces path atomically: readers see the old or the new file,
// never a partial write.
func writeFile(path string, data []byte) error {
	return atomic.WriteFile(path, bytes.NewReader(data))
}

func (f *FileStore) path(name string) string {
	return filepath.Join(f.dir, KeyPrefix+name+".json")
}

func (f *FileStore) Get(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(f.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv: read %s: %w", name, err)
	}
	return data, nil
}

func (f *FileStore) Set(ctx context.Context, name string, value []byte) error {
	return f.withLock(ctx, func() error {
		return f.commit(ctx, []write{{name: name, value: value}})
	})
}

func (f *FileStore) Update(ctx context.Context, _ []string, fn func(Tx) error) error {
	return f.withLock(ctx, func() error {
		tx := &bufferedTx{read: f.Get}
		if err := fn(tx); err != nil {
			return err
		}
		return f.commit(ctx, tx.writes)
	})
}

func (f *FileStore) withLock(ctx context.Context, fn func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	locked, err := f.lock.TryLockContext(ctx, lockRetryWait)
	if err != nil {
		return fmt.Errorf("kv: lock %s: %w", f.dir, err)
	}
	if !locked {
		return fmt.Errorf("kv: lock %s: %w", f.dir, ctx.Err())
	}
	defer func() { _ = f.lock.Unlock() }()

	return fn()
}

// commit writes the records in order. When one write fails the records
// already replaced get their previous content back.
func (f *FileStore) commit(ctx context.Context, writes []write) error {
	type previous struct {
		name   string
		value  []byte
		exists bool
	}
	done := make([]previous, 0, len(writes))

	for _, w := range writes {
		old, err := f.Get(ctx, w.name)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		existed := err == nil
		if err := f.write(f.path(w.name), w.value); err != nil {
			err = fmt.Errorf("kv: write %s: %w", w.name, err)
			for i := len(done) - 1; i >= 0; i-- {
				p := done[i]
				var restoreErr error
				if p.exists {
					restoreErr = f.write(f.path(p.name), p.value)
				} else {
					restoreErr = os.Remove(f.path(p.name))
				}
				if restoreErr != nil {
					err = errors.Join(err, fmt.Errorf("kv: restore %s: %w", p.name, restoreErr))
				}
			}
			return err
		}
		done = append(done, previous{name: w.name, value: old, exists: existed})
	}
	return nil
}

func (f *FileStore) Close() error { return nil }
