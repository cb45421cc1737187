package cart

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type MemoryPersister struct {
	mu   sync.Mutex
	data []byte
}

func NewMemoryPersister(initial []byte) *MemoryPersister {
	return &MemoryPersister{data: initial}
}

func (m *MemoryPersister) Load(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data, nil
}

func (m *MemoryPersister) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	return nil
}

// FilePersister keeps the cart in a single file. Writes go to a temp file
// that is renamed over the target, so a reader never sees half a cart.
type FilePersister struct {
	path string
}

func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

func (f *FilePersister) Load(context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

func (f *FilePersister) Save(_ context.Context, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".cart-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

// Delete removes the file; a missing file is not an error.
func (f *FilePersister) Delete() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

const redisCartTTL = 30 * 24 * time.Hour

// RedisPersister keeps one server-side cart per user under cart:<userID>.
type RedisPersister struct {
	client redis.Cmdable
	key    string
}

func NewRedisPersister(client redis.Cmdable, userID string) *RedisPersister {
	return &RedisPersister{client: client, key: "cart:" + userID}
}

func (r *RedisPersister) Load(ctx context.Context) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", r.key, err)
	}
	return data, nil
}

func (r *RedisPersister) Save(ctx context.Context, data []byte) error {
	if err := r.client.Set(ctx, r.key, data, redisCartTTL).Err(); err != nil {
		return fmt.Errorf("set %s: %w", r.key, err)
	}
	return nil
}
