package client

import (
	"context"
	"path/filepath"

	"github.com/joao-fontenele/courseshop/internal/cart"
)

// Keys of the client's persisted state.
const (
	KeyCart  = "cart"
	KeyUser  = "user"
	KeyToken = "token"
)

// LocalStore is the client's key/value persistence, the equivalent of a
// browser's local storage. Load returns nil data for a missing key.
type LocalStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// FileStore keeps each key in its own JSON file under dir.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) file(key string) *cart.FilePersister {
	return cart.NewFilePersister(filepath.Join(s.dir, key+".json"))
}

func (s *FileStore) Load(ctx context.Context, key string) ([]byte, error) {
	return s.file(key).Load(ctx)
}

func (s *FileStore) Save(ctx context.Context, key string, data []byte) error {
	return s.file(key).Save(ctx, data)
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	return s.file(key).Delete()
}

// Persister exposes one key of store as a cart persister, so a local cart
// lives under KeyCart next to the session.
func Persister(store LocalStore, key string) cart.Persister {
	return keyPersister{store: store, key: key}
}

type keyPersister struct {
	store LocalStore
	key   string
}

func (p keyPersister) Load(ctx context.Context) ([]byte, error) {
	return p.store.Load(ctx, p.key)
}

func (p keyPersister) Save(ctx context.Context, data []byte) error {
	return p.store.Save(ctx, p.key, data)
}

// OpenCart hydrates the local cart from store.
func OpenCart(ctx context.Context, store LocalStore) (*cart.Store, error) {
	return cart.NewStore(ctx, Persister(store, KeyCart))
}
