// Package cart holds the purchase-intent cart: a mutex-guarded list of items
// that writes itself through a Persister after every change.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/joao-fontenele/courseshop/internal/domain"
	"github.com/joao-fontenele/courseshop/internal/pricing"
)

var (
	ErrInvalidItem  = errors.New("invalid cart item")
	ErrItemNotFound = errors.New("item not in cart")
)

// Persister stores the serialized item list. Load returns nil, nil when
// nothing has been saved yet.
type Persister interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

type Summary struct {
	Items []domain.CartItem `json:"items"`
	Total int64             `json:"total"`
	Count int               `json:"count"`
}

type Store struct {
	mu        sync.Mutex
	items     []domain.CartItem
	persister Persister
}

// NewStore hydrates a store from p. Corrupt data yields an empty cart.
func NewStore(ctx context.Context, p Persister) (*Store, error) {
	s := &Store{persister: p, items: []domain.CartItem{}}

	data, err := p.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}

	var items []domain.CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		return s, nil
	}
	for _, it := range items {
		if it.ID == "" || it.Quantity < 1 {
			continue
		}
		if _, err := domain.ParseItemType(string(it.Type)); err != nil {
			continue
		}
		s.items = append(s.items, it)
	}
	return s, nil
}

// Add merges by (id, type): an existing line gets its quantity incremented.
// A zero quantity counts as one.
func (s *Store) Add(ctx context.Context, item domain.CartItem) error {
	t, err := domain.ParseItemType(string(item.Type))
	if err != nil || strings.TrimSpace(item.ID) == "" || item.Quantity < 0 {
		return ErrInvalidItem
	}
	item.Type = t
	if item.Quantity == 0 {
		item.Quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(item.ID, item.Type); i >= 0 {
		s.items[i].Quantity += item.Quantity
	} else {
		s.items = append(s.items, item)
	}
	return s.persist(ctx)
}

func (s *Store) Remove(ctx context.Context, id string, t domain.ItemType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id, t)
	if i < 0 {
		return ErrItemNotFound
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return s.persist(ctx)
}

// UpdateQuantity sets the quantity of a line; qty <= 0 removes it.
func (s *Store) UpdateQuantity(ctx context.Context, id string, t domain.ItemType, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id, t)
	if i < 0 {
		return ErrItemNotFound
	}
	if qty <= 0 {
		s.items = append(s.items[:i], s.items[i+1:]...)
	} else {
		s.items[i].Quantity = qty
	}
	return s.persist(ctx)
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = []domain.CartItem{}
	return s.persist(ctx)
}

func (s *Store) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

// Total is the sum of (discountPrice or price) times quantity.
func (s *Store) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pricing.CartTotal(s.items)
}

// Count is the sum of quantities, not the number of lines.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

func (s *Store) Summary() Summary {
	return Summary{Items: s.Items(), Total: s.Total(), Count: s.Count()}
}

func (s *Store) indexOf(id string, t domain.ItemType) int {
	for i, it := range s.items {
		if it.ID == id && it.Type == t {
			return i
		}
	}
	return -1
}

func (s *Store) persist(ctx context.Context) error {
	data, err := json.Marshal(s.items)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.persister.Save(ctx, data); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}
