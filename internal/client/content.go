package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/joao-fontenele/courseshop/internal/domain"
	"github.com/joao-fontenele/courseshop/internal/httpx"
)

// PageRequest is the list query shared by the content screens.
type PageRequest struct {
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
	Search    string
}

func (p PageRequest) values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(p.PageSize))
	}
	if p.SortBy != "" {
		v.Set("sortBy", p.SortBy)
	}
	if p.SortOrder != "" {
		v.Set("sortOrder", p.SortOrder)
	}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	return v
}

// ContentManager is the list/detail/edit state of one admin content screen.
// Updates and deletes show up locally at once and are rolled back if the
// API refuses them; creates wait for the server.
type ContentManager[T any] struct {
	client *Client
	base   string
	key    func(T) string
	list   List[T]

	mu         sync.Mutex
	pagination *httpx.Pagination
}

// NewContentManager manages the entity served under /api/admin/<entity>.
func NewContentManager[T any](c *Client, entity string, key func(T) string) *ContentManager[T] {
	return &ContentManager[T]{client: c, base: "/api/admin/" + entity, key: key}
}

func Ebooks(c *Client) *ContentManager[domain.Ebook] {
	return NewContentManager(c, "ebooks", func(e domain.Ebook) string { return e.ID })
}

func Courses(c *Client) *ContentManager[domain.Course] {
	return NewContentManager(c, "courses", func(e domain.Course) string { return e.ID })
}

func Exams(c *Client) *ContentManager[domain.Exam] {
	return NewContentManager(c, "exams", func(e domain.Exam) string { return e.ID })
}

func Categories(c *Client) *ContentManager[domain.Category] {
	return NewContentManager(c, "categories", func(e domain.Category) string { return e.ID })
}

func Coupons(c *Client) *ContentManager[domain.Coupon] {
	return NewContentManager(c, "coupons", func(e domain.Coupon) string { return e.ID })
}

func (m *ContentManager[T]) Load(ctx context.Context, p PageRequest) error {
	var items []T
	res, err := m.client.call(ctx, http.MethodGet, m.base, p.values(), nil, &items)
	if err != nil {
		return err
	}

	m.list.Set(items)
	m.mu.Lock()
	m.pagination = res.Pagination
	m.mu.Unlock()
	return nil
}

func (m *ContentManager[T]) Items() []T {
	return m.list.Items()
}

func (m *ContentManager[T]) Pagination() *httpx.Pagination {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pagination
}

func (m *ContentManager[T]) Get(ctx context.Context, id string) (*T, error) {
	var item T
	if _, err := m.client.call(ctx, http.MethodGet, m.base+"/"+url.PathEscape(id), nil, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (m *ContentManager[T]) Create(ctx context.Context, item T) (*T, error) {
	var created T
	if _, err := m.client.call(ctx, http.MethodPost, m.base, nil, item, &created); err != nil {
		return nil, err
	}
	m.list.update(func(items []T) []T { return append([]T{created}, items...) })
	return &created, nil
}

// Update shows item in the list immediately and swaps in the server's
// version once the API accepts it.
func (m *ContentManager[T]) Update(ctx context.Context, item T) error {
	id := m.key(item)
	var saved T
	err := m.list.Execute(ctx, UpdateCommand(item, m.key, func(ctx context.Context) error {
		_, err := m.client.call(ctx, http.MethodPut, m.base+"/"+url.PathEscape(id), nil, item, &saved)
		return err
	}))
	if err != nil {
		return err
	}
	m.list.update(UpdateCommand(saved, m.key, nil).Apply)
	return nil
}

func (m *ContentManager[T]) Delete(ctx context.Context, id string) error {
	return m.list.Execute(ctx, RemoveCommand(id, m.key, func(ctx context.Context) error {
		_, err := m.client.call(ctx, http.MethodDelete, m.base+"/"+url.PathEscape(id), nil, nil, nil)
		return err
	}))
}
