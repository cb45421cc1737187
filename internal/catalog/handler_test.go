package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/joao-fontenele/courseshop/internal/domain"
	"github.com/joao-fontenele/courseshop/internal/httpx"
)

type memoryStore[T any] struct {
	mu     sync.Mutex
	items  map[string]T
	nextID int
	id     func(*T) *string
	active func(*T) bool
}

func newMemoryEbooks() *memoryStore[domain.Ebook] {
	return &memoryStore[domain.Ebook]{
		items:  map[string]domain.Ebook{},
		id:     func(e *domain.Ebook) *string { return &e.ID },
		active: func(e *domain.Ebook) bool { return e.IsActive },
	}
}

func (m *memoryStore[T]) List(_ context.Context, q httpx.PageQuery, activeOnly bool) ([]T, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []string
	for id, item := range m.items {
		if activeOnly && !m.active(&item) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := []T{}
	for i, id := range ids {
		if i >= q.Offset() && len(out) < q.PageSize {
			out = append(out, m.items[id])
		}
	}
	return out, len(ids), nil
}

func (m *memoryStore[T]) Get(_ context.Context, id string) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (m *memoryStore[T]) Create(_ context.Context, item *T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	*m.id(item) = fmt.Sprintf("id-%02d", m.nextID)
	m.items[*m.id(item)] = *item
	return nil
}

func (m *memoryStore[T]) Update(_ context.Context, id string, item *T) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return nil, nil
	}
	*m.id(item) = id
	m.items[id] = *item
	return item, nil
}

func (m *memoryStore[T]) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return false, nil
	}
	delete(m.items, id)
	return true, nil
}

type listResponse struct {
	Success    bool              `json:"success"`
	Data       []domain.Ebook    `json:"data"`
	Pagination *httpx.Pagination `json:"pagination"`
	Error      string            `json:"error"`
}

func newEbookMux(store Store[domain.Ebook]) *http.ServeMux {
	h := NewHandler(store, Ebooks, slog.New(slog.NewTextHandler(io.Discard, nil)))
	mux := http.NewServeMux()
	for pattern, fn := range h.AdminRoutes("/api/admin/ebooks") {
		mux.HandleFunc(pattern, fn)
	}
	for pattern, fn := range h.PublicRoutes("/api/ebooks") {
		mux.HandleFunc(pattern, fn)
	}
	return mux
}

func serve(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestHandler_CRUD(t *testing.T) {
	store := newMemoryEbooks()
	mux := newEbookMux(store)

	rec := serve(mux, http.MethodPost, "/api/admin/ebooks", `{"title":"  Go Patterns ","price":300,"discountPrice":250,"isActive":true}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Data domain.Ebook `json:"data"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &created)
	if created.Data.Title != "Go Patterns" {
		t.Errorf("expected trimmed title, got %q", created.Data.Title)
	}
	id := created.Data.ID

	rec = serve(mux, http.MethodPut, "/api/admin/ebooks/"+id, `{"title":"Go Patterns 2e","price":350,"isActive":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = serve(mux, http.MethodGet, "/api/ebooks/"+id, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected inactive ebook hidden from public, got %d", rec.Code)
	}

	rec = serve(mux, http.MethodGet, "/api/admin/ebooks/"+id, "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected admin to see inactive ebook, got %d", rec.Code)
	}

	rec = serve(mux, http.MethodDelete, "/api/admin/ebooks/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = serve(mux, http.MethodDelete, "/api/admin/ebooks/"+id, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestHandler_Validation(t *testing.T) {
	mux := newEbookMux(newMemoryEbooks())

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing title", `{"price":100}`, "title is required"},
		{"negative price", `{"title":"x","price":-1}`, "price must not be negative"},
		{"discount above price", `{"title":"x","price":100,"discountPrice":150}`, "discount price must be between 0 and price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(mux, http.MethodPost, "/api/admin/ebooks", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			var resp listResponse
			_ = json.Unmarshal(rec.Body.Bytes(), &resp)
			if resp.Error != tt.want {
				t.Errorf("expected %q, got %q", tt.want, resp.Error)
			}
		})
	}
}

func TestHandler_List(t *testing.T) {
	store := newMemoryEbooks()
	for i := range 5 {
		e := domain.Ebook{Title: fmt.Sprintf("book %d", i), IsActive: i%2 == 0}
		_ = store.Create(context.Background(), &e)
	}
	mux := newEbookMux(store)

	rec := serve(mux, http.MethodGet, "/api/admin/ebooks?page=2&pageSize=2", "")
	var resp listResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Pagination == nil || resp.Pagination.TotalCount != 5 || resp.Pagination.TotalPages != 3 {
		t.Fatalf("unexpected pagination %+v", resp.Pagination)
	}
	if len(resp.Data) != 2 {
		t.Errorf("expected 2 items on page 2, got %d", len(resp.Data))
	}

	rec = serve(mux, http.MethodGet, "/api/ebooks", "")
	resp = listResponse{}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Pagination.TotalCount != 3 {
		t.Errorf("expected 3 active ebooks, got %d", resp.Pagination.TotalCount)
	}

	rec = serve(mux, http.MethodGet, "/api/admin/ebooks?sortBy=password", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown sort column, got %d", rec.Code)
	}
}

func TestValidateCoupon(t *testing.T) {
	ptr := func(v int64) *int64 { return &v }

	tests := []struct {
		name   string
		coupon domain.Coupon
		want   string
	}{
		{"percentage over 100", domain.Coupon{Code: "a", Name: "A", Type: domain.CouponTypePercentage, Value: 150}, "percentage must be between 1 and 100"},
		{"fixed zero", domain.Coupon{Code: "a", Name: "A", Type: domain.CouponTypeFixedAmount}, "amount must be positive"},
		{"missing code", domain.Coupon{Name: "A", Type: domain.CouponTypeFixedAmount, Value: 5}, "code is required"},
		{"bad max discount", domain.Coupon{Code: "a", Name: "A", Type: domain.CouponTypePercentage, Value: 10, MaxDiscount: ptr(0)}, "max discount must be positive"},
		{"valid", domain.Coupon{Code: " new10 ", Name: "New", Type: domain.CouponTypePercentage, Value: 10}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.coupon
			err := validateCoupon(&c)
			msg, _ := domain.IsValidation(err)
			if msg != tt.want {
				t.Errorf("expected %q, got %q", tt.want, msg)
			}
			if err == nil && (c.Code != "NEW10" || c.ApplicableTo != domain.CouponScopeAll) {
				t.Errorf("expected normalized coupon, got %+v", c)
			}
		})
	}
}
