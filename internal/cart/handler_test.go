package cart

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joao-fontenele/courseshop/internal/auth"
	"github.com/joao-fontenele/courseshop/internal/domain"
)

type fakeFinder map[string]domain.Product

func (f fakeFinder) FindProduct(_ context.Context, t domain.ItemType, id string) (*domain.Product, error) {
	p, ok := f[string(t)+":"+id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

type cartResponse struct {
	Success bool    `json:"success"`
	Data    Summary `json:"data"`
	Error   string  `json:"error"`
}

func TestHandler(t *testing.T) {
	persisters := map[string]*MemoryPersister{}
	carts := NewCarts(func(userID string) Persister {
		if _, ok := persisters[userID]; !ok {
			persisters[userID] = NewMemoryPersister(nil)
		}
		return persisters[userID]
	})
	finder := fakeFinder{
		"ebook:e1": {ID: "e1", Type: domain.OrderTypeEbook, Title: "Go in Practice", Price: 300, DiscountPrice: ptr(int64(250)), IsActive: true},
	}
	h := NewHandler(carts, finder, slog.New(slog.NewTextHandler(io.Discard, nil)))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/cart", h.HandleGet)
	mux.HandleFunc("POST /api/cart/items", h.HandleAdd)
	mux.HandleFunc("PATCH /api/cart/items/{type}/{id}", h.HandleUpdateQuantity)
	mux.HandleFunc("DELETE /api/cart/items/{type}/{id}", h.HandleRemove)
	mux.HandleFunc("DELETE /api/cart", h.HandleClear)

	do := func(method, path, body string) (*httptest.ResponseRecorder, cartResponse) {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: "u1", Role: domain.RoleUser}))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		var resp cartResponse
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		return rec, resp
	}

	t.Run("add prices from catalog", func(t *testing.T) {
		rec, resp := do(http.MethodPost, "/api/cart/items", `{"id":"e1","type":"ebook","quantity":2}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if resp.Data.Total != 500 || resp.Data.Count != 2 {
			t.Errorf("unexpected summary %+v", resp.Data)
		}
		if resp.Data.Items[0].Title != "Go in Practice" {
			t.Errorf("expected catalog title, got %q", resp.Data.Items[0].Title)
		}
	})

	t.Run("unknown product", func(t *testing.T) {
		rec, _ := do(http.MethodPost, "/api/cart/items", `{"id":"nope","type":"ebook"}`)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("update to zero removes", func(t *testing.T) {
		rec, resp := do(http.MethodPatch, "/api/cart/items/ebook/e1", `{"quantity":0}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if len(resp.Data.Items) != 0 {
			t.Errorf("expected empty cart, got %+v", resp.Data.Items)
		}
	})

	t.Run("remove missing item", func(t *testing.T) {
		rec, _ := do(http.MethodDelete, "/api/cart/items/course/c1", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("requires identity", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})
}
