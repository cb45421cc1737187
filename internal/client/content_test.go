package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"testing"

	"github.com/joao-fontenele/courseshop/internal/domain"
)

func ids(items []domain.Ebook) []string {
	out := make([]string, 0, len(items))
	for _, e := range items {
		out = append(out, e.ID)
	}
	return out
}

func TestContentManager(t *testing.T) {
	api := newFakeAPI(t)
	api.mux.HandleFunc("GET /api/admin/ebooks", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": []domain.Ebook{
				{ID: "e1", Title: "One", Price: 100},
				{ID: "e2", Title: "Two", Price: 200},
				{ID: "e3", Title: "Three", Price: 300},
			},
			"pagination": map[string]int{"page": 1, "pageSize": 20, "totalCount": 3, "totalPages": 1},
		})
	})
	api.mux.HandleFunc("DELETE /api/admin/ebooks/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "e2" {
			fail(w, http.StatusConflict, "ebook is in use")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "ebook deleted"})
	})
	api.mux.HandleFunc("PUT /api/admin/ebooks/{id}", func(w http.ResponseWriter, r *http.Request) {
		var e domain.Ebook
		_ = json.NewDecoder(r.Body).Decode(&e)
		if e.Price < 0 {
			fail(w, http.StatusBadRequest, "price must not be negative")
			return
		}
		e.ID = r.PathValue("id")
		e.Title += " (saved)"
		ok(w, e)
	})
	api.mux.HandleFunc("POST /api/admin/ebooks", func(w http.ResponseWriter, r *http.Request) {
		var e domain.Ebook
		_ = json.NewDecoder(r.Body).Decode(&e)
		e.ID = "e4"
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": e})
	})

	ctx := context.Background()
	m := Ebooks(api.client())
	if err := m.Load(ctx, PageRequest{Search: "o"}); err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Pagination() == nil || m.Pagination().TotalCount != 3 {
		t.Errorf("unexpected pagination %+v", m.Pagination())
	}

	t.Run("failed delete is rolled back in place", func(t *testing.T) {
		err := m.Delete(ctx, "e2")
		if !IsStatus(err, http.StatusConflict) {
			t.Fatalf("expected 409, got %v", err)
		}
		if got := ids(m.Items()); !slices.Equal(got, []string{"e1", "e2", "e3"}) {
			t.Errorf("expected original order, got %v", got)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := m.Delete(ctx, "e3"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if got := ids(m.Items()); !slices.Equal(got, []string{"e1", "e2"}) {
			t.Errorf("unexpected items %v", got)
		}
	})

	t.Run("failed update restores the old value", func(t *testing.T) {
		err := m.Update(ctx, domain.Ebook{ID: "e1", Title: "Broken", Price: -1})
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if got := m.Items()[0]; got.Title != "One" || got.Price != 100 {
			t.Errorf("expected rollback, got %+v", got)
		}
	})

	t.Run("update keeps the server version", func(t *testing.T) {
		if err := m.Update(ctx, domain.Ebook{ID: "e1", Title: "Uno", Price: 150}); err != nil {
			t.Fatalf("update: %v", err)
		}
		if got := m.Items()[0]; got.Title != "Uno (saved)" || got.Price != 150 {
			t.Errorf("unexpected item %+v", got)
		}
	})

	t.Run("create prepends", func(t *testing.T) {
		created, err := m.Create(ctx, domain.Ebook{Title: "Four", Price: 400})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if created.ID != "e4" || m.Items()[0].ID != "e4" {
			t.Errorf("unexpected items %v", ids(m.Items()))
		}
	})
}

func TestRemoveCommand_RevertAfterConcurrentChange(t *testing.T) {
	var l List[string]
	l.Set([]string{"a", "b", "c"})
	key := func(s string) string { return s }

	err := l.Execute(context.Background(), RemoveCommand("c", key, func(context.Context) error {
		l.update(func(items []string) []string { return items[:1] })
		return errors.New("boom")
	}))
	if err == nil {
		t.Fatal("expected error")
	}
	if got := l.Items(); !slices.Equal(got, []string{"a", "c"}) {
		t.Errorf("expected c re-added at the end, got %v", got)
	}
}
