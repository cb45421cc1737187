package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

var sortable = map[string]string{"createdAt": "o.created_at", "total": "o.total"}

func TestParsePageQuery(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		q, err := ParsePageQuery(url.Values{}, sortable, "createdAt")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if q.Page != 1 || q.PageSize != DefaultPageSize {
			t.Errorf("unexpected page %d size %d", q.Page, q.PageSize)
		}
		if q.OrderBy() != "o.created_at DESC" {
			t.Errorf("unexpected order by %q", q.OrderBy())
		}
	})

	t.Run("caps page size and sorts ascending", func(t *testing.T) {
		q, err := ParsePageQuery(url.Values{
			"page": {"3"}, "pageSize": {"500"}, "sortBy": {"total"}, "sortOrder": {"ASC"}, "search": {"  alice "},
		}, sortable, "createdAt")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if q.PageSize != MaxPageSize {
			t.Errorf("expected page size %d, got %d", MaxPageSize, q.PageSize)
		}
		if q.Offset() != 200 {
			t.Errorf("expected offset 200, got %d", q.Offset())
		}
		if q.OrderBy() != "o.total ASC" {
			t.Errorf("unexpected order by %q", q.OrderBy())
		}
		if q.Search != "alice" {
			t.Errorf("expected trimmed search, got %q", q.Search)
		}
	})

	t.Run("rejects unknown sort column", func(t *testing.T) {
		_, err := ParsePageQuery(url.Values{"sortBy": {"password_hash"}}, sortable, "createdAt")
		if !errors.Is(err, ErrInvalidQuery) {
			t.Errorf("expected ErrInvalidQuery, got %v", err)
		}
	})

	t.Run("rejects bad page", func(t *testing.T) {
		_, err := ParsePageQuery(url.Values{"page": {"0"}}, sortable, "createdAt")
		if !errors.Is(err, ErrInvalidQuery) {
			t.Errorf("expected ErrInvalidQuery, got %v", err)
		}
	})
}

func TestPageQuery_Pagination(t *testing.T) {
	q := PageQuery{Page: 2, PageSize: 10}
	p := q.Pagination(21)
	if p.TotalPages != 3 || p.TotalCount != 21 || p.Page != 2 {
		t.Errorf("unexpected pagination %+v", p)
	}
}

func TestPageQuery_SearchPattern(t *testing.T) {
	for search, want := range map[string]string{
		"somchai":  `%somchai%`,
		"100%":     `%100\%%`,
		"go_101":   `%go\_101%`,
		`C:\books`: `%C:\\books%`,
	} {
		if got := (PageQuery{Search: search}).SearchPattern(); got != want {
			t.Errorf("SearchPattern(%q) = %q, want %q", search, got, want)
		}
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("expected burst of 2 to be allowed")
	}
	if rl.Allow("a") {
		t.Fatal("expected third request to be limited")
	}
	if !rl.Allow("b") {
		t.Fatal("expected separate key to have its own bucket")
	}

	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Fatal("expected token to refill after a minute")
	}
}

func TestRateLimiter_Limit(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	h := rl.Limit(ClientIP, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	rec := httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestResponder(t *testing.T) {
	rs := NewResponder(slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := httptest.NewRecorder()
	rs.Error(rec, http.StatusConflict, "order already processed")

	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if env.Success || env.Error != "order already processed" {
		t.Errorf("unexpected envelope %+v", env)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:4000"
	if got := ClientIP(req); got != "10.0.0.9" {
		t.Errorf("expected remote address, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := ClientIP(req); got != "203.0.113.7" {
		t.Errorf("expected forwarded address, got %q", got)
	}
	if got := RemoteIP(req); got != "10.0.0.9" {
		t.Errorf("RemoteIP should ignore forwarding headers, got %q", got)
	}
}
