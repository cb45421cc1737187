package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"sync"
	"testing"

	"github.com/joao-fontenele/courseshop/internal/domain"
	"github.com/joao-fontenele/courseshop/internal/orders"
)

func summary(id string, ot domain.OrderType, title string, st domain.OrderStatus, ps domain.PaymentStatus) domain.OrderSummary {
	return domain.OrderSummary{
		Order:         domain.Order{ID: id, OrderType: ot, ItemTitle: title, Status: st},
		CustomerName:  "Somchai",
		CustomerEmail: "somchai@example.com",
		PaymentStatus: ps,
	}
}

type consoleAPI struct {
	*fakeAPI

	mu       sync.Mutex
	rows     []domain.OrderSummary
	bulkIDs  []string
	lastList string
}

func newConsoleAPI(t *testing.T) *consoleAPI {
	api := &consoleAPI{fakeAPI: newFakeAPI(t)}
	api.rows = []domain.OrderSummary{
		summary("order-a", domain.OrderTypeEbook, "Concurrency Notes", domain.OrderStatusPendingVerification, domain.PaymentStatusPendingVerification),
		summary("order-b", domain.OrderTypeCourse, "Go 101", domain.OrderStatusCompleted, domain.PaymentStatusCompleted),
		summary("order-c", domain.OrderTypeCourse, "Kafka in Practice", domain.OrderStatusPending, domain.PaymentStatusPending),
	}

	api.mux.HandleFunc("GET /api/admin/orders", func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		api.lastList = r.URL.RawQuery
		rows := slices.Clone(api.rows)
		api.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true, "data": rows,
			"pagination": map[string]int{"page": 1, "pageSize": 20, "totalCount": len(rows), "totalPages": 1},
		})
	})
	api.mux.HandleFunc("PATCH /api/admin/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		var body transitionBody
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Action != orders.ActionConfirm {
			fail(w, http.StatusConflict, "order cannot be changed from its current status")
			return
		}
		api.mu.Lock()
		for i := range api.rows {
			if api.rows[i].ID == r.PathValue("id") {
				api.rows[i].Status = domain.OrderStatusCompleted
				api.rows[i].PaymentStatus = domain.PaymentStatusCompleted
			}
		}
		api.mu.Unlock()
		ok(w, map[string]any{
			"order":      map[string]any{"id": r.PathValue("id"), "status": "COMPLETED"},
			"enrollment": map[string]any{"id": "enr-1", "courseId": "go-101"},
		})
	})
	api.mux.HandleFunc("POST /api/admin/orders/bulk", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			OrderIDs []string `json:"orderIds"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		api.mu.Lock()
		api.bulkIDs = body.OrderIDs
		api.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true, "message": "2 processed, 0 failed",
			"data": map[string]any{"processed": len(body.OrderIDs), "failed": 0},
		})
	})
	api.mux.HandleFunc("GET /api/admin/payments/analyze-slip", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": nil})
	})
	return api
}

func TestConsole_SelectionExcludesCompleted(t *testing.T) {
	api := newConsoleAPI(t)
	ctx := context.Background()
	c := NewConsole(api.client())

	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if n := c.Select("order-a", "order-b", "order-c"); n != 2 {
		t.Errorf("expected 2 selectable orders, got %d", n)
	}
	if got := c.Selected(); !slices.Equal(got, []string{"order-a", "order-c"}) {
		t.Fatalf("unexpected selection %v", got)
	}

	res, msg, err := c.Bulk(ctx, orders.BulkCancelOrders, "")
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if !slices.Equal(api.bulkIDs, []string{"order-a", "order-c"}) {
		t.Errorf("bulk payload should carry only selectable ids, got %v", api.bulkIDs)
	}
	if res.Processed != 2 || msg != "2 processed, 0 failed" {
		t.Errorf("unexpected result %+v %q", res, msg)
	}
	if len(c.Selected()) != 0 {
		t.Error("selection should be cleared after a bulk action")
	}
	if api.count("GET /api/admin/orders") != 2 {
		t.Errorf("bulk should reload the list, got %d loads", api.count("GET /api/admin/orders"))
	}
}

func TestConsole_BulkPreconditions(t *testing.T) {
	api := newConsoleAPI(t)
	ctx := context.Background()
	c := NewConsole(api.client())
	_ = c.Refresh(ctx)

	if _, _, err := c.Bulk(ctx, orders.BulkConfirmPayment, ""); !errors.Is(err, ErrNothingSelected) {
		t.Errorf("expected ErrNothingSelected, got %v", err)
	}
	c.Select("order-a")
	if _, _, err := c.Bulk(ctx, orders.BulkRejectPayment, "  "); !errors.Is(err, orders.ErrReasonRequired) {
		t.Errorf("expected ErrReasonRequired, got %v", err)
	}
	if api.count("POST /api/admin/orders/bulk") != 0 {
		t.Error("precondition failures must not reach the API")
	}
}

func TestConsole_TransitionsRefetch(t *testing.T) {
	api := newConsoleAPI(t)
	ctx := context.Background()
	c := NewConsole(api.client())
	_ = c.Refresh(ctx)
	c.Select("order-a")

	if _, err := c.Reject(ctx, "order-a", "", "no reason"); !errors.Is(err, orders.ErrReasonRequired) {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}
	if api.count("PATCH /api/admin/orders/order-a") != 0 {
		t.Fatal("reject without a reason must not reach the API")
	}

	res, err := c.Confirm(ctx, "order-a", "matched statement")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if res.Order.Status != domain.OrderStatusCompleted || res.Enrollment == nil {
		t.Errorf("unexpected result %+v", res)
	}
	if api.count("GET /api/admin/orders") != 2 {
		t.Errorf("confirm should reload the list, got %d loads", api.count("GET /api/admin/orders"))
	}
	if len(c.Selected()) != 0 {
		t.Error("a completed order should drop out of the selection after reload")
	}

	if _, err := c.Cancel(ctx, "order-a", ""); !IsStatus(err, http.StatusConflict) {
		t.Errorf("expected 409, got %v", err)
	}
	if api.count("GET /api/admin/orders") != 3 {
		t.Error("a failed mutation should still reload the list")
	}
}

func TestConsole_BulkSkipsHiddenRows(t *testing.T) {
	api := newConsoleAPI(t)
	ctx := context.Background()
	c := NewConsole(api.client())
	_ = c.Refresh(ctx)

	c.Select("order-a", "order-c")
	c.SetFilter(ConsoleFilter{OrderType: domain.OrderTypeCourse})
	if got := c.Selected(); !slices.Equal(got, []string{"order-c"}) {
		t.Fatalf("expected only the visible selection, got %v", got)
	}

	if _, _, err := c.Bulk(ctx, orders.BulkCancelOrders, ""); err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if !slices.Equal(api.bulkIDs, []string{"order-c"}) {
		t.Errorf("hidden order-a must not be sent, got %v", api.bulkIDs)
	}
}

func TestConsole_Filters(t *testing.T) {
	api := newConsoleAPI(t)
	ctx := context.Background()
	c := NewConsole(api.client())

	c.SetFilter(ConsoleFilter{
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusPending,
		OrderType:     domain.OrderTypeCourse,
		Search:        "KAFKA",
		Page:          PageRequest{Page: 2, PageSize: 10},
	})
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if api.lastList != "page=2&pageSize=10&paymentStatus=PENDING&status=PENDING" {
		t.Errorf("unexpected server query %q", api.lastList)
	}

	rows := c.Rows()
	if len(rows) != 1 || rows[0].ID != "order-c" {
		t.Errorf("expected only order-c after local filters, got %+v", rows)
	}

	c.SetFilter(ConsoleFilter{Search: "somchai@"})
	if len(c.Rows()) != 3 {
		t.Errorf("customer email search should match all rows, got %d", len(c.Rows()))
	}
	if n := c.SelectAll(); n != 2 {
		t.Errorf("SelectAll should skip the completed order, got %d", n)
	}

	a, err := c.Analysis(ctx, "order-a")
	if err != nil || a != nil {
		t.Errorf("expected no analysis, got %+v %v", a, err)
	}
}
