package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/joao-fontenele/courseshop/internal/domain"
	"github.com/joao-fontenele/courseshop/internal/httpx"
	"github.com/joao-fontenele/courseshop/internal/orders"
)

// ErrNothingSelected is returned by Bulk when no selectable order is selected.
var ErrNothingSelected = errors.New("select at least one order")

// ConsoleFilter narrows the admin order list. Status and PaymentStatus are
// applied by the server; OrderType and Search only filter what was loaded.
type ConsoleFilter struct {
	Status        domain.OrderStatus
	PaymentStatus domain.PaymentStatus
	OrderType     domain.OrderType
	Search        string
	Page          PageRequest
}

// Console is the admin order screen: the loaded list, its filters and the
// bulk selection. Every mutation reloads the list from the server.
type Console struct {
	client *Client

	mu         sync.Mutex
	filter     ConsoleFilter
	rows       []domain.OrderSummary
	pagination *httpx.Pagination
	selected   map[string]bool
}

func NewConsole(c *Client) *Console {
	return &Console{client: c, selected: map[string]bool{}}
}

// Selectable reports whether a row can be picked for a bulk action. Orders
// completed with a completed payment are done and cannot be.
func Selectable(o domain.OrderSummary) bool {
	return !(o.Status == domain.OrderStatusCompleted && o.PaymentStatus == domain.PaymentStatusCompleted)
}

func (c *Console) SetFilter(f ConsoleFilter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter = f
}

func (c *Console) Filter() ConsoleFilter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// Refresh reloads the list with the server-side filters. Selected ids that
// are gone or no longer selectable are dropped.
func (c *Console) Refresh(ctx context.Context) error {
	f := c.Filter()
	q := f.Page.values()
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.PaymentStatus != "" {
		q.Set("paymentStatus", string(f.PaymentStatus))
	}

	var rows []domain.OrderSummary
	res, err := c.client.call(ctx, http.MethodGet, "/api/admin/orders", q, nil, &rows)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = rows
	c.pagination = res.Pagination
	keep := map[string]bool{}
	for _, o := range rows {
		if c.selected[o.ID] && Selectable(o) {
			keep[o.ID] = true
		}
	}
	c.selected = keep
	return nil
}

func (c *Console) Pagination() *httpx.Pagination {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pagination
}

// Rows returns the loaded orders that match the local order type and search
// filters. Search looks at the order id, customer name and email, and the
// product title.
func (c *Console) Rows() []domain.OrderSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible()
}

func (c *Console) visible() []domain.OrderSummary {
	search := strings.ToLower(strings.TrimSpace(c.filter.Search))
	out := make([]domain.OrderSummary, 0, len(c.rows))
	for _, o := range c.rows {
		if c.filter.OrderType != "" && o.OrderType != c.filter.OrderType {
			continue
		}
		if search != "" && !matches(o, search) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func matches(o domain.OrderSummary, search string) bool {
	for _, field := range []string{o.ID, o.CustomerName, o.CustomerEmail, o.ItemTitle} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

// Select marks orders for a bulk action. Unknown or unselectable ids are
// ignored; it returns how many ids were accepted.
func (c *Console) Select(ids ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, id := range ids {
		i := slices.IndexFunc(c.rows, func(o domain.OrderSummary) bool { return o.ID == id })
		if i < 0 || !Selectable(c.rows[i]) {
			continue
		}
		c.selected[id] = true
		n++
	}
	return n
}

// SelectAll selects every selectable row that passes the local filters.
func (c *Console) SelectAll() int {
	rows := c.Rows()
	ids := make([]string, 0, len(rows))
	for _, o := range rows {
		ids = append(ids, o.ID)
	}
	return c.Select(ids...)
}

func (c *Console) Deselect(ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.selected, id)
	}
}

func (c *Console) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = map[string]bool{}
}

// Selected returns the selected ids in list order. Rows hidden by the local
// filters stay selected but are left out until they are visible again.
func (c *Console) Selected() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ids []string
	for _, o := range c.visible() {
		if c.selected[o.ID] {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

func (c *Console) Detail(ctx context.Context, id string) (*domain.OrderDetail, error) {
	var d domain.OrderDetail
	if _, err := c.client.call(ctx, http.MethodGet, "/api/admin/orders/"+url.PathEscape(id), nil, nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

type transitionBody struct {
	Action          orders.Action `json:"action"`
	Notes           string        `json:"notes,omitempty"`
	RejectionReason string        `json:"rejectionReason,omitempty"`
}

func (c *Console) transition(ctx context.Context, id string, body transitionBody) (*orders.TransitionResult, error) {
	var res orders.TransitionResult
	_, err := c.client.call(ctx, http.MethodPatch, "/api/admin/orders/"+url.PathEscape(id), nil, body, &res)
	refreshErr := c.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	return &res, refreshErr
}

// Confirm approves the payment of an order awaiting verification. Course
// orders come back with the enrollment that was created.
func (c *Console) Confirm(ctx context.Context, id, notes string) (*orders.TransitionResult, error) {
	return c.transition(ctx, id, transitionBody{Action: orders.ActionConfirm, Notes: notes})
}

// Reject refuses the payment. The reason is required and checked before
// any request is made.
func (c *Console) Reject(ctx context.Context, id, reason, notes string) (*orders.TransitionResult, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, orders.ErrReasonRequired
	}
	return c.transition(ctx, id, transitionBody{Action: orders.ActionReject, RejectionReason: reason, Notes: notes})
}

func (c *Console) Cancel(ctx context.Context, id, notes string) (*orders.TransitionResult, error) {
	return c.transition(ctx, id, transitionBody{Action: orders.ActionCancel, Notes: notes})
}

// Bulk runs action on the selected orders. reject_payment uses notes as the
// reason, so notes are required for it. The selection is cleared and the
// list reloaded afterwards.
func (c *Console) Bulk(ctx context.Context, action orders.BulkAction, notes string) (*orders.BulkResult, string, error) {
	ids := c.Selected()
	if len(ids) == 0 {
		return nil, "", ErrNothingSelected
	}
	if action == orders.BulkRejectPayment && strings.TrimSpace(notes) == "" {
		return nil, "", orders.ErrReasonRequired
	}

	var out orders.BulkResult
	res, err := c.client.call(ctx, http.MethodPost, "/api/admin/orders/bulk", nil, map[string]any{
		"orderIds": ids,
		"action":   action,
		"notes":    notes,
	}, &out)
	if err != nil {
		_ = c.Refresh(ctx)
		return nil, "", err
	}

	c.ClearSelection()
	if err := c.Refresh(ctx); err != nil {
		return &out, res.Message, err
	}
	return &out, res.Message, nil
}

// Analysis returns the stored slip analysis of an order, or nil when none
// has been run.
func (c *Console) Analysis(ctx context.Context, orderID string) (*domain.SlipAnalysis, error) {
	var a *domain.SlipAnalysis
	q := url.Values{"orderId": {orderID}}
	if _, err := c.client.call(ctx, http.MethodGet, "/api/admin/payments/analyze-slip", q, nil, &a); err != nil {
		return nil, err
	}
	return a, nil
}

// Analyze runs the slip through the verifier again. The result is advisory;
// it does not change the order.
func (c *Console) Analyze(ctx context.Context, orderID string) (*domain.SlipAnalysis, error) {
	var a domain.SlipAnalysis
	if _, err := c.client.call(ctx, http.MethodPost, "/api/admin/payments/analyze-slip", nil, map[string]string{"orderId": orderID}, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
