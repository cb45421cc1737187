package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/joao-fontenele/courseshop/internal/domain"
	"github.com/joao-fontenele/courseshop/internal/orders"
)

func (c *Client) CreateOrder(ctx context.Context, req orders.CreateRequest) (*orders.CreateResult, error) {
	var res orders.CreateResult
	if _, err := c.call(ctx, http.MethodPost, "/api/orders", nil, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Orders(ctx context.Context) ([]domain.Order, error) {
	var out []domain.Order
	if _, err := c.call(ctx, http.MethodGet, "/api/orders", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Order(ctx context.Context, id string) (*orders.OrderView, error) {
	var v orders.OrderView
	if _, err := c.call(ctx, http.MethodGet, "/api/orders/"+url.PathEscape(id), nil, nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// PaymentInstructions returns the bank transfer details of a pending order.
func (c *Client) PaymentInstructions(ctx context.Context, id string) (*orders.PaymentInstructions, error) {
	var in orders.PaymentInstructions
	if _, err := c.call(ctx, http.MethodGet, "/api/orders/"+url.PathEscape(id)+"/payment", nil, nil, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

// Receipt downloads the PDF receipt of a completed order.
func (c *Client) Receipt(ctx context.Context, id string) ([]byte, error) {
	return c.download(ctx, "/api/orders/"+url.PathEscape(id)+"/receipt")
}

// CancelOrder abandons one of the caller's orders while it is still waiting
// for payment.
func (c *Client) CancelOrder(ctx context.Context, id string) (*domain.Order, error) {
	var o domain.Order
	if _, err := c.call(ctx, http.MethodPost, "/api/orders/"+url.PathEscape(id)+"/cancel", nil, nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}
