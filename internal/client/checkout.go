package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/joao-fontenele/courseshop/internal/cart"
	"github.com/joao-fontenele/courseshop/internal/domain"
	"github.com/joao-fontenele/courseshop/internal/orders"
	"github.com/joao-fontenele/courseshop/internal/pricing"
)

// Purchase is the item being checked out.
type Purchase struct {
	UserID      string
	ItemType    domain.OrderType
	ItemID      string
	Subtotal    int64
	ShippingFee int64
	IsPhysical  bool
}

// Checkout holds the coupon and shipping state of one purchase page. The
// server prices the order again on creation; Quote is a preview.
type Checkout struct {
	client   *Client
	purchase Purchase
	cart     *cart.Store

	mu        sync.Mutex
	coupon    *pricing.AppliedCoupon
	couponErr string
	shipping  *domain.ShippingAddress
}

// NewCheckout starts a checkout. cart may be nil; when set it is cleared
// once the order is created.
func NewCheckout(c *Client, p Purchase, cart *cart.Store) *Checkout {
	return &Checkout{client: c, purchase: p, cart: cart}
}

type couponResponse struct {
	Coupon   domain.CouponInfo `json:"coupon"`
	Discount int64             `json:"discount"`
}

// ApplyCoupon validates code with the API. Any failure clears a previously
// applied coupon and records the message for display.
func (co *Checkout) ApplyCoupon(ctx context.Context, code string) (*pricing.AppliedCoupon, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		err := domain.Invalid("please enter a coupon code")
		co.setCoupon(nil, err)
		return nil, err
	}

	var res couponResponse
	_, err := co.client.call(ctx, http.MethodPost, "/api/coupons/validate", nil, map[string]any{
		"code":        code,
		"userId":      co.purchase.UserID,
		"itemType":    co.purchase.ItemType,
		"itemId":      co.purchase.ItemID,
		"subtotal":    co.purchase.Subtotal,
		"shippingFee": co.purchase.ShippingFee,
	}, &res)
	if err != nil {
		co.setCoupon(nil, err)
		return nil, err
	}

	applied := &pricing.AppliedCoupon{
		Code:     res.Coupon.Code,
		Name:     res.Coupon.Name,
		Type:     res.Coupon.Type,
		Value:    res.Coupon.Value,
		Discount: res.Discount,
	}
	co.setCoupon(applied, nil)
	return applied, nil
}

// RemoveCoupon resets the coupon state without calling the API.
func (co *Checkout) RemoveCoupon() {
	co.setCoupon(nil, nil)
}

func (co *Checkout) setCoupon(c *pricing.AppliedCoupon, err error) {
	co.mu.Lock()
	defer co.mu.Unlock()
	co.coupon = c
	co.couponErr = ""
	if err != nil {
		co.couponErr = Message(err)
	}
}

func (co *Checkout) Coupon() *pricing.AppliedCoupon {
	co.mu.Lock()
	defer co.mu.Unlock()
	if co.coupon == nil {
		return nil
	}
	c := *co.coupon
	return &c
}

// CouponError is the message of the last failed ApplyCoupon, if any.
func (co *Checkout) CouponError() string {
	co.mu.Lock()
	defer co.mu.Unlock()
	return co.couponErr
}

func (co *Checkout) Quote() pricing.Breakdown {
	co.mu.Lock()
	defer co.mu.Unlock()
	shipping := int64(0)
	if co.purchase.IsPhysical {
		shipping = co.purchase.ShippingFee
	}
	return pricing.Quote(co.purchase.Subtotal, shipping, co.coupon)
}

func (co *Checkout) SetShippingAddress(a domain.ShippingAddress) {
	co.mu.Lock()
	defer co.mu.Unlock()
	co.shipping = &a
}

// PlaceOrder creates the order. Physical items need every shipping field
// filled in before any request is made.
func (co *Checkout) PlaceOrder(ctx context.Context) (*orders.CreateResult, error) {
	co.mu.Lock()
	req := orders.CreateRequest{
		UserID:   co.purchase.UserID,
		ItemType: co.purchase.ItemType,
		ItemID:   co.purchase.ItemID,
	}
	if co.coupon != nil {
		req.CouponCode = co.coupon.Code
	}
	if co.purchase.IsPhysical {
		if co.shipping == nil {
			co.mu.Unlock()
			return nil, domain.Invalid("shipping address is required")
		}
		if missing := co.shipping.MissingFields(); len(missing) > 0 {
			co.mu.Unlock()
			return nil, domain.Invalid("shipping address is incomplete: " + strings.Join(missing, ", "))
		}
		addr := *co.shipping
		req.ShippingAddress = &addr
	}
	co.mu.Unlock()

	res, err := co.client.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}

	if co.cart != nil {
		if err := co.cart.Clear(ctx); err != nil {
			return res, fmt.Errorf("clear cart: %w", err)
		}
	}
	return res, nil
}
