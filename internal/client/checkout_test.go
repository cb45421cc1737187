package client

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/joao-fontenele/courseshop/internal/cart"
	"github.com/joao-fontenele/courseshop/internal/domain"
)

func checkoutAPI(t *testing.T) *fakeAPI {
	api := newFakeAPI(t)
	api.mux.HandleFunc("POST /api/coupons/validate", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Code        string `json:"code"`
			Subtotal    int64  `json:"subtotal"`
			ShippingFee int64  `json:"shippingFee"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		switch req.Code {
		case "FIXED50":
			ok(w, map[string]any{"coupon": map[string]any{"code": "FIXED50", "name": "Fifty off", "type": "FIXED_AMOUNT", "value": 50}, "discount": 50})
		case "SHIPFREE":
			ok(w, map[string]any{"coupon": map[string]any{"code": "SHIPFREE", "name": "Free shipping", "type": "FREE_SHIPPING", "value": 0}, "discount": req.ShippingFee})
		default:
			fail(w, http.StatusBadRequest, "coupon not found")
		}
	})
	api.mux.HandleFunc("POST /api/orders", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": map[string]any{
			"orderId": "order-1", "isFree": false, "total": 450, "status": "PENDING",
		}})
	})
	return api
}

func TestCheckout_Coupons(t *testing.T) {
	api := checkoutAPI(t)
	ctx := context.Background()

	// One ebook, price 300, discount price 250, quantity 2.
	co := NewCheckout(api.client(), Purchase{UserID: "user-1", ItemType: domain.OrderTypeEbook, ItemID: "pdf-1", Subtotal: 500}, nil)
	if got := co.Quote().Total; got != 500 {
		t.Fatalf("expected 500 before coupon, got %d", got)
	}

	if _, err := co.ApplyCoupon(ctx, "BOGUS"); err == nil {
		t.Fatal("expected unknown coupon to fail")
	}

	if _, err := co.ApplyCoupon(ctx, "FIXED50"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := co.Quote().Total; got != 450 {
		t.Errorf("expected 450 with fixed coupon, got %d", got)
	}

	if _, err := co.ApplyCoupon(ctx, "EXPIRED"); err == nil {
		t.Fatal("expected failure")
	}
	if co.Coupon() != nil {
		t.Error("a failed apply must clear the previous coupon")
	}
	if co.CouponError() != "coupon not found" {
		t.Errorf("unexpected coupon error %q", co.CouponError())
	}
	if got := co.Quote().Total; got != 500 {
		t.Errorf("expected 500 after failed apply, got %d", got)
	}

	before := api.total()
	if _, err := co.ApplyCoupon(ctx, "   "); err == nil {
		t.Error("expected empty code to fail")
	}
	co.RemoveCoupon()
	if api.total() != before {
		t.Error("empty code and RemoveCoupon must not call the API")
	}
	if co.CouponError() != "" {
		t.Errorf("RemoveCoupon should clear the error, got %q", co.CouponError())
	}
}

func TestCheckout_FreeShippingOnPhysicalItem(t *testing.T) {
	api := checkoutAPI(t)

	co := NewCheckout(api.client(), Purchase{
		UserID: "user-1", ItemType: domain.OrderTypeEbook, ItemID: "print-1",
		Subtotal: 500, ShippingFee: 50, IsPhysical: true,
	}, nil)
	if got := co.Quote().Total; got != 550 {
		t.Fatalf("expected 550 with shipping, got %d", got)
	}

	if _, err := co.ApplyCoupon(context.Background(), "SHIPFREE"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	q := co.Quote()
	if q.Total != 500 || q.CouponDiscount != 50 || !q.ShippingWaived {
		t.Errorf("expected shipping waived to 500 with a 50 discount line, got %+v", q)
	}
}

func TestCheckout_PlaceOrder(t *testing.T) {
	api := checkoutAPI(t)
	ctx := context.Background()

	store, err := cart.NewStore(ctx, cart.NewMemoryPersister(nil))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	_ = store.Add(ctx, domain.CartItem{ID: "print-1", Type: domain.ItemTypeEbook, Price: 500, Quantity: 1, IsPhysical: true})

	co := NewCheckout(api.client(), Purchase{
		UserID: "user-1", ItemType: domain.OrderTypeEbook, ItemID: "print-1",
		Subtotal: 500, ShippingFee: 50, IsPhysical: true,
	}, store)

	if _, err := co.PlaceOrder(ctx); err == nil {
		t.Fatal("expected missing address to fail")
	}
	co.SetShippingAddress(domain.ShippingAddress{RecipientName: "Somchai", RecipientPhone: "0812345678", Address: "1 Sukhumvit"})
	if _, err := co.PlaceOrder(ctx); err == nil {
		t.Fatal("expected incomplete address to fail")
	}
	if api.count("POST /api/orders") != 0 {
		t.Fatal("incomplete shipping must not reach the API")
	}

	co.SetShippingAddress(domain.ShippingAddress{
		RecipientName: "Somchai", RecipientPhone: "0812345678", Address: "1 Sukhumvit",
		District: "Khlong Toei", Province: "Bangkok", PostalCode: "10110",
	})
	res, err := co.PlaceOrder(ctx)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if res.OrderID != "order-1" || res.Status != domain.OrderStatusPending {
		t.Errorf("unexpected result %+v", res)
	}
	if store.Count() != 0 {
		t.Error("cart should be cleared after the order is created")
	}
}
