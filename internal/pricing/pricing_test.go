package pricing

import (
	"testing"

	"github.com/joao-fontenele/courseshop/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func TestQuote(t *testing.T) {
	tests := []struct {
		name       string
		subtotal   int64
		shipping   int64
		coupon     *AppliedCoupon
		wantTotal  int64
		wantDisc   int64
		wantWaived bool
	}{
		{"no coupon", 500, 50, nil, 550, 0, false},
		{"fixed amount", 500, 0, &AppliedCoupon{Type: domain.CouponTypeFixedAmount, Value: 50, Discount: 50}, 450, 50, false},
		{"percentage with shipping", 1000, 50, &AppliedCoupon{Type: domain.CouponTypePercentage, Value: 10, Discount: 100}, 950, 100, false},
		{"free shipping waives fee", 500, 50, &AppliedCoupon{Type: domain.CouponTypeFreeShipping, Discount: 50}, 500, 50, true},
		{"free shipping without fee", 500, 0, &AppliedCoupon{Type: domain.CouponTypeFreeShipping}, 500, 0, true},
		{"clamped at zero", 100, 0, &AppliedCoupon{Type: domain.CouponTypeFixedAmount, Value: 300, Discount: 300}, 0, 300, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Quote(tt.subtotal, tt.shipping, tt.coupon)
			if b.Total != tt.wantTotal {
				t.Errorf("expected total %d, got %d", tt.wantTotal, b.Total)
			}
			if b.CouponDiscount != tt.wantDisc {
				t.Errorf("expected discount %d, got %d", tt.wantDisc, b.CouponDiscount)
			}
			if b.ShippingWaived != tt.wantWaived {
				t.Errorf("expected shippingWaived %v, got %v", tt.wantWaived, b.ShippingWaived)
			}
		})
	}
}

func TestQuote_TotalInvariant(t *testing.T) {
	coupons := []*AppliedCoupon{
		nil,
		{Type: domain.CouponTypePercentage, Discount: 37},
		{Type: domain.CouponTypeFixedAmount, Discount: 900},
		{Type: domain.CouponTypeFreeShipping, Discount: 40},
	}
	for _, c := range coupons {
		for _, subtotal := range []int64{0, 10, 250, 1000} {
			for _, shipping := range []int64{0, 40} {
				b := Quote(subtotal, shipping, c)
				var want int64
				if c != nil && c.Type == domain.CouponTypeFreeShipping {
					want = subtotal
				} else {
					want = max(0, subtotal+shipping-b.CouponDiscount)
				}
				if b.Total != want {
					t.Fatalf("coupon %+v subtotal %d shipping %d: expected %d, got %d", c, subtotal, shipping, want, b.Total)
				}
			}
		}
	}
}

func TestDiscount(t *testing.T) {
	t.Run("percentage rounds half up", func(t *testing.T) {
		c := domain.Coupon{Type: domain.CouponTypePercentage, Value: 15}
		if got := Discount(c, 333, 0); got != 50 {
			t.Errorf("expected 50, got %d", got)
		}
	})

	t.Run("percentage capped by max discount", func(t *testing.T) {
		c := domain.Coupon{Type: domain.CouponTypePercentage, Value: 50, MaxDiscount: ptr(int64(100))}
		if got := Discount(c, 1000, 0); got != 100 {
			t.Errorf("expected 100, got %d", got)
		}
	})

	t.Run("fixed amount capped by subtotal", func(t *testing.T) {
		c := domain.Coupon{Type: domain.CouponTypeFixedAmount, Value: 500}
		if got := Discount(c, 200, 50); got != 200 {
			t.Errorf("expected 200, got %d", got)
		}
	})

	t.Run("free shipping equals shipping fee", func(t *testing.T) {
		c := domain.Coupon{Type: domain.CouponTypeFreeShipping}
		if got := Discount(c, 500, 50); got != 50 {
			t.Errorf("expected 50, got %d", got)
		}
	})
}

func TestCartTotal(t *testing.T) {
	items := []domain.CartItem{
		{ID: "e1", Type: domain.ItemTypeEbook, Price: 300, DiscountPrice: ptr(int64(250)), Quantity: 2},
	}
	if got := CartTotal(items); got != 500 {
		t.Fatalf("expected 500, got %d", got)
	}

	fixed := Quote(CartTotal(items), 0, &AppliedCoupon{Type: domain.CouponTypeFixedAmount, Value: 50, Discount: 50})
	if fixed.Total != 450 {
		t.Fatalf("expected 450 after fixed coupon, got %d", fixed.Total)
	}
}
