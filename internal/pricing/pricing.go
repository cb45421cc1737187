// Package pricing computes coupon discounts and order totals. It is shared by
// the order service, which is authoritative, and the checkout client, which
// previews the same numbers.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/courseshop/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// AppliedCoupon is a validated coupon together with the discount it grants.
type AppliedCoupon struct {
	Code     string            `json:"code"`
	Name     string            `json:"name"`
	Type     domain.CouponType `json:"type"`
	Value    int64             `json:"value"`
	Discount int64             `json:"discount"`
}

type Breakdown struct {
	Subtotal       int64 `json:"subtotal"`
	ShippingFee    int64 `json:"shippingFee"`
	CouponDiscount int64 `json:"couponDiscount"`
	ShippingWaived bool  `json:"shippingWaived"`
	Total          int64 `json:"total"`
}

// IsFree reports whether nothing is left to pay.
func (b Breakdown) IsFree() bool {
	return b.Total == 0
}

// Discount returns the amount a coupon takes off for the given subtotal and
// shipping fee.
func Discount(c domain.Coupon, subtotal, shippingFee int64) int64 {
	var d int64
	switch c.Type {
	case domain.CouponTypePercentage:
		d = decimal.NewFromInt(subtotal).
			Mul(decimal.NewFromInt(c.Value)).
			Div(hundred).
			Round(0).
			IntPart()
		if c.MaxDiscount != nil && d > *c.MaxDiscount {
			d = *c.MaxDiscount
		}
		d = min(d, subtotal)
	case domain.CouponTypeFixedAmount:
		d = min(c.Value, subtotal)
	case domain.CouponTypeFreeShipping:
		d = shippingFee
	}
	return max(d, 0)
}

// Quote applies an optional coupon. FREE_SHIPPING waives the shipping fee, so
// the total is the subtotal; every other type subtracts its discount from
// subtotal plus shipping, never going below zero.
func Quote(subtotal, shippingFee int64, coupon *AppliedCoupon) Breakdown {
	b := Breakdown{Subtotal: subtotal, ShippingFee: shippingFee}
	if coupon == nil {
		b.Total = max(subtotal+shippingFee, 0)
		return b
	}

	if coupon.Type == domain.CouponTypeFreeShipping {
		b.CouponDiscount = shippingFee
		b.ShippingWaived = true
		b.Total = max(subtotal, 0)
		return b
	}

	b.CouponDiscount = coupon.Discount
	b.Total = max(subtotal+shippingFee-coupon.Discount, 0)
	return b
}

// CartTotal is the sum of unit price times quantity across the items.
func CartTotal(items []domain.CartItem) int64 {
	var total int64
	for _, it := range items {
		total += it.UnitPrice() * int64(it.Quantity)
	}
	return total
}
