// Package coupons checks whether a coupon may be applied to a purchase and
// how much it takes off.
package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joao-fontenele/courseshop/internal/domain"
	"github.com/joao-fontenele/courseshop/internal/pricing"
)

var (
	ErrCodeRequired        = errors.New("coupon code is required")
	ErrCouponNotFound      = errors.New("coupon not found")
	ErrCouponInactive      = errors.New("coupon is not active")
	ErrCouponNotStarted    = errors.New("coupon is not valid yet")
	ErrCouponExpired       = errors.New("coupon has expired")
	ErrCouponNotApplicable = errors.New("coupon does not apply to this item")
	ErrBelowMinPurchase    = errors.New("order does not meet the coupon minimum purchase")
	ErrUsageLimitReached   = errors.New("coupon usage limit reached")
	ErrPerUserLimitReached = errors.New("you have already used this coupon")
)

var rejections = []error{
	ErrCodeRequired, ErrCouponNotFound, ErrCouponInactive, ErrCouponNotStarted,
	ErrCouponExpired, ErrCouponNotApplicable, ErrBelowMinPurchase,
	ErrUsageLimitReached, ErrPerUserLimitReached,
}

// IsRejection reports whether err is a business rule refusal rather than a
// failure to evaluate the coupon.
func IsRejection(err error) bool {
	for _, r := range rejections {
		if errors.Is(err, r) {
			return true
		}
	}
	return false
}

type Store interface {
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)
	CountUserUses(ctx context.Context, couponID, userID string) (int, error)
}

type Request struct {
	Code        string
	UserID      string
	ItemType    domain.OrderType
	ItemID      string
	Subtotal    int64
	ShippingFee int64
}

type Validator struct {
	store Store
	now   func() time.Time
}

func NewValidator(store Store) *Validator {
	return &Validator{store: store, now: time.Now}
}

// NormalizeCode trims and upper-cases a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate runs the checks in a fixed order and stops at the first failure:
// code present, exists, active, inside its window, applicable to the item
// type, minimum purchase, global usage limit, per-user limit.
func (v *Validator) Validate(ctx context.Context, req Request) (*domain.Coupon, *pricing.AppliedCoupon, error) {
	code := NormalizeCode(req.Code)
	if code == "" {
		return nil, nil, ErrCodeRequired
	}

	c, err := v.store.GetByCode(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("get coupon: %w", err)
	}
	if c == nil {
		return nil, nil, ErrCouponNotFound
	}
	if !c.IsActive {
		return nil, nil, ErrCouponInactive
	}

	now := v.now()
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return nil, nil, ErrCouponNotStarted
	}
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return nil, nil, ErrCouponExpired
	}
	if !c.ApplicableTo.Covers(req.ItemType) {
		return nil, nil, ErrCouponNotApplicable
	}
	if req.Subtotal < c.MinPurchase {
		return nil, nil, fmt.Errorf("%w (%d)", ErrBelowMinPurchase, c.MinPurchase)
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return nil, nil, ErrUsageLimitReached
	}
	if c.PerUserLimit != nil && req.UserID != "" {
		used, err := v.store.CountUserUses(ctx, c.ID, req.UserID)
		if err != nil {
			return nil, nil, fmt.Errorf("count coupon uses: %w", err)
		}
		if used >= *c.PerUserLimit {
			return nil, nil, ErrPerUserLimitReached
		}
	}

	applied := &pricing.AppliedCoupon{
		Code:     c.Code,
		Name:     c.Name,
		Type:     c.Type,
		Value:    c.Value,
		Discount: pricing.Discount(*c, req.Subtotal, req.ShippingFee),
	}
	return c, applied, nil
}
