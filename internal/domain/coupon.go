package domain

import (
	"fmt"
	"time"
)

type CouponType string

const (
	CouponTypePercentage   CouponType = "PERCENTAGE"
	CouponTypeFixedAmount  CouponType = "FIXED_AMOUNT"
	CouponTypeFreeShipping CouponType = "FREE_SHIPPING"
)

func ParseCouponType(s string) (CouponType, error) {
	switch t := CouponType(normalize(s)); t {
	case CouponTypePercentage, CouponTypeFixedAmount, CouponTypeFreeShipping:
		return t, nil
	}
	return "", fmt.Errorf("unknown coupon type %q", s)
}

func (t *CouponType) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, func(raw string) error {
		ct, err := ParseCouponType(raw)
		*t = ct
		return err
	})
}

// CouponScope restricts which order types a coupon applies to.
type CouponScope string

const (
	CouponScopeAll    CouponScope = "ALL"
	CouponScopeEbook  CouponScope = "EBOOK"
	CouponScopeCourse CouponScope = "COURSE"
)

func (s CouponScope) Covers(t OrderType) bool {
	return s == "" || s == CouponScopeAll || string(s) == string(t)
}

type Coupon struct {
	ID           string      `json:"id"`
	Code         string      `json:"code"`
	Name         string      `json:"name"`
	Type         CouponType  `json:"type"`
	Value        int64       `json:"value"`
	MinPurchase  int64       `json:"minPurchase"`
	MaxDiscount  *int64      `json:"maxDiscount,omitempty"`
	ApplicableTo CouponScope `json:"applicableTo"`
	UsageLimit   *int        `json:"usageLimit,omitempty"`
	PerUserLimit *int        `json:"perUserLimit,omitempty"`
	UsedCount    int         `json:"usedCount"`
	StartsAt     *time.Time  `json:"startsAt,omitempty"`
	ExpiresAt    *time.Time  `json:"expiresAt,omitempty"`
	IsActive     bool        `json:"isActive"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

func (c Coupon) Info() CouponInfo {
	return CouponInfo{Code: c.Code, Name: c.Name, Type: c.Type, Value: c.Value}
}
